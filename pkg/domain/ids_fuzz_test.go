//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParsePatientID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParsePatientID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE consents;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))
	f.Add("550e8400-e29b-41d4-a716-446655440000\x00suffix")

	f.Fuzz(func(t *testing.T, input string) {
		patientID, err := ParsePatientID(input)

		if err == nil {
			// Accepted IDs must round-trip unchanged
			roundTrip, err2 := ParsePatientID(patientID.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != patientID {
				t.Error("round-trip changed ID value")
			}
		}

		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseAllIDs ensures all ID types share one validation behavior.
func FuzzParseAllIDs(f *testing.F) {
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("")
	f.Add("invalid")

	f.Fuzz(func(t *testing.T, input string) {
		_, errPatient := ParsePatientID(input)
		_, errDoctor := ParseDoctorID(input)
		_, errUser := ParseUserID(input)
		_, errConsent := ParseConsentID(input)
		_, errEntry := ParseEntryID(input)

		accepted := errPatient == nil
		for _, err := range []error{errDoctor, errUser, errConsent, errEntry} {
			if (err == nil) != accepted {
				t.Error("inconsistent parsing across ID types")
			}
		}
	})
}
