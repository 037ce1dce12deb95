package consent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"healthgate/internal/consent/models"
	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) newConsent(patientID id.PatientID, doctorID id.DoctorID) *models.Consent {
	c, err := models.NewConsent(id.NewConsentID(), patientID, doctorID, "", 365*24*time.Hour, time.Now())
	s.Require().NoError(err)
	return c
}

func (s *MemoryStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds consent by ID", func() {
		c := s.newConsent(id.NewPatientID(), id.NewDoctorID())
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.PatientID, found.PatientID)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewConsentID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("mutating a returned consent does not affect the store", func() {
		c := s.newConsent(id.NewPatientID(), id.NewDoctorID())
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		found.Status = models.ConsentStatusRevoked

		again, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.ConsentStatusActive, again.Status)
	})
}

func (s *MemoryStoreSuite) TestPairUniqueness() {
	s.Run("rejects a second record for the same pair", func() {
		patientID, doctorID := id.NewPatientID(), id.NewDoctorID()
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, doctorID)))

		err := s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, doctorID))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("revoked record still blocks the pair", func() {
		patientID, doctorID := id.NewPatientID(), id.NewDoctorID()
		c := s.newConsent(patientID, doctorID)
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))

		_, err := s.store.Execute(s.ctx, c.ID,
			func(c *models.Consent) error { return c.CanRevoke() },
			func(c *models.Consent) { c.ApplyRevocation(time.Now()) },
		)
		s.Require().NoError(err)

		err = s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, doctorID))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("same patient with a different doctor is allowed", func() {
		patientID := id.NewPatientID()
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, id.NewDoctorID())))
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, id.NewDoctorID())))
	})
}

func (s *MemoryStoreSuite) TestListing() {
	s.Run("lists a patient's consents in creation order", func() {
		patientID := id.NewPatientID()
		first := s.newConsent(patientID, id.NewDoctorID())
		second := s.newConsent(patientID, id.NewDoctorID())
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, first))
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, second))
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, s.newConsent(id.NewPatientID(), id.NewDoctorID())))

		listed, err := s.store.ListByPatient(s.ctx, patientID)
		s.Require().NoError(err)
		s.Require().Len(listed, 2)
		s.Equal(first.ID, listed[0].ID)
		s.Equal(second.ID, listed[1].ID)
	})

	s.Run("lists by pair", func() {
		patientID, doctorID := id.NewPatientID(), id.NewDoctorID()
		c := s.newConsent(patientID, doctorID)
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))

		listed, err := s.store.ListByPair(s.ctx, patientID, doctorID)
		s.Require().NoError(err)
		s.Require().Len(listed, 1)
		s.Equal(c.ID, listed[0].ID)
	})
}

func (s *MemoryStoreSuite) TestExecute() {
	s.Run("validation failure leaves the record untouched", func() {
		c := s.newConsent(id.NewPatientID(), id.NewDoctorID())
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))

		wantErr := errors.New("rejected")
		_, err := s.store.Execute(s.ctx, c.ID,
			func(*models.Consent) error { return wantErr },
			func(c *models.Consent) { c.Status = models.ConsentStatusRevoked },
		)
		s.Require().ErrorIs(err, wantErr)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(models.ConsentStatusActive, found.Status)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.Execute(s.ctx, id.NewConsentID(),
			func(*models.Consent) error { return nil },
			func(*models.Consent) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestConcurrentPairCreation verifies that concurrent creates for one
// (patient, doctor) pair yield exactly one success.
func (s *MemoryStoreSuite) TestConcurrentPairCreation() {
	patientID, doctorID := id.NewPatientID(), id.NewDoctorID()
	const goroutines = 50

	var wg sync.WaitGroup
	var successCount, conflictCount atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			c, err := models.NewConsent(id.NewConsentID(), patientID, doctorID, "", 365*24*time.Hour, time.Now())
			if err != nil {
				return
			}
			err = s.store.CreateIfPairAvailable(s.ctx, c)
			if err == nil {
				successCount.Add(1)
			} else if errors.Is(err, sentinel.ErrConflict) {
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one create should succeed")
	s.Equal(int32(goroutines-1), conflictCount.Load(), "all others should get conflict")

	listed, err := s.store.ListByPair(s.ctx, patientID, doctorID)
	s.Require().NoError(err)
	s.Len(listed, 1)
}
