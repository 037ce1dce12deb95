package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	auditmodels "healthgate/internal/audit/models"
	"healthgate/internal/consent/models"
	consentstore "healthgate/internal/consent/store/consent"
	"healthgate/internal/directory"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requestcontext"
)

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]bool
	hits    int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]bool)}
}

func cacheKey(patientID id.PatientID, doctorID id.DoctorID) string {
	return patientID.String() + "/" + doctorID.String()
}

func (c *fakeCache) Get(_ context.Context, patientID id.PatientID, doctorID id.DoctorID) (bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	active, ok := c.entries[cacheKey(patientID, doctorID)]
	if ok {
		c.hits++
	}
	return active, ok
}

func (c *fakeCache) Set(_ context.Context, patientID id.PatientID, doctorID id.DoctorID, active bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(patientID, doctorID)] = active
}

func (c *fakeCache) Invalidate(_ context.Context, patientID id.PatientID, doctorID id.DoctorID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(patientID, doctorID))
}

type fakeAudit struct {
	mu       sync.Mutex
	recorded []auditmodels.RecordRequest
}

func (a *fakeAudit) Record(_ context.Context, req auditmodels.RecordRequest) (*auditmodels.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.recorded = append(a.recorded, req)
	return &auditmodels.Entry{ID: id.NewEntryID()}, nil
}

type ConsentServiceSuite struct {
	suite.Suite
	svc     *Service
	dir     *directory.InMemory
	cache   *fakeCache
	audit   *fakeAudit
	patient directory.Patient
	doctor  directory.Doctor
	actor   directory.User
	now     time.Time
	ctx     context.Context
}

func (s *ConsentServiceSuite) SetupTest() {
	s.dir = directory.NewInMemory()
	s.cache = newFakeCache()
	s.audit = &fakeAudit{}
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.patient = directory.Patient{ID: id.NewPatientID(), FirstName: "Ama", LastName: "Mensah", CreatedAt: s.now}
	s.doctor = directory.Doctor{ID: id.NewDoctorID(), FirstName: "Grace", LastName: "Osei", Specialization: "Cardiology", CreatedAt: s.now}
	s.actor = directory.User{ID: id.NewUserID(), Username: "reception", Role: id.RolePatient, CreatedAt: s.now}
	s.dir.AddPatient(s.patient)
	s.dir.AddDoctor(s.doctor)
	s.dir.AddUser(s.actor)

	s.svc = New(consentstore.NewInMemory(), s.dir,
		WithActiveCache(s.cache),
		WithAuditRecorder(s.audit),
	)

	ctx := requestcontext.WithTime(context.Background(), s.now)
	ctx = requestcontext.WithUserID(ctx, s.actor.ID)
	s.ctx = ctx
}

func TestConsentServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsentServiceSuite))
}

func (s *ConsentServiceSuite) at(t time.Time) context.Context {
	return requestcontext.WithTime(s.ctx, t)
}

func (s *ConsentServiceSuite) TestCreate() {
	s.Run("applies the default duration when unspecified", func() {
		c, err := s.svc.Create(s.ctx, s.patient.ID, s.doctor.ID, "", 0)
		s.Require().NoError(err)
		s.Equal(s.now.Add(DefaultDurationDays*24*time.Hour), c.EndDate)
		s.Equal(models.DefaultPurpose, c.Purpose)
	})

	s.Run("rejects a negative duration", func() {
		_, err := s.svc.Create(s.ctx, s.patient.ID, id.NewDoctorID(), "", -1)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	s.Run("fails with NotFound for an unknown patient", func() {
		_, err := s.svc.Create(s.ctx, id.NewPatientID(), s.doctor.ID, "", 30)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("fails with NotFound for an unknown doctor", func() {
		_, err := s.svc.Create(s.ctx, s.patient.ID, id.NewDoctorID(), "", 30)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("second consent for the pair yields Conflict", func() {
		_, err := s.svc.Create(s.ctx, s.patient.ID, s.doctor.ID, "", 30)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("emits one audit entry per successful create", func() {
		s.Require().NotEmpty(s.audit.recorded)
		req := s.audit.recorded[0]
		s.Equal(s.actor.ID, req.UserID)
		s.Equal(s.patient.ID, req.PatientID)
		s.Equal(id.ActionCreate, req.ActionType)
		s.Equal(id.StatusSuccess, req.Status)
	})
}

func (s *ConsentServiceSuite) TestRevoke() {
	s.Run("truncates the window and survives any future activity check", func() {
		c, err := s.svc.Create(s.ctx, s.patient.ID, s.doctor.ID, "", 365)
		s.Require().NoError(err)

		revokeAt := s.now.Add(24 * time.Hour)
		revoked, err := s.svc.Revoke(s.at(revokeAt), c.ID)
		s.Require().NoError(err)
		s.Equal(models.ConsentStatusRevoked, revoked.Status)
		s.Equal(revokeAt, revoked.EndDate)

		active, err := s.svc.IsActive(s.at(revokeAt.Add(time.Hour)), s.patient.ID, s.doctor.ID)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("second revoke yields Conflict", func() {
		consents, err := s.svc.ListByPatient(s.ctx, s.patient.ID)
		s.Require().NoError(err)
		s.Require().Len(consents, 1)

		_, err = s.svc.Revoke(s.ctx, consents[0].ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("revoked pair still blocks a new consent", func() {
		_, err := s.svc.Create(s.ctx, s.patient.ID, s.doctor.ID, "", 30)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown consent yields NotFound", func() {
		_, err := s.svc.Revoke(s.ctx, id.NewConsentID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ConsentServiceSuite) TestIsActive() {
	s.Run("30-day grant expires on day 31", func() {
		_, err := s.svc.Create(s.ctx, s.patient.ID, s.doctor.ID, "", 30)
		s.Require().NoError(err)

		active, err := s.svc.IsActive(s.ctx, s.patient.ID, s.doctor.ID)
		s.Require().NoError(err)
		s.True(active)

		s.cache.Invalidate(s.ctx, s.patient.ID, s.doctor.ID)
		active, err = s.svc.IsActive(s.at(s.now.Add(31*24*time.Hour)), s.patient.ID, s.doctor.ID)
		s.Require().NoError(err)
		s.False(active)
	})

	s.Run("answers from the cache on a repeat check", func() {
		active, err := s.svc.IsActive(s.ctx, s.patient.ID, s.doctor.ID)
		s.Require().NoError(err)
		s.False(active)

		before := s.cache.hits
		_, err = s.svc.IsActive(s.ctx, s.patient.ID, s.doctor.ID)
		s.Require().NoError(err)
		s.Equal(before+1, s.cache.hits)
	})

	s.Run("unknown pair is simply inactive", func() {
		active, err := s.svc.IsActive(s.ctx, id.NewPatientID(), id.NewDoctorID())
		s.Require().NoError(err)
		s.False(active)
	})
}

func (s *ConsentServiceSuite) TestListing() {
	s.Run("unknown patient yields NotFound", func() {
		_, err := s.svc.ListByPatient(s.ctx, id.NewPatientID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("active listing filters by the request-scoped now", func() {
		_, err := s.svc.Create(s.ctx, s.patient.ID, s.doctor.ID, "", 30)
		s.Require().NoError(err)

		active, err := s.svc.ListActiveForPatient(s.ctx, s.patient.ID)
		s.Require().NoError(err)
		s.Len(active, 1)

		active, err = s.svc.ListActiveForPatient(s.at(s.now.Add(31*24*time.Hour)), s.patient.ID)
		s.Require().NoError(err)
		s.Empty(active)
	})
}
