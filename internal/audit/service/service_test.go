package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"healthgate/internal/audit/models"
	auditstore "healthgate/internal/audit/store/audit"
	"healthgate/internal/directory"
	id "healthgate/pkg/domain"
	dErrors "healthgate/pkg/domain-errors"
	"healthgate/pkg/requestcontext"
)

type AuditServiceSuite struct {
	suite.Suite
	svc     *Service
	dir     *directory.InMemory
	user    directory.User
	patient directory.Patient
	now     time.Time
	ctx     context.Context
}

func (s *AuditServiceSuite) SetupTest() {
	s.dir = directory.NewInMemory()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.user = directory.User{ID: id.NewUserID(), Username: "dr.osei", Role: id.RoleDoctor, CreatedAt: s.now}
	s.patient = directory.Patient{ID: id.NewPatientID(), FirstName: "Ama", LastName: "Mensah", CreatedAt: s.now}
	s.dir.AddUser(s.user)
	s.dir.AddPatient(s.patient)

	s.svc = New(auditstore.NewInMemory(), s.dir)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func TestAuditServiceSuite(t *testing.T) {
	suite.Run(t, new(AuditServiceSuite))
}

func (s *AuditServiceSuite) record(mutate func(*models.RecordRequest)) *models.Entry {
	req := models.RecordRequest{
		UserID:       s.user.ID,
		PatientID:    s.patient.ID,
		ActionType:   id.ActionRead,
		ResourceType: "MedicalRecord",
		ResourceID:   "42",
	}
	if mutate != nil {
		mutate(&req)
	}
	entry, err := s.svc.Record(s.ctx, req)
	s.Require().NoError(err)
	return entry
}

func (s *AuditServiceSuite) TestRecord() {
	s.Run("stamps defaults from the request context", func() {
		ctx := requestcontext.WithClientIP(s.ctx, "10.1.2.3")
		entry, err := s.svc.Record(ctx, models.RecordRequest{
			UserID:       s.user.ID,
			PatientID:    s.patient.ID,
			ActionType:   id.ActionRead,
			ResourceType: "MedicalRecord",
		})
		s.Require().NoError(err)
		s.Equal(id.StatusSuccess, entry.Status)
		s.Equal(s.now, entry.AccessTime)
		s.Equal("10.1.2.3", entry.Origin)
	})

	s.Run("honors an explicit access time", func() {
		backdated := s.now.Add(-time.Hour)
		entry := s.record(func(r *models.RecordRequest) { r.AccessTime = backdated })
		s.Equal(backdated, entry.AccessTime)
	})

	s.Run("refuses a dangling actor reference", func() {
		_, err := s.svc.Record(s.ctx, models.RecordRequest{
			UserID:       id.NewUserID(),
			PatientID:    s.patient.ID,
			ActionType:   id.ActionRead,
			ResourceType: "MedicalRecord",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("refuses a dangling patient reference", func() {
		_, err := s.svc.Record(s.ctx, models.RecordRequest{
			UserID:       s.user.ID,
			PatientID:    id.NewPatientID(),
			ActionType:   id.ActionRead,
			ResourceType: "MedicalRecord",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		entries, listErr := s.svc.ListByUser(s.ctx, s.user.ID)
		s.Require().NoError(listErr)
		s.Empty(entries, "no partial record may be written")
	})

	s.Run("rejects a missing resource type", func() {
		_, err := s.svc.Record(s.ctx, models.RecordRequest{
			UserID:     s.user.ID,
			PatientID:  s.patient.ID,
			ActionType: id.ActionRead,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuditServiceSuite) TestQueries() {
	first := s.record(nil)
	second := s.record(func(r *models.RecordRequest) {
		r.ActionType = id.ActionDecide
		r.Status = id.StatusDenied
		r.AccessTime = s.now.Add(time.Hour)
	})

	s.Run("get returns the entry", func() {
		entry, err := s.svc.Get(s.ctx, first.ID)
		s.Require().NoError(err)
		s.Equal(first.ID, entry.ID)
	})

	s.Run("get unknown entry yields NotFound", func() {
		_, err := s.svc.Get(s.ctx, id.NewEntryID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("list by user requires the user to exist", func() {
		_, err := s.svc.ListByUser(s.ctx, id.NewUserID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

		entries, err := s.svc.ListByUser(s.ctx, s.user.ID)
		s.Require().NoError(err)
		s.Len(entries, 2)
	})

	s.Run("list by resource requires a resource type", func() {
		_, err := s.svc.ListByResource(s.ctx, "", "42")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("time range is inclusive and ordered by creation", func() {
		entries, err := s.svc.ListByTimeRange(s.ctx, s.now, s.now.Add(time.Hour))
		s.Require().NoError(err)
		s.Require().Len(entries, 2)
		s.Equal(first.ID, entries[0].ID)
		s.Equal(second.ID, entries[1].ID)
	})

	s.Run("inverted time range is rejected", func() {
		_, err := s.svc.ListByTimeRange(s.ctx, s.now.Add(time.Hour), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuditServiceSuite) TestCorrections() {
	s.Run("update status is the one permitted mutation", func() {
		entry := s.record(nil)
		updated, err := s.svc.UpdateStatus(s.ctx, entry.ID, id.StatusFailure)
		s.Require().NoError(err)
		s.Equal(id.StatusFailure, updated.Status)
		s.Equal(entry.AccessTime, updated.AccessTime)
	})

	s.Run("update status on unknown entry yields NotFound", func() {
		_, err := s.svc.UpdateStatus(s.ctx, id.NewEntryID(), id.StatusFailure)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("delete purges the entry", func() {
		entry := s.record(nil)
		s.Require().NoError(s.svc.Delete(s.ctx, entry.ID))
		_, err := s.svc.Get(s.ctx, entry.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("delete on unknown entry yields NotFound", func() {
		err := s.svc.Delete(s.ctx, id.NewEntryID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
