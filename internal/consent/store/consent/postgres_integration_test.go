//go:build integration

package consent_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"healthgate/internal/consent/models"
	consent "healthgate/internal/consent/store/consent"
	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
	"healthgate/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	store *consent.PostgresStore
	pg    *containers.PostgresContainer
	ctx   context.Context
	now   time.Time
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.pg = containers.GetManager().GetPostgres(s.T())
	s.store = consent.NewPostgres(s.pg.DB)
	s.ctx = context.Background()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.pg.TruncateTables(s.ctx, "consents"))
}

func TestPostgresStoreSuite(t *testing.T) {
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) newConsent(patientID id.PatientID, doctorID id.DoctorID) *models.Consent {
	c, err := models.NewConsent(id.NewConsentID(), patientID, doctorID, "", 30*24*time.Hour, s.now)
	s.Require().NoError(err)
	return c
}

func (s *PostgresStoreSuite) TestCreateAndFind() {
	s.Run("round-trips a consent", func() {
		c := s.newConsent(id.NewPatientID(), id.NewDoctorID())
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.PatientID, found.PatientID)
		s.Equal(c.DoctorID, found.DoctorID)
		s.True(c.EndDate.Equal(found.EndDate))
		s.Nil(found.RevokedAt)
	})

	s.Run("unknown consent yields ErrNotFound", func() {
		_, err := s.store.FindByID(s.ctx, id.NewConsentID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *PostgresStoreSuite) TestPairUniqueness() {
	patientID := id.NewPatientID()
	doctorID := id.NewDoctorID()
	s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, doctorID)))

	s.Run("a second record for the pair conflicts", func() {
		err := s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, doctorID))
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("a different doctor is unaffected", func() {
		s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, s.newConsent(patientID, id.NewDoctorID())))
	})
}

func (s *PostgresStoreSuite) TestConcurrentPairCreation() {
	patientID := id.NewPatientID()
	doctorID := id.NewDoctorID()

	const attempts = 20
	var created, conflicted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := models.NewConsent(id.NewConsentID(), patientID, doctorID, "", 24*time.Hour, s.now)
			if err != nil {
				return
			}
			switch err := s.store.CreateIfPairAvailable(s.ctx, c); {
			case err == nil:
				created.Add(1)
			case errors.Is(err, sentinel.ErrConflict):
				conflicted.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), created.Load(), "the unique constraint must admit exactly one record")
	s.Equal(int32(attempts-1), conflicted.Load())
}

func (s *PostgresStoreSuite) TestListing() {
	patientID := id.NewPatientID()
	first := s.newConsent(patientID, id.NewDoctorID())
	second := s.newConsent(patientID, id.NewDoctorID())
	second.CreatedAt = s.now.Add(time.Second)
	s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, first))
	s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, second))

	s.Run("by patient in creation order", func() {
		consents, err := s.store.ListByPatient(s.ctx, patientID)
		s.Require().NoError(err)
		s.Require().Len(consents, 2)
		s.Equal(first.ID, consents[0].ID)
		s.Equal(second.ID, consents[1].ID)
	})

	s.Run("by pair", func() {
		consents, err := s.store.ListByPair(s.ctx, patientID, first.DoctorID)
		s.Require().NoError(err)
		s.Require().Len(consents, 1)
		s.Equal(first.ID, consents[0].ID)
	})
}

func (s *PostgresStoreSuite) TestExecute() {
	c := s.newConsent(id.NewPatientID(), id.NewDoctorID())
	s.Require().NoError(s.store.CreateIfPairAvailable(s.ctx, c))
	revokedAt := s.now.Add(time.Hour)

	s.Run("persists a revocation", func() {
		updated, err := s.store.Execute(s.ctx, c.ID,
			func(c *models.Consent) error { return c.CanRevoke() },
			func(c *models.Consent) { c.ApplyRevocation(revokedAt) },
		)
		s.Require().NoError(err)
		s.Require().NotNil(updated.RevokedAt)
		s.True(updated.EndDate.Equal(revokedAt))

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.True(found.EndDate.Equal(revokedAt))
	})

	s.Run("a failed validation leaves the row untouched", func() {
		_, err := s.store.Execute(s.ctx, c.ID,
			func(c *models.Consent) error { return c.CanRevoke() },
			func(c *models.Consent) { c.ApplyRevocation(s.now.Add(2 * time.Hour)) },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, c.ID)
		s.Require().NoError(err)
		s.True(found.EndDate.Equal(revokedAt), "the first revocation timestamp must stand")
	})

	s.Run("unknown consent yields ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, id.NewConsentID(),
			func(*models.Consent) error { return nil },
			func(*models.Consent) {},
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}
