package consent

import (
	"context"
	"sync"

	"healthgate/internal/consent/models"
	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
)

type pairKey struct {
	patient id.PatientID
	doctor  id.DoctorID
}

// InMemory is a mutex-guarded consent store for tests and development.
// The single lock makes check-then-insert atomic, so concurrent creates for
// the same (patient, doctor) pair see exactly one success.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.ConsentID]*models.Consent
	byPair  map[pairKey]id.ConsentID
	ordered []id.ConsentID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:   make(map[id.ConsentID]*models.Consent),
		byPair: make(map[pairKey]id.ConsentID),
	}
}

// CreateIfPairAvailable inserts the consent unless any record (regardless of
// status) already exists for its (patient, doctor) pair.
func (s *InMemory) CreateIfPairAvailable(_ context.Context, c *models.Consent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := pairKey{patient: c.PatientID, doctor: c.DoctorID}
	if _, exists := s.byPair[key]; exists {
		return sentinel.ErrConflict
	}

	stored := *c
	s.byID[c.ID] = &stored
	s.byPair[key] = c.ID
	s.ordered = append(s.ordered, c.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, consentID id.ConsentID) (*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.byID[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *c
	return &copied, nil
}

// ListByPatient returns the patient's consents in creation order.
func (s *InMemory) ListByPatient(_ context.Context, patientID id.PatientID) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Consent
	for _, cid := range s.ordered {
		c := s.byID[cid]
		if c.PatientID == patientID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

// ListByPair returns all consents for a (patient, doctor) pair in creation order.
func (s *InMemory) ListByPair(_ context.Context, patientID id.PatientID, doctorID id.DoctorID) ([]*models.Consent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Consent
	for _, cid := range s.ordered {
		c := s.byID[cid]
		if c.PatientID == patientID && c.DoctorID == doctorID {
			copied := *c
			out = append(out, &copied)
		}
	}
	return out, nil
}

// Execute atomically validates and mutates the consent with the given ID,
// holding the store lock for the full validate-then-mutate sequence.
func (s *InMemory) Execute(_ context.Context, consentID id.ConsentID, validate func(*models.Consent) error, mutate func(*models.Consent)) (*models.Consent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.byID[consentID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	mutate(c)
	copied := *c
	return &copied, nil
}
