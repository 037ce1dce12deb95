package audit

import (
	"context"
	"sync"
	"time"

	"healthgate/internal/audit/models"
	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded audit store for tests and development.
// Entries are held in creation order, which is the order every query
// returns.
type InMemory struct {
	mu      sync.RWMutex
	byID    map[id.EntryID]*models.Entry
	ordered []id.EntryID
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.EntryID]*models.Entry)}
}

func (s *InMemory) Append(_ context.Context, e *models.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *e
	s.byID[e.ID] = &stored
	s.ordered = append(s.ordered, e.ID)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, entryID id.EntryID) (*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *InMemory) list(match func(*models.Entry) bool) []*models.Entry {
	var out []*models.Entry
	for _, eid := range s.ordered {
		e := s.byID[eid]
		if e == nil || !match(e) {
			continue
		}
		copied := *e
		out = append(out, &copied)
	}
	return out
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(e *models.Entry) bool { return e.UserID == userID }), nil
}

func (s *InMemory) ListByPatient(_ context.Context, patientID id.PatientID) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(e *models.Entry) bool { return e.PatientID == patientID }), nil
}

// ListByResource matches on the structured resource identity, never on
// substrings of Details.
func (s *InMemory) ListByResource(_ context.Context, resourceType, resourceID string) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(e *models.Entry) bool {
		return e.ResourceType == resourceType && e.ResourceID == resourceID
	}), nil
}

func (s *InMemory) ListByActionType(_ context.Context, action id.ActionType) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(e *models.Entry) bool { return e.ActionType == action }), nil
}

// ListByTimeRange returns entries with start <= AccessTime <= end.
func (s *InMemory) ListByTimeRange(_ context.Context, start, end time.Time) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(e *models.Entry) bool {
		return !e.AccessTime.Before(start) && !e.AccessTime.After(end)
	}), nil
}

func (s *InMemory) ListAll(_ context.Context) ([]*models.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.list(func(*models.Entry) bool { return true }), nil
}

// UpdateStatus is the one permitted post-write mutation.
func (s *InMemory) UpdateStatus(_ context.Context, entryID id.EntryID, status id.EntryStatus) (*models.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[entryID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	e.Status = status
	copied := *e
	return &copied, nil
}

// Delete removes an entry. Administrative purge only; not part of the
// audit-integrity guarantee.
func (s *InMemory) Delete(_ context.Context, entryID id.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[entryID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, entryID)
	for i, eid := range s.ordered {
		if eid == entryID {
			s.ordered = append(s.ordered[:i], s.ordered[i+1:]...)
			break
		}
	}
	return nil
}
