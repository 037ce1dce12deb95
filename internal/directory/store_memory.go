package directory

import (
	"context"
	"sync"

	id "healthgate/pkg/domain"
	"healthgate/pkg/platform/sentinel"
)

// InMemory is a mutex-guarded directory for tests and development.
type InMemory struct {
	mu       sync.RWMutex
	patients map[id.PatientID]*Patient
	doctors  map[id.DoctorID]*Doctor
	users    map[id.UserID]*User
}

func NewInMemory() *InMemory {
	return &InMemory{
		patients: make(map[id.PatientID]*Patient),
		doctors:  make(map[id.DoctorID]*Doctor),
		users:    make(map[id.UserID]*User),
	}
}

// AddPatient registers a patient. Test/seed helper; the engine never writes.
func (s *InMemory) AddPatient(p Patient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patients[p.ID] = &p
}

// AddDoctor registers a doctor. Test/seed helper; the engine never writes.
func (s *InMemory) AddDoctor(d Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doctors[d.ID] = &d
}

// AddUser registers a user. Test/seed helper; the engine never writes.
func (s *InMemory) AddUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *InMemory) FindPatient(_ context.Context, patientID id.PatientID) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[patientID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *InMemory) FindDoctor(_ context.Context, doctorID id.DoctorID) (*Doctor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.doctors[doctorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *d
	return &copied, nil
}

func (s *InMemory) FindUser(_ context.Context, userID id.UserID) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *u
	return &copied, nil
}
