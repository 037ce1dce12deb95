package directory

import (
	"time"

	id "healthgate/pkg/domain"
)

// SeedDevelopment populates an in-memory directory with a small cast for
// local runs: one admin, one doctor, and two patients.
func SeedDevelopment(dir *InMemory) (admin User, doctor Doctor, patients []Patient) {
	now := time.Now()

	admin = User{ID: id.NewUserID(), Username: "admin", Role: id.RoleAdmin, CreatedAt: now}
	dir.AddUser(admin)

	doctor = Doctor{ID: id.NewDoctorID(), FirstName: "Grace", LastName: "Osei", Specialization: "Cardiology", CreatedAt: now}
	dir.AddDoctor(doctor)
	dir.AddUser(User{ID: id.UserID(doctor.ID), Username: "g.osei", Role: id.RoleDoctor, CreatedAt: now})

	patients = []Patient{
		{ID: id.NewPatientID(), FirstName: "Maya", LastName: "Lindqvist", CreatedAt: now},
		{ID: id.NewPatientID(), FirstName: "Tomas", LastName: "Bergman", CreatedAt: now},
	}
	for _, p := range patients {
		dir.AddPatient(p)
	}
	return admin, doctor, patients
}
