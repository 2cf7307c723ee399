package service

import (
	"context"
	"fmt"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
)

// Principal is the acting user as every workflow operation sees it.
type Principal struct {
	UserID   uint   `json:"user_id"`
	Role     string `json:"role"`
	Approved bool   `json:"approved"`
}

// Destinations returned by AfterLogin
const (
	DestAdminDashboard   = "/admin/dashboard"
	DestDoctorDashboard  = "/doctor/dashboard"
	DestPatientDashboard = "/patient/dashboard"
	DestDoctorWait       = "/doctor/wait-approval"
	DestPatientWait      = "/patient/wait-approval"
)

// LoginPath returns the login page for a role
func LoginPath(role string) string {
	return "/" + role + "/login"
}

type IdentityService struct {
	store repository.Store
}

func NewIdentityService(store repository.Store) *IdentityService {
	return &IdentityService{store: store}
}

// Resolve maps an authenticated user id and role to a Principal with its approval state
func (s *IdentityService) Resolve(ctx context.Context, userID uint, role string) (Principal, error) {
	p := Principal{UserID: userID, Role: role}

	switch role {
	case models.RoleAdmin:
		p.Approved = true
	case models.RoleDoctor:
		doctor, err := s.store.Doctors().GetByUserID(ctx, userID)
		if err != nil {
			return Principal{}, notFound(err, "doctor", userID)
		}
		p.Approved = doctor.Approved
	case models.RolePatient:
		patient, err := s.store.Patients().GetByUserID(ctx, userID)
		if err != nil {
			return Principal{}, notFound(err, "patient", userID)
		}
		p.Approved = patient.Approved
	default:
		return Principal{}, fmt.Errorf("unknown role %q", role)
	}

	return p, nil
}

// AfterLogin picks where a freshly logged-in principal should land
func AfterLogin(p Principal) string {
	switch p.Role {
	case models.RoleAdmin:
		return DestAdminDashboard
	case models.RoleDoctor:
		if p.Approved {
			return DestDoctorDashboard
		}
		return DestDoctorWait
	case models.RolePatient:
		if p.Approved {
			return DestPatientDashboard
		}
		return DestPatientWait
	}
	return "/"
}
