package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
	"hospital-portal/pkg/utils"
)

// AccountInput is the identity part of every signup form
type AccountInput struct {
	Username  string `json:"username" form:"username" binding:"required,min=3,max=50"`
	Password  string `json:"password" form:"password" binding:"required,min=6,max=72"`
	FirstName string `json:"first_name" form:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" form:"last_name" binding:"max=100"`
}

// DoctorInput is the doctor signup and admin add-doctor form
type DoctorInput struct {
	AccountInput
	Department string `json:"department" form:"department" binding:"required,max=100"`
	Mobile     string `json:"mobile" form:"mobile" binding:"required,max=20"`
	Address    string `json:"address" form:"address" binding:"required,max=255"`
}

// PatientInput is the patient signup and admin add-patient form
type PatientInput struct {
	AccountInput
	AssignedDoctorID uint   `json:"assigned_doctor_id" form:"assigned_doctor_id" binding:"required"`
	Symptoms         string `json:"symptoms" form:"symptoms" binding:"required,max=255"`
	Mobile           string `json:"mobile" form:"mobile" binding:"required,max=20"`
	Address          string `json:"address" form:"address" binding:"required,max=255"`
}

// ProfileUpdate carries the identity fields an admin may change; an empty password keeps the old one
type ProfileUpdate struct {
	Username  string `json:"username" form:"username" binding:"required,min=3,max=50"`
	Password  string `json:"password" form:"password" binding:"omitempty,min=6,max=72"`
	FirstName string `json:"first_name" form:"first_name" binding:"required,max=100"`
	LastName  string `json:"last_name" form:"last_name" binding:"max=100"`
}

type DoctorUpdate struct {
	ProfileUpdate
	Department string `json:"department" form:"department" binding:"required,max=100"`
	Mobile     string `json:"mobile" form:"mobile" binding:"required,max=20"`
	Address    string `json:"address" form:"address" binding:"required,max=255"`
}

type PatientUpdate struct {
	ProfileUpdate
	AssignedDoctorID uint   `json:"assigned_doctor_id" form:"assigned_doctor_id" binding:"required"`
	Symptoms         string `json:"symptoms" form:"symptoms" binding:"required,max=255"`
	Mobile           string `json:"mobile" form:"mobile" binding:"required,max=20"`
	Address          string `json:"address" form:"address" binding:"required,max=255"`
}

func createUser(ctx context.Context, tx repository.Store, in AccountInput, role string) (*models.User, error) {
	if _, err := tx.Users().GetByUsername(ctx, in.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     in.Username,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         role,
	}
	if err := tx.Users().Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func createDoctor(ctx context.Context, tx repository.Store, in DoctorInput, approved bool) (*models.Doctor, error) {
	user, err := createUser(ctx, tx, in.AccountInput, models.RoleDoctor)
	if err != nil {
		return nil, err
	}

	doctor := &models.Doctor{
		UserID:     user.ID,
		Department: in.Department,
		Mobile:     in.Mobile,
		Address:    in.Address,
		Approved:   approved,
	}
	if err := tx.Doctors().Create(ctx, doctor); err != nil {
		return nil, fmt.Errorf("failed to create doctor: %w", err)
	}
	doctor.User = *user
	return doctor, nil
}

func createPatient(ctx context.Context, tx repository.Store, in PatientInput, approved bool, admitted time.Time) (*models.Patient, error) {
	if err := requireApprovedDoctor(ctx, tx, in.AssignedDoctorID); err != nil {
		return nil, err
	}

	user, err := createUser(ctx, tx, in.AccountInput, models.RolePatient)
	if err != nil {
		return nil, err
	}

	patient := &models.Patient{
		UserID:           user.ID,
		AssignedDoctorID: in.AssignedDoctorID,
		Symptoms:         in.Symptoms,
		Mobile:           in.Mobile,
		Address:          in.Address,
		AdmitDate:        dateOnly(admitted),
		Approved:         approved,
	}
	if err := tx.Patients().Create(ctx, patient); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}
	patient.User = *user
	return patient, nil
}

// requireApprovedDoctor checks that a doctor user id can be assigned to a patient
func requireApprovedDoctor(ctx context.Context, store repository.Store, doctorUserID uint) error {
	doctor, err := store.Doctors().GetByUserID(ctx, doctorUserID)
	if errors.Is(err, repository.ErrNotFound) {
		return newValidationError("assigned_doctor_id", "must be an approved doctor")
	}
	if err != nil {
		return fmt.Errorf("failed to load assigned doctor: %w", err)
	}
	if !doctor.Approved {
		return newValidationError("assigned_doctor_id", "must be an approved doctor")
	}
	return nil
}

// applyProfileUpdate copies identity fields onto user, rehashing the password when one is given
func applyProfileUpdate(ctx context.Context, tx repository.Store, user *models.User, in ProfileUpdate) error {
	if in.Username != user.Username {
		if _, err := tx.Users().GetByUsername(ctx, in.Username); err == nil {
			return ErrUsernameTaken
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to check username: %w", err)
		}
	}

	user.Username = in.Username
	user.FirstName = in.FirstName
	user.LastName = in.LastName
	if in.Password != "" {
		hash, err := utils.HashPassword(in.Password)
		if err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := tx.Users().Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}
