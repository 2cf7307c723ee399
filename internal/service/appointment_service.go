package service

import (
	"context"
	"errors"
	"fmt"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
)

// AppointmentInput is the admin booking form; both ids are user ids
type AppointmentInput struct {
	DoctorID    uint   `json:"doctor_id" form:"doctor_id" binding:"required"`
	PatientID   uint   `json:"patient_id" form:"patient_id" binding:"required"`
	Description string `json:"description" form:"description" binding:"required,max=500"`
}

// BookingInput is the patient booking form
type BookingInput struct {
	DoctorID    uint   `json:"doctor_id" form:"doctor_id" binding:"required"`
	Description string `json:"description" form:"description" binding:"required,max=500"`
}

// AppointmentService handles requested -> confirmed | cancelled
type AppointmentService struct {
	store    repository.Store
	recorder TransitionRecorder
}

func NewAppointmentService(store repository.Store, recorder TransitionRecorder) *AppointmentService {
	return &AppointmentService{
		store:    store,
		recorder: recorderOrNop(recorder),
	}
}

// CreateByAdmin books a confirmed appointment between an approved doctor and an approved patient
func (s *AppointmentService) CreateByAdmin(ctx context.Context, actor Principal, in AppointmentInput) (*models.Appointment, error) {
	var appointment *models.Appointment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		doctor, err := approvedDoctorUser(ctx, tx, in.DoctorID)
		if err != nil {
			return err
		}

		patient, err := tx.Patients().GetByUserID(ctx, in.PatientID)
		if errors.Is(err, repository.ErrNotFound) || (err == nil && !patient.Approved) {
			return newValidationError("patient_id", "must be an approved patient")
		}
		if err != nil {
			return fmt.Errorf("failed to load patient: %w", err)
		}

		appointment = &models.Appointment{
			DoctorID:    in.DoctorID,
			PatientID:   in.PatientID,
			DoctorName:  doctor.FirstName,
			PatientName: patient.User.FirstName,
			Description: in.Description,
			Approved:    true,
		}
		if err := tx.Appointments().Create(ctx, appointment); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "appointment_create",
			fmt.Sprintf("Booked appointment %d for doctor %d and patient %d", appointment.ID, in.DoctorID, in.PatientID))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("appointment", "create")
	return appointment, nil
}

// BookByPatient requests an appointment with an approved doctor; it starts unconfirmed
func (s *AppointmentService) BookByPatient(ctx context.Context, patient Principal, in BookingInput) (*models.Appointment, error) {
	var appointment *models.Appointment
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		doctor, err := approvedDoctorUser(ctx, tx, in.DoctorID)
		if err != nil {
			return err
		}

		user, err := tx.Users().GetByID(ctx, patient.UserID)
		if err != nil {
			return notFound(err, "user", patient.UserID)
		}

		appointment = &models.Appointment{
			DoctorID:    in.DoctorID,
			PatientID:   patient.UserID,
			DoctorName:  doctor.FirstName,
			PatientName: user.FirstName,
			Description: in.Description,
			Approved:    false,
		}
		if err := tx.Appointments().Create(ctx, appointment); err != nil {
			return fmt.Errorf("failed to create appointment: %w", err)
		}
		return writeAudit(ctx, tx, patient.UserID, "appointment_request",
			fmt.Sprintf("Requested appointment %d with doctor %d", appointment.ID, in.DoctorID))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("appointment", "request")
	return appointment, nil
}

// Approve confirms a requested appointment. Confirming twice is a no-op.
func (s *AppointmentService) Approve(ctx context.Context, actor Principal, appointmentID uint) error {
	changed := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		appointment, err := tx.Appointments().GetByID(ctx, appointmentID)
		if err != nil {
			return notFound(err, "appointment", appointmentID)
		}
		if appointment.Approved {
			return nil
		}
		if err := tx.Appointments().SetApproved(ctx, appointmentID); err != nil {
			return fmt.Errorf("failed to approve appointment: %w", err)
		}
		changed = true
		return writeAudit(ctx, tx, actor.UserID, "appointment_approve",
			fmt.Sprintf("Approved appointment %d", appointmentID))
	})
	if err != nil {
		return err
	}
	if changed {
		s.recorder.RecordTransition("appointment", "approve")
	}
	return nil
}

// Reject deletes an appointment in any state
func (s *AppointmentService) Reject(ctx context.Context, actor Principal, appointmentID uint) error {
	return s.remove(ctx, actor, appointmentID, false)
}

// DeleteForDoctor deletes one of the acting doctor's appointments.
// Appointments of other doctors are reported as not found.
func (s *AppointmentService) DeleteForDoctor(ctx context.Context, doctor Principal, appointmentID uint) error {
	return s.remove(ctx, doctor, appointmentID, true)
}

func (s *AppointmentService) remove(ctx context.Context, actor Principal, appointmentID uint, ownOnly bool) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		appointment, err := tx.Appointments().GetByID(ctx, appointmentID)
		if err != nil {
			return notFound(err, "appointment", appointmentID)
		}
		if ownOnly && appointment.DoctorID != actor.UserID {
			return &NotFoundError{Entity: "appointment", ID: appointmentID}
		}
		if err := tx.Appointments().Delete(ctx, appointmentID); err != nil {
			return fmt.Errorf("failed to delete appointment: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "appointment_reject",
			fmt.Sprintf("Removed appointment %d", appointmentID))
	})
	if err != nil {
		return err
	}
	s.recorder.RecordTransition("appointment", "reject")
	return nil
}

// Confirmed lists every confirmed appointment
func (s *AppointmentService) Confirmed(ctx context.Context) ([]models.Appointment, error) {
	return s.list(ctx, repository.AppointmentFilter{Approved: repository.Bool(true)})
}

// Pending lists every appointment waiting for admin approval
func (s *AppointmentService) Pending(ctx context.Context) ([]models.Appointment, error) {
	return s.list(ctx, repository.AppointmentFilter{Approved: repository.Bool(false)})
}

// ForDoctor lists the acting doctor's confirmed appointments, newest first
func (s *AppointmentService) ForDoctor(ctx context.Context, doctor Principal) ([]models.Appointment, error) {
	return s.list(ctx, repository.AppointmentFilter{
		Approved: repository.Bool(true),
		DoctorID: doctor.UserID,
		Newest:   true,
	})
}

// ForPatient lists all of the acting patient's appointments
func (s *AppointmentService) ForPatient(ctx context.Context, patient Principal) ([]models.Appointment, error) {
	return s.list(ctx, repository.AppointmentFilter{PatientID: patient.UserID})
}

func (s *AppointmentService) list(ctx context.Context, filter repository.AppointmentFilter) ([]models.Appointment, error) {
	appointments, err := s.store.Appointments().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// approvedDoctorUser returns the user of an approved doctor or a ValidationError on doctor_id
func approvedDoctorUser(ctx context.Context, store repository.Store, doctorUserID uint) (*models.User, error) {
	doctor, err := store.Doctors().GetByUserID(ctx, doctorUserID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && !doctor.Approved) {
		return nil, newValidationError("doctor_id", "must be an approved doctor")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load doctor: %w", err)
	}
	return &doctor.User, nil
}
