package service

import (
	"context"
	"fmt"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
)

// ApprovalService moves doctor and patient accounts from pending to approved,
// or removes them together with their user.
type ApprovalService struct {
	store    repository.Store
	recorder TransitionRecorder
	now      func() time.Time
}

func NewApprovalService(store repository.Store, recorder TransitionRecorder) *ApprovalService {
	return &ApprovalService{
		store:    store,
		recorder: recorderOrNop(recorder),
		now:      time.Now,
	}
}

// ApproveDoctor approves a pending doctor. Approving twice is a no-op.
func (s *ApprovalService) ApproveDoctor(ctx context.Context, actor Principal, doctorID uint) error {
	changed := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		doctor, err := tx.Doctors().GetByID(ctx, doctorID)
		if err != nil {
			return notFound(err, "doctor", doctorID)
		}
		if doctor.Approved {
			return nil
		}
		if err := tx.Doctors().SetApproved(ctx, doctorID); err != nil {
			return fmt.Errorf("failed to approve doctor: %w", err)
		}
		changed = true
		return writeAudit(ctx, tx, actor.UserID, "doctor_approve",
			fmt.Sprintf("Approved doctor %d (%s)", doctorID, doctor.User.Username))
	})
	if err != nil {
		return err
	}
	if changed {
		s.recorder.RecordTransition("doctor", "approve")
	}
	return nil
}

// RejectDoctor deletes a doctor and its user in one transaction
func (s *ApprovalService) RejectDoctor(ctx context.Context, actor Principal, doctorID uint) error {
	return s.removeDoctor(ctx, actor, doctorID, "reject")
}

// DeleteDoctor removes a doctor from the hospital, the same way a rejection does
func (s *ApprovalService) DeleteDoctor(ctx context.Context, actor Principal, doctorID uint) error {
	return s.removeDoctor(ctx, actor, doctorID, "delete")
}

func (s *ApprovalService) removeDoctor(ctx context.Context, actor Principal, doctorID uint, action string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		doctor, err := tx.Doctors().GetByID(ctx, doctorID)
		if err != nil {
			return notFound(err, "doctor", doctorID)
		}
		if err := tx.Doctors().Delete(ctx, doctorID); err != nil {
			return fmt.Errorf("failed to delete doctor: %w", err)
		}
		if err := tx.Users().Delete(ctx, doctor.UserID); err != nil {
			return fmt.Errorf("failed to delete doctor user: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "doctor_"+action,
			fmt.Sprintf("Removed doctor %d (%s)", doctorID, doctor.User.Username))
	})
	if err != nil {
		return err
	}
	s.recorder.RecordTransition("doctor", action)
	return nil
}

// ApprovePatient approves a pending patient. Approving twice is a no-op.
func (s *ApprovalService) ApprovePatient(ctx context.Context, actor Principal, patientID uint) error {
	changed := false
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		patient, err := tx.Patients().GetByID(ctx, patientID)
		if err != nil {
			return notFound(err, "patient", patientID)
		}
		if patient.Approved {
			return nil
		}
		if err := tx.Patients().SetApproved(ctx, patientID); err != nil {
			return fmt.Errorf("failed to approve patient: %w", err)
		}
		changed = true
		return writeAudit(ctx, tx, actor.UserID, "patient_approve",
			fmt.Sprintf("Approved patient %d (%s)", patientID, patient.User.Username))
	})
	if err != nil {
		return err
	}
	if changed {
		s.recorder.RecordTransition("patient", "approve")
	}
	return nil
}

// RejectPatient deletes a patient and its user in one transaction
func (s *ApprovalService) RejectPatient(ctx context.Context, actor Principal, patientID uint) error {
	return s.removePatient(ctx, actor, patientID, "reject")
}

// DeletePatient removes a patient from the hospital, the same way a rejection does
func (s *ApprovalService) DeletePatient(ctx context.Context, actor Principal, patientID uint) error {
	return s.removePatient(ctx, actor, patientID, "delete")
}

func (s *ApprovalService) removePatient(ctx context.Context, actor Principal, patientID uint, action string) error {
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		patient, err := tx.Patients().GetByID(ctx, patientID)
		if err != nil {
			return notFound(err, "patient", patientID)
		}
		if err := tx.Patients().Delete(ctx, patientID); err != nil {
			return fmt.Errorf("failed to delete patient: %w", err)
		}
		if err := tx.Users().Delete(ctx, patient.UserID); err != nil {
			return fmt.Errorf("failed to delete patient user: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "patient_"+action,
			fmt.Sprintf("Removed patient %d (%s)", patientID, patient.User.Username))
	})
	if err != nil {
		return err
	}
	s.recorder.RecordTransition("patient", action)
	return nil
}

// AddDoctor creates an already approved doctor on behalf of an admin
func (s *ApprovalService) AddDoctor(ctx context.Context, actor Principal, in DoctorInput) (*models.Doctor, error) {
	var doctor *models.Doctor
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		doctor, err = createDoctor(ctx, tx, in, true)
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, actor.UserID, "doctor_add",
			fmt.Sprintf("Added doctor %d (%s)", doctor.ID, doctor.User.Username))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("doctor", "add")
	return doctor, nil
}

// UpdateDoctor rewrites a doctor's profile and identity; the account ends up approved
func (s *ApprovalService) UpdateDoctor(ctx context.Context, actor Principal, doctorID uint, in DoctorUpdate) (*models.Doctor, error) {
	var doctor *models.Doctor
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		doctor, err = tx.Doctors().GetByID(ctx, doctorID)
		if err != nil {
			return notFound(err, "doctor", doctorID)
		}
		if err := applyProfileUpdate(ctx, tx, &doctor.User, in.ProfileUpdate); err != nil {
			return err
		}

		doctor.Department = in.Department
		doctor.Mobile = in.Mobile
		doctor.Address = in.Address
		doctor.Approved = true
		if err := tx.Doctors().Update(ctx, doctor); err != nil {
			return fmt.Errorf("failed to update doctor: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "doctor_update",
			fmt.Sprintf("Updated doctor %d (%s)", doctorID, doctor.User.Username))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("doctor", "update")
	return doctor, nil
}

// AddPatient creates an already approved patient admitted today
func (s *ApprovalService) AddPatient(ctx context.Context, actor Principal, in PatientInput) (*models.Patient, error) {
	var patient *models.Patient
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		patient, err = createPatient(ctx, tx, in, true, s.now())
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, actor.UserID, "patient_add",
			fmt.Sprintf("Added patient %d (%s)", patient.ID, patient.User.Username))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("patient", "add")
	return patient, nil
}

// UpdatePatient rewrites a patient's profile and identity; the account ends up approved
func (s *ApprovalService) UpdatePatient(ctx context.Context, actor Principal, patientID uint, in PatientUpdate) (*models.Patient, error) {
	var patient *models.Patient
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		patient, err = tx.Patients().GetByID(ctx, patientID)
		if err != nil {
			return notFound(err, "patient", patientID)
		}
		if err := requireApprovedDoctor(ctx, tx, in.AssignedDoctorID); err != nil {
			return err
		}
		if err := applyProfileUpdate(ctx, tx, &patient.User, in.ProfileUpdate); err != nil {
			return err
		}

		patient.AssignedDoctorID = in.AssignedDoctorID
		patient.Symptoms = in.Symptoms
		patient.Mobile = in.Mobile
		patient.Address = in.Address
		patient.Approved = true
		if err := tx.Patients().Update(ctx, patient); err != nil {
			return fmt.Errorf("failed to update patient: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "patient_update",
			fmt.Sprintf("Updated patient %d (%s)", patientID, patient.User.Username))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("patient", "update")
	return patient, nil
}

// Doctors lists doctors by approval state, newest first
func (s *ApprovalService) Doctors(ctx context.Context, approved bool) ([]models.Doctor, error) {
	doctors, err := s.store.Doctors().List(ctx, repository.DoctorFilter{Approved: repository.Bool(approved), Newest: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	return doctors, nil
}

// Patients lists patients by approval state, newest first
func (s *ApprovalService) Patients(ctx context.Context, approved bool) ([]models.Patient, error) {
	patients, err := s.store.Patients().List(ctx, repository.PatientFilter{Approved: repository.Bool(approved), Newest: true})
	if err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}
