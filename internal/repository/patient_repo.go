package repository

import (
	"context"
	"errors"
	"fmt"

	"hospital-portal/internal/models"

	"gorm.io/gorm"
)

type PatientRepository struct {
	db *gorm.DB
}

func NewPatientRepo(db *gorm.DB) *PatientRepository {
	return &PatientRepository{db: db}
}

// Create creates a new patient profile
func (r *PatientRepository) Create(ctx context.Context, patient *models.Patient) error {
	return r.db.WithContext(ctx).Omit("User").Create(patient).Error
}

// GetByID retrieves a patient with its user
func (r *PatientRepository) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("patient %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &patient, nil
}

// GetByUserID retrieves the patient profile owned by a user
func (r *PatientRepository) GetByUserID(ctx context.Context, userID uint) (*models.Patient, error) {
	var patient models.Patient
	err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&patient).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("patient for user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &patient, nil
}

// Update saves the patient profile columns
func (r *PatientRepository) Update(ctx context.Context, patient *models.Patient) error {
	return r.db.WithContext(ctx).Omit("User").Save(patient).Error
}

// SetApproved marks a patient approved
func (r *PatientRepository) SetApproved(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Patient{}).
		Where("id = ?", id).
		Update("approved", true).Error
}

// Delete removes a patient profile permanently
func (r *PatientRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Patient{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("patient %d: %w", id, ErrNotFound)
	}
	return nil
}

// List retrieves patients matching the filter, users preloaded
func (r *PatientRepository) List(ctx context.Context, filter PatientFilter) ([]models.Patient, error) {
	var patients []models.Patient
	order := "patients.id ASC"
	if filter.Newest {
		order = "patients.id DESC"
	}
	err := r.filtered(ctx, filter).
		Preload("User").
		Order(order).
		Find(&patients).Error
	return patients, err
}

// Count counts patients matching the filter
func (r *PatientRepository) Count(ctx context.Context, filter PatientFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

func (r *PatientRepository) filtered(ctx context.Context, filter PatientFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Patient{})
	if filter.Approved != nil {
		q = q.Where("patients.approved = ?", *filter.Approved)
	}
	if filter.AssignedDoctorID != 0 {
		q = q.Where("patients.assigned_doctor_id = ?", filter.AssignedDoctorID)
	}
	if filter.UserIDs != nil {
		q = q.Where("patients.user_id IN ?", filter.UserIDs)
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		q = q.Joins("JOIN users ON users.id = patients.user_id").
			Where("LOWER(patients.symptoms) LIKE ? ESCAPE '!' OR LOWER(users.first_name) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	return q
}
