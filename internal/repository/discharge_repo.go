package repository

import (
	"context"
	"errors"
	"fmt"

	"hospital-portal/internal/models"

	"gorm.io/gorm"
)

type DischargeRepository struct {
	db *gorm.DB
}

func NewDischargeRepo(db *gorm.DB) *DischargeRepository {
	return &DischargeRepository{db: db}
}

// Create stores a new discharge bill
func (r *DischargeRepository) Create(ctx context.Context, bill *models.DischargeBilling) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

// LatestForPatient returns the most recently created bill for a patient
func (r *DischargeRepository) LatestForPatient(ctx context.Context, patientID uint) (*models.DischargeBilling, error) {
	var bill models.DischargeBilling
	err := r.db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("id DESC").
		First(&bill).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("discharge bill for patient %d: %w", patientID, ErrNotFound)
		}
		return nil, err
	}
	return &bill, nil
}

// ListByDoctorName retrieves bills whose snapshot names the given doctor
func (r *DischargeRepository) ListByDoctorName(ctx context.Context, doctorName string) ([]models.DischargeBilling, error) {
	var bills []models.DischargeBilling
	err := r.db.WithContext(ctx).
		Where("assigned_doctor_name = ?", doctorName).
		Order("id DESC").
		Find(&bills).Error
	return bills, err
}

// CountByDoctorName counts bills whose snapshot names the given doctor
func (r *DischargeRepository) CountByDoctorName(ctx context.Context, doctorName string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.DischargeBilling{}).
		Where("assigned_doctor_name = ?", doctorName).
		Count(&count).Error
	return count, err
}
