package repository

import (
	"context"
	"errors"
	"fmt"

	"hospital-portal/internal/models"

	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db *gorm.DB
}

func NewAppointmentRepo(db *gorm.DB) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

// Create creates a new appointment
func (r *AppointmentRepository) Create(ctx context.Context, appointment *models.Appointment) error {
	return r.db.WithContext(ctx).Create(appointment).Error
}

// GetByID retrieves an appointment by ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	var appointment models.Appointment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&appointment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("appointment %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &appointment, nil
}

// SetApproved confirms an appointment
func (r *AppointmentRepository) SetApproved(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Appointment{}).
		Where("id = ?", id).
		Update("approved", true).Error
}

// Delete removes an appointment permanently
func (r *AppointmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Appointment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("appointment %d: %w", id, ErrNotFound)
	}
	return nil
}

// List retrieves appointments matching the filter
func (r *AppointmentRepository) List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error) {
	var appointments []models.Appointment
	order := "id ASC"
	if filter.Newest {
		order = "id DESC"
	}
	err := r.filtered(ctx, filter).Order(order).Find(&appointments).Error
	return appointments, err
}

// Count counts appointments matching the filter
func (r *AppointmentRepository) Count(ctx context.Context, filter AppointmentFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

func (r *AppointmentRepository) filtered(ctx context.Context, filter AppointmentFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Appointment{})
	if filter.Approved != nil {
		q = q.Where("approved = ?", *filter.Approved)
	}
	if filter.DoctorID != 0 {
		q = q.Where("doctor_id = ?", filter.DoctorID)
	}
	if filter.PatientID != 0 {
		q = q.Where("patient_id = ?", filter.PatientID)
	}
	return q
}
