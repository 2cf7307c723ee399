package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"hospital-portal/internal/models"

	"gorm.io/gorm"
)

type DoctorRepository struct {
	db *gorm.DB
}

func NewDoctorRepo(db *gorm.DB) *DoctorRepository {
	return &DoctorRepository{db: db}
}

// Create creates a new doctor profile
func (r *DoctorRepository) Create(ctx context.Context, doctor *models.Doctor) error {
	return r.db.WithContext(ctx).Omit("User").Create(doctor).Error
}

// GetByID retrieves a doctor with its user
func (r *DoctorRepository) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	var doctor models.Doctor
	err := r.db.WithContext(ctx).Preload("User").Where("id = ?", id).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("doctor %d: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &doctor, nil
}

// GetByUserID retrieves the doctor profile owned by a user
func (r *DoctorRepository) GetByUserID(ctx context.Context, userID uint) (*models.Doctor, error) {
	var doctor models.Doctor
	err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&doctor).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("doctor for user %d: %w", userID, ErrNotFound)
		}
		return nil, err
	}
	return &doctor, nil
}

// Update saves the doctor profile columns
func (r *DoctorRepository) Update(ctx context.Context, doctor *models.Doctor) error {
	return r.db.WithContext(ctx).Omit("User").Save(doctor).Error
}

// SetApproved marks a doctor approved
func (r *DoctorRepository) SetApproved(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Model(&models.Doctor{}).
		Where("id = ?", id).
		Update("approved", true).Error
}

// Delete removes a doctor profile permanently
func (r *DoctorRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Doctor{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("doctor %d: %w", id, ErrNotFound)
	}
	return nil
}

// List retrieves doctors matching the filter, users preloaded
func (r *DoctorRepository) List(ctx context.Context, filter DoctorFilter) ([]models.Doctor, error) {
	var doctors []models.Doctor
	order := "doctors.id ASC"
	if filter.Newest {
		order = "doctors.id DESC"
	}
	err := r.filtered(ctx, filter).
		Preload("User").
		Order(order).
		Find(&doctors).Error
	return doctors, err
}

// Count counts doctors matching the filter
func (r *DoctorRepository) Count(ctx context.Context, filter DoctorFilter) (int64, error) {
	var count int64
	err := r.filtered(ctx, filter).Count(&count).Error
	return count, err
}

func (r *DoctorRepository) filtered(ctx context.Context, filter DoctorFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Doctor{})
	if filter.Approved != nil {
		q = q.Where("doctors.approved = ?", *filter.Approved)
	}
	if filter.Query != "" {
		pattern := likePattern(filter.Query)
		q = q.Joins("JOIN users ON users.id = doctors.user_id").
			Where("LOWER(doctors.department) LIKE ? ESCAPE '!' OR LOWER(users.first_name) LIKE ? ESCAPE '!'", pattern, pattern)
	}
	return q
}

// likePattern builds a case-insensitive substring pattern for LIKE ... ESCAPE '!'.
func likePattern(query string) string {
	escaped := strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`).Replace(strings.ToLower(query))
	return "%" + escaped + "%"
}
