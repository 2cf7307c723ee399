package repository

import (
	"context"
	"errors"
	"time"

	"hospital-portal/internal/models"
)

// ErrNotFound is returned (wrapped) when a lookup or targeted write matches no row.
var ErrNotFound = errors.New("record not found")

// Bool returns a pointer to b, for optional filter flags.
func Bool(b bool) *bool {
	return &b
}

// DoctorFilter narrows doctor listings. Query matches department or the
// doctor's first name, case-insensitively; an empty Query matches everything.
type DoctorFilter struct {
	Approved *bool
	Query    string
	Newest   bool
}

// PatientFilter narrows patient listings. AssignedDoctorID is a doctor user id;
// zero means any doctor. Query matches symptoms or the patient's first name.
type PatientFilter struct {
	Approved         *bool
	AssignedDoctorID uint
	UserIDs          []uint
	Query            string
	Newest           bool
}

// AppointmentFilter narrows appointment listings by user ids and status.
type AppointmentFilter struct {
	Approved  *bool
	DoctorID  uint
	PatientID uint
	Newest    bool
}

// UserStore persists portal identities and their refresh tokens.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error
	FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error)
	RevokeRefreshTokenByHash(ctx context.Context, hash string) error
	DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// DoctorStore persists doctor profiles. Reads preload the owning User.
type DoctorStore interface {
	Create(ctx context.Context, doctor *models.Doctor) error
	GetByID(ctx context.Context, id uint) (*models.Doctor, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Doctor, error)
	Update(ctx context.Context, doctor *models.Doctor) error
	SetApproved(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter DoctorFilter) ([]models.Doctor, error)
	Count(ctx context.Context, filter DoctorFilter) (int64, error)
}

// PatientStore persists patient profiles. Reads preload the owning User.
type PatientStore interface {
	Create(ctx context.Context, patient *models.Patient) error
	GetByID(ctx context.Context, id uint) (*models.Patient, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Patient, error)
	Update(ctx context.Context, patient *models.Patient) error
	SetApproved(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter PatientFilter) ([]models.Patient, error)
	Count(ctx context.Context, filter PatientFilter) (int64, error)
}

// AppointmentStore persists appointments.
type AppointmentStore interface {
	Create(ctx context.Context, appointment *models.Appointment) error
	GetByID(ctx context.Context, id uint) (*models.Appointment, error)
	SetApproved(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter AppointmentFilter) ([]models.Appointment, error)
	Count(ctx context.Context, filter AppointmentFilter) (int64, error)
}

// DischargeStore persists discharge bills. Bills are never updated.
type DischargeStore interface {
	Create(ctx context.Context, bill *models.DischargeBilling) error
	LatestForPatient(ctx context.Context, patientID uint) (*models.DischargeBilling, error)
	ListByDoctorName(ctx context.Context, doctorName string) ([]models.DischargeBilling, error)
	CountByDoctorName(ctx context.Context, doctorName string) (int64, error)
}

// AuditStore appends audit log rows.
type AuditStore interface {
	CreateAuditLog(ctx context.Context, userID *uint, action string, details string) error
}

// Store groups the repositories and runs units of work atomically.
// Repositories obtained from the tx argument of Transaction share its
// transaction; if fn returns an error nothing it wrote is kept.
type Store interface {
	Users() UserStore
	Doctors() DoctorStore
	Patients() PatientStore
	Appointments() AppointmentStore
	Discharges() DischargeStore
	Audit() AuditStore
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
