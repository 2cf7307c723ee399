package repository

import (
	"context"

	"gorm.io/gorm"
)

// GormStore is the Store backed by a gorm connection (or an open gorm transaction).
type GormStore struct {
	db           *gorm.DB
	users        *UserRepository
	doctors      *DoctorRepository
	patients     *PatientRepository
	appointments *AppointmentRepository
	discharges   *DischargeRepository
	audit        *AuditRepository
}

func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:           db,
		users:        NewUserRepo(db),
		doctors:      NewDoctorRepo(db),
		patients:     NewPatientRepo(db),
		appointments: NewAppointmentRepo(db),
		discharges:   NewDischargeRepo(db),
		audit:        NewAuditRepo(db),
	}
}

func (s *GormStore) Users() UserStore               { return s.users }
func (s *GormStore) Doctors() DoctorStore           { return s.doctors }
func (s *GormStore) Patients() PatientStore         { return s.patients }
func (s *GormStore) Appointments() AppointmentStore { return s.appointments }
func (s *GormStore) Discharges() DischargeStore     { return s.discharges }
func (s *GormStore) Audit() AuditStore              { return s.audit }

// Transaction runs fn inside a database transaction. A returned error or a
// panic rolls back every write made through tx.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
