// Package repotest provides an in-memory repository.Store for service and
// handler tests. Transactions run against a copy of the data that replaces
// the live data only when the callback succeeds.
package repotest

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
)

// Failures injects errors into specific writes.
type Failures struct {
	UserDelete      error
	DischargeCreate error
	AuditCreate     error
}

type data struct {
	nextID       uint
	users        map[uint]models.User
	tokens       []models.RefreshToken
	doctors      map[uint]models.Doctor
	patients     map[uint]models.Patient
	appointments map[uint]models.Appointment
	discharges   map[uint]models.DischargeBilling
	audits       []models.AuditLog
}

func newData() *data {
	return &data{
		users:        map[uint]models.User{},
		doctors:      map[uint]models.Doctor{},
		patients:     map[uint]models.Patient{},
		appointments: map[uint]models.Appointment{},
		discharges:   map[uint]models.DischargeBilling{},
	}
}

func (d *data) clone() *data {
	c := &data{
		nextID:       d.nextID,
		users:        make(map[uint]models.User, len(d.users)),
		tokens:       append([]models.RefreshToken(nil), d.tokens...),
		doctors:      make(map[uint]models.Doctor, len(d.doctors)),
		patients:     make(map[uint]models.Patient, len(d.patients)),
		appointments: make(map[uint]models.Appointment, len(d.appointments)),
		discharges:   make(map[uint]models.DischargeBilling, len(d.discharges)),
		audits:       append([]models.AuditLog(nil), d.audits...),
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.doctors {
		c.doctors[k] = v
	}
	for k, v := range d.patients {
		c.patients[k] = v
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	for k, v := range d.discharges {
		c.discharges[k] = v
	}
	return c
}

func (d *data) id() uint {
	d.nextID++
	return d.nextID
}

// Store is an in-memory repository.Store. The zero value is not usable; call New.
type Store struct {
	mu   *sync.Mutex
	data *data
	Fail *Failures
}

func New() *Store {
	return &Store{mu: &sync.Mutex{}, data: newData(), Fail: &Failures{}}
}

func (s *Store) Users() repository.UserStore               { return userStore{s} }
func (s *Store) Doctors() repository.DoctorStore           { return doctorStore{s} }
func (s *Store) Patients() repository.PatientStore         { return patientStore{s} }
func (s *Store) Appointments() repository.AppointmentStore { return appointmentStore{s} }
func (s *Store) Discharges() repository.DischargeStore     { return dischargeStore{s} }
func (s *Store) Audit() repository.AuditStore              { return auditStore{s} }

// Transaction runs fn on a copy of the data and commits the copy if fn succeeds.
func (s *Store) Transaction(ctx context.Context, fn func(tx repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	tx := &Store{mu: &sync.Mutex{}, data: snapshot, Fail: s.Fail}
	if err := fn(tx); err != nil {
		return err
	}

	s.mu.Lock()
	s.data = tx.data
	s.mu.Unlock()
	return nil
}

// AuditLogs returns the committed audit rows in insertion order.
func (s *Store) AuditLogs() []models.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.AuditLog(nil), s.data.audits...)
}

func (s *Store) lock() *data {
	s.mu.Lock()
	return s.data
}

func (s *Store) unlock() { s.mu.Unlock() }

func notFound(entity string, id any) error {
	return fmt.Errorf("%s %v: %w", entity, id, repository.ErrNotFound)
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func matchesApproved(filter *bool, approved bool) bool {
	return filter == nil || *filter == approved
}

type userStore struct{ s *Store }

func (r userStore) Create(ctx context.Context, user *models.User) error {
	d := r.s.lock()
	defer r.s.unlock()
	for _, u := range d.users {
		if u.Username == user.Username {
			return fmt.Errorf("duplicate username %q", user.Username)
		}
	}
	user.ID = d.id()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	d.users[user.ID] = *user
	return nil
}

func (r userStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	d := r.s.lock()
	defer r.s.unlock()
	u, ok := d.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	return &u, nil
}

func (r userStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	d := r.s.lock()
	defer r.s.unlock()
	for _, u := range d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, notFound("user", username)
}

func (r userStore) Update(ctx context.Context, user *models.User) error {
	d := r.s.lock()
	defer r.s.unlock()
	d.users[user.ID] = *user
	return nil
}

func (r userStore) Delete(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	if r.s.Fail.UserDelete != nil {
		return r.s.Fail.UserDelete
	}
	if _, ok := d.users[id]; !ok {
		return notFound("user", id)
	}
	delete(d.users, id)
	// profiles cascade with their user
	for k, doc := range d.doctors {
		if doc.UserID == id {
			delete(d.doctors, k)
		}
	}
	for k, p := range d.patients {
		if p.UserID == id {
			delete(d.patients, k)
		}
	}
	return nil
}

func (r userStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	d := r.s.lock()
	defer r.s.unlock()
	token.ID = d.id()
	d.tokens = append(d.tokens, *token)
	return nil
}

func (r userStore) FindRefreshTokenByHash(ctx context.Context, hash string) (*models.RefreshToken, error) {
	d := r.s.lock()
	defer r.s.unlock()
	for _, t := range d.tokens {
		if t.TokenHash == hash && !t.Revoked {
			t.User = d.users[t.UserID]
			return &t, nil
		}
	}
	return nil, notFound("refresh token", "")
}

func (r userStore) RevokeRefreshTokenByHash(ctx context.Context, hash string) error {
	d := r.s.lock()
	defer r.s.unlock()
	for i := range d.tokens {
		if d.tokens[i].TokenHash == hash {
			d.tokens[i].Revoked = true
		}
	}
	return nil
}

func (r userStore) DeleteStaleRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	d := r.s.lock()
	defer r.s.unlock()
	kept := d.tokens[:0]
	var removed int64
	for _, t := range d.tokens {
		if t.Revoked || t.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	d.tokens = kept
	return removed, nil
}

type doctorStore struct{ s *Store }

func (r doctorStore) Create(ctx context.Context, doctor *models.Doctor) error {
	d := r.s.lock()
	defer r.s.unlock()
	doctor.ID = d.id()
	stored := *doctor
	stored.User = models.User{}
	d.doctors[doctor.ID] = stored
	return nil
}

func (r doctorStore) withUser(d *data, doc models.Doctor) *models.Doctor {
	doc.User = d.users[doc.UserID]
	return &doc
}

func (r doctorStore) GetByID(ctx context.Context, id uint) (*models.Doctor, error) {
	d := r.s.lock()
	defer r.s.unlock()
	doc, ok := d.doctors[id]
	if !ok {
		return nil, notFound("doctor", id)
	}
	return r.withUser(d, doc), nil
}

func (r doctorStore) GetByUserID(ctx context.Context, userID uint) (*models.Doctor, error) {
	d := r.s.lock()
	defer r.s.unlock()
	for _, doc := range d.doctors {
		if doc.UserID == userID {
			return r.withUser(d, doc), nil
		}
	}
	return nil, notFound("doctor for user", userID)
}

func (r doctorStore) Update(ctx context.Context, doctor *models.Doctor) error {
	d := r.s.lock()
	defer r.s.unlock()
	stored := *doctor
	stored.User = models.User{}
	d.doctors[doctor.ID] = stored
	return nil
}

func (r doctorStore) SetApproved(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	doc, ok := d.doctors[id]
	if ok {
		doc.Approved = true
		d.doctors[id] = doc
	}
	return nil
}

func (r doctorStore) Delete(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	if _, ok := d.doctors[id]; !ok {
		return notFound("doctor", id)
	}
	delete(d.doctors, id)
	return nil
}

func (r doctorStore) List(ctx context.Context, filter repository.DoctorFilter) ([]models.Doctor, error) {
	d := r.s.lock()
	defer r.s.unlock()
	out := []models.Doctor{}
	for _, doc := range d.doctors {
		full := r.withUser(d, doc)
		if !matchesApproved(filter.Approved, doc.Approved) {
			continue
		}
		if filter.Query != "" && !contains(doc.Department, filter.Query) && !contains(full.User.FirstName, filter.Query) {
			continue
		}
		out = append(out, *full)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Newest {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r doctorStore) Count(ctx context.Context, filter repository.DoctorFilter) (int64, error) {
	list, err := r.List(ctx, filter)
	return int64(len(list)), err
}

type patientStore struct{ s *Store }

func (r patientStore) Create(ctx context.Context, patient *models.Patient) error {
	d := r.s.lock()
	defer r.s.unlock()
	patient.ID = d.id()
	stored := *patient
	stored.User = models.User{}
	d.patients[patient.ID] = stored
	return nil
}

func (r patientStore) withUser(d *data, p models.Patient) *models.Patient {
	p.User = d.users[p.UserID]
	return &p
}

func (r patientStore) GetByID(ctx context.Context, id uint) (*models.Patient, error) {
	d := r.s.lock()
	defer r.s.unlock()
	p, ok := d.patients[id]
	if !ok {
		return nil, notFound("patient", id)
	}
	return r.withUser(d, p), nil
}

func (r patientStore) GetByUserID(ctx context.Context, userID uint) (*models.Patient, error) {
	d := r.s.lock()
	defer r.s.unlock()
	for _, p := range d.patients {
		if p.UserID == userID {
			return r.withUser(d, p), nil
		}
	}
	return nil, notFound("patient for user", userID)
}

func (r patientStore) Update(ctx context.Context, patient *models.Patient) error {
	d := r.s.lock()
	defer r.s.unlock()
	stored := *patient
	stored.User = models.User{}
	d.patients[patient.ID] = stored
	return nil
}

func (r patientStore) SetApproved(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	p, ok := d.patients[id]
	if ok {
		p.Approved = true
		d.patients[id] = p
	}
	return nil
}

func (r patientStore) Delete(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	if _, ok := d.patients[id]; !ok {
		return notFound("patient", id)
	}
	delete(d.patients, id)
	return nil
}

func (r patientStore) List(ctx context.Context, filter repository.PatientFilter) ([]models.Patient, error) {
	d := r.s.lock()
	defer r.s.unlock()
	out := []models.Patient{}
	for _, p := range d.patients {
		full := r.withUser(d, p)
		if !matchesApproved(filter.Approved, p.Approved) {
			continue
		}
		if filter.AssignedDoctorID != 0 && p.AssignedDoctorID != filter.AssignedDoctorID {
			continue
		}
		if filter.UserIDs != nil && !slices.Contains(filter.UserIDs, p.UserID) {
			continue
		}
		if filter.Query != "" && !contains(p.Symptoms, filter.Query) && !contains(full.User.FirstName, filter.Query) {
			continue
		}
		out = append(out, *full)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Newest {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r patientStore) Count(ctx context.Context, filter repository.PatientFilter) (int64, error) {
	list, err := r.List(ctx, filter)
	return int64(len(list)), err
}

type appointmentStore struct{ s *Store }

func (r appointmentStore) Create(ctx context.Context, appointment *models.Appointment) error {
	d := r.s.lock()
	defer r.s.unlock()
	appointment.ID = d.id()
	if appointment.AppointmentDate.IsZero() {
		appointment.AppointmentDate = time.Now().UTC()
	}
	d.appointments[appointment.ID] = *appointment
	return nil
}

func (r appointmentStore) GetByID(ctx context.Context, id uint) (*models.Appointment, error) {
	d := r.s.lock()
	defer r.s.unlock()
	a, ok := d.appointments[id]
	if !ok {
		return nil, notFound("appointment", id)
	}
	return &a, nil
}

func (r appointmentStore) SetApproved(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	a, ok := d.appointments[id]
	if ok {
		a.Approved = true
		d.appointments[id] = a
	}
	return nil
}

func (r appointmentStore) Delete(ctx context.Context, id uint) error {
	d := r.s.lock()
	defer r.s.unlock()
	if _, ok := d.appointments[id]; !ok {
		return notFound("appointment", id)
	}
	delete(d.appointments, id)
	return nil
}

func (r appointmentStore) List(ctx context.Context, filter repository.AppointmentFilter) ([]models.Appointment, error) {
	d := r.s.lock()
	defer r.s.unlock()
	out := []models.Appointment{}
	for _, a := range d.appointments {
		if !matchesApproved(filter.Approved, a.Approved) {
			continue
		}
		if filter.DoctorID != 0 && a.DoctorID != filter.DoctorID {
			continue
		}
		if filter.PatientID != 0 && a.PatientID != filter.PatientID {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Newest {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r appointmentStore) Count(ctx context.Context, filter repository.AppointmentFilter) (int64, error) {
	list, err := r.List(ctx, filter)
	return int64(len(list)), err
}

type dischargeStore struct{ s *Store }

func (r dischargeStore) Create(ctx context.Context, bill *models.DischargeBilling) error {
	d := r.s.lock()
	defer r.s.unlock()
	if r.s.Fail.DischargeCreate != nil {
		return r.s.Fail.DischargeCreate
	}
	bill.ID = d.id()
	if bill.CreatedAt.IsZero() {
		bill.CreatedAt = time.Now().UTC()
	}
	d.discharges[bill.ID] = *bill
	return nil
}

func (r dischargeStore) LatestForPatient(ctx context.Context, patientID uint) (*models.DischargeBilling, error) {
	d := r.s.lock()
	defer r.s.unlock()
	var latest *models.DischargeBilling
	for _, b := range d.discharges {
		if b.PatientID != patientID {
			continue
		}
		if latest == nil || b.ID > latest.ID {
			bill := b
			latest = &bill
		}
	}
	if latest == nil {
		return nil, notFound("discharge bill for patient", patientID)
	}
	return latest, nil
}

func (r dischargeStore) ListByDoctorName(ctx context.Context, doctorName string) ([]models.DischargeBilling, error) {
	d := r.s.lock()
	defer r.s.unlock()
	out := []models.DischargeBilling{}
	for _, b := range d.discharges {
		if b.AssignedDoctorName == doctorName {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r dischargeStore) CountByDoctorName(ctx context.Context, doctorName string) (int64, error) {
	list, err := r.ListByDoctorName(ctx, doctorName)
	return int64(len(list)), err
}

type auditStore struct{ s *Store }

func (r auditStore) CreateAuditLog(ctx context.Context, userID *uint, action string, details string) error {
	d := r.s.lock()
	defer r.s.unlock()
	if r.s.Fail.AuditCreate != nil {
		return r.s.Fail.AuditCreate
	}
	d.audits = append(d.audits, models.AuditLog{
		ID:        d.id(),
		UserID:    userID,
		Action:    action,
		Details:   details,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

var _ repository.Store = (*Store)(nil)
