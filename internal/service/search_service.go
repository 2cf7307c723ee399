package service

import (
	"context"
	"fmt"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
)

// SearchService answers the filtered lookups and dashboard aggregates
type SearchService struct {
	store repository.Store
}

func NewSearchService(store repository.Store) *SearchService {
	return &SearchService{store: store}
}

// SearchPatients matches symptoms or first name among the doctor's approved patients.
// An empty query returns all of them.
func (s *SearchService) SearchPatients(ctx context.Context, doctor Principal, query string) ([]models.Patient, error) {
	patients, err := s.store.Patients().List(ctx, repository.PatientFilter{
		Approved:         repository.Bool(true),
		AssignedDoctorID: doctor.UserID,
		Query:            query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search patients: %w", err)
	}
	return patients, nil
}

// SearchDoctors matches department or first name among approved doctors.
// An empty query returns all of them.
func (s *SearchService) SearchDoctors(ctx context.Context, query string) ([]models.Doctor, error) {
	doctors, err := s.store.Doctors().List(ctx, repository.DoctorFilter{
		Approved: repository.Bool(true),
		Query:    query,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search doctors: %w", err)
	}
	return doctors, nil
}

type AdminDashboard struct {
	DoctorCount             int64            `json:"doctor_count"`
	PendingDoctorCount      int64            `json:"pending_doctor_count"`
	PatientCount            int64            `json:"patient_count"`
	PendingPatientCount     int64            `json:"pending_patient_count"`
	AppointmentCount        int64            `json:"appointment_count"`
	PendingAppointmentCount int64            `json:"pending_appointment_count"`
	Doctors                 []models.Doctor  `json:"doctors"`
	Patients                []models.Patient `json:"patients"`
}

// AdminDashboard counts approved and pending records and lists everyone newest first
func (s *SearchService) AdminDashboard(ctx context.Context) (*AdminDashboard, error) {
	d := &AdminDashboard{}
	var err error

	counts := []struct {
		dst *int64
		fn  func() (int64, error)
	}{
		{&d.DoctorCount, func() (int64, error) {
			return s.store.Doctors().Count(ctx, repository.DoctorFilter{Approved: repository.Bool(true)})
		}},
		{&d.PendingDoctorCount, func() (int64, error) {
			return s.store.Doctors().Count(ctx, repository.DoctorFilter{Approved: repository.Bool(false)})
		}},
		{&d.PatientCount, func() (int64, error) {
			return s.store.Patients().Count(ctx, repository.PatientFilter{Approved: repository.Bool(true)})
		}},
		{&d.PendingPatientCount, func() (int64, error) {
			return s.store.Patients().Count(ctx, repository.PatientFilter{Approved: repository.Bool(false)})
		}},
		{&d.AppointmentCount, func() (int64, error) {
			return s.store.Appointments().Count(ctx, repository.AppointmentFilter{Approved: repository.Bool(true)})
		}},
		{&d.PendingAppointmentCount, func() (int64, error) {
			return s.store.Appointments().Count(ctx, repository.AppointmentFilter{Approved: repository.Bool(false)})
		}},
	}
	for _, c := range counts {
		if *c.dst, err = c.fn(); err != nil {
			return nil, fmt.Errorf("failed to count dashboard totals: %w", err)
		}
	}

	if d.Doctors, err = s.store.Doctors().List(ctx, repository.DoctorFilter{Newest: true}); err != nil {
		return nil, fmt.Errorf("failed to list doctors: %w", err)
	}
	if d.Patients, err = s.store.Patients().List(ctx, repository.PatientFilter{Newest: true}); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return d, nil
}

// AppointmentRow pairs a confirmed appointment with the patient's contact details
type AppointmentRow struct {
	models.Appointment
	Mobile   string `json:"mobile"`
	Symptoms string `json:"symptoms"`
	Address  string `json:"address"`
}

type DoctorDashboard struct {
	Doctor           *models.Doctor   `json:"doctor"`
	PatientCount     int64            `json:"patient_count"`
	AppointmentCount int64            `json:"appointment_count"`
	DischargedCount  int64            `json:"discharged_count"`
	Appointments     []AppointmentRow `json:"appointments"`
}

// DoctorDashboard summarises the acting doctor's patients, appointments and discharges
func (s *SearchService) DoctorDashboard(ctx context.Context, doctor Principal) (*DoctorDashboard, error) {
	profile, err := s.store.Doctors().GetByUserID(ctx, doctor.UserID)
	if err != nil {
		return nil, notFound(err, "doctor", doctor.UserID)
	}

	d := &DoctorDashboard{Doctor: profile, Appointments: []AppointmentRow{}}
	if d.PatientCount, err = s.store.Patients().Count(ctx, repository.PatientFilter{
		Approved:         repository.Bool(true),
		AssignedDoctorID: doctor.UserID,
	}); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	if d.AppointmentCount, err = s.store.Appointments().Count(ctx, repository.AppointmentFilter{
		Approved: repository.Bool(true),
		DoctorID: doctor.UserID,
	}); err != nil {
		return nil, fmt.Errorf("failed to count appointments: %w", err)
	}
	if d.DischargedCount, err = s.store.Discharges().CountByDoctorName(ctx, profile.User.FirstName); err != nil {
		return nil, fmt.Errorf("failed to count discharges: %w", err)
	}

	appointments, err := s.store.Appointments().List(ctx, repository.AppointmentFilter{
		Approved: repository.Bool(true),
		DoctorID: doctor.UserID,
		Newest:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	if len(appointments) == 0 {
		return d, nil
	}

	userIDs := make([]uint, 0, len(appointments))
	for _, a := range appointments {
		userIDs = append(userIDs, a.PatientID)
	}
	patients, err := s.store.Patients().List(ctx, repository.PatientFilter{UserIDs: userIDs})
	if err != nil {
		return nil, fmt.Errorf("failed to load patients: %w", err)
	}
	byUser := make(map[uint]models.Patient, len(patients))
	for _, p := range patients {
		byUser[p.UserID] = p
	}

	for _, a := range appointments {
		row := AppointmentRow{Appointment: a}
		if p, ok := byUser[a.PatientID]; ok {
			row.Mobile, row.Symptoms, row.Address = p.Mobile, p.Symptoms, p.Address
		}
		d.Appointments = append(d.Appointments, row)
	}
	return d, nil
}

// DischargedForDoctor lists the bills written under the acting doctor's name
func (s *SearchService) DischargedForDoctor(ctx context.Context, doctor Principal) ([]models.DischargeBilling, error) {
	profile, err := s.store.Doctors().GetByUserID(ctx, doctor.UserID)
	if err != nil {
		return nil, notFound(err, "doctor", doctor.UserID)
	}
	bills, err := s.store.Discharges().ListByDoctorName(ctx, profile.User.FirstName)
	if err != nil {
		return nil, fmt.Errorf("failed to list discharges: %w", err)
	}
	return bills, nil
}

type PatientDashboard struct {
	Patient          *models.Patient `json:"patient"`
	DoctorName       string          `json:"doctor_name"`
	DoctorMobile     string          `json:"doctor_mobile"`
	DoctorAddress    string          `json:"doctor_address"`
	DoctorDepartment string          `json:"doctor_department"`
	AdmitDate        string          `json:"admit_date"`
}

// PatientDashboard shows the acting patient's record and assigned doctor.
// A missing or unapproved assigned doctor is an error.
func (s *SearchService) PatientDashboard(ctx context.Context, patient Principal) (*PatientDashboard, error) {
	p, err := s.store.Patients().GetByUserID(ctx, patient.UserID)
	if err != nil {
		return nil, notFound(err, "patient", patient.UserID)
	}

	doctor, err := s.store.Doctors().GetByUserID(ctx, p.AssignedDoctorID)
	if err != nil {
		return nil, notFound(err, "doctor", p.AssignedDoctorID)
	}
	if !doctor.Approved {
		return nil, newValidationError("assigned_doctor_id", "assigned doctor is not approved")
	}

	return &PatientDashboard{
		Patient:          p,
		DoctorName:       doctor.User.FullName(),
		DoctorMobile:     doctor.Mobile,
		DoctorAddress:    doctor.Address,
		DoctorDepartment: doctor.Department,
		AdmitDate:        p.AdmitDate.Format(dateLayout),
	}, nil
}
