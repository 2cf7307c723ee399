package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/render"
	"hospital-portal/internal/repository"
)

const (
	dateLayout = "2006-01-02"
	maxCharge  = 1_000_000_000
)

// Amount is one submitted charge field. JSON strings and numbers are both kept as text
// so that parsing, and its error, happen in one place.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Amount(s)
		return nil
	}
	*a = Amount(strings.TrimSpace(string(b)))
	return nil
}

// ChargeInput is the discharge form as submitted
type ChargeInput struct {
	RoomCharge   Amount `json:"room_charge" form:"room_charge"`
	DoctorFee    Amount `json:"doctor_fee" form:"doctor_fee"`
	MedicineCost Amount `json:"medicine_cost" form:"medicine_cost"`
	OtherCharge  Amount `json:"other_charge" form:"other_charge"`
}

// Charges are the parsed discharge inputs. DailyRoomRate is per day of stay.
type Charges struct {
	DailyRoomRate int
	DoctorFee     int
	MedicineCost  int
	OtherCharge   int
}

// Breakdown is the computed bill
type Breakdown struct {
	DaysStayed   int `json:"days_stayed"`
	RoomCharge   int `json:"room_charge"`
	DoctorFee    int `json:"doctor_fee"`
	MedicineCost int `json:"medicine_cost"`
	OtherCharge  int `json:"other_charge"`
	Total        int `json:"total"`
}

// ParseCharges parses every field and reports all bad ones at once
func ParseCharges(in ChargeInput) (Charges, error) {
	fields := map[string]string{}
	parse := func(name string, raw Amount) int {
		n, err := strconv.Atoi(strings.TrimSpace(string(raw)))
		switch {
		case err != nil:
			fields[name] = "must be a whole number"
		case n < 0:
			fields[name] = "must not be negative"
		case n > maxCharge:
			fields[name] = "is too large"
		}
		return n
	}

	c := Charges{
		DailyRoomRate: parse("room_charge", in.RoomCharge),
		DoctorFee:     parse("doctor_fee", in.DoctorFee),
		MedicineCost:  parse("medicine_cost", in.MedicineCost),
		OtherCharge:   parse("other_charge", in.OtherCharge),
	}
	if len(fields) > 0 {
		return Charges{}, &ValidationError{Fields: fields}
	}
	return c, nil
}

// DaysStayed counts whole calendar days from admission to today
func DaysStayed(admitted, today time.Time) (int, error) {
	a := calendarDay(admitted)
	t := calendarDay(today)
	if a.After(t) {
		return 0, newValidationError("admit_date", "is after the discharge date")
	}
	return int(t.Sub(a) / (24 * time.Hour)), nil
}

// calendarDay keeps the date t shows in its own location, as midnight UTC
func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Calculate produces the bill for a stay from admitted to today
func Calculate(admitted, today time.Time, c Charges) (Breakdown, error) {
	days, err := DaysStayed(admitted, today)
	if err != nil {
		return Breakdown{}, err
	}
	room := c.DailyRoomRate * days
	return Breakdown{
		DaysStayed:   days,
		RoomCharge:   room,
		DoctorFee:    c.DoctorFee,
		MedicineCost: c.MedicineCost,
		OtherCharge:  c.OtherCharge,
		Total:        room + c.DoctorFee + c.MedicineCost + c.OtherCharge,
	}, nil
}

// BillPreview is what the discharge form shows before charges are entered
type BillPreview struct {
	PatientID          uint   `json:"patient_id"`
	Name               string `json:"name"`
	Mobile             string `json:"mobile"`
	Address            string `json:"address"`
	Symptoms           string `json:"symptoms"`
	AdmitDate          string `json:"admit_date"`
	ReleaseDate        string `json:"release_date"`
	DaysStayed         int    `json:"days_stayed"`
	AssignedDoctorName string `json:"assigned_doctor_name"`
}

// PatientDischargeView is a patient's view of their own discharge
type PatientDischargeView struct {
	IsDischarged bool                     `json:"is_discharged"`
	PatientName  string                   `json:"patient_name"`
	PatientID    uint                     `json:"patient_id"`
	Bill         *models.DischargeBilling `json:"bill,omitempty"`
}

type BillingService struct {
	store    repository.Store
	renderer render.Renderer
	recorder TransitionRecorder
	now      func() time.Time
}

func NewBillingService(store repository.Store, renderer render.Renderer, recorder TransitionRecorder) *BillingService {
	return &BillingService{
		store:    store,
		renderer: renderer,
		recorder: recorderOrNop(recorder),
		now:      time.Now,
	}
}

// Preview assembles the discharge form context for a patient
func (s *BillingService) Preview(ctx context.Context, patientID uint) (*BillPreview, error) {
	patient, doctor, err := s.patientWithDoctor(ctx, s.store, patientID)
	if err != nil {
		return nil, err
	}

	today := s.now()
	days, err := DaysStayed(patient.AdmitDate, today)
	if err != nil {
		return nil, err
	}

	return &BillPreview{
		PatientID:          patient.ID,
		Name:               patient.User.FullName(),
		Mobile:             patient.Mobile,
		Address:            patient.Address,
		Symptoms:           patient.Symptoms,
		AdmitDate:          patient.AdmitDate.Format(dateLayout),
		ReleaseDate:        today.Format(dateLayout),
		DaysStayed:         days,
		AssignedDoctorName: doctor.User.FirstName,
	}, nil
}

// Discharge computes the bill and stores its snapshot. Invalid input stores nothing.
func (s *BillingService) Discharge(ctx context.Context, actor Principal, patientID uint, in ChargeInput) (*models.DischargeBilling, error) {
	charges, err := ParseCharges(in)
	if err != nil {
		return nil, err
	}

	var bill *models.DischargeBilling
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		patient, doctor, err := s.patientWithDoctor(ctx, tx, patientID)
		if err != nil {
			return err
		}
		if !patient.Approved {
			return newValidationError("patient_id", "patient is not approved")
		}

		today := s.now()
		breakdown, err := Calculate(patient.AdmitDate, today, charges)
		if err != nil {
			return err
		}

		bill = &models.DischargeBilling{
			PatientID:          patient.ID,
			PatientName:        patient.User.FullName(),
			AssignedDoctorName: doctor.User.FirstName,
			Address:            patient.Address,
			Mobile:             patient.Mobile,
			Symptoms:           patient.Symptoms,
			AdmitDate:          patient.AdmitDate,
			ReleaseDate:        dateOnly(today),
			DaysStayed:         breakdown.DaysStayed,
			RoomCharge:         breakdown.RoomCharge,
			DoctorFee:          breakdown.DoctorFee,
			MedicineCost:       breakdown.MedicineCost,
			OtherCharge:        breakdown.OtherCharge,
			Total:              breakdown.Total,
		}
		if err := tx.Discharges().Create(ctx, bill); err != nil {
			return fmt.Errorf("failed to store discharge bill: %w", err)
		}
		return writeAudit(ctx, tx, actor.UserID, "patient_discharge",
			fmt.Sprintf("Discharged patient %d, total %d", patient.ID, bill.Total))
	})
	if err != nil {
		return nil, err
	}
	s.recorder.RecordTransition("patient", "discharge")
	return bill, nil
}

// CurrentBill returns the most recently created bill for a patient
func (s *BillingService) CurrentBill(ctx context.Context, patientID uint) (*models.DischargeBilling, error) {
	bill, err := s.store.Discharges().LatestForPatient(ctx, patientID)
	if err != nil {
		return nil, notFound(err, "discharge bill", patientID)
	}
	return bill, nil
}

// PatientDischarge shows a patient their latest bill, if any
func (s *BillingService) PatientDischarge(ctx context.Context, patient Principal) (*PatientDischargeView, error) {
	p, err := s.store.Patients().GetByUserID(ctx, patient.UserID)
	if err != nil {
		return nil, notFound(err, "patient", patient.UserID)
	}

	view := &PatientDischargeView{PatientName: p.User.FullName(), PatientID: p.ID}
	bill, err := s.store.Discharges().LatestForPatient(ctx, p.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return view, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load discharge bill: %w", err)
	}
	view.IsDischarged = true
	view.Bill = bill
	return view, nil
}

// DownloadPDF renders the patient's current bill
func (s *BillingService) DownloadPDF(ctx context.Context, patientID uint) ([]byte, error) {
	bill, err := s.CurrentBill(ctx, patientID)
	if err != nil {
		return nil, err
	}

	out, err := s.renderer.Render(render.BillTemplate, BillContext(bill))
	if err != nil {
		return nil, &RenderingError{Template: render.BillTemplate, Err: err}
	}
	return out, nil
}

// BillContext flattens a stored bill for rendering
func BillContext(b *models.DischargeBilling) render.Context {
	return render.Context{
		"patient_name":         b.PatientName,
		"assigned_doctor_name": b.AssignedDoctorName,
		"address":              b.Address,
		"mobile":               b.Mobile,
		"symptoms":             b.Symptoms,
		"admit_date":           b.AdmitDate.Format(dateLayout),
		"release_date":         b.ReleaseDate.Format(dateLayout),
		"days_stayed":          b.DaysStayed,
		"room_charge":          b.RoomCharge,
		"doctor_fee":           b.DoctorFee,
		"medicine_cost":        b.MedicineCost,
		"other_charge":         b.OtherCharge,
		"total":                b.Total,
	}
}

// patientWithDoctor loads a patient and resolves its assigned doctor, failing if the doctor is gone or unapproved
func (s *BillingService) patientWithDoctor(ctx context.Context, store repository.Store, patientID uint) (*models.Patient, *models.Doctor, error) {
	patient, err := store.Patients().GetByID(ctx, patientID)
	if err != nil {
		return nil, nil, notFound(err, "patient", patientID)
	}

	doctor, err := store.Doctors().GetByUserID(ctx, patient.AssignedDoctorID)
	if err != nil {
		return nil, nil, notFound(err, "doctor", patient.AssignedDoctorID)
	}
	if !doctor.Approved {
		return nil, nil, newValidationError("assigned_doctor_id", "assigned doctor is not approved")
	}
	return patient, doctor, nil
}
