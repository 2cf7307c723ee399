package service

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/render"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func charges(room, fee, medicine, other string) ChargeInput {
	return ChargeInput{
		RoomCharge:   Amount(room),
		DoctorFee:    Amount(fee),
		MedicineCost: Amount(medicine),
		OtherCharge:  Amount(other),
	}
}

func TestDischarge_FiveDayStay(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	f.advance(5 * 24 * time.Hour)
	bill, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "500", "200", "50"))
	require.NoError(t, err)

	assert.Equal(t, 5, bill.DaysStayed)
	assert.Equal(t, 500, bill.RoomCharge)
	assert.Equal(t, 1250, bill.Total)
	assert.Equal(t, "Gregory", bill.AssignedDoctorName)
	assert.Equal(t, "Jane Roe", bill.PatientName)
	assert.Equal(t, "Fever", bill.Symptoms)
	assert.Equal(t, "2024-03-06", bill.ReleaseDate.Format("2006-01-02"))
	assert.Equal(t, 1, f.recorder.count("patient/discharge"))

	current, err := f.billing.CurrentBill(f.ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, bill.ID, current.ID)

	logs := f.store.AuditLogs()
	assert.Equal(t, "patient_discharge", logs[len(logs)-1].Action)
}

func TestDischarge_SameDay(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	f.advance(6 * time.Hour)
	bill, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "0", "0", "0"))
	require.NoError(t, err)

	assert.Equal(t, 0, bill.DaysStayed)
	assert.Equal(t, 0, bill.RoomCharge)
	assert.Equal(t, 0, bill.Total)
}

func TestDischarge_InvalidInputPersistsNothing(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	_, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("abc", "-1", "2.5", "10"))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Fields, 3)
	assert.Contains(t, verr.Fields, "room_charge")
	assert.Contains(t, verr.Fields, "doctor_fee")
	assert.Contains(t, verr.Fields, "medicine_cost")

	_, err = f.billing.CurrentBill(f.ctx, patient.ID)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.Equal(t, 0, f.recorder.count("patient/discharge"))
}

func TestDischarge_FailedAuditRollsBackBill(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	f.store.Fail.AuditCreate = errors.New("audit table locked")
	_, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "1", "1", "1"))
	require.Error(t, err)

	f.store.Fail.AuditCreate = nil
	_, err = f.billing.CurrentBill(f.ctx, patient.ID)
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestDischarge_SecondBillBecomesCurrent(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	f.advance(2 * 24 * time.Hour)
	first, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "0", "0", "0"))
	require.NoError(t, err)

	f.advance(24 * time.Hour)
	second, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "0", "0", "0"))
	require.NoError(t, err)

	current, err := f.billing.CurrentBill(f.ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)
	assert.NotEqual(t, first.ID, current.ID)
	assert.Equal(t, 300, current.Total)
}

func TestDischarge_MissingPatient(t *testing.T) {
	f := newFixture(t)

	_, err := f.billing.Discharge(f.ctx, admin, 404, charges("1", "1", "1", "1"))

	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "patient", nf.Entity)
}

func TestDischarge_UnapprovedAssignedDoctor(t *testing.T) {
	f := newFixture(t)
	pending, err := f.auth.SignupDoctor(f.ctx, doctorInput("wilson", "James", "Oncology"))
	require.NoError(t, err)

	user := &models.User{Username: "jane", FirstName: "Jane", Role: models.RolePatient}
	require.NoError(t, f.store.Users().Create(f.ctx, user))
	patient := &models.Patient{UserID: user.ID, AssignedDoctorID: pending.UserID, Symptoms: "Cough", AdmitDate: f.now, Approved: true}
	require.NoError(t, f.store.Patients().Create(f.ctx, patient))

	_, err = f.billing.Discharge(f.ctx, admin, patient.ID, charges("1", "1", "1", "1"))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "assigned_doctor_id")
}

func TestCalculate_TotalsAddUp(t *testing.T) {
	admitted := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	for days := 0; days <= 40; days += 7 {
		for _, c := range []Charges{
			{0, 0, 0, 0},
			{100, 500, 200, 50},
			{2500, 0, 999, 1},
			{1, 1_000_000, 0, 7},
		} {
			today := admitted.AddDate(0, 0, days).Add(17 * time.Hour)
			b, err := Calculate(admitted, today, c)
			require.NoError(t, err)

			assert.Equal(t, days, b.DaysStayed)
			assert.Equal(t, c.DailyRoomRate*days, b.RoomCharge)
			assert.Equal(t, b.RoomCharge+b.DoctorFee+b.MedicineCost+b.OtherCharge, b.Total)
		}
	}
}

func TestDaysStayed_FutureAdmission(t *testing.T) {
	today := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	_, err := DaysStayed(today.AddDate(0, 0, 1), today)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "admit_date")
}

func TestDaysStayed_UsesCalendarDates(t *testing.T) {
	admitted := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	today := time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC)

	days, err := DaysStayed(admitted, today)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestAmount_AcceptsNumbersAndStrings(t *testing.T) {
	var in ChargeInput
	require.NoError(t, json.Unmarshal([]byte(`{"room_charge":100,"doctor_fee":"500","medicine_cost":" 7 ","other_charge":1.5}`), &in))

	assert.Equal(t, Amount("100"), in.RoomCharge)
	assert.Equal(t, Amount("500"), in.DoctorFee)

	c, err := ParseCharges(in)
	assert.Equal(t, Charges{}, c)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, map[string]string{"other_charge": "must be a whole number"}, verr.Fields)
}

func TestPreview(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")
	f.advance(3 * 24 * time.Hour)

	p, err := f.billing.Preview(f.ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, p.DaysStayed)
	assert.Equal(t, "Gregory", p.AssignedDoctorName)
	assert.Equal(t, "2024-03-01", p.AdmitDate)
	assert.Equal(t, "2024-03-04", p.ReleaseDate)
}

func TestPatientDischarge(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")
	me := principalOf(patient.UserID, models.RolePatient)

	view, err := f.billing.PatientDischarge(f.ctx, me)
	require.NoError(t, err)
	assert.False(t, view.IsDischarged)
	assert.Nil(t, view.Bill)

	_, err = f.billing.Discharge(f.ctx, admin, patient.ID, charges("0", "10", "0", "0"))
	require.NoError(t, err)

	view, err = f.billing.PatientDischarge(f.ctx, me)
	require.NoError(t, err)
	assert.True(t, view.IsDischarged)
	assert.Equal(t, 10, view.Bill.Total)
}

type failingRenderer struct{}

func (failingRenderer) Render(string, render.Context) ([]byte, error) {
	return nil, errors.New("font missing")
}

func TestDownloadPDF(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	_, err := f.billing.DownloadPDF(f.ctx, patient.ID)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))

	_, err = f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "500", "200", "50"))
	require.NoError(t, err)

	out, err := f.billing.DownloadPDF(f.ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(out[:4]))

	f.billing.renderer = failingRenderer{}
	_, err = f.billing.DownloadPDF(f.ctx, patient.ID)
	var rerr *RenderingError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, render.BillTemplate, rerr.Template)
}

func TestDischarge_SnapshotSurvivesEdits(t *testing.T) {
	f := newFixture(t)
	doctor := f.approvedDoctor(t, "house", "Gregory", "Cardiologist")
	wilson := f.approvedDoctor(t, "wilson", "James", "Oncologist")
	patient := f.approvedPatient(t, "jane", "Jane", doctor.UserID, "Fever")

	bill, err := f.billing.Discharge(f.ctx, admin, patient.ID, charges("100", "500", "200", "50"))
	require.NoError(t, err)

	_, err = f.approval.UpdatePatient(f.ctx, admin, patient.ID, PatientUpdate{
		ProfileUpdate:    ProfileUpdate{Username: "jane", FirstName: "Janet", LastName: "Doe"},
		AssignedDoctorID: wilson.UserID,
		Symptoms:         "Cough",
		Mobile:           "555-0000",
		Address:          "9 Oak Lane",
	})
	require.NoError(t, err)
	_, err = f.approval.UpdateDoctor(f.ctx, admin, doctor.ID, DoctorUpdate{
		ProfileUpdate: ProfileUpdate{Username: "house", FirstName: "Greg", LastName: "MD"},
		Department:    "Cardiologist",
		Mobile:        "555-0101",
		Address:       "1 Clinic Road",
	})
	require.NoError(t, err)

	current, err := f.billing.CurrentBill(f.ctx, patient.ID)
	require.NoError(t, err)
	assert.Equal(t, bill.ID, current.ID)
	assert.Equal(t, "Jane Roe", current.PatientName)
	assert.Equal(t, "Gregory", current.AssignedDoctorName)
	assert.Equal(t, "Fever", current.Symptoms)
	assert.Equal(t, "12 Elm Street", current.Address)
}
