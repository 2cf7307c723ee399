package service

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/render"
	"hospital-portal/internal/repository/repotest"
	"hospital-portal/pkg/utils"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

var admin = Principal{UserID: 1000, Role: models.RoleAdmin, Approved: true}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *countingRecorder) RecordTransition(entity, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[entity+"/"+action]++
}

func (r *countingRecorder) count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

type fixture struct {
	ctx          context.Context
	store        *repotest.Store
	recorder     *countingRecorder
	now          time.Time
	identity     *IdentityService
	auth         *AuthService
	approval     *ApprovalService
	appointments *AppointmentService
	billing      *BillingService
	search       *SearchService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		ctx:      context.Background(),
		store:    repotest.New(),
		recorder: &countingRecorder{counts: map[string]int{}},
		now:      time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	tokens := utils.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)
	f.identity = NewIdentityService(f.store)
	f.auth = NewAuthService(f.store, tokens, f.identity)
	f.auth.now = clock
	f.approval = NewApprovalService(f.store, f.recorder)
	f.approval.now = clock
	f.appointments = NewAppointmentService(f.store, f.recorder)
	f.billing = NewBillingService(f.store, render.NewPDFRenderer(), f.recorder)
	f.billing.now = clock
	f.search = NewSearchService(f.store)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func doctorInput(username, firstName, department string) DoctorInput {
	return DoctorInput{
		AccountInput: AccountInput{Username: username, Password: "secret1", FirstName: firstName, LastName: "MD"},
		Department:   department,
		Mobile:       "555-0101",
		Address:      "1 Clinic Road",
	}
}

func patientInput(username, firstName string, doctorUserID uint, symptoms string) PatientInput {
	return PatientInput{
		AccountInput:     AccountInput{Username: username, Password: "secret1", FirstName: firstName, LastName: "Roe"},
		AssignedDoctorID: doctorUserID,
		Symptoms:         symptoms,
		Mobile:           "555-0199",
		Address:          "12 Elm Street",
	}
}

func (f *fixture) approvedDoctor(t *testing.T, username, firstName, department string) *models.Doctor {
	t.Helper()
	doctor, err := f.approval.AddDoctor(f.ctx, admin, doctorInput(username, firstName, department))
	require.NoError(t, err)
	return doctor
}

func (f *fixture) approvedPatient(t *testing.T, username, firstName string, doctorUserID uint, symptoms string) *models.Patient {
	t.Helper()
	patient, err := f.approval.AddPatient(f.ctx, admin, patientInput(username, firstName, doctorUserID, symptoms))
	require.NoError(t, err)
	return patient
}

func principalOf(userID uint, role string) Principal {
	return Principal{UserID: userID, Role: role, Approved: true}
}
