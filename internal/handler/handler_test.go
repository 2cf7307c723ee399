package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"hospital-portal/internal/middleware"
	"hospital-portal/internal/render"
	"hospital-portal/internal/repository/repotest"
	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	utils.PasswordCost = bcrypt.MinCost
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	t      *testing.T
	router *gin.Engine
	store  *repotest.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, AuthConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour, AllowAdminSignup: true})
}

func newTestEnvWith(t *testing.T, authCfg AuthConfig) *testEnv {
	t.Helper()
	store := repotest.New()
	tokens := utils.NewTokenIssuer("access", "refresh", time.Minute, time.Hour)

	identity := service.NewIdentityService(store)
	authService := service.NewAuthService(store, tokens, identity)
	approvals := service.NewApprovalService(store, nil)
	appointments := service.NewAppointmentService(store, nil)
	billing := service.NewBillingService(store, render.NewPDFRenderer(), nil)
	search := service.NewSearchService(store)

	r := gin.New()
	RegisterRoutes(r, Handlers{
		Auth:    NewAuthHandler(authService, authCfg),
		Admin:   NewAdminHandler(approvals, appointments, billing, search),
		Doctor:  NewDoctorHandler(appointments, search),
		Patient: NewPatientHandler(appointments, billing, search),
	}, middleware.NewAuth(tokens, identity))

	return &testEnv{t: t, router: r, store: store}
}

func (e *testEnv) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Data    json.RawMessage   `json:"data"`
	Fields  map[string]string `json:"fields"`
	Input   map[string]any    `json:"input"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func (e *testEnv) login(username string) (token, redirect string) {
	e.t.Helper()
	w := e.do(http.MethodPost, "/auth/login", gin.H{"username": username, "password": "secret1"}, "")
	require.Equal(e.t, http.StatusOK, w.Code, w.Body.String())

	var data service.LoginResponse
	require.NoError(e.t, json.Unmarshal(decode(e.t, w).Data, &data))
	return data.AccessToken, data.Redirect
}

func (e *testEnv) signupAdmin() string {
	e.t.Helper()
	w := e.do(http.MethodPost, "/auth/admin/signup", gin.H{
		"username": "root", "password": "secret1", "first_name": "Ada",
	}, "")
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())
	token, _ := e.login("root")
	return token
}

type created struct {
	ID     uint `json:"id"`
	UserID uint `json:"user_id"`
}

func (e *testEnv) signupDoctor(username, department string) created {
	e.t.Helper()
	w := e.do(http.MethodPost, "/auth/doctor/signup", gin.H{
		"username": username, "password": "secret1", "first_name": "Gregory",
		"department": department, "mobile": "555-0101", "address": "1 Clinic Road",
	}, "")
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var data struct {
		Doctor created `json:"doctor"`
	}
	require.NoError(e.t, json.Unmarshal(decode(e.t, w).Data, &data))
	return data.Doctor
}

func (e *testEnv) addPatient(adminToken, username string, doctorUserID uint) created {
	e.t.Helper()
	w := e.do(http.MethodPost, "/admin/patients", gin.H{
		"username": username, "password": "secret1", "first_name": "Jane", "last_name": "Roe",
		"assigned_doctor_id": doctorUserID, "symptoms": "fever", "mobile": "555-0199", "address": "12 Elm Street",
	}, adminToken)
	require.Equal(e.t, http.StatusCreated, w.Code, w.Body.String())

	var p created
	require.NoError(e.t, json.Unmarshal(decode(e.t, w).Data, &p))
	return p
}

func idPath(prefix string, id uint) string {
	return prefix + strconv.FormatUint(uint64(id), 10)
}

func TestDoctorApprovalFlow(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()
	doc := env.signupDoctor("house", "Diagnostics")

	token, redirect := env.login("house")
	assert.Equal(t, service.DestDoctorWait, redirect)

	w := env.do(http.MethodGet, "/doctor/dashboard", nil, token)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(http.MethodGet, "/doctor/wait-approval", nil, token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"approved":false`)

	w = env.do(http.MethodPost, idPath("/doctor/approve/", doc.ID), nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// approving twice is harmless
	w = env.do(http.MethodPost, idPath("/doctor/approve/", doc.ID), nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/doctor/dashboard", nil, token)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	_, redirect = env.login("house")
	assert.Equal(t, service.DestDoctorDashboard, redirect)
}

func TestRejectDoctor_DeletesAccount(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()
	doc := env.signupDoctor("house", "Diagnostics")

	w := env.do(http.MethodPost, idPath("/doctor/reject/", doc.ID), nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodPost, idPath("/doctor/approve/", doc.ID), nil, adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPost, "/auth/login", gin.H{"username": "house", "password": "secret1"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGates_RedirectToLogin(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()

	tests := []struct {
		method, path, token, location string
	}{
		{http.MethodGet, "/admin/dashboard", "", "/admin/login"},
		{http.MethodPost, "/doctor/approve/1", "", "/admin/login"},
		{http.MethodGet, "/doctor/dashboard", adminToken, "/doctor/login"},
		{http.MethodGet, "/patient/search-doctor", adminToken, "/patient/login"},
		{http.MethodPost, "/patient/discharge/1", "", "/admin/login"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := env.do(tt.method, tt.path, nil, tt.token)
			assert.Equal(t, http.StatusFound, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
		})
	}
}

func TestAfterLogin_UsesCookie(t *testing.T) {
	env := newTestEnv(t)
	env.signupAdmin()

	w := env.do(http.MethodPost, "/auth/login", gin.H{"username": "root", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/afterlogin", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, service.DestAdminDashboard, rec.Header().Get("Location"))
}

func TestSignup_ValidationEchoesInput(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/auth/doctor/signup", gin.H{
		"username": "house", "password": "secret1", "first_name": "Gregory",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)

	env1 := decode(t, w)
	assert.Equal(t, "is required", env1.Fields["department"])
	assert.Equal(t, "house", env1.Input["username"])
	assert.NotContains(t, env1.Input, "password")
}

func TestSignup_DuplicateUsername(t *testing.T) {
	env := newTestEnv(t)
	env.signupDoctor("house", "Diagnostics")

	w := env.do(http.MethodPost, "/auth/doctor/signup", gin.H{
		"username": "house", "password": "secret1", "first_name": "Other",
		"department": "Oncology", "mobile": "555-0102", "address": "2 Clinic Road",
	}, "")
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Fields, "username")
}

func TestDischargeAndBill(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()
	doc := env.signupDoctor("house", "Diagnostics")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, idPath("/doctor/approve/", doc.ID), nil, adminToken).Code)
	patient := env.addPatient(adminToken, "jane", doc.UserID)

	patientToken, redirect := env.login("jane")
	assert.Equal(t, service.DestPatientDashboard, redirect)

	w := env.do(http.MethodGet, "/patient/discharge", nil, patientToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_discharged":false`)

	w = env.do(http.MethodPost, idPath("/patient/discharge/", patient.ID), gin.H{
		"room_charge": "abc", "doctor_fee": 500, "medicine_cost": 200, "other_charge": 50,
	}, adminToken)
	require.Equal(t, http.StatusBadRequest, w.Code)
	bad := decode(t, w)
	assert.Contains(t, bad.Fields, "room_charge")
	assert.Equal(t, "abc", bad.Input["room_charge"])

	// admitted today, so no room days are charged
	w = env.do(http.MethodPost, idPath("/patient/discharge/", patient.ID), gin.H{
		"room_charge": 100, "doctor_fee": 500, "medicine_cost": 200, "other_charge": 50,
	}, adminToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var bill struct {
		DaysStayed int    `json:"days_stayed"`
		Total      int    `json:"total"`
		Doctor     string `json:"assigned_doctor_name"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &bill))
	assert.Equal(t, 0, bill.DaysStayed)
	assert.Equal(t, 750, bill.Total)
	assert.Equal(t, "Gregory", bill.Doctor)

	w = env.do(http.MethodGet, "/patient/discharge", nil, patientToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"is_discharged":true`)

	w = env.do(http.MethodGet, "/patient/bill.pdf", nil, patientToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestBillPDF_NoBill(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()

	w := env.do(http.MethodGet, "/admin/patients/42/bill.pdf", nil, adminToken)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodGet, "/admin/patients/abc/bill.pdf", nil, adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAppointments_BookAndApprove(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()
	doc := env.signupDoctor("house", "Diagnostics")
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, idPath("/doctor/approve/", doc.ID), nil, adminToken).Code)
	env.addPatient(adminToken, "jane", doc.UserID)
	patientToken, _ := env.login("jane")
	doctorToken, _ := env.login("house")

	w := env.do(http.MethodPost, "/patient/appointments", gin.H{
		"doctor_id": doc.UserID, "description": "checkup",
	}, patientToken)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var appt struct {
		ID       uint `json:"id"`
		Approved bool `json:"approved"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &appt))
	assert.False(t, appt.Approved)

	w = env.do(http.MethodGet, "/admin/appointments?status=pending", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkup")

	w = env.do(http.MethodPost, idPath("/admin/appointments/", appt.ID)+"/approve", nil, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(http.MethodGet, "/doctor/appointments", nil, doctorToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "checkup")

	w = env.do(http.MethodDelete, idPath("/doctor/appointments/", appt.ID), nil, doctorToken)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/patient/appointments", nil, patientToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "checkup")
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()
	cardio := env.signupDoctor("heart", "Cardiology")
	neuro := env.signupDoctor("brain", "Neurology")
	for _, d := range []created{cardio, neuro} {
		require.Equal(t, http.StatusOK, env.do(http.MethodPost, idPath("/doctor/approve/", d.ID), nil, adminToken).Code)
	}
	env.addPatient(adminToken, "jane", cardio.UserID)
	patientToken, _ := env.login("jane")
	doctorToken, _ := env.login("heart")

	w := env.do(http.MethodGet, "/patient/search-doctor?query=CARD", nil, patientToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Cardiology")
	assert.NotContains(t, w.Body.String(), "Neurology")

	w = env.do(http.MethodGet, "/patient/search-doctor?query=", nil, patientToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Neurology")

	w = env.do(http.MethodGet, "/doctor/search?query=fev", nil, doctorToken)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fever")
}

func TestLogout_ClearsCookies(t *testing.T) {
	env := newTestEnv(t)
	env.signupAdmin()

	w := env.do(http.MethodPost, "/auth/login", gin.H{"username": "root", "password": "secret1"}, "")
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	for _, c := range rec.Result().Cookies() {
		assert.Empty(t, c.Value)
	}

	// the revoked refresh token no longer works
	req = httptest.NewRequest(http.MethodPost, "/auth/refresh", nil)
	for _, c := range w.Result().Cookies() {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSignupAdmin_DisabledByDefault(t *testing.T) {
	env := newTestEnvWith(t, AuthConfig{AccessTTL: time.Minute, RefreshTTL: time.Hour})

	w := env.do(http.MethodPost, "/auth/admin/signup", gin.H{
		"username": "root", "password": "secret1", "first_name": "Ada",
	}, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	_, err := env.store.Users().GetByUsername(context.Background(), "root")
	assert.Error(t, err)
}

func TestSignup_FormEncoded(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{
		"username":   {"house"},
		"password":   {"secret1"},
		"first_name": {"Gregory"},
		"department": {"Diagnostics"},
		"mobile":     {"555-0101"},
		"address":    {"1 Clinic Road"},
	}
	req := httptest.NewRequest(http.MethodPost, "/auth/doctor/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	user, err := env.store.Users().GetByUsername(context.Background(), "house")
	require.NoError(t, err)
	doctor, err := env.store.Doctors().GetByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Diagnostics", doctor.Department)
	assert.Equal(t, "1 Clinic Road", doctor.Address)

	token, redirect := env.login("house")
	assert.NotEmpty(t, token)
	assert.Equal(t, service.DestDoctorWait, redirect)
}

func TestUpdatePatient_Reassigns(t *testing.T) {
	env := newTestEnv(t)
	adminToken := env.signupAdmin()
	house := env.signupDoctor("house", "Diagnostics")
	wilson := env.signupDoctor("wilson", "Oncology")
	for _, d := range []created{house, wilson} {
		w := env.do(http.MethodPost, idPath("/doctor/approve/", d.ID), nil, adminToken)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}
	jane := env.addPatient(adminToken, "jane", house.UserID)

	update := gin.H{
		"username": "jane", "first_name": "Janet", "last_name": "Roe",
		"assigned_doctor_id": wilson.UserID, "symptoms": "migraine", "mobile": "555-0199", "address": "12 Elm Street",
	}
	w := env.do(http.MethodPut, idPath("/admin/patients/", jane.ID), update, adminToken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var patient struct {
		AssignedDoctorID uint   `json:"assigned_doctor_id"`
		Symptoms         string `json:"symptoms"`
		Approved         bool   `json:"approved"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &patient))
	assert.Equal(t, wilson.UserID, patient.AssignedDoctorID)
	assert.Equal(t, "migraine", patient.Symptoms)
	assert.True(t, patient.Approved)

	// an empty password keeps the old one
	env.login("jane")

	update["assigned_doctor_id"] = uint(9999)
	w = env.do(http.MethodPut, idPath("/admin/patients/", jane.ID), update, adminToken)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Fields, "assigned_doctor_id")
}
