package handler

import (
	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// PatientHandler serves an approved patient's own screens
type PatientHandler struct {
	appointments *service.AppointmentService
	billing      *service.BillingService
	search       *service.SearchService
}

func NewPatientHandler(appointments *service.AppointmentService, billing *service.BillingService, search *service.SearchService) *PatientHandler {
	return &PatientHandler{
		appointments: appointments,
		billing:      billing,
		search:       search,
	}
}

func (h *PatientHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.search.PatientDashboard(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, dashboard)
}

// SearchDoctors handles GET /patient/search-doctor?query=
func (h *PatientHandler) SearchDoctors(c *gin.Context) {
	doctors, err := h.search.SearchDoctors(c.Request.Context(), c.Query("query"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, doctors)
}

func (h *PatientHandler) BookAppointment(c *gin.Context) {
	var req service.BookingInput
	if !bind(c, &req) {
		return
	}

	appointment, err := h.appointments.BookByPatient(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, appointment)
}

func (h *PatientHandler) Appointments(c *gin.Context) {
	appointments, err := h.appointments.ForPatient(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, appointments)
}

// Discharge shows the patient's latest bill, or is_discharged=false when there is none
func (h *PatientHandler) Discharge(c *gin.Context) {
	view, err := h.billing.PatientDischarge(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, view)
}

// BillPDF downloads the patient's own current bill
func (h *PatientHandler) BillPDF(c *gin.Context) {
	view, err := h.billing.PatientDischarge(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	servePDF(c, h.billing, view.PatientID)
}
