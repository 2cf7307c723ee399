package handler

import (
	"context"
	"net/http"

	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves the administrator's approval, account, appointment and discharge screens
type AdminHandler struct {
	approvals    *service.ApprovalService
	appointments *service.AppointmentService
	billing      *service.BillingService
	search       *service.SearchService
}

func NewAdminHandler(
	approvals *service.ApprovalService,
	appointments *service.AppointmentService,
	billing *service.BillingService,
	search *service.SearchService,
) *AdminHandler {
	return &AdminHandler{
		approvals:    approvals,
		appointments: appointments,
		billing:      billing,
		search:       search,
	}
}

func (h *AdminHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.search.AdminDashboard(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, dashboard)
}

// pendingParam reads ?status=pending, anything else lists approved records
func pendingParam(c *gin.Context) bool {
	return c.Query("status") == "pending"
}

// ListDoctors handles GET /admin/doctors?status=pending|approved
func (h *AdminHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.approvals.Doctors(c.Request.Context(), !pendingParam(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, doctors)
}

func (h *AdminHandler) AddDoctor(c *gin.Context) {
	var req service.DoctorInput
	if !bind(c, &req) {
		return
	}

	doctor, err := h.approvals.AddDoctor(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, doctor)
}

func (h *AdminHandler) UpdateDoctor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.DoctorUpdate
	if !bind(c, &req) {
		return
	}

	doctor, err := h.approvals.UpdateDoctor(c.Request.Context(), principal(c), id, req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.SuccessResponse(c, doctor)
}

func (h *AdminHandler) DeleteDoctor(c *gin.Context) {
	h.idAction(c, h.approvals.DeleteDoctor, "Doctor deleted")
}

func (h *AdminHandler) ApproveDoctor(c *gin.Context) {
	h.idAction(c, h.approvals.ApproveDoctor, "Doctor approved")
}

func (h *AdminHandler) RejectDoctor(c *gin.Context) {
	h.idAction(c, h.approvals.RejectDoctor, "Doctor rejected")
}

// idAction runs an id-only workflow step and answers with a message
func (h *AdminHandler) idAction(c *gin.Context, action func(context.Context, service.Principal, uint) error, message string) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := action(c.Request.Context(), principal(c), id); err != nil {
		respondError(c, err, nil)
		return
	}
	utils.MessageResponse(c, message)
}

func (h *AdminHandler) ListPatients(c *gin.Context) {
	patients, err := h.approvals.Patients(c.Request.Context(), !pendingParam(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, patients)
}

func (h *AdminHandler) AddPatient(c *gin.Context) {
	var req service.PatientInput
	if !bind(c, &req) {
		return
	}

	patient, err := h.approvals.AddPatient(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, patient)
}

func (h *AdminHandler) UpdatePatient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.PatientUpdate
	if !bind(c, &req) {
		return
	}

	patient, err := h.approvals.UpdatePatient(c.Request.Context(), principal(c), id, req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.SuccessResponse(c, patient)
}

func (h *AdminHandler) DeletePatient(c *gin.Context) {
	h.idAction(c, h.approvals.DeletePatient, "Patient deleted")
}

func (h *AdminHandler) ApprovePatient(c *gin.Context) {
	h.idAction(c, h.approvals.ApprovePatient, "Patient approved")
}

func (h *AdminHandler) RejectPatient(c *gin.Context) {
	h.idAction(c, h.approvals.RejectPatient, "Patient rejected")
}

// ListAppointments handles GET /admin/appointments?status=pending|approved
func (h *AdminHandler) ListAppointments(c *gin.Context) {
	list := h.appointments.Confirmed
	if pendingParam(c) {
		list = h.appointments.Pending
	}

	appointments, err := list(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, appointments)
}

func (h *AdminHandler) CreateAppointment(c *gin.Context) {
	var req service.AppointmentInput
	if !bind(c, &req) {
		return
	}

	appointment, err := h.appointments.CreateByAdmin(c.Request.Context(), principal(c), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, appointment)
}

func (h *AdminHandler) ApproveAppointment(c *gin.Context) {
	h.idAction(c, h.appointments.Approve, "Appointment approved")
}

func (h *AdminHandler) RejectAppointment(c *gin.Context) {
	h.idAction(c, h.appointments.Reject, "Appointment rejected")
}

// DischargePreview shows the discharge form for a patient before charges are entered
func (h *AdminHandler) DischargePreview(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	preview, err := h.billing.Preview(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, preview)
}

// Discharge handles POST /patient/discharge/:id
func (h *AdminHandler) Discharge(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req service.ChargeInput
	if err := c.ShouldBind(&req); err != nil {
		utils.ValidationErrorResponse(c, map[string]string{"body": "malformed request body"}, nil)
		return
	}

	bill, err := h.billing.Discharge(c.Request.Context(), principal(c), id, req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, bill)
}

// BillPDF serves the patient's current bill as a PDF
func (h *AdminHandler) BillPDF(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	servePDF(c, h.billing, id)
}

func servePDF(c *gin.Context, billing *service.BillingService, patientID uint) {
	pdf, err := billing.DownloadPDF(c.Request.Context(), patientID)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="bill.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
