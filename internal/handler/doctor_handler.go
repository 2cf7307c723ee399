package handler

import (
	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// DoctorHandler serves an approved doctor's own screens
type DoctorHandler struct {
	appointments *service.AppointmentService
	search       *service.SearchService
}

func NewDoctorHandler(appointments *service.AppointmentService, search *service.SearchService) *DoctorHandler {
	return &DoctorHandler{
		appointments: appointments,
		search:       search,
	}
}

func (h *DoctorHandler) Dashboard(c *gin.Context) {
	dashboard, err := h.search.DoctorDashboard(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, dashboard)
}

// Patients lists the doctor's approved patients. The search route filters them with ?query=.
func (h *DoctorHandler) Patients(c *gin.Context) {
	patients, err := h.search.SearchPatients(c.Request.Context(), principal(c), c.Query("query"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, patients)
}

func (h *DoctorHandler) Appointments(c *gin.Context) {
	appointments, err := h.appointments.ForDoctor(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, appointments)
}

func (h *DoctorHandler) DeleteAppointment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.appointments.DeleteForDoctor(c.Request.Context(), principal(c), id); err != nil {
		respondError(c, err, nil)
		return
	}
	utils.MessageResponse(c, "Appointment deleted")
}

// Discharged lists bills issued under the doctor's name
func (h *DoctorHandler) Discharged(c *gin.Context) {
	bills, err := h.search.DischargedForDoctor(c.Request.Context(), principal(c))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	utils.SuccessResponse(c, bills)
}
