package handler

import (
	"hospital-portal/internal/middleware"
	"hospital-portal/internal/models"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
)

// Handlers groups every route handler the portal serves
type Handlers struct {
	Auth    *AuthHandler
	Admin   *AdminHandler
	Doctor  *DoctorHandler
	Patient *PatientHandler
}

// RegisterRoutes mounts the portal routes on r
func RegisterRoutes(r *gin.Engine, h Handlers, auth *middleware.Auth) {
	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"status":  "healthy",
			"service": "hospital-portal",
		})
	})

	// Auth routes (public)
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/admin/signup", h.Auth.SignupAdmin)
		authGroup.POST("/doctor/signup", h.Auth.SignupDoctor)
		authGroup.POST("/patient/signup", h.Auth.SignupPatient)
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/refresh", h.Auth.Refresh)
		authGroup.POST("/logout", h.Auth.Logout)
	}
	r.GET("/afterlogin", auth.AuthMiddleware(), h.Auth.AfterLogin)

	requireAdmin := auth.RequireRole(models.RoleAdmin)
	requireDoctor := auth.RequireRole(models.RoleDoctor)
	requirePatient := auth.RequireRole(models.RolePatient)

	// Admin routes
	r.GET("/admin/login", h.Auth.LoginPage(models.RoleAdmin))
	admin := r.Group("/admin", requireAdmin)
	{
		admin.GET("/dashboard", h.Admin.Dashboard)

		admin.GET("/doctors", h.Admin.ListDoctors)
		admin.POST("/doctors", h.Admin.AddDoctor)
		admin.PUT("/doctors/:id", h.Admin.UpdateDoctor)
		admin.DELETE("/doctors/:id", h.Admin.DeleteDoctor)

		admin.GET("/patients", h.Admin.ListPatients)
		admin.POST("/patients", h.Admin.AddPatient)
		admin.PUT("/patients/:id", h.Admin.UpdatePatient)
		admin.DELETE("/patients/:id", h.Admin.DeletePatient)
		admin.GET("/patients/:id/discharge", h.Admin.DischargePreview)
		admin.GET("/patients/:id/bill.pdf", h.Admin.BillPDF)

		admin.GET("/appointments", h.Admin.ListAppointments)
		admin.POST("/appointments", h.Admin.CreateAppointment)
		admin.POST("/appointments/:id/approve", h.Admin.ApproveAppointment)
		admin.DELETE("/appointments/:id", h.Admin.RejectAppointment)
	}

	// Doctor routes. Approval actions on doctors are admin-only.
	r.GET("/doctor/login", h.Auth.LoginPage(models.RoleDoctor))
	r.POST("/doctor/approve/:id", requireAdmin, h.Admin.ApproveDoctor)
	r.POST("/doctor/reject/:id", requireAdmin, h.Admin.RejectDoctor)
	r.GET("/doctor/wait-approval", requireDoctor, h.Auth.WaitApproval)
	doctor := r.Group("/doctor", requireDoctor, middleware.RequireApproved())
	{
		doctor.GET("/dashboard", h.Doctor.Dashboard)
		doctor.GET("/patients", h.Doctor.Patients)
		doctor.GET("/search", h.Doctor.Patients)
		doctor.GET("/appointments", h.Doctor.Appointments)
		doctor.DELETE("/appointments/:id", h.Doctor.DeleteAppointment)
		doctor.GET("/discharged", h.Doctor.Discharged)
	}

	// Patient routes
	r.GET("/patient/login", h.Auth.LoginPage(models.RolePatient))
	r.POST("/patient/approve/:id", requireAdmin, h.Admin.ApprovePatient)
	r.POST("/patient/reject/:id", requireAdmin, h.Admin.RejectPatient)
	r.POST("/patient/discharge/:id", requireAdmin, h.Admin.Discharge)
	r.GET("/patient/wait-approval", requirePatient, h.Auth.WaitApproval)
	patient := r.Group("/patient", requirePatient, middleware.RequireApproved())
	{
		patient.GET("/dashboard", h.Patient.Dashboard)
		patient.GET("/search-doctor", h.Patient.SearchDoctors)
		patient.GET("/appointments", h.Patient.Appointments)
		patient.POST("/appointments", h.Patient.BookAppointment)
		patient.GET("/discharge", h.Patient.Discharge)
		patient.GET("/bill.pdf", h.Patient.BillPDF)
	}
}
