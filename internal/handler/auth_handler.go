package handler

import (
	"net/http"
	"time"

	"hospital-portal/internal/service"
	"hospital-portal/pkg/utils"

	"github.com/gin-gonic/gin"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
)

// AuthConfig controls the session cookies set on login and whether admins may sign up over HTTP
type AuthConfig struct {
	Secure           bool
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
	AllowAdminSignup bool
}

type AuthHandler struct {
	authService *service.AuthService
	cfg         AuthConfig
}

func NewAuthHandler(authService *service.AuthService, cfg AuthConfig) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		cfg:         cfg,
	}
}

type LoginRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

// Login handles user authentication
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}

	response, err := h.authService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	// Browser clients ride on cookies, API clients on the returned token
	h.setCookie(c, accessTokenCookie, response.AccessToken, h.cfg.AccessTTL)
	h.setCookie(c, refreshTokenCookie, response.RefreshToken, h.cfg.RefreshTTL)

	utils.SuccessResponse(c, response)
}

// LoginPage tells a redirected client where to authenticate for role
func (h *AuthHandler) LoginPage(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		utils.SuccessResponse(c, gin.H{
			"role":  role,
			"login": "/auth/login",
		})
	}
}

// AfterLogin redirects an authenticated user to their dashboard or waiting page
func (h *AuthHandler) AfterLogin(c *gin.Context) {
	c.Redirect(http.StatusFound, service.AfterLogin(principal(c)))
}

// Refresh generates a new access token from refresh token
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie(refreshTokenCookie)
	if err != nil {
		utils.ErrorResponse(c, http.StatusUnauthorized, "Refresh token not found")
		return
	}

	accessToken, err := h.authService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, err, nil)
		return
	}

	h.setCookie(c, accessTokenCookie, accessToken, h.cfg.AccessTTL)
	utils.SuccessResponse(c, gin.H{
		"access_token": accessToken,
	})
}

// Logout revokes the refresh token and clears both cookies
func (h *AuthHandler) Logout(c *gin.Context) {
	if refreshToken, err := c.Cookie(refreshTokenCookie); err == nil {
		if err := h.authService.Logout(c.Request.Context(), refreshToken); err != nil {
			respondError(c, err, nil)
			return
		}
	}

	h.clearCookie(c, accessTokenCookie)
	h.clearCookie(c, refreshTokenCookie)
	utils.MessageResponse(c, "Logged out successfully")
}

// SignupAdmin is closed unless enabled; operators use the create-admin command instead
func (h *AuthHandler) SignupAdmin(c *gin.Context) {
	if !h.cfg.AllowAdminSignup {
		utils.ErrorResponse(c, http.StatusForbidden, "Admin signup is disabled, use the create-admin command")
		return
	}

	var req service.AccountInput
	if !bind(c, &req) {
		return
	}

	user, err := h.authService.SignupAdmin(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, gin.H{"user": user, "redirect": service.LoginPath(user.Role)})
}

func (h *AuthHandler) SignupDoctor(c *gin.Context) {
	var req service.DoctorInput
	if !bind(c, &req) {
		return
	}

	doctor, err := h.authService.SignupDoctor(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, gin.H{"doctor": doctor, "redirect": service.LoginPath(doctor.User.Role)})
}

func (h *AuthHandler) SignupPatient(c *gin.Context) {
	var req service.PatientInput
	if !bind(c, &req) {
		return
	}

	patient, err := h.authService.SignupPatient(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, req)
		return
	}
	utils.CreatedResponse(c, gin.H{"patient": patient, "redirect": service.LoginPath(patient.User.Role)})
}

// WaitApproval answers a logged-in doctor or patient whose account may still be pending
func (h *AuthHandler) WaitApproval(c *gin.Context) {
	p := principal(c)
	utils.SuccessResponse(c, gin.H{
		"approved": p.Approved,
		"redirect": service.AfterLogin(p),
	})
}

func (h *AuthHandler) setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, int(ttl.Seconds()), "/", "", h.cfg.Secure, true)
}

func (h *AuthHandler) clearCookie(c *gin.Context, name string) {
	c.SetCookie(name, "", -1, "/", "", h.cfg.Secure, true)
}
