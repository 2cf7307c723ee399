package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hospital-portal/internal/models"
	"hospital-portal/internal/repository"
	"hospital-portal/pkg/utils"
)

type AuthService struct {
	store    repository.Store
	tokens   *utils.TokenIssuer
	identity *IdentityService
	now      func() time.Time
}

func NewAuthService(store repository.Store, tokens *utils.TokenIssuer, identity *IdentityService) *AuthService {
	return &AuthService{
		store:    store,
		tokens:   tokens,
		identity: identity,
		now:      time.Now,
	}
}

// LoginResponse represents the response structure for login
type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"-"`
	User         UserResponse `json:"user"`
	Redirect     string       `json:"redirect"`
}

type UserResponse struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role"`
	Approved  bool   `json:"approved"`
}

// Login authenticates a user, issues tokens and picks the landing page
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResponse, error) {
	// Find user by username
	user, err := s.store.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	// Compare password
	if !utils.ComparePassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	principal, err := s.identity.Resolve(ctx, user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}

	// Generate access token
	accessToken, err := s.tokens.AccessToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken := s.tokens.RefreshToken()
	err = s.store.Transaction(ctx, func(tx repository.Store) error {
		// Hash and store refresh token
		token := &models.RefreshToken{
			UserID:    user.ID,
			TokenHash: s.tokens.HashRefreshToken(refreshToken),
			ExpiresAt: s.now().Add(s.tokens.RefreshExpiry()),
		}
		if err := tx.Users().CreateRefreshToken(ctx, token); err != nil {
			return fmt.Errorf("failed to store refresh token: %w", err)
		}
		return writeAudit(ctx, tx, user.ID, "user_login", fmt.Sprintf("User %s logged in", username))
	})
	if err != nil {
		return nil, err
	}

	return &LoginResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         userResponse(user, principal.Approved),
		Redirect:     AfterLogin(principal),
	}, nil
}

// Refresh generates a new access token from a refresh token
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	token, err := s.store.Users().FindRefreshTokenByHash(ctx, s.tokens.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load refresh token: %w", err)
	}

	// Check if token is expired
	if s.now().After(token.ExpiresAt) {
		return "", ErrInvalidCredentials
	}

	accessToken, err := s.tokens.AccessToken(token.User.ID, token.User.Role)
	if err != nil {
		return "", fmt.Errorf("failed to generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.store.Users().RevokeRefreshTokenByHash(ctx, s.tokens.HashRefreshToken(refreshToken)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}

// SignupAdmin creates an administrator account
func (s *AuthService) SignupAdmin(ctx context.Context, in AccountInput) (*models.User, error) {
	var user *models.User
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		user, err = createUser(ctx, tx, in, models.RoleAdmin)
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, user.ID, "admin_signup", fmt.Sprintf("Admin %s signed up", user.Username))
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SignupDoctor creates a doctor account awaiting approval
func (s *AuthService) SignupDoctor(ctx context.Context, in DoctorInput) (*models.Doctor, error) {
	var doctor *models.Doctor
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		doctor, err = createDoctor(ctx, tx, in, false)
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, doctor.UserID, "doctor_signup", fmt.Sprintf("Doctor %s requested approval", doctor.User.Username))
	})
	if err != nil {
		return nil, err
	}
	return doctor, nil
}

// SignupPatient creates a patient account awaiting approval, admitted today
func (s *AuthService) SignupPatient(ctx context.Context, in PatientInput) (*models.Patient, error) {
	var patient *models.Patient
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		var err error
		patient, err = createPatient(ctx, tx, in, false, s.now())
		if err != nil {
			return err
		}
		return writeAudit(ctx, tx, patient.UserID, "patient_signup", fmt.Sprintf("Patient %s requested approval", patient.User.Username))
	})
	if err != nil {
		return nil, err
	}
	return patient, nil
}

func userResponse(u *models.User, approved bool) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Role:      u.Role,
		Approved:  approved,
	}
}
