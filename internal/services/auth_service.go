package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"buggydispatch/internal/config"
	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/internal/utils"
	"buggydispatch/pkg/logger"
)

var ErrInvalidCredentials = errors.New("invalid email or password")
var ErrAccountSuspended = errors.New("account is suspended")

type AuthService interface {
	Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, userID, hotelID primitive.ObjectID, role models.UserRole) error
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`

	// Driver-only fields, zero for admins.
	NeedsLocationSelection bool                 `json:"needs_location_selection,omitempty"`
	ActivatedBuggyIDs      []primitive.ObjectID `json:"activated_buggy_ids,omitempty"`
}

type authService struct {
	userRepo interfaces.UserRepository
	sessions SessionStore
	driver   SessionService
	audit    AuditService
	security *config.SecurityConfig
	logger   *logger.Logger
}

func NewAuthService(
	userRepo interfaces.UserRepository,
	sessions SessionStore,
	driver SessionService,
	audit AuditService,
	security *config.SecurityConfig,
	logger *logger.Logger,
) AuthService {
	return &authService{
		userRepo: userRepo,
		sessions: sessions,
		driver:   driver,
		audit:    audit,
		security: security,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, request *LoginRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return nil, NewValidationError("validation failed: %v", err)
	}

	user, err := s.userRepo.GetByEmail(ctx, request.Email)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(request.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Status == models.UserStatusSuspended {
		return nil, ErrAccountSuspended
	}

	sessionID := uuid.New().String()
	token, err := utils.GenerateAccessToken(user.ID, user.HotelID, string(user.Role), sessionID, s.security.JWTSecret, s.security.JWTAccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	response := &AuthResponse{
		User:        user,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.security.JWTAccessTokenTTL.Seconds()),
	}

	if user.IsDriver() {
		if err := s.sessions.Put(ctx, user.ID, sessionID); err != nil {
			return nil, fmt.Errorf("failed to store session: %w", err)
		}
		result, err := s.driver.Login(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		response.NeedsLocationSelection = result.NeedsLocationSelection
		response.ActivatedBuggyIDs = result.ActivatedBuggyIDs
	}

	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID.Hex()).Warn("Failed to update last login")
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id": user.ID.Hex(),
		"role":    string(user.Role),
	}).Info("User logged in")

	return response, nil
}

func (s *authService) Logout(ctx context.Context, userID, hotelID primitive.ObjectID, role models.UserRole) error {
	if role == models.UserRoleDriver {
		return s.driver.Logout(ctx, userID, hotelID)
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionLogout, "user", userID.Hex(), nil, &userID, hotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit logout")
	}
	return nil
}
