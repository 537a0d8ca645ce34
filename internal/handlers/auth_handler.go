package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"buggydispatch/internal/models"
	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Login authenticates a user with email and password. For drivers this also
// activates their buggy assignments and reports whether a location selection
// is still required.
func (h *AuthHandler) Login(c *gin.Context) {
	var request services.LoginRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	response, err := h.authService.Login(c.Request.Context(), &request)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidCredentials):
			utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", err.Error())
		case errors.Is(err, services.ErrAccountSuspended):
			utils.ErrorResponse(c, http.StatusForbidden, "ACCOUNT_SUSPENDED", err.Error())
		case services.IsValidation(err):
			utils.ValidationErrorResponse(c, err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to log in")
		}
		return
	}

	utils.SuccessResponse(c, "Logged in successfully", response)
}

// Logout ends the session. For drivers the response is immediate; buggy state
// cleanup runs in the background.
func (h *AuthHandler) Logout(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.authService.Logout(c.Request.Context(), userID, hotelID, models.UserRole(currentRole(c))); err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to log out")
		return
	}

	utils.SuccessResponse(c, "Logged out successfully", nil)
}
