package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

type SessionHandler struct {
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

type selectLocationRequest struct {
	BuggyID    string `json:"buggy_id" binding:"required"`
	LocationID string `json:"location_id" binding:"required"`
}

// SelectLocation parks the driver's buggy at a pickup point and makes it
// available for dispatch. Required after every login.
func (h *SessionHandler) SelectLocation(c *gin.Context) {
	var request selectLocationRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	buggyID, err := primitive.ObjectIDFromHex(request.BuggyID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid buggy ID")
		return
	}
	locationID, err := primitive.ObjectIDFromHex(request.LocationID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid location ID")
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.sessionService.SelectLocation(c.Request.Context(), driverID, buggyID, locationID); err != nil {
		switch {
		case errors.Is(err, services.ErrNoActiveSession):
			utils.ErrorResponse(c, http.StatusConflict, "NO_ACTIVE_SESSION", "No active session on this buggy")
		case errors.Is(err, services.ErrLocationNotFound):
			utils.NotFoundResponse(c, "Location")
		case errors.Is(err, services.ErrBuggyNotFound):
			utils.NotFoundResponse(c, "Buggy")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "LOCATION_SELECT_FAILED", "Failed to select location")
		}
		return
	}

	utils.SuccessResponse(c, "Location selected successfully", nil)
}
