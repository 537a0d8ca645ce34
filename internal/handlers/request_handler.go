package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

type RequestHandler struct {
	requestService services.RequestService
}

func NewRequestHandler(requestService services.RequestService) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
	}
}

// CreateRequest is the public endpoint behind the QR codes guests scan. No
// authentication; the code itself scopes the request to a hotel and location.
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	var request services.CreateRequestRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	guestRequest, err := h.requestService.CreateRequest(c.Request.Context(), &request)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLocationNotFound):
			utils.NotFoundResponse(c, "Location")
		case services.IsValidation(err):
			utils.ValidationErrorResponse(c, err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "REQUEST_CREATE_FAILED", "Failed to create request")
		}
		return
	}

	utils.CreatedResponse(c, "Request created successfully", guestRequest)
}

// ListOpenRequests lists the hotel's open guest requests.
func (h *RequestHandler) ListOpenRequests(c *gin.Context) {
	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	requests, err := h.requestService.ListOpenRequests(c.Request.Context(), hotelID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "REQUEST_LIST_FAILED", "Failed to list requests")
		return
	}

	utils.SuccessResponse(c, "Requests retrieved successfully", requests)
}

// AcceptRequest lets a driver take a pending request with their active buggy.
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	guestRequest, err := h.requestService.AcceptRequest(c.Request.Context(), requestID, driverID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			utils.NotFoundResponse(c, "Request")
		case errors.Is(err, services.ErrNoActiveSession):
			utils.ErrorResponse(c, http.StatusConflict, "NO_ACTIVE_SESSION", "No active buggy session")
		case services.IsValidation(err):
			utils.ErrorResponse(c, http.StatusConflict, "REQUEST_NOT_PENDING", err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "REQUEST_ACCEPT_FAILED", "Failed to accept request")
		}
		return
	}

	utils.SuccessResponse(c, "Request accepted successfully", guestRequest)
}

// CompleteRequest marks a request delivered and releases the buggy.
func (h *RequestHandler) CompleteRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	driverID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.requestService.CompleteRequest(c.Request.Context(), requestID, driverID); err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			utils.NotFoundResponse(c, "Request")
		case services.IsValidation(err):
			utils.ErrorResponse(c, http.StatusConflict, "REQUEST_STATE_CONFLICT", err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "REQUEST_COMPLETE_FAILED", "Failed to complete request")
		}
		return
	}

	utils.SuccessResponse(c, "Request completed successfully", nil)
}

// CancelRequest cancels an open request.
func (h *RequestHandler) CancelRequest(c *gin.Context) {
	requestID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return
	}

	var actorID *primitive.ObjectID
	if userID, ok := currentUserID(c); ok {
		actorID = &userID
	}

	if err := h.requestService.CancelRequest(c.Request.Context(), requestID, actorID); err != nil {
		switch {
		case errors.Is(err, services.ErrRequestNotFound):
			utils.NotFoundResponse(c, "Request")
		case services.IsValidation(err):
			utils.ErrorResponse(c, http.StatusConflict, "REQUEST_STATE_CONFLICT", err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "REQUEST_CANCEL_FAILED", "Failed to cancel request")
		}
		return
	}

	utils.SuccessResponse(c, "Request cancelled successfully", nil)
}
