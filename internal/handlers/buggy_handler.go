package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

type BuggyHandler struct {
	buggyService services.BuggyService
}

func NewBuggyHandler(buggyService services.BuggyService) *BuggyHandler {
	return &BuggyHandler{
		buggyService: buggyService,
	}
}

// CreateBuggy registers a buggy in the hotel's fleet.
func (h *BuggyHandler) CreateBuggy(c *gin.Context) {
	var request services.CreateBuggyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}
	request.HotelID = hotelID

	actorID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	buggy, err := h.buggyService.CreateBuggy(c.Request.Context(), &request, actorID)
	if err != nil {
		if services.IsValidation(err) {
			utils.ValidationErrorResponse(c, err.Error())
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "BUGGY_CREATE_FAILED", "Failed to create buggy")
		return
	}

	utils.CreatedResponse(c, "Buggy created successfully", buggy)
}

// GetBuggy retrieves a single buggy.
func (h *BuggyHandler) GetBuggy(c *gin.Context) {
	buggyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid buggy ID")
		return
	}

	buggy, err := h.buggyService.GetBuggy(c.Request.Context(), buggyID)
	if err != nil {
		if errors.Is(err, services.ErrBuggyNotFound) {
			utils.NotFoundResponse(c, "Buggy")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "BUGGY_FETCH_FAILED", "Failed to get buggy")
		return
	}

	utils.SuccessResponse(c, "Buggy retrieved successfully", buggy)
}

// ListBuggies lists the hotel's fleet.
func (h *BuggyHandler) ListBuggies(c *gin.Context) {
	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	buggies, err := h.buggyService.ListBuggies(c.Request.Context(), hotelID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "BUGGY_LIST_FAILED", "Failed to list buggies")
		return
	}

	utils.SuccessResponse(c, "Buggies retrieved successfully", buggies)
}

type setStatusRequest struct {
	Status models.BuggyStatus `json:"status" binding:"required"`
}

// SetStatus lets an admin override a buggy's status directly.
func (h *BuggyHandler) SetStatus(c *gin.Context) {
	buggyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid buggy ID")
		return
	}

	var request setStatusRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	if err := h.buggyService.SetStatus(c.Request.Context(), buggyID, request.Status, actorID); err != nil {
		switch {
		case errors.Is(err, services.ErrBuggyNotFound):
			utils.NotFoundResponse(c, "Buggy")
		case services.IsValidation(err):
			utils.ValidationErrorResponse(c, err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "BUGGY_STATUS_FAILED", "Failed to update buggy status")
		}
		return
	}

	utils.SuccessResponse(c, "Buggy status updated successfully", nil)
}

type assignDriverRequest struct {
	DriverID string `json:"driver_id" binding:"required"`
	Primary  bool   `json:"primary"`
}

// AssignDriver links a driver to a buggy. The link stays inactive until the
// driver's next login.
func (h *BuggyHandler) AssignDriver(c *gin.Context) {
	buggyID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid buggy ID")
		return
	}

	var request assignDriverRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	driverID, err := primitive.ObjectIDFromHex(request.DriverID)
	if err != nil {
		utils.BadRequestResponse(c, "Invalid driver ID")
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	assignment, err := h.buggyService.AssignDriver(c.Request.Context(), buggyID, driverID, request.Primary, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrBuggyNotFound):
			utils.NotFoundResponse(c, "Buggy")
		case errors.Is(err, services.ErrDriverNotFound):
			utils.NotFoundResponse(c, "Driver")
		case errors.Is(err, services.ErrNotADriver):
			utils.BadRequestResponse(c, "User is not a driver")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "ASSIGNMENT_FAILED", "Failed to assign driver")
		}
		return
	}

	utils.CreatedResponse(c, "Driver assigned successfully", assignment)
}
