package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

type LocationHandler struct {
	locationService services.LocationService
}

func NewLocationHandler(locationService services.LocationService) *LocationHandler {
	return &LocationHandler{
		locationService: locationService,
	}
}

// CreateLocation creates a pickup point with a fresh QR code.
func (h *LocationHandler) CreateLocation(c *gin.Context) {
	var request services.CreateLocationRequest
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

	location, err := h.locationService.CreateLocation(c.Request.Context(), &request, actorID)
	if err != nil {
		if services.IsValidation(err) {
			utils.ValidationErrorResponse(c, err.Error())
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "LOCATION_CREATE_FAILED", "Failed to create location")
		return
	}

	utils.CreatedResponse(c, "Location created successfully", location)
}

// GetLocation retrieves a single pickup point.
func (h *LocationHandler) GetLocation(c *gin.Context) {
	locationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid location ID")
		return
	}

	location, err := h.locationService.GetLocation(c.Request.Context(), locationID)
	if err != nil {
		if errors.Is(err, services.ErrLocationNotFound) {
			utils.NotFoundResponse(c, "Location")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "LOCATION_FETCH_FAILED", "Failed to get location")
		return
	}

	utils.SuccessResponse(c, "Location retrieved successfully", location)
}

// ListLocations lists the hotel's pickup points.
func (h *LocationHandler) ListLocations(c *gin.Context) {
	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	locations, err := h.locationService.ListLocations(c.Request.Context(), hotelID)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "LOCATION_LIST_FAILED", "Failed to list locations")
		return
	}

	utils.SuccessResponse(c, "Locations retrieved successfully", locations)
}

// DeleteLocation removes a pickup point if nothing blocks it. A location with
// open guest requests or with a parked buggy whose driver is still logged in
// is refused with a 409.
func (h *LocationHandler) DeleteLocation(c *gin.Context) {
	locationID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid location ID")
		return
	}

	actorID, ok := currentUserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	decision, err := h.locationService.DeleteLocation(c.Request.Context(), locationID, actorID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrLocationNotFound):
			utils.NotFoundResponse(c, "Location")
		case services.IsValidation(err):
			utils.ErrorResponse(c, http.StatusConflict, "LOCATION_DELETE_BLOCKED", err.Error())
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "LOCATION_DELETE_FAILED", "Failed to delete location")
		}
		return
	}

	utils.SuccessResponse(c, "Location deleted successfully", decision)
}
