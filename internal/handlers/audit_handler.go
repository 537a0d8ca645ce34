package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"buggydispatch/internal/services"
	"buggydispatch/internal/utils"
)

type AuditHandler struct {
	auditService services.AuditService
}

func NewAuditHandler(auditService services.AuditService) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
	}
}

// ListAuditLogs returns the hotel's recent audit entries, newest first.
// Filter by entity with ?entity_type=buggy&entity_id=<hex>.
func (h *AuditHandler) ListAuditLogs(c *gin.Context) {
	hotelID, ok := currentHotelID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)

	entityType := c.Query("entity_type")
	entityID := c.Query("entity_id")

	var (
		logs interface{}
		err  error
	)
	if entityType != "" && entityID != "" {
		logs, err = h.auditService.ListByEntity(c.Request.Context(), entityType, entityID, limit)
	} else {
		logs, err = h.auditService.ListByHotel(c.Request.Context(), hotelID, limit)
	}
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "AUDIT_LIST_FAILED", "Failed to list audit logs")
		return
	}

	utils.SuccessResponse(c, "Audit logs retrieved successfully", logs)
}
