package services

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/pkg/logger"
)

// AuditService appends audit entries. Failures are returned so callers can
// log them; no caller treats an audit failure as fatal.
type AuditService interface {
	RecordAction(ctx context.Context, action models.AuditAction, entityType, entityID string, values map[string]interface{}, userID *primitive.ObjectID, hotelID primitive.ObjectID) error
	ListByHotel(ctx context.Context, hotelID primitive.ObjectID, limit int64) ([]*models.AuditLog, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit int64) ([]*models.AuditLog, error)
}

type auditService struct {
	auditLogRepo interfaces.AuditLogRepository
	logger       *logger.Logger
}

func NewAuditService(auditLogRepo interfaces.AuditLogRepository, logger *logger.Logger) AuditService {
	return &auditService{
		auditLogRepo: auditLogRepo,
		logger:       logger,
	}
}

func (s *auditService) RecordAction(ctx context.Context, action models.AuditAction, entityType, entityID string, values map[string]interface{}, userID *primitive.ObjectID, hotelID primitive.ObjectID) error {
	entry := &models.AuditLog{
		HotelID:    hotelID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Values:     values,
	}

	if err := s.auditLogRepo.Create(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("action", string(action)).Warn("Failed to write audit entry")
		return err
	}

	return nil
}

func (s *auditService) ListByHotel(ctx context.Context, hotelID primitive.ObjectID, limit int64) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditLogRepo.GetByHotel(ctx, hotelID, limit)
}

func (s *auditService) ListByEntity(ctx context.Context, entityType, entityID string, limit int64) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.auditLogRepo.GetByEntity(ctx, entityType, entityID, limit)
}
