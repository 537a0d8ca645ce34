package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
)

type AuditLogRepository interface {
	Create(ctx context.Context, auditLog *models.AuditLog) error
	GetByHotel(ctx context.Context, hotelID primitive.ObjectID, limit int64) ([]*models.AuditLog, error)
	GetByEntity(ctx context.Context, entityType, entityID string, limit int64) ([]*models.AuditLog, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]*models.AuditLog, error)
}
