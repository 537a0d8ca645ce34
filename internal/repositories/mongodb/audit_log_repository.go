package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/internal/utils"
)

type auditLogRepository struct {
	collection *mongo.Collection
}

func NewAuditLogRepository(db *mongo.Database) interfaces.AuditLogRepository {
	return &auditLogRepository{
		collection: db.Collection(utils.CollectionAuditLogs),
	}
}

func (r *auditLogRepository) Create(ctx context.Context, auditLog *models.AuditLog) error {
	auditLog.ID = primitive.NewObjectID()
	auditLog.CreatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, auditLog)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	return nil
}

func (r *auditLogRepository) GetByHotel(ctx context.Context, hotelID primitive.ObjectID, limit int64) ([]*models.AuditLog, error) {
	return r.findAuditLogs(ctx, bson.M{"hotel_id": hotelID}, limit)
}

func (r *auditLogRepository) GetByEntity(ctx context.Context, entityType, entityID string, limit int64) ([]*models.AuditLog, error) {
	return r.findAuditLogs(ctx, bson.M{
		"entity_type": entityType,
		"entity_id":   entityID,
	}, limit)
}

func (r *auditLogRepository) GetByUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]*models.AuditLog, error) {
	return r.findAuditLogs(ctx, bson.M{"user_id": userID}, limit)
}

func (r *auditLogRepository) findAuditLogs(ctx context.Context, filter bson.M, limit int64) ([]*models.AuditLog, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find audit logs: %w", err)
	}
	defer cursor.Close(ctx)

	var logs []*models.AuditLog
	for cursor.Next(ctx) {
		var log models.AuditLog
		if err := cursor.Decode(&log); err != nil {
			return nil, fmt.Errorf("failed to decode audit log: %w", err)
		}
		logs = append(logs, &log)
	}

	return logs, nil
}
