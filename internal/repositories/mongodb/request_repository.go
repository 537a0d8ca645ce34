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

type requestRepository struct {
	collection *mongo.Collection
}

func NewRequestRepository(db *mongo.Database) interfaces.RequestRepository {
	return &requestRepository{
		collection: db.Collection(utils.CollectionRequests),
	}
}

func (r *requestRepository) Create(ctx context.Context, request *models.GuestRequest) error {
	request.ID = primitive.NewObjectID()
	request.CreatedAt = time.Now()
	request.UpdatedAt = time.Now()
	if request.Status == "" {
		request.Status = models.RequestStatusPending
	}

	_, err := r.collection.InsertOne(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create guest request: %w", err)
	}

	return nil
}

func (r *requestRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GuestRequest, error) {
	var request models.GuestRequest
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&request)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("guest request %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get guest request: %w", err)
	}

	return &request, nil
}

func (r *requestRepository) ListOpenByHotel(ctx context.Context, hotelID primitive.ObjectID) ([]*models.GuestRequest, error) {
	filter := bson.M{
		"hotel_id": hotelID,
		"status":   bson.M{"$nin": models.TerminalRequestStatuses},
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find guest requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.GuestRequest
	for cursor.Next(ctx) {
		var request models.GuestRequest
		if err := cursor.Decode(&request); err != nil {
			return nil, fmt.Errorf("failed to decode guest request: %w", err)
		}
		requests = append(requests, &request)
	}

	return requests, nil
}

func (r *requestRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error {
	updates := bson.M{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == models.RequestStatusCompleted {
		updates["completed_at"] = time.Now()
	}

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update guest request status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("guest request %w", interfaces.ErrNotFound)
	}

	return nil
}

func (r *requestRepository) AssignBuggy(ctx context.Context, id, buggyID, driverID primitive.ObjectID) error {
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"buggy_id":   buggyID,
			"driver_id":  driverID,
			"status":     models.RequestStatusAssigned,
			"updated_at": time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to assign buggy to guest request: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("guest request %w", interfaces.ErrNotFound)
	}

	return nil
}

func (r *requestRepository) CountOpenByLocation(ctx context.Context, locationID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"location_id": locationID,
		"status":      bson.M{"$nin": models.TerminalRequestStatuses},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count open guest requests: %w", err)
	}

	return count, nil
}
