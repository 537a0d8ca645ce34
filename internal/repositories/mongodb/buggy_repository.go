package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/internal/utils"
)

type buggyRepository struct {
	collection *mongo.Collection
}

func NewBuggyRepository(db *mongo.Database) interfaces.BuggyRepository {
	return &buggyRepository{
		collection: db.Collection(utils.CollectionBuggies),
	}
}

func (r *buggyRepository) Create(ctx context.Context, buggy *models.Buggy) error {
	buggy.ID = primitive.NewObjectID()
	buggy.CreatedAt = time.Now()
	buggy.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, buggy)
	if err != nil {
		return fmt.Errorf("failed to create buggy: %w", err)
	}

	return nil
}

func (r *buggyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Buggy, error) {
	var buggy models.Buggy
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&buggy)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("buggy %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buggy: %w", err)
	}

	return &buggy, nil
}

func (r *buggyRepository) GetByCode(ctx context.Context, hotelID primitive.ObjectID, code string) (*models.Buggy, error) {
	var buggy models.Buggy
	err := r.collection.FindOne(ctx, bson.M{"hotel_id": hotelID, "code": code}).Decode(&buggy)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("buggy %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get buggy: %w", err)
	}

	return &buggy, nil
}

func (r *buggyRepository) List(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Buggy, error) {
	return r.findBuggies(ctx, bson.M{"hotel_id": hotelID})
}

func (r *buggyRepository) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": updates},
	)
	if err != nil {
		return fmt.Errorf("failed to update buggy: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}

	return nil
}

func (r *buggyRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete buggy: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}

	return nil
}

func (r *buggyRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BuggyStatus) error {
	return r.Update(ctx, id, map[string]interface{}{"status": status})
}

func (r *buggyRepository) SetOffline(ctx context.Context, id primitive.ObjectID) error {
	return r.Update(ctx, id, map[string]interface{}{
		"status":              models.BuggyStatusOffline,
		"current_location_id": nil,
	})
}

func (r *buggyRepository) SetLocation(ctx context.Context, id, locationID primitive.ObjectID) error {
	return r.Update(ctx, id, map[string]interface{}{"current_location_id": locationID})
}

func (r *buggyRepository) ClearLocation(ctx context.Context, id primitive.ObjectID) error {
	return r.Update(ctx, id, map[string]interface{}{"current_location_id": nil})
}

func (r *buggyRepository) GetByLocation(ctx context.Context, locationID primitive.ObjectID) ([]*models.Buggy, error) {
	return r.findBuggies(ctx, bson.M{"current_location_id": locationID})
}

func (r *buggyRepository) findBuggies(ctx context.Context, filter bson.M) ([]*models.Buggy, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find buggies: %w", err)
	}
	defer cursor.Close(ctx)

	var buggies []*models.Buggy
	for cursor.Next(ctx) {
		var buggy models.Buggy
		if err := cursor.Decode(&buggy); err != nil {
			return nil, fmt.Errorf("failed to decode buggy: %w", err)
		}
		buggies = append(buggies, &buggy)
	}

	return buggies, nil
}
