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

type assignmentRepository struct {
	collection *mongo.Collection
}

func NewAssignmentRepository(db *mongo.Database) interfaces.AssignmentRepository {
	return &assignmentRepository{
		collection: db.Collection(utils.CollectionAssignments),
	}
}

func (r *assignmentRepository) Create(ctx context.Context, assignment *models.BuggyAssignment) error {
	assignment.ID = primitive.NewObjectID()
	assignment.AssignedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, assignment)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
	}

	return nil
}

func (r *assignmentRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.BuggyAssignment, error) {
	var assignment models.BuggyAssignment
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&assignment)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("assignment %w", interfaces.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}

	return &assignment, nil
}

func (r *assignmentRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("assignment %w", interfaces.ErrNotFound)
	}

	return nil
}

func (r *assignmentRepository) GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.findAssignments(ctx, bson.M{"driver_id": driverID})
}

func (r *assignmentRepository) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.findAssignments(ctx, bson.M{
		"driver_id": driverID,
		"is_active": true,
	})
}

func (r *assignmentRepository) GetActiveByBuggy(ctx context.Context, buggyID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.findAssignments(ctx, bson.M{
		"buggy_id":  buggyID,
		"is_active": true,
	})
}

func (r *assignmentRepository) GetActiveByBuggyExcluding(ctx context.Context, buggyID, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.findAssignments(ctx, bson.M{
		"buggy_id":  buggyID,
		"driver_id": bson.M{"$ne": driverID},
		"is_active": true,
	})
}

func (r *assignmentRepository) HasActiveByBuggy(ctx context.Context, buggyID primitive.ObjectID) (bool, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{
		"buggy_id":  buggyID,
		"is_active": true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to count active assignments: %w", err)
	}

	return count > 0, nil
}

func (r *assignmentRepository) Activate(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"is_active":      true,
			"last_active_at": at,
		}},
	)
	if err != nil {
		// The partial unique index on active assignments rejects the flip
		// when another driver holds the buggy.
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("assignment %s: %w", id.Hex(), interfaces.ErrActiveConflict)
		}
		return fmt.Errorf("failed to activate assignment: %w", err)
	}

	return nil
}

func (r *assignmentRepository) Deactivate(ctx context.Context, id primitive.ObjectID) (bool, error) {
	// Matching on is_active keeps a stale deactivation from counting as a
	// transition when a concurrent login already flipped the assignment.
	result, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to deactivate assignment: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

func (r *assignmentRepository) SetPrimary(ctx context.Context, id primitive.ObjectID, primary bool) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"is_primary": primary}},
	)
	if err != nil {
		return fmt.Errorf("failed to set primary flag: %w", err)
	}

	return nil
}

func (r *assignmentRepository) findAssignments(ctx context.Context, filter bson.M) ([]*models.BuggyAssignment, error) {
	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find assignments: %w", err)
	}
	defer cursor.Close(ctx)

	var assignments []*models.BuggyAssignment
	for cursor.Next(ctx) {
		var assignment models.BuggyAssignment
		if err := cursor.Decode(&assignment); err != nil {
			return nil, fmt.Errorf("failed to decode assignment: %w", err)
		}
		assignments = append(assignments, &assignment)
	}

	return assignments, nil
}
