package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
)

type BuggyRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, buggy *models.Buggy) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Buggy, error)
	GetByCode(ctx context.Context, hotelID primitive.ObjectID, code string) (*models.Buggy, error)
	List(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Buggy, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Status operations
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BuggyStatus) error
	// SetOffline clears the parking location and marks the buggy offline in
	// a single update. Used by the logout cleanup.
	SetOffline(ctx context.Context, id primitive.ObjectID) error

	// Location operations
	SetLocation(ctx context.Context, id, locationID primitive.ObjectID) error
	ClearLocation(ctx context.Context, id primitive.ObjectID) error
	GetByLocation(ctx context.Context, locationID primitive.ObjectID) ([]*models.Buggy, error)
}
