package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
)

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Location, error)
	GetByQRCode(ctx context.Context, qrCode string) (*models.Location, error)
	List(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Location, error)
	Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
