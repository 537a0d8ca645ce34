package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
)

type RequestRepository interface {
	Create(ctx context.Context, request *models.GuestRequest) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.GuestRequest, error)
	ListOpenByHotel(ctx context.Context, hotelID primitive.ObjectID) ([]*models.GuestRequest, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error
	AssignBuggy(ctx context.Context, id, buggyID, driverID primitive.ObjectID) error

	// CountOpenByLocation counts non-terminal requests referencing a
	// location. Any open request blocks deleting that location.
	CountOpenByLocation(ctx context.Context, locationID primitive.ObjectID) (int64, error)
}
