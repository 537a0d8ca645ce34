package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "pending"
	RequestStatusAssigned  RequestStatus = "assigned"
	RequestStatusPickedUp  RequestStatus = "picked_up"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// TerminalRequestStatuses are the states a guest request cannot leave.
// Everything else counts as an open request and blocks location deletion.
var TerminalRequestStatuses = []RequestStatus{
	RequestStatusCompleted,
	RequestStatusCancelled,
}

type GuestRequest struct {
	ID          primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	HotelID     primitive.ObjectID  `json:"hotel_id" bson:"hotel_id" validate:"required"`
	LocationID  primitive.ObjectID  `json:"location_id" bson:"location_id" validate:"required"`
	BuggyID     *primitive.ObjectID `json:"buggy_id" bson:"buggy_id"`
	DriverID    *primitive.ObjectID `json:"driver_id" bson:"driver_id"`
	Status      RequestStatus       `json:"status" bson:"status" default:"pending"`
	GuestName   string              `json:"guest_name" bson:"guest_name"`
	RoomNumber  string              `json:"room_number" bson:"room_number"`
	PartySize   int                 `json:"party_size" bson:"party_size" default:"1"`
	Note        string              `json:"note" bson:"note"`
	CreatedAt   time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at" bson:"updated_at"`
	CompletedAt *time.Time          `json:"completed_at" bson:"completed_at"`
}

func (r *GuestRequest) IsTerminal() bool {
	for _, s := range TerminalRequestStatuses {
		if r.Status == s {
			return true
		}
	}
	return false
}
