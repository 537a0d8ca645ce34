package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BuggyAssignment links one driver to one buggy. The buggy+driver pair is
// unique in storage; "at most one active assignment per buggy" is enforced
// by the session service, not by a storage index.
type BuggyAssignment struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	HotelID      primitive.ObjectID `json:"hotel_id" bson:"hotel_id" validate:"required"`
	BuggyID      primitive.ObjectID `json:"buggy_id" bson:"buggy_id" validate:"required"`
	DriverID     primitive.ObjectID `json:"driver_id" bson:"driver_id" validate:"required"`
	IsActive     bool               `json:"is_active" bson:"is_active" default:"false"`
	IsPrimary    bool               `json:"is_primary" bson:"is_primary" default:"false"`
	AssignedAt   time.Time          `json:"assigned_at" bson:"assigned_at"`
	LastActiveAt *time.Time         `json:"last_active_at" bson:"last_active_at"`
}
