package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Location struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	HotelID   primitive.ObjectID `json:"hotel_id" bson:"hotel_id" validate:"required"`
	Name      string             `json:"name" bson:"name" validate:"required"`
	Latitude  *float64           `json:"latitude" bson:"latitude"`
	Longitude *float64           `json:"longitude" bson:"longitude"`
	QRCode    string             `json:"qr_code" bson:"qr_code"`
	IsActive  bool               `json:"is_active" bson:"is_active" default:"true"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

func (l *Location) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}
