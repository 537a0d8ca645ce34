package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type BuggyStatus string

const (
	BuggyStatusAvailable   BuggyStatus = "available"
	BuggyStatusBusy        BuggyStatus = "busy"
	BuggyStatusMaintenance BuggyStatus = "maintenance"
	BuggyStatusOffline     BuggyStatus = "offline"
)

// BuggyIconPalette is the fixed set of dashboard icons a buggy can be
// assigned at creation time. Cosmetic only.
var BuggyIconPalette = []string{
	"buggy-green",
	"buggy-blue",
	"buggy-orange",
	"buggy-purple",
	"buggy-red",
	"buggy-teal",
}

type Buggy struct {
	ID                primitive.ObjectID  `json:"id" bson:"_id,omitempty"`
	HotelID           primitive.ObjectID  `json:"hotel_id" bson:"hotel_id" validate:"required"`
	Code              string              `json:"code" bson:"code" validate:"required"`
	Status            BuggyStatus         `json:"status" bson:"status" default:"offline"`
	CurrentLocationID *primitive.ObjectID `json:"current_location_id" bson:"current_location_id"`
	IsActive          bool                `json:"is_active" bson:"is_active" default:"true"`
	Icon              string              `json:"icon" bson:"icon"`
	CreatedAt         time.Time           `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time           `json:"updated_at" bson:"updated_at"`
}

func (b *Buggy) HasLocation() bool {
	return b.CurrentLocationID != nil && !b.CurrentLocationID.IsZero()
}

func IsValidBuggyStatus(status BuggyStatus) bool {
	switch status {
	case BuggyStatusAvailable, BuggyStatusBusy, BuggyStatusMaintenance, BuggyStatusOffline:
		return true
	}
	return false
}
