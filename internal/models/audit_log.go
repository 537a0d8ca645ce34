package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AuditAction string

const (
	AuditActionCreate AuditAction = "create"
	AuditActionUpdate AuditAction = "update"
	AuditActionDelete AuditAction = "delete"
	AuditActionLogin  AuditAction = "login"
	AuditActionLogout AuditAction = "logout"
)

type AuditLog struct {
	ID         primitive.ObjectID     `json:"id" bson:"_id,omitempty"`
	HotelID    primitive.ObjectID     `json:"hotel_id" bson:"hotel_id"`
	UserID     *primitive.ObjectID    `json:"user_id" bson:"user_id"`
	Action     AuditAction            `json:"action" bson:"action" validate:"required"`
	EntityType string                 `json:"entity_type" bson:"entity_type" validate:"required"`
	EntityID   string                 `json:"entity_id" bson:"entity_id"`
	Values     map[string]interface{} `json:"values" bson:"values"`
	CreatedAt  time.Time              `json:"created_at" bson:"created_at"`
}
