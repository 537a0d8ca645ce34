package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserRole string
type UserStatus string

const (
	UserRoleDriver UserRole = "driver"
	UserRoleAdmin  UserRole = "admin"

	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

type User struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	HotelID     primitive.ObjectID `json:"hotel_id" bson:"hotel_id" validate:"required"`
	FirstName   string             `json:"first_name" bson:"first_name" validate:"required"`
	LastName    string             `json:"last_name" bson:"last_name" validate:"required"`
	Email       string             `json:"email" bson:"email" validate:"required,email"`
	Password    string             `json:"-" bson:"password" validate:"required"`
	Role        UserRole           `json:"role" bson:"role" validate:"required"`
	Status      UserStatus         `json:"status" bson:"status" default:"active"`
	LastLoginAt *time.Time         `json:"last_login_at" bson:"last_login_at"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}

func (u *User) IsDriver() bool {
	return u.Role == UserRoleDriver
}
