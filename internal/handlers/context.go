package handlers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID returns the authenticated user's ID from the gin context.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	return contextObjectID(c, "user_id")
}

func currentHotelID(c *gin.Context) (primitive.ObjectID, bool) {
	return contextObjectID(c, "hotel_id")
}

func currentRole(c *gin.Context) string {
	return c.GetString("role")
}

func contextObjectID(c *gin.Context, key string) (primitive.ObjectID, bool) {
	value, exists := c.Get(key)
	if !exists {
		return primitive.NilObjectID, false
	}
	id, ok := value.(primitive.ObjectID)
	return id, ok
}
