package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the dispatch code relies on. Most are
// ordinary query indexes, but the one on buggy_assignments is load-bearing:
// a partial unique index over active documents makes the database itself
// refuse a second live session on a buggy, whatever order two concurrent
// logins interleave their writes in.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for collection, indexes := range collectionIndexes() {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, indexes); err != nil {
			return fmt.Errorf("failed to create %s indexes: %w", collection, err)
		}
	}
	return nil
}

func collectionIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"users": {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "hotel_id", Value: 1}, {Key: "role", Value: 1}},
			},
		},
		"buggies": {
			{
				Keys:    bson.D{{Key: "hotel_id", Value: 1}, {Key: "code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "current_location_id", Value: 1}},
			},
		},
		"buggy_assignments": {
			// One live session per buggy. Only active documents enter the
			// index, so any number of inactive assignments can share a buggy
			// but a second is_active flip hits E11000.
			{
				Keys: bson.D{{Key: "buggy_id", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.D{{Key: "is_active", Value: true}}),
			},
			{
				Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "is_active", Value: 1}},
			},
		},
		"locations": {
			{
				Keys:    bson.D{{Key: "qr_code", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "hotel_id", Value: 1}},
			},
		},
		"guest_requests": {
			{
				Keys: bson.D{{Key: "hotel_id", Value: 1}, {Key: "status", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "location_id", Value: 1}, {Key: "status", Value: 1}},
			},
		},
		"audit_logs": {
			{
				Keys: bson.D{{Key: "hotel_id", Value: 1}, {Key: "created_at", Value: -1}},
			},
			{
				Keys: bson.D{{Key: "entity_type", Value: 1}, {Key: "entity_id", Value: 1}},
			},
		},
	}
}
