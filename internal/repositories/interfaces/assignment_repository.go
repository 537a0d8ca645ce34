package interfaces

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
)

type AssignmentRepository interface {
	// Basic CRUD operations
	Create(ctx context.Context, assignment *models.BuggyAssignment) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.BuggyAssignment, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// Driver-scoped lookups
	GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error)
	GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error)

	// Buggy-scoped lookups
	GetActiveByBuggy(ctx context.Context, buggyID primitive.ObjectID) ([]*models.BuggyAssignment, error)
	GetActiveByBuggyExcluding(ctx context.Context, buggyID, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error)
	HasActiveByBuggy(ctx context.Context, buggyID primitive.ObjectID) (bool, error)

	// Session transitions
	Activate(ctx context.Context, id primitive.ObjectID, at time.Time) error
	// Deactivate flips is_active off and reports whether the assignment was
	// still active. A false result means another transition got there first.
	Deactivate(ctx context.Context, id primitive.ObjectID) (bool, error)

	// Administrative
	SetPrimary(ctx context.Context, id primitive.ObjectID, primary bool) error
}
