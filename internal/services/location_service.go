package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/internal/utils"
	"buggydispatch/pkg/logger"
	"buggydispatch/pkg/websocket"
)

type LocationService interface {
	CreateLocation(ctx context.Context, request *CreateLocationRequest, actorID primitive.ObjectID) (*models.Location, error)
	GetLocation(ctx context.Context, id primitive.ObjectID) (*models.Location, error)
	GetLocationByQRCode(ctx context.Context, qrCode string) (*models.Location, error)
	ListLocations(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Location, error)

	// DeleteLocation applies the deletion guard: a location with open guest
	// requests or with any parked buggy holding a live driver session cannot
	// be deleted. Deletion is all-or-nothing; on success every parked buggy
	// is released to no-location and the affected ids are reported.
	DeleteLocation(ctx context.Context, locationID, actorID primitive.ObjectID) (*DeletionDecision, error)
}

type CreateLocationRequest struct {
	HotelID   primitive.ObjectID `json:"hotel_id" validate:"required"`
	Name      string             `json:"name" validate:"required"`
	Latitude  *float64           `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64           `json:"longitude" validate:"omitempty,longitude"`
}

type DeletionDecision struct {
	Allowed          bool                 `json:"allowed"`
	BlockingCount    int                  `json:"blocking_count"`
	AffectedBuggyIDs []primitive.ObjectID `json:"affected_buggy_ids"`
}

type locationService struct {
	locationRepo   interfaces.LocationRepository
	buggyRepo      interfaces.BuggyRepository
	assignmentRepo interfaces.AssignmentRepository
	requestRepo    interfaces.RequestRepository
	audit          AuditService
	broadcaster    Broadcaster
	logger         *logger.Logger
}

func NewLocationService(
	locationRepo interfaces.LocationRepository,
	buggyRepo interfaces.BuggyRepository,
	assignmentRepo interfaces.AssignmentRepository,
	requestRepo interfaces.RequestRepository,
	audit AuditService,
	broadcaster Broadcaster,
	logger *logger.Logger,
) LocationService {
	return &locationService{
		locationRepo:   locationRepo,
		buggyRepo:      buggyRepo,
		assignmentRepo: assignmentRepo,
		requestRepo:    requestRepo,
		audit:          audit,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *locationService) CreateLocation(ctx context.Context, request *CreateLocationRequest, actorID primitive.ObjectID) (*models.Location, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return nil, NewValidationError("validation failed: %v", err)
	}

	location := &models.Location{
		HotelID:   request.HotelID,
		Name:      request.Name,
		Latitude:  request.Latitude,
		Longitude: request.Longitude,
		QRCode:    uuid.NewString(),
		IsActive:  true,
	}

	if err := s.locationRepo.Create(ctx, location); err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionCreate, "location", location.ID.Hex(), map[string]interface{}{
		"name": location.Name,
	}, &actorID, location.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit location creation")
	}

	return location, nil
}

func (s *locationService) GetLocation(ctx context.Context, id primitive.ObjectID) (*models.Location, error) {
	location, err := s.locationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return location, nil
}

func (s *locationService) GetLocationByQRCode(ctx context.Context, qrCode string) (*models.Location, error) {
	location, err := s.locationRepo.GetByQRCode(ctx, qrCode)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, err
	}
	return location, nil
}

func (s *locationService) ListLocations(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Location, error) {
	return s.locationRepo.List(ctx, hotelID)
}

func (s *locationService) DeleteLocation(ctx context.Context, locationID, actorID primitive.ObjectID) (*DeletionDecision, error) {
	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to get location: %w", err)
	}

	openRequests, err := s.requestRepo.CountOpenByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count open requests: %w", err)
	}
	if openRequests > 0 {
		return &DeletionDecision{Allowed: false}, NewValidationError(
			"cannot delete location %q: %d open guest requests reference it", location.Name, openRequests)
	}

	parked, err := s.buggyRepo.GetByLocation(ctx, locationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parked buggies: %w", err)
	}

	var blocking int
	var inactive []*models.Buggy
	for _, buggy := range parked {
		hasActive, err := s.assignmentRepo.HasActiveByBuggy(ctx, buggy.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check active assignment: %w", err)
		}
		if hasActive {
			blocking++
		} else {
			inactive = append(inactive, buggy)
		}
	}

	// All-or-nothing: one buggy with a live session blocks the whole delete.
	if blocking > 0 {
		decision := &DeletionDecision{Allowed: false, BlockingCount: blocking}
		return decision, &ValidationError{
			Message:       fmt.Sprintf("cannot delete location %q: %d buggies with active driver sessions are parked here", location.Name, blocking),
			BlockingCount: blocking,
		}
	}

	decision := &DeletionDecision{Allowed: true}
	for _, buggy := range inactive {
		if err := s.buggyRepo.ClearLocation(ctx, buggy.ID); err != nil {
			return nil, fmt.Errorf("failed to release buggy %s: %w", buggy.ID.Hex(), err)
		}
		decision.AffectedBuggyIDs = append(decision.AffectedBuggyIDs, buggy.ID)
	}

	if err := s.locationRepo.Delete(ctx, locationID); err != nil {
		return nil, fmt.Errorf("failed to delete location: %w", err)
	}

	affected := make([]string, 0, len(decision.AffectedBuggyIDs))
	for _, id := range decision.AffectedBuggyIDs {
		affected = append(affected, id.Hex())
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionDelete, "location", locationID.Hex(), map[string]interface{}{
		"name":               location.Name,
		"affected_buggy_ids": affected,
	}, &actorID, location.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit location deletion")
	}

	if err := s.broadcaster.Publish(websocket.HotelAdminTopic(location.HotelID), EventLocationDeleted, map[string]interface{}{
		"location_id":        locationID.Hex(),
		"affected_buggy_ids": affected,
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to publish location deletion")
	}

	return decision, nil
}
