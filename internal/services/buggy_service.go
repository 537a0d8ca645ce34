package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/internal/utils"
	"buggydispatch/pkg/logger"
	"buggydispatch/pkg/websocket"
)

type BuggyService interface {
	CreateBuggy(ctx context.Context, request *CreateBuggyRequest, actorID primitive.ObjectID) (*models.Buggy, error)
	GetBuggy(ctx context.Context, id primitive.ObjectID) (*models.Buggy, error)
	ListBuggies(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Buggy, error)

	// SetStatus is the admin override path. It deliberately bypasses the
	// session coordinator, which is a pre-existing gap: an override racing a
	// driver session transition is not guarded here.
	SetStatus(ctx context.Context, buggyID primitive.ObjectID, status models.BuggyStatus, actorID primitive.ObjectID) error

	// AssignDriver creates the driver-buggy association an admin manages.
	// The assignment starts inactive; only a driver login activates it.
	AssignDriver(ctx context.Context, buggyID, driverID primitive.ObjectID, primary bool, actorID primitive.ObjectID) (*models.BuggyAssignment, error)
}

type CreateBuggyRequest struct {
	HotelID primitive.ObjectID `json:"hotel_id" validate:"required"`
	Code    string             `json:"code" validate:"required"`
	Icon    string             `json:"icon"`
}

type buggyService struct {
	buggyRepo      interfaces.BuggyRepository
	assignmentRepo interfaces.AssignmentRepository
	userRepo       interfaces.UserRepository
	audit          AuditService
	broadcaster    Broadcaster
	logger         *logger.Logger
}

func NewBuggyService(
	buggyRepo interfaces.BuggyRepository,
	assignmentRepo interfaces.AssignmentRepository,
	userRepo interfaces.UserRepository,
	audit AuditService,
	broadcaster Broadcaster,
	logger *logger.Logger,
) BuggyService {
	return &buggyService{
		buggyRepo:      buggyRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		audit:          audit,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *buggyService) CreateBuggy(ctx context.Context, request *CreateBuggyRequest, actorID primitive.ObjectID) (*models.Buggy, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return nil, NewValidationError("validation failed: %v", err)
	}

	existing, err := s.buggyRepo.GetByCode(ctx, request.HotelID, request.Code)
	if err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		return nil, fmt.Errorf("failed to check buggy code: %w", err)
	}
	if existing != nil {
		return nil, NewValidationError("buggy code %q already exists", request.Code)
	}

	icon := request.Icon
	if icon == "" {
		// Rotate through the palette based on fleet size so new buggies get
		// distinct dashboard icons without any admin input.
		fleet, err := s.buggyRepo.List(ctx, request.HotelID)
		if err != nil {
			return nil, fmt.Errorf("failed to list fleet: %w", err)
		}
		icon = models.BuggyIconPalette[len(fleet)%len(models.BuggyIconPalette)]
	}

	buggy := &models.Buggy{
		HotelID:  request.HotelID,
		Code:     request.Code,
		Status:   models.BuggyStatusOffline,
		IsActive: true,
		Icon:     icon,
	}

	if err := s.buggyRepo.Create(ctx, buggy); err != nil {
		return nil, fmt.Errorf("failed to create buggy: %w", err)
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionCreate, "buggy", buggy.ID.Hex(), map[string]interface{}{
		"code": buggy.Code,
	}, &actorID, buggy.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit buggy creation")
	}

	return buggy, nil
}

func (s *buggyService) GetBuggy(ctx context.Context, id primitive.ObjectID) (*models.Buggy, error) {
	buggy, err := s.buggyRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrBuggyNotFound
		}
		return nil, err
	}
	return buggy, nil
}

func (s *buggyService) ListBuggies(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Buggy, error) {
	return s.buggyRepo.List(ctx, hotelID)
}

func (s *buggyService) SetStatus(ctx context.Context, buggyID primitive.ObjectID, status models.BuggyStatus, actorID primitive.ObjectID) error {
	if !models.IsValidBuggyStatus(status) {
		return NewValidationError("invalid buggy status %q", status)
	}

	buggy, err := s.buggyRepo.GetByID(ctx, buggyID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrBuggyNotFound
		}
		return fmt.Errorf("failed to get buggy: %w", err)
	}

	if err := s.buggyRepo.UpdateStatus(ctx, buggyID, status); err != nil {
		return fmt.Errorf("failed to update buggy status: %w", err)
	}

	if err := s.broadcaster.Publish(websocket.HotelAdminTopic(buggy.HotelID), EventBuggyStatusChange, map[string]interface{}{
		"buggy_id": buggyID.Hex(),
		"status":   string(status),
		"reason":   ReasonAdminOverride,
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to publish status override")
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionUpdate, "buggy", buggyID.Hex(), map[string]interface{}{
		"status": string(status),
	}, &actorID, buggy.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit status override")
	}

	return nil
}

func (s *buggyService) AssignDriver(ctx context.Context, buggyID, driverID primitive.ObjectID, primary bool, actorID primitive.ObjectID) (*models.BuggyAssignment, error) {
	buggy, err := s.buggyRepo.GetByID(ctx, buggyID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrBuggyNotFound
		}
		return nil, fmt.Errorf("failed to get buggy: %w", err)
	}

	driver, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	if !driver.IsDriver() {
		return nil, ErrNotADriver
	}

	assignment := &models.BuggyAssignment{
		HotelID:   buggy.HotelID,
		BuggyID:   buggyID,
		DriverID:  driverID,
		IsActive:  false,
		IsPrimary: primary,
	}

	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionCreate, "buggy_assignment", assignment.ID.Hex(), map[string]interface{}{
		"buggy_id":  buggyID.Hex(),
		"driver_id": driverID.Hex(),
		"primary":   primary,
	}, &actorID, buggy.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit driver assignment")
	}

	return assignment, nil
}
