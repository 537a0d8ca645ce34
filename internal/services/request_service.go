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

type RequestService interface {
	// CreateRequest is the guest-facing entry point. The QR code scanned at
	// a pickup point identifies both the hotel and the location.
	CreateRequest(ctx context.Context, request *CreateRequestRequest) (*models.GuestRequest, error)
	GetRequest(ctx context.Context, id primitive.ObjectID) (*models.GuestRequest, error)
	ListOpenRequests(ctx context.Context, hotelID primitive.ObjectID) ([]*models.GuestRequest, error)

	// AcceptRequest binds a pending request to the driver's active buggy and
	// marks the buggy busy.
	AcceptRequest(ctx context.Context, requestID, driverID primitive.ObjectID) (*models.GuestRequest, error)
	CompleteRequest(ctx context.Context, requestID, driverID primitive.ObjectID) error
	CancelRequest(ctx context.Context, requestID primitive.ObjectID, actorID *primitive.ObjectID) error
}

type CreateRequestRequest struct {
	QRCode    string `json:"qr_code" validate:"required"`
	GuestName string `json:"guest_name"`
	Room      string `json:"room_number"`
	PartySize int    `json:"party_size" validate:"omitempty,min=1,max=12"`
	Note      string `json:"note" validate:"omitempty,max=500"`
}

type requestService struct {
	requestRepo    interfaces.RequestRepository
	locationRepo   interfaces.LocationRepository
	buggyRepo      interfaces.BuggyRepository
	assignmentRepo interfaces.AssignmentRepository
	audit          AuditService
	broadcaster    Broadcaster
	logger         *logger.Logger
}

func NewRequestService(
	requestRepo interfaces.RequestRepository,
	locationRepo interfaces.LocationRepository,
	buggyRepo interfaces.BuggyRepository,
	assignmentRepo interfaces.AssignmentRepository,
	audit AuditService,
	broadcaster Broadcaster,
	logger *logger.Logger,
) RequestService {
	return &requestService{
		requestRepo:    requestRepo,
		locationRepo:   locationRepo,
		buggyRepo:      buggyRepo,
		assignmentRepo: assignmentRepo,
		audit:          audit,
		broadcaster:    broadcaster,
		logger:         logger,
	}
}

func (s *requestService) CreateRequest(ctx context.Context, request *CreateRequestRequest) (*models.GuestRequest, error) {
	if err := utils.ValidateStruct(request); err != nil {
		return nil, NewValidationError("validation failed: %v", err)
	}

	location, err := s.locationRepo.GetByQRCode(ctx, request.QRCode)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, fmt.Errorf("failed to resolve QR code: %w", err)
	}

	partySize := request.PartySize
	if partySize == 0 {
		partySize = 1
	}

	guestRequest := &models.GuestRequest{
		HotelID:    location.HotelID,
		LocationID: location.ID,
		Status:     models.RequestStatusPending,
		GuestName:  request.GuestName,
		RoomNumber: request.Room,
		PartySize:  partySize,
		Note:       request.Note,
	}

	if err := s.requestRepo.Create(ctx, guestRequest); err != nil {
		return nil, fmt.Errorf("failed to create guest request: %w", err)
	}

	if err := s.broadcaster.Publish(websocket.HotelAdminTopic(location.HotelID), EventGuestRequestCreated, map[string]interface{}{
		"request_id":    guestRequest.ID.Hex(),
		"location_id":   location.ID.Hex(),
		"location_name": location.Name,
		"party_size":    partySize,
	}); err != nil {
		s.logger.WithError(err).Warn("Failed to publish guest request")
	}

	return guestRequest, nil
}

func (s *requestService) GetRequest(ctx context.Context, id primitive.ObjectID) (*models.GuestRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	return request, nil
}

func (s *requestService) ListOpenRequests(ctx context.Context, hotelID primitive.ObjectID) ([]*models.GuestRequest, error) {
	return s.requestRepo.ListOpenByHotel(ctx, hotelID)
}

func (s *requestService) AcceptRequest(ctx context.Context, requestID, driverID primitive.ObjectID) (*models.GuestRequest, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get request: %w", err)
	}
	if request.Status != models.RequestStatusPending {
		return nil, NewValidationError("request is %s, not pending", request.Status)
	}

	assignments, err := s.assignmentRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get active assignments: %w", err)
	}
	if len(assignments) == 0 {
		return nil, ErrNoActiveSession
	}
	buggyID := assignments[0].BuggyID

	if err := s.requestRepo.AssignBuggy(ctx, requestID, buggyID, driverID); err != nil {
		return nil, fmt.Errorf("failed to assign buggy: %w", err)
	}
	if err := s.buggyRepo.UpdateStatus(ctx, buggyID, models.BuggyStatusBusy); err != nil {
		return nil, fmt.Errorf("failed to mark buggy busy: %w", err)
	}

	request.Status = models.RequestStatusAssigned
	request.BuggyID = &buggyID
	request.DriverID = &driverID

	s.publishRequestUpdate(request)

	if err := s.audit.RecordAction(ctx, models.AuditActionUpdate, "guest_request", requestID.Hex(), map[string]interface{}{
		"status":   string(models.RequestStatusAssigned),
		"buggy_id": buggyID.Hex(),
	}, &driverID, request.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit request acceptance")
	}

	return request, nil
}

func (s *requestService) CompleteRequest(ctx context.Context, requestID, driverID primitive.ObjectID) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("failed to get request: %w", err)
	}
	if request.IsTerminal() {
		return NewValidationError("request is already %s", request.Status)
	}
	if request.DriverID == nil || *request.DriverID != driverID {
		return NewValidationError("request is not assigned to this driver")
	}

	if err := s.requestRepo.UpdateStatus(ctx, requestID, models.RequestStatusCompleted); err != nil {
		return fmt.Errorf("failed to complete request: %w", err)
	}
	if request.BuggyID != nil {
		if err := s.buggyRepo.UpdateStatus(ctx, *request.BuggyID, models.BuggyStatusAvailable); err != nil {
			s.logger.WithError(err).WithBuggyID(*request.BuggyID).Warn("Failed to release buggy after completion")
		}
	}

	request.Status = models.RequestStatusCompleted
	s.publishRequestUpdate(request)

	if err := s.audit.RecordAction(ctx, models.AuditActionUpdate, "guest_request", requestID.Hex(), map[string]interface{}{
		"status": string(models.RequestStatusCompleted),
	}, &driverID, request.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit request completion")
	}

	return nil
}

func (s *requestService) CancelRequest(ctx context.Context, requestID primitive.ObjectID, actorID *primitive.ObjectID) error {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrRequestNotFound
		}
		return fmt.Errorf("failed to get request: %w", err)
	}
	if request.IsTerminal() {
		return NewValidationError("request is already %s", request.Status)
	}

	if err := s.requestRepo.UpdateStatus(ctx, requestID, models.RequestStatusCancelled); err != nil {
		return fmt.Errorf("failed to cancel request: %w", err)
	}
	if request.BuggyID != nil {
		if err := s.buggyRepo.UpdateStatus(ctx, *request.BuggyID, models.BuggyStatusAvailable); err != nil {
			s.logger.WithError(err).WithBuggyID(*request.BuggyID).Warn("Failed to release buggy after cancellation")
		}
	}

	request.Status = models.RequestStatusCancelled
	s.publishRequestUpdate(request)

	if err := s.audit.RecordAction(ctx, models.AuditActionUpdate, "guest_request", requestID.Hex(), map[string]interface{}{
		"status": string(models.RequestStatusCancelled),
	}, actorID, request.HotelID); err != nil {
		s.logger.WithError(err).Warn("Failed to audit request cancellation")
	}

	return nil
}

func (s *requestService) publishRequestUpdate(request *models.GuestRequest) {
	payload := map[string]interface{}{
		"request_id": request.ID.Hex(),
		"status":     string(request.Status),
	}
	if request.BuggyID != nil {
		payload["buggy_id"] = request.BuggyID.Hex()
	}

	if err := s.broadcaster.Publish(websocket.HotelAdminTopic(request.HotelID), EventGuestRequestUpdated, payload); err != nil {
		s.logger.WithError(err).Warn("Failed to publish request update")
	}
	if request.DriverID != nil {
		if err := s.broadcaster.Publish(websocket.DriverTopic(*request.DriverID), EventGuestRequestUpdated, payload); err != nil {
			s.logger.WithError(err).Warn("Failed to publish request update to driver")
		}
	}
}
