package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
	"buggydispatch/pkg/database"
	"buggydispatch/pkg/logger"
	"buggydispatch/pkg/websocket"
)

// SessionService coordinates the driver/buggy session lifecycle: it is the
// only component that flips assignment activity and the buggy status and
// location derived from it. Invariants it maintains:
//
//   - at most one active assignment per buggy,
//   - a buggy with no active driver is offline with no location.
type SessionService interface {
	// Login activates the driver's assignments, force-evicting any stale
	// session another driver left on the same buggy. The buggy keeps its
	// offline status until the driver explicitly selects a location.
	Login(ctx context.Context, driverID primitive.ObjectID) (*LoginResult, error)

	// Logout invalidates the driver's session synchronously and defers the
	// state cleanup to the worker. It never fails visibly to the driver.
	Logout(ctx context.Context, driverID, hotelID primitive.ObjectID) error

	// CleanupDriverSessions is the deferred phase of Logout. Exposed so the
	// worker and tests can run it directly. It is idempotent: zero active
	// assignments is a successful no-op.
	CleanupDriverSessions(ctx context.Context, driverID, hotelID primitive.ObjectID) error

	// SelectLocation parks the buggy at a location and makes it available.
	// Requires a live session of the calling driver on the buggy.
	SelectLocation(ctx context.Context, driverID, buggyID, locationID primitive.ObjectID) error
}

type LoginResult struct {
	ActivatedBuggyIDs []primitive.ObjectID `json:"activated_buggy_ids"`
	EvictedDriverIDs  []primitive.ObjectID `json:"evicted_driver_ids"`
	// NeedsLocationSelection is always true after a successful login: a
	// stale last-known location is worse than no location.
	NeedsLocationSelection bool `json:"needs_location_selection"`
}

type sessionService struct {
	userRepo       interfaces.UserRepository
	assignmentRepo interfaces.AssignmentRepository
	buggyRepo      interfaces.BuggyRepository
	locationRepo   interfaces.LocationRepository
	audit          AuditService
	broadcaster    Broadcaster
	tx             database.Transactor
	worker         *CleanupWorker
	sessions       SessionStore
	logger         *logger.Logger
}

func NewSessionService(
	userRepo interfaces.UserRepository,
	assignmentRepo interfaces.AssignmentRepository,
	buggyRepo interfaces.BuggyRepository,
	locationRepo interfaces.LocationRepository,
	audit AuditService,
	broadcaster Broadcaster,
	tx database.Transactor,
	worker *CleanupWorker,
	sessions SessionStore,
	logger *logger.Logger,
) SessionService {
	return &sessionService{
		userRepo:       userRepo,
		assignmentRepo: assignmentRepo,
		buggyRepo:      buggyRepo,
		locationRepo:   locationRepo,
		audit:          audit,
		broadcaster:    broadcaster,
		tx:             tx,
		worker:         worker,
		sessions:       sessions,
		logger:         logger,
	}
}

func (s *sessionService) Login(ctx context.Context, driverID primitive.ObjectID) (*LoginResult, error) {
	user, err := s.userRepo.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, fmt.Errorf("failed to get driver: %w", err)
	}
	if !user.IsDriver() {
		return nil, ErrNotADriver
	}

	assignments, err := s.assignmentRepo.GetByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get driver assignments: %w", err)
	}

	result := &LoginResult{NeedsLocationSelection: true}

	for _, assignment := range assignments {
		evicted, err := s.activateAssignment(ctx, assignment)
		if err != nil {
			// One buggy failing must not take the whole login down; the
			// driver can still operate the buggies that activated.
			s.logger.WithError(err).WithDriverID(driverID).WithBuggyID(assignment.BuggyID).Error("Failed to activate assignment")
			continue
		}

		result.ActivatedBuggyIDs = append(result.ActivatedBuggyIDs, assignment.BuggyID)

		adminTopic := websocket.HotelAdminTopic(assignment.HotelID)

		for _, stale := range evicted {
			result.EvictedDriverIDs = append(result.EvictedDriverIDs, stale.DriverID)
			payload := map[string]interface{}{
				"buggy_id":  assignment.BuggyID.Hex(),
				"driver_id": stale.DriverID.Hex(),
				"reason":    ReasonDriverEvicted,
			}
			s.publish(websocket.DriverTopic(stale.DriverID), EventDriverLoggedOut, payload)
			s.publish(adminTopic, EventDriverLoggedOut, payload)
		}

		status := models.BuggyStatusOffline
		if buggy, err := s.buggyRepo.GetByID(ctx, assignment.BuggyID); err == nil {
			status = buggy.Status
		}

		s.publish(adminTopic, EventDriverLoggedIn, map[string]interface{}{
			"buggy_id":    assignment.BuggyID.Hex(),
			"driver_id":   driverID.Hex(),
			"driver_name": user.FullName(),
			"status":      string(status),
		})
		s.publish(adminTopic, EventBuggyStatusUpdate, map[string]interface{}{
			"buggy_id": assignment.BuggyID.Hex(),
			"status":   string(status),
		})
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionLogin, "driver_session", driverID.Hex(), map[string]interface{}{
		"activated_buggies": len(result.ActivatedBuggyIDs),
	}, &driverID, user.HotelID); err != nil {
		s.logger.WithError(err).WithDriverID(driverID).Warn("Failed to audit driver login")
	}

	s.logger.LogSessionEvent(driverID, "login", map[string]interface{}{
		"activated_buggies": len(result.ActivatedBuggyIDs),
		"evicted_drivers":   len(result.EvictedDriverIDs),
	})

	return result, nil
}

// activateAttempts bounds the eviction retries of one activation. Every
// conflicted attempt means another login claimed the buggy in between, so a
// handful of rounds is enough even under heavy contention.
const activateAttempts = 3

// activateAssignment deactivates every other active assignment on the buggy
// and then flips this driver's assignment active. The two steps read and
// write different documents, so a transaction alone cannot order two
// concurrent logins: the partial unique index on active assignments is what
// keeps the buggy at one live session. When Activate loses to a login that
// slipped in after the eviction pass, the pass reruns against the new state.
func (s *sessionService) activateAssignment(ctx context.Context, assignment *models.BuggyAssignment) ([]*models.BuggyAssignment, error) {
	evictedByID := make(map[primitive.ObjectID]*models.BuggyAssignment)

	for attempt := 0; attempt < activateAttempts; attempt++ {
		err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			others, err := s.assignmentRepo.GetActiveByBuggyExcluding(txCtx, assignment.BuggyID, assignment.DriverID)
			if err != nil {
				return fmt.Errorf("failed to get active assignments: %w", err)
			}

			for _, other := range others {
				flipped, err := s.assignmentRepo.Deactivate(txCtx, other.ID)
				if err != nil {
					return fmt.Errorf("failed to evict stale session: %w", err)
				}
				if flipped {
					evictedByID[other.ID] = other
				}
			}

			return s.assignmentRepo.Activate(txCtx, assignment.ID, time.Now())
		})
		if err != nil {
			if errors.Is(err, interfaces.ErrActiveConflict) {
				continue
			}
			return nil, err
		}

		evicted := make([]*models.BuggyAssignment, 0, len(evictedByID))
		for _, other := range evictedByID {
			evicted = append(evicted, other)
		}
		return evicted, nil
	}

	return nil, fmt.Errorf("failed to activate assignment after %d attempts: %w", activateAttempts, interfaces.ErrActiveConflict)
}

func (s *sessionService) Logout(ctx context.Context, driverID, hotelID primitive.ObjectID) error {
	// The session key goes away now, unconditionally; the driver is logged
	// out no matter what happens to the deferred cleanup.
	if err := s.sessions.Invalidate(ctx, driverID); err != nil {
		s.logger.WithError(err).WithDriverID(driverID).Warn("Failed to invalidate session key")
	}

	scheduled := s.worker.Enqueue("driver_logout_cleanup", func(jobCtx context.Context) error {
		return s.CleanupDriverSessions(jobCtx, driverID, hotelID)
	})
	if !scheduled {
		// The next login's eviction pass reconciles whatever this cleanup
		// would have done.
		s.logger.WithDriverID(driverID).Warn("Logout cleanup dropped; state reconciles on next login")
	}

	return nil
}

func (s *sessionService) CleanupDriverSessions(ctx context.Context, driverID, hotelID primitive.ObjectID) error {
	active, err := s.assignmentRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return fmt.Errorf("failed to get active assignments: %w", err)
	}
	if len(active) == 0 {
		// Already evicted by another driver's login, or cleanup ran twice.
		return nil
	}

	adminTopic := websocket.HotelAdminTopic(hotelID)
	var cleanedBuggyIDs []primitive.ObjectID

	for _, assignment := range active {
		cleaned, err := s.cleanupAssignment(ctx, assignment)
		if err != nil {
			s.logger.WithError(err).WithDriverID(driverID).WithBuggyID(assignment.BuggyID).Error("Failed to clean up assignment")
			continue
		}
		if !cleaned {
			continue
		}

		cleanedBuggyIDs = append(cleanedBuggyIDs, assignment.BuggyID)

		s.publish(adminTopic, EventBuggyStatusChange, map[string]interface{}{
			"buggy_id": assignment.BuggyID.Hex(),
			"status":   string(models.BuggyStatusOffline),
			"reason":   ReasonDriverLogout,
		})
		s.publish(adminTopic, EventBuggyStatusUpdate, map[string]interface{}{
			"buggy_id": assignment.BuggyID.Hex(),
			"status":   string(models.BuggyStatusOffline),
		})
	}

	buggyIDs := make([]string, 0, len(cleanedBuggyIDs))
	for _, id := range cleanedBuggyIDs {
		buggyIDs = append(buggyIDs, id.Hex())
	}

	if err := s.audit.RecordAction(ctx, models.AuditActionLogout, "driver_session", driverID.Hex(), map[string]interface{}{
		"buggy_ids": buggyIDs,
	}, &driverID, hotelID); err != nil {
		s.logger.WithError(err).WithDriverID(driverID).Warn("Failed to audit driver logout")
	}

	s.logger.LogSessionEvent(driverID, "logout_cleanup", map[string]interface{}{
		"cleaned_buggies": len(cleanedBuggyIDs),
	})

	return nil
}

// cleanupAssignment deactivates one assignment and resets its buggy in a
// single transaction. It reports false without error when there was nothing
// to do: the assignment lost a race to a concurrent login, or the buggy was
// deleted out from under it.
func (s *sessionService) cleanupAssignment(ctx context.Context, assignment *models.BuggyAssignment) (bool, error) {
	cleaned := false

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		flipped, err := s.assignmentRepo.Deactivate(txCtx, assignment.ID)
		if err != nil {
			return fmt.Errorf("failed to deactivate assignment: %w", err)
		}
		if !flipped {
			// A concurrent login already deactivated this assignment; its
			// buggy now belongs to another driver and must not be touched.
			return nil
		}

		if _, err := s.buggyRepo.GetByID(txCtx, assignment.BuggyID); err != nil {
			if errors.Is(err, interfaces.ErrNotFound) {
				// Buggy deleted concurrently; nothing left to reset.
				return nil
			}
			return fmt.Errorf("failed to get buggy: %w", err)
		}

		if err := s.buggyRepo.SetOffline(txCtx, assignment.BuggyID); err != nil {
			return fmt.Errorf("failed to reset buggy: %w", err)
		}

		cleaned = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return cleaned, nil
}

func (s *sessionService) SelectLocation(ctx context.Context, driverID, buggyID, locationID primitive.ObjectID) error {
	active, err := s.assignmentRepo.GetActiveByDriver(ctx, driverID)
	if err != nil {
		return fmt.Errorf("failed to get active assignments: %w", err)
	}

	var assignment *models.BuggyAssignment
	for _, a := range active {
		if a.BuggyID == buggyID {
			assignment = a
			break
		}
	}
	if assignment == nil {
		return ErrNoActiveSession
	}

	location, err := s.locationRepo.GetByID(ctx, locationID)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrLocationNotFound
		}
		return fmt.Errorf("failed to get location: %w", err)
	}

	if err := s.buggyRepo.Update(ctx, buggyID, map[string]interface{}{
		"current_location_id": locationID,
		"status":              models.BuggyStatusAvailable,
	}); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return ErrBuggyNotFound
		}
		return fmt.Errorf("failed to park buggy: %w", err)
	}

	s.publish(websocket.HotelAdminTopic(assignment.HotelID), EventBuggyStatusUpdate, map[string]interface{}{
		"buggy_id":      buggyID.Hex(),
		"status":        string(models.BuggyStatusAvailable),
		"location_id":   locationID.Hex(),
		"location_name": location.Name,
	})

	if err := s.audit.RecordAction(ctx, models.AuditActionUpdate, "buggy", buggyID.Hex(), map[string]interface{}{
		"status":      string(models.BuggyStatusAvailable),
		"location_id": locationID.Hex(),
	}, &driverID, assignment.HotelID); err != nil {
		s.logger.WithError(err).WithBuggyID(buggyID).Warn("Failed to audit location selection")
	}

	return nil
}

// publish pushes one event and logs a delivery failure. Broadcast is
// observability, not state: the transition already committed.
func (s *sessionService) publish(topic, eventType string, payload map[string]interface{}) {
	if err := s.broadcaster.Publish(topic, eventType, payload); err != nil {
		s.logger.WithError(err).WithField("event", eventType).Warn("Failed to publish event")
	}
}
