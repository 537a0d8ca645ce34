package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/models"
	"buggydispatch/internal/repositories/interfaces"
)

// In-memory repository implementations backing the service tests. They hold
// copies behind a mutex so concurrent logins and cleanups exercise the same
// check-and-flip semantics the real repositories get from update filters and
// the unique index on active assignments.

type memUserRepo struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]*models.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[primitive.ObjectID]*models.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, fmt.Errorf("user %w", interfaces.ErrNotFound)
	}
	copied := *user
	return &copied, nil
}

func (r *memUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("user %w", interfaces.ErrNotFound)
}

func (r *memUserRepo) List(ctx context.Context, hotelID primitive.ObjectID, role models.UserRole) ([]*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.User
	for _, user := range r.users {
		if user.HotelID == hotelID && user.Role == role {
			copied := *user
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memUserRepo) UpdateLastLogin(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user, ok := r.users[id]; ok {
		now := time.Now()
		user.LastLoginAt = &now
	}
	return nil
}

type memAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[primitive.ObjectID]*models.BuggyAssignment
}

func newMemAssignmentRepo() *memAssignmentRepo {
	return &memAssignmentRepo{assignments: make(map[primitive.ObjectID]*models.BuggyAssignment)}
}

func (r *memAssignmentRepo) Create(ctx context.Context, assignment *models.BuggyAssignment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if assignment.ID.IsZero() {
		assignment.ID = primitive.NewObjectID()
	}
	copied := *assignment
	r.assignments[assignment.ID] = &copied
	return nil
}

func (r *memAssignmentRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.BuggyAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return nil, fmt.Errorf("assignment %w", interfaces.ErrNotFound)
	}
	copied := *assignment
	return &copied, nil
}

func (r *memAssignmentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.assignments, id)
	return nil
}

func (r *memAssignmentRepo) GetByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.filter(func(a *models.BuggyAssignment) bool {
		return a.DriverID == driverID
	})
}

func (r *memAssignmentRepo) GetActiveByDriver(ctx context.Context, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.filter(func(a *models.BuggyAssignment) bool {
		return a.DriverID == driverID && a.IsActive
	})
}

func (r *memAssignmentRepo) GetActiveByBuggy(ctx context.Context, buggyID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.filter(func(a *models.BuggyAssignment) bool {
		return a.BuggyID == buggyID && a.IsActive
	})
}

func (r *memAssignmentRepo) GetActiveByBuggyExcluding(ctx context.Context, buggyID, driverID primitive.ObjectID) ([]*models.BuggyAssignment, error) {
	return r.filter(func(a *models.BuggyAssignment) bool {
		return a.BuggyID == buggyID && a.IsActive && a.DriverID != driverID
	})
}

func (r *memAssignmentRepo) HasActiveByBuggy(ctx context.Context, buggyID primitive.ObjectID) (bool, error) {
	active, err := r.GetActiveByBuggy(ctx, buggyID)
	if err != nil {
		return false, err
	}
	return len(active) > 0, nil
}

func (r *memAssignmentRepo) Activate(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return fmt.Errorf("assignment %w", interfaces.ErrNotFound)
	}
	// Mirrors the partial unique index on active assignments: one live
	// session per buggy, conflict otherwise.
	for _, other := range r.assignments {
		if other.ID != id && other.BuggyID == assignment.BuggyID && other.IsActive {
			return fmt.Errorf("assignment %s: %w", id.Hex(), interfaces.ErrActiveConflict)
		}
	}
	assignment.IsActive = true
	assignment.LastActiveAt = &at
	return nil
}

func (r *memAssignmentRepo) Deactivate(ctx context.Context, id primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok || !assignment.IsActive {
		return false, nil
	}
	assignment.IsActive = false
	return true, nil
}

func (r *memAssignmentRepo) SetPrimary(ctx context.Context, id primitive.ObjectID, primary bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	assignment, ok := r.assignments[id]
	if !ok {
		return fmt.Errorf("assignment %w", interfaces.ErrNotFound)
	}
	assignment.IsPrimary = primary
	return nil
}

func (r *memAssignmentRepo) filter(keep func(*models.BuggyAssignment) bool) ([]*models.BuggyAssignment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.BuggyAssignment
	for _, assignment := range r.assignments {
		if keep(assignment) {
			copied := *assignment
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memBuggyRepo struct {
	mu      sync.Mutex
	buggies map[primitive.ObjectID]*models.Buggy
}

func newMemBuggyRepo() *memBuggyRepo {
	return &memBuggyRepo{buggies: make(map[primitive.ObjectID]*models.Buggy)}
}

func (r *memBuggyRepo) Create(ctx context.Context, buggy *models.Buggy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if buggy.ID.IsZero() {
		buggy.ID = primitive.NewObjectID()
	}
	copied := *buggy
	r.buggies[buggy.ID] = &copied
	return nil
}

func (r *memBuggyRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Buggy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	buggy, ok := r.buggies[id]
	if !ok {
		return nil, fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}
	copied := *buggy
	return &copied, nil
}

func (r *memBuggyRepo) GetByCode(ctx context.Context, hotelID primitive.ObjectID, code string) (*models.Buggy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, buggy := range r.buggies {
		if buggy.HotelID == hotelID && buggy.Code == code {
			copied := *buggy
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("buggy %w", interfaces.ErrNotFound)
}

func (r *memBuggyRepo) List(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Buggy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Buggy
	for _, buggy := range r.buggies {
		if buggy.HotelID == hotelID {
			copied := *buggy
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memBuggyRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buggy, ok := r.buggies[id]
	if !ok {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}
	if status, ok := updates["status"]; ok {
		buggy.Status = status.(models.BuggyStatus)
	}
	if locationID, ok := updates["current_location_id"]; ok {
		if locationID == nil {
			buggy.CurrentLocationID = nil
		} else {
			id := locationID.(primitive.ObjectID)
			buggy.CurrentLocationID = &id
		}
	}
	return nil
}

func (r *memBuggyRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buggies, id)
	return nil
}

func (r *memBuggyRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.BuggyStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buggy, ok := r.buggies[id]
	if !ok {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}
	buggy.Status = status
	return nil
}

func (r *memBuggyRepo) SetOffline(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buggy, ok := r.buggies[id]
	if !ok {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}
	buggy.Status = models.BuggyStatusOffline
	buggy.CurrentLocationID = nil
	return nil
}

func (r *memBuggyRepo) SetLocation(ctx context.Context, id, locationID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buggy, ok := r.buggies[id]
	if !ok {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}
	buggy.CurrentLocationID = &locationID
	return nil
}

func (r *memBuggyRepo) ClearLocation(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	buggy, ok := r.buggies[id]
	if !ok {
		return fmt.Errorf("buggy %w", interfaces.ErrNotFound)
	}
	buggy.CurrentLocationID = nil
	return nil
}

func (r *memBuggyRepo) GetByLocation(ctx context.Context, locationID primitive.ObjectID) ([]*models.Buggy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Buggy
	for _, buggy := range r.buggies {
		if buggy.CurrentLocationID != nil && *buggy.CurrentLocationID == locationID {
			copied := *buggy
			out = append(out, &copied)
		}
	}
	return out, nil
}

type memLocationRepo struct {
	mu        sync.Mutex
	locations map[primitive.ObjectID]*models.Location
}

func newMemLocationRepo() *memLocationRepo {
	return &memLocationRepo{locations: make(map[primitive.ObjectID]*models.Location)}
}

func (r *memLocationRepo) Create(ctx context.Context, location *models.Location) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if location.ID.IsZero() {
		location.ID = primitive.NewObjectID()
	}
	copied := *location
	r.locations[location.ID] = &copied
	return nil
}

func (r *memLocationRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	location, ok := r.locations[id]
	if !ok {
		return nil, fmt.Errorf("location %w", interfaces.ErrNotFound)
	}
	copied := *location
	return &copied, nil
}

func (r *memLocationRepo) GetByQRCode(ctx context.Context, qrCode string) (*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, location := range r.locations {
		if location.QRCode == qrCode {
			copied := *location
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("location %w", interfaces.ErrNotFound)
}

func (r *memLocationRepo) List(ctx context.Context, hotelID primitive.ObjectID) ([]*models.Location, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Location
	for _, location := range r.locations {
		if location.HotelID == hotelID {
			copied := *location
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memLocationRepo) Update(ctx context.Context, id primitive.ObjectID, updates map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	location, ok := r.locations[id]
	if !ok {
		return fmt.Errorf("location %w", interfaces.ErrNotFound)
	}
	if name, ok := updates["name"]; ok {
		location.Name = name.(string)
	}
	return nil
}

func (r *memLocationRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.locations[id]; !ok {
		return fmt.Errorf("location %w", interfaces.ErrNotFound)
	}
	delete(r.locations, id)
	return nil
}

type memRequestRepo struct {
	mu       sync.Mutex
	requests map[primitive.ObjectID]*models.GuestRequest
}

func newMemRequestRepo() *memRequestRepo {
	return &memRequestRepo{requests: make(map[primitive.ObjectID]*models.GuestRequest)}
}

func (r *memRequestRepo) Create(ctx context.Context, request *models.GuestRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID.IsZero() {
		request.ID = primitive.NewObjectID()
	}
	copied := *request
	r.requests[request.ID] = &copied
	return nil
}

func (r *memRequestRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*models.GuestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, fmt.Errorf("request %w", interfaces.ErrNotFound)
	}
	copied := *request
	return &copied, nil
}

func (r *memRequestRepo) ListOpenByHotel(ctx context.Context, hotelID primitive.ObjectID) ([]*models.GuestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.GuestRequest
	for _, request := range r.requests {
		if request.HotelID == hotelID && !request.IsTerminal() {
			copied := *request
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *memRequestRepo) UpdateStatus(ctx context.Context, id primitive.ObjectID, status models.RequestStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return fmt.Errorf("request %w", interfaces.ErrNotFound)
	}
	request.Status = status
	return nil
}

func (r *memRequestRepo) AssignBuggy(ctx context.Context, id, buggyID, driverID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return fmt.Errorf("request %w", interfaces.ErrNotFound)
	}
	request.BuggyID = &buggyID
	request.DriverID = &driverID
	request.Status = models.RequestStatusAssigned
	return nil
}

func (r *memRequestRepo) CountOpenByLocation(ctx context.Context, locationID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, request := range r.requests {
		if request.LocationID == locationID && !request.IsTerminal() {
			count++
		}
	}
	return count, nil
}

// recordingBroadcaster captures published events and can be told to fail.
type broadcastEvent struct {
	Topic   string
	Event   string
	Payload map[string]interface{}
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []broadcastEvent
	err    error
}

func (b *recordingBroadcaster) Publish(topic, eventType string, payload map[string]interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, broadcastEvent{Topic: topic, Event: eventType, Payload: payload})
	return nil
}

func (b *recordingBroadcaster) eventsOfType(eventType string) []broadcastEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []broadcastEvent
	for _, e := range b.events {
		if e.Event == eventType {
			out = append(out, e)
		}
	}
	return out
}

// recordingAudit captures audit entries and can be told to fail.
type recordingAudit struct {
	mu      sync.Mutex
	entries []models.AuditLog
	err     error
}

func (a *recordingAudit) RecordAction(ctx context.Context, action models.AuditAction, entityType, entityID string, values map[string]interface{}, userID *primitive.ObjectID, hotelID primitive.ObjectID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.entries = append(a.entries, models.AuditLog{
		HotelID:    hotelID,
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Values:     values,
	})
	return nil
}

func (a *recordingAudit) ListByHotel(ctx context.Context, hotelID primitive.ObjectID, limit int64) ([]*models.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.AuditLog
	for i := range a.entries {
		if a.entries[i].HotelID == hotelID {
			entry := a.entries[i]
			out = append(out, &entry)
		}
	}
	return out, nil
}

func (a *recordingAudit) ListByEntity(ctx context.Context, entityType, entityID string, limit int64) ([]*models.AuditLog, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.AuditLog
	for i := range a.entries {
		if a.entries[i].EntityType == entityType && a.entries[i].EntityID == entityID {
			entry := a.entries[i]
			out = append(out, &entry)
		}
	}
	return out, nil
}

func (a *recordingAudit) actions() []models.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []models.AuditAction
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

// memSessionStore is an in-memory SessionStore.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]string
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[primitive.ObjectID]string)}
}

func (s *memSessionStore) Put(ctx context.Context, driverID primitive.ObjectID, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[driverID] = sessionID
	return nil
}

func (s *memSessionStore) Get(ctx context.Context, driverID primitive.ObjectID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sessionID, ok := s.sessions[driverID]
	if !ok {
		return "", ErrSessionNotFound
	}
	return sessionID, nil
}

func (s *memSessionStore) Invalidate(ctx context.Context, driverID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, driverID)
	return nil
}
