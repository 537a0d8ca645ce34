package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/config"
	"buggydispatch/internal/models"
	"buggydispatch/pkg/database"
	"buggydispatch/pkg/logger"
)

type sessionFixture struct {
	users       *memUserRepo
	assignments *memAssignmentRepo
	buggies     *memBuggyRepo
	locations   *memLocationRepo
	audit       *recordingAudit
	broadcaster *recordingBroadcaster
	sessions    *memSessionStore
	worker      *CleanupWorker
	service     SessionService
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		users:       newMemUserRepo(),
		assignments: newMemAssignmentRepo(),
		buggies:     newMemBuggyRepo(),
		locations:   newMemLocationRepo(),
		audit:       &recordingAudit{},
		broadcaster: &recordingBroadcaster{},
		sessions:    newMemSessionStore(),
	}

	log := logger.NewNop()
	f.worker = NewCleanupWorker(&config.WorkerConfig{
		Workers:         1,
		QueueSize:       8,
		JobTimeout:      time.Second,
		ShutdownTimeout: time.Second,
	}, log)
	f.worker.Start()
	t.Cleanup(f.worker.Stop)

	f.service = NewSessionService(
		f.users, f.assignments, f.buggies, f.locations,
		f.audit, f.broadcaster, database.NoopTransactor{}, f.worker, f.sessions, log,
	)
	return f
}

func (f *sessionFixture) addDriver(t *testing.T, hotelID primitive.ObjectID) *models.User {
	t.Helper()
	driver := &models.User{
		HotelID:   hotelID,
		FirstName: "Test",
		LastName:  "Driver",
		Email:     primitive.NewObjectID().Hex() + "@hotel.test",
		Role:      models.UserRoleDriver,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), driver))
	return driver
}

func (f *sessionFixture) addBuggy(t *testing.T, hotelID primitive.ObjectID) *models.Buggy {
	t.Helper()
	buggy := &models.Buggy{
		HotelID:  hotelID,
		Code:     primitive.NewObjectID().Hex()[:6],
		Status:   models.BuggyStatusOffline,
		IsActive: true,
	}
	require.NoError(t, f.buggies.Create(context.Background(), buggy))
	return buggy
}

func (f *sessionFixture) assign(t *testing.T, hotelID primitive.ObjectID, buggy *models.Buggy, driver *models.User, active bool) *models.BuggyAssignment {
	t.Helper()
	assignment := &models.BuggyAssignment{
		HotelID:  hotelID,
		BuggyID:  buggy.ID,
		DriverID: driver.ID,
		IsActive: active,
	}
	require.NoError(t, f.assignments.Create(context.Background(), assignment))
	return assignment
}

func TestLoginActivatesAllAssignments(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy1 := f.addBuggy(t, hotelID)
	buggy2 := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy1, driver, false)
	f.assign(t, hotelID, buggy2, driver, false)

	result, err := f.service.Login(context.Background(), driver.ID)
	require.NoError(t, err)

	assert.Len(t, result.ActivatedBuggyIDs, 2)
	assert.Empty(t, result.EvictedDriverIDs)
	assert.True(t, result.NeedsLocationSelection)

	active, err := f.assignments.GetActiveByDriver(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Len(t, active, 2)
	for _, a := range active {
		assert.NotNil(t, a.LastActiveAt)
	}

	// Login alone never parks a buggy; the driver still has to pick a spot.
	got, err := f.buggies.GetByID(context.Background(), buggy1.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuggyStatusOffline, got.Status)
	assert.False(t, got.HasLocation())

	assert.Len(t, f.broadcaster.eventsOfType(EventDriverLoggedIn), 2)
	assert.Contains(t, f.audit.actions(), models.AuditActionLogin)
}

func TestLoginEvictsStaleSession(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	stale := f.addDriver(t, hotelID)
	fresh := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	staleAssignment := f.assign(t, hotelID, buggy, stale, true)
	f.assign(t, hotelID, buggy, fresh, false)

	result, err := f.service.Login(context.Background(), fresh.ID)
	require.NoError(t, err)

	require.Len(t, result.EvictedDriverIDs, 1)
	assert.Equal(t, stale.ID, result.EvictedDriverIDs[0])

	got, err := f.assignments.GetByID(context.Background(), staleAssignment.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := f.assignments.GetActiveByBuggy(context.Background(), buggy.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].DriverID)

	// The evicted driver and the admins both hear about it.
	logouts := f.broadcaster.eventsOfType(EventDriverLoggedOut)
	require.Len(t, logouts, 2)
	for _, e := range logouts {
		assert.Equal(t, ReasonDriverEvicted, e.Payload["reason"])
	}
}

func TestLoginRejectsNonDrivers(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()

	admin := &models.User{
		HotelID:   hotelID,
		FirstName: "Test",
		LastName:  "Admin",
		Email:     "admin@hotel.test",
		Role:      models.UserRoleAdmin,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), admin))

	_, err := f.service.Login(context.Background(), admin.ID)
	assert.ErrorIs(t, err, ErrNotADriver)

	_, err = f.service.Login(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrDriverNotFound)
}

func TestLoginWithoutAssignments(t *testing.T) {
	f := newSessionFixture(t)
	driver := f.addDriver(t, primitive.NewObjectID())

	result, err := f.service.Login(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Empty(t, result.ActivatedBuggyIDs)
	assert.True(t, result.NeedsLocationSelection)
}

func TestLogoutDefersCleanup(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	assignment := f.assign(t, hotelID, buggy, driver, true)

	locationID := primitive.NewObjectID()
	require.NoError(t, f.buggies.Update(context.Background(), buggy.ID, map[string]interface{}{
		"status":              models.BuggyStatusAvailable,
		"current_location_id": locationID,
	}))
	require.NoError(t, f.sessions.Put(context.Background(), driver.ID, "session-1"))

	require.NoError(t, f.service.Logout(context.Background(), driver.ID, hotelID))

	// The session key dies synchronously.
	_, err := f.sessions.Get(context.Background(), driver.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// The state reset happens on the worker.
	require.Eventually(t, func() bool {
		got, err := f.assignments.GetByID(context.Background(), assignment.ID)
		return err == nil && !got.IsActive
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		got, err := f.buggies.GetByID(context.Background(), buggy.ID)
		return err == nil && got.Status == models.BuggyStatusOffline && !got.HasLocation()
	}, time.Second, 10*time.Millisecond)
}

func TestCleanupIsIdempotent(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, driver, true)

	require.NoError(t, f.service.CleanupDriverSessions(context.Background(), driver.ID, hotelID))
	require.NoError(t, f.service.CleanupDriverSessions(context.Background(), driver.ID, hotelID))

	// Only the first pass found work; the second recorded nothing.
	var logouts int
	for _, action := range f.audit.actions() {
		if action == models.AuditActionLogout {
			logouts++
		}
	}
	assert.Equal(t, 1, logouts)
	assert.Len(t, f.broadcaster.eventsOfType(EventBuggyStatusChange), 1)
}

func TestCleanupSkipsDeletedBuggy(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	assignment := f.assign(t, hotelID, buggy, driver, true)

	require.NoError(t, f.buggies.Delete(context.Background(), buggy.ID))

	require.NoError(t, f.service.CleanupDriverSessions(context.Background(), driver.ID, hotelID))

	got, err := f.assignments.GetByID(context.Background(), assignment.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.Empty(t, f.broadcaster.eventsOfType(EventBuggyStatusChange))
}

func TestConcurrentLoginAndCleanup(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	leaving := f.addDriver(t, hotelID)
	arriving := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, leaving, true)
	f.assign(t, hotelID, buggy, arriving, false)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = f.service.CleanupDriverSessions(context.Background(), leaving.ID, hotelID)
	}()
	go func() {
		defer wg.Done()
		_, _ = f.service.Login(context.Background(), arriving.ID)
	}()
	wg.Wait()

	// Whichever side wins, the buggy never ends up with two live sessions
	// and the leaving driver's session is gone.
	active, err := f.assignments.GetActiveByBuggy(context.Background(), buggy.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(active), 1)

	leavingActive, err := f.assignments.GetActiveByDriver(context.Background(), leaving.ID)
	require.NoError(t, err)
	assert.Empty(t, leavingActive)
}

func TestConcurrentLoginsSameBuggy(t *testing.T) {
	for iteration := 0; iteration < 50; iteration++ {
		f := newSessionFixture(t)
		hotelID := primitive.NewObjectID()
		buggy := f.addBuggy(t, hotelID)

		driverIDs := make([]primitive.ObjectID, 4)
		for i := range driverIDs {
			driver := f.addDriver(t, hotelID)
			f.assign(t, hotelID, buggy, driver, false)
			driverIDs[i] = driver.ID
		}

		var wg sync.WaitGroup
		for _, driverID := range driverIDs {
			wg.Add(1)
			go func(id primitive.ObjectID) {
				defer wg.Done()
				_, err := f.service.Login(context.Background(), id)
				assert.NoError(t, err)
			}(driverID)
		}
		wg.Wait()

		// However the logins interleave their eviction passes, the buggy
		// never ends up with two live sessions.
		active, err := f.assignments.GetActiveByBuggy(context.Background(), buggy.ID)
		require.NoError(t, err)
		require.LessOrEqual(t, len(active), 1, "iteration %d: %d active assignments on one buggy", iteration, len(active))
	}
}

func TestLoginSurvivesBroadcastAndAuditFailures(t *testing.T) {
	f := newSessionFixture(t)
	f.broadcaster.err = errors.New("hub down")
	f.audit.err = errors.New("audit store down")

	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, driver, false)

	result, err := f.service.Login(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Len(t, result.ActivatedBuggyIDs, 1)
}

func TestSelectLocation(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, driver, true)

	location := &models.Location{
		HotelID: hotelID,
		Name:    "Main Lobby",
		QRCode:  "qr-lobby",
	}
	require.NoError(t, f.locations.Create(context.Background(), location))

	require.NoError(t, f.service.SelectLocation(context.Background(), driver.ID, buggy.ID, location.ID))

	got, err := f.buggies.GetByID(context.Background(), buggy.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BuggyStatusAvailable, got.Status)
	require.NotNil(t, got.CurrentLocationID)
	assert.Equal(t, location.ID, *got.CurrentLocationID)

	updates := f.broadcaster.eventsOfType(EventBuggyStatusUpdate)
	require.NotEmpty(t, updates)
	assert.Equal(t, "Main Lobby", updates[len(updates)-1].Payload["location_name"])
}

func TestSelectLocationRequiresLiveSession(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, driver, false)

	location := &models.Location{HotelID: hotelID, Name: "Pool", QRCode: "qr-pool"}
	require.NoError(t, f.locations.Create(context.Background(), location))

	err := f.service.SelectLocation(context.Background(), driver.ID, buggy.ID, location.ID)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestSelectLocationUnknownLocation(t *testing.T) {
	f := newSessionFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addDriver(t, hotelID)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, driver, true)

	err := f.service.SelectLocation(context.Background(), driver.ID, buggy.ID, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrLocationNotFound)
}
