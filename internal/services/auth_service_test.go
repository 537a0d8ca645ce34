package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"buggydispatch/internal/config"
	"buggydispatch/internal/models"
	"buggydispatch/internal/utils"
	"buggydispatch/pkg/logger"
)

type authFixture struct {
	*sessionFixture
	auth AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{sessionFixture: newSessionFixture(t)}
	f.auth = NewAuthService(f.users, f.sessions, f.service, f.audit, &config.SecurityConfig{
		JWTSecret:         "test-secret",
		JWTAccessTokenTTL: time.Hour,
		SessionTTL:        time.Hour,
	}, logger.NewNop())
	return f
}

func (f *authFixture) addUser(t *testing.T, hotelID primitive.ObjectID, email, password string, role models.UserRole) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	user := &models.User{
		HotelID:   hotelID,
		FirstName: "Pat",
		LastName:  "Jones",
		Email:     email,
		Password:  string(hash),
		Role:      role,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func TestAdminLogin(t *testing.T) {
	f := newAuthFixture(t)
	hotelID := primitive.NewObjectID()
	admin := f.addUser(t, hotelID, "admin@hotel.test", "secret123", models.UserRoleAdmin)

	response, err := f.auth.Login(context.Background(), &LoginRequest{
		Email:    "admin@hotel.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.Equal(t, admin.ID, response.User.ID)
	assert.Equal(t, "Bearer", response.TokenType)
	assert.False(t, response.NeedsLocationSelection)
	assert.Empty(t, response.ActivatedBuggyIDs)

	claims, err := utils.ValidateToken(response.AccessToken, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.UserID)
	assert.Equal(t, hotelID, claims.HotelID)
	assert.Equal(t, string(models.UserRoleAdmin), claims.Role)
}

func TestDriverLoginActivatesSession(t *testing.T) {
	f := newAuthFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addUser(t, hotelID, "driver@hotel.test", "secret123", models.UserRoleDriver)
	buggy := f.addBuggy(t, hotelID)
	f.assign(t, hotelID, buggy, driver, false)

	response, err := f.auth.Login(context.Background(), &LoginRequest{
		Email:    "driver@hotel.test",
		Password: "secret123",
	})
	require.NoError(t, err)

	assert.True(t, response.NeedsLocationSelection)
	require.Len(t, response.ActivatedBuggyIDs, 1)
	assert.Equal(t, buggy.ID, response.ActivatedBuggyIDs[0])

	// The session key matches the token's session claim.
	claims, err := utils.ValidateToken(response.AccessToken, "test-secret")
	require.NoError(t, err)
	stored, err := f.sessions.Get(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, stored)

	got, err := f.users.GetByID(context.Background(), driver.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.LastLoginAt)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	f := newAuthFixture(t)
	hotelID := primitive.NewObjectID()
	f.addUser(t, hotelID, "driver@hotel.test", "secret123", models.UserRoleDriver)

	_, err := f.auth.Login(context.Background(), &LoginRequest{
		Email:    "driver@hotel.test",
		Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.auth.Login(context.Background(), &LoginRequest{
		Email:    "nobody@hotel.test",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginRejectsSuspendedAccount(t *testing.T) {
	f := newAuthFixture(t)
	hotelID := primitive.NewObjectID()
	user := f.addUser(t, hotelID, "driver@hotel.test", "secret123", models.UserRoleDriver)
	user.Status = models.UserStatusSuspended
	require.NoError(t, f.users.Create(context.Background(), user))

	_, err := f.auth.Login(context.Background(), &LoginRequest{
		Email:    "driver@hotel.test",
		Password: "secret123",
	})
	assert.ErrorIs(t, err, ErrAccountSuspended)
}

func TestDriverLogoutGoesThroughCoordinator(t *testing.T) {
	f := newAuthFixture(t)
	hotelID := primitive.NewObjectID()
	driver := f.addUser(t, hotelID, "driver@hotel.test", "secret123", models.UserRoleDriver)
	buggy := f.addBuggy(t, hotelID)
	assignment := f.assign(t, hotelID, buggy, driver, true)
	require.NoError(t, f.sessions.Put(context.Background(), driver.ID, "session-1"))

	require.NoError(t, f.auth.Logout(context.Background(), driver.ID, hotelID, models.UserRoleDriver))

	_, err := f.sessions.Get(context.Background(), driver.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	require.Eventually(t, func() bool {
		got, err := f.assignments.GetByID(context.Background(), assignment.ID)
		return err == nil && !got.IsActive
	}, time.Second, 10*time.Millisecond)
}
