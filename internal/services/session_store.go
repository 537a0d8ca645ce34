package services

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"buggydispatch/internal/utils"
	"buggydispatch/pkg/cache"
)

// SessionStore keeps the driver's current session id in redis so logout can
// invalidate it synchronously, independent of the deferred state cleanup.
type SessionStore interface {
	Put(ctx context.Context, driverID primitive.ObjectID, sessionID string) error
	Get(ctx context.Context, driverID primitive.ObjectID) (string, error)
	Invalidate(ctx context.Context, driverID primitive.ObjectID) error
}

var ErrSessionNotFound = errors.New("session not found")

type redisSessionStore struct {
	cache *cache.RedisCache
	ttl   time.Duration
}

func NewSessionStore(c *cache.RedisCache, ttl time.Duration) SessionStore {
	return &redisSessionStore{
		cache: c,
		ttl:   ttl,
	}
}

func (s *redisSessionStore) Put(ctx context.Context, driverID primitive.ObjectID, sessionID string) error {
	return s.cache.Set(ctx, utils.SessionKeyPrefix+driverID.Hex(), sessionID, s.ttl)
}

func (s *redisSessionStore) Get(ctx context.Context, driverID primitive.ObjectID) (string, error) {
	var sessionID string
	err := s.cache.Get(ctx, utils.SessionKeyPrefix+driverID.Hex(), &sessionID)
	if err == cache.ErrCacheMiss {
		return "", ErrSessionNotFound
	}
	if err != nil {
		return "", err
	}
	return sessionID, nil
}

func (s *redisSessionStore) Invalidate(ctx context.Context, driverID primitive.ObjectID) error {
	return s.cache.Delete(ctx, utils.SessionKeyPrefix+driverID.Hex())
}
