// Package session keeps the local session credentials the live backend
// transport attaches to requests.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"payfriend/internal/cache"
	"payfriend/internal/database"
	"payfriend/internal/models"
)

// currentKey names the single local session of this client.
const currentKey = "payfriend:session:current"

var ErrNoSession = errors.New("session: no active session")

// Backend persists one session per key.
type Backend interface {
	Save(ctx context.Context, key string, s models.Session) error
	Load(ctx context.Context, key string) (models.Session, error) // ErrNoSession when absent
	Delete(ctx context.Context, key string) error
}

// Store manages the local session.
type Store struct {
	backend Backend
	now     func() time.Time
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend, now: time.Now}
}

// NewMemoryStore is a Store over an in-process cache.
func NewMemoryStore() *Store {
	return NewStore(NewCacheBackend(cache.NewInMemoryCache(), 0))
}

// Start replaces the local session with a new one.
func (s *Store) Start(ctx context.Context, userID, accessToken string) (models.Session, error) {
	sess := models.Session{
		UserID:      userID,
		AccessToken: accessToken,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.backend.Save(ctx, currentKey, sess); err != nil {
		return models.Session{}, fmt.Errorf("failed to save session: %w", err)
	}
	return sess, nil
}

// Current returns the local session or ErrNoSession.
func (s *Store) Current(ctx context.Context) (models.Session, error) {
	return s.backend.Load(ctx, currentKey)
}

// Invalidate clears the local session. Invalidating with no session is a no-op.
func (s *Store) Invalidate(ctx context.Context) error {
	if err := s.backend.Delete(ctx, currentKey); err != nil {
		return fmt.Errorf("failed to invalidate session: %w", err)
	}
	return nil
}

// Token returns the current access token, or "" when there is no usable
// session. It fits transport.TokenSource.
func (s *Store) Token(ctx context.Context) string {
	sess, err := s.Current(ctx)
	if err != nil {
		return ""
	}
	return sess.AccessToken
}

type cacheBackend struct {
	cache cache.Cache
	ttl   time.Duration
}

// NewCacheBackend stores sessions as JSON in c; ttl 0 keeps them until
// invalidated.
func NewCacheBackend(c cache.Cache, ttl time.Duration) Backend {
	return &cacheBackend{cache: c, ttl: ttl}
}

func (b *cacheBackend) Save(ctx context.Context, key string, s models.Session) error {
	return cache.SetJSON(ctx, b.cache, key, s, b.ttl)
}

func (b *cacheBackend) Load(ctx context.Context, key string) (models.Session, error) {
	var s models.Session
	err := cache.GetJSON(ctx, b.cache, key, &s)
	if errors.Is(err, cache.ErrNotFound) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

func (b *cacheBackend) Delete(ctx context.Context, key string) error {
	return b.cache.Delete(ctx, key)
}

type dbBackend struct {
	db *database.DB
}

// NewDBBackend stores sessions in the sqlite sessions table.
func NewDBBackend(db *database.DB) Backend {
	return &dbBackend{db: db}
}

func (b *dbBackend) Save(ctx context.Context, key string, s models.Session) error {
	return b.db.UpsertSession(ctx, key, s)
}

func (b *dbBackend) Load(ctx context.Context, key string) (models.Session, error) {
	s, err := b.db.GetSession(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return models.Session{}, ErrNoSession
	}
	return s, err
}

func (b *dbBackend) Delete(ctx context.Context, key string) error {
	return b.db.DeleteSession(ctx, key)
}
