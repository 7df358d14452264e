package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytevault/server/pkg/cache"
	"github.com/bytevault/server/pkg/database"
	"github.com/bytevault/server/pkg/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// ErrInvalidAPIKey is returned when no account matches the presented key.
var ErrInvalidAPIKey = errors.New("invalid API key")

// KeyStore resolves an API key to its record.
type KeyStore interface {
	LookupAPIKey(ctx context.Context, key string) (models.APIKey, error)
}

// Authenticator validates API keys against the key store, caching
// successful lookups in Redis so the hot path skips Postgres.
type Authenticator struct {
	keys   KeyStore
	cache  *cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewAuthenticator creates a new authenticator. cache may be nil, in
// which case every lookup hits the store.
func NewAuthenticator(keys KeyStore, cache *cache.Cache, ttl time.Duration, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		keys:   keys,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
	}
}

// ValidateAPIKey resolves key to the owning user's id.
func (a *Authenticator) ValidateAPIKey(ctx context.Context, key string) (uuid.UUID, error) {
	if key == "" {
		return uuid.Nil, ErrInvalidAPIKey
	}

	cacheKey := "auth:apikey:" + key
	if a.cache != nil {
		if val, err := a.cache.Get(ctx, cacheKey); err == nil {
			if userID, err := uuid.Parse(val); err == nil {
				return userID, nil
			}
		}
	}

	apiKey, err := a.keys.LookupAPIKey(ctx, key)
	if err != nil {
		if errors.Is(err, ErrInvalidAPIKey) {
			return uuid.Nil, ErrInvalidAPIKey
		}
		return uuid.Nil, fmt.Errorf("failed to look up API key: %w", err)
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, cacheKey, apiKey.UserID.String(), a.ttl); err != nil {
			a.logger.Debug("failed to cache API key", zap.Error(err))
		}
	}
	return apiKey.UserID, nil
}

// PostgresKeyStore looks API keys up in the api_keys table.
type PostgresKeyStore struct {
	db *database.Database
}

// NewPostgresKeyStore creates a Postgres-backed key store
func NewPostgresKeyStore(db *database.Database) *PostgresKeyStore {
	return &PostgresKeyStore{db: db}
}

func (s *PostgresKeyStore) LookupAPIKey(ctx context.Context, key string) (models.APIKey, error) {
	var apiKey models.APIKey
	err := s.db.Pool.QueryRow(ctx, `
		SELECT key, user_id, label, created_at FROM api_keys WHERE key = $1
	`, key).Scan(&apiKey.Key, &apiKey.UserID, &apiKey.Label, &apiKey.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.APIKey{}, ErrInvalidAPIKey
		}
		return models.APIKey{}, fmt.Errorf("failed to query API key: %w", err)
	}

	// Best effort; last_used_at is informational.
	_, _ = s.db.Pool.Exec(ctx, `UPDATE api_keys SET last_used_at = NOW() WHERE key = $1`, key)

	return apiKey, nil
}

type contextKey string

const userIDKey contextKey = "user_id"

func contextWithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// userIDFrom extracts the authenticated user id set by authMiddleware.
func userIDFrom(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(userIDKey).(uuid.UUID)
	return userID, ok
}
