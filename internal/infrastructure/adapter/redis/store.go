package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lunapay/payment-orchestrator/internal/domain/entity"
	errs "github.com/lunapay/payment-orchestrator/internal/domain/error"
	coreport "github.com/lunapay/payment-orchestrator/internal/domain/port/core"
	"github.com/lunapay/payment-orchestrator/internal/domain/port/persistence"
)

const snapshotKeyPrefix = "payment-snapshot:"

// Config holds the redis store settings
type Config struct {
	Addr     string
	Password string
	DB       int

	// MarkerTTL bounds how long a crashed process can block its business key
	MarkerTTL time.Duration

	// SnapshotTTL bounds the materialized authorize view; the ledger remains
	// the source of truth after expiry
	SnapshotTTL time.Duration
}

// DefaultConfig returns the redis store defaults
func DefaultConfig() Config {
	return Config{
		Addr:        "localhost:6379",
		MarkerTTL:   15 * time.Minute,
		SnapshotTTL: 24 * time.Hour,
	}
}

// Store implements the in-flight marker guard and the authorize snapshot view
// on a single redis client
type Store struct {
	client *redis.Client
	config Config
	logger coreport.Logger
}

var (
	_ persistence.MarkerStore   = (*Store)(nil)
	_ persistence.SnapshotStore = (*Store)(nil)
)

// NewStore creates a Store and verifies connectivity
func NewStore(ctx context.Context, config Config, logger coreport.Logger) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrCacheUnavailable, err)
	}
	return &Store{client: client, config: config, logger: logger}, nil
}

// Close releases the underlying redis client
func (s *Store) Close() error {
	return s.client.Close()
}

// GetMarker returns the marker for the key, or nil when absent
func (s *Store) GetMarker(ctx context.Context, key string) (*entity.InFlightMarker, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get marker %s: %v", errs.ErrCacheUnavailable, key, err)
	}

	var marker entity.InFlightMarker
	if err := json.Unmarshal(raw, &marker); err != nil {
		// A corrupt marker must not block the business key forever.
		s.logger.Warn("Dropping unreadable in-flight marker", map[string]any{
			"key":   key,
			"error": err.Error(),
		})
		_ = s.client.Del(ctx, key).Err()
		return nil, nil
	}
	return &marker, nil
}

// CreateMarker writes the marker with the configured TTL
func (s *Store) CreateMarker(ctx context.Context, key string, marker *entity.InFlightMarker) error {
	raw, err := json.Marshal(marker)
	if err != nil {
		return fmt.Errorf("failed to encode marker %s: %w", key, err)
	}
	if err := s.client.Set(ctx, key, raw, s.config.MarkerTTL).Err(); err != nil {
		return fmt.Errorf("%w: create marker %s: %v", errs.ErrCacheUnavailable, key, err)
	}
	return nil
}

// DeleteMarker removes the marker
func (s *Store) DeleteMarker(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: delete marker %s: %v", errs.ErrCacheUnavailable, key, err)
	}
	return nil
}

// GetSnapshot returns the authorize snapshot, or nil when absent
func (s *Store) GetSnapshot(ctx context.Context, authorizePaymentID string) (*entity.AuthorizeSnapshot, error) {
	key := snapshotKeyPrefix + authorizePaymentID
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get snapshot %s: %v", errs.ErrCacheUnavailable, authorizePaymentID, err)
	}

	var snapshot entity.AuthorizeSnapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		s.logger.Warn("Dropping unreadable authorize snapshot", map[string]any{
			"authorize_payment_id": authorizePaymentID,
			"error":                err.Error(),
		})
		_ = s.client.Del(ctx, key).Err()
		return nil, nil
	}
	return &snapshot, nil
}

// PutSnapshot publishes a fresh snapshot after a successful authorize
func (s *Store) PutSnapshot(ctx context.Context, snapshot *entity.AuthorizeSnapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot %s: %w", snapshot.PaymentID, err)
	}
	key := snapshotKeyPrefix + snapshot.PaymentID
	if err := s.client.Set(ctx, key, raw, s.config.SnapshotTTL).Err(); err != nil {
		return fmt.Errorf("%w: put snapshot %s: %v", errs.ErrCacheUnavailable, snapshot.PaymentID, err)
	}
	return nil
}

// MarkCaptured flips the monotone captured flag
func (s *Store) MarkCaptured(ctx context.Context, authorizePaymentID string) error {
	return s.flipFlag(ctx, authorizePaymentID, func(snap *entity.AuthorizeSnapshot) {
		snap.IsCaptured = true
	})
}

// MarkVoided flips the monotone voided flag
func (s *Store) MarkVoided(ctx context.Context, authorizePaymentID string) error {
	return s.flipFlag(ctx, authorizePaymentID, func(snap *entity.AuthorizeSnapshot) {
		snap.IsVoided = true
	})
}

// MarkRefunded flips the monotone refunded flag
func (s *Store) MarkRefunded(ctx context.Context, authorizePaymentID string) error {
	return s.flipFlag(ctx, authorizePaymentID, func(snap *entity.AuthorizeSnapshot) {
		snap.IsRefunded = true
	})
}

// flipFlag rewrites the snapshot with one flag set. Flags only move
// false -> true, so a lost concurrent update converges on the next flip.
// An absent snapshot is not an error; the ledger already holds the truth.
func (s *Store) flipFlag(ctx context.Context, authorizePaymentID string, mutate func(*entity.AuthorizeSnapshot)) error {
	snapshot, err := s.GetSnapshot(ctx, authorizePaymentID)
	if err != nil {
		return err
	}
	if snapshot == nil {
		return nil
	}
	mutate(snapshot)
	return s.PutSnapshot(ctx, snapshot)
}
