package tickets

import (
	"context"
	"errors"
	"fmt"

	"seatline/internal/reservations"
	"seatline/internal/segments"
	"seatline/internal/trips"

	"gorm.io/gorm"
)

// Repository persists composed tickets. Transaction binds every store a
// composition touches to one database transaction.
type Repository interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
	// FindKey returns nil when the key was never recorded
	FindKey(ctx context.Context, key string) (*IdempotencyRecord, error)
}

// Tx is the transactional view used while composing a ticket
type Tx interface {
	Reservations() reservations.Repository
	Sequences() segments.SequenceSource
	// LockKey serializes transactions carrying the same idempotency key
	// until commit
	LockKey(ctx context.Context, key string) error
	FindKey(ctx context.Context, key string) (*IdempotencyRecord, error)
	SaveKey(ctx context.Context, record *IdempotencyRecord) error
}

type repository struct {
	db           *gorm.DB
	reservations reservations.Repository
	trips        trips.Repository
}

func NewRepository(db *gorm.DB, reservationRepo reservations.Repository, tripRepo trips.Repository) Repository {
	return &repository{db: db, reservations: reservationRepo, trips: tripRepo}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&gormTx{
			db:           db,
			reservations: r.reservations.WithTx(db),
			trips:        r.trips.WithTx(db),
		})
	})
}

func (r *repository) FindKey(ctx context.Context, key string) (*IdempotencyRecord, error) {
	return findKey(ctx, r.db, key)
}

type gormTx struct {
	db           *gorm.DB
	reservations reservations.Repository
	trips        trips.Repository
}

func (t *gormTx) Reservations() reservations.Repository { return t.reservations }
func (t *gormTx) Sequences() segments.SequenceSource    { return t.trips }

func (t *gormTx) LockKey(ctx context.Context, key string) error {
	if err := t.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to lock idempotency key: %w", err)
	}
	return nil
}

func (t *gormTx) FindKey(ctx context.Context, key string) (*IdempotencyRecord, error) {
	return findKey(ctx, t.db, key)
}

// SaveKey fails with gorm.ErrDuplicatedKey when a concurrent request
// recorded the same key first.
func (t *gormTx) SaveKey(ctx context.Context, record *IdempotencyRecord) error {
	if err := t.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to record idempotency key: %w", err)
	}
	return nil
}

func findKey(ctx context.Context, db *gorm.DB, key string) (*IdempotencyRecord, error) {
	var record IdempotencyRecord
	err := db.WithContext(ctx).Where("idempotency_key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", err)
	}
	return &record, nil
}
