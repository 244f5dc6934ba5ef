package trips

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	GetTrip(ctx context.Context, tripID int64) (*Trip, error)
	SequenceFor(ctx context.Context, tripID int64) (*Sequence, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) GetTrip(ctx context.Context, tripID int64) (*Trip, error) {
	var trip Trip
	if err := r.db.WithContext(ctx).First(&trip, tripID).Error; err != nil {
		return nil, err
	}
	return &trip, nil
}

// SequenceFor loads the stop list of a trip. A trip without stops yields an
// empty sequence, in which no station resolves.
func (r *repository) SequenceFor(ctx context.Context, tripID int64) (*Sequence, error) {
	var stops []TripStation
	err := r.db.WithContext(ctx).
		Where("trip_id = ?", tripID).
		Order("sequence ASC").
		Find(&stops).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load stations of trip %d: %w", tripID, err)
	}
	return NewSequence(tripID, stops)
}
