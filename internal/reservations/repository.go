package reservations

import (
	"context"
	"errors"
	"fmt"

	"seatline/internal/segments"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// Transaction runs fn against a repository bound to one database transaction
	Transaction(ctx context.Context, fn func(tx Repository) error) error

	// Reads
	FindByID(ctx context.Context, id int64) (*Reservation, error)
	ActiveSegments(ctx context.Context, tripID, seatID int64) ([]segments.Segment, error)
	PaymentSummary(ctx context.Context, id int64) (*PaymentSummary, error)
	TripManifest(ctx context.Context, tripID int64) ([]ManifestRow, error)

	// Lifecycle writes
	UpdateIfVersion(ctx context.Context, id int64, version int, updates map[string]interface{}) (bool, error)
	InsertNoShow(ctx context.Context, noShow *NoShow) (bool, error)
	AppendEvent(ctx context.Context, event *Event) error

	// Composition writes
	LockSeat(ctx context.Context, tripID, seatID int64) error
	Create(ctx context.Context, reservation *Reservation) error
	CreatePricing(ctx context.Context, snapshot *PricingSnapshot) error
	CreateDiscount(ctx context.Context, snapshot *DiscountSnapshot) error
	CreatePayment(ctx context.Context, payment *Payment) error
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

func (r *repository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

func (r *repository) FindByID(ctx context.Context, id int64) (*Reservation, error) {
	var reservation Reservation
	if err := r.db.WithContext(ctx).First(&reservation, id).Error; err != nil {
		return nil, err
	}
	return &reservation, nil
}

func (r *repository) ActiveSegments(ctx context.Context, tripID, seatID int64) ([]segments.Segment, error) {
	var rows []Reservation
	err := r.db.WithContext(ctx).
		Select("id", "board_station_id", "exit_station_id").
		Where("trip_id = ? AND seat_id = ? AND status = ?", tripID, seatID, StatusActive).
		Where("board_station_id IS NOT NULL AND exit_station_id IS NOT NULL").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active reservations: %w", err)
	}

	out := make([]segments.Segment, 0, len(rows))
	for _, row := range rows {
		out = append(out, segments.Segment{
			ReservationID:  row.ID,
			BoardStationID: *row.BoardStationID,
			ExitStationID:  *row.ExitStationID,
		})
	}
	return out, nil
}

func (r *repository) PaymentSummary(ctx context.Context, id int64) (*PaymentSummary, error) {
	var row struct {
		BasePrice      *float64
		DiscountAmount float64
		PaidAmount     float64
		SettledCount   int
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			(SELECT MAX(price_value) FROM reservation_pricing WHERE reservation_id = @id) AS base_price,
			COALESCE((SELECT SUM(discount_amount) FROM reservation_discounts WHERE reservation_id = @id), 0) AS discount_amount,
			COALESCE((SELECT SUM(amount) FROM payments WHERE reservation_id = @id AND status = @paid), 0) AS paid_amount,
			(SELECT COUNT(*) FROM payments WHERE reservation_id = @id AND status = @paid) AS settled_count`,
		map[string]interface{}{"id": id, "paid": PaymentPaid},
	).Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to summarize payments: %w", err)
	}
	return &PaymentSummary{
		BasePrice:      row.BasePrice,
		DiscountAmount: row.DiscountAmount,
		PaidAmount:     row.PaidAmount,
		SettledCount:   row.SettledCount,
	}, nil
}

// UpdateIfVersion applies updates only if the stored version still matches.
// It returns false when another writer got there first.
func (r *repository) UpdateIfVersion(ctx context.Context, id int64, version int, updates map[string]interface{}) (bool, error) {
	updates["version"] = gorm.Expr("version + 1")
	res := r.db.WithContext(ctx).
		Model(&Reservation{}).
		Where("id = ? AND version = ?", id, version).
		Updates(updates)
	if res.Error != nil {
		return false, fmt.Errorf("failed to update reservation %d: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// InsertNoShow returns false when a record already existed
func (r *repository) InsertNoShow(ctx context.Context, noShow *NoShow) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reservation_id"}}, DoNothing: true}).
		Create(noShow)
	if res.Error != nil {
		return false, fmt.Errorf("failed to record no-show: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) AppendEvent(ctx context.Context, event *Event) error {
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return fmt.Errorf("failed to append reservation event: %w", err)
	}
	return nil
}

// LockSeat serializes writers of one (trip, seat) until the surrounding
// transaction ends. It must be called inside Transaction. Ids wider than
// 32 bits fold together, which only over-serializes.
func (r *repository) LockSeat(ctx context.Context, tripID, seatID int64) error {
	if err := r.db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(?, ?)", int32(tripID), int32(seatID)).Error; err != nil {
		return fmt.Errorf("failed to lock seat %d of trip %d: %w", seatID, tripID, err)
	}
	return nil
}

func (r *repository) Create(ctx context.Context, reservation *Reservation) error {
	return r.db.WithContext(ctx).Create(reservation).Error
}

func (r *repository) CreatePricing(ctx context.Context, snapshot *PricingSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *repository) CreateDiscount(ctx context.Context, snapshot *DiscountSnapshot) error {
	return r.db.WithContext(ctx).Create(snapshot).Error
}

func (r *repository) CreatePayment(ctx context.Context, payment *Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// IsNotFound reports whether err means the reservation does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
