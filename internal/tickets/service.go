package tickets

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"seatline/internal/notifications"
	"seatline/internal/pricing"
	"seatline/internal/reservations"
	"seatline/internal/segments"
	"seatline/internal/shared/apperror"
	"seatline/internal/shared/constants"
	"seatline/pkg/cache"
	"seatline/pkg/clock"
	"seatline/pkg/logger"
	"seatline/pkg/redislock"

	"gorm.io/gorm"
)

const defaultPaymentMethod = "cash"

// TicketInput is a normalized ticket. Nil means absent.
type TicketInput struct {
	TripID            *int64
	SeatID            *int64
	BoardStationID    *int64
	ExitStationID     *int64
	PriceListID       *int64
	PricingCategoryID *int64
	DiscountTypeID    *int64
	BasePrice         *float64
	FinalPrice        *float64
	Currency          string
	PaymentMethod     string
	CreatedAt         *time.Time

	// IdempotencyKey deduplicates replays when set
	IdempotencyKey string
	DeviceID       string
	InstallID      string
	LocalID        string
}

type Service interface {
	CreateTicket(ctx context.Context, in TicketInput, actorID int64) (*TicketResult, error)
	SubmitBatch(ctx context.Context, deviceID, installID string, items []TicketRequest, actorID int64) (*BatchResponse, error)
}

// Options tune the composition service
type Options struct {
	DefaultCurrency   string
	DefaultCategoryID int64
	MaxBatchSize      int
	BatchLockTTL      time.Duration
	Pricing           pricing.Service
	Locker            *redislock.Locker
	Cache             cache.Service
	Publisher         notifications.Publisher
	Clock             clock.Clock
	Logger            *logger.Logger
}

type service struct {
	repo Repository
	opts Options
}

func NewService(repo Repository, opts Options) Service {
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "RON"
	}
	if opts.DefaultCategoryID <= 0 {
		opts.DefaultCategoryID = pricing.DefaultCategoryID
	}
	if opts.MaxBatchSize <= 0 {
		opts.MaxBatchSize = 500
	}
	if opts.BatchLockTTL <= 0 {
		opts.BatchLockTTL = constants.TTL_BATCH_LOCK
	}
	if opts.Cache == nil {
		opts.Cache = cache.Noop()
	}
	if opts.Publisher == nil {
		opts.Publisher = notifications.Noop()
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetDefault()
	}
	return &service{repo: repo, opts: opts}
}

// CreateTicket composes a reservation with its pricing, discount and
// payment rows in one transaction. Seated tickets hold the seat lock from
// the conflict check until commit.
func (s *service) CreateTicket(ctx context.Context, in TicketInput, actorID int64) (*TicketResult, error) {
	if in.TripID == nil || *in.TripID <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidTripID, "trip_id is required")
	}
	if in.SeatID != nil && (in.BoardStationID == nil || in.ExitStationID == nil) {
		return nil, apperror.ErrIncomplete
	}
	if in.BasePrice != nil && *in.BasePrice < 0 || in.FinalPrice != nil && *in.FinalPrice < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "prices must not be negative")
	}

	plan, err := s.plan(ctx, in)
	if err != nil {
		return nil, err
	}

	var result *TicketResult
	err = s.repo.Transaction(ctx, func(tx Tx) error {
		if in.IdempotencyKey != "" {
			// Taken before the seat lock so a concurrent twin either replays
			// here or never reaches the conflict check
			if err := tx.LockKey(ctx, in.IdempotencyKey); err != nil {
				return err
			}
			existing, err := tx.FindKey(ctx, in.IdempotencyKey)
			if err != nil {
				return err
			}
			if existing != nil {
				result = replayOf(existing)
				return nil
			}
		}

		created, err := s.compose(ctx, tx, in, plan, actorID)
		if err != nil {
			return err
		}
		result = created

		if in.IdempotencyKey != "" {
			return tx.SaveKey(ctx, &IdempotencyRecord{
				Key:           in.IdempotencyKey,
				DeviceID:      in.DeviceID,
				InstallID:     in.InstallID,
				LocalID:       in.LocalID,
				TripID:        *in.TripID,
				ReservationID: created.ReservationID,
				PaymentID:     created.PaymentID,
			})
		}
		return nil
	})
	if err != nil {
		// A concurrent request with the same key won the insert
		if in.IdempotencyKey != "" && errors.Is(err, gorm.ErrDuplicatedKey) {
			if existing, findErr := s.repo.FindKey(ctx, in.IdempotencyKey); findErr == nil && existing != nil {
				return replayOf(existing), nil
			}
		}
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.Internal("failed to save ticket", err)
	}

	if !result.Replayed {
		s.afterCommit(ctx, in, result, actorID)
	}
	return result, nil
}

// ticketPlan holds the values decided before the transaction starts
type ticketPlan struct {
	basePrice *float64
	netPrice  *float64
	category  int64
	currency  string
	method    string
	paidAt    time.Time
}

func (s *service) plan(ctx context.Context, in TicketInput) (ticketPlan, error) {
	p := ticketPlan{
		basePrice: in.BasePrice,
		category:  s.opts.DefaultCategoryID,
		currency:  in.Currency,
		method:    in.PaymentMethod,
		paidAt:    s.opts.Clock.Now().UTC(),
	}
	if in.PricingCategoryID != nil {
		p.category = *in.PricingCategoryID
	}
	if p.currency == "" {
		p.currency = s.opts.DefaultCurrency
	}
	if len(p.currency) != 3 {
		return p, apperror.Validation(apperror.CodeInvalidRequest, "currency must be a 3 letter code")
	}
	if p.method == "" {
		p.method = defaultPaymentMethod
	}
	if in.CreatedAt != nil {
		p.paidAt = in.CreatedAt.UTC()
	}

	// Fill a missing list price from the price list itself
	if p.basePrice == nil && in.PriceListID != nil && in.BoardStationID != nil && in.ExitStationID != nil && s.opts.Pricing != nil {
		price, err := s.opts.Pricing.ItemPrice(ctx, *in.PriceListID, *in.BoardStationID, *in.ExitStationID)
		if err != nil {
			return p, apperror.Internal("failed to resolve list price", err)
		}
		p.basePrice = price
	}

	p.netPrice = in.FinalPrice
	if p.netPrice == nil {
		p.netPrice = p.basePrice
	}
	return p, nil
}

func (s *service) compose(ctx context.Context, tx Tx, in TicketInput, p ticketPlan, actorID int64) (*TicketResult, error) {
	repo := tx.Reservations()

	if in.SeatID != nil {
		if err := repo.LockSeat(ctx, *in.TripID, *in.SeatID); err != nil {
			return nil, err
		}
		validator := segments.NewValidator(tx.Sequences(), repo)
		err := validator.CheckSegment(ctx, segments.Request{
			TripID:         *in.TripID,
			SeatID:         *in.SeatID,
			BoardStationID: *in.BoardStationID,
			ExitStationID:  *in.ExitStationID,
		})
		if err != nil {
			return nil, err
		}
	}

	actor := actorRef(actorID)
	reservation := &reservations.Reservation{
		TripID:          *in.TripID,
		SeatID:          in.SeatID,
		BoardStationID:  in.BoardStationID,
		ExitStationID:   in.ExitStationID,
		Status:          reservations.StatusActive,
		Version:         1,
		CreatedBy:       actor,
		ReservationTime: p.paidAt,
	}
	if err := repo.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("failed to insert reservation: %w", err)
	}

	if in.PriceListID != nil && p.netPrice != nil {
		discount, percent, discounted := discountOf(p.basePrice, *p.netPrice)
		discounted = discounted && in.DiscountTypeID != nil

		// The snapshot holds the list price only when a discount row
		// accounts for the difference, so base minus discount is what was charged.
		listPrice := *p.netPrice
		if discounted {
			listPrice = *p.basePrice
		}
		if err := repo.CreatePricing(ctx, &reservations.PricingSnapshot{
			ReservationID:     reservation.ID,
			PriceValue:        listPrice,
			PriceListID:       *in.PriceListID,
			PricingCategoryID: p.category,
			BookingChannel:    reservations.ChannelDriver,
			EmployeeID:        actor,
		}); err != nil {
			return nil, fmt.Errorf("failed to insert pricing snapshot: %w", err)
		}

		if discounted {
			if err := repo.CreateDiscount(ctx, &reservations.DiscountSnapshot{
				ReservationID:   reservation.ID,
				DiscountTypeID:  *in.DiscountTypeID,
				DiscountAmount:  discount,
				SnapshotPercent: percent,
			}); err != nil {
				return nil, fmt.Errorf("failed to insert discount snapshot: %w", err)
			}
		}
	}

	result := &TicketResult{ReservationID: reservation.ID}
	if p.netPrice != nil {
		payment := &reservations.Payment{
			ReservationID: reservation.ID,
			Amount:        *p.netPrice,
			Currency:      p.currency,
			Status:        reservations.PaymentPaid,
			Method:        p.method,
			Timestamp:     p.paidAt,
			CollectedBy:   actor,
		}
		if err := repo.CreatePayment(ctx, payment); err != nil {
			return nil, fmt.Errorf("failed to insert payment: %w", err)
		}
		result.PaymentID = &payment.ID
	}

	if err := repo.AppendEvent(ctx, &reservations.Event{
		ReservationID: reservation.ID,
		Action:        reservations.ActionCreate,
		ActorID:       actor,
		Details:       []byte(`{"source":"driver_app"}`),
	}); err != nil {
		return nil, err
	}
	return result, nil
}

// discountOf returns the discount granted when net is below base, and its
// share of base in percent, both rounded to cents.
func discountOf(base *float64, net float64) (amount, percent float64, ok bool) {
	if base == nil || *base <= net {
		return 0, 0, false
	}
	amount = round2(*base - net)
	if *base > 0 {
		percent = round2(amount / *base * 100)
	}
	return amount, percent, true
}

func (s *service) afterCommit(ctx context.Context, in TicketInput, result *TicketResult, actorID int64) {
	tripID := *in.TripID
	if err := s.opts.Cache.Delete(ctx, constants.BuildTripManifestKey(tripID)); err != nil {
		s.opts.Logger.WarnContext(ctx, "failed to invalidate trip view", "trip_id", tripID, "error", err)
	}
	s.opts.Logger.LogTicketCreated(ctx, result.ReservationID, result.PaymentID, tripID, actorID)

	event := notifications.NewReservationEvent(notifications.EventReservationCreated, result.ReservationID, tripID, in.SeatID, actorID)
	event.PaymentID = result.PaymentID
	if in.DeviceID != "" {
		event.Attributes = map[string]string{"device_id": in.DeviceID}
	}
	if err := s.opts.Publisher.Publish(ctx, event); err != nil {
		s.opts.Logger.ErrorWithContext(ctx, "failed to publish ticket event", err, map[string]interface{}{
			"reservation_id": result.ReservationID,
		})
	}
}

func replayOf(record *IdempotencyRecord) *TicketResult {
	return &TicketResult{
		ReservationID: record.ReservationID,
		PaymentID:     record.PaymentID,
		Replayed:      true,
	}
}

func actorRef(actorID int64) *int64 {
	if actorID <= 0 {
		return nil
	}
	return &actorID
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
