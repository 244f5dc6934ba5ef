package reservations

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"seatline/internal/notifications"
	"seatline/internal/shared/apperror"
	"seatline/internal/shared/constants"
	"seatline/pkg/cache"
	"seatline/pkg/clock"
	"seatline/pkg/logger"
)

// Default audit details for changes made from the driver app
const (
	SourceDriverApp        = "driver_app"
	ReasonCancelFromDriver = "cancel_from_driver"
)

type Service interface {
	Board(ctx context.Context, id, actorID int64) (*TransitionResult, error)
	MarkNoShow(ctx context.Context, id, actorID int64) (*TransitionResult, error)
	Cancel(ctx context.Context, id, actorID int64, req CancelRequest) (*TransitionResult, error)
	ListTripReservations(ctx context.Context, tripID int64) ([]TripReservationView, error)
	// InvalidateTrip drops the cached view of a trip after a write
	InvalidateTrip(ctx context.Context, tripID int64)
}

// Options tune the lifecycle service
type Options struct {
	VersionRetries int
	ManifestTTL    time.Duration
	Clock          clock.Clock
	Publisher      notifications.Publisher
	Cache          cache.Service
	Logger         *logger.Logger
}

type service struct {
	repo      Repository
	retries   int
	ttl       time.Duration
	clock     clock.Clock
	publisher notifications.Publisher
	cache     cache.Service
	log       *logger.Logger
}

func NewService(repo Repository, opts Options) Service {
	s := &service{
		repo:      repo,
		retries:   opts.VersionRetries,
		ttl:       opts.ManifestTTL,
		clock:     opts.Clock,
		publisher: opts.Publisher,
		cache:     opts.Cache,
		log:       opts.Logger,
	}
	if s.ttl <= 0 {
		s.ttl = constants.TTL_TRIP_MANIFEST
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	if s.publisher == nil {
		s.publisher = notifications.Noop()
	}
	if s.cache == nil {
		s.cache = cache.Noop()
	}
	if s.log == nil {
		s.log = logger.GetDefault()
	}
	return s
}

// errStale signals a lost compare-and-swap inside a transition attempt
var errStale = errors.New("stale reservation version")

// Board marks a fully paid reservation as boarded. Boarding happens once.
func (s *service) Board(ctx context.Context, id, actorID int64) (*TransitionResult, error) {
	var result *TransitionResult
	err := s.withVersionRetry(ctx, id, func(current *Reservation) error {
		if current.Boarded {
			return apperror.ErrAlreadyBoarded
		}
		summary, err := s.repo.PaymentSummary(ctx, id)
		if err != nil {
			return apperror.Internal("failed to read payments", err)
		}
		if summary.SettledCount == 0 || !summary.FullyPaid() {
			return apperror.ErrNotPaid
		}

		now := s.clock.Now().UTC()
		err = s.repo.Transaction(ctx, func(tx Repository) error {
			ok, err := tx.UpdateIfVersion(ctx, id, current.Version, map[string]interface{}{
				"boarded":    true,
				"boarded_at": now,
			})
			if err != nil {
				return err
			}
			if !ok {
				return errStale
			}
			return tx.AppendEvent(ctx, newEvent(id, ActionBoard, actorID, eventDetails{Source: SourceDriverApp}))
		})
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ReservationID: id,
			Action:        ActionBoard,
			Changed:       true,
			Status:        current.Status,
			Boarded:       true,
			BoardedAt:     &now,
			Version:       current.Version + 1,
		}
		s.afterCommit(ctx, current, notifications.EventReservationBoarded, actorID, nil)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkNoShow records that the passenger did not show up. The stored status
// is left alone; repeating the call is a successful no-op.
func (s *service) MarkNoShow(ctx context.Context, id, actorID int64) (*TransitionResult, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	created := false
	err = s.repo.Transaction(ctx, func(tx Repository) error {
		inserted, err := tx.InsertNoShow(ctx, &NoShow{
			ReservationID:  current.ID,
			PersonID:       current.PersonID,
			TripID:         current.TripID,
			SeatID:         current.SeatID,
			BoardStationID: current.BoardStationID,
			ExitStationID:  current.ExitStationID,
			AddedBy:        actorRef(actorID),
		})
		if err != nil {
			return err
		}
		if !inserted {
			return nil
		}
		created = true
		return tx.AppendEvent(ctx, newEvent(id, ActionNoShow, actorID, eventDetails{Source: SourceDriverApp}))
	})
	if err != nil {
		return nil, apperror.Internal("failed to record no-show", err)
	}

	s.log.LogReservationTransition(ctx, id, string(ActionNoShow), actorID, created)
	if created {
		s.afterCommit(ctx, current, notifications.EventReservationNoShow, actorID, nil)
	}
	return &TransitionResult{
		ReservationID: id,
		Action:        ActionNoShow,
		Changed:       created,
		Status:        DisplayStatus(current.Status, true),
		Boarded:       current.Boarded,
		BoardedAt:     current.BoardedAt,
		Version:       current.Version,
	}, nil
}

// Cancel cancels a reservation that has not boarded. Cancelling twice is a
// successful no-op and appends nothing.
func (s *service) Cancel(ctx context.Context, id, actorID int64, req CancelRequest) (*TransitionResult, error) {
	details := eventDetails{Source: req.Source, Reason: req.Reason}
	if details.Source == "" {
		details.Source = SourceDriverApp
	}
	if details.Reason == "" {
		details.Reason = ReasonCancelFromDriver
	}

	var result *TransitionResult
	err := s.withVersionRetry(ctx, id, func(current *Reservation) error {
		if current.Boarded {
			return apperror.ErrAlreadyBoarded
		}
		if current.Status == StatusCancelled {
			result = &TransitionResult{
				ReservationID: id,
				Action:        ActionCancel,
				Changed:       false,
				Status:        StatusCancelled,
				Version:       current.Version,
			}
			return nil
		}

		err := s.repo.Transaction(ctx, func(tx Repository) error {
			ok, err := tx.UpdateIfVersion(ctx, id, current.Version, map[string]interface{}{
				"status": StatusCancelled,
			})
			if err != nil {
				return err
			}
			if !ok {
				return errStale
			}
			return tx.AppendEvent(ctx, newEvent(id, ActionCancel, actorID, details))
		})
		if err != nil {
			return err
		}
		result = &TransitionResult{
			ReservationID: id,
			Action:        ActionCancel,
			Changed:       true,
			Status:        StatusCancelled,
			Version:       current.Version + 1,
		}
		s.afterCommit(ctx, current, notifications.EventReservationCancelled, actorID, map[string]string{
			"source": details.Source,
			"reason": details.Reason,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// withVersionRetry re-reads the reservation and re-runs attempt whenever a
// concurrent writer bumped the version in between.
func (s *service) withVersionRetry(ctx context.Context, id int64, attempt func(current *Reservation) error) error {
	for try := 0; ; try++ {
		current, err := s.load(ctx, id)
		if err != nil {
			return err
		}
		err = attempt(current)
		if err == nil {
			return nil
		}
		if !errors.Is(err, errStale) {
			var appErr *apperror.Error
			if errors.As(err, &appErr) {
				return appErr
			}
			return apperror.Internal("failed to update reservation", err)
		}
		if try >= s.retries {
			return apperror.ErrVersionConflict
		}
		if err := ctx.Err(); err != nil {
			return apperror.Internal("request cancelled", err)
		}
	}
}

func (s *service) load(ctx context.Context, id int64) (*Reservation, error) {
	if id <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidReservationID, "reservation id must be a positive integer")
	}
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if IsNotFound(err) {
			return nil, apperror.ErrNotFound
		}
		return nil, apperror.Internal("failed to load reservation", err)
	}
	return current, nil
}

func (s *service) afterCommit(ctx context.Context, r *Reservation, eventType notifications.EventType, actorID int64, attrs map[string]string) {
	s.InvalidateTrip(ctx, r.TripID)
	if eventType != notifications.EventReservationNoShow {
		s.log.LogReservationTransition(ctx, r.ID, string(eventType), actorID, true)
	}
	event := notifications.NewReservationEvent(eventType, r.ID, r.TripID, r.SeatID, actorID)
	event.Attributes = attrs
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.ErrorWithContext(ctx, "failed to publish reservation event", err, map[string]interface{}{
			"reservation_id": r.ID,
			"type":           string(eventType),
		})
	}
}

func (s *service) InvalidateTrip(ctx context.Context, tripID int64) {
	if err := s.cache.Delete(ctx, constants.BuildTripManifestKey(tripID)); err != nil {
		s.log.WarnContext(ctx, "failed to invalidate trip view", "trip_id", tripID, "error", err)
	}
}

// ListTripReservations returns active and cancelled reservations of a trip
// with computed prices and display status
func (s *service) ListTripReservations(ctx context.Context, tripID int64) ([]TripReservationView, error) {
	if tripID <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidTripID, "trip_id must be a positive integer")
	}
	var views []TripReservationView
	err := s.cache.GetOrSet(ctx, constants.BuildTripManifestKey(tripID), s.ttl, func() (interface{}, error) {
		rows, err := s.repo.TripManifest(ctx, tripID)
		if err != nil {
			return nil, err
		}
		out := make([]TripReservationView, 0, len(rows))
		for _, row := range rows {
			out = append(out, BuildView(row))
		}
		return out, nil
	}, &views)
	if err != nil {
		return nil, apperror.Internal("failed to list trip reservations", err)
	}
	return views, nil
}

type eventDetails struct {
	Source string `json:"source,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func newEvent(id int64, action Action, actorID int64, details eventDetails) *Event {
	payload, _ := json.Marshal(details)
	return &Event{
		ReservationID: id,
		Action:        action,
		ActorID:       actorRef(actorID),
		Details:       payload,
	}
}

func actorRef(actorID int64) *int64 {
	if actorID <= 0 {
		return nil
	}
	return &actorID
}
