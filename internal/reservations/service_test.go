package reservations_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"seatline/internal/notifications"
	"seatline/internal/reservations"
	"seatline/internal/reservations/reservationstest"
	"seatline/internal/shared/apperror"
	"seatline/pkg/clock"
	"seatline/pkg/logger"
)

func i64(v int64) *int64 { return &v }

type fixture struct {
	store     *reservationstest.Store
	publisher *notifications.Recorder
	clock     *clock.Fake
	svc       reservations.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:     reservationstest.New(),
		publisher: &notifications.Recorder{},
		clock:     clock.NewFake(time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)),
	}
	f.svc = reservations.NewService(f.store.Repository(), reservations.Options{
		VersionRetries: 3,
		Clock:          f.clock,
		Publisher:      f.publisher,
		Logger:         logger.Discard(),
	})
	return f
}

// seedPaid creates an active reservation priced at 50 with a settled payment of paid
func (f *fixture) seedPaid(paid float64) int64 {
	id := f.store.Seed(reservations.Reservation{
		TripID:         10,
		SeatID:         i64(5),
		BoardStationID: i64(1),
		ExitStationID:  i64(3),
	})
	f.store.SeedPrice(id, 50)
	if paid > 0 {
		f.store.SeedPayment(reservations.Payment{ReservationID: id, Amount: paid, Status: reservations.PaymentPaid})
	}
	return id
}

func TestBoard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedPaid(50)

	result, err := f.svc.Board(ctx, id, 7)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if !result.Boarded || result.BoardedAt == nil || !result.BoardedAt.Equal(f.clock.Now()) {
		t.Fatalf("unexpected result %+v", result)
	}

	stored, _ := f.store.Get(id)
	if !stored.Boarded || stored.Version != 2 || stored.Status != reservations.StatusActive {
		t.Fatalf("stored reservation = %+v", stored)
	}

	events := f.store.EventsFor(id)
	if len(events) != 1 || events[0].Action != reservations.ActionBoard || *events[0].ActorID != 7 {
		t.Fatalf("events = %+v", events)
	}
	if published := f.publisher.Events(); len(published) != 1 || published[0].Type != notifications.EventReservationBoarded {
		t.Fatalf("published = %+v", published)
	}

	if _, err := f.svc.Board(ctx, id, 7); !errors.Is(err, apperror.ErrAlreadyBoarded) {
		t.Fatalf("second Board error = %v, want already boarded", err)
	}
}

func TestBoardRequiresFullPayment(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name  string
		setup func(f *fixture) int64
	}{
		{"no payment", func(f *fixture) int64 { return f.seedPaid(0) }},
		{"partial payment", func(f *fixture) int64 { return f.seedPaid(20) }},
		{"pending payment only", func(f *fixture) int64 {
			id := f.seedPaid(0)
			f.store.SeedPayment(reservations.Payment{ReservationID: id, Amount: 50, Status: reservations.PaymentPending})
			return id
		}},
		{"no base price", func(f *fixture) int64 {
			id := f.store.Seed(reservations.Reservation{TripID: 10})
			f.store.SeedPayment(reservations.Payment{ReservationID: id, Amount: 10, Status: reservations.PaymentPaid})
			return id
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := tt.setup(f)
			if _, err := f.svc.Board(ctx, id, 1); !errors.Is(err, apperror.ErrNotPaid) {
				t.Fatalf("Board error = %v, want not paid", err)
			}
			if stored, _ := f.store.Get(id); stored.Boarded || stored.Version != 1 {
				t.Fatalf("reservation changed: %+v", stored)
			}
		})
	}
}

func TestBoardWithDiscountCoveredByPayment(t *testing.T) {
	f := newFixture(t)
	id := f.seedPaid(40)
	f.store.SeedDiscount(reservations.DiscountSnapshot{ReservationID: id, DiscountTypeID: 1, DiscountAmount: 10})

	if _, err := f.svc.Board(context.Background(), id, 1); err != nil {
		t.Fatalf("Board: %v", err)
	}
}

func TestBoardNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Board(context.Background(), 999, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
	if _, err := f.svc.Board(context.Background(), 0, 1); apperror.From(err).Code != apperror.CodeInvalidReservationID {
		t.Fatalf("error = %v, want invalid reservation id", err)
	}
}

func TestBoardRetriesStaleVersion(t *testing.T) {
	f := newFixture(t)
	id := f.seedPaid(50)

	bumps := 0
	f.store.BeforeUpdate = func(target int64) {
		if bumps < 2 {
			bumps++
			f.store.BumpVersion(target)
		}
	}

	result, err := f.svc.Board(context.Background(), id, 1)
	if err != nil {
		t.Fatalf("Board: %v", err)
	}
	if result.Version != 4 {
		t.Fatalf("version = %d, want 4 after two concurrent bumps", result.Version)
	}
	if len(f.store.EventsFor(id)) != 1 {
		t.Fatal("lost attempts must not leave audit events")
	}
}

func TestCancelGivesUpAfterRetries(t *testing.T) {
	f := newFixture(t)
	id := f.seedPaid(0)
	f.store.BeforeUpdate = f.store.BumpVersion

	_, err := f.svc.Cancel(context.Background(), id, 1, reservations.CancelRequest{})
	if !errors.Is(err, apperror.ErrVersionConflict) {
		t.Fatalf("error = %v, want version conflict", err)
	}
	if stored, _ := f.store.Get(id); stored.Status != reservations.StatusActive {
		t.Fatalf("status = %s, want active", stored.Status)
	}
	if len(f.store.EventsFor(id)) != 0 {
		t.Fatal("failed cancel appended an event")
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedPaid(0)

	first, err := f.svc.Cancel(ctx, id, 3, reservations.CancelRequest{})
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !first.Changed || first.Status != reservations.StatusCancelled || first.Version != 2 {
		t.Fatalf("first = %+v", first)
	}

	second, err := f.svc.Cancel(ctx, id, 3, reservations.CancelRequest{})
	if err != nil {
		t.Fatalf("second Cancel: %v", err)
	}
	if second.Changed || second.Version != 2 {
		t.Fatalf("second = %+v", second)
	}

	events := f.store.EventsFor(id)
	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	var details map[string]string
	if err := json.Unmarshal(events[0].Details, &details); err != nil {
		t.Fatalf("details: %v", err)
	}
	if details["source"] != "driver_app" || details["reason"] != "cancel_from_driver" {
		t.Fatalf("details = %v", details)
	}
	if len(f.publisher.Events()) != 1 {
		t.Fatalf("published %d events, want 1", len(f.publisher.Events()))
	}
}

func TestCancelCustomReason(t *testing.T) {
	f := newFixture(t)
	id := f.seedPaid(0)
	if _, err := f.svc.Cancel(context.Background(), id, 3, reservations.CancelRequest{Reason: "passenger_request"}); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	var details map[string]string
	_ = json.Unmarshal(f.store.EventsFor(id)[0].Details, &details)
	if details["reason"] != "passenger_request" || details["source"] != "driver_app" {
		t.Fatalf("details = %v", details)
	}
}

func TestCancelBoardedFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedPaid(50)
	if _, err := f.svc.Board(ctx, id, 1); err != nil {
		t.Fatalf("Board: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, id, 1, reservations.CancelRequest{}); !errors.Is(err, apperror.ErrAlreadyBoarded) {
		t.Fatalf("Cancel error = %v, want already boarded", err)
	}
	if stored, _ := f.store.Get(id); stored.Status != reservations.StatusActive {
		t.Fatalf("status = %s", stored.Status)
	}
}

func TestMarkNoShowIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedPaid(0)

	first, err := f.svc.MarkNoShow(ctx, id, 4)
	if err != nil {
		t.Fatalf("MarkNoShow: %v", err)
	}
	if !first.Changed || first.Status != reservations.StatusNoShow {
		t.Fatalf("first = %+v", first)
	}
	second, err := f.svc.MarkNoShow(ctx, id, 4)
	if err != nil {
		t.Fatalf("second MarkNoShow: %v", err)
	}
	if second.Changed {
		t.Fatal("second call reported a change")
	}

	if len(f.store.NoShows) != 1 {
		t.Fatalf("no-show records = %d, want 1", len(f.store.NoShows))
	}
	ns := f.store.NoShows[id]
	if ns.TripID != 10 || *ns.SeatID != 5 || *ns.AddedBy != 4 {
		t.Fatalf("no-show record = %+v", ns)
	}
	stored, _ := f.store.Get(id)
	if stored.Status != reservations.StatusActive || stored.Version != 1 {
		t.Fatalf("no-show mutated the reservation: %+v", stored)
	}
	if len(f.store.EventsFor(id)) != 1 {
		t.Fatalf("events = %d, want 1", len(f.store.EventsFor(id)))
	}
}

func TestMarkNoShowNotFound(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.MarkNoShow(context.Background(), 42, 1); !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestCancelledNoShowDisplaysCancelled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	noShow := f.seedPaid(0)
	cancelled := f.seedPaid(0)
	paid := f.seedPaid(50)

	if _, err := f.svc.MarkNoShow(ctx, noShow, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.MarkNoShow(ctx, cancelled, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Cancel(ctx, cancelled, 1, reservations.CancelRequest{}); err != nil {
		t.Fatal(err)
	}

	views, err := f.svc.ListTripReservations(ctx, 10)
	if err != nil {
		t.Fatalf("ListTripReservations: %v", err)
	}
	byID := map[int64]reservations.TripReservationView{}
	for _, v := range views {
		byID[v.ReservationID] = v
	}
	if got := byID[noShow].Status; got != reservations.StatusNoShow {
		t.Fatalf("no-show display status = %s", got)
	}
	if got := byID[cancelled]; got.Status != reservations.StatusCancelled || got.StoredStatus != reservations.StatusCancelled {
		t.Fatalf("cancelled view = %+v", got)
	}
	if got := byID[paid]; !got.IsPaid || got.DueAmount != 0 || got.FinalPrice != 50 {
		t.Fatalf("paid view = %+v", got)
	}
	if got := byID[noShow]; got.IsPaid || got.DueAmount != 50 {
		t.Fatalf("unpaid view = %+v", got)
	}
}

func TestListTripReservationsRejectsBadTrip(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ListTripReservations(context.Background(), -1)
	if apperror.From(err).Code != apperror.CodeInvalidTripID {
		t.Fatalf("error = %v", err)
	}
}
