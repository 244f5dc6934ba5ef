package offline

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"seatline/internal/tickets"
	"seatline/pkg/logger"
)

// fakeSubmitter answers with reply, or fails with err
type fakeSubmitter struct {
	mu    sync.Mutex
	calls []tickets.BatchRequest
	reply func(req tickets.BatchRequest) *tickets.BatchResponse
	err   error
	seen  chan struct{}
}

func (f *fakeSubmitter) SubmitBatch(ctx context.Context, req tickets.BatchRequest) (*tickets.BatchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.seen != nil {
		f.seen <- struct{}{}
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("submit called without a deadline")
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.reply(req), nil
}

func (f *fakeSubmitter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func ok(localID json.RawMessage, reservationID int64) tickets.BatchItemResult {
	return tickets.BatchItemResult{LocalID: localID, OK: true, ReservationID: &reservationID}
}

func failed(localID json.RawMessage, msg string) tickets.BatchItemResult {
	return tickets.BatchItemResult{LocalID: localID, Error: &msg, Code: "invalid_trip_id"}
}

func newTestReconciler(store *Store, sub Submitter) *Reconciler {
	return NewReconciler(store, sub, ReconcilerOptions{
		DeviceID:  "dev-1",
		BatchSize: 50,
		Timeout:   time.Second,
		Interval:  time.Minute,
		Clock:     store.clock,
		Logger:    logger.Discard(),
	})
}

func TestSyncOnceAppliesPerItemResults(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	a := enqueue(t, store, Ticket{TripID: 1, BasePrice: ptr(10.0)})
	b := enqueue(t, store, Ticket{TripID: 1})
	c := enqueue(t, store, Ticket{TripID: 1})

	sub := &fakeSubmitter{reply: func(req tickets.BatchRequest) *tickets.BatchResponse {
		return &tickets.BatchResponse{Results: []tickets.BatchItemResult{
			ok(req.Tickets[0].LocalID, 101),
			failed(req.Tickets[1].LocalID, "trip_id is required"),
			ok(req.Tickets[2].LocalID, 103),
		}}
	}}
	report, err := newTestReconciler(store, sub).SyncOnce(ctx)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if report != (SyncReport{Sent: 3, Synced: 2, Failed: 1}) {
		t.Fatalf("report = %+v", report)
	}

	req := sub.calls[0]
	if req.DeviceID != "dev-1" || req.InstallID != store.InstallID() || len(req.Tickets) != 3 || string(req.Tickets[0].LocalID) != "1" {
		t.Fatalf("unexpected request %+v", req)
	}
	if !req.Tickets[0].BasePrice.Valid || req.Tickets[1].SeatID.Valid {
		t.Fatal("optional fields not carried faithfully")
	}

	for id, want := range map[int64]State{a: StateSynced, b: StateFailed, c: StateSynced} {
		got, _ := store.Get(ctx, id)
		if got.State != want {
			t.Fatalf("ticket %d state = %s, want %s", id, got.State, want)
		}
	}
	if got, _ := store.Get(ctx, c); *got.RemoteReservationID != 103 {
		t.Fatalf("ticket %d reservation = %d", c, *got.RemoteReservationID)
	}
	st, _ := store.Status(ctx)
	if st.LastSuccessAt == nil || !strings.Contains(st.LastMessage, "2 synced, 1 failed") {
		t.Fatalf("status = %+v", st)
	}
}

func TestSyncOnceTransportFailureKeepsPending(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	enqueue(t, store, Ticket{TripID: 1})
	enqueue(t, store, Ticket{TripID: 2})

	sub := &fakeSubmitter{err: &ServerError{StatusCode: 502, Message: "Bad Gateway"}}
	if _, err := newTestReconciler(store, sub).SyncOnce(ctx); err == nil {
		t.Fatal("expected an error")
	}

	counts, _ := store.Counts(ctx)
	if counts != (Counts{Pending: 2}) {
		t.Fatalf("counts = %+v, everything should stay pending", counts)
	}
	st, _ := store.Status(ctx)
	if st.LastSuccessAt != nil || !strings.HasPrefix(st.LastMessage, "sync failed") {
		t.Fatalf("status = %+v", st)
	}
}

func TestSyncOnceUnacknowledgedStayPending(t *testing.T) {
	store, _ := openTestStore(t)
	ctx := context.Background()
	a := enqueue(t, store, Ticket{TripID: 1})
	b := enqueue(t, store, Ticket{TripID: 1})

	sub := &fakeSubmitter{reply: func(req tickets.BatchRequest) *tickets.BatchResponse {
		return &tickets.BatchResponse{Results: []tickets.BatchItemResult{
			ok(json.RawMessage(`"1"`), 77),
			ok(json.RawMessage(`999`), 78),
			{LocalID: req.Tickets[1].LocalID, OK: true},
		}}
	}}
	report, err := newTestReconciler(store, sub).SyncOnce(ctx)
	if err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if report.Synced != 1 || report.Unacknowledged != 1 {
		t.Fatalf("report = %+v", report)
	}
	if got, _ := store.Get(ctx, a); got.State != StateSynced {
		t.Fatalf("string local id not matched, state %s", got.State)
	}
	if got, _ := store.Get(ctx, b); got.State != StatePending {
		t.Fatalf("ok item without reservation id should stay pending, got %s", got.State)
	}
}

func TestSyncOnceNothingPending(t *testing.T) {
	store, _ := openTestStore(t)
	sub := &fakeSubmitter{}
	report, err := newTestReconciler(store, sub).SyncOnce(context.Background())
	if err != nil || report.Sent != 0 {
		t.Fatalf("SyncOnce = %+v, %v", report, err)
	}
	if sub.callCount() != 0 {
		t.Fatal("server called with an empty queue")
	}
}

func TestRunSyncsOnEveryTick(t *testing.T) {
	store, clk := openTestStore(t)
	enqueue(t, store, Ticket{TripID: 1})

	sub := &fakeSubmitter{
		seen: make(chan struct{}, 4),
		err:  errors.New("offline"),
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- newTestReconciler(store, sub).Run(ctx) }()

	wait := func() {
		select {
		case <-sub.seen:
		case <-time.After(2 * time.Second):
			t.Fatal("sync round did not happen")
		}
	}
	wait()
	clk.Advance(time.Minute)
	wait()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if counts, _ := store.Counts(context.Background()); counts.Pending != 1 {
		t.Fatalf("failed rounds changed the queue: %+v", counts)
	}
}

func TestParseLocalID(t *testing.T) {
	tests := []struct {
		raw  string
		want int64
		ok   bool
	}{
		{`12`, 12, true},
		{`"12"`, 12, true},
		{`null`, 0, false},
		{``, 0, false},
		{`"abc"`, 0, false},
		{`-3`, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseLocalID(json.RawMessage(tt.raw))
		if got != tt.want || ok != tt.ok {
			t.Errorf("parseLocalID(%q) = %d, %v", tt.raw, got, ok)
		}
	}
}

func TestCreatedAtKeepsInstantAcrossZones(t *testing.T) {
	eet := time.FixedZone("EET", 2*60*60)
	sold := time.Date(2025, 11, 30, 10, 15, 0, 0, eet)

	in := toRequest(&Ticket{LocalID: 1, TripID: 3, CreatedAt: sold}).Input()
	if in.CreatedAt == nil || !in.CreatedAt.Equal(sold) {
		t.Fatalf("server reads created_at as %v, want %v", in.CreatedAt, sold.UTC())
	}

	s, _ := openTestStore(t)
	localID, err := s.Enqueue(context.Background(), &Ticket{TripID: 3, CreatedAt: sold})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	got, err := s.Get(context.Background(), localID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.CreatedAt.Equal(sold) {
		t.Fatalf("stored created_at = %v, want %v", got.CreatedAt, sold)
	}
}

func TestParseCreatedAtAcceptsLegacyLocalLayout(t *testing.T) {
	got, err := parseCreatedAt("2025-11-30 10:15:00")
	if err != nil {
		t.Fatalf("parseCreatedAt: %v", err)
	}
	want := time.Date(2025, 11, 30, 10, 15, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Fatalf("parseCreatedAt = %v, want %v", got, want)
	}
}
