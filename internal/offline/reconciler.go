package offline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"seatline/internal/tickets"
	"seatline/pkg/clock"
	"seatline/pkg/logger"
)

// SyncReport summarizes one SyncOnce call
type SyncReport struct {
	Sent           int
	Synced         int
	Failed         int
	Unacknowledged int
}

func (r SyncReport) String() string {
	if r.Sent == 0 {
		return "nothing to sync"
	}
	msg := fmt.Sprintf("sent %d: %d synced, %d failed", r.Sent, r.Synced, r.Failed)
	if r.Unacknowledged > 0 {
		msg += fmt.Sprintf(", %d left pending", r.Unacknowledged)
	}
	return msg
}

// ReconcilerOptions tune the sync loop
type ReconcilerOptions struct {
	DeviceID  string
	BatchSize int
	Timeout   time.Duration
	Interval  time.Duration
	Clock     clock.Clock
	Logger    *logger.Logger
}

// Reconciler pushes pending tickets to the server and records what came
// back. Calls to SyncOnce are serialized.
type Reconciler struct {
	store  *Store
	client Submitter
	opts   ReconcilerOptions
	mu     sync.Mutex
}

func NewReconciler(store *Store, client Submitter, opts ReconcilerOptions) *Reconciler {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetDefault()
	}
	return &Reconciler{store: store, client: client, opts: opts}
}

// SyncOnce submits up to BatchSize pending tickets as one batch. When the
// server cannot be reached, or answers with an error or a reply it cannot
// parse, every ticket stays pending. Tickets missing from the reply stay
// pending too.
func (r *Reconciler) SyncOnce(ctx context.Context) (SyncReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.store.Pending(ctx, r.opts.BatchSize)
	if err != nil {
		return SyncReport{}, err
	}
	report := SyncReport{Sent: len(pending)}
	if len(pending) == 0 {
		return report, r.store.RecordSync(ctx, true, report.String())
	}

	req := tickets.BatchRequest{
		DeviceID:  r.opts.DeviceID,
		InstallID: r.store.InstallID(),
		Tickets:   make([]tickets.TicketRequest, 0, len(pending)),
	}
	for i := range pending {
		req.Tickets = append(req.Tickets, toRequest(&pending[i]))
	}

	callCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()
	resp, err := r.client.SubmitBatch(callCtx, req)
	if err != nil {
		msg := "sync failed: " + err.Error()
		if recErr := r.store.RecordSync(ctx, false, msg); recErr != nil {
			r.opts.Logger.WarnContext(ctx, "failed to record sync status", "error", recErr)
		}
		r.opts.Logger.WarnContext(ctx, "ticket sync failed, tickets stay pending",
			"pending", len(pending), "error", err)
		return report, fmt.Errorf("submit batch: %w", err)
	}

	queued := make(map[int64]bool, len(pending))
	for _, t := range pending {
		queued[t.LocalID] = true
	}
	outcomes := make([]Outcome, 0, len(resp.Results))
	for _, item := range resp.Results {
		localID, ok := parseLocalID(item.LocalID)
		if !ok || !queued[localID] {
			continue
		}
		switch {
		case item.OK && item.ReservationID != nil:
			outcomes = append(outcomes, Outcome{LocalID: localID, OK: true, ReservationID: *item.ReservationID, PaymentID: item.PaymentID})
			report.Synced++
		case !item.OK:
			reason := "rejected by server"
			if item.Error != nil && *item.Error != "" {
				reason = *item.Error
			}
			outcomes = append(outcomes, Outcome{LocalID: localID, Error: reason})
			report.Failed++
		default:
			continue
		}
		delete(queued, localID)
	}
	report.Unacknowledged = len(queued)

	if err := r.store.Apply(ctx, outcomes); err != nil {
		return report, err
	}
	if err := r.store.RecordSync(ctx, true, report.String()); err != nil {
		return report, err
	}
	r.opts.Logger.LogSyncBatch(ctx, r.opts.DeviceID, report.Sent, report.Synced, 0)
	return report, nil
}

// Run syncs immediately and then on every tick until ctx is cancelled.
// Failed rounds are logged and retried on the next tick.
func (r *Reconciler) Run(ctx context.Context) error {
	ticker := r.opts.Clock.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	for {
		if report, err := r.SyncOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			r.opts.Logger.WarnContext(ctx, "sync round failed", "error", err)
		} else if report.Sent > 0 {
			r.opts.Logger.InfoContext(ctx, "sync round finished", "result", report.String())
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
		}
	}
}

func toRequest(t *Ticket) tickets.TicketRequest {
	return tickets.TicketRequest{
		LocalID:           json.RawMessage(strconv.FormatInt(t.LocalID, 10)),
		TripID:            tickets.ID{Value: t.TripID, Valid: true},
		TripVehicleID:     idOf(t.TripVehicleID),
		SeatID:            idOf(t.SeatID),
		BoardStationID:    idOf(t.BoardStationID),
		ExitStationID:     idOf(t.ExitStationID),
		PriceListID:       idOf(t.PriceListID),
		PricingCategoryID: idOf(t.CategoryID),
		DiscountTypeID:    idOf(t.DiscountTypeID),
		BasePrice:         amountOf(t.BasePrice),
		FinalPrice:        amountOf(t.FinalPrice),
		Currency:          t.Currency,
		PaymentMethod:     t.PaymentMethod,
		CreatedAt:         formatTime(t.CreatedAt),
	}
}

func idOf(p *int64) tickets.ID {
	if p == nil || *p <= 0 {
		return tickets.ID{}
	}
	return tickets.ID{Value: *p, Valid: true}
}

func amountOf(p *float64) tickets.Amount {
	if p == nil {
		return tickets.Amount{}
	}
	return tickets.Amount{Value: *p, Valid: true}
}

// parseLocalID accepts the echoed id as a JSON number or numeric string
func parseLocalID(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
