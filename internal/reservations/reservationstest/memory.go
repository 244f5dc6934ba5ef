// Package reservationstest provides an in-memory reservations.Repository
// for service tests.
package reservationstest

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"seatline/internal/reservations"
	"seatline/internal/segments"

	"gorm.io/gorm"
)

// Store holds the tables. Transaction serializes all transactions and
// restores a snapshot when fn fails, so it behaves like a serializable
// database for the purposes of a test.
type Store struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID       int64
	Reservations map[int64]*reservations.Reservation
	Pricing      []reservations.PricingSnapshot
	Discounts    []reservations.DiscountSnapshot
	Payments     []reservations.Payment
	NoShows      map[int64]reservations.NoShow
	Events       []reservations.Event
	People       map[int64]reservations.Person
	Labels       map[int64]string

	// Fault injection
	FailCreatePayment error
	// BeforeUpdate runs before a versioned update is applied, outside the
	// store lock. Tests use it to simulate a concurrent writer.
	BeforeUpdate func(id int64)

	Locks int

	// versions bumped by simulated writers; they are committed already and
	// survive the rollback of the transaction they raced with
	foreign []int64
}

func New() *Store {
	return &Store{
		nextID:       1,
		Reservations: map[int64]*reservations.Reservation{},
		NoShows:      map[int64]reservations.NoShow{},
		People:       map[int64]reservations.Person{},
		Labels:       map[int64]string{},
	}
}

// Seed inserts a reservation as stored, assigning an id when missing
func (s *Store) Seed(r reservations.Reservation) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		r.ID = s.allocID()
	} else if r.ID >= s.nextID {
		s.nextID = r.ID + 1
	}
	if r.Status == "" {
		r.Status = reservations.StatusActive
	}
	if r.Version == 0 {
		r.Version = 1
	}
	s.Reservations[r.ID] = &r
	return r.ID
}

// SeedPayment appends a payment row directly
func (s *Store) SeedPayment(p reservations.Payment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.allocID()
	s.Payments = append(s.Payments, p)
}

// SeedPrice appends a pricing snapshot directly
func (s *Store) SeedPrice(reservationID int64, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Pricing = append(s.Pricing, reservations.PricingSnapshot{ID: s.allocID(), ReservationID: reservationID, PriceValue: price})
}

// SeedDiscount appends a discount snapshot directly
func (s *Store) SeedDiscount(d reservations.DiscountSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d.ID = s.allocID()
	s.Discounts = append(s.Discounts, d)
}

// Get returns a copy of a stored reservation
func (s *Store) Get(id int64) (reservations.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.Reservations[id]
	if !ok {
		return reservations.Reservation{}, false
	}
	return *r, true
}

// EventsFor returns the audit trail of one reservation
func (s *Store) EventsFor(id int64) []reservations.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []reservations.Event
	for _, e := range s.Events {
		if e.ReservationID == id {
			out = append(out, e)
		}
	}
	return out
}

// Counts returns row counts of the main tables
func (s *Store) Counts() (res, pricing, discounts, payments int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Reservations), len(s.Pricing), len(s.Discounts), len(s.Payments)
}

func (s *Store) allocID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

// Repository returns a reservations.Repository backed by the store
func (s *Store) Repository() reservations.Repository {
	return &repo{store: s}
}

type repo struct {
	store *Store
	inTx  bool
}

func (r *repo) WithTx(*gorm.DB) reservations.Repository { return &repo{store: r.store, inTx: true} }

type snapshot struct {
	nextID       int64
	reservations map[int64]reservations.Reservation
	pricing      []reservations.PricingSnapshot
	discounts    []reservations.DiscountSnapshot
	payments     []reservations.Payment
	noShows      map[int64]reservations.NoShow
	events       []reservations.Event
}

func (r *repo) Transaction(ctx context.Context, fn func(tx reservations.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	s := r.store
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	foreignMark := len(s.foreign)
	snap := snapshot{
		nextID:       s.nextID,
		reservations: map[int64]reservations.Reservation{},
		pricing:      append([]reservations.PricingSnapshot(nil), s.Pricing...),
		discounts:    append([]reservations.DiscountSnapshot(nil), s.Discounts...),
		payments:     append([]reservations.Payment(nil), s.Payments...),
		noShows:      map[int64]reservations.NoShow{},
		events:       append([]reservations.Event(nil), s.Events...),
	}
	for id, res := range s.Reservations {
		snap.reservations[id] = *res
	}
	for id, ns := range s.NoShows {
		snap.noShows[id] = ns
	}
	s.mu.Unlock()

	if err := fn(&repo{store: s, inTx: true}); err != nil {
		s.mu.Lock()
		s.nextID = snap.nextID
		s.Reservations = map[int64]*reservations.Reservation{}
		for id, res := range snap.reservations {
			res := res
			s.Reservations[id] = &res
		}
		s.Pricing = snap.pricing
		s.Discounts = snap.discounts
		s.Payments = snap.payments
		s.NoShows = snap.noShows
		s.Events = snap.events
		for _, id := range s.foreign[foreignMark:] {
			if res, ok := s.Reservations[id]; ok {
				res.Version++
			}
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

func (r *repo) FindByID(_ context.Context, id int64) (*reservations.Reservation, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.Reservations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *res
	return &cp, nil
}

func (r *repo) ActiveSegments(_ context.Context, tripID, seatID int64) ([]segments.Segment, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []segments.Segment
	for _, res := range s.Reservations {
		if res.TripID != tripID || res.SeatID == nil || *res.SeatID != seatID || res.Status != reservations.StatusActive {
			continue
		}
		if res.BoardStationID == nil || res.ExitStationID == nil {
			continue
		}
		out = append(out, segments.Segment{ReservationID: res.ID, BoardStationID: *res.BoardStationID, ExitStationID: *res.ExitStationID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReservationID < out[j].ReservationID })
	return out, nil
}

func (r *repo) PaymentSummary(_ context.Context, id int64) (*reservations.PaymentSummary, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(id), nil
}

func (s *Store) summaryLocked(id int64) *reservations.PaymentSummary {
	var sum reservations.PaymentSummary
	for _, p := range s.Pricing {
		if p.ReservationID != id {
			continue
		}
		if sum.BasePrice == nil || p.PriceValue > *sum.BasePrice {
			v := p.PriceValue
			sum.BasePrice = &v
		}
	}
	for _, d := range s.Discounts {
		if d.ReservationID == id {
			sum.DiscountAmount += d.DiscountAmount
		}
	}
	for _, p := range s.Payments {
		if p.ReservationID == id && p.Status.IsSettled() {
			sum.PaidAmount += p.Amount
			sum.SettledCount++
		}
	}
	return &sum
}

func (r *repo) TripManifest(_ context.Context, tripID int64) ([]reservations.ManifestRow, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	var rows []reservations.ManifestRow
	for _, res := range s.Reservations {
		if res.TripID != tripID {
			continue
		}
		if res.Status != reservations.StatusActive && res.Status != reservations.StatusCancelled {
			continue
		}
		sum := s.summaryLocked(res.ID)
		_, noShow := s.NoShows[res.ID]
		row := reservations.ManifestRow{
			ReservationID:   res.ID,
			TripID:          res.TripID,
			SeatID:          res.SeatID,
			PersonID:        res.PersonID,
			BoardStationID:  res.BoardStationID,
			ExitStationID:   res.ExitStationID,
			Status:          res.Status,
			Boarded:         res.Boarded,
			BoardedAt:       res.BoardedAt,
			Version:         res.Version,
			ReservationTime: res.ReservationTime,
			BasePrice:       sum.BasePrice,
			DiscountAmount:  sum.DiscountAmount,
			PaidAmount:      sum.PaidAmount,
			HasNoShow:       noShow,
		}
		if res.PersonID != nil {
			if p, ok := s.People[*res.PersonID]; ok {
				name := p.Name
				row.PersonName = &name
				row.PersonPhone = p.Phone
			}
		}
		for _, d := range s.Discounts {
			if d.ReservationID != res.ID {
				continue
			}
			row.PromoCode = d.PromoCode
			if label, ok := s.Labels[d.DiscountTypeID]; ok {
				row.DiscountLabel = &label
			}
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch {
		case a.SeatID == nil && b.SeatID == nil:
			return a.ReservationID < b.ReservationID
		case a.SeatID == nil:
			return false
		case b.SeatID == nil:
			return true
		case *a.SeatID != *b.SeatID:
			return *a.SeatID < *b.SeatID
		}
		return a.ReservationID < b.ReservationID
	})
	return rows, nil
}

func (r *repo) UpdateIfVersion(_ context.Context, id int64, version int, updates map[string]interface{}) (bool, error) {
	s := r.store
	if s.BeforeUpdate != nil {
		s.BeforeUpdate(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	res, ok := s.Reservations[id]
	if !ok || res.Version != version {
		return false, nil
	}
	for column, value := range updates {
		switch column {
		case "status":
			res.Status = value.(reservations.Status)
		case "boarded":
			res.Boarded = value.(bool)
		case "boarded_at":
			t := value.(time.Time)
			res.BoardedAt = &t
		}
	}
	res.Version++
	return true, nil
}

// BumpVersion simulates a concurrent writer whose change is already
// committed, even when called from inside a transaction
func (s *Store) BumpVersion(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if res, ok := s.Reservations[id]; ok {
		res.Version++
		s.foreign = append(s.foreign, id)
	}
}

func (r *repo) InsertNoShow(_ context.Context, noShow *reservations.NoShow) (bool, error) {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.NoShows[noShow.ReservationID]; exists {
		return false, nil
	}
	noShow.ID = s.allocID()
	s.NoShows[noShow.ReservationID] = *noShow
	return true, nil
}

func (r *repo) AppendEvent(_ context.Context, event *reservations.Event) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.allocID()
	if event.Details == nil {
		event.Details = json.RawMessage("{}")
	}
	s.Events = append(s.Events, *event)
	return nil
}

func (r *repo) LockSeat(context.Context, int64, int64) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Locks++
	return nil
}

func (r *repo) Create(_ context.Context, reservation *reservations.Reservation) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	reservation.ID = s.allocID()
	cp := *reservation
	s.Reservations[cp.ID] = &cp
	return nil
}

func (r *repo) CreatePricing(_ context.Context, snapshot *reservations.PricingSnapshot) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot.ID = s.allocID()
	s.Pricing = append(s.Pricing, *snapshot)
	return nil
}

func (r *repo) CreateDiscount(_ context.Context, snapshot *reservations.DiscountSnapshot) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot.ID = s.allocID()
	s.Discounts = append(s.Discounts, *snapshot)
	return nil
}

func (r *repo) CreatePayment(_ context.Context, payment *reservations.Payment) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailCreatePayment != nil {
		return s.FailCreatePayment
	}
	payment.ID = s.allocID()
	s.Payments = append(s.Payments, *payment)
	return nil
}
