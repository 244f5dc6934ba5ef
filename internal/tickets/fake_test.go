package tickets_test

import (
	"context"
	"sync"

	"seatline/internal/pricing"
	"seatline/internal/reservations"
	"seatline/internal/reservations/reservationstest"
	"seatline/internal/segments"
	"seatline/internal/tickets"
	"seatline/internal/trips"
)

// memoryRepo composes tickets against the in-memory reservation store.
// Idempotency keys written by a failed transaction are discarded.
type memoryRepo struct {
	store *reservationstest.Store
	seqs  map[int64]*trips.Sequence

	mu   sync.Mutex
	keys map[string]tickets.IdempotencyRecord

	// onLockKey runs while a transaction holds the key lock, standing in
	// for a twin request that committed while this one waited
	onLockKey func(key string)
}

func newMemoryRepo(store *reservationstest.Store, seqs ...*trips.Sequence) *memoryRepo {
	r := &memoryRepo{store: store, seqs: map[int64]*trips.Sequence{}, keys: map[string]tickets.IdempotencyRecord{}}
	for _, s := range seqs {
		r.seqs[s.TripID()] = s
	}
	return r
}

func (r *memoryRepo) Transaction(ctx context.Context, fn func(tx tickets.Tx) error) error {
	return r.store.Repository().Transaction(ctx, func(rtx reservations.Repository) error {
		tx := &memoryTx{repo: r, reservations: rtx}
		if err := fn(tx); err != nil {
			r.mu.Lock()
			for _, key := range tx.added {
				delete(r.keys, key)
			}
			r.mu.Unlock()
			return err
		}
		return nil
	})
}

func (r *memoryRepo) FindKey(_ context.Context, key string) (*tickets.IdempotencyRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.keys[key]; ok {
		return &rec, nil
	}
	return nil, nil
}

func (r *memoryRepo) SequenceFor(_ context.Context, tripID int64) (*trips.Sequence, error) {
	if s, ok := r.seqs[tripID]; ok {
		return s, nil
	}
	return trips.NewSequence(tripID, nil)
}

func (r *memoryRepo) takeKey(key string) (tickets.IdempotencyRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.keys[key]
	delete(r.keys, key)
	return rec, ok
}

func (r *memoryRepo) putKey(rec tickets.IdempotencyRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys[rec.Key] = rec
}

func (r *memoryRepo) keyCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.keys)
}

type memoryTx struct {
	repo         *memoryRepo
	reservations reservations.Repository
	added        []string
}

func (t *memoryTx) Reservations() reservations.Repository { return t.reservations }
func (t *memoryTx) Sequences() segments.SequenceSource    { return t.repo }

func (t *memoryTx) LockKey(_ context.Context, key string) error {
	if t.repo.onLockKey != nil {
		t.repo.onLockKey(key)
	}
	return nil
}

func (t *memoryTx) FindKey(ctx context.Context, key string) (*tickets.IdempotencyRecord, error) {
	return t.repo.FindKey(ctx, key)
}

func (t *memoryTx) SaveKey(_ context.Context, record *tickets.IdempotencyRecord) error {
	t.repo.mu.Lock()
	defer t.repo.mu.Unlock()
	t.repo.keys[record.Key] = *record
	t.added = append(t.added, record.Key)
	return nil
}

// fixedPrices answers ItemPrice from a map keyed by [list, from, to]
type fixedPrices map[[3]int64]float64

func (p fixedPrices) Quote(context.Context, pricing.QuoteRequest) (*pricing.Quote, error) {
	return nil, nil
}

func (p fixedPrices) ItemPrice(_ context.Context, listID, from, to int64) (*float64, error) {
	if v, ok := p[[3]int64{listID, from, to}]; ok {
		return &v, nil
	}
	return nil, nil
}
