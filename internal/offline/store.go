package offline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatline/pkg/clock"
	"seatline/pkg/logger"

	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// ErrTicketNotFound is returned by Get for an unknown local id
var ErrTicketNotFound = errors.New("offline: ticket not found")

const schema = `
CREATE TABLE IF NOT EXISTS tickets (
	local_id              INTEGER PRIMARY KEY AUTOINCREMENT,
	trip_id               INTEGER NOT NULL,
	trip_vehicle_id       INTEGER,
	operator_id           INTEGER,
	employee_id           INTEGER,
	seat_id               INTEGER,
	board_station_id      INTEGER,
	exit_station_id       INTEGER,
	price_list_id         INTEGER,
	pricing_category_id   INTEGER,
	discount_type_id      INTEGER,
	base_price            REAL,
	final_price           REAL,
	currency              TEXT NOT NULL DEFAULT 'RON',
	payment_method        TEXT NOT NULL DEFAULT 'cash',
	created_at            TEXT NOT NULL,
	sync_status           TEXT NOT NULL DEFAULT 'pending' CHECK (sync_status IN ('pending', 'synced', 'failed')),
	remote_reservation_id INTEGER,
	remote_payment_id     INTEGER,
	last_error            TEXT,
	attempts              INTEGER NOT NULL DEFAULT 0,
	updated_at            TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_tickets_sync_status ON tickets (sync_status, local_id);
CREATE TABLE IF NOT EXISTS sync_status (
	id              INTEGER PRIMARY KEY CHECK (id = 1),
	last_attempt_at TEXT,
	last_success_at TEXT,
	last_message    TEXT
);
INSERT OR IGNORE INTO sync_status (id) VALUES (1);
CREATE TABLE IF NOT EXISTS store_identity (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	install_id TEXT NOT NULL
);
`

const ticketColumns = `local_id, trip_id, trip_vehicle_id, operator_id, employee_id, seat_id,
	board_station_id, exit_station_id, price_list_id, pricing_category_id, discount_type_id,
	base_price, final_price, currency, payment_method, created_at, sync_status,
	remote_reservation_id, remote_payment_id, last_error, attempts, updated_at`

// StoreConfig holds the parameters for opening the queue
type StoreConfig struct {
	Path     string
	PoolSize int
	Clock    clock.Clock
	Logger   *logger.Logger
}

// Store is the durable device-side ticket queue. It survives restarts and
// also holds the sync status shown by the agent.
type Store struct {
	pool  *sqlitex.Pool
	clock clock.Clock
	log   *logger.Logger
	path  string

	installID string
}

// OpenStore opens (creating when missing) the SQLite queue at cfg.Path
func OpenStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("offline store: path is required")
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 4
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.GetDefault()
	}

	pool, err := sqlitex.NewPool(cfg.Path, sqlitex.PoolOptions{
		PoolSize:    cfg.PoolSize,
		PrepareConn: prepareConn,
	})
	if err != nil {
		return nil, fmt.Errorf("offline store: opening %s: %w", cfg.Path, err)
	}

	s := &Store{pool: pool, clock: cfg.Clock, log: cfg.Logger, path: cfg.Path}
	if err := s.migrate(context.Background()); err != nil {
		_ = pool.Close()
		return nil, err
	}
	return s, nil
}

func prepareConn(conn *sqlite.Conn) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if err := sqlitex.ExecuteTransient(conn, pragma, nil); err != nil {
			return fmt.Errorf("offline store: %s: %w", pragma, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		return fmt.Errorf("offline store: migrate: %w", err)
	}

	// Local ids restart with a new file, so every file gets its own identity
	err = sqlitex.Execute(conn, `INSERT OR IGNORE INTO store_identity (id, install_id) VALUES (1, ?)`, &sqlitex.ExecOptions{
		Args: []any{uuid.NewString()},
	})
	if err != nil {
		return fmt.Errorf("offline store: install id: %w", err)
	}
	err = sqlitex.Execute(conn, `SELECT install_id FROM store_identity WHERE id = 1`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			s.installID = stmt.ColumnText(0)
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("offline store: reading install id: %w", err)
	}
	if s.installID == "" {
		return errors.New("offline store: install id is empty")
	}
	return nil
}

// InstallID identifies this queue file. It is sent with every batch.
func (s *Store) InstallID() string { return s.installID }

func (s *Store) Close() error {
	if err := s.pool.Close(); err != nil {
		return fmt.Errorf("offline store: closing %s: %w", s.path, err)
	}
	return nil
}

// Enqueue stores t as pending and fills in LocalID
func (s *Store) Enqueue(ctx context.Context, t *Ticket) (int64, error) {
	if t.TripID <= 0 {
		return 0, fmt.Errorf("offline store: trip id is required")
	}
	now := s.clock.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.Currency == "" {
		t.Currency = "RON"
	}
	if t.PaymentMethod == "" {
		t.PaymentMethod = "cash"
	}

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	err = sqlitex.Execute(conn, `INSERT INTO tickets (
			trip_id, trip_vehicle_id, operator_id, employee_id, seat_id,
			board_station_id, exit_station_id, price_list_id, pricing_category_id, discount_type_id,
			base_price, final_price, currency, payment_method, created_at, sync_status, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{
			t.TripID, nullInt(t.TripVehicleID), nullInt(t.OperatorID), nullInt(t.EmployeeID), nullInt(t.SeatID),
			nullInt(t.BoardStationID), nullInt(t.ExitStationID), nullInt(t.PriceListID), nullInt(t.CategoryID), nullInt(t.DiscountTypeID),
			nullFloat(t.BasePrice), nullFloat(t.FinalPrice), t.Currency, t.PaymentMethod,
			formatTime(t.CreatedAt), string(StatePending), formatTime(now),
		}})
	if err != nil {
		return 0, fmt.Errorf("offline store: enqueue: %w", err)
	}

	t.LocalID = conn.LastInsertRowID()
	t.State = StatePending
	t.UpdatedAt = now
	return t.LocalID, nil
}

// Pending returns up to limit pending tickets, oldest first
func (s *Store) Pending(ctx context.Context, limit int) ([]Ticket, error) {
	return s.List(ctx, StatePending, limit)
}

// List returns tickets in state, or every ticket when state is empty,
// ordered by local id. A limit of zero or less means no limit.
func (s *Store) List(ctx context.Context, state State, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets`
	args := []any{}
	if state != "" {
		query += ` WHERE sync_status = ?`
		args = append(args, string(state))
	}
	query += ` ORDER BY local_id LIMIT ?`
	args = append(args, limit)

	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var out []Ticket
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		Args: args,
		ResultFunc: func(stmt *sqlite.Stmt) error {
			t, err := scanTicket(stmt)
			if err != nil {
				return err
			}
			out = append(out, t)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("offline store: list: %w", err)
	}
	return out, nil
}

// Get loads one ticket by local id
func (s *Store) Get(ctx context.Context, localID int64) (*Ticket, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var found *Ticket
	err = sqlitex.Execute(conn, `SELECT `+ticketColumns+` FROM tickets WHERE local_id = ?`, &sqlitex.ExecOptions{
		Args: []any{localID},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			t, err := scanTicket(stmt)
			if err != nil {
				return err
			}
			found = &t
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("offline store: get: %w", err)
	}
	if found == nil {
		return nil, ErrTicketNotFound
	}
	return found, nil
}

// MarkSynced records the server ids of a pending ticket
func (s *Store) MarkSynced(ctx context.Context, localID, reservationID int64, paymentID *int64) error {
	return s.Apply(ctx, []Outcome{{LocalID: localID, OK: true, ReservationID: reservationID, PaymentID: paymentID}})
}

// MarkFailed moves a pending ticket to failed with the server's reason
func (s *Store) MarkFailed(ctx context.Context, localID int64, reason string) error {
	return s.Apply(ctx, []Outcome{{LocalID: localID, Error: reason}})
}

// Apply records a batch of outcomes in one transaction. Only pending
// tickets change; a ticket already synced keeps its ids.
func (s *Store) Apply(ctx context.Context, outcomes []Outcome) (err error) {
	if len(outcomes) == 0 {
		return nil
	}
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	endTransaction, err := sqlitex.ImmediateTransaction(conn)
	if err != nil {
		return fmt.Errorf("offline store: begin transaction: %w", err)
	}
	defer endTransaction(&err)

	now := formatTime(s.clock.Now())
	for _, o := range outcomes {
		if o.OK {
			err = sqlitex.Execute(conn, `UPDATE tickets
				SET sync_status = ?, remote_reservation_id = ?, remote_payment_id = ?,
					last_error = NULL, attempts = attempts + 1, updated_at = ?
				WHERE local_id = ? AND sync_status = ?`,
				&sqlitex.ExecOptions{Args: []any{
					string(StateSynced), o.ReservationID, nullInt(o.PaymentID), now, o.LocalID, string(StatePending),
				}})
		} else {
			err = sqlitex.Execute(conn, `UPDATE tickets
				SET sync_status = ?, last_error = ?, attempts = attempts + 1, updated_at = ?
				WHERE local_id = ? AND sync_status = ?`,
				&sqlitex.ExecOptions{Args: []any{
					string(StateFailed), o.Error, now, o.LocalID, string(StatePending),
				}})
		}
		if err != nil {
			return fmt.Errorf("offline store: apply outcome for %d: %w", o.LocalID, err)
		}
	}
	return nil
}

// Retry moves a failed ticket back to pending. A localID of zero retries
// every failed ticket. It returns how many tickets moved.
func (s *Store) Retry(ctx context.Context, localID int64) (int, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	query := `UPDATE tickets SET sync_status = ?, updated_at = ? WHERE sync_status = ?`
	args := []any{string(StatePending), formatTime(s.clock.Now()), string(StateFailed)}
	if localID > 0 {
		query += ` AND local_id = ?`
		args = append(args, localID)
	}
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, fmt.Errorf("offline store: retry: %w", err)
	}
	return conn.Changes(), nil
}

// Counts tallies tickets per state
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var c Counts
	err = sqlitex.Execute(conn, `SELECT sync_status, COUNT(*) FROM tickets GROUP BY sync_status`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n := stmt.ColumnInt(1)
			switch State(stmt.ColumnText(0)) {
			case StatePending:
				c.Pending = n
			case StateSynced:
				c.Synced = n
			case StateFailed:
				c.Failed = n
			}
			return nil
		},
	})
	if err != nil {
		return Counts{}, fmt.Errorf("offline store: counts: %w", err)
	}
	return c, nil
}

// RecordSync stores the outcome of a sync attempt. The success time only
// moves when the attempt reached the server.
func (s *Store) RecordSync(ctx context.Context, success bool, message string) error {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	now := formatTime(s.clock.Now())
	query := `UPDATE sync_status SET last_attempt_at = ?, last_message = ? WHERE id = 1`
	args := []any{now, message}
	if success {
		query = `UPDATE sync_status SET last_attempt_at = ?, last_message = ?, last_success_at = ? WHERE id = 1`
		args = append(args, now)
	}
	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return fmt.Errorf("offline store: record sync: %w", err)
	}
	return nil
}

// Status returns the last recorded sync outcome
func (s *Store) Status(ctx context.Context) (SyncStatus, error) {
	conn, err := s.pool.Take(ctx)
	if err != nil {
		return SyncStatus{}, fmt.Errorf("offline store: take: %w", err)
	}
	defer s.pool.Put(conn)

	var st SyncStatus
	err = sqlitex.Execute(conn, `SELECT last_attempt_at, last_success_at, last_message FROM sync_status WHERE id = 1`, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var err error
			if st.LastAttemptAt, err = columnTime(stmt, 0); err != nil {
				return err
			}
			if st.LastSuccessAt, err = columnTime(stmt, 1); err != nil {
				return err
			}
			st.LastMessage = stmt.ColumnText(2)
			return nil
		},
	})
	if err != nil {
		return SyncStatus{}, fmt.Errorf("offline store: status: %w", err)
	}
	return st, nil
}

func scanTicket(stmt *sqlite.Stmt) (Ticket, error) {
	t := Ticket{
		LocalID:             stmt.ColumnInt64(0),
		TripID:              stmt.ColumnInt64(1),
		TripVehicleID:       columnInt(stmt, 2),
		OperatorID:          columnInt(stmt, 3),
		EmployeeID:          columnInt(stmt, 4),
		SeatID:              columnInt(stmt, 5),
		BoardStationID:      columnInt(stmt, 6),
		ExitStationID:       columnInt(stmt, 7),
		PriceListID:         columnInt(stmt, 8),
		CategoryID:          columnInt(stmt, 9),
		DiscountTypeID:      columnInt(stmt, 10),
		BasePrice:           columnFloat(stmt, 11),
		FinalPrice:          columnFloat(stmt, 12),
		Currency:            stmt.ColumnText(13),
		PaymentMethod:       stmt.ColumnText(14),
		State:               State(stmt.ColumnText(16)),
		RemoteReservationID: columnInt(stmt, 17),
		RemotePaymentID:     columnInt(stmt, 18),
		LastError:           stmt.ColumnText(19),
		Attempts:            stmt.ColumnInt(20),
	}
	created, err := parseCreatedAt(stmt.ColumnText(15))
	if err != nil {
		return Ticket{}, fmt.Errorf("ticket %d: bad created_at: %w", t.LocalID, err)
	}
	t.CreatedAt = created
	updated, err := columnTime(stmt, 21)
	if err != nil {
		return Ticket{}, err
	}
	if updated != nil {
		t.UpdatedAt = *updated
	}
	return t, nil
}

func columnInt(stmt *sqlite.Stmt, col int) *int64 {
	if stmt.ColumnIsNull(col) {
		return nil
	}
	v := stmt.ColumnInt64(col)
	return &v
}

func columnFloat(stmt *sqlite.Stmt, col int) *float64 {
	if stmt.ColumnIsNull(col) {
		return nil
	}
	v := stmt.ColumnFloat(col)
	return &v
}

func columnTime(stmt *sqlite.Stmt, col int) (*time.Time, error) {
	if stmt.ColumnIsNull(col) {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, stmt.ColumnText(col))
	if err != nil {
		return nil, fmt.Errorf("bad timestamp in column %d: %w", col, err)
	}
	return &t, nil
}

// sqlitex binds untyped nil as NULL; a typed nil pointer is not supported
func nullInt(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseCreatedAt(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.ParseInLocation(CreatedAtLayout, raw, time.Local)
}
