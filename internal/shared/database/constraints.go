package database

import (
	"fmt"

	"gorm.io/gorm"
)

// constraintStatements are the invariants gorm tags cannot express. Each
// statement is idempotent.
var constraintStatements = []string{
	// A station appears once per trip and a position holds one station
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_trip_stations_sequence
		ON trip_stations (trip_id, sequence)`,

	// Lookup path of the seat conflict check
	`CREATE INDEX IF NOT EXISTS idx_reservations_active_seat
		ON reservations (trip_id, seat_id) WHERE status = 'active'`,

	`DO $$ BEGIN
		ALTER TABLE reservations ADD CONSTRAINT chk_reservations_boarded_at
			CHECK (NOT boarded OR boarded_at IS NOT NULL);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,

	`DO $$ BEGIN
		ALTER TABLE payments ADD CONSTRAINT chk_payments_amount_non_negative
			CHECK (amount >= 0);
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,

	`DO $$ BEGIN
		ALTER TABLE payments ADD CONSTRAINT chk_payments_status
			CHECK (status IN ('paid', 'pending', 'void', 'refunded'));
	EXCEPTION WHEN duplicate_object THEN NULL; END $$`,

	// Audit rows are append-only
	`CREATE OR REPLACE FUNCTION reservation_events_append_only() RETURNS trigger AS $$
	BEGIN
		RAISE EXCEPTION 'reservation_events is append-only';
	END $$ LANGUAGE plpgsql`,
	`DROP TRIGGER IF EXISTS trg_reservation_events_append_only ON reservation_events`,
	`CREATE TRIGGER trg_reservation_events_append_only
		BEFORE UPDATE OR DELETE ON reservation_events
		FOR EACH ROW EXECUTE FUNCTION reservation_events_append_only()`,
}

// MigrateConstraints adds the constraints that back the concurrency and
// audit guarantees
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to apply constraint: %w", err)
		}
	}
	return nil
}
