package tickets

import "time"

// IdempotencyRecord remembers the outcome of a synced ticket so a replayed
// batch item returns the original ids instead of inserting twice. It is
// written in the same transaction as the ticket.
type IdempotencyRecord struct {
	Key           string    `gorm:"column:idempotency_key;primaryKey;type:char(64)" json:"key"`
	DeviceID      string    `gorm:"type:varchar(128);not null;index" json:"device_id"`
	InstallID     string    `gorm:"type:varchar(64);not null;default:''" json:"install_id,omitempty"`
	LocalID       string    `gorm:"type:varchar(64);not null" json:"local_id"`
	TripID        int64     `gorm:"not null" json:"trip_id"`
	ReservationID int64     `gorm:"not null" json:"reservation_id"`
	PaymentID     *int64    `json:"payment_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (IdempotencyRecord) TableName() string { return "ticket_idempotency" }
