package reservations

import (
	"encoding/json"
	"time"
)

// Reservation is a claim on a seat segment of a trip. Boarding is a flag
// orthogonal to Status; a no-show is recorded in NoShow and never changes
// Status.
type Reservation struct {
	ID              int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	TripID          int64      `gorm:"not null;index:idx_reservations_trip_seat,priority:1" json:"trip_id"`
	SeatID          *int64     `gorm:"index:idx_reservations_trip_seat,priority:2" json:"seat_id,omitempty"`
	PersonID        *int64     `json:"person_id,omitempty"`
	BoardStationID  *int64     `json:"board_station_id,omitempty"`
	ExitStationID   *int64     `json:"exit_station_id,omitempty"`
	Status          Status     `gorm:"type:varchar(16);not null;default:'active';check:status IN ('active','cancelled')" json:"status"`
	Boarded         bool       `gorm:"not null;default:false" json:"boarded"`
	BoardedAt       *time.Time `json:"boarded_at,omitempty"`
	Version         int        `gorm:"not null;default:1" json:"version"`
	CreatedBy       *int64     `json:"created_by,omitempty"`
	ReservationTime time.Time  `gorm:"not null" json:"reservation_time"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// PricingSnapshot freezes the list price at sale time
type PricingSnapshot struct {
	ID                int64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID     int64          `gorm:"not null;index" json:"reservation_id"`
	PriceValue        float64        `gorm:"not null" json:"price_value"`
	PriceListID       int64          `gorm:"not null" json:"price_list_id"`
	PricingCategoryID int64          `gorm:"not null" json:"pricing_category_id"`
	BookingChannel    BookingChannel `gorm:"type:varchar(16);not null;default:'driver'" json:"booking_channel"`
	EmployeeID        *int64         `json:"employee_id,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
}

// DiscountSnapshot records the discount granted at sale time. Percent is
// captured, not recomputed, so reports stay stable when rules change.
type DiscountSnapshot struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID   int64     `gorm:"not null;uniqueIndex" json:"reservation_id"`
	DiscountTypeID  int64     `gorm:"not null" json:"discount_type_id"`
	PromoCode       *string   `gorm:"type:varchar(64)" json:"promo_code,omitempty"`
	DiscountAmount  float64   `gorm:"not null" json:"discount_amount"`
	SnapshotPercent float64   `gorm:"column:discount_snapshot_percent;not null" json:"discount_snapshot_percent"`
	CreatedAt       time.Time `json:"created_at"`
}

// Payment is a ledger entry; only PaymentPaid counts as settled
type Payment struct {
	ID            int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID int64         `gorm:"not null;index" json:"reservation_id"`
	Amount        float64       `gorm:"not null" json:"amount"`
	Currency      string        `gorm:"type:varchar(3);not null;default:'RON'" json:"currency"`
	Status        PaymentStatus `gorm:"type:varchar(16);not null" json:"status"`
	Method        string        `gorm:"type:varchar(16);not null" json:"payment_method"`
	Timestamp     time.Time     `gorm:"not null" json:"timestamp"`
	CollectedBy   *int64        `json:"collected_by,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NoShow marks a passenger who did not show up. At most one per reservation.
type NoShow struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID  int64     `gorm:"not null;uniqueIndex" json:"reservation_id"`
	PersonID       *int64    `json:"person_id,omitempty"`
	TripID         int64     `gorm:"not null;index" json:"trip_id"`
	SeatID         *int64    `json:"seat_id,omitempty"`
	BoardStationID *int64    `json:"board_station_id,omitempty"`
	ExitStationID  *int64    `json:"exit_station_id,omitempty"`
	AddedBy        *int64    `gorm:"column:added_by_employee_id" json:"added_by_employee_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Event is one row of the append-only audit trail
type Event struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	ReservationID int64           `gorm:"not null;index" json:"reservation_id"`
	Action        Action          `gorm:"type:varchar(16);not null" json:"action"`
	ActorID       *int64          `json:"actor_id,omitempty"`
	Details       json.RawMessage `gorm:"type:jsonb" json:"details"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Person is reference data joined into the trip view
type Person struct {
	ID    int64   `gorm:"primaryKey" json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
}

func (Reservation) TableName() string      { return "reservations" }
func (PricingSnapshot) TableName() string  { return "reservation_pricing" }
func (DiscountSnapshot) TableName() string { return "reservation_discounts" }
func (Payment) TableName() string          { return "payments" }
func (NoShow) TableName() string           { return "no_shows" }
func (Event) TableName() string            { return "reservation_events" }
func (Person) TableName() string           { return "people" }

// PaymentSummary aggregates the money state of one reservation
type PaymentSummary struct {
	BasePrice      *float64
	DiscountAmount float64
	PaidAmount     float64
	SettledCount   int
}
