package offline

import "time"

// State is where a local ticket stands in the sync pipeline
type State string

const (
	StatePending State = "pending"
	StateSynced  State = "synced"
	StateFailed  State = "failed"
)

// Valid reports whether s is a known state
func (s State) Valid() bool {
	switch s {
	case StatePending, StateSynced, StateFailed:
		return true
	}
	return false
}

// CreatedAtLayout is the wall-clock format tickets are shown with. Older
// queue files stored created_at in it as device local time.
const CreatedAtLayout = "2006-01-02 15:04:05"

// Ticket is a ticket issued on the device and queued for upload. LocalID
// is assigned by the store and doubles as the batch item id.
type Ticket struct {
	LocalID        int64
	TripID         int64
	TripVehicleID  *int64
	OperatorID     *int64
	EmployeeID     *int64
	SeatID         *int64
	BoardStationID *int64
	ExitStationID  *int64
	PriceListID    *int64
	CategoryID     *int64
	DiscountTypeID *int64
	BasePrice      *float64
	FinalPrice     *float64
	Currency       string
	PaymentMethod  string
	CreatedAt      time.Time

	State               State
	RemoteReservationID *int64
	RemotePaymentID     *int64
	LastError           string
	Attempts            int
	UpdatedAt           time.Time
}

// Counts is the number of local tickets per state
type Counts struct {
	Pending int `json:"pending"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// SyncStatus is the outcome of the most recent sync attempt
type SyncStatus struct {
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastMessage   string     `json:"last_message,omitempty"`
}

// Outcome is what the server said about one queued ticket
type Outcome struct {
	LocalID       int64
	OK            bool
	ReservationID int64
	PaymentID     *int64
	Error         string
}
