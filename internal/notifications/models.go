package notifications

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// EventType names a reservation change broadcast to downstream consumers
// (dispatch screens, reporting)
type EventType string

const (
	EventReservationCreated   EventType = "reservation.created"
	EventReservationBoarded   EventType = "reservation.boarded"
	EventReservationNoShow    EventType = "reservation.no_show"
	EventReservationCancelled EventType = "reservation.cancelled"
)

// ReservationEvent is the message published after a change commits
type ReservationEvent struct {
	EventID       string            `json:"event_id"`
	Type          EventType         `json:"type"`
	ReservationID int64             `json:"reservation_id"`
	TripID        int64             `json:"trip_id"`
	SeatID        *int64            `json:"seat_id,omitempty"`
	ActorID       int64             `json:"actor_id"`
	PaymentID     *int64            `json:"payment_id,omitempty"`
	Attributes    map[string]string `json:"attributes,omitempty"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// NewReservationEvent stamps an id and time on a new event
func NewReservationEvent(eventType EventType, reservationID, tripID int64, seatID *int64, actorID int64) *ReservationEvent {
	return &ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          eventType,
		ReservationID: reservationID,
		TripID:        tripID,
		SeatID:        seatID,
		ActorID:       actorID,
		OccurredAt:    time.Now().UTC(),
	}
}

func (e *ReservationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// PartitionKey keeps all events of a trip in order on one partition
func (e *ReservationEvent) PartitionKey() string {
	return strconv.FormatInt(e.TripID, 10)
}
