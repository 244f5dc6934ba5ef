package reservations

import "time"

// TransitionResult describes the reservation after a lifecycle command.
// Changed is false when the command was an idempotent repeat.
type TransitionResult struct {
	ReservationID int64      `json:"reservation_id"`
	Action        Action     `json:"action"`
	Changed       bool       `json:"changed"`
	Status        Status     `json:"status"`
	Boarded       bool       `json:"boarded"`
	BoardedAt     *time.Time `json:"boarded_at,omitempty"`
	Version       int        `json:"version"`
}

type TripReservationsResponse struct {
	TripID       int64                 `json:"trip_id"`
	Count        int                   `json:"count"`
	Reservations []TripReservationView `json:"reservations"`
}
