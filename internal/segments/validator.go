// Package segments decides whether a requested seat segment collides with
// the active reservations already holding that seat.
//
// A segment is the half-open interval [board, exit) over a trip's station
// sequence, so a passenger leaving at a station frees the seat for one
// boarding at that same station.
package segments

import (
	"context"
	"fmt"

	"seatline/internal/shared/apperror"
	"seatline/internal/trips"
)

// Segment is a stored reservation's station pair
type Segment struct {
	ReservationID  int64
	BoardStationID int64
	ExitStationID  int64
}

// Interval is a half-open [From, To) range of sequence positions
type Interval struct {
	From int
	To   int
}

// Overlaps reports whether two half-open intervals share any position.
func Overlaps(a, b Interval) bool {
	return a.To > b.From && a.From < b.To
}

// Request is a candidate seat segment
type Request struct {
	TripID         int64
	SeatID         int64
	BoardStationID int64
	ExitStationID  int64
}

// SequenceSource loads a trip's station sequence
type SequenceSource interface {
	SequenceFor(ctx context.Context, tripID int64) (*trips.Sequence, error)
}

// ReservationSource lists the segments of active reservations on a seat
type ReservationSource interface {
	ActiveSegments(ctx context.Context, tripID, seatID int64) ([]Segment, error)
}

// Validator checks candidate segments against stored reservations. Callers
// that insert afterwards must hold the seat lock for the whole
// check-then-insert sequence.
type Validator struct {
	sequences    SequenceSource
	reservations ReservationSource
}

func NewValidator(sequences SequenceSource, reservations ReservationSource) *Validator {
	return &Validator{sequences: sequences, reservations: reservations}
}

// CheckSegment returns nil when the seat is free on the requested segment,
// or an *apperror.Error with code unknown_station, invalid_segment or
// seat_occupied.
func (v *Validator) CheckSegment(ctx context.Context, req Request) error {
	if req.TripID <= 0 || req.SeatID <= 0 || req.BoardStationID <= 0 || req.ExitStationID <= 0 {
		return apperror.Validation(apperror.CodeInvalidSegment, "trip, seat and both stations must be positive identifiers")
	}

	seq, err := v.sequences.SequenceFor(ctx, req.TripID)
	if err != nil {
		return apperror.Internal("failed to load trip stations", err)
	}

	candidate, err := Resolve(seq, req.BoardStationID, req.ExitStationID)
	if err != nil {
		return err
	}

	existing, err := v.reservations.ActiveSegments(ctx, req.TripID, req.SeatID)
	if err != nil {
		return apperror.Internal("failed to load seat reservations", err)
	}

	for _, seg := range existing {
		held, ok := resolveStored(seq, seg)
		if !ok {
			continue
		}
		if Overlaps(held, candidate) {
			return &apperror.Error{
				Kind:    apperror.KindConflict,
				Code:    apperror.CodeSeatOccupied,
				Message: fmt.Sprintf("seat %d is held by reservation %d on an overlapping segment", req.SeatID, seg.ReservationID),
			}
		}
	}
	return nil
}

// Resolve maps a station pair onto the trip's sequence.
func Resolve(seq *trips.Sequence, boardStationID, exitStationID int64) (Interval, error) {
	from, ok := seq.Position(boardStationID)
	if !ok {
		return Interval{}, unknownStation(seq.TripID(), boardStationID)
	}
	to, ok := seq.Position(exitStationID)
	if !ok {
		return Interval{}, unknownStation(seq.TripID(), exitStationID)
	}
	if from >= to {
		return Interval{}, apperror.ErrInvalidSegment
	}
	return Interval{From: from, To: to}, nil
}

// resolveStored skips rows whose stations no longer resolve; they cannot be
// compared and never block a sale.
func resolveStored(seq *trips.Sequence, seg Segment) (Interval, bool) {
	from, ok := seq.Position(seg.BoardStationID)
	if !ok {
		return Interval{}, false
	}
	to, ok := seq.Position(seg.ExitStationID)
	if !ok {
		return Interval{}, false
	}
	return Interval{From: from, To: to}, true
}

func unknownStation(tripID, stationID int64) error {
	return &apperror.Error{
		Kind:    apperror.KindValidation,
		Code:    apperror.CodeUnknownStation,
		Message: fmt.Sprintf("station %d is not on trip %d", stationID, tripID),
	}
}
