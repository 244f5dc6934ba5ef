package segments_test

import (
	"context"
	"errors"
	"testing"

	"seatline/internal/segments"
	"seatline/internal/shared/apperror"
	"seatline/internal/trips"
)

const (
	stationA int64 = 101
	stationB int64 = 102
	stationC int64 = 103
	stationD int64 = 104
	tripT    int64 = 9
)

type staticSequences struct{ seq *trips.Sequence }

func (s staticSequences) SequenceFor(ctx context.Context, tripID int64) (*trips.Sequence, error) {
	return s.seq, nil
}

type staticReservations map[int64][]segments.Segment

func (s staticReservations) ActiveSegments(ctx context.Context, tripID, seatID int64) ([]segments.Segment, error) {
	return s[seatID], nil
}

func tripABCD(t *testing.T) *trips.Sequence {
	t.Helper()
	seq, err := trips.NewSequence(tripT, []trips.TripStation{
		{TripID: tripT, StationID: stationA, Sequence: 0},
		{TripID: tripT, StationID: stationB, Sequence: 1},
		{TripID: tripT, StationID: stationC, Sequence: 2},
		{TripID: tripT, StationID: stationD, Sequence: 3},
	})
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	return seq
}

func iv(from, to int) segments.Interval {
	return segments.Interval{From: from, To: to}
}

func TestOverlapsIsHalfOpen(t *testing.T) {
	tests := []struct {
		a, b segments.Interval
		want bool
	}{
		{iv(0, 2), iv(1, 3), true},
		{iv(0, 2), iv(2, 3), false},
		{iv(2, 3), iv(0, 2), false},
		{iv(0, 3), iv(1, 2), true},
		{iv(1, 2), iv(1, 2), true},
		{iv(0, 1), iv(2, 3), false},
	}
	for _, tt := range tests {
		if got := segments.Overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCheckSegmentTripExample(t *testing.T) {
	v := segments.NewValidator(
		staticSequences{tripABCD(t)},
		staticReservations{5: {{ReservationID: 1, BoardStationID: stationA, ExitStationID: stationC}}},
	)
	ctx := context.Background()

	err := v.CheckSegment(ctx, segments.Request{TripID: tripT, SeatID: 5, BoardStationID: stationB, ExitStationID: stationD})
	if !errors.Is(err, apperror.ErrSeatOccupied) {
		t.Fatalf("B->D on seat 5: got %v, want seat_occupied", err)
	}

	if err := v.CheckSegment(ctx, segments.Request{TripID: tripT, SeatID: 5, BoardStationID: stationC, ExitStationID: stationD}); err != nil {
		t.Fatalf("C->D on seat 5 should be free: %v", err)
	}

	if err := v.CheckSegment(ctx, segments.Request{TripID: tripT, SeatID: 6, BoardStationID: stationA, ExitStationID: stationD}); err != nil {
		t.Fatalf("other seat should be free: %v", err)
	}
}

func TestCheckSegmentErrors(t *testing.T) {
	v := segments.NewValidator(staticSequences{tripABCD(t)}, staticReservations{})
	tests := []struct {
		name string
		req  segments.Request
		code string
	}{
		{"unknown board", segments.Request{TripID: tripT, SeatID: 1, BoardStationID: 999, ExitStationID: stationB}, apperror.CodeUnknownStation},
		{"unknown exit", segments.Request{TripID: tripT, SeatID: 1, BoardStationID: stationA, ExitStationID: 999}, apperror.CodeUnknownStation},
		{"same station", segments.Request{TripID: tripT, SeatID: 1, BoardStationID: stationB, ExitStationID: stationB}, apperror.CodeInvalidSegment},
		{"reversed", segments.Request{TripID: tripT, SeatID: 1, BoardStationID: stationD, ExitStationID: stationA}, apperror.CodeInvalidSegment},
		{"zero seat", segments.Request{TripID: tripT, SeatID: 0, BoardStationID: stationA, ExitStationID: stationB}, apperror.CodeInvalidSegment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.CheckSegment(context.Background(), tt.req)
			var appErr *apperror.Error
			if !errors.As(err, &appErr) || appErr.Code != tt.code {
				t.Fatalf("got %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestCheckSegmentSkipsUnresolvableRows(t *testing.T) {
	v := segments.NewValidator(
		staticSequences{tripABCD(t)},
		staticReservations{3: {{ReservationID: 4, BoardStationID: 777, ExitStationID: stationD}}},
	)
	err := v.CheckSegment(context.Background(), segments.Request{TripID: tripT, SeatID: 3, BoardStationID: stationA, ExitStationID: stationD})
	if err != nil {
		t.Fatalf("row with stale station should not block: %v", err)
	}
}
