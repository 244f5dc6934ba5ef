package trips

import (
	"fmt"
	"sort"
)

// Sequence maps each station of a trip to its position in the stop list.
// It is immutable once built.
type Sequence struct {
	tripID    int64
	positions map[int64]int
	order     []int64
}

// NewSequence builds a Sequence from the trip's stops. Positions must be
// unique and each station may appear only once.
func NewSequence(tripID int64, stops []TripStation) (*Sequence, error) {
	sorted := make([]TripStation, len(stops))
	copy(sorted, stops)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Sequence < sorted[j].Sequence })

	seq := &Sequence{
		tripID:    tripID,
		positions: make(map[int64]int, len(sorted)),
		order:     make([]int64, 0, len(sorted)),
	}
	for i, stop := range sorted {
		if stop.TripID != 0 && stop.TripID != tripID {
			return nil, fmt.Errorf("stop for trip %d in sequence of trip %d", stop.TripID, tripID)
		}
		if i > 0 && sorted[i-1].Sequence == stop.Sequence {
			return nil, fmt.Errorf("trip %d: duplicate sequence %d", tripID, stop.Sequence)
		}
		if _, dup := seq.positions[stop.StationID]; dup {
			return nil, fmt.Errorf("trip %d: station %d listed twice", tripID, stop.StationID)
		}
		seq.positions[stop.StationID] = stop.Sequence
		seq.order = append(seq.order, stop.StationID)
	}
	return seq, nil
}

// TripID returns the trip the sequence belongs to
func (s *Sequence) TripID() int64 { return s.tripID }

// Position returns the sequence index of a station on the trip
func (s *Sequence) Position(stationID int64) (int, bool) {
	pos, ok := s.positions[stationID]
	return pos, ok
}

// Stations returns station IDs in travel order
func (s *Sequence) Stations() []int64 {
	out := make([]int64, len(s.order))
	copy(out, s.order)
	return out
}

// Len is the number of stops
func (s *Sequence) Len() int { return len(s.order) }
