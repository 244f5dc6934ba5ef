package trips

import "testing"

func TestNewSequenceOrdersStops(t *testing.T) {
	seq, err := NewSequence(7, []TripStation{
		{TripID: 7, StationID: 30, Sequence: 2},
		{TripID: 7, StationID: 10, Sequence: 0},
		{TripID: 7, StationID: 20, Sequence: 1},
	})
	if err != nil {
		t.Fatalf("NewSequence: %v", err)
	}
	if got := seq.Stations(); len(got) != 3 || got[0] != 10 || got[2] != 30 {
		t.Fatalf("Stations() = %v, want [10 20 30]", got)
	}
	if pos, ok := seq.Position(20); !ok || pos != 1 {
		t.Errorf("Position(20) = %d, %v", pos, ok)
	}
	if _, ok := seq.Position(99); ok {
		t.Error("unknown station should not resolve")
	}
}

func TestNewSequenceRejectsDuplicates(t *testing.T) {
	tests := []struct {
		name  string
		stops []TripStation
	}{
		{"duplicate position", []TripStation{{StationID: 1, Sequence: 0}, {StationID: 2, Sequence: 0}}},
		{"duplicate station", []TripStation{{StationID: 1, Sequence: 0}, {StationID: 1, Sequence: 1}}},
		{"foreign trip", []TripStation{{TripID: 8, StationID: 1, Sequence: 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewSequence(7, tt.stops); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEmptySequence(t *testing.T) {
	seq, err := NewSequence(1, nil)
	if err != nil {
		t.Fatal(err)
	}
	if seq.Len() != 0 {
		t.Fatalf("Len() = %d", seq.Len())
	}
}
