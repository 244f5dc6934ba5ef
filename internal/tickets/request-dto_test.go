package tickets

import (
	"encoding/json"
	"testing"
)

func TestLenientTicketParsing(t *testing.T) {
	var req TicketRequest
	raw := `{
		"local_id": "abc",
		"trip_id": "12",
		"seat_id": 0,
		"board_station_id": 3,
		"from_station_id": 4,
		"exit_station_id": "x",
		"price_list_id": 2.5,
		"pricing_category_id": -1,
		"base_price": "1e999",
		"final_price": " 19.90 ",
		"currency": "ron",
		"payment_method": " Card ",
		"created_at": "2025-11-30 10:15:00"
	}`
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	in := req.Input()

	if in.TripID == nil || *in.TripID != 12 {
		t.Errorf("trip_id = %v", in.TripID)
	}
	if in.SeatID != nil || in.PriceListID != nil || in.PricingCategoryID != nil || in.ExitStationID != nil {
		t.Errorf("invalid ids should be absent: %+v", in)
	}
	if in.BoardStationID == nil || *in.BoardStationID != 4 {
		t.Errorf("from_station_id should win over board_station_id: %v", in.BoardStationID)
	}
	if in.BasePrice != nil {
		t.Errorf("infinite base price accepted: %v", *in.BasePrice)
	}
	if in.FinalPrice == nil || *in.FinalPrice != 19.9 {
		t.Errorf("final_price = %v", in.FinalPrice)
	}
	if in.Currency != "RON" || in.PaymentMethod != "card" {
		t.Errorf("currency=%q method=%q", in.Currency, in.PaymentMethod)
	}
	if in.CreatedAt == nil || in.CreatedAt.Hour() != 10 {
		t.Errorf("created_at = %v", in.CreatedAt)
	}
	if req.LocalKey() != "abc" {
		t.Errorf("local key = %q", req.LocalKey())
	}
}

func TestLocalKeyNormalizesNumbers(t *testing.T) {
	var a, b TicketRequest
	_ = json.Unmarshal([]byte(`{"local_id": 42}`), &a)
	_ = json.Unmarshal([]byte(`{"local_id": "42"}`), &b)
	if a.LocalKey() != "42" || b.LocalKey() != "42" {
		t.Fatalf("keys = %q %q", a.LocalKey(), b.LocalKey())
	}
	var none TicketRequest
	if none.LocalKey() != "" {
		t.Fatal("missing local_id produced a key")
	}
}
