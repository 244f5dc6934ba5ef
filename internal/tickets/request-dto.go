package tickets

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// ID is a lenient identifier: a positive integer given as a JSON number or
// numeric string. Anything else decodes as absent.
type ID struct {
	Value int64
	Valid bool
}

func (id *ID) UnmarshalJSON(data []byte) error {
	*id = ID{}
	n, ok := parseNumber(data)
	if !ok || n <= 0 || n != math.Trunc(n) || n >= math.MaxInt64 {
		return nil
	}
	*id = ID{Value: int64(n), Valid: true}
	return nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	if !id.Valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(id.Value, 10)), nil
}

// Ptr returns nil for an absent id
func (id ID) Ptr() *int64 {
	if !id.Valid {
		return nil
	}
	v := id.Value
	return &v
}

// Amount is a lenient finite number, absent when missing or malformed
type Amount struct {
	Value float64
	Valid bool
}

func (a *Amount) UnmarshalJSON(data []byte) error {
	*a = Amount{}
	if n, ok := parseNumber(data); ok {
		*a = Amount{Value: n, Valid: true}
	}
	return nil
}

func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(a.Value)
}

func (a Amount) Ptr() *float64 {
	if !a.Valid {
		return nil
	}
	v := a.Value
	return &v
}

func parseNumber(data []byte) (float64, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0, false
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, false
		}
		raw = strings.TrimSpace(s)
	}
	if raw == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
		return 0, false
	}
	return n, true
}

// Timestamp layouts accepted for created_at
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// TicketRequest is one ticket as sent by the driver app. Board and exit
// stations may also arrive as from_station_id and to_station_id.
type TicketRequest struct {
	LocalID           json.RawMessage `json:"local_id,omitempty"`
	TripID            ID              `json:"trip_id"`
	TripVehicleID     ID              `json:"trip_vehicle_id"`
	SeatID            ID              `json:"seat_id"`
	BoardStationID    ID              `json:"board_station_id"`
	ExitStationID     ID              `json:"exit_station_id"`
	FromStationID     ID              `json:"from_station_id"`
	ToStationID       ID              `json:"to_station_id"`
	PriceListID       ID              `json:"price_list_id"`
	PricingCategoryID ID              `json:"pricing_category_id"`
	DiscountTypeID    ID              `json:"discount_type_id"`
	BasePrice         Amount          `json:"base_price"`
	FinalPrice        Amount          `json:"final_price"`
	Currency          string          `json:"currency"`
	PaymentMethod     string          `json:"payment_method"`
	CreatedAt         string          `json:"created_at"`
}

// LocalKey renders local_id for idempotency. Numbers and strings with the
// same digits map to the same key.
func (r TicketRequest) LocalKey() string {
	raw := bytes.TrimSpace(r.LocalID)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return strings.TrimSpace(s)
	}
	return string(raw)
}

// Input normalizes the wire form. Malformed optional fields are treated as
// absent; a malformed created_at falls back to the server time.
func (r TicketRequest) Input() TicketInput {
	in := TicketInput{
		TripID:            r.TripID.Ptr(),
		SeatID:            r.SeatID.Ptr(),
		BoardStationID:    r.BoardStationID.Ptr(),
		ExitStationID:     r.ExitStationID.Ptr(),
		PriceListID:       r.PriceListID.Ptr(),
		PricingCategoryID: r.PricingCategoryID.Ptr(),
		DiscountTypeID:    r.DiscountTypeID.Ptr(),
		BasePrice:         r.BasePrice.Ptr(),
		FinalPrice:        r.FinalPrice.Ptr(),
		Currency:          strings.ToUpper(strings.TrimSpace(r.Currency)),
		PaymentMethod:     strings.ToLower(strings.TrimSpace(r.PaymentMethod)),
	}
	if r.FromStationID.Valid {
		in.BoardStationID = r.FromStationID.Ptr()
	}
	if r.ToStationID.Valid {
		in.ExitStationID = r.ToStationID.Ptr()
	}
	if ts := strings.TrimSpace(r.CreatedAt); ts != "" {
		for _, layout := range timestampLayouts {
			if t, err := time.Parse(layout, ts); err == nil {
				in.CreatedAt = &t
				break
			}
		}
	}
	return in
}

// BatchRequest is the body of POST /tickets/batch
type BatchRequest struct {
	DeviceID  string          `json:"device_id" binding:"omitempty,max=128"`
	InstallID string          `json:"install_id,omitempty" binding:"omitempty,max=64"`
	Tickets   []TicketRequest `json:"tickets"`
}
