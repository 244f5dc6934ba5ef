package tickets

import "encoding/json"

// TicketResult identifies what a composed ticket created. PaymentID is nil
// for unpriced tickets.
type TicketResult struct {
	ReservationID int64  `json:"reservation_id"`
	PaymentID     *int64 `json:"payment_id"`
	Replayed      bool   `json:"replayed,omitempty"`
}

// BatchItemResult reports the outcome of one batch item
type BatchItemResult struct {
	LocalID       json.RawMessage `json:"local_id"`
	OK            bool            `json:"ok"`
	ReservationID *int64          `json:"reservation_id"`
	PaymentID     *int64          `json:"payment_id"`
	Error         *string         `json:"error"`
	Code          string          `json:"code,omitempty"`
	Replayed      bool            `json:"replayed,omitempty"`
}

type BatchResponse struct {
	DeviceID  string            `json:"device_id,omitempty"`
	Total     int               `json:"total"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Results   []BatchItemResult `json:"results"`
}
