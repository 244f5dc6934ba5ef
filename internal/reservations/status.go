package reservations

import "math"

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	// StatusNoShow is never stored; it only appears in the trip view
	StatusNoShow Status = "no_show"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionBoard  Action = "board"
	ActionNoShow Action = "no_show"
	ActionCancel Action = "cancel"
)

type BookingChannel string

const (
	ChannelAgent  BookingChannel = "agent"
	ChannelOnline BookingChannel = "online"
	ChannelDriver BookingChannel = "driver"
)

type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentVoid     PaymentStatus = "void"
	PaymentRefunded PaymentStatus = "refunded"
)

// IsSettled reports whether funds were actually collected
func (s PaymentStatus) IsSettled() bool {
	return s == PaymentPaid
}

// DisplayStatus overlays a no-show record on the stored status. A
// cancelled reservation always shows as cancelled.
func DisplayStatus(stored Status, hasNoShow bool) Status {
	if hasNoShow && stored != StatusCancelled {
		return StatusNoShow
	}
	return stored
}

const moneyEpsilon = 0.005

// FinalPrice is base minus discount, never negative
func (p PaymentSummary) FinalPrice() float64 {
	if p.BasePrice == nil {
		return 0
	}
	return round2(math.Max(0, *p.BasePrice-p.DiscountAmount))
}

// DueAmount is what is left to collect
func (p PaymentSummary) DueAmount() float64 {
	return round2(math.Max(0, p.FinalPrice()-p.PaidAmount))
}

// FullyPaid requires a known base price and no amount due
func (p PaymentSummary) FullyPaid() bool {
	return p.BasePrice != nil && p.DueAmount() < moneyEpsilon
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
