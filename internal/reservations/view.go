package reservations

import (
	"context"
	"fmt"
	"time"
)

// ManifestRow is one reservation of a trip with its money aggregates, as
// read from the database
type ManifestRow struct {
	ReservationID   int64
	TripID          int64
	SeatID          *int64
	PersonID        *int64
	PersonName      *string
	PersonPhone     *string
	BoardStationID  *int64
	ExitStationID   *int64
	Status          Status
	Boarded         bool
	BoardedAt       *time.Time
	Version         int
	ReservationTime time.Time
	BasePrice       *float64
	DiscountAmount  float64
	DiscountLabel   *string
	PromoCode       *string
	PaidAmount      float64
	HasNoShow       bool
}

const tripManifestQuery = `
SELECT
	r.id AS reservation_id,
	r.trip_id,
	r.seat_id,
	r.person_id,
	p.name AS person_name,
	p.phone AS person_phone,
	r.board_station_id,
	r.exit_station_id,
	r.status,
	r.boarded,
	r.boarded_at,
	r.version,
	r.reservation_time,
	pr.base_price,
	COALESCE(d.discount_amount, 0) AS discount_amount,
	d.discount_label,
	d.promo_code,
	COALESCE(pay.paid_amount, 0) AS paid_amount,
	(ns.reservation_id IS NOT NULL) AS has_no_show
FROM reservations r
LEFT JOIN people p ON p.id = r.person_id
LEFT JOIN (
	SELECT reservation_id, MAX(price_value) AS base_price
	FROM reservation_pricing
	GROUP BY reservation_id
) pr ON pr.reservation_id = r.id
LEFT JOIN (
	SELECT rd.reservation_id,
		SUM(rd.discount_amount) AS discount_amount,
		MAX(dt.label) AS discount_label,
		MAX(rd.promo_code) AS promo_code
	FROM reservation_discounts rd
	LEFT JOIN discount_types dt ON dt.id = rd.discount_type_id
	GROUP BY rd.reservation_id
) d ON d.reservation_id = r.id
LEFT JOIN (
	SELECT reservation_id, SUM(amount) AS paid_amount
	FROM payments
	WHERE status = ?
	GROUP BY reservation_id
) pay ON pay.reservation_id = r.id
LEFT JOIN no_shows ns ON ns.reservation_id = r.id
WHERE r.trip_id = ? AND r.status IN (?, ?)
ORDER BY r.seat_id NULLS LAST, r.id`

func (r *repository) TripManifest(ctx context.Context, tripID int64) ([]ManifestRow, error) {
	var rows []ManifestRow
	err := r.db.WithContext(ctx).
		Raw(tripManifestQuery, PaymentPaid, tripID, StatusActive, StatusCancelled).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations of trip %d: %w", tripID, err)
	}
	return rows, nil
}

// TripReservationView is the computed, display-ready form of a ManifestRow
type TripReservationView struct {
	ReservationID   int64      `json:"reservation_id"`
	TripID          int64      `json:"trip_id"`
	SeatID          *int64     `json:"seat_id"`
	PersonID        *int64     `json:"person_id"`
	PersonName      *string    `json:"person_name"`
	PersonPhone     *string    `json:"person_phone"`
	BoardStationID  *int64     `json:"board_station_id"`
	ExitStationID   *int64     `json:"exit_station_id"`
	StoredStatus    Status     `json:"stored_status"`
	Status          Status     `json:"status"`
	Boarded         bool       `json:"boarded"`
	BoardedAt       *time.Time `json:"boarded_at"`
	Version         int        `json:"version"`
	ReservationTime time.Time  `json:"reservation_time"`
	BasePrice       *float64   `json:"base_price"`
	DiscountAmount  float64    `json:"discount_amount"`
	DiscountLabel   *string    `json:"discount_label"`
	PromoCode       *string    `json:"promo_code"`
	PaidAmount      float64    `json:"paid_amount"`
	FinalPrice      float64    `json:"final_price"`
	DueAmount       float64    `json:"due_amount"`
	IsPaid          bool       `json:"is_paid"`
}

// BuildView derives prices, paid flag and display status from a row
func BuildView(row ManifestRow) TripReservationView {
	summary := PaymentSummary{
		BasePrice:      row.BasePrice,
		DiscountAmount: row.DiscountAmount,
		PaidAmount:     row.PaidAmount,
	}
	return TripReservationView{
		ReservationID:   row.ReservationID,
		TripID:          row.TripID,
		SeatID:          row.SeatID,
		PersonID:        row.PersonID,
		PersonName:      row.PersonName,
		PersonPhone:     row.PersonPhone,
		BoardStationID:  row.BoardStationID,
		ExitStationID:   row.ExitStationID,
		StoredStatus:    row.Status,
		Status:          DisplayStatus(row.Status, row.HasNoShow),
		Boarded:         row.Boarded,
		BoardedAt:       row.BoardedAt,
		Version:         row.Version,
		ReservationTime: row.ReservationTime,
		BasePrice:       row.BasePrice,
		DiscountAmount:  row.DiscountAmount,
		DiscountLabel:   row.DiscountLabel,
		PromoCode:       row.PromoCode,
		PaidAmount:      row.PaidAmount,
		FinalPrice:      summary.FinalPrice(),
		DueAmount:       summary.DueAmount(),
		IsPaid:          summary.FullyPaid(),
	}
}
