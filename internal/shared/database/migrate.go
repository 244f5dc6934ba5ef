package database

import (
	"seatline/internal/auth"
	"seatline/internal/pricing"
	"seatline/internal/reservations"
	"seatline/internal/tickets"
	"seatline/internal/trips"

	"gorm.io/gorm"
)

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&auth.Employee{},
		&trips.Station{},
		&trips.Trip{},
		&trips.TripStation{},
		&pricing.PricingCategory{},
		&pricing.PriceList{},
		&pricing.PriceListItem{},
		&pricing.DiscountType{},
		&reservations.Person{},
		&reservations.Reservation{},
		&reservations.PricingSnapshot{},
		&reservations.DiscountSnapshot{},
		&reservations.Payment{},
		&reservations.NoShow{},
		&reservations.Event{},
		&tickets.IdempotencyRecord{},
	)
}
