package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"seatline/internal/auth"
	"seatline/internal/pricing"
	"seatline/internal/reservations"
	"seatline/internal/shared/config"
	"seatline/internal/shared/database"
	"seatline/internal/trips"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

type Seeder struct {
	db *database.DB
}

func main() {
	fmt.Println("🌱 Starting Seatline Database Seeder...")

	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	seeder := &Seeder{db: db}

	fmt.Println("\n🧹 Cleaning database...")
	if err := seeder.CleanDatabase(); err != nil {
		log.Fatalf("Failed to clean database: %v", err)
	}
	fmt.Println("✅ Database cleaned successfully")

	fmt.Println("\n🌱 Seeding database...")
	if err := seeder.SeedAll(); err != nil {
		log.Fatalf("Failed to seed database: %v", err)
	}
	fmt.Println("✅ Database seeded successfully")

	fmt.Println("\n🎉 Seeding completed! Trip 1 runs A → B → C → D today.")
}

// CleanDatabase truncates every table the service owns
func (s *Seeder) CleanDatabase() error {
	tables := []string{
		"ticket_idempotency",
		"reservation_events",
		"no_shows",
		"payments",
		"reservation_discounts",
		"reservation_pricing",
		"reservations",
		"people",
		"price_list_items",
		"price_lists",
		"discount_types",
		"pricing_categories",
		"trip_stations",
		"trips",
		"stations",
		"employees",
	}

	return s.db.PostgreSQL.Transaction(func(tx *gorm.DB) error {
		for _, table := range tables {
			fmt.Printf("  Truncating table: %s\n", table)
			if err := tx.Exec(fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", table)).Error; err != nil {
				return fmt.Errorf("failed to truncate table %s: %w", table, err)
			}
		}
		return nil
	})
}

// SeedAll seeds the demo network in one transaction
func (s *Seeder) SeedAll() error {
	ctx := context.Background()
	today := time.Now().UTC().Truncate(24 * time.Hour)

	err := s.db.PostgreSQL.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.SeedEmployees(tx); err != nil {
			return fmt.Errorf("failed to seed employees: %w", err)
		}
		stationIDs, err := s.SeedNetwork(tx, today)
		if err != nil {
			return fmt.Errorf("failed to seed network: %w", err)
		}
		priceListID, err := s.SeedPricing(tx, stationIDs, today)
		if err != nil {
			return fmt.Errorf("failed to seed pricing: %w", err)
		}
		if err := s.SeedReservations(tx, stationIDs, priceListID); err != nil {
			return fmt.Errorf("failed to seed reservations: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// Drop cached trip views so the fresh rows show up
	if s.db.Redis != nil {
		if err := s.db.Redis.FlushDB(ctx).Err(); err != nil {
			log.Printf("Warning: Failed to clear Redis cache: %v", err)
		}
	}
	return nil
}

// SeedEmployees creates a driver and an admin, both with password "qwerty123"
func (s *Seeder) SeedEmployees(tx *gorm.DB) error {
	fmt.Println("  👤 Seeding employees...")

	hash, err := auth.HashPassword("qwerty123")
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	operatorID := int64(1)
	employees := []auth.Employee{
		{ID: 1, OperatorID: &operatorID, Name: "Demo Driver", Email: "driver@seatline.local", PasswordHash: hash, Role: "driver", Active: true},
		{ID: 2, OperatorID: &operatorID, Name: "Demo Admin", Email: "admin@seatline.local", PasswordHash: hash, Role: "admin", Active: true},
	}
	for _, e := range employees {
		if err := tx.Create(&e).Error; err != nil {
			return fmt.Errorf("failed to create employee %s: %w", e.Email, err)
		}
		fmt.Printf("    ✅ Created employee: %s (%s)\n", e.Email, e.Role)
	}
	return nil
}

// SeedNetwork creates stations A to D and trip 1 visiting them in order
func (s *Seeder) SeedNetwork(tx *gorm.DB, day time.Time) ([]int64, error) {
	fmt.Println("  🚏 Seeding stations and trip...")

	names := []string{"A", "B", "C", "D"}
	ids := make([]int64, 0, len(names))
	for i, name := range names {
		station := trips.Station{ID: int64(i + 1), Name: name}
		if err := tx.Create(&station).Error; err != nil {
			return nil, fmt.Errorf("failed to create station %s: %w", name, err)
		}
		ids = append(ids, station.ID)
	}

	vehicleID := int64(1)
	trip := trips.Trip{ID: 1, RouteID: 1, VehicleID: &vehicleID, Date: day, Time: "08:00"}
	if err := tx.Create(&trip).Error; err != nil {
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}
	for i, id := range ids {
		stop := trips.TripStation{TripID: trip.ID, StationID: id, Sequence: i + 1}
		if err := tx.Create(&stop).Error; err != nil {
			return nil, fmt.Errorf("failed to place station %d: %w", id, err)
		}
	}

	fmt.Printf("    ✅ Created trip %d with %d stations\n", trip.ID, len(ids))
	return ids, nil
}

// SeedPricing creates the categories, one price list for route 1 and the
// discount types
func (s *Seeder) SeedPricing(tx *gorm.DB, stationIDs []int64, day time.Time) (int64, error) {
	fmt.Println("  💶 Seeding pricing...")

	categories := []pricing.PricingCategory{
		{ID: pricing.DefaultCategoryID, Name: "Normal"},
		{ID: 2, Name: "Student"},
	}
	if err := tx.Create(&categories).Error; err != nil {
		return 0, fmt.Errorf("failed to create categories: %w", err)
	}

	list := pricing.PriceList{
		ID:            1,
		RouteID:       1,
		CategoryID:    pricing.DefaultCategoryID,
		Name:          "Route 1 standard",
		Version:       1,
		EffectiveFrom: day.AddDate(0, -1, 0),
	}
	if err := tx.Create(&list).Error; err != nil {
		return 0, fmt.Errorf("failed to create price list: %w", err)
	}

	// 15 per hop in either direction
	var items []pricing.PriceListItem
	for i, from := range stationIDs {
		for j, to := range stationIDs {
			if i == j {
				continue
			}
			hops := j - i
			if hops < 0 {
				hops = -hops
			}
			items = append(items, pricing.PriceListItem{
				PriceListID:   list.ID,
				FromStationID: from,
				ToStationID:   to,
				Price:         float64(15 * hops),
				Currency:      "RON",
			})
		}
	}
	if err := tx.Create(&items).Error; err != nil {
		return 0, fmt.Errorf("failed to create price list items: %w", err)
	}

	discounts := []pricing.DiscountType{
		{ID: 1, Code: "STUDENT", Label: "Student 50%", Value: 50, Kind: pricing.DiscountPercent},
		{ID: 2, Code: "SENIOR", Label: "Senior 5 RON off", Value: 5, Kind: pricing.DiscountFixed},
	}
	if err := tx.Create(&discounts).Error; err != nil {
		return 0, fmt.Errorf("failed to create discount types: %w", err)
	}

	fmt.Printf("    ✅ Created price list %d with %d items\n", list.ID, len(items))
	return list.ID, nil
}

// SeedReservations books seat 1 from A to C (paid) and a cancelled
// reservation on seat 2, so the trip view has something to show
func (s *Seeder) SeedReservations(tx *gorm.DB, stationIDs []int64, priceListID int64) error {
	fmt.Println("  🎫 Seeding reservations...")

	phone := "+40700000001"
	people := []reservations.Person{
		{ID: 1, Name: "Ana Pop", Phone: &phone},
		{ID: 2, Name: "Dan Ionescu"},
	}
	if err := tx.Create(&people).Error; err != nil {
		return fmt.Errorf("failed to create people: %w", err)
	}

	now := time.Now().UTC()
	seat1, seat2 := int64(1), int64(2)
	person1, person2 := people[0].ID, people[1].ID
	a, c, d := stationIDs[0], stationIDs[2], stationIDs[3]

	paid := reservations.Reservation{
		TripID: 1, SeatID: &seat1, PersonID: &person1,
		BoardStationID: &a, ExitStationID: &c,
		Status: reservations.StatusActive, Version: 1, ReservationTime: now,
	}
	cancelled := reservations.Reservation{
		TripID: 1, SeatID: &seat2, PersonID: &person2,
		BoardStationID: &a, ExitStationID: &d,
		Status: reservations.StatusCancelled, Version: 2, ReservationTime: now,
	}
	for _, r := range []*reservations.Reservation{&paid, &cancelled} {
		if err := tx.Create(r).Error; err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}
	}

	snapshot := reservations.PricingSnapshot{
		ReservationID:     paid.ID,
		PriceValue:        30,
		PriceListID:       priceListID,
		PricingCategoryID: pricing.DefaultCategoryID,
		BookingChannel:    reservations.ChannelDriver,
	}
	if err := tx.Create(&snapshot).Error; err != nil {
		return fmt.Errorf("failed to create pricing snapshot: %w", err)
	}
	payment := reservations.Payment{
		ReservationID: paid.ID,
		Amount:        30,
		Currency:      "RON",
		Status:        reservations.PaymentPaid,
		Method:        "cash",
		Timestamp:     now,
	}
	if err := tx.Create(&payment).Error; err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}

	events := []reservations.Event{
		{ReservationID: paid.ID, Action: reservations.ActionCreate, Details: []byte(`{"source":"seed"}`)},
		{ReservationID: cancelled.ID, Action: reservations.ActionCreate, Details: []byte(`{"source":"seed"}`)},
		{ReservationID: cancelled.ID, Action: reservations.ActionCancel, Details: []byte(`{"source":"seed","reason":"cancel_from_driver"}`)},
	}
	if err := tx.Create(&events).Error; err != nil {
		return fmt.Errorf("failed to create audit events: %w", err)
	}

	fmt.Printf("    ✅ Created reservations %d (paid) and %d (cancelled)\n", paid.ID, cancelled.ID)
	return nil
}
