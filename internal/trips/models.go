package trips

import "time"

// Station is reference data replicated from the network catalog
type Station struct {
	ID        int64    `gorm:"primaryKey" json:"id"`
	Name      string   `gorm:"not null" json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

// Trip is a scheduled run of a route
type Trip struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	RouteID   int64     `gorm:"index;not null" json:"route_id"`
	VehicleID *int64    `json:"vehicle_id,omitempty"`
	Date      time.Time `gorm:"type:date;not null" json:"date"`
	Time      string    `gorm:"type:varchar(5)" json:"time"`
	Disabled  bool      `gorm:"not null;default:false" json:"disabled"`
}

// TripStation places a station at a fixed position in a trip's stop list
type TripStation struct {
	TripID    int64 `gorm:"primaryKey" json:"trip_id"`
	StationID int64 `gorm:"primaryKey" json:"station_id"`
	Sequence  int   `gorm:"not null" json:"sequence"`
}

func (Trip) TableName() string        { return "trips" }
func (Station) TableName() string     { return "stations" }
func (TripStation) TableName() string { return "trip_stations" }
