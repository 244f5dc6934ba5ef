package pricing

import "time"

// DefaultCategoryID is the built-in "Normal" pricing category
const DefaultCategoryID int64 = 1

// PricingCategory groups passengers sharing a fare (Normal, Student, ...)
type PricingCategory struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;uniqueIndex" json:"name"`
}

// PriceList is a versioned fare table for a route and category
type PriceList struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	RouteID       int64     `gorm:"index:idx_price_lists_route_category,priority:1;not null" json:"route_id"`
	CategoryID    int64     `gorm:"index:idx_price_lists_route_category,priority:2;not null" json:"category_id"`
	Name          string    `json:"name"`
	Version       int       `gorm:"not null;default:1" json:"version"`
	EffectiveFrom time.Time `gorm:"type:date;not null" json:"effective_from"`
}

// PriceListItem is the fare between two stations of a price list
type PriceListItem struct {
	ID            int64   `gorm:"primaryKey" json:"id"`
	PriceListID   int64   `gorm:"uniqueIndex:idx_price_list_items_segment,priority:1;not null" json:"price_list_id"`
	FromStationID int64   `gorm:"uniqueIndex:idx_price_list_items_segment,priority:2;not null" json:"from_station_id"`
	ToStationID   int64   `gorm:"uniqueIndex:idx_price_list_items_segment,priority:3;not null" json:"to_station_id"`
	Price         float64 `gorm:"not null" json:"price"`
	Currency      string  `gorm:"type:varchar(3);not null;default:'RON'" json:"currency"`
}

// DiscountKind tells how a discount value is applied
type DiscountKind string

const (
	DiscountPercent DiscountKind = "percent"
	DiscountFixed   DiscountKind = "fixed"
)

// DiscountType is a named discount rule
type DiscountType struct {
	ID    int64        `gorm:"primaryKey" json:"id"`
	Code  string       `gorm:"uniqueIndex;not null" json:"code"`
	Label string       `gorm:"not null" json:"label"`
	Value float64      `gorm:"not null" json:"value"`
	Kind  DiscountKind `gorm:"column:type;type:varchar(16);not null;default:'percent'" json:"type"`
}

func (PricingCategory) TableName() string { return "pricing_categories" }
func (PriceList) TableName() string       { return "price_lists" }
func (PriceListItem) TableName() string   { return "price_list_items" }
func (DiscountType) TableName() string    { return "discount_types" }

// Quote is the resolved fare for a segment
type Quote struct {
	PriceListID   int64     `json:"price_list_id"`
	CategoryID    int64     `json:"category_id"`
	FromStationID int64     `json:"from_station_id"`
	ToStationID   int64     `json:"to_station_id"`
	Price         float64   `json:"price"`
	Currency      string    `json:"currency"`
	EffectiveFrom time.Time `json:"effective_from"`
}
