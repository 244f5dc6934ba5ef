package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListsFor(ctx context.Context, routeID, categoryID int64, onOrBefore time.Time) ([]PriceList, error)
	GetPriceList(ctx context.Context, id int64) (*PriceList, error)
	FindItem(ctx context.Context, priceListID, fromStationID, toStationID int64) (*PriceListItem, error)
	GetDiscountType(ctx context.Context, id int64) (*DiscountType, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) ListsFor(ctx context.Context, routeID, categoryID int64, onOrBefore time.Time) ([]PriceList, error) {
	var lists []PriceList
	err := r.db.WithContext(ctx).
		Where("route_id = ? AND category_id = ? AND effective_from <= ?", routeID, categoryID, onOrBefore).
		Order("effective_from DESC, version DESC, id DESC").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list price lists: %w", err)
	}
	return lists, nil
}

func (r *repository) GetPriceList(ctx context.Context, id int64) (*PriceList, error) {
	var pl PriceList
	if err := r.db.WithContext(ctx).First(&pl, id).Error; err != nil {
		return nil, err
	}
	return &pl, nil
}

// FindItem returns nil, nil when the list has no fare for the segment
func (r *repository) FindItem(ctx context.Context, priceListID, fromStationID, toStationID int64) (*PriceListItem, error) {
	var item PriceListItem
	err := r.db.WithContext(ctx).
		Where("price_list_id = ? AND from_station_id = ? AND to_station_id = ?", priceListID, fromStationID, toStationID).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find price list item: %w", err)
	}
	return &item, nil
}

func (r *repository) GetDiscountType(ctx context.Context, id int64) (*DiscountType, error) {
	var dt DiscountType
	if err := r.db.WithContext(ctx).First(&dt, id).Error; err != nil {
		return nil, err
	}
	return &dt, nil
}
