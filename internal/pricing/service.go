package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/constants"
	"seatline/pkg/cache"

	"gorm.io/gorm"
)

type Service interface {
	// Quote resolves the fare for a segment using the price list in force on date
	Quote(ctx context.Context, req QuoteRequest) (*Quote, error)
	// ItemPrice returns the fare of a segment on a specific list, or nil if the list has none
	ItemPrice(ctx context.Context, priceListID, fromStationID, toStationID int64) (*float64, error)
}

type QuoteRequest struct {
	RouteID       int64
	CategoryID    int64
	FromStationID int64
	ToStationID   int64
	Date          time.Time
}

type service struct {
	repo  Repository
	cache cache.Service
	ttl   time.Duration
}

func NewService(repo Repository, cacheService cache.Service, ttl time.Duration) Service {
	if cacheService == nil {
		cacheService = cache.Noop()
	}
	if ttl <= 0 {
		ttl = constants.TTL_PRICE_QUOTE
	}
	return &service{repo: repo, cache: cacheService, ttl: ttl}
}

func (s *service) Quote(ctx context.Context, req QuoteRequest) (*Quote, error) {
	if req.RouteID <= 0 || req.FromStationID <= 0 || req.ToStationID <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidRequest, "route_id, from and to must be positive identifiers")
	}
	if req.CategoryID <= 0 {
		req.CategoryID = DefaultCategoryID
	}
	if req.Date.IsZero() {
		req.Date = time.Now()
	}

	key := constants.BuildPriceQuoteKey(req.RouteID, req.CategoryID, req.FromStationID, req.ToStationID, req.Date)
	var quote Quote
	err := s.cache.GetOrSet(ctx, key, s.ttl, func() (interface{}, error) {
		return s.resolve(ctx, req)
	}, &quote)
	if err != nil {
		var appErr *apperror.Error
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, apperror.Internal("failed to resolve price", err)
	}
	return &quote, nil
}

func (s *service) resolve(ctx context.Context, req QuoteRequest) (*Quote, error) {
	lists, err := s.repo.ListsFor(ctx, req.RouteID, req.CategoryID, req.Date)
	if err != nil {
		return nil, err
	}
	current, ok := SelectCurrent(lists, req.Date)
	if !ok {
		return nil, apperror.NotFound(apperror.CodePriceNotFound, "no price list in force for route and category")
	}
	item, err := s.repo.FindItem(ctx, current.ID, req.FromStationID, req.ToStationID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, apperror.NotFound(apperror.CodePriceNotFound,
			fmt.Sprintf("price list %d has no fare from %d to %d", current.ID, req.FromStationID, req.ToStationID))
	}
	return &Quote{
		PriceListID:   current.ID,
		CategoryID:    req.CategoryID,
		FromStationID: req.FromStationID,
		ToStationID:   req.ToStationID,
		Price:         item.Price,
		Currency:      item.Currency,
		EffectiveFrom: current.EffectiveFrom,
	}, nil
}

func (s *service) ItemPrice(ctx context.Context, priceListID, fromStationID, toStationID int64) (*float64, error) {
	item, err := s.repo.FindItem(ctx, priceListID, fromStationID, toStationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	price := item.Price
	return &price, nil
}
