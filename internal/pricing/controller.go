package pricing

import (
	"time"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	GetQuote(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

type quoteQuery struct {
	RouteID    int64  `form:"route_id" binding:"required,gt=0"`
	CategoryID int64  `form:"category_id" binding:"omitempty,gt=0"`
	From       int64  `form:"from" binding:"required,gt=0"`
	To         int64  `form:"to" binding:"required,gt=0,nefield=From"`
	Date       string `form:"date" binding:"omitempty,datetime=2006-01-02"`
}

func (ctrl *controller) GetQuote(c *gin.Context) {
	var q quoteQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, "invalid query parameters: "+err.Error()))
		return
	}

	date := time.Now()
	if q.Date != "" {
		date, _ = time.Parse("2006-01-02", q.Date)
	}

	quote, err := ctrl.service.Quote(c.Request.Context(), QuoteRequest{
		RouteID:       q.RouteID,
		CategoryID:    q.CategoryID,
		FromStationID: q.From,
		ToStationID:   q.To,
		Date:          date,
	})
	if err != nil {
		response.RespondError(c, err)
		return
	}

	response.RespondOK(c, "Price resolved", quote)
}
