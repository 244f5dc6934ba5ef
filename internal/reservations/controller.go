package reservations

import (
	"errors"
	"io"
	"strconv"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/middleware"
	"seatline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	Board(c *gin.Context)
	MarkNoShow(c *gin.Context)
	Cancel(c *gin.Context)
	ListTripReservations(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// Board handles POST /api/v1/reservations/:id/board
func (ctrl *controller) Board(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	result, err := ctrl.service.Board(c.Request.Context(), id, middleware.ActorID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "Reservation boarded", result)
}

// MarkNoShow handles POST /api/v1/reservations/:id/no-show
func (ctrl *controller) MarkNoShow(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	result, err := ctrl.service.MarkNoShow(c.Request.Context(), id, middleware.ActorID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	message := "Reservation marked as no-show"
	if !result.Changed {
		message = "Reservation was already marked as no-show"
	}
	response.RespondOK(c, message, result)
}

// Cancel handles POST /api/v1/reservations/:id/cancel. The body is optional.
func (ctrl *controller) Cancel(c *gin.Context) {
	id, ok := reservationID(c)
	if !ok {
		return
	}
	var req CancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, err.Error()))
		return
	}
	result, err := ctrl.service.Cancel(c.Request.Context(), id, middleware.ActorID(c), req)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	message := "Reservation cancelled"
	if !result.Changed {
		message = "Reservation was already cancelled"
	}
	response.RespondOK(c, message, result)
}

// ListTripReservations handles GET /api/v1/trips/:tripId/reservations
func (ctrl *controller) ListTripReservations(c *gin.Context) {
	tripID, err := strconv.ParseInt(c.Param("tripId"), 10, 64)
	if err != nil || tripID <= 0 {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidTripID, "trip_id must be a positive integer"))
		return
	}
	views, err := ctrl.service.ListTripReservations(c.Request.Context(), tripID)
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "Trip reservations retrieved", TripReservationsResponse{
		TripID:       tripID,
		Count:        len(views),
		Reservations: views,
	})
}

func reservationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidReservationID, "reservation id must be a positive integer"))
		return 0, false
	}
	return id, true
}
