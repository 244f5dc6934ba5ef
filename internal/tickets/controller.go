package tickets

import (
	"net/http"
	"strings"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/middleware"
	"seatline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
)

type Controller interface {
	CreateTicket(c *gin.Context)
	SubmitBatch(c *gin.Context)
}

type controller struct {
	service Service
}

func NewController(service Service) Controller {
	return &controller{service: service}
}

// CreateTicket handles POST /api/v1/tickets
func (ctrl *controller) CreateTicket(c *gin.Context) {
	var req TicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, err.Error()))
		return
	}

	in := req.Input()
	deviceID := deviceOf(c, "")
	if local := req.LocalKey(); deviceID != "" && local != "" && in.TripID != nil {
		in.IdempotencyKey = IdempotencyKey(deviceID, "", local, *in.TripID)
		in.DeviceID = deviceID
		in.LocalID = local
	}

	result, err := ctrl.service.CreateTicket(c.Request.Context(), in, middleware.ActorID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	if result.Replayed {
		response.RespondOK(c, "Ticket already recorded", result)
		return
	}
	response.RespondJSON(c, "success", http.StatusCreated, "Ticket created", result, nil)
}

// SubmitBatch handles POST /api/v1/tickets/batch. Item failures are reported
// per item with HTTP 200.
func (ctrl *controller) SubmitBatch(c *gin.Context) {
	var req BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, apperror.Validation(apperror.CodeInvalidRequest, err.Error()))
		return
	}

	result, err := ctrl.service.SubmitBatch(c.Request.Context(), deviceOf(c, req.DeviceID), strings.TrimSpace(req.InstallID), req.Tickets, middleware.ActorID(c))
	if err != nil {
		response.RespondError(c, err)
		return
	}
	response.RespondOK(c, "Batch processed", result)
}

// deviceOf prefers the device bound to the token over the one in the body
func deviceOf(c *gin.Context, fromBody string) string {
	if id := c.GetString(middleware.ContextDeviceID); id != "" {
		return id
	}
	if id := strings.TrimSpace(c.GetHeader("X-Device-ID")); id != "" {
		return id
	}
	return strings.TrimSpace(fromBody)
}
