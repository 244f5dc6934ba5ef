package reservations

import "github.com/gin-gonic/gin"

func SetupReservationRoutes(router *gin.RouterGroup, controller Controller, guards ...gin.HandlerFunc) {
	reservations := router.Group("/reservations")
	reservations.Use(guards...)
	{
		reservations.POST("/:id/board", controller.Board)        // POST /api/v1/reservations/:id/board
		reservations.POST("/:id/no-show", controller.MarkNoShow) // POST /api/v1/reservations/:id/no-show
		reservations.POST("/:id/cancel", controller.Cancel)      // POST /api/v1/reservations/:id/cancel
	}

	trips := router.Group("/trips")
	trips.Use(guards...)
	{
		trips.GET("/:tripId/reservations", controller.ListTripReservations) // GET /api/v1/trips/:tripId/reservations
	}
}
