package tickets

import "github.com/gin-gonic/gin"

func SetupTicketRoutes(router *gin.RouterGroup, controller Controller, guards ...gin.HandlerFunc) {
	tickets := router.Group("/tickets")
	tickets.Use(guards...)
	{
		tickets.POST("", controller.CreateTicket)      // POST /api/v1/tickets
		tickets.POST("/batch", controller.SubmitBatch) // POST /api/v1/tickets/batch
	}
}
