package pricing

import "github.com/gin-gonic/gin"

func SetupPricingRoutes(router *gin.RouterGroup, controller Controller, guards ...gin.HandlerFunc) {
	pricing := router.Group("/pricing")
	pricing.Use(guards...)
	{
		pricing.GET("/quote", controller.GetQuote) // GET /api/v1/pricing/quote?route_id&category_id&from&to&date
	}
}
