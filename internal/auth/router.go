package auth

import "github.com/gin-gonic/gin"

// SetupAuthRoutes registers login and token routes. authGuard protects the
// routes that act on the signed-in employee.
func SetupAuthRoutes(router *gin.RouterGroup, controller Controller, authGuard gin.HandlerFunc) {
	auth := router.Group("/auth")
	{
		auth.POST("/login", controller.Login)
		auth.POST("/refresh", controller.RefreshToken)

		protected := auth.Group("")
		protected.Use(authGuard)
		{
			protected.PUT("/change-password", controller.ChangePassword)
			protected.GET("/me", controller.GetMe)
		}
	}
}
