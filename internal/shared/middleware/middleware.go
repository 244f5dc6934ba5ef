package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"seatline/internal/shared/config"
	"seatline/internal/shared/utils/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Context keys set by the middleware in this package
const (
	ContextActorID   = "actor_id"
	ContextActorRole = "actor_role"
	ContextDeviceID  = "device_id"
	ContextRequestID = "request_id"
)

// Roles allowed to operate on reservations
const (
	RoleDriver = "driver"
	RoleAgent  = "agent"
	RoleAdmin  = "admin"
)

// JWTAuthWithConfig verifies an HS256 access token and stores the employee
// id and role of the caller.
func JWTAuthWithConfig(cfg *config.Config) gin.HandlerFunc {
	secret := []byte(cfg.JWT.Secret)
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "Authorization header is required", nil, nil)
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "authorization header format must be Bearer {token}", nil, nil)
			c.Abort()
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid or expired token", nil, nil)
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token claims", nil, nil)
			c.Abort()
			return
		}
		if tokenType, ok := claims["type"]; !ok || tokenType != "access" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "invalid token type", nil, nil)
			c.Abort()
			return
		}

		actorID, err := employeeID(claims["employee_id"])
		if err != nil {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "token has no employee_id", nil, nil)
			c.Abort()
			return
		}

		c.Set(ContextActorID, actorID)
		if role, ok := claims["role"].(string); ok {
			c.Set(ContextActorRole, role)
		}
		if device, ok := claims["device_id"].(string); ok && device != "" {
			c.Set(ContextDeviceID, device)
		}
		c.Next()
	}
}

// JSON numbers decode as float64; string ids are accepted too
func employeeID(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case float64:
		if v <= 0 || v != float64(int64(v)) {
			return 0, fmt.Errorf("invalid employee id %v", v)
		}
		return int64(v), nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid employee id %q", v)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("missing employee id")
	}
}

// RequireRoles middleware checks if the caller has any of the required roles
func RequireRoles(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextActorRole)
		if role == "" {
			response.RespondJSON(c, "error", http.StatusUnauthorized, "role not found in context", nil, nil)
			c.Abort()
			return
		}

		for _, required := range requiredRoles {
			if role == required {
				c.Next()
				return
			}
		}

		response.RespondJSON(c, "error", http.StatusForbidden, "Insufficient permissions", nil, nil)
		c.Abort()
	}
}

// RequestID propagates X-Request-ID or assigns a new one
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// ActorID returns the authenticated employee id, or 0 when unauthenticated
func ActorID(c *gin.Context) int64 {
	return c.GetInt64(ContextActorID)
}
