package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// Employee is a driver, ticket agent or administrator allowed to sign in
type Employee struct {
	ID           int64     `gorm:"primaryKey" json:"id"`
	OperatorID   *int64    `json:"operator_id,omitempty"`
	Name         string    `gorm:"not null" json:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"column:password_hash;not null" json:"-"`
	Role         string    `gorm:"type:varchar(16);not null;check:role IN ('driver','agent','admin')" json:"role"`
	Active       bool      `gorm:"not null;default:true" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Employee) TableName() string { return "employees" }

// Token types carried in the "type" claim
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

// JWTClaims are the claims of employee tokens. The request middleware
// reads employee_id, role and device_id from access tokens.
type JWTClaims struct {
	EmployeeID int64  `json:"employee_id"`
	Role       string `json:"role"`
	DeviceID   string `json:"device_id,omitempty"`
	Type       string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}
