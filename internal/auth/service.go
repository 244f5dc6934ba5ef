package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/config"
	"seatline/pkg/clock"
	"seatline/pkg/logger"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = apperror.Unauthorized(apperror.CodeInvalidCredentials, "invalid email or password")
	ErrInvalidToken       = apperror.Unauthorized(apperror.CodeInvalidToken, "invalid or expired token")
	ErrWrongPassword      = apperror.Validation(apperror.CodeInvalidCredentials, "current password is incorrect")
)

type Service interface {
	Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
	ChangePassword(ctx context.Context, employeeID int64, req *ChangePasswordRequest) error
	Me(ctx context.Context, employeeID int64) (*EmployeeResponse, error)
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type service struct {
	repo   Repository
	config config.JWTConfig
	clock  clock.Clock
	log    *logger.Logger
}

func NewService(repo Repository, cfg config.JWTConfig, clk clock.Clock) Service {
	if clk == nil {
		clk = clock.Real()
	}
	return &service{
		repo:   repo,
		config: cfg,
		clock:  clk,
		log:    logger.GetDefault(),
	}
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	employee, err := s.repo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperror.Internal("failed to load employee", err)
	}
	if !employee.Active {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	tokenPair, err := s.generateTokenPair(employee, req.DeviceID)
	if err != nil {
		return nil, apperror.Internal("failed to sign tokens", err)
	}

	s.log.InfoContext(ctx, "employee signed in",
		"employee_id", employee.ID,
		"role", employee.Role,
		"device_id", req.DeviceID,
	)
	return &AuthResponse{
		Employee:     toEmployeeResponse(employee),
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresIn:    tokenPair.ExpiresIn,
	}, nil
}

// RefreshToken trades a refresh token for a new pair. The employee must
// still be active; the device binding carries over.
func (s *service) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != TokenRefresh {
		return nil, ErrInvalidToken
	}

	employee, err := s.repo.GetByID(ctx, claims.EmployeeID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, apperror.Internal("failed to load employee", err)
	}
	if !employee.Active {
		return nil, ErrInvalidToken
	}

	tokenPair, err := s.generateTokenPair(employee, claims.DeviceID)
	if err != nil {
		return nil, apperror.Internal("failed to sign tokens", err)
	}
	return tokenPair, nil
}

func (s *service) ChangePassword(ctx context.Context, employeeID int64, req *ChangePasswordRequest) error {
	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return ErrInvalidToken
		}
		return apperror.Internal("failed to load employee", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return apperror.Internal("failed to hash password", err)
	}
	if err := s.repo.UpdatePassword(ctx, employeeID, hash); err != nil {
		return apperror.Internal("failed to update password", err)
	}
	return nil
}

func (s *service) Me(ctx context.Context, employeeID int64) (*EmployeeResponse, error) {
	employee, err := s.repo.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, ErrEmployeeNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, apperror.Internal("failed to load employee", err)
	}
	resp := toEmployeeResponse(employee)
	return &resp, nil
}

func (s *service) ValidateToken(tokenString string) (*JWTClaims, error) {
	parser := jwt.Parser{}
	token, err := parser.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(s.config.Secret), nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

func (s *service) generateTokenPair(employee *Employee, deviceID string) (*TokenPair, error) {
	now := s.clock.Now()

	sign := func(tokenType string, ttl time.Duration) (string, error) {
		claims := JWTClaims{
			EmployeeID: employee.ID,
			Role:       employee.Role,
			DeviceID:   deviceID,
			Type:       tokenType,
			RegisteredClaims: jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
				Issuer:    s.config.Issuer,
				Subject:   strconv.FormatInt(employee.ID, 10),
			},
		}
		return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.Secret))
	}

	access, err := sign(TokenAccess, s.config.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := sign(TokenRefresh, s.config.RefreshTTL)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.config.AccessTTL.Seconds()),
	}, nil
}
