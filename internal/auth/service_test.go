package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"seatline/internal/shared/apperror"
	"seatline/internal/shared/config"
	"seatline/internal/shared/middleware"
	"seatline/pkg/clock"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type memoryRepo struct {
	mu        sync.Mutex
	employees map[int64]*Employee
}

func (m *memoryRepo) GetByEmail(_ context.Context, email string) (*Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.employees {
		if e.Email == email {
			cp := *e
			return &cp, nil
		}
	}
	return nil, ErrEmployeeNotFound
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (*Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memoryRepo) UpdatePassword(_ context.Context, id int64, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return ErrEmployeeNotFound
	}
	e.PasswordHash = hash
	return nil
}

var testJWT = config.JWTConfig{
	Secret:     "test-secret-0123456789",
	Issuer:     "seatline-test",
	AccessTTL:  time.Hour,
	RefreshTTL: 24 * time.Hour,
}

func hash(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

func newTestService(t *testing.T) (Service, *memoryRepo) {
	t.Helper()
	repo := &memoryRepo{employees: map[int64]*Employee{
		7: {ID: 7, Name: "Ion Driver", Email: "driver@seatline.test", PasswordHash: hash(t, "secret123"), Role: middleware.RoleDriver, Active: true},
		8: {ID: 8, Name: "Gone", Email: "gone@seatline.test", PasswordHash: hash(t, "secret123"), Role: middleware.RoleDriver, Active: false},
	}}
	return NewService(repo, testJWT, clock.NewFake(time.Now())), repo
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, &LoginRequest{Email: "driver@seatline.test", Password: "secret123", DeviceID: "tab-3"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Employee.ID != 7 || resp.ExpiresIn != 3600 {
		t.Fatalf("unexpected response %+v", resp)
	}
	claims, err := svc.ValidateToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.EmployeeID != 7 || claims.Role != "driver" || claims.DeviceID != "tab-3" || claims.Type != TokenAccess || claims.Issuer != "seatline-test" {
		t.Fatalf("claims = %+v", claims)
	}

	for name, req := range map[string]LoginRequest{
		"wrong password": {Email: "driver@seatline.test", Password: "nope-nope"},
		"unknown email":  {Email: "who@seatline.test", Password: "secret123"},
		"inactive":       {Email: "gone@seatline.test", Password: "secret123"},
	} {
		if _, err := svc.Login(ctx, &req); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: err = %v, want invalid credentials", name, err)
		}
	}
	if apperror.StatusCode(ErrInvalidCredentials) != http.StatusUnauthorized {
		t.Fatal("invalid credentials should map to 401")
	}
}

func TestRefreshToken(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()
	resp, err := svc.Login(ctx, &LoginRequest{Email: "driver@seatline.test", Password: "secret123", DeviceID: "tab-3"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if _, err := svc.RefreshToken(ctx, resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token accepted as refresh token: %v", err)
	}
	pair, err := svc.RefreshToken(ctx, resp.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	claims, _ := svc.ValidateToken(pair.AccessToken)
	if claims.DeviceID != "tab-3" {
		t.Fatalf("device binding lost: %+v", claims)
	}

	repo.employees[7].Active = false
	if _, err := svc.RefreshToken(ctx, resp.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("deactivated employee refreshed: %v", err)
	}
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc, _ := newTestService(t)
	resp, _ := svc.Login(context.Background(), &LoginRequest{Email: "driver@seatline.test", Password: "secret123"})

	other := testJWT
	other.Secret = "another-secret-0123456789"
	foreign := NewService(&memoryRepo{}, other, nil)
	if _, err := foreign.ValidateToken(resp.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("token signed with another secret accepted: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, 7, &ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "brand-new-pw"})
	if !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("wrong current password: %v", err)
	}
	if err := svc.ChangePassword(ctx, 7, &ChangePasswordRequest{CurrentPassword: "secret123", NewPassword: "brand-new-pw"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := svc.Login(ctx, &LoginRequest{Email: "driver@seatline.test", Password: "brand-new-pw"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestLoginTokenPassesRequestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _ := newTestService(t)
	cfg := &config.Config{JWT: testJWT}

	engine := gin.New()
	SetupAuthRoutes(engine.Group("/api/v1"), NewController(svc), middleware.JWTAuthWithConfig(cfg))

	body, _ := json.Marshal(LoginRequest{Email: "driver@seatline.test", Password: "secret123", DeviceID: "tab-3"})
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body)))
	if w.Code != http.StatusOK {
		t.Fatalf("login status %d: %s", w.Code, w.Body.String())
	}
	var login struct {
		Data AuthResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+login.Data.AccessToken)
	w = httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("me status %d: %s", w.Code, w.Body.String())
	}
	var me struct {
		Data EmployeeResponse `json:"data"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &me)
	if me.Data.ID != 7 || me.Data.Email != "driver@seatline.test" {
		t.Fatalf("me = %+v", me.Data)
	}

	w = httptest.NewRecorder()
	bad, _ := json.Marshal(LoginRequest{Email: "driver@seatline.test", Password: "wrong-password"})
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(bad)))
	if w.Code != http.StatusUnauthorized || !bytes.Contains(w.Body.Bytes(), []byte(`"invalid_credentials"`)) {
		t.Fatalf("bad login = %d %s", w.Code, w.Body.String())
	}
}
