package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eventbooker/event-booker/internal/api/middleware"
	"github.com/eventbooker/event-booker/internal/core/domain"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, reg domain.Registration) (*domain.User, error)
	loginFn    func(ctx context.Context, email, password string) (string, *domain.User, error)
	getUserFn  func(ctx context.Context, id string) (*domain.User, error)
}

func (s *stubAuthService) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	return s.registerFn(ctx, reg)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getUserFn(ctx, id)
}

func (s *stubAuthService) UpdateProfile(context.Context, string, domain.ProfileUpdate) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) ChangeRole(context.Context, string, domain.Role) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

func (s *stubAuthService) SetActive(context.Context, string, bool) (*domain.User, error) {
	return nil, errors.New("not implemented")
}

var testCookie = CookieConfig{Name: "authToken", MaxAge: time.Hour}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, reg domain.Registration) (*domain.User, error) {
			if reg.Username != "alice" || reg.Email != "a@example.com" || reg.FirstName != "Alice" {
				t.Fatalf("unexpected registration: %+v", reg)
			}
			return &domain.User{ID: "u-1", Username: reg.Username, Role: reg.Role, PasswordHash: "secret-hash"}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/register",
		`{"username":"alice","password":"pass123","email":"a@example.com","firstName":"Alice","lastName":"L"}`)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := handler.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "secret-hash") {
		t.Fatal("password hash must never be serialized")
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("expected user in response")
	}
	if user["username"] != "alice" || user["role"] != "user" {
		t.Fatalf("unexpected user payload: %+v", user)
	}
}

func TestAuthHandler_Register_IgnoresRequestedRole(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(_ context.Context, reg domain.Registration) (*domain.User, error) {
			if reg.Role != domain.RoleUser {
				t.Fatalf("public registration must not grant %q", reg.Role)
			}
			return &domain.User{ID: "u-1", Username: reg.Username, Role: reg.Role}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/register", `{"username":"mallory","role":"admin"}`)
	if err := handler.Register(e.NewContext(req, httptest.NewRecorder())); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, domain.Registration) (*domain.User, error) {
			return nil, domain.ErrUserExists
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/register", `{"username":"bob"}`)
	err := handler.Register(e.NewContext(req, httptest.NewRecorder()))
	if !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Register_InvalidPayload(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, domain.Registration) (*domain.User, error) {
			t.Fatalf("should not be called")
			return nil, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/register", "not-json")
	err := handler.Register(e.NewContext(req, httptest.NewRecorder()))

	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 HTTPError, got %v", err)
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, password string) (string, *domain.User, error) {
			if email != "alice@example.com" || password != "pass123" {
				t.Fatalf("unexpected args: %s %s", email, password)
			}
			return "token123", &domain.User{ID: "u-1", Username: "alice", Role: domain.RoleAdmin}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"pass123"}`)
	rec := httptest.NewRecorder()
	if err := handler.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp authResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Token != "token123" || resp.User == nil || resp.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected response: %+v", resp)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("expected one cookie, got %d", len(cookies))
	}
	ck := cookies[0]
	if ck.Name != "authToken" || ck.Value != "token123" || !ck.HttpOnly || ck.SameSite != http.SameSiteStrictMode {
		t.Fatalf("unexpected cookie: %+v", ck)
	}
	if ck.MaxAge != int(time.Hour.Seconds()) {
		t.Fatalf("cookie MaxAge = %d, want %d", ck.MaxAge, int(time.Hour.Seconds()))
	}
}

func TestAuthHandler_Login_MissingFields(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			t.Fatalf("should not be called")
			return "", nil, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/login", `{"email":""}`)
	err := handler.Login(e.NewContext(req, httptest.NewRecorder()))

	var ve *domain.ValidationError
	if !errors.As(err, &ve) || len(ve.Violations) != 2 {
		t.Fatalf("expected two violations, got %v", err)
	}
}

func TestAuthHandler_Login_InvalidCredentials(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (string, *domain.User, error) {
			return "", nil, domain.ErrInvalidCredentials
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	req := jsonRequest(http.MethodPost, "/api/auth/login", `{"email":"alice@example.com","password":"nope-nope"}`)
	rec := httptest.NewRecorder()
	err := handler.Login(e.NewContext(req, rec))

	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("failed login must not set a cookie")
	}
}

func TestAuthHandler_Logout_ClearsCookie(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{}, testCookie)

	rec := httptest.NewRecorder()
	if err := handler.Logout(e.NewContext(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), rec)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "" || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected an expired cookie, got %+v", cookies)
	}
}

func TestAuthHandler_Me(t *testing.T) {
	e := newEcho()
	stub := &stubAuthService{
		getUserFn: func(_ context.Context, id string) (*domain.User, error) {
			return &domain.User{ID: id, Username: "alice", Role: domain.RoleUser}, nil
		},
	}
	handler := NewAuthHandler(stub, testCookie)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), rec)
	middleware.SetIdentity(c, domain.Identity{ID: "u-1", Role: domain.RoleUser})

	if err := handler.Me(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"id":"u-1"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestAuthHandler_Me_WithoutIdentity(t *testing.T) {
	e := newEcho()
	handler := NewAuthHandler(&stubAuthService{}, testCookie)

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), httptest.NewRecorder())
	if err := handler.Me(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}
