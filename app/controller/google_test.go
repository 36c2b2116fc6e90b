package controller_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Niklas-dev/go-auth-service/app/controller"
	"github.com/Niklas-dev/go-auth-service/app/entity"
	"github.com/Niklas-dev/go-auth-service/app/service"

	"github.com/labstack/echo/v4"
)

type stubGoogleService struct {
	exchangeUser *service.GoogleUser
	exchangeErr  error
	resolveUser  *entity.User
	resolveErr   error
}

func (s *stubGoogleService) AuthCodeURL(state string) string {
	return "https://accounts.google.com/o/oauth2/auth?state=" + url.QueryEscape(state)
}

func (s *stubGoogleService) Exchange(_ context.Context, code string) (*service.GoogleUser, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return s.exchangeUser, nil
}

func (s *stubGoogleService) ResolveUser(_ context.Context, _ *service.GoogleUser) (*entity.User, error) {
	if s.resolveErr != nil {
		return nil, s.resolveErr
	}
	return s.resolveUser, nil
}

func newGoogleController(t *testing.T, stub *stubGoogleService) (*controller.GoogleController, func()) {
	t.Helper()

	authService := service.NewAuthService(nil, testConfig())
	return controller.NewGoogleController(stub, authService, testConfig()), func() {}
}

func TestGoogleLoginRedirects(t *testing.T) {
	googleController, cleanup := newGoogleController(t, &stubGoogleService{})
	defer cleanup()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := googleController.Login(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://accounts.google.com/") {
		t.Errorf("unexpected redirect target: %s", location)
	}

	var stateCookie *http.Cookie
	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == "oauth_state" {
			stateCookie = cookie
		}
	}
	if stateCookie == nil {
		t.Fatal("expected an oauth_state cookie")
	}
	if !stateCookie.HttpOnly {
		t.Error("state cookie must be http-only")
	}
	if stateCookie.MaxAge <= 0 {
		t.Error("state cookie must be short-lived, not a session cookie")
	}

	// The redirect carries the bare state the cookie signs.
	redirectURL, err := url.Parse(location)
	if err != nil {
		t.Fatalf("failed to parse redirect: %v", err)
	}
	state := redirectURL.Query().Get("state")
	if state == "" || !strings.HasPrefix(stateCookie.Value, state+".") {
		t.Errorf("cookie %q does not sign redirect state %q", stateCookie.Value, state)
	}
}

func callbackContext(t *testing.T, cookieValue, state, code string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	target := "/auth/callback/google?state=" + url.QueryEscape(state) + "&code=" + url.QueryEscape(code)
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if cookieValue != "" {
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: cookieValue})
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestGoogleCallback(t *testing.T) {
	stub := &stubGoogleService{
		exchangeUser: &service.GoogleUser{Sub: "g-123", Email: "a@b.com"},
		resolveUser:  &entity.User{ID: 7, Username: "a@b.com"},
	}
	googleController, cleanup := newGoogleController(t, stub)
	defer cleanup()

	state, signed := service.NewStateSigner("test-session-secret").Generate()
	c, rec := callbackContext(t, signed, state, "auth-code")

	if err := googleController.Callback(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d: %s", rec.Code, rec.Body.String())
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "http://localhost:3000/auth?") {
		t.Fatalf("unexpected redirect target: %s", location)
	}

	redirectURL, err := url.Parse(location)
	if err != nil {
		t.Fatalf("failed to parse redirect: %v", err)
	}
	query := redirectURL.Query()
	if query.Get("access_token") == "" || query.Get("refresh_token") == "" {
		t.Errorf("redirect missing tokens: %s", location)
	}
}

func TestGoogleCallbackMissingStateCookie(t *testing.T) {
	googleController, cleanup := newGoogleController(t, &stubGoogleService{})
	defer cleanup()

	c, rec := callbackContext(t, "", "some-state", "auth-code")

	if err := googleController.Callback(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestGoogleCallbackMismatchedState(t *testing.T) {
	googleController, cleanup := newGoogleController(t, &stubGoogleService{})
	defer cleanup()

	_, signed := service.NewStateSigner("test-session-secret").Generate()
	c, rec := callbackContext(t, signed, "forged-state", "auth-code")

	if err := googleController.Callback(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestGoogleCallbackExchangeFailure(t *testing.T) {
	stub := &stubGoogleService{exchangeErr: service.ErrOAuthExchange}
	googleController, cleanup := newGoogleController(t, stub)
	defer cleanup()

	state, signed := service.NewStateSigner("test-session-secret").Generate()
	c, rec := callbackContext(t, signed, state, "bad-code")

	if err := googleController.Callback(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

// An email collision with an existing password account is not auto-linked;
// the unique index rejects the insert and the callback fails.
func TestGoogleCallbackResolveFailure(t *testing.T) {
	stub := &stubGoogleService{
		exchangeUser: &service.GoogleUser{Sub: "g-123", Email: "a@b.com"},
		resolveErr:   errors.New("Error 1062: Duplicate entry 'a@b.com' for key 'uq_users_email'"),
	}
	googleController, cleanup := newGoogleController(t, stub)
	defer cleanup()

	state, signed := service.NewStateSigner("test-session-secret").Generate()
	c, rec := callbackContext(t, signed, state, "auth-code")

	if err := googleController.Callback(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}
