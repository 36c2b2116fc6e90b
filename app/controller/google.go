package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	dto "github.com/Niklas-dev/go-auth-service/app/dto/http"
	"github.com/Niklas-dev/go-auth-service/app/entity"
	"github.com/Niklas-dev/go-auth-service/app/service"
	"github.com/Niklas-dev/go-auth-service/config"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

const stateCookieName = "oauth_state"

// The handshake session outlives a single redirect round-trip, nothing more.
const stateCookieMaxAge = 10 * time.Minute

type googleFederator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*service.GoogleUser, error)
	ResolveUser(ctx context.Context, googleUser *service.GoogleUser) (*entity.User, error)
}

type GoogleController struct {
	googleService googleFederator
	authService   *service.AuthService
	stateSigner   *service.StateSigner
	frontendURL   string
}

func NewGoogleController(googleService googleFederator, authService *service.AuthService, cfg *config.Config) *GoogleController {
	return &GoogleController{
		googleService: googleService,
		authService:   authService,
		stateSigner:   service.NewStateSigner(cfg.SessionSecret),
		frontendURL:   cfg.FrontendURL,
	}
}

func (c *GoogleController) Login(ctx echo.Context) error {
	state, signed := c.stateSigner.Generate()

	ctx.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    signed,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return ctx.Redirect(http.StatusFound, c.googleService.AuthCodeURL(state))
}

func (c *GoogleController) Callback(ctx echo.Context) error {
	cookie, err := ctx.Cookie(stateCookieName)
	if err != nil || !c.stateSigner.Verify(cookie.Value, ctx.QueryParam("state")) {
		logrus.Warn("Google callback with missing or mismatched state")
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "could not validate credentials"})
	}

	// The state cookie is single-use.
	ctx.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	code := ctx.QueryParam("code")
	if code == "" {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "could not validate credentials"})
	}

	googleUser, err := c.googleService.Exchange(ctx.Request().Context(), code)
	if err != nil {
		if errors.Is(err, service.ErrOAuthExchange) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "could not validate credentials"})
		}
		logrus.WithError(err).Error("Google code exchange failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	user, err := c.googleService.ResolveUser(ctx.Request().Context(), googleUser)
	if err != nil {
		logrus.WithError(err).WithField("email", googleUser.Email).Error("Failed to resolve Google user")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	pair, err := c.authService.IssueTokenPair(user)
	if err != nil {
		logrus.WithError(err).WithField("user_id", user.ID).Error("Failed to issue tokens after Google login")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	redirect := fmt.Sprintf("%s/auth?access_token=%s&refresh_token=%s",
		c.frontendURL,
		url.QueryEscape(pair.AccessToken),
		url.QueryEscape(pair.RefreshToken),
	)
	return ctx.Redirect(http.StatusFound, redirect)
}
