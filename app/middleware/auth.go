package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/Niklas-dev/go-auth-service/app/entity"
	"github.com/Niklas-dev/go-auth-service/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type currentUserResolver interface {
	CurrentUser(ctx context.Context, tokenString string) (*entity.User, error)
}

type AuthMiddleware struct {
	authService currentUserResolver
}

func NewAuthMiddleware(authService currentUserResolver) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireAuth validates the bearer token, resolves the stored user record
// and injects it into the request context.
func (m *AuthMiddleware) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			logrus.Debug("Missing authorization header")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "missing authorization header",
			})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logrus.Debug("Invalid authorization header format")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid authorization header format",
			})
		}

		user, err := m.authService.CurrentUser(c.Request().Context(), parts[1])
		if err != nil {
			if !errors.Is(err, service.ErrInvalidToken) {
				logrus.WithError(err).Error("Failed to resolve current user")
				return c.JSON(http.StatusInternalServerError, map[string]string{
					"error": "internal server error",
				})
			}
			logrus.Debug("Invalid or expired access token")
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "could not validate user",
			})
		}

		c.Set("user", user)

		return next(c)
	}
}
