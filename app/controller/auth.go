package controller

import (
	"errors"
	"net/http"

	dto "github.com/Niklas-dev/go-auth-service/app/dto/http"
	"github.com/Niklas-dev/go-auth-service/app/entity"
	"github.com/Niklas-dev/go-auth-service/app/repository"
	"github.com/Niklas-dev/go-auth-service/app/service"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{authService: authService}
}

func (c *AuthController) CreateUser(ctx echo.Context) error {
	var req dto.CreateUserRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Username == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "username and password are required"})
	}

	user, err := c.authService.Register(ctx.Request().Context(), req.Username, req.Password)
	if err != nil {
		// Uniqueness is enforced only by the store; a duplicate is not a
		// handled domain error here.
		if repository.IsDuplicateEntry(err) {
			logrus.WithField("username", req.Username).Warn("Register hit a unique-key conflict")
		} else {
			logrus.WithError(err).WithField("username", req.Username).Error("Register failed")
		}
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	logrus.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	return ctx.JSON(http.StatusCreated, req)
}

func (c *AuthController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.Username == "" || req.Password == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "username and password are required"})
	}

	pair, err := c.authService.Login(ctx.Request().Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			logrus.WithField("username", req.Username).Warn("Login failed: invalid credentials")
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "could not validate user"})
		}
		logrus.WithError(err).WithField("username", req.Username).Error("Login failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

func (c *AuthController) Refresh(ctx echo.Context) error {
	var req dto.RefreshTokenRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}

	if req.RefreshToken == "" {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "refresh_token is required"})
	}

	pair, err := c.authService.Refresh(ctx.Request().Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "refresh token is expired"})
		}
		if errors.Is(err, service.ErrInvalidToken) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "could not validate user"})
		}
		logrus.WithError(err).Error("Token refresh failed")
		return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}

	return ctx.JSON(http.StatusOK, dto.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "bearer",
	})
}

func (c *AuthController) GetUser(ctx echo.Context) error {
	user, ok := ctx.Get("user").(*entity.User)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "authentication failed"})
	}

	return ctx.JSON(http.StatusOK, dto.UserResponse{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email.String,
	})
}

func (c *AuthController) Whoami(ctx echo.Context) error {
	user, ok := ctx.Get("user").(*entity.User)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "authentication failed"})
	}

	return ctx.JSON(http.StatusOK, dto.WhoamiResponse{
		User: dto.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			Email:    user.Email.String,
		},
	})
}
