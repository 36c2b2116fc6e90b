package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Niklas-dev/go-auth-service/app/dto"
	"github.com/Niklas-dev/go-auth-service/app/entity"
	"github.com/Niklas-dev/go-auth-service/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrUserNotFound       = errors.New("user not found")
)

// Claims is the shared claim set for access and refresh tokens. The two
// kinds are structurally identical and differ only in TTL; nothing in the
// token marks which one it is.
type Claims struct {
	UserID uint64 `json:"id"`
	jwt.RegisteredClaims
}

type userRepository interface {
	Create(ctx context.Context, user *entity.User) error
	FindByID(ctx context.Context, id uint64) (*entity.User, error)
	FindByUsername(ctx context.Context, username string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByGoogleSub(ctx context.Context, googleSub string) (*entity.User, error)
	Update(ctx context.Context, user *entity.User) error
}

type AuthService struct {
	userRepo userRepository
	cfg      *config.Config
}

func NewAuthService(userRepo userRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		cfg:      cfg,
	}
}

// Register hashes the password and persists the user. There is no
// uniqueness pre-check; a duplicate username or email surfaces as the
// store's unique-key error.
func (s *AuthService) Register(ctx context.Context, username, password string) (*entity.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &entity.User{
		Username:       username,
		HashedPassword: sql.NullString{String: string(hashedPassword), Valid: true},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// Authenticate verifies a username/password pair against the stored bcrypt
// hash. Unknown usernames and wrong passwords are indistinguishable to the
// caller.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*entity.User, error) {
	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.HashedPassword.Valid {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword.String), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// Login authenticates and mints an access/refresh token pair.
func (s *AuthService) Login(ctx context.Context, username, password string) (*dto.TokenPair, error) {
	user, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}

	return s.IssueTokenPair(user)
}

// IssueTokenPair mints an access and a refresh token for the given user.
func (s *AuthService) IssueTokenPair(user *entity.User) (*dto.TokenPair, error) {
	accessToken, err := s.CreateAccessToken(user.Username, user.ID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.CreateRefreshToken(user.Username, user.ID)
	if err != nil {
		return nil, err
	}

	return &dto.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) CreateAccessToken(username string, userID uint64) (string, error) {
	return s.createToken(username, userID, s.cfg.AccessTokenTTL)
}

func (s *AuthService) CreateRefreshToken(username string, userID uint64) (string, error) {
	return s.createToken(username, userID, s.cfg.RefreshTokenTTL)
}

func (s *AuthService) createToken(username string, userID uint64, ttl time.Duration) (string, error) {
	now := time.Now().UTC()

	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// DecodeToken verifies the signature and expiry of a token. Signature
// failure and expiry both come back as ErrInvalidToken.
func (s *AuthService) DecodeToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc)
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// TokenExpired answers only the freshness question. A token that cannot be
// decoded at all is a verification error, not an expired token.
func (s *AuthService) TokenExpired(tokenString string) (bool, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, s.keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		return false, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.ExpiresAt == nil {
		return false, ErrInvalidToken
	}

	return !claims.ExpiresAt.Time.After(time.Now().UTC()), nil
}

// Refresh mints a fresh token pair from the identity embedded in a refresh
// token. Nothing marks a token as a refresh token, so any valid token is
// accepted here.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenPair, error) {
	expired, err := s.TokenExpired(refreshToken)
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, ErrTokenExpired
	}

	claims, err := s.DecodeToken(refreshToken)
	if err != nil {
		return nil, err
	}

	logrus.WithField("username", claims.Subject).Info("Refreshed token")

	return s.IssueTokenPair(&entity.User{
		ID:       claims.UserID,
		Username: claims.Subject,
	})
}

// CurrentUser resolves a bearer token to its stored user record.
func (s *AuthService) CurrentUser(ctx context.Context, tokenString string) (*entity.User, error) {
	claims, err := s.DecodeToken(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Subject == "" || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}

	user, err := s.userRepo.FindByUsername(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	return user, nil
}

func (s *AuthService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return []byte(s.cfg.JWTSecret), nil
}
