package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Niklas-dev/go-auth-service/app/entity"
	"github.com/Niklas-dev/go-auth-service/config"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleIssuer = "https://accounts.google.com"

var ErrOAuthExchange = errors.New("could not validate credentials")

// GoogleUser is the identity Google asserts about the end user.
type GoogleUser struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*oidc.IDToken, error)
}

// GoogleService drives the authorization-code flow against Google and
// resolves the returned identity to a local user. The OAuth client
// configuration is built once at startup and never mutated.
type GoogleService struct {
	oauth2Config *oauth2.Config
	verifier     IDTokenVerifier
	userRepo     userRepository
}

func NewGoogleService(ctx context.Context, cfg *config.Config, userRepo userRepository) (*GoogleService, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, err
	}

	oauth2Cfg := &oauth2.Config{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       cfg.Google.Scopes,
	}

	return NewGoogleServiceWithClient(
		oauth2Cfg,
		provider.Verifier(&oidc.Config{ClientID: cfg.Google.ClientID}),
		userRepo,
	), nil
}

// NewGoogleServiceWithClient wires the service from pre-built pieces,
// skipping the OIDC discovery round-trip.
func NewGoogleServiceWithClient(oauth2Config *oauth2.Config, verifier IDTokenVerifier, userRepo userRepository) *GoogleService {
	return &GoogleService{
		oauth2Config: oauth2Config,
		verifier:     verifier,
		userRepo:     userRepo,
	}
}

// AuthCodeURL builds the authorization-request redirect for the given
// anti-forgery state.
func (s *GoogleService) AuthCodeURL(state string) string {
	return s.oauth2Config.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens and verifies the ID
// token it carries. Any provider-side failure collapses into
// ErrOAuthExchange.
func (s *GoogleService) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	token, err := s.oauth2Config.Exchange(ctx, code)
	if err != nil {
		logrus.WithError(err).Warn("Google code exchange failed")
		return nil, ErrOAuthExchange
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		logrus.Warn("Google token response carried no id_token")
		return nil, ErrOAuthExchange
	}

	idToken, err := s.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		logrus.WithError(err).Warn("Google ID token verification failed")
		return nil, ErrOAuthExchange
	}

	var googleUser GoogleUser
	if err := idToken.Claims(&googleUser); err != nil {
		logrus.WithError(err).Warn("Failed to parse Google ID token claims")
		return nil, ErrOAuthExchange
	}

	return &googleUser, nil
}

// ResolveUser maps a Google identity to a local user, creating one on first
// sight of the subject. Resolution is by subject only; an existing password
// account with the same email is not linked, and the insert then fails on
// the unique email index.
func (s *GoogleService) ResolveUser(ctx context.Context, googleUser *GoogleUser) (*entity.User, error) {
	user, err := s.userRepo.FindByGoogleSub(ctx, googleUser.Sub)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}

	user = &entity.User{
		Username:  googleUser.Email,
		Email:     sql.NullString{String: googleUser.Email, Valid: true},
		GoogleSub: sql.NullString{String: googleUser.Sub, Valid: true},
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"user_id": user.ID,
		"email":   user.Email.String,
	}).Info("Created user from Google identity")

	return user, nil
}
