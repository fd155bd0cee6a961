// Package service contains auth workflows
package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"badgehub/internal/modkit/httpkit"
	"badgehub/internal/modkit/repokit"
	perr "badgehub/internal/platform/errors"
	"badgehub/internal/services/auth/domain"
	"badgehub/internal/services/auth/repo"
)

// tokenIssuer is stamped into the iss claim and required on parse
const tokenIssuer = "badgehub"

// Scopes granted to every account; issuer and admin scopes are derived per user
const (
	ScopeReadBackpack = "r:backpack"
	ScopeBackpack     = "rw:backpack"
	ScopeIssuer       = "rw:issuer"
	ScopeServerAdmin  = "rw:serverAdmin"
)

// Service defines the auth service contract
type Service interface {
	domain.ServicePort

	// Parse satisfies middleware.AuthPort
	Parse(r *http.Request) (userID string, scopes []string, err error)
}

// Config controls token minting
type Config struct {
	Secret   string
	TokenTTL time.Duration
}

// Svc implements the auth service
type Svc struct {
	Repo   repo.Repo
	binder repokit.Binder[repo.Repo]
	db     repokit.TxRunner
	cfg    Config

	now func() time.Time
}

// New constructs an auth service
func New(db repokit.TxRunner, binder repokit.Binder[repo.Repo], cfg Config) *Svc {
	if db == nil {
		panic("auth.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("auth.Service requires a non nil Repo binder")
	}
	if cfg.Secret == "" {
		panic("auth.Service requires a signing secret")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &Svc{Repo: binder.Bind(db), binder: binder, db: db, cfg: cfg, now: time.Now}
}

type claims struct {
	Email string `json:"email,omitempty"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Token exchanges email and password for an access token
func (s *Svc) Token(ctx context.Context, in domain.TokenInput) (domain.TokenOut, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return domain.TokenOut{}, perr.InvalidArgf("email and password are required")
	}

	cred, err := s.Repo.CredentialByEmail(ctx, email)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.TokenOut{}, perr.Unauthorizedf("invalid credentials")
		}
		return domain.TokenOut{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(in.Password)) != nil {
		return domain.TokenOut{}, perr.Unauthorizedf("invalid credentials")
	}

	scopes, err := s.scopesFor(ctx, cred)
	if err != nil {
		return domain.TokenOut{}, err
	}
	return s.mint(cred, scopes)
}

// Refresh re-issues a token for a still valid one, re-deriving scopes
func (s *Svc) Refresh(ctx context.Context, raw string) (domain.TokenOut, error) {
	cl, err := s.parseClaims(raw)
	if err != nil {
		return domain.TokenOut{}, err
	}

	cred, err := s.Repo.CredentialByID(ctx, cl.Subject)
	if err != nil {
		if perr.IsCode(err, perr.ErrorCodeNotFound) {
			return domain.TokenOut{}, perr.Unauthorizedf("unknown subject")
		}
		return domain.TokenOut{}, err
	}

	scopes, err := s.scopesFor(ctx, cred)
	if err != nil {
		return domain.TokenOut{}, err
	}
	return s.mint(cred, scopes)
}

// Parse implements middleware.AuthPort for httpkit Protected groups
func (s *Svc) Parse(r *http.Request) (string, []string, error) {
	raw, err := httpkit.JWT(r)
	if err != nil {
		return "", nil, err
	}

	cl, err := s.parseClaims(raw)
	if err != nil {
		return "", nil, err
	}
	if cl.Subject == "" {
		return "", nil, perr.Unauthorizedf("token has no subject")
	}
	return cl.Subject, strings.Fields(cl.Scope), nil
}

func (s *Svc) scopesFor(ctx context.Context, cred repo.Credential) ([]string, error) {
	scopes := []string{ScopeReadBackpack, ScopeBackpack}

	staff, err := s.Repo.HasIssuerRole(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	if staff {
		scopes = append(scopes, ScopeIssuer)
	}
	if cred.Admin {
		scopes = append(scopes, ScopeServerAdmin)
	}
	return scopes, nil
}

func (s *Svc) mint(cred repo.Credential, scopes []string) (domain.TokenOut, error) {
	now := s.now()
	cl := claims{
		Email: cred.Email,
		Scope: strings.Join(scopes, " "),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   cred.UserID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return domain.TokenOut{}, perr.Wrapf(err, perr.ErrorCodeUnknown, "sign token")
	}
	return domain.TokenOut{
		AccessToken: raw,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.cfg.TokenTTL.Seconds()),
		Scope:       cl.Scope,
	}, nil
}

func (s *Svc) parseClaims(raw string) (*claims, error) {
	cl := &claims{}
	_, err := jwt.ParseWithClaims(raw, cl, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, perr.Unauthorizedf("TOKEN_EXPIRED")
		}
		return nil, perr.Unauthorizedf("invalid token")
	}
	return cl, nil
}
