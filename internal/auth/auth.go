// Package auth provides authentication for the Guardian API.
//
// Authentication model:
// - Registration validates the email (syntax + MX lookup) and password policy
// - Passwords are stored as bcrypt hashes, never reversibly
// - Login issues a signed, time-bound JWT bound to the username
// - Protected endpoints require "Authorization: Bearer <token>"
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rohanai/guardian/internal/users"
	"github.com/rohanai/guardian/internal/validation"
)

// Errors
var (
	// ErrInvalidCredentials is deliberately generic: it does not reveal
	// whether the username exists or the password was wrong.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenInvalid       = errors.New("invalid token")
)

// HashPassword transforms a plain password into a salted bcrypt hash
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// VerifyPassword checks a plain password against a stored bcrypt hash
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Config holds token-signing settings
type Config struct {
	Secret    string
	Algorithm string // HS256, HS384, or HS512
	TTL       time.Duration
}

// Service handles registration, login, and token issuance/verification
type Service struct {
	users  users.Store
	emails *validation.EmailChecker
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an auth service. The signing algorithm must be in the
// HMAC family; anything else is a configuration error.
func NewService(store users.Store, emails *validation.EmailChecker, cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("auth: unsupported signing algorithm %q", cfg.Algorithm)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 60 * time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  store,
		emails: emails,
		secret: []byte(cfg.Secret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
		logger: logger,
	}, nil
}

// IssueToken produces a signed token embedding the subject and an absolute
// expiry of now + TTL.
func (s *Service) IssueToken(subject string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	token, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// VerifyToken checks signature and expiry and returns the subject.
// The configured algorithm is pinned; tokens signed any other way are invalid.
func (s *Service) VerifyToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenInvalid
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// Register admits a new user. Checks run in a fixed order: duplicate email
// first (so validation detail is never leaked for an address that cannot be
// registered anyway), then email legitimacy, then password strength.
// Does not log the user in.
func (s *Service) Register(ctx context.Context, username, email, password string) error {
	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		return users.ErrDuplicateUser
	}
	if !errors.Is(err, users.ErrUserNotFound) {
		return fmt.Errorf("check existing user: %w", err)
	}

	if err := s.emails.Check(ctx, email); err != nil {
		return err
	}

	if err := validation.CheckPasswordStrength(password); err != nil {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	// The store's uniqueness constraint decides concurrent registrations;
	// the loser sees ErrDuplicateUser here.
	return s.users.Create(ctx, &users.User{
		Username:       username,
		Email:          email,
		HashedPassword: hash,
	})
}

// Login verifies credentials and returns a bearer token bound to the username.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return "", ErrInvalidCredentials
		}
		return "", fmt.Errorf("look up user: %w", err)
	}

	if !VerifyPassword(password, u.HashedPassword) {
		return "", ErrInvalidCredentials
	}

	return s.IssueToken(u.Username)
}

// lookupUser resolves a token subject to the stored account (middleware use).
func (s *Service) lookupUser(ctx context.Context, username string) (*users.User, error) {
	return s.users.GetByUsername(ctx, username)
}
