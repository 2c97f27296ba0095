// Package validation provides input validation for the Guardian API.
//
// Registration inputs are checked here: email syntax plus a best-effort
// mail-exchange lookup on the domain, and the password composition policy.
// Failure messages are returned to clients verbatim, so they must not change
// without coordinating with the frontend.
package validation

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20 // 1MB

// mxLookupTimeout bounds the DNS query so a slow resolver cannot stall
// registration indefinitely.
const mxLookupTimeout = 5 * time.Second

// Error is a user-correctable validation failure whose message is safe to
// show to clients.
type Error string

func (e Error) Error() string { return string(e) }

// Validation failures. Message text is part of the client contract.
const (
	ErrEmailFormat        Error = "Invalid email format"
	ErrEmailUndeliverable Error = "Email domain does not exist or cannot receive emails"
	ErrPasswordTooShort   Error = "Password must be at least 8 characters long"
	ErrPasswordNoUpper    Error = "Password must contain at least one uppercase letter"
	ErrPasswordNoLower    Error = "Password must contain at least one lowercase letter"
	ErrPasswordNoDigit    Error = "Password must contain at least one digit"
	ErrPasswordNoSpecial  Error = "Password must contain at least one special character (!@#$%^&*)"
)

// IsUserError reports whether err is a validation failure safe to surface.
func IsUserError(err error) bool {
	var v Error
	return errors.As(err, &v)
}

var (
	// emailRegex enforces local@domain.tld with a dotted domain and a
	// 2+-letter top label. The character classes exclude '@', so a match
	// implies exactly one '@'.
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	upperRegex   = regexp.MustCompile(`[A-Z]`)
	lowerRegex   = regexp.MustCompile(`[a-z]`)
	digitRegex   = regexp.MustCompile(`[0-9]`)
	specialRegex = regexp.MustCompile(`[!@#$%^&*]`)
)

// MXLookuper resolves mail-exchange records for a domain.
// *net.Resolver satisfies it; tests inject stubs.
type MXLookuper interface {
	LookupMX(ctx context.Context, domain string) ([]*net.MX, error)
}

// EmailChecker validates address syntax and confirms the domain can receive
// mail. The MX check is best-effort liveness, not proof of deliverability:
// any resolution failure rejects the address (fail-closed), which also
// rejects legitimate domains during transient DNS outages. The underlying
// error is logged so those cases are distinguishable from dead domains.
type EmailChecker struct {
	lookup MXLookuper
	logger *slog.Logger
}

// NewEmailChecker creates an email checker. A nil lookup uses the system
// resolver.
func NewEmailChecker(lookup MXLookuper, logger *slog.Logger) *EmailChecker {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailChecker{lookup: lookup, logger: logger}
}

// CheckFormat validates address syntax only. No network access.
func CheckFormat(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrEmailFormat
	}
	return nil
}

// Check validates syntax, then confirms the domain publishes MX records.
// Format failures short-circuit before any DNS query.
func (c *EmailChecker) Check(ctx context.Context, email string) error {
	if err := CheckFormat(email); err != nil {
		return err
	}

	domain := email[strings.LastIndex(email, "@")+1:]

	ctx, cancel := context.WithTimeout(ctx, mxLookupTimeout)
	defer cancel()

	records, err := c.lookup.LookupMX(ctx, domain)
	if err != nil || len(records) == 0 {
		c.logger.Warn("email domain failed MX lookup",
			"domain", domain,
			"error", err,
		)
		return ErrEmailUndeliverable
	}
	return nil
}

// CheckPasswordStrength enforces the password composition policy.
// Rules are evaluated in order; the first failure wins.
func CheckPasswordStrength(password string) error {
	if len(password) < 8 {
		return ErrPasswordTooShort
	}
	if !upperRegex.MatchString(password) {
		return ErrPasswordNoUpper
	}
	if !lowerRegex.MatchString(password) {
		return ErrPasswordNoLower
	}
	if !digitRegex.MatchString(password) {
		return ErrPasswordNoDigit
	}
	if !specialRegex.MatchString(password) {
		return ErrPasswordNoSpecial
	}
	return nil
}

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}
