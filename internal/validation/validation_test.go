package validation

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLookuper returns canned MX results, recording whether it was called.
type stubLookuper struct {
	records []*net.MX
	err     error
	called  bool
}

func (s *stubLookuper) LookupMX(ctx context.Context, domain string) ([]*net.MX, error) {
	s.called = true
	return s.records, s.err
}

func TestCheckPasswordStrength_Messages(t *testing.T) {
	tests := []struct {
		name     string
		password string
		want     error
	}{
		{"too short", "Ab1!", ErrPasswordTooShort},
		{"no uppercase", "abcdef1!", ErrPasswordNoUpper},
		{"no lowercase", "ABCDEF1!", ErrPasswordNoLower},
		{"no digit", "Abcdefg!", ErrPasswordNoDigit},
		{"no special", "Abcdefg1", ErrPasswordNoSpecial},
		{"valid", "Abcdef1!", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPasswordStrength(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.want, err)
			}
		})
	}
}

func TestCheckPasswordStrength_FirstFailureWins(t *testing.T) {
	// Fails every rule; length must be reported.
	assert.Equal(t, ErrPasswordTooShort, CheckPasswordStrength(""))

	// Long enough but missing everything else; uppercase is reported first.
	assert.Equal(t, ErrPasswordNoUpper, CheckPasswordStrength("xxxxxxxx"))
}

func TestCheckFormat(t *testing.T) {
	valid := []string{
		"user@example.com",
		"first.last+tag@sub.example.co",
		"u_1%x-y@example.io",
	}
	for _, email := range valid {
		assert.NoError(t, CheckFormat(email), email)
	}

	invalid := []string{
		"",
		"plainaddress",
		"missing-domain@",
		"@missing-local.com",
		"two@@example.com",
		"no-dot@examplecom",
		"short-tld@example.c",
		"spaces in@example.com",
	}
	for _, email := range invalid {
		assert.Equal(t, ErrEmailFormat, CheckFormat(email), email)
	}
}

func TestEmailChecker_FormatFailureSkipsLookup(t *testing.T) {
	stub := &stubLookuper{}
	checker := NewEmailChecker(stub, slog.Default())

	err := checker.Check(context.Background(), "not-an-email")
	assert.Equal(t, ErrEmailFormat, err)
	assert.False(t, stub.called, "MX lookup must not run for invalid syntax")
}

func TestEmailChecker_AcceptsDomainWithMX(t *testing.T) {
	stub := &stubLookuper{records: []*net.MX{{Host: "mx.example.com.", Pref: 10}}}
	checker := NewEmailChecker(stub, slog.Default())

	require.NoError(t, checker.Check(context.Background(), "user@example.com"))
	assert.True(t, stub.called)
}

func TestEmailChecker_RejectsLookupFailure(t *testing.T) {
	stub := &stubLookuper{err: errors.New("no such host")}
	checker := NewEmailChecker(stub, slog.Default())

	err := checker.Check(context.Background(), "user@dead-domain.example")
	assert.Equal(t, ErrEmailUndeliverable, err)
}

func TestEmailChecker_RejectsEmptyMXSet(t *testing.T) {
	stub := &stubLookuper{records: nil, err: nil}
	checker := NewEmailChecker(stub, slog.Default())

	err := checker.Check(context.Background(), "user@no-mail.example")
	assert.Equal(t, ErrEmailUndeliverable, err)
}

func TestIsUserError(t *testing.T) {
	assert.True(t, IsUserError(ErrEmailFormat))
	assert.True(t, IsUserError(ErrPasswordNoDigit))
	assert.False(t, IsUserError(errors.New("database down")))
	assert.False(t, IsUserError(nil))
}
