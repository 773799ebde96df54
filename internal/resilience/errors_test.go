package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("bad input"), false},
		{"explicit", NewTransientError(errors.New("x"), 503), true},
		{"wrapped explicit", fmt.Errorf("outer: %w", NewTransientError(errors.New("x"), 429)), true},
		{"conn reset", fmt.Errorf("write: %w", syscall.ECONNRESET), true},
		{"conn refused", syscall.ECONNREFUSED, true},
		{"net timeout", timeoutErr{}, true},
		{"pattern", errors.New("read tcp: i/o timeout"), true},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"pg serialization", &pgconn.PgError{Code: "40001"}, true},
		{"pg deadlock", fmt.Errorf("upsert: %w", &pgconn.PgError{Code: "40P01"}), true},
		{"pg unique violation", &pgconn.PgError{Code: "23505"}, false},
		{"pg undefined table", &pgconn.PgError{Code: "42P01"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{408, 429, 500, 502, 503, 504} {
		assert.True(t, IsTransientHTTPStatus(code), "status %d", code)
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409, 422, 501} {
		assert.False(t, IsTransientHTTPStatus(code), "status %d", code)
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("root cause")
	te := NewTransientError(inner, 500)
	assert.ErrorIs(t, te, inner)
	assert.Equal(t, "root cause", te.Error())
	assert.Equal(t, 500, te.StatusCode)
}
