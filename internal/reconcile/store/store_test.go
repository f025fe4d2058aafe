package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "UniqueViolation", err: &pgconn.PgError{Code: "23505"}, expected: true},
		{name: "Wrapped", err: fmt.Errorf("updating receipt: %w", &pgconn.PgError{Code: "23505"}), expected: true},
		{name: "CheckViolation", err: &pgconn.PgError{Code: "23514"}, expected: false},
		{name: "Plain", err: errors.New("boom"), expected: false},
		{name: "Nil", err: nil, expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, isUniqueViolation(tc.err))
		})
	}
}
