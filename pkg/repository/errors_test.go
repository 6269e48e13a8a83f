package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMapError(t *testing.T) {
	notFound := errors.New("not found")
	duplicate := errors.New("duplicate")

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"nil passes through", nil, nil},
		{"no rows maps to not found", sql.ErrNoRows, notFound},
		{"wrapped no rows maps to not found", fmt.Errorf("find: %w", sql.ErrNoRows), notFound},
		{"unique violation maps to duplicate", &pgconn.PgError{Code: "23505"}, duplicate},
		{"other pg error unchanged", &pgconn.PgError{Code: "23503"}, nil},
		{"other error unchanged", errors.New("boom"), nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := MapError(tc.err, notFound, duplicate)

			if tc.expected != nil {
				if result != tc.expected {
					t.Errorf("expected %v, got %v", tc.expected, result)
				}
				return
			}
			if result != tc.err {
				t.Errorf("expected original error %v, got %v", tc.err, result)
			}
		})
	}
}
