package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolationPostgres(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		ConstraintName: "idx_reservations_event_user",
	}
	wrapped := fmt.Errorf("create reservation: %w", pgErr)

	assert.True(t, IsUniqueViolation(wrapped, ""))
	assert.True(t, IsUniqueViolation(wrapped, "idx_reservations_event_user"))
	assert.False(t, IsUniqueViolation(wrapped, "idx_points_entries_order_earn"),
		"a different constraint must not be claimed")
}

func TestIsUniqueViolationPostgresOtherCode(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23503", Message: "foreign key violation"}

	assert.False(t, IsUniqueViolation(pgErr, ""))
}

func TestIsUniqueViolationSQLite(t *testing.T) {
	err := errors.New("UNIQUE constraint failed: reservations.event_id, reservations.user_id")

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "idx_reservations_event_user"),
		"sqlite cannot name the index, so the marker alone decides")
}

func TestIsUniqueViolationUnrelated(t *testing.T) {
	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}
