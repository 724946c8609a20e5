package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeCheckViolation   = "23514"
	codeLockNotAvailable = "55P03"
	codeDeadlock         = "40P01"
)

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsLockTimeout reports whether err came from lock_timeout expiring.
func IsLockTimeout(err error) bool { return hasCode(err, codeLockNotAvailable) }

func IsDeadlock(err error) bool { return hasCode(err, codeDeadlock) }

// IsCheckViolation is how a stock column going below zero surfaces.
func IsCheckViolation(err error) bool { return hasCode(err, codeCheckViolation) }
