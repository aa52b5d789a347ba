package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Sentinel kinds for repository errors.
var (
	ErrNoVariants   = errors.New("no listing query variants configured")
	ErrInvalidTable = errors.New("invalid table name")
)

// undefinedColumn is the Postgres SQLSTATE for a missing column.
const undefinedColumn = "42703"

// IsUndefinedColumn reports whether err means the query referenced a column
// the schema does not have.
func IsUndefinedColumn(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedColumn
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "column") && strings.Contains(msg, "does not exist")
}
