package store

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrSchemaUnavailable = errors.New("schema object unavailable")
	ErrUnknownSource     = errors.New("unknown source variant")
)

const (
	pqUndefinedTable      = "42P01"
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

// IsUndefinedTable reports whether err is Postgres "relation does not exist"
func IsUndefinedTable(err error) bool {
	return pqCode(err) == pqUndefinedTable
}

// IsConstraintViolation reports unique or foreign key violations
func IsConstraintViolation(err error) bool {
	code := pqCode(err)
	return code == pqUniqueViolation || code == pqForeignKeyViolation
}

// wrap annotates err and maps a missing relation to ErrSchemaUnavailable
func wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	if IsUndefinedTable(err) {
		return fmt.Errorf("%s: %w: %v", op, ErrSchemaUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
