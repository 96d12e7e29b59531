package db

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique-constraint violation from
// the underlying store. The database index is the authoritative guard against
// duplicate rows; handler-level existence checks are only a fast path.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error

	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return true
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	// sqlite (used by the test suite) reports constraint violations as plain
	// strings.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
