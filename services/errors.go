package services

import (
	"errors"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"rental-platform-server/types"
)

// pqUniqueViolation is the Postgres SQLSTATE for unique_violation
const pqUniqueViolation = "23505"

// isUniqueViolation reports whether err came from a unique index. It is the
// backstop behind the explicit existence checks.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// notFound maps gorm.ErrRecordNotFound to a NotFoundError for resource
func notFound(err error, resource string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.NewNotFoundError(resource)
	}
	return err
}

// Pagination is the page/limit pair shared by list operations
type Pagination struct {
	Page  int
	Limit int
}

// NewPagination clamps page to >= 1 and limit to 1..maxLimit, falling back to def.
func NewPagination(page, limit, def, maxLimit int) Pagination {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > maxLimit {
		limit = def
	}
	return Pagination{Page: page, Limit: limit}
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// Pages returns the number of pages for total rows
func (p Pagination) Pages(total int64) int64 {
	return (total + int64(p.Limit) - 1) / int64(p.Limit)
}
