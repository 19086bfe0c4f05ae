package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

var (
	// ErrCategoryNotFound is returned when a category is not found.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound is returned when a product is not found.
	ErrProductNotFound = errors.New("product not found")
	// ErrCategoryProtected is returned when a category still has products referencing it.
	ErrCategoryProtected = errors.New("category is referenced by products")
	// ErrDuplicateKey is returned when a unique column (name or slug) already holds the value.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrForeignKey is returned when a write violates the products -> categories reference.
	ErrForeignKey = errors.New("foreign key violation")
)

// Postgres error codes, see https://www.postgresql.org/docs/current/errcodes-appendix.html
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translateError maps driver specific constraint failures onto the package sentinels.
// Connections opened through gorm's own dialectors are translated by gorm
// (TranslateError); connections handed over from lib/pq surface *pq.Error.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %v", ErrForeignKey, err)
		}
	}

	// sqlite builds without the extended error codes only report the message.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", ErrDuplicateKey, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", ErrForeignKey, err)
	}
	return err
}
