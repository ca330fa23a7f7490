package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the connection shared by GORM repositories. Swapping in a
// transaction handle with WithTx scopes every query to that unit of work.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base bound to db.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx when one is supplied.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx returns a Base that runs on tx. A nil tx keeps the current handle.
func (b Base) WithTx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
