package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base provides the connection handling shared by POS repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx returns a copy bound to tx.
func (b Base) WithTx(tx *gorm.DB) Base {
	return Base{db: tx}
}

// First loads the first row matching query into dest ordered by primary key.
// It reports false, with no error, when nothing matched.
func (b Base) First(ctx context.Context, dest any, query any, args ...any) (bool, error) {
	err := b.DB(ctx).Where(query, args...).First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
