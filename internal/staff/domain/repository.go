package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, staff *Staff) error
	// ActivePerRole returns the newest row of every role.
	ActivePerRole(ctx context.Context, db *gorm.DB) ([]Staff, error)
}
