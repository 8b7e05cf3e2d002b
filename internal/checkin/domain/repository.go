package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, c *CheckIn) error
	LatestForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*CheckIn, error)
	Recent(ctx context.Context, db *gorm.DB, limit int) ([]RecentCheckIn, error)
	CountForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (int64, error)
	EnsureLocation(ctx context.Context, db *gorm.DB, loc Location) error
}
