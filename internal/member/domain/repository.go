package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	Update(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	// FindCandidates returns every member sharing at least one key with probe, oldest first.
	FindCandidates(ctx context.Context, db *gorm.DB, probe Probe) ([]Member, error)
	FindActiveByQRToken(ctx context.Context, db *gorm.DB, token string) (*Member, error)
	FindActiveByEmail(ctx context.Context, db *gorm.DB, emailLower string) (*Member, error)
	FindActiveByPhone(ctx context.Context, db *gorm.DB, phoneE164 string) (*Member, error)
	FindByProcessorCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*Member, error)
	// SetQRTokenIfEmpty stores token only when the member has none yet.
	SetQRTokenIfEmpty(ctx context.Context, db *gorm.DB, id snowflake.ID, token string, now time.Time) (bool, error)
	SetProcessorCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string, now time.Time) error
	Search(ctx context.Context, db *gorm.DB, q string, limit int) ([]Member, error)
	SuggestByName(ctx context.Context, db *gorm.DB, q string, limit int) ([]Suggestion, error)
	List(ctx context.Context, db *gorm.DB, status *Status) ([]Member, error)
	SetStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, status Status, now time.Time) (int64, error)
}
