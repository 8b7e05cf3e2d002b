package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/checkin/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, c *domain.CheckIn) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO check_ins (id, member_id, location_id, checked_in_at, method, source_device_id, status, window_bucket)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID,
		c.MemberID,
		c.LocationID,
		c.CheckedInAt,
		c.Method,
		c.SourceDeviceID,
		c.Status,
		c.WindowBucket,
	).Error
}

func (r *repo) LatestForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (*domain.CheckIn, error) {
	var rows []domain.CheckIn
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, location_id, checked_in_at, method, source_device_id, status, window_bucket
		 FROM check_ins
		 WHERE member_id = ?
		 ORDER BY checked_in_at DESC
		 LIMIT 1`,
		memberID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) Recent(ctx context.Context, db *gorm.DB, limit int) ([]domain.RecentCheckIn, error) {
	var rows []domain.RecentCheckIn
	err := db.WithContext(ctx).Raw(
		`SELECT c.id, c.member_id, m.name AS member_name, c.checked_in_at, c.method, c.source_device_id
		 FROM check_ins c
		 JOIN members m ON m.id = c.member_id
		 ORDER BY c.checked_in_at DESC, c.id DESC
		 LIMIT ?`,
		limit,
	).Scan(&rows).Error
	return rows, err
}

func (r *repo) CountForMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) (int64, error) {
	var n int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM check_ins WHERE member_id = ?`,
		memberID,
	).Scan(&n).Error
	return n, err
}

func (r *repo) EnsureLocation(ctx context.Context, db *gorm.DB, loc domain.Location) error {
	var n int64
	if err := db.WithContext(ctx).Raw(`SELECT COUNT(1) FROM locations WHERE id = ?`, loc.ID).Scan(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`INSERT INTO locations (id, name, timezone, created_at) VALUES (?, ?, ?, ?)`,
		loc.ID, loc.Name, loc.Timezone, loc.CreatedAt,
	).Error
}
