package repository

import (
	"context"

	"github.com/smallbiznis/frontdesk/internal/staff/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *domain.Staff) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO staff (id, name, pin_hash, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		s.ID,
		s.Name,
		s.PinHash,
		s.Role,
		s.CreatedAt,
	).Error
}

func (r *repo) ActivePerRole(ctx context.Context, db *gorm.DB) ([]domain.Staff, error) {
	var items []domain.Staff
	err := db.WithContext(ctx).Raw(
		`SELECT s.id, s.name, s.pin_hash, s.role, s.created_at
		 FROM staff s
		 WHERE s.id = (SELECT MAX(id) FROM staff latest WHERE latest.role = s.role)
		 ORDER BY s.id DESC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
