package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/member/domain"
	"gorm.io/gorm"
)

const memberColumns = `id, external_id, name, email_lower, phone_e164, membership_tier, status,
	qr_token, processor_customer_id, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO members (`+memberColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID,
		m.ExternalID,
		m.Name,
		m.EmailLower,
		m.PhoneE164,
		m.MembershipTier,
		m.Status,
		m.QRToken,
		m.ProcessorCustomerID,
		m.CreatedAt,
		m.UpdatedAt,
	).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, m *domain.Member) error {
	if m == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE members
		 SET external_id = ?, name = ?, email_lower = ?, phone_e164 = ?, membership_tier = ?,
		     status = ?, updated_at = ?
		 WHERE id = ?`,
		m.ExternalID,
		m.Name,
		m.EmailLower,
		m.PhoneE164,
		m.MembershipTier,
		m.Status,
		m.UpdatedAt,
		m.ID,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Member, error) {
	return r.findOne(ctx, db, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
}

func (r *repo) FindCandidates(ctx context.Context, db *gorm.DB, probe domain.Probe) ([]domain.Member, error) {
	clauses := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if probe.ExternalID != "" {
		clauses = append(clauses, "external_id = ?")
		args = append(args, probe.ExternalID)
	}
	if probe.Email != "" {
		clauses = append(clauses, "email_lower = ?")
		args = append(args, probe.Email)
	}
	if probe.Phone != "" {
		clauses = append(clauses, "phone_e164 = ?")
		args = append(args, probe.Phone)
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	var items []domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM members
		 WHERE `+strings.Join(clauses, " OR ")+`
		 ORDER BY id ASC`,
		args...,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindActiveByQRToken(ctx context.Context, db *gorm.DB, token string) (*domain.Member, error) {
	return r.findOne(ctx, db,
		`SELECT `+memberColumns+` FROM members WHERE qr_token = ? AND status = ?`,
		token, domain.StatusActive,
	)
}

func (r *repo) FindActiveByEmail(ctx context.Context, db *gorm.DB, emailLower string) (*domain.Member, error) {
	return r.findOne(ctx, db,
		`SELECT `+memberColumns+` FROM members WHERE email_lower = ? AND status = ? ORDER BY id ASC LIMIT 1`,
		emailLower, domain.StatusActive,
	)
}

func (r *repo) FindActiveByPhone(ctx context.Context, db *gorm.DB, phoneE164 string) (*domain.Member, error) {
	return r.findOne(ctx, db,
		`SELECT `+memberColumns+` FROM members WHERE phone_e164 = ? AND status = ? ORDER BY id ASC LIMIT 1`,
		phoneE164, domain.StatusActive,
	)
}

func (r *repo) FindByProcessorCustomerID(ctx context.Context, db *gorm.DB, customerID string) (*domain.Member, error) {
	return r.findOne(ctx, db,
		`SELECT `+memberColumns+` FROM members WHERE processor_customer_id = ? ORDER BY id ASC LIMIT 1`,
		customerID,
	)
}

func (r *repo) SetQRTokenIfEmpty(ctx context.Context, db *gorm.DB, id snowflake.ID, token string, now time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE members SET qr_token = ?, updated_at = ?
		 WHERE id = ? AND (qr_token IS NULL OR qr_token = '')`,
		token, now, id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SetProcessorCustomerID(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string, now time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE members SET processor_customer_id = ?, updated_at = ? WHERE id = ?`,
		customerID, now, id,
	).Error
}

func (r *repo) Search(ctx context.Context, db *gorm.DB, q string, limit int) ([]domain.Member, error) {
	like := "%" + strings.ToLower(q) + "%"
	var items []domain.Member
	err := db.WithContext(ctx).Raw(
		`SELECT `+memberColumns+` FROM members
		 WHERE status = ? AND (LOWER(name) LIKE ? OR email_lower LIKE ? OR phone_e164 LIKE ?)
		 ORDER BY name ASC
		 LIMIT ?`,
		domain.StatusActive, like, like, like, limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SuggestByName(ctx context.Context, db *gorm.DB, q string, limit int) ([]domain.Suggestion, error) {
	var items []domain.Suggestion
	err := db.WithContext(ctx).Raw(
		`SELECT id, name FROM members
		 WHERE status = ? AND LOWER(name) LIKE ?
		 ORDER BY name ASC
		 LIMIT ?`,
		domain.StatusActive, "%"+strings.ToLower(q)+"%", limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status *domain.Status) ([]domain.Member, error) {
	stmt := db.WithContext(ctx).Model(&domain.Member{})
	if status != nil {
		stmt = stmt.Where("status = ?", *status)
	}
	var items []domain.Member
	if err := stmt.Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetStatus(ctx context.Context, db *gorm.DB, ids []snowflake.ID, status domain.Status, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.WithContext(ctx).Exec(
		`UPDATE members SET status = ?, updated_at = ? WHERE id IN ?`,
		status, now, ids,
	)
	return res.RowsAffected, res.Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, query string, args ...any) (*domain.Member, error) {
	var m domain.Member
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&m).Error; err != nil {
		return nil, err
	}
	if m.ID == 0 {
		return nil, nil
	}
	return &m, nil
}
