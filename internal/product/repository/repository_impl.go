package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/product/domain"
	"gorm.io/gorm"
)

const productColumns = `id, code, slug, name, description, product_type, default_price_type, active, metadata, created_at, updated_at`

const priceColumns = `id, product_id, price_type, amount_cents, currency, recurring_interval, recurring_interval_count,
	processor_price_id, active, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, product *domain.Product) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO products (`+productColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		product.ID,
		product.Code,
		product.Slug,
		product.Name,
		product.Description,
		product.ProductType,
		product.DefaultPriceType,
		product.Active,
		product.Metadata,
		product.CreatedAt,
		product.UpdatedAt,
	).Error
}

func (r *repo) CreatePrice(ctx context.Context, db *gorm.DB, price *domain.Price) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO prices (`+priceColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		price.ID,
		price.ProductID,
		price.PriceType,
		price.AmountCents,
		price.Currency,
		price.RecurringInterval,
		price.RecurringIntervalCount,
		price.ProcessorPriceID,
		price.Active,
		price.CreatedAt,
		price.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Product, error) {
	var p domain.Product
	err := db.WithContext(ctx).Raw(
		`SELECT `+productColumns+` FROM products WHERE id = ?`,
		id,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Product, error) {
	var items []domain.Product
	stmt := db.WithContext(ctx).Model(&domain.Product{})
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if filter.ProductType != "" {
		stmt = stmt.Where("product_type = ?", filter.ProductType)
	}
	if err := stmt.Order("name ASC").Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListPrices(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]domain.Price, error) {
	if len(productIDs) == 0 {
		return nil, nil
	}
	var items []domain.Price
	err := db.WithContext(ctx).Raw(
		`SELECT `+priceColumns+` FROM prices WHERE product_id IN ? ORDER BY product_id ASC, price_type ASC`,
		productIDs,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindPrice(ctx context.Context, db *gorm.DB, productID snowflake.ID, priceType string) (*domain.Price, error) {
	var p domain.Price
	err := db.WithContext(ctx).Raw(
		`SELECT `+priceColumns+` FROM prices WHERE product_id = ? AND price_type = ?`,
		productID,
		priceType,
	).Scan(&p).Error
	if err != nil {
		return nil, err
	}
	if p.ID == 0 {
		return nil, nil
	}
	return &p, nil
}
