package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, product *Product) error
	CreatePrice(ctx context.Context, db *gorm.DB, price *Price) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Product, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Product, error)
	ListPrices(ctx context.Context, db *gorm.DB, productIDs []snowflake.ID) ([]Price, error)
	FindPrice(ctx context.Context, db *gorm.DB, productID snowflake.ID, priceType string) (*Price, error)
}
