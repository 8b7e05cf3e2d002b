package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ProductType string

const (
	ProductTypeRetail     ProductType = "retail"
	ProductTypeMembership ProductType = "membership"
	ProductTypeGuestPass  ProductType = "guest_pass"
	ProductTypeService    ProductType = "service"
)

func (t ProductType) Valid() bool {
	switch t {
	case ProductTypeRetail, ProductTypeMembership, ProductTypeGuestPass, ProductTypeService:
		return true
	}
	return false
}

type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

func (i Interval) Valid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

type Product struct {
	ID               snowflake.ID      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Code             string            `json:"code" gorm:"size:64;not null;uniqueIndex:ux_products_code"`
	Slug             string            `json:"slug" gorm:"size:128;not null;uniqueIndex:ux_products_slug"`
	Name             string            `json:"name" gorm:"size:255;not null"`
	Description      *string           `json:"description,omitempty" gorm:"type:text"`
	ProductType      ProductType       `json:"product_type" gorm:"size:32;not null"`
	DefaultPriceType string            `json:"default_price_type" gorm:"size:64;not null"`
	Active           bool              `json:"active" gorm:"not null;default:true"`
	Metadata         datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time         `json:"updated_at" gorm:"not null"`
}

func (Product) TableName() string { return "products" }

type Price struct {
	ID                     snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	ProductID              snowflake.ID `json:"product_id" gorm:"not null;uniqueIndex:ux_prices_product_type,priority:1"`
	PriceType              string       `json:"price_type" gorm:"size:64;not null;uniqueIndex:ux_prices_product_type,priority:2"`
	AmountCents            int64        `json:"amount_cents" gorm:"not null"`
	Currency               string       `json:"currency" gorm:"size:3;not null"`
	RecurringInterval      *Interval    `json:"recurring_interval,omitempty" gorm:"size:16"`
	RecurringIntervalCount int          `json:"recurring_interval_count" gorm:"not null;default:1"`
	ProcessorPriceID       *string      `json:"processor_price_id,omitempty" gorm:"size:128"`
	Active                 bool         `json:"active" gorm:"not null;default:true"`
	CreatedAt              time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt              time.Time    `json:"updated_at" gorm:"not null"`
}

func (Price) TableName() string { return "prices" }

func (p Price) Recurring() bool {
	return p.RecurringInterval != nil && *p.RecurringInterval != ""
}
