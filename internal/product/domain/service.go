package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	// ResolvePrice returns the product and the active price of priceType,
	// falling back to the product's default price type when it is blank.
	ResolvePrice(ctx context.Context, productID snowflake.ID, priceType string) (*Product, *Price, error)
}

type ListRequest struct {
	Active      *bool
	ProductType ProductType
}

type PriceInput struct {
	PriceType              string   `json:"price_type"`
	AmountCents            int64    `json:"amount_cents"`
	Currency               string   `json:"currency"`
	RecurringInterval      Interval `json:"recurring_interval"`
	RecurringIntervalCount int      `json:"recurring_interval_count"`
	ProcessorPriceID       string   `json:"processor_price_id"`
}

type CreateRequest struct {
	Code             string         `json:"code"`
	Name             string         `json:"name"`
	Description      *string        `json:"description"`
	ProductType      ProductType    `json:"product_type"`
	DefaultPriceType string         `json:"default_price_type"`
	Active           *bool          `json:"active"`
	Metadata         map[string]any `json:"metadata"`
	Prices           []PriceInput   `json:"prices"`
}

type Response struct {
	ID               string         `json:"id"`
	Code             string         `json:"code"`
	Slug             string         `json:"slug"`
	Name             string         `json:"name"`
	Description      *string        `json:"description,omitempty"`
	ProductType      ProductType    `json:"product_type"`
	DefaultPriceType string         `json:"default_price_type"`
	Active           bool           `json:"active"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	Prices           []Price        `json:"prices"`
}

var (
	ErrInvalidCode        = errors.New("invalid_code")
	ErrInvalidName        = errors.New("invalid_name")
	ErrInvalidProductType = errors.New("invalid_product_type")
	ErrInvalidPrice       = errors.New("invalid_price")
	ErrInvalidCurrency    = errors.New("invalid_currency")
	ErrInvalidInterval    = errors.New("invalid_recurring_interval")
	ErrDefaultPrice       = errors.New("default_price_not_found")
	ErrPriceNotFound      = errors.New("price_not_found")
	ErrPriceInactive      = errors.New("price_inactive")
	ErrNotFound           = errors.New("product_not_found")
	ErrInvalidID          = errors.New("invalid_id")
	ErrDuplicate          = errors.New("product_exists")
)
