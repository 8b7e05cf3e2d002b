package domain

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*CreateResult, error)
	Get(ctx context.Context, id string) (*Detail, error)
	GetByNumber(ctx context.Context, number string) (*Detail, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	// Receipt renders a PDF receipt for a paid order.
	Receipt(ctx context.Context, id string) ([]byte, string, error)
	// ApplyEvent reconciles an order with a payment notification. handled is
	// false when no order matches the event.
	ApplyEvent(ctx context.Context, event paymentdomain.Event) (bool, error)
}

type CartItem struct {
	ProductID string `json:"product_id"`
	PriceType string `json:"price_type"`
	Quantity  int64  `json:"quantity"`
}

type Customer struct {
	MemberID string `json:"member_id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type CreateRequest struct {
	Items      []CartItem        `json:"items"`
	Customer   Customer          `json:"customer"`
	SuccessURL string            `json:"success_url"`
	CancelURL  string            `json:"cancel_url"`
	Metadata   map[string]string `json:"metadata"`
}

type CreateResult struct {
	Order       Order       `json:"order"`
	Items       []OrderItem `json:"items"`
	CheckoutURL string      `json:"checkout_url"`
}

type Detail struct {
	Order    Order          `json:"order"`
	Items    []OrderItem    `json:"items"`
	Payments []OrderPayment `json:"payments"`
}

type ListRequest struct {
	Status   string
	MemberID string
	pagination.Pagination
}

// MaxQuantity is the processor's per-line ceiling.
const MaxQuantity = 999_999

// NumberPrefix starts every human-facing order number.
const NumberPrefix = "ORD-"

type ListResponse struct {
	Orders []Order `json:"orders"`
	pagination.PageInfo
}

var (
	ErrCommerceDisabled       = errors.New("commerce_disabled")
	ErrProcessorNotConfigured = errors.New("processor_not_configured")
	ErrEmptyCart              = errors.New("empty_cart")
	ErrInvalidQuantity        = errors.New("invalid_quantity")
	ErrInvalidProduct         = errors.New("invalid_product")
	ErrUnknownProduct         = errors.New("unknown_product")
	ErrUnknownPrice           = errors.New("unknown_price")
	ErrPriceInactive          = errors.New("price_inactive")
	ErrMissingProcessorPrice  = errors.New("missing_processor_price")
	ErrMixedRecurring         = errors.New("mixed_recurring_cart")
	ErrMixedCurrency          = errors.New("mixed_currency_cart")
	ErrInvalidStatus          = errors.New("invalid_status")
	ErrInvalidMember          = errors.New("invalid_member")
	ErrInvalidID              = errors.New("invalid_id")
	ErrNotFound               = errors.New("order_not_found")
	ErrNotPaid                = errors.New("order_not_paid")
	ErrUpstream               = errors.New("processor_upstream_error")
)

// ParseID parses a decimal order id.
func ParseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
