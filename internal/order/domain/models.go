package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type Status string

const (
	StatusDraft           Status = "draft"
	StatusPending         Status = "pending"
	StatusAwaitingPayment Status = "awaiting_payment"
	StatusPaid            Status = "paid"
	StatusFailed          Status = "failed"
	StatusExpired         Status = "expired"
	StatusRefunded        Status = "refunded"
)

func (s Status) Terminal() bool {
	switch s {
	case StatusPaid, StatusFailed, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

var transitions = map[Status][]Status{
	StatusDraft:           {StatusPending, StatusAwaitingPayment, StatusPaid, StatusFailed, StatusExpired},
	StatusPending:         {StatusAwaitingPayment, StatusPaid, StatusFailed, StatusExpired},
	StatusAwaitingPayment: {StatusPaid, StatusFailed, StatusExpired},
	// Money can still arrive after a failed attempt or a lapsed session.
	StatusFailed:  {StatusPaid},
	StatusExpired: {StatusPaid, StatusFailed},
	StatusPaid:    {StatusRefunded},
}

// CanTransition reports whether from may move to to. Paid and refunded
// orders are never overwritten by competing payment events.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Sources lists every status that may move to to.
func Sources(to Status) []Status {
	var out []Status
	for from, nexts := range transitions {
		for _, next := range nexts {
			if next == to {
				out = append(out, from)
			}
		}
	}
	return out
}

type OrderType string

const (
	OrderTypeRetail     OrderType = "retail"
	OrderTypeMembership OrderType = "membership"
	OrderTypeGuestPass  OrderType = "guest_pass"
	OrderTypeService    OrderType = "service"
	OrderTypeMixed      OrderType = "mixed"
)

type Order struct {
	ID                snowflake.ID      `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderNumber       string            `json:"order_number" gorm:"size:32;not null;uniqueIndex:ux_orders_number"`
	MemberID          *snowflake.ID     `json:"member_id,omitempty" gorm:"index"`
	CustomerName      *string           `json:"customer_name,omitempty" gorm:"size:255"`
	CustomerEmail     *string           `json:"customer_email,omitempty" gorm:"size:255"`
	CustomerPhone     *string           `json:"customer_phone,omitempty" gorm:"size:32"`
	OrderType         OrderType         `json:"order_type" gorm:"size:32;not null"`
	Status            Status            `json:"status" gorm:"size:32;not null;index"`
	Currency          string            `json:"currency" gorm:"size:3;not null"`
	SubtotalCents     int64             `json:"subtotal_cents" gorm:"not null"`
	TaxCents          int64             `json:"tax_cents" gorm:"not null;default:0"`
	DiscountCents     int64             `json:"discount_cents" gorm:"not null;default:0"`
	TipCents          int64             `json:"tip_cents" gorm:"not null;default:0"`
	TotalCents        int64             `json:"total_cents" gorm:"not null"`
	CheckoutSessionID *string           `json:"checkout_session_id,omitempty" gorm:"size:128;index"`
	PaymentIntentID   *string           `json:"payment_intent_id,omitempty" gorm:"size:128;index"`
	PaymentLinkURL    *string           `json:"payment_link_url,omitempty" gorm:"type:text"`
	ExpiresAt         *time.Time        `json:"expires_at,omitempty"`
	PaidAt            *time.Time        `json:"paid_at,omitempty"`
	CanceledAt        *time.Time        `json:"canceled_at,omitempty"`
	Metadata          datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt         time.Time         `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time         `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderID         snowflake.ID `json:"order_id" gorm:"not null;index"`
	ProductID       snowflake.ID `json:"product_id" gorm:"not null"`
	PriceID         snowflake.ID `json:"price_id" gorm:"not null"`
	PriceType       string       `json:"price_type" gorm:"size:64;not null"`
	Description     string       `json:"description" gorm:"size:255;not null"`
	Quantity        int64        `json:"quantity" gorm:"not null"`
	UnitAmountCents int64        `json:"unit_amount_cents" gorm:"not null"`
	TotalCents      int64        `json:"total_cents" gorm:"not null"`
	Recurring       bool         `json:"recurring" gorm:"not null;default:false"`
}

func (OrderItem) TableName() string { return "order_items" }

type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

type OrderPayment struct {
	ID                snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	OrderID           snowflake.ID   `json:"order_id" gorm:"not null;index"`
	PaymentIntentID   *string        `json:"payment_intent_id,omitempty" gorm:"size:128;uniqueIndex:ux_order_payments_intent"`
	AmountCents       int64          `json:"amount_cents" gorm:"not null"`
	Currency          string         `json:"currency" gorm:"size:3;not null"`
	Status            PaymentStatus  `json:"status" gorm:"size:16;not null"`
	PaymentMethodType *string        `json:"payment_method_type,omitempty" gorm:"size:32"`
	ChargeID          *string        `json:"charge_id,omitempty" gorm:"size:128"`
	ReceiptURL        *string        `json:"receipt_url,omitempty" gorm:"type:text"`
	ErrorCode         *string        `json:"error_code,omitempty" gorm:"size:64"`
	ErrorMessage      *string        `json:"error_message,omitempty" gorm:"type:text"`
	RawEvent          datatypes.JSON `json:"-"`
	CreatedAt         time.Time      `json:"created_at" gorm:"not null"`
	UpdatedAt         time.Time      `json:"updated_at" gorm:"not null"`
}

func (OrderPayment) TableName() string { return "order_payments" }
