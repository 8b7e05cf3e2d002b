package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const ProviderStripe = "stripe"

const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
	EventPaymentSucceeded  = "payment_intent.succeeded"
	EventPaymentFailed     = "payment_intent.payment_failed"
)

// Flow tags every checkout session we create so webhooks reach one owner.
const (
	FlowCommerce = "commerce"
	FlowSignup   = "signup"
)

const (
	MetaFlow        = "flow"
	MetaOrderID     = "order_id"
	MetaOrderNumber = "order_number"
)

const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// EventRecord is the inbound webhook log, one row per provider event id.
type EventRecord struct {
	ID              snowflake.ID   `json:"id" gorm:"primaryKey;autoIncrement:false"`
	Provider        string         `json:"provider" gorm:"size:32;not null;uniqueIndex:ux_payment_events_provider_event,priority:1"`
	ProviderEventID string         `json:"provider_event_id" gorm:"size:128;not null;uniqueIndex:ux_payment_events_provider_event,priority:2"`
	EventType       string         `json:"event_type" gorm:"size:64;not null"`
	Payload         datatypes.JSON `json:"payload" gorm:"not null"`
	Result          *string        `json:"result,omitempty" gorm:"size:32"`
	ReceivedAt      time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt     *time.Time     `json:"processed_at"`
}

func (EventRecord) TableName() string { return "payment_events" }

// Event is a processor-neutral webhook notification. Every field is
// extracted defensively and may be empty.
type Event struct {
	Provider string
	ID       string
	Type     string
	Created  time.Time
	Metadata map[string]string

	CheckoutSessionID string
	ClientReferenceID string
	PaymentStatus     string
	PaymentIntentID   string
	CustomerID        string
	CustomerEmail     string
	CustomerName      string
	CustomerPhone     string

	AmountCents       int64
	Currency          string
	PaymentMethodType string
	ChargeID          string
	ReceiptURL        string
	ErrorCode         string
	ErrorMessage      string

	Raw []byte
}

func (e Event) Meta(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return strings.TrimSpace(e.Metadata[key])
}

// Flow returns the lowercased flow tag, or "" when the session predates tagging.
func (e Event) Flow() string {
	return strings.ToLower(e.Meta(MetaFlow))
}

// OrderNumber prefers explicit metadata over the client reference.
func (e Event) OrderNumber() string {
	if v := e.Meta(MetaOrderNumber); v != "" {
		return v
	}
	return strings.TrimSpace(e.ClientReferenceID)
}

type CheckoutMode string

const (
	ModePayment      CheckoutMode = "payment"
	ModeSubscription CheckoutMode = "subscription"
)

type CheckoutLine struct {
	PriceRef string
	Quantity int64
}

type CheckoutRequest struct {
	Mode              CheckoutMode
	Lines             []CheckoutLine
	CustomerID        string
	CustomerEmail     string
	ClientReferenceID string
	SuccessURL        string
	CancelURL         string
	Metadata          map[string]string
	ExpiresAt         *time.Time
	IdempotencyKey    string
}

type CheckoutSession struct {
	ID              string
	URL             string
	PaymentIntentID string
	CustomerID      string
	Status          string
	PaymentStatus   string
	ExpiresAt       *time.Time
}

type CustomerRequest struct {
	Name     string
	Email    string
	Phone    string
	Metadata map[string]string
}

type Customer struct {
	ID    string
	Email string
	Name  string
}
