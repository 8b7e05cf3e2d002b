package domain

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Processor is the outbound payment processor API.
type Processor interface {
	Configured() bool
	CreateCustomer(ctx context.Context, req CustomerRequest) (Customer, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	RetrieveCheckoutSession(ctx context.Context, id string) (CheckoutSession, error)
}

// WebhookAdapter authenticates and decodes inbound notifications.
type WebhookAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	Parse(ctx context.Context, payload []byte) (*Event, error)
}

// EventHandler consumes a parsed event. handled=false means the event
// belongs to somebody else.
type EventHandler interface {
	HandleEvent(ctx context.Context, event Event) (bool, error)
}

// EventHandlerFunc adapts a plain function to EventHandler.
type EventHandlerFunc func(ctx context.Context, event Event) (bool, error)

func (f EventHandlerFunc) HandleEvent(ctx context.Context, event Event) (bool, error) {
	return f(ctx, event)
}

// WebhookService verifies, logs and dispatches inbound deliveries.
type WebhookService interface {
	Ingest(ctx context.Context, payload []byte, headers http.Header) (IngestResult, error)
}

type Repository interface {
	InsertEvent(ctx context.Context, db *gorm.DB, event *EventRecord) (bool, error)
	FindEvent(ctx context.Context, db *gorm.DB, provider, providerEventID string) (*EventRecord, error)
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, result string, processedAt time.Time) error
}

// IngestResult reports what the dispatcher did with a delivery.
type IngestResult struct {
	EventID string `json:"event_id"`
	Type    string `json:"type"`
	Handler string `json:"handler"`
	Replay  bool   `json:"replay,omitempty"`
}

const (
	HandlerNone     = "none"
	HandlerIgnored  = "ignored"
	HandlerCommerce = FlowCommerce
	HandlerSignup   = FlowSignup
)

var (
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
	ErrNotConfigured    = errors.New("processor_not_configured")
	ErrUpstream         = errors.New("processor_upstream_error")
	ErrInvalidRequest   = errors.New("invalid_processor_request")
)
