package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
)

type Service interface {
	// StartCheckout opens a subscription checkout for a prospective member.
	StartCheckout(ctx context.Context, req Request) (*Checkout, error)
	// HandleCheckoutCompleted provisions the member once the processor
	// confirms the subscription. handled is false for other events.
	HandleCheckoutCompleted(ctx context.Context, event paymentdomain.Event) (bool, error)
}

type Request struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Birthday string `json:"birthday"`
	Address  string `json:"address"`
	PriceID  string `json:"price_id"`
}

type Checkout struct {
	SessionID  string `json:"session_id"`
	URL        string `json:"url"`
	CustomerID string `json:"customer_id"`
}

// Provisioned describes the member a completed signup produced.
type Provisioned struct {
	MemberID       snowflake.ID
	Name           string
	Email          string
	QRToken        string
	CredentialSent bool
}

type Provisioner interface {
	Provision(ctx context.Context, event paymentdomain.Event) (*Provisioned, error)
}

var (
	ErrInvalidRequest = errors.New("invalid_signup_request")
	ErrDisabled       = errors.New("signup_disabled")
	ErrNotConfigured  = errors.New("processor_not_configured")
	ErrMissingPrice   = errors.New("signup_price_missing")
	ErrUpstream       = errors.New("processor_upstream_error")
	// ErrNoIdentity means the event carried neither an email, a phone nor a
	// known processor customer.
	ErrNoIdentity = errors.New("signup_identity_missing")
)
