package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	// ResolveOrCreate returns the canonical member for identity, inserting one
	// when nothing matches and overwriting the match otherwise.
	ResolveOrCreate(ctx context.Context, identity Identity) (snowflake.ID, error)
	// ResolveOrCreateTx is ResolveOrCreate inside the caller's transaction.
	ResolveOrCreateTx(ctx context.Context, tx *gorm.DB, identity Identity) (snowflake.ID, error)
	EnsureQRToken(ctx context.Context, id snowflake.ID) (string, error)
	EnsureQRTokenTx(ctx context.Context, tx *gorm.DB, id snowflake.ID) (string, error)

	Get(ctx context.Context, id snowflake.ID) (*Member, error)
	FindActiveByID(ctx context.Context, id snowflake.ID) (*Member, error)
	FindActiveByQRToken(ctx context.Context, token string) (*Member, error)
	// FindActiveByContact tries email first and falls back to phone.
	FindActiveByContact(ctx context.Context, email, phone string) (*Member, error)
	FindByProcessorCustomerID(ctx context.Context, customerID string) (*Member, error)
	LinkProcessorCustomer(ctx context.Context, id snowflake.ID, customerID string) error

	Search(ctx context.Context, q string) ([]Member, error)
	Suggest(ctx context.Context, q string) ([]Suggestion, error)
	ListActive(ctx context.Context) ([]Member, error)
	ListActiveTx(ctx context.Context, tx *gorm.DB) ([]Member, error)
	ListAll(ctx context.Context) ([]Member, error)
	Deactivate(ctx context.Context, ids []snowflake.ID) (int64, error)
	DeactivateTx(ctx context.Context, tx *gorm.DB, ids []snowflake.ID) (int64, error)

	// ResendQR mails the credential link to the active member owning email or phone.
	ResendQR(ctx context.Context, req ResendQRRequest) (ResendQRResult, error)
	// SendCredential mails the QR link to an address and reports delivery.
	SendCredential(ctx context.Context, name, to, token string) bool
	QRLink(token string) string
}

type ResendQRRequest struct {
	Email string
	Phone string
}

type ResendQRResult struct {
	MemberID snowflake.ID
	Emailed  bool
	// NoAddress is set when the member has no email on file, so nothing was sent.
	NoAddress bool
}

const (
	SearchLimit  = 20
	SuggestLimit = 5
	SuggestMinQ  = 2
)

var (
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidStatus  = errors.New("invalid_status")
	ErrInvalidContact = errors.New("invalid_contact")
	ErrInvalidID      = errors.New("invalid_id")
	ErrNotFound       = errors.New("member_not_found")
)
