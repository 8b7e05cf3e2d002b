package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	InsertItem(ctx context.Context, db *gorm.DB, item *OrderItem) error
	// AttachCheckout moves a pending order to awaiting_payment with its session.
	AttachCheckout(ctx context.Context, db *gorm.DB, order *Order) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Order, error)
	FindByNumber(ctx context.Context, db *gorm.DB, number string) (*Order, error)
	FindByCheckoutSession(ctx context.Context, db *gorm.DB, sessionID string) (*Order, error)
	FindByPaymentIntent(ctx context.Context, db *gorm.DB, intentID string) (*Order, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]Order, error)
	Items(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderItem, error)
	Payments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]OrderPayment, error)

	// Transition applies a compare-and-set status change. It reports false
	// when the stored status no longer equals from.
	Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to Status, stamp Stamp) (bool, error)

	FindPaymentByIntent(ctx context.Context, db *gorm.DB, intentID string) (*OrderPayment, error)
	InsertPayment(ctx context.Context, db *gorm.DB, payment *OrderPayment) error
	UpdatePayment(ctx context.Context, db *gorm.DB, payment *OrderPayment) error
}

// Stamp carries the timestamps a transition may set. PaidAt is only written
// when the stored value is still empty.
type Stamp struct {
	At              time.Time
	PaidAt          *time.Time
	CanceledAt      *time.Time
	PaymentIntentID string
}

type ListFilter struct {
	Status   Status
	MemberID *snowflake.ID
}
