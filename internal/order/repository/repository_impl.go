package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/order/domain"
	"github.com/smallbiznis/frontdesk/pkg/db/pagination"
	"gorm.io/gorm"
)

const orderColumns = `id, order_number, member_id, customer_name, customer_email, customer_phone, order_type,
	status, currency, subtotal_cents, tax_cents, discount_cents, tip_cents, total_cents, checkout_session_id,
	payment_intent_id, payment_link_url, expires_at, paid_at, canceled_at, metadata, created_at, updated_at`

const paymentColumns = `id, order_id, payment_intent_id, amount_cents, currency, status, payment_method_type,
	charge_id, receipt_url, error_code, error_message, raw_event, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO orders (`+orderColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.ID,
		o.OrderNumber,
		o.MemberID,
		o.CustomerName,
		o.CustomerEmail,
		o.CustomerPhone,
		o.OrderType,
		o.Status,
		o.Currency,
		o.SubtotalCents,
		o.TaxCents,
		o.DiscountCents,
		o.TipCents,
		o.TotalCents,
		o.CheckoutSessionID,
		o.PaymentIntentID,
		o.PaymentLinkURL,
		o.ExpiresAt,
		o.PaidAt,
		o.CanceledAt,
		o.Metadata,
		o.CreatedAt,
		o.UpdatedAt,
	).Error
}

func (r *repo) InsertItem(ctx context.Context, db *gorm.DB, it *domain.OrderItem) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_items (id, order_id, product_id, price_id, price_type, description, quantity,
			unit_amount_cents, total_cents, recurring)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.ID,
		it.OrderID,
		it.ProductID,
		it.PriceID,
		it.PriceType,
		it.Description,
		it.Quantity,
		it.UnitAmountCents,
		it.TotalCents,
		it.Recurring,
	).Error
}

func (r *repo) AttachCheckout(ctx context.Context, db *gorm.DB, o *domain.Order) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?, checkout_session_id = ?, payment_intent_id = ?, payment_link_url = ?,
		     expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		o.Status,
		o.CheckoutSessionID,
		o.PaymentIntentID,
		o.PaymentLinkURL,
		o.ExpiresAt,
		o.UpdatedAt,
		o.ID,
	).Error
}

func (r *repo) findOne(ctx context.Context, db *gorm.DB, where string, arg any) (*domain.Order, error) {
	var items []domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT `+orderColumns+` FROM orders WHERE `+where+` ORDER BY id ASC LIMIT 1`,
		arg,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Order, error) {
	return r.findOne(ctx, db, "id = ?", id)
}

func (r *repo) FindByNumber(ctx context.Context, db *gorm.DB, number string) (*domain.Order, error) {
	return r.findOne(ctx, db, "order_number = ?", number)
}

func (r *repo) FindByCheckoutSession(ctx context.Context, db *gorm.DB, sessionID string) (*domain.Order, error) {
	return r.findOne(ctx, db, "checkout_session_id = ?", sessionID)
}

func (r *repo) FindByPaymentIntent(ctx context.Context, db *gorm.DB, intentID string) (*domain.Order, error) {
	return r.findOne(ctx, db, "payment_intent_id = ?", intentID)
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]domain.Order, error) {
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.MemberID != nil {
		stmt = stmt.Where("member_id = ?", *filter.MemberID)
	}
	stmt, err := pagination.Apply(stmt, page)
	if err != nil {
		return nil, err
	}
	var items []domain.Order
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Items(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderItem, error) {
	var items []domain.OrderItem
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, product_id, price_id, price_type, description, quantity, unit_amount_cents,
			total_cents, recurring
		 FROM order_items WHERE order_id = ? ORDER BY id ASC`,
		orderID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) Payments(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.OrderPayment, error) {
	var items []domain.OrderPayment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM order_payments WHERE order_id = ? ORDER BY created_at ASC, id ASC`,
		orderID,
	).Scan(&items).Error
	return items, err
}

func (r *repo) Transition(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, stamp domain.Stamp) (bool, error) {
	intent := stamp.PaymentIntentID
	res := db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET status = ?,
		     paid_at = COALESCE(paid_at, ?),
		     canceled_at = COALESCE(?, canceled_at),
		     payment_intent_id = COALESCE(payment_intent_id, NULLIF(?, '')),
		     updated_at = ?
		 WHERE id = ? AND status = ?`,
		to,
		stamp.PaidAt,
		stamp.CanceledAt,
		intent,
		stamp.At,
		id,
		from,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindPaymentByIntent(ctx context.Context, db *gorm.DB, intentID string) (*domain.OrderPayment, error) {
	var items []domain.OrderPayment
	err := db.WithContext(ctx).Raw(
		`SELECT `+paymentColumns+` FROM order_payments WHERE payment_intent_id = ? LIMIT 1`,
		intentID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}
	return &items[0], nil
}

func (r *repo) InsertPayment(ctx context.Context, db *gorm.DB, p *domain.OrderPayment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO order_payments (`+paymentColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.OrderID,
		p.PaymentIntentID,
		p.AmountCents,
		p.Currency,
		p.Status,
		p.PaymentMethodType,
		p.ChargeID,
		p.ReceiptURL,
		p.ErrorCode,
		p.ErrorMessage,
		p.RawEvent,
		p.CreatedAt,
		p.UpdatedAt,
	).Error
}

func (r *repo) UpdatePayment(ctx context.Context, db *gorm.DB, p *domain.OrderPayment) error {
	return db.WithContext(ctx).Exec(
		`UPDATE order_payments
		 SET order_id = ?, amount_cents = ?, currency = ?, status = ?, payment_method_type = ?, charge_id = ?,
		     receipt_url = ?, error_code = ?, error_message = ?, raw_event = ?, updated_at = ?
		 WHERE id = ?`,
		p.OrderID,
		p.AmountCents,
		p.Currency,
		p.Status,
		p.PaymentMethodType,
		p.ChargeID,
		p.ReceiptURL,
		p.ErrorCode,
		p.ErrorMessage,
		p.RawEvent,
		p.UpdatedAt,
		p.ID,
	).Error
}
