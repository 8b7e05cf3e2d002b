package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/order/domain"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	"github.com/smallbiznis/frontdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type moved struct {
	from, to domain.Status
}

// ApplyEvent reconciles the matched order inside one transaction. Side
// effects (metrics, the confirmation email) run after commit.
func (s *Service) ApplyEvent(ctx context.Context, ev paymentdomain.Event) (bool, error) {
	var (
		handled bool
		order   *domain.Order
		changes []moved
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = s.matchOrder(ctx, tx, ev)
		if err != nil || order == nil {
			return err
		}
		handled = true
		now := s.clock.Now().UTC()

		switch ev.Type {
		case paymentdomain.EventCheckoutCompleted:
			switch ev.PaymentStatus {
			case paymentdomain.PaymentStatusPaid, paymentdomain.PaymentStatusNoPaymentRequired:
				if err := s.move(ctx, tx, order, domain.StatusPaid, paidStamp(now, ev), &changes); err != nil {
					return err
				}
				return s.upsertPayment(ctx, tx, order, ev, domain.PaymentSucceeded, now)
			default:
				if order.Status == domain.StatusDraft || order.Status == domain.StatusPending {
					return s.move(ctx, tx, order, domain.StatusAwaitingPayment, domain.Stamp{At: now}, &changes)
				}
				return nil
			}

		case paymentdomain.EventCheckoutExpired:
			if order.Status.Terminal() {
				return nil
			}
			return s.move(ctx, tx, order, domain.StatusExpired, domain.Stamp{At: now, CanceledAt: &now}, &changes)

		case paymentdomain.EventPaymentSucceeded:
			if order.Status != domain.StatusPaid {
				if err := s.move(ctx, tx, order, domain.StatusPaid, paidStamp(now, ev), &changes); err != nil {
					return err
				}
			}
			return s.upsertPayment(ctx, tx, order, ev, domain.PaymentSucceeded, now)

		case paymentdomain.EventPaymentFailed:
			if order.Status == domain.StatusPaid || order.Status == domain.StatusRefunded {
				return nil
			}
			if err := s.move(ctx, tx, order, domain.StatusFailed, domain.Stamp{At: now, PaymentIntentID: ev.PaymentIntentID}, &changes); err != nil {
				return err
			}
			return s.upsertPayment(ctx, tx, order, ev, domain.PaymentFailed, now)
		}
		handled = false
		return nil
	})
	if err != nil {
		return false, err
	}
	if !handled {
		return false, nil
	}

	for _, c := range changes {
		s.metrics.RecordOrderTransition(ctx, string(c.from), string(c.to))
		s.log.Info("order transitioned",
			zap.String("order_number", order.OrderNumber),
			zap.String("from", string(c.from)),
			zap.String("to", string(c.to)),
			zap.String("event_type", ev.Type),
			zap.String("event_id", ev.ID),
		)
		if c.to == domain.StatusPaid {
			s.notifyPaid(ctx, order)
		}
	}
	return true, nil
}

func paidStamp(now time.Time, ev paymentdomain.Event) domain.Stamp {
	return domain.Stamp{At: now, PaidAt: &now, PaymentIntentID: ev.PaymentIntentID}
}

// matchOrder tries metadata order_id, then the checkout session, then the
// order number, then the payment intent.
func (s *Service) matchOrder(ctx context.Context, tx *gorm.DB, ev paymentdomain.Event) (*domain.Order, error) {
	if raw := ev.Meta(paymentdomain.MetaOrderID); raw != "" {
		if id, err := snowflake.ParseString(raw); err == nil {
			order, err := s.repo.FindByID(ctx, tx, id)
			if err != nil || order != nil {
				return order, err
			}
		}
	}
	if ev.CheckoutSessionID != "" {
		order, err := s.repo.FindByCheckoutSession(ctx, tx, ev.CheckoutSessionID)
		if err != nil || order != nil {
			return order, err
		}
	}
	if number := ev.OrderNumber(); number != "" {
		order, err := s.repo.FindByNumber(ctx, tx, number)
		if err != nil || order != nil {
			return order, err
		}
	}
	if ev.PaymentIntentID != "" {
		return s.repo.FindByPaymentIntent(ctx, tx, ev.PaymentIntentID)
	}
	return nil, nil
}

// move applies a compare-and-set transition, re-reading once when another
// writer changed the status underneath.
func (s *Service) move(ctx context.Context, tx *gorm.DB, order *domain.Order, to domain.Status, stamp domain.Stamp, changes *[]moved) error {
	for attempt := 0; attempt < 2; attempt++ {
		if !domain.CanTransition(order.Status, to) {
			return nil
		}
		ok, err := s.repo.Transition(ctx, tx, order.ID, order.Status, to, stamp)
		if err != nil {
			return err
		}
		if ok {
			*changes = append(*changes, moved{from: order.Status, to: to})
			order.Status = to
			if stamp.PaidAt != nil && order.PaidAt == nil {
				order.PaidAt = stamp.PaidAt
			}
			if stamp.CanceledAt != nil {
				order.CanceledAt = stamp.CanceledAt
			}
			return nil
		}
		fresh, err := s.repo.FindByID(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		if fresh == nil {
			return domain.ErrNotFound
		}
		*order = *fresh
	}
	return nil
}

// upsertPayment keeps exactly one row per payment intent. A failure never
// overwrites a recorded success.
func (s *Service) upsertPayment(ctx context.Context, tx *gorm.DB, order *domain.Order, ev paymentdomain.Event, status domain.PaymentStatus, now time.Time) error {
	intent := strings.TrimSpace(ev.PaymentIntentID)
	if intent == "" {
		return nil
	}

	existing, err := s.repo.FindPaymentByIntent(ctx, tx, intent)
	if err != nil {
		return err
	}
	if existing == nil {
		p := &domain.OrderPayment{
			ID:              s.genID.Generate(),
			OrderID:         order.ID,
			PaymentIntentID: &intent,
			Status:          status,
			CreatedAt:       now,
		}
		fillPayment(p, order, ev, now)
		err := tx.Transaction(func(sp *gorm.DB) error {
			return s.repo.InsertPayment(ctx, sp, p)
		})
		if err == nil {
			return nil
		}
		if !db.IsDuplicateKeyErr(err) {
			return err
		}
		if existing, err = s.repo.FindPaymentByIntent(ctx, tx, intent); err != nil {
			return err
		}
		if existing == nil {
			return nil
		}
	}

	if existing.Status == domain.PaymentSucceeded && status == domain.PaymentFailed {
		return nil
	}
	existing.Status = status
	fillPayment(existing, order, ev, now)
	return s.repo.UpdatePayment(ctx, tx, existing)
}

func fillPayment(p *domain.OrderPayment, order *domain.Order, ev paymentdomain.Event, now time.Time) {
	if ev.AmountCents > 0 {
		p.AmountCents = ev.AmountCents
	} else if p.AmountCents == 0 {
		p.AmountCents = order.TotalCents
	}
	if c := strings.ToLower(strings.TrimSpace(ev.Currency)); c != "" {
		p.Currency = c
	} else if p.Currency == "" {
		p.Currency = order.Currency
	}
	if ev.PaymentMethodType != "" {
		p.PaymentMethodType = memberdomain.StringPtr(ev.PaymentMethodType)
	}
	if ev.ChargeID != "" {
		p.ChargeID = memberdomain.StringPtr(ev.ChargeID)
	}
	if ev.ReceiptURL != "" {
		p.ReceiptURL = memberdomain.StringPtr(ev.ReceiptURL)
	}
	if p.Status == domain.PaymentFailed {
		p.ErrorCode = memberdomain.StringPtr(ev.ErrorCode)
		p.ErrorMessage = memberdomain.StringPtr(ev.ErrorMessage)
	} else {
		p.ErrorCode = nil
		p.ErrorMessage = nil
	}
	if len(ev.Raw) > 0 {
		p.RawEvent = datatypes.JSON(ev.Raw)
	}
	p.UpdatedAt = now
}

func (s *Service) notifyPaid(ctx context.Context, order *domain.Order) {
	to := memberdomain.Deref(order.CustomerEmail)
	if to == "" || s.email == nil {
		return
	}
	data := email.OrderPaidData{
		GymName:      s.gymName,
		CustomerName: memberdomain.Deref(order.CustomerName),
		OrderNumber:  order.OrderNumber,
		Total:        formatMoney(order.TotalCents, order.Currency),
	}
	if s.baseURL != "" {
		data.ReceiptLink = s.baseURL + "/api/orders/" + order.ID.String() + "/receipt.pdf"
	}
	if err := s.email.SendTemplate(ctx, []string{to}, email.TemplateOrderPaid, data); err != nil {
		s.log.Warn("order confirmation email failed",
			zap.String("order_number", order.OrderNumber),
			zap.Error(err),
		)
	}
}
