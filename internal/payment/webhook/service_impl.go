package webhook

import (
	"context"
	"errors"
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/frontdesk/internal/clock"
	"github.com/smallbiznis/frontdesk/internal/observability/metrics"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     paymentdomain.Repository
	Adapter  paymentdomain.WebhookAdapter
	Commerce paymentdomain.EventHandler `name:"commerce_handler" optional:"true"`
	Signup   paymentdomain.EventHandler `name:"signup_handler" optional:"true"`
	Metrics  *metrics.Metrics           `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     paymentdomain.Repository
	adapter  paymentdomain.WebhookAdapter
	commerce paymentdomain.EventHandler
	signup   paymentdomain.EventHandler
	metrics  *metrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.webhook"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		adapter:  p.Adapter,
		commerce: p.Commerce,
		signup:   p.Signup,
		metrics:  p.Metrics,
	}
}

// Ingest verifies the delivery, logs it once per provider event id and hands
// it to exactly one flow handler. A delivery that was already processed is
// acknowledged without dispatch.
func (s *Service) Ingest(ctx context.Context, payload []byte, headers http.Header) (paymentdomain.IngestResult, error) {
	if s.adapter == nil {
		return paymentdomain.IngestResult{}, paymentdomain.ErrNotConfigured
	}
	if err := s.adapter.Verify(ctx, payload, headers); err != nil {
		s.log.Warn("webhook verification failed", zap.Error(err))
		return paymentdomain.IngestResult{}, err
	}

	event, err := s.adapter.Parse(ctx, payload)
	ignored := errors.Is(err, paymentdomain.ErrEventIgnored)
	if err != nil && !ignored {
		return paymentdomain.IngestResult{}, err
	}
	if event == nil {
		return paymentdomain.IngestResult{}, paymentdomain.ErrInvalidEvent
	}
	result := paymentdomain.IngestResult{EventID: event.ID, Type: event.Type}

	record, fresh, err := s.logEvent(ctx, event, payload)
	if err != nil {
		return result, err
	}
	if !fresh && record.ProcessedAt != nil {
		result.Replay = true
		if record.Result != nil {
			result.Handler = *record.Result
		}
		s.log.Info("webhook replay acknowledged",
			zap.String("event_id", event.ID),
			zap.String("event_type", event.Type),
		)
		return result, nil
	}

	if ignored {
		result.Handler = paymentdomain.HandlerIgnored
	} else {
		handler, err := s.dispatch(ctx, *event)
		if err != nil {
			s.metrics.RecordPaymentEvent(ctx, event.Provider, event.Type, "error")
			s.log.Error("webhook dispatch failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", event.Type),
				zap.String("flow", event.Flow()),
				zap.Error(err),
			)
			return result, err
		}
		result.Handler = handler
	}

	if err := s.repo.MarkProcessed(ctx, s.db, record.ID, result.Handler, s.clock.Now()); err != nil {
		return result, err
	}
	s.metrics.RecordPaymentEvent(ctx, event.Provider, event.Type, result.Handler)
	s.log.Info("webhook processed",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("handler", result.Handler),
	)
	return result, nil
}

func (s *Service) logEvent(ctx context.Context, event *paymentdomain.Event, payload []byte) (*paymentdomain.EventRecord, bool, error) {
	record := &paymentdomain.EventRecord{
		ID:              s.genID.Generate(),
		Provider:        event.Provider,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		Payload:         datatypes.JSON(payload),
		ReceivedAt:      s.clock.Now(),
	}
	inserted, err := s.repo.InsertEvent(ctx, s.db, record)
	if err != nil {
		return nil, false, err
	}
	if inserted {
		return record, true, nil
	}
	existing, err := s.repo.FindEvent(ctx, s.db, event.Provider, event.ID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, paymentdomain.ErrInvalidEvent
	}
	return existing, false, nil
}

// dispatch routes on the flow tag. Untagged events try commerce first and
// fall back to signup only for completed checkouts.
func (s *Service) dispatch(ctx context.Context, event paymentdomain.Event) (string, error) {
	switch event.Flow() {
	case paymentdomain.FlowCommerce:
		return s.run(ctx, s.commerce, paymentdomain.HandlerCommerce, event)
	case paymentdomain.FlowSignup:
		return s.run(ctx, s.signup, paymentdomain.HandlerSignup, event)
	case "":
	default:
		s.log.Warn("webhook carries unknown flow tag",
			zap.String("event_id", event.ID),
			zap.String("flow", event.Flow()),
		)
		return paymentdomain.HandlerNone, nil
	}

	handler, err := s.run(ctx, s.commerce, paymentdomain.HandlerCommerce, event)
	if err != nil || handler != paymentdomain.HandlerNone {
		return handler, err
	}
	if event.Type != paymentdomain.EventCheckoutCompleted {
		return paymentdomain.HandlerNone, nil
	}
	return s.run(ctx, s.signup, paymentdomain.HandlerSignup, event)
}

func (s *Service) run(ctx context.Context, h paymentdomain.EventHandler, name string, event paymentdomain.Event) (string, error) {
	if h == nil {
		return paymentdomain.HandlerNone, nil
	}
	handled, err := h.HandleEvent(ctx, event)
	if err != nil {
		return "", err
	}
	if !handled {
		return paymentdomain.HandlerNone, nil
	}
	return name, nil
}
