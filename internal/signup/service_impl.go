package signup

import (
	"context"
	"errors"
	"fmt"

	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/normalize"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/signup/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Log         *zap.Logger
	Cfg         config.Config
	Processor   paymentdomain.Processor `optional:"true"`
	Provisioner domain.Provisioner
}

type service struct {
	log         *zap.Logger
	cfg         config.SignupConfig
	processor   paymentdomain.Processor
	provisioner domain.Provisioner
}

func NewService(p Params) domain.Service {
	return &service{
		log:         p.Log.Named("signup.service"),
		cfg:         p.Cfg.Signup,
		processor:   p.Processor,
		provisioner: p.Provisioner,
	}
}

func (s *service) StartCheckout(ctx context.Context, req domain.Request) (*domain.Checkout, error) {
	if !s.cfg.Enabled {
		return nil, domain.ErrDisabled
	}
	if s.processor == nil || !s.processor.Configured() {
		return nil, domain.ErrNotConfigured
	}

	name := normalize.Text(req.Name)
	email := normalize.EmailOrEmpty(req.Email)
	phone := normalize.PhoneOrEmpty(req.Phone)
	if name == "" || (email == "" && phone == "") {
		return nil, domain.ErrInvalidRequest
	}
	priceID := firstNonEmpty(req.PriceID, s.cfg.PriceID)
	if priceID == "" {
		return nil, domain.ErrMissingPrice
	}

	metadata := map[string]string{
		paymentdomain.MetaFlow: paymentdomain.FlowSignup,
		"name":                 name,
	}
	for key, value := range map[string]string{
		"email":    email,
		"phone":    phone,
		"birthday": normalize.Text(req.Birthday),
		"address":  normalize.Text(req.Address),
	} {
		if value != "" {
			metadata[key] = value
		}
	}

	customer, err := s.processor.CreateCustomer(ctx, paymentdomain.CustomerRequest{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Metadata: map[string]string{paymentdomain.MetaFlow: paymentdomain.FlowSignup},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	session, err := s.processor.CreateCheckoutSession(ctx, paymentdomain.CheckoutRequest{
		Mode:           paymentdomain.ModeSubscription,
		Lines:          []paymentdomain.CheckoutLine{{PriceRef: priceID, Quantity: 1}},
		CustomerID:     customer.ID,
		SuccessURL:     s.cfg.SuccessURL,
		CancelURL:      s.cfg.CancelURL,
		Metadata:       metadata,
		IdempotencyKey: "signup:" + customer.ID + ":" + priceID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}

	s.log.Info("signup checkout created",
		zap.String("customer_id", customer.ID),
		zap.String("session_id", session.ID),
	)
	return &domain.Checkout{SessionID: session.ID, URL: session.URL, CustomerID: customer.ID}, nil
}

func (s *service) HandleCheckoutCompleted(ctx context.Context, event paymentdomain.Event) (bool, error) {
	if event.Type != paymentdomain.EventCheckoutCompleted {
		return false, nil
	}
	_, err := s.provisioner.Provision(ctx, event)
	if errors.Is(err, domain.ErrNoIdentity) {
		s.log.Warn("signup checkout carried no member identity",
			zap.String("event_id", event.ID),
			zap.String("session_id", event.CheckoutSessionID),
		)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
