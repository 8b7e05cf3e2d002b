package payment

import (
	"github.com/smallbiznis/frontdesk/internal/payment/adapters/stripe"
	"github.com/smallbiznis/frontdesk/internal/payment/repository"
	"github.com/smallbiznis/frontdesk/internal/payment/webhook"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.service",
	stripe.Module,
	fx.Provide(repository.Provide),
	fx.Provide(webhook.NewService),
)
