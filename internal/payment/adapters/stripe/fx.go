package stripe

import (
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("payment.stripe",
	fx.Provide(
		fx.Annotate(NewClient, fx.As(new(paymentdomain.Processor))),
		fx.Annotate(NewAdapter, fx.As(new(paymentdomain.WebhookAdapter))),
	),
)
