package signup

import (
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/signup/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("signup.service",
	fx.Provide(
		fx.Annotate(NewMemberProvisioner, fx.As(new(domain.Provisioner))),
	),
	fx.Provide(NewService),
	fx.Provide(
		fx.Annotate(
			func(svc domain.Service) paymentdomain.EventHandler {
				return paymentdomain.EventHandlerFunc(svc.HandleCheckoutCompleted)
			},
			fx.ResultTags(`name:"signup_handler"`),
		),
	),
)
