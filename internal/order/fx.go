package order

import (
	"github.com/smallbiznis/frontdesk/internal/order/domain"
	"github.com/smallbiznis/frontdesk/internal/order/repository"
	"github.com/smallbiznis/frontdesk/internal/order/service"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("order.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Provide(
		fx.Annotate(
			func(svc domain.Service) paymentdomain.EventHandler {
				return paymentdomain.EventHandlerFunc(svc.ApplyEvent)
			},
			fx.ResultTags(`name:"commerce_handler"`),
		),
	),
)
