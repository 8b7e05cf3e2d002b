package roster

import (
	"github.com/smallbiznis/frontdesk/internal/roster/service"
	"go.uber.org/fx"
)

var Module = fx.Module("roster.service",
	fx.Provide(service.New),
)
