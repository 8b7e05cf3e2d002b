package staff

import (
	"github.com/smallbiznis/frontdesk/internal/staff/repository"
	"github.com/smallbiznis/frontdesk/internal/staff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("staff.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
