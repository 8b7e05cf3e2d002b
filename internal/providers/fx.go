package providers

import (
	"github.com/smallbiznis/frontdesk/internal/providers/email"
	"github.com/smallbiznis/frontdesk/internal/providers/pdf"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	pdf.Module,
)
