package inventory

import (
	"github.com/masaladesk/masaladesk/internal/inventory/service"
	"go.uber.org/fx"
)

var Module = fx.Module("inventory.ledger",
	fx.Provide(service.NewService),
)
