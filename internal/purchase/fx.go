package purchase

import (
	"github.com/masaladesk/masaladesk/internal/purchase/service"
	"go.uber.org/fx"
)

var Module = fx.Module("purchase.service",
	fx.Provide(service.NewService),
)
