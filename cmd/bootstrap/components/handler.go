package components

import (
	"storefront/internal/handler"
	"storefront/internal/handler/api"
	"storefront/internal/handler/middleware"

	"go.uber.org/fx"
)

var HandlerModule = fx.Module("handler",
	fx.Provide(
		api.NewOrderHandler,
		api.NewCartHandler,
		api.NewProductHandler,
		middleware.NewAuthMiddleware,
		func(orders *api.OrderHandler, carts *api.CartHandler, products *api.ProductHandler) handler.Handlers {
			return handler.Handlers{Orders: orders, Carts: carts, Products: products}
		},
	),
	fx.Invoke(handler.NewRouter),
)
