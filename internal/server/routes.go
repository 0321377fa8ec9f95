package server

import (
	"storefront/internal/handler"

	"github.com/labstack/echo/v4"
)

type Handlers struct {
	Health  *handler.HealthHandler
	Product *handler.ProductHandler
	Cart    *handler.CartHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, cartToken echo.MiddlewareFunc) {
	h.Health.RegisterRoutes(e)
	h.Product.RegisterRoutes(e)
	h.Cart.RegisterRoutes(e, cartToken)
}
