package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"storefront/internal/domain/user"
	"storefront/internal/handler/api"
	"storefront/internal/handler/middleware"
	"storefront/internal/infra/metrics"
	"storefront/internal/pkg/config"
)

type route struct {
	Method  string
	Path    string
	Handler gin.HandlerFunc
	Mw      []gin.HandlerFunc
}

type Handlers struct {
	Orders   *api.OrderHandler
	Carts    *api.CartHandler
	Products *api.ProductHandler
}

func NewRouter(engine *gin.Engine, cfg config.Config, h Handlers, authMiddleware *middleware.AuthMiddleware, reqLogger *middleware.Logger, m *metrics.Metrics) {
	setupMiddleware(engine, cfg, reqLogger, m)
	setupRoutes(engine, h, authMiddleware, m)
}

func setupMiddleware(engine *gin.Engine, cfg config.Config, reqLogger *middleware.Logger, m *metrics.Metrics) {
	// Recovery must be first (outermost) to catch panics from all other middleware
	engine.Use(middleware.CustomRecovery())
	engine.Use(middleware.NewCORSMiddleware(cfg.CORS))
	engine.Use(m.Middleware())
	engine.Use(reqLogger.Middleware())
	engine.Use(middleware.ErrorHandler())
}

func setupRoutes(engine *gin.Engine, h Handlers, authMiddleware *middleware.AuthMiddleware, m *metrics.Metrics) {
	engine.GET("/health", healthCheck)
	engine.GET("/metrics", gin.WrapH(m.Handler()))

	if gin.Mode() == gin.DebugMode {
		engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	adminOnly := []gin.HandlerFunc{authMiddleware.RequireRole(user.RoleAdmin)}

	orders := engine.Group("/orders")
	orders.Use(authMiddleware.RequireAuth())
	{
		addRoutes(orders, []route{
			{Method: http.MethodPost, Path: "", Handler: h.Orders.Create},
			{Method: http.MethodGet, Path: "", Handler: h.Orders.List},
			{Method: http.MethodGet, Path: "/:id", Handler: h.Orders.Get},
			{Method: http.MethodPatch, Path: "/:id/status", Handler: h.Orders.UpdateStatus, Mw: adminOnly},
			{Method: http.MethodDelete, Path: "/:id/cancel", Handler: h.Orders.Cancel},
		})
	}

	cart := engine.Group("/cart")
	cart.Use(authMiddleware.RequireAuth())
	{
		addRoutes(cart, []route{
			{Method: http.MethodGet, Path: "", Handler: h.Carts.Get},
			{Method: http.MethodDelete, Path: "", Handler: h.Carts.Clear},
			{Method: http.MethodPost, Path: "/items", Handler: h.Carts.AddItem},
			{Method: http.MethodPatch, Path: "/items/:sku", Handler: h.Carts.UpdateItem},
			{Method: http.MethodDelete, Path: "/items/:sku", Handler: h.Carts.RemoveItem},
		})
	}

	products := engine.Group("/products")
	{
		addRoutes(products, []route{
			{Method: http.MethodGet, Path: "", Handler: h.Products.List},
			{Method: http.MethodGet, Path: "/:id", Handler: h.Products.Get},
		})

		admin := products.Group("")
		admin.Use(authMiddleware.RequireAuth(), authMiddleware.RequireRole(user.RoleAdmin))
		addRoutes(admin, []route{
			{Method: http.MethodPost, Path: "", Handler: h.Products.Create},
			{Method: http.MethodPatch, Path: "/:id/variants/:sku", Handler: h.Products.UpdateVariant},
			{Method: http.MethodDelete, Path: "/:id", Handler: h.Products.Delete},
		})
	}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"message": "Service is healthy",
	})
}

func addRoutes(g *gin.RouterGroup, rs []route) {
	for _, r := range rs {
		h := r.Handler
		if len(r.Mw) > 0 {
			h = chainHandlers(append(r.Mw, r.Handler)...)
		}
		switch r.Method {
		case http.MethodGet:
			g.GET(r.Path, h)
		case http.MethodPost:
			g.POST(r.Path, h)
		case http.MethodPut:
			g.PUT(r.Path, h)
		case http.MethodPatch:
			g.PATCH(r.Path, h)
		case http.MethodDelete:
			g.DELETE(r.Path, h)
		default:
			g.Any(r.Path, h)
		}
	}
}

func chainHandlers(hs ...gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		for _, h := range hs {
			h(c)
			if c.IsAborted() {
				return
			}
		}
	}
}
