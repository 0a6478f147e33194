package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/gin-gonic/gin"
	"github.com/masaladesk/masaladesk/internal/authorization"
	"github.com/masaladesk/masaladesk/internal/catalog"
	catalogdomain "github.com/masaladesk/masaladesk/internal/catalog/domain"
	"github.com/masaladesk/masaladesk/internal/config"
	"github.com/masaladesk/masaladesk/internal/inventory"
	inventorydomain "github.com/masaladesk/masaladesk/internal/inventory/domain"
	"github.com/masaladesk/masaladesk/internal/invoice"
	invoicedomain "github.com/masaladesk/masaladesk/internal/invoice/domain"
	"github.com/masaladesk/masaladesk/internal/locking"
	"github.com/masaladesk/masaladesk/internal/observability"
	obsmiddleware "github.com/masaladesk/masaladesk/internal/observability/logger"
	obstracing "github.com/masaladesk/masaladesk/internal/observability/tracing"
	"github.com/masaladesk/masaladesk/internal/order"
	orderdomain "github.com/masaladesk/masaladesk/internal/order/domain"
	"github.com/masaladesk/masaladesk/internal/purchase"
	purchasedomain "github.com/masaladesk/masaladesk/internal/purchase/domain"
	"github.com/masaladesk/masaladesk/internal/tax"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	locking.Module,
	tax.Module,
	catalog.Module,
	inventory.Module,
	invoice.Module,
	order.Module,
	purchase.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	db          *gorm.DB
	genID       *snowflake.Node
	enforcer    *casbin.Enforcer
	catalogSvc  catalogdomain.Service
	orderSvc    orderdomain.Service
	invoiceSvc  invoicedomain.Service
	purchaseSvc purchasedomain.Service
	ledger      inventorydomain.Ledger
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DB          *gorm.DB
	GenID       *snowflake.Node
	Enforcer    *casbin.Enforcer
	CatalogSvc  catalogdomain.Service
	OrderSvc    orderdomain.Service
	InvoiceSvc  invoicedomain.Service
	PurchaseSvc purchasedomain.Service
	Ledger      inventorydomain.Ledger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		db:          p.DB,
		genID:       p.GenID,
		enforcer:    p.Enforcer,
		catalogSvc:  p.CatalogSvc,
		orderSvc:    p.OrderSvc,
		invoiceSvc:  p.InvoiceSvc,
		purchaseSvc: p.PurchaseSvc,
		ledger:      p.Ledger,
	}

	svc.registerRoutes()
	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) require(act string) gin.HandlerFunc {
	return authorization.Require(s.enforcer, act)
}

func (s *Server) registerRoutes() {
	v1 := s.engine.Group("/v1")

	// -------- Catalog --------
	v1.GET("/products", s.ListProducts)
	v1.POST("/products", s.require(authorization.ActCatalogWrite), s.CreateProduct)
	v1.GET("/products/:id", s.GetProductByID)
	v1.PATCH("/products/:id", s.require(authorization.ActCatalogWrite), s.UpdateProduct)
	v1.GET("/menu-items", s.ListMenuItems)
	v1.POST("/menu-items", s.require(authorization.ActCatalogWrite), s.CreateMenuItem)
	v1.GET("/menu-items/:id", s.GetMenuItemByID)
	v1.GET("/payment-methods", s.ListPaymentMethods)

	// -------- Inventory --------
	v1.GET("/products/:id/stock", s.GetStock)
	v1.GET("/products/:id/movements", s.ListMovements)
	v1.POST("/products/:id/adjust", s.require(authorization.ActInventoryAdjust), s.AdjustStock)
	v1.GET("/products/:id/audit", s.AuditStock)
	v1.POST("/products/:id/rebuild", s.require(authorization.ActInventoryRepair), s.RebuildStock)

	// -------- Orders --------
	v1.POST("/orders", s.require(authorization.ActOrderCreate), s.CreateOrder)
	v1.GET("/orders", s.ListOrders)
	v1.GET("/orders/:id", s.GetOrderByID)
	v1.POST("/orders/:id/transition", s.require(authorization.ActOrderTransition), s.TransitionOrder)
	v1.POST("/orders/:id/finalize", s.require(authorization.ActOrderFinalize), s.FinalizeOrder)
	v1.POST("/orders/:id/cancel", s.require(authorization.ActOrderCancel), s.CancelOrder)
	v1.POST("/orders/:id/reverse", s.require(authorization.ActOrderReverse), s.ReverseOrder)
	v1.DELETE("/orders/:id", s.require(authorization.ActOrderDelete), s.DeleteOrder)

	// -------- Invoices --------
	v1.GET("/invoices", s.ListInvoices)
	v1.GET("/invoices/:id", s.GetInvoiceByID)
	v1.POST("/invoices/:id/payments", s.require(authorization.ActInvoicePay), s.ApplyInvoicePayment)
	v1.POST("/invoices/refresh-overdue", s.require(authorization.ActInvoiceOverdue), s.RefreshOverdueInvoices)

	// -------- Purchases --------
	v1.POST("/purchases", s.require(authorization.ActPurchaseWrite), s.CreatePurchase)
	v1.GET("/purchases", s.ListPurchases)
	v1.GET("/purchases/:id", s.GetPurchaseByID)
	v1.POST("/purchases/:id/receive", s.require(authorization.ActPurchaseWrite), s.ReceivePurchase)
	v1.POST("/purchases/:id/payments", s.require(authorization.ActPurchasePay), s.ApplyPurchasePayment)
	v1.POST("/purchases/:id/cancel", s.require(authorization.ActPurchaseWrite), s.CancelPurchase)
}
