package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/auth"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/balance"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/billing"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/booking"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/config"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/escrow"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/gateway"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/notify"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/payment"
	"github.com/burucburcan/technician-marketplace-backend-sub004/internal/tax"
)

type Server struct {
	router    *gin.Engine
	db        *sqlx.DB
	config    *config.Config
	httpSrv   *http.Server
	Scheduler *escrow.Scheduler
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) (*Server, error) {
	router := gin.Default()
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	taxCfg := tax.Config{
		CommissionRate: cfg.CommissionRate,
		DefaultRate:    cfg.DefaultTaxRate,
		Rates:          cfg.TaxRates,
	}

	codec, err := payment.NewFieldCodec(cfg.TaxIDKey)
	if err != nil {
		return nil, err
	}

	gw := gateway.NewHTTPAdapter(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayWebhookSecret, cfg.GatewayTimeout)

	bookingRepo := booking.NewRepository(db)
	balanceRepo := balance.NewRepository(db)
	paymentRepo := payment.NewRepository(db, codec)
	billingRepo := billing.NewRepository(db)

	paymentService := payment.NewService(paymentRepo, bookingRepo, balanceRepo, gw, notifier, taxCfg)
	balanceService := balance.NewService(balanceRepo, gw, notifier)
	billingService := billing.NewService(billingRepo, paymentRepo, bookingRepo, notifier, taxCfg)

	scheduler := escrow.NewScheduler(paymentService, bookingRepo, cfg.EscrowHold, cfg.SweepInterval)

	paymentHandler := payment.NewHandler(paymentService, gw)
	balanceHandler := balance.NewHandler(balanceService)
	billingHandler := billing.NewHandler(billingService)
	escrowHandler := escrow.NewHandler(scheduler)

	router.POST("/webhooks/gateway", paymentHandler.Webhook)

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/payments/intent", paymentHandler.CreateIntent)
		protected.POST("/payments/capture", paymentHandler.Capture)
		protected.POST("/payments/:paymentID/refund", paymentHandler.Refund)
		protected.POST("/payments/:paymentID/invoice", billingHandler.GenerateInvoice)
		protected.POST("/payments/:paymentID/receipt", billingHandler.GenerateReceipt)
		protected.GET("/invoices/:invoiceID", billingHandler.GetInvoice)
		protected.POST("/bookings/:bookingID/release", paymentHandler.Release)
		protected.GET("/bookings/:bookingID/escrow", escrowHandler.GetStatus)
	}

	professional := router.Group("/balance")
	professional.Use(authMiddleware, auth.RequireRole(auth.RoleProfessional))
	{
		professional.GET("", balanceHandler.GetBalance)
		professional.GET("/entries", balanceHandler.ListEntries)
		professional.GET("/payouts", balanceHandler.ListPayouts)
		professional.POST("/payouts", balanceHandler.RequestPayout)
		professional.DELETE("/payouts/:payoutID", balanceHandler.CancelPayout)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole(auth.RoleAdmin))
	{
		admin.POST("/payouts/:payoutID/process", balanceHandler.ProcessPayout)
		admin.POST("/escrow/sweep", escrowHandler.RunSweep)
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-notification", TestNotification(notifier))

	SetupSwagger(router)

	return &Server{
		router:    router,
		db:        db,
		config:    cfg,
		Scheduler: scheduler,
	}, nil
}

func (s *Server) Start(port string) error {
	s.httpSrv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
