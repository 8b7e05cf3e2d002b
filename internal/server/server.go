package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/frontdesk/internal/audit"
	auditdomain "github.com/smallbiznis/frontdesk/internal/audit/domain"
	"github.com/smallbiznis/frontdesk/internal/authorization"
	"github.com/smallbiznis/frontdesk/internal/checkin"
	checkindomain "github.com/smallbiznis/frontdesk/internal/checkin/domain"
	"github.com/smallbiznis/frontdesk/internal/config"
	"github.com/smallbiznis/frontdesk/internal/member"
	memberdomain "github.com/smallbiznis/frontdesk/internal/member/domain"
	"github.com/smallbiznis/frontdesk/internal/observability"
	obsmiddleware "github.com/smallbiznis/frontdesk/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/frontdesk/internal/observability/metrics"
	obstracing "github.com/smallbiznis/frontdesk/internal/observability/tracing"
	"github.com/smallbiznis/frontdesk/internal/order"
	orderdomain "github.com/smallbiznis/frontdesk/internal/order/domain"
	"github.com/smallbiznis/frontdesk/internal/payment"
	paymentdomain "github.com/smallbiznis/frontdesk/internal/payment/domain"
	"github.com/smallbiznis/frontdesk/internal/product"
	productdomain "github.com/smallbiznis/frontdesk/internal/product/domain"
	"github.com/smallbiznis/frontdesk/internal/providers"
	"github.com/smallbiznis/frontdesk/internal/ratelimit"
	"github.com/smallbiznis/frontdesk/internal/roster"
	rosterdomain "github.com/smallbiznis/frontdesk/internal/roster/domain"
	"github.com/smallbiznis/frontdesk/internal/signup"
	signupdomain "github.com/smallbiznis/frontdesk/internal/signup/domain"
	"github.com/smallbiznis/frontdesk/internal/staff"
	staffdomain "github.com/smallbiznis/frontdesk/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	ratelimit.Module,
	providers.Module,
	member.Module,
	checkin.Module,
	roster.Module,
	product.Module,
	order.Module,
	payment.Module,
	signup.Module,
	staff.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
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
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	memberSvc   memberdomain.Service
	checkinSvc  checkindomain.Service
	rosterSvc   rosterdomain.Service
	productSvc  productdomain.Service
	orderSvc    orderdomain.Service
	signupSvc   signupdomain.Service
	staffSvc    staffdomain.Service
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	webhookSvc  paymentdomain.WebhookService
	kioskGuard  *ratelimit.KioskGuard
	httpMetrics *obsmetrics.HTTPMetrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	Log         *zap.Logger
	MemberSvc   memberdomain.Service
	CheckinSvc  checkindomain.Service
	RosterSvc   rosterdomain.Service
	ProductSvc  productdomain.Service
	OrderSvc    orderdomain.Service
	SignupSvc   signupdomain.Service
	StaffSvc    staffdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	WebhookSvc  paymentdomain.WebhookService
	KioskGuard  *ratelimit.KioskGuard   `optional:"true"`
	HTTPMetrics *obsmetrics.HTTPMetrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		log:         p.Log.Named("http.server"),
		memberSvc:   p.MemberSvc,
		checkinSvc:  p.CheckinSvc,
		rosterSvc:   p.RosterSvc,
		productSvc:  p.ProductSvc,
		orderSvc:    p.OrderSvc,
		signupSvc:   p.SignupSvc,
		staffSvc:    p.StaffSvc,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		webhookSvc:  p.WebhookSvc,
		kioskGuard:  p.KioskGuard,
		httpMetrics: p.HTTPMetrics,
	}

	svc.registerKioskRoutes()
	svc.registerAdminRoutes()
	svc.registerPublicRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerKioskRoutes() {
	api := s.engine.Group("/api")
	api.Use(s.KioskThrottle())

	api.POST("/checkin", s.CheckIn)
	api.GET("/kiosk/suggest", s.KioskSuggest)
	api.POST("/qr/resend", s.ResendQR)

	s.engine.SetHTMLTemplate(memberQRPage)
	s.engine.GET("/member/qr", s.MemberQRPage)
	s.engine.GET("/member/qr.png", s.MemberQRCode)
}

func (s *Server) registerAdminRoutes() {
	s.engine.POST("/api/admin/staff/init", s.InitStaffPIN)

	admin := s.engine.Group("/api")
	admin.Use(s.StaffRequired())

	admin.GET("/admin/audit_logs", s.authorize(authorization.ObjectAudit, authorization.ActionView), s.ListAuditLogs)
	admin.GET("/admin/checkins", s.authorize(authorization.ObjectCheckin, authorization.ActionView), s.RecentCheckins)

	admin.GET("/members/search", s.authorize(authorization.ObjectMember, authorization.ActionView), s.SearchMembers)
	admin.POST("/members", s.authorize(authorization.ObjectMember, authorization.ActionManage), s.CreateMember)

	admin.POST("/import_preview", s.authorize(authorization.ObjectRoster, authorization.ActionImport), s.ImportPreview)
	admin.POST("/upload_csv", s.authorize(authorization.ObjectRoster, authorization.ActionImport), s.UploadCSV)

	admin.POST("/products", s.authorize(authorization.ObjectProduct, authorization.ActionManage), s.CreateProduct)
	admin.GET("/products", s.authorize(authorization.ObjectProduct, authorization.ActionView), s.ListProducts)
	admin.GET("/products/:id", s.authorize(authorization.ObjectProduct, authorization.ActionView), s.GetProductByID)

	admin.POST("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionCreate), s.CreateOrder)
	admin.GET("/orders", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.ListOrders)
	admin.GET("/orders/:id", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.GetOrder)
	admin.GET("/orders/:id/receipt.pdf", s.authorize(authorization.ObjectOrder, authorization.ActionView), s.OrderReceipt)
}

func (s *Server) registerPublicRoutes() {
	s.engine.POST("/api/signup/checkout_session", s.KioskThrottle(), s.SignupCheckoutSession)
	s.engine.POST("/webhooks/stripe", s.StripeWebhook)
}
