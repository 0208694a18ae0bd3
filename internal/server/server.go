package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/fintelhq/spendsight/internal/analytics"
	analyticsdomain "github.com/fintelhq/spendsight/internal/analytics/domain"
	"github.com/fintelhq/spendsight/internal/chat"
	chatdomain "github.com/fintelhq/spendsight/internal/chat/domain"
	"github.com/fintelhq/spendsight/internal/clock"
	"github.com/fintelhq/spendsight/internal/config"
	"github.com/fintelhq/spendsight/internal/forecast"
	forecastdomain "github.com/fintelhq/spendsight/internal/forecast/domain"
	"github.com/fintelhq/spendsight/internal/invoice"
	invoicedomain "github.com/fintelhq/spendsight/internal/invoice/domain"
	"github.com/fintelhq/spendsight/internal/observability"
	obsmiddleware "github.com/fintelhq/spendsight/internal/observability/logger"
	obsmetrics "github.com/fintelhq/spendsight/internal/observability/metrics"
	obstracing "github.com/fintelhq/spendsight/internal/observability/tracing"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	clock.Module,
	fx.Provide(registerGin),
	analytics.Module,
	forecast.Module,
	invoice.Module,
	chat.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug: obsCfg.Debug(),
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(CORSMiddleware(cfg.CORSOrigins))
	r.Use(ErrorHandlingMiddleware(cfg))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, httpMetrics)
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
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	clock        clock.Clock
	analyticsSvc analyticsdomain.Service
	forecastSvc  forecastdomain.Service
	invoiceSvc   invoicedomain.Service
	chatSvc      chatdomain.Service
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Clock        clock.Clock
	AnalyticsSvc analyticsdomain.Service
	ForecastSvc  forecastdomain.Service
	InvoiceSvc   invoicedomain.Service
	ChatSvc      chatdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		clock:        p.Clock,
		analyticsSvc: p.AnalyticsSvc,
		forecastSvc:  p.ForecastSvc,
		invoiceSvc:   p.InvoiceSvc,
		chatSvc:      p.ChatSvc,
	}

	svc.registerRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerRoutes() {
	r := s.engine

	r.GET("/stats", s.GetStats)
	r.GET("/invoice-trends", s.GetInvoiceTrends)
	r.GET("/vendors/top10", s.GetTopVendors)
	r.GET("/vendors/invoice-stats", s.GetVendorInvoiceStats)
	r.GET("/category-spend", s.GetCategorySpend)
	r.GET("/invoices", s.ListInvoices)
	r.GET("/cash-outflow", s.GetCashOutflow)
	r.POST("/chat-with-data", s.ChatWithData)
	r.GET("/health", s.Health)
}
