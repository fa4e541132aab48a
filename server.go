package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"bitbucket.org/mmdatafocus/audit_backend/config"
	"bitbucket.org/mmdatafocus/audit_backend/middlewares"
	"bitbucket.org/mmdatafocus/audit_backend/models"
	"bitbucket.org/mmdatafocus/audit_backend/utils"
	"bitbucket.org/mmdatafocus/audit_backend/workflow"
)

var tracer = otel.Tracer("audit-backend")

// app carries what the handlers share.
type app struct {
	settings config.Settings
	pipeline *workflow.Pipeline
	cache    *utils.ReportCache
	logger   *logrus.Logger
}

func newApp(settings config.Settings) (*app, error) {
	pipeline, err := workflow.NewPipeline()
	if err != nil {
		return nil, err
	}
	return &app{
		settings: settings,
		pipeline: pipeline,
		cache:    utils.NewReportCache(settings.CacheSize, settings.CacheTTL, settings.LockTTL),
		logger:   config.GetLogger(),
	}, nil
}

// resolveStandard picks the body value, then the X-Accounting-Standard
// header, then the configured default.
func (a *app) resolveStandard(ctx context.Context, requested string) (models.Standard, error) {
	if requested == "" {
		requested, _ = utils.GetStandardFromContext(ctx)
	}
	if requested == "" {
		requested = a.settings.DefaultStandard
	}
	return models.ParseStandard(requested)
}

func (a *app) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestContextMiddleware())
	r.Use(middlewares.MetricsMiddleware())
	r.Use(customErrorLogger(a.logger))

	corsConfig := cors.DefaultConfig()
	if len(a.settings.CorsOrigins) == 1 && a.settings.CorsOrigins[0] == "*" {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = a.settings.CorsOrigins
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "OPTIONS")
	corsConfig.AddAllowHeaders("Origin", "Content-Type", middlewares.HeaderCorrelationId, middlewares.HeaderStandard, middlewares.HeaderProjectId)
	corsConfig.AddExposeHeaders("Content-Length", middlewares.HeaderCorrelationId)
	r.Use(cors.New(corsConfig))
	r.MaxMultipartMemory = a.settings.MaxUploadBytes

	r.GET("/healthz", healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.POST("/imports", a.importHandler())

	api.POST("/compliance/validate", a.complianceValidateHandler())
	api.POST("/compliance/realtime", a.complianceRealTimeHandler())
	api.GET("/compliance/checklist/:standard", a.checklistHandler())
	api.GET("/compliance/standards", a.standardsHandler())

	api.POST("/detector/run", a.detectorRunHandler())
	api.GET("/detector/thresholds", a.detectorThresholdsHandler())
	api.PUT("/detector/thresholds", a.updateDetectorThresholdsHandler())
	api.GET("/detector/rules", a.detectorRulesHandler())

	api.POST("/temporal/analyze", a.temporalHandler())
	api.POST("/cross-validation", a.crossValidationHandler())
	api.POST("/audit/analyze", a.auditHandler())
	api.POST("/projects/analyze", a.projectHandler())

	r.NoRoute(customNotFoundHandler)
	return r
}

// healthHandler fails only when redis is configured and connected but no
// longer answers.
func healthHandler(c *gin.Context) {
	if rdb := config.GetRedisDB(); rdb != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "redis: " + err.Error()})
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{
				"path":           c.FullPath(),
				"correlation_id": cid,
			}).Error(c.Errors.String())
		}
	}
}

func main() {
	logger := config.GetLogger()
	settings, err := config.Load()
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "config"}).Fatal(err.Error())
	}

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	a, err := newApp(settings)
	if err != nil {
		logger.WithFields(logrus.Fields{"field": "startup"}).Fatal(err.Error())
	}

	if !settings.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := &http.Server{
		Addr:              ":" + settings.Port,
		Handler:           a.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Do NOT block startup waiting for Redis; the in-process cache serves
	// until it connects.
	if settings.RedisAddress != "" {
		go func() {
			if err := config.ConnectRedisWithRetry(sigCtx, settings.RedisAddress, 10); err != nil {
				logger.WithFields(logrus.Fields{"field": "redis"}).Warn("redis unavailable, using in-process cache only: " + err.Error())
			}
		}()
	}

	logger.WithFields(logrus.Fields{
		"port":             settings.Port,
		"default_standard": settings.DefaultStandard,
	}).Info("audit backend listening")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}
	_ = config.CloseRedis()
}
