package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo-contrib/prometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.elastic.co/apm/module/apmhttp"
	"go.uber.org/zap"

	"github.com/spectriclabs/tunnel-data-service/internal/api"
	"github.com/spectriclabs/tunnel-data-service/internal/cache"
	"github.com/spectriclabs/tunnel-data-service/internal/config"
)

var (
	metricsOnce sync.Once
	metrics     *prometheus.Prometheus
)

// SetupServer builds the echo server with every route of the data service.
func SetupServer(tdsapi *api.API) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Debug = tdsapi.Cfg.Debug
	e.JSONSerializer = api.JSONSerializer{}

	logger := tdsapi.Logger

	// Setup Middleware
	e.Use(middleware.CORS())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info(
				"Handled request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	// Location and dataset routes
	e.GET("/tds/locations", tdsapi.GetFileLocations)
	e.GET("/tds/:location", tdsapi.GetDatasets)

	// Channel routes
	e.GET("/tds/:location/:dataset/channels", tdsapi.GetChannelNames)
	e.GET("/tds/:location/:dataset/channels/:channel", tdsapi.GetChannel)
	e.GET("/tds/:location/:dataset/channels/:channel/average", tdsapi.GetAverage)
	e.GET("/tds/:location/:dataset/channels/:channel/stats", tdsapi.GetStats)
	e.GET("/tds/:location/:dataset/export", tdsapi.GetExport)

	// Add Prometheus as middleware for metrics gathering. Collectors are
	// registered once per process.
	metricsOnce.Do(func() {
		metrics = prometheus.NewPrometheus("tunnel_data_service", nil)
	})
	metrics.Use(e)

	return e
}

// SetupCache creates the cache directories and starts the purge loop for
// fetched minio objects. The loop stops with ctx.
func SetupCache(ctx context.Context, cfg *config.Configuration, tdsCache *cache.Cache, logger *zap.Logger) error {
	if err := tdsCache.Setup(); err != nil {
		return err
	}
	minioPath := filepath.Join(cfg.CacheLocation, cache.MinioSubDir)
	go cache.CheckCache(ctx, minioPath, cfg.CheckCacheEvery, cfg.CacheMaxBytes, logger)
	return nil
}

// StartServer serves the API on the configured host and port until an
// interrupt, then shuts down with a timeout of 10 seconds.
func StartServer(cfg *config.Configuration, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tdsapi := api.NewTDSAPI(cfg, logger)
	if cfg.UseCache {
		if err := SetupCache(ctx, cfg, tdsapi.Cache, logger); err != nil {
			logger.Error(
				"Error creating cache directory, continuing without cache",
				zap.String("cache_location", cfg.CacheLocation),
				zap.Error(err),
			)
			cfg.UseCache = false
		}
	}

	e := SetupServer(tdsapi)

	var handler http.Handler = e
	if cfg.EnableAPM {
		handler = apmhttp.Wrap(e)
	}

	address := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		logger.Info("Starting server", zap.String("address", address))
		errs <- srv.ListenAndServe()
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down the server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
