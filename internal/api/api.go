package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/spectriclabs/tunnel-data-service/internal/cache"
	"github.com/spectriclabs/tunnel-data-service/internal/config"
	"github.com/spectriclabs/tunnel-data-service/internal/datasource"
	"github.com/spectriclabs/tunnel-data-service/internal/tunnel"
)

type API struct {
	Cfg    *config.Configuration
	Cache  *cache.Cache
	Logger *zap.Logger
}

func NewTDSAPI(cfg *config.Configuration, logger *zap.Logger) *API {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &API{
		Cfg:    cfg,
		Cache:  &cache.Cache{Location: cfg.CacheLocation},
		Logger: logger,
	}
}

func (a *API) openSource(locationName string) (datasource.Source, string, error) {
	return datasource.OpenDataSource(a.Cfg, a.Cache, a.Logger, locationName)
}

// index opens the dataset index of a configured location.
func (a *API) index(locationName string) (*tunnel.Index, string, error) {
	source, directory, err := a.openSource(locationName)
	if err != nil {
		return nil, "", err
	}
	return tunnel.NewIndex(source, a.Logger), directory, nil
}

// loadContext bounds a multi-channel load by the configured timeout.
func (a *API) loadContext(c echo.Context) (context.Context, context.CancelFunc) {
	ctx := c.Request().Context()
	if a.Cfg.LoadTimeout > 0 {
		return context.WithTimeout(ctx, time.Duration(a.Cfg.LoadTimeout)*time.Second)
	}
	return context.WithCancel(ctx)
}

// errorStatus maps load failures onto HTTP status codes: missing files and
// channels are 404, malformed data 422, anything else 400.
func errorStatus(err error) int {
	switch {
	case tunnel.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, tunnel.ErrMalformedManifestLine),
		errors.Is(err, tunnel.ErrHeaderValue),
		errors.Is(err, tunnel.ErrSampleParse):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadRequest
	}
}

func (a *API) fail(c echo.Context, err error) error {
	status := errorStatus(err)
	a.Logger.Info(
		"Request failed",
		zap.String("uri", c.Request().RequestURI),
		zap.Int("status", status),
		zap.Error(err),
	)
	return c.String(status, err.Error())
}
