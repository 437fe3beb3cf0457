package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// GetFileLocations returns the configured locations. Credentials are not
// serialized.
func (a *API) GetFileLocations(c echo.Context) error {
	return c.JSON(http.StatusOK, a.Cfg.LocationDetails)
}

// GetDatasets lists the datasets of a location: the <name> of every
// <name>/<name>.config manifest under the location path. Minio locations are
// listed with ListObjects on the path prefix.
func (a *API) GetDatasets(c echo.Context) error {
	locationName := c.Param("location")

	source, directory, err := a.openSource(locationName)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	datasets, err := source.ListDatasets(c.Request().Context(), directory)
	if err != nil {
		a.Logger.Error(
			"Error listing datasets",
			zap.String("location_name", locationName),
			zap.String("path", directory),
			zap.Error(err),
		)
		return c.String(http.StatusBadRequest, err.Error())
	}

	a.Logger.Debug(
		"Listed datasets",
		zap.String("location_name", locationName),
		zap.String("path", directory),
		zap.Int("datasets", len(datasets)),
	)
	return c.JSON(http.StatusOK, datasets)
}
