package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/spectriclabs/tunnel-data-service/internal/tunnel"
)

// SkippedChannelsHeader lists the channels left out of an export because
// they failed to load.
const SkippedChannelsHeader = "X-Skipped-Channels"

// GetExport returns the requested channels (?channel=a&channel=b, in that
// order) as a gnuplot-ready text table. Without ?channel every channel of the
// manifest is exported. Channels failing to load are skipped and named in
// the X-Skipped-Channels header; the export fails only when no channel loads.
func (a *API) GetExport(c echo.Context) error {
	dataset := c.Param("dataset")

	var names []string
	if err := echo.QueryParamsBinder(c).Strings("channel", &names).BindError(); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ix, directory, err := a.index(c.Param("location"))
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	var (
		channels []*tunnel.Channel
		failures error
	)
	if len(names) == 0 {
		channels, failures = ix.LoadAllChannels(dataset, directory)
	} else {
		ctx, cancel := a.loadContext(c)
		defer cancel()
		results, err := ix.LoadChannels(ctx, dataset, directory, names, a.Cfg.Workers)
		if err != nil {
			return a.fail(c, err)
		}
		for _, r := range results {
			if r.Err != nil {
				failures = multierr.Append(failures, &tunnel.ChannelError{Name: r.Name, Err: r.Err})
				continue
			}
			channels = append(channels, r.Channel)
		}
	}

	if failures != nil {
		if len(channels) == 0 {
			return a.fail(c, failures)
		}
		skipped := tunnel.FailedChannels(failures)
		a.Logger.Warn(
			"Exporting without channels that failed to load",
			zap.String("dataset", dataset),
			zap.Strings("skipped", skipped),
			zap.Error(failures),
		)
		c.Response().Header().Set(SkippedChannelsHeader, strings.Join(skipped, ","))
	}

	var buf bytes.Buffer
	if err := tunnel.WriteTable(&buf, channels, a.Logger); err != nil {
		return a.fail(c, err)
	}

	a.Logger.Debug(
		"Exported channels",
		zap.String("dataset", dataset),
		zap.Int("channels", len(channels)),
		zap.Int("bytes", buf.Len()),
	)
	c.Response().Header().Set(
		echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", dataset+".dat"),
	)
	return c.Blob(http.StatusOK, echo.MIMETextPlainCharsetUTF8, buf.Bytes())
}
