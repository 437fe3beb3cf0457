package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/spectriclabs/tunnel-data-service/internal/numerical"
	"github.com/spectriclabs/tunnel-data-service/internal/tunnel"
)

// ChannelResponse is the JSON form of a loaded channel.
type ChannelResponse struct {
	Dataset            string    `json:"dataset"`
	Name               string    `json:"name"`
	CardID             int       `json:"card_id"`
	ChannelID          int       `json:"channel_id"`
	CompositeID        int       `json:"composite_id"`
	ExternalGain       float64   `json:"external_gain"`
	Sensitivity        float64   `json:"sensitivity"`
	Units              string    `json:"units"`
	Position           string    `json:"position"`
	SerialNo           string    `json:"serial_no"`
	TransducerType     string    `json:"transducer_type"`
	MinVolts           float64   `json:"min_volts"`
	MaxVolts           float64   `json:"max_volts"`
	NumberDataPoints   int       `json:"number_data_points"`
	DeclaredDataPoints int       `json:"declared_data_points"`
	StartTime          float64   `json:"start_time"`
	SampleInterval     float64   `json:"sample_interval"`
	Transform          string    `json:"transform,omitempty"`
	Times              []float64 `json:"times"`
	Samples            []float64 `json:"samples"`
}

// NewChannelResponse converts ch, decimating times and samples to outxsize
// points when outxsize is positive and smaller than the channel. Decimated
// times are the time of the first sample of each bucket.
func NewChannelResponse(ch *tunnel.Channel, outxsize int, transform string) ChannelResponse {
	resp := ChannelResponse{
		Dataset:            ch.Dataset,
		Name:               ch.Name,
		CardID:             ch.CardID,
		ChannelID:          ch.ChannelID,
		CompositeID:        ch.CompositeID,
		ExternalGain:       ch.ExternalGain,
		Sensitivity:        ch.Sensitivity,
		Units:              ch.Units,
		Position:           ch.Position,
		SerialNo:           ch.SerialNo,
		TransducerType:     ch.TransducerType,
		MinVolts:           ch.MinVolts,
		MaxVolts:           ch.MaxVolts,
		NumberDataPoints:   ch.NumberDataPoints,
		DeclaredDataPoints: ch.DeclaredDataPoints,
		StartTime:          ch.StartTime,
		SampleInterval:     ch.SampleInterval,
	}
	if outxsize > 0 && outxsize < ch.Len() {
		resp.Transform = transform
		resp.Times = numerical.Decimate(ch.Times(), outxsize, numerical.First)
		resp.Samples = numerical.Decimate(ch.Samples(), outxsize, transform)
	} else {
		resp.Times = ch.Times()
		resp.Samples = ch.Samples()
	}
	return resp
}

// AverageResponse is returned by GetAverage.
type AverageResponse struct {
	Dataset string  `json:"dataset"`
	Channel string  `json:"channel"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Range   float64 `json:"range"`
	Average float64 `json:"average"`
}

// GetChannelNames lists the channels of a dataset. With ?match=glob only
// matching names are listed, at most ?limit (default match_limit) of them.
func (a *API) GetChannelNames(c echo.Context) error {
	locationName := c.Param("location")
	dataset := c.Param("dataset")

	var pattern string
	limit := a.Cfg.MatchLimit
	if err := echo.QueryParamsBinder(c).
		String("match", &pattern).
		Int("limit", &limit).
		BindError(); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ix, directory, err := a.index(locationName)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	var names []string
	if pattern != "" {
		names, err = ix.MatchChannelNames(dataset, directory, pattern, limit)
	} else {
		names, err = ix.ListChannelNames(dataset, directory)
	}
	if err != nil {
		return a.fail(c, err)
	}
	if names == nil {
		names = []string{}
	}
	return c.JSON(http.StatusOK, names)
}

// GetChannel returns one channel, decimated to ?outxsize points with
// ?transform (default mean) when requested.
func (a *API) GetChannel(c echo.Context) error {
	var outxsize int
	transform := numerical.Mean
	if err := echo.QueryParamsBinder(c).
		Int("outxsize", &outxsize).
		String("transform", &transform).
		BindError(); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	if outxsize < 0 {
		return c.String(http.StatusBadRequest, "outxsize must be >= 0")
	}
	if !numerical.ValidTransform(transform) {
		return c.String(http.StatusBadRequest, "unknown transform "+transform)
	}

	ch, err := a.loadChannel(c)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, NewChannelResponse(ch, outxsize, transform))
}

// GetAverage returns the average of a channel between ?start and ?end.
func (a *API) GetAverage(c echo.Context) error {
	start, end, err := bindRange(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	ch, err := a.loadChannel(c)
	if err != nil {
		return a.fail(c, err)
	}
	avg, err := ch.AverageBetween(start, end)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, AverageResponse{
		Dataset: ch.Dataset,
		Channel: ch.Name,
		Start:   start,
		End:     end,
		Range:   end - start,
		Average: avg,
	})
}

// GetStats returns range statistics of a channel between ?start and ?end.
func (a *API) GetStats(c echo.Context) error {
	start, end, err := bindRange(c)
	if err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}
	ch, err := a.loadChannel(c)
	if err != nil {
		return a.fail(c, err)
	}
	stats, err := ch.StatsBetween(start, end)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

func (a *API) loadChannel(c echo.Context) (*tunnel.Channel, error) {
	ix, directory, err := a.index(c.Param("location"))
	if err != nil {
		return nil, err
	}
	return ix.LoadNamedChannel(c.Param("dataset"), directory, c.Param("channel"))
}

// bindRange reads the required ?start and ?end times. A reversed range is
// rejected here, before any index resolution.
func bindRange(c echo.Context) (float64, float64, error) {
	var start, end float64
	if err := echo.QueryParamsBinder(c).
		MustFloat64("start", &start).
		MustFloat64("end", &end).
		BindError(); err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, errors.New("start must not be after end")
	}
	return start, end, nil
}
