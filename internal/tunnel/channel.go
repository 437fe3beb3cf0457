package tunnel

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// Channel is one recorded signal of a dataset: calibration metadata read from
// the data file header plus a uniformly sampled time series. A Channel is
// built once by a Loader and not modified afterwards; the series is only
// reachable through methods that copy or index it.
type Channel struct {
	Dataset     string
	Name        string
	CardID      int
	ChannelID   int
	CompositeID int

	ExternalGain   float64 // Gain of the external amplifier
	Sensitivity    float64 // Transducer sensitivity, V/unit
	Units          string
	Position       string // Transducer location as written in the header
	SerialNo       string
	TransducerType string
	MinVolts       float64
	MaxVolts       float64

	NumberDataPoints   int     // Number of parsed samples
	DeclaredDataPoints int     // dataPoints from the header, -1 when absent
	StartTime          float64 // Seconds
	SampleInterval     float64 // Seconds

	header  map[string]string
	samples []float64
	times   []float64
}

func newChannel(dataset string, d Descriptor) *Channel {
	return &Channel{
		Dataset:            dataset,
		Name:               d.Name,
		CardID:             d.CardID,
		ChannelID:          d.ChannelID,
		CompositeID:        d.CompositeID(),
		ExternalGain:       1.0,
		Sensitivity:        1.0,
		Position:           "0.0",
		MinVolts:           -10.0,
		MaxVolts:           10.0,
		DeclaredDataPoints: -1,
	}
}

func (ch *Channel) String() string {
	return fmt.Sprintf("%s: %s", ch.Dataset, ch.Name)
}

// Descriptor returns the manifest entry the channel was loaded from.
func (ch *Channel) Descriptor() Descriptor {
	return Descriptor{Name: ch.Name, CardID: ch.CardID, ChannelID: ch.ChannelID}
}

// Len returns the number of samples.
func (ch *Channel) Len() int { return len(ch.samples) }

// Sample returns the i-th sample.
func (ch *Channel) Sample(i int) float64 { return ch.samples[i] }

// Time returns the time stamp of the i-th sample.
func (ch *Channel) Time(i int) float64 { return ch.times[i] }

// Samples returns a copy of the samples.
func (ch *Channel) Samples() []float64 {
	return append([]float64(nil), ch.samples...)
}

// Times returns a copy of the sample time stamps.
func (ch *Channel) Times() []float64 {
	return append([]float64(nil), ch.times...)
}

// HeaderValue returns the raw header value stored under key, including keys
// the loader does not interpret.
func (ch *Channel) HeaderValue(key string) (string, bool) {
	v, ok := ch.header[key]
	return v, ok
}

// NearestIndex returns the index of the element of times closest to value.
// Ties go to the lower index.
func NearestIndex(times []float64, value float64) (int, error) {
	if len(times) == 0 {
		return 0, ErrEmptyTimes
	}
	best := 0
	bestDiff := math.Abs(times[0] - value)
	for i := 1; i < len(times); i++ {
		if diff := math.Abs(times[i] - value); diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best, nil
}

// indexRange resolves start and end times into the half-open sample range
// [first, last).
func (ch *Channel) indexRange(start, end float64) (int, int, error) {
	first, err := NearestIndex(ch.times, start)
	if err != nil {
		return 0, 0, err
	}
	last, err := NearestIndex(ch.times, end)
	if err != nil {
		return 0, 0, err
	}
	if first >= last {
		return 0, 0, errors.Wrapf(ErrEmptyRange, "times %g to %g resolve to indices %d to %d", start, end, first, last)
	}
	return first, last, nil
}

// AverageBetween returns the mean of the samples from the one nearest start
// (inclusive) to the one nearest end (exclusive). A zero-width range, such
// as start == end, is ErrEmptyRange.
func (ch *Channel) AverageBetween(start, end float64) (float64, error) {
	first, last, err := ch.indexRange(start, end)
	if err != nil {
		return 0, err
	}
	return stat.Mean(ch.samples[first:last], nil), nil
}
