package tunnel

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Stats summarizes the samples between two marked times.
type Stats struct {
	Start  float64 `json:"start"`
	End    float64 `json:"end"`
	Range  float64 `json:"range"` // End - Start
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// StatsBetween computes Stats over the same half-open sample range as
// AverageBetween.
func (ch *Channel) StatsBetween(start, end float64) (Stats, error) {
	first, last, err := ch.indexRange(start, end)
	if err != nil {
		return Stats{}, err
	}
	window := ch.samples[first:last]

	s := Stats{
		Start: start,
		End:   end,
		Range: end - start,
		Count: len(window),
		Min:   floats.Min(window),
		Max:   floats.Max(window),
	}
	if len(window) == 1 {
		s.Mean = window[0]
	} else {
		s.Mean, s.StdDev = stat.MeanStdDev(window, nil)
	}
	return s, nil
}

// TimeExtent returns the earliest and latest sample times over all channels.
// Channels without samples are skipped.
func TimeExtent(channels ...*Channel) (float64, float64, error) {
	var (
		lo, hi float64
		seen   bool
	)
	for _, ch := range channels {
		if ch == nil || len(ch.times) == 0 {
			continue
		}
		first, last := ch.times[0], ch.times[len(ch.times)-1]
		if !seen || first < lo {
			lo = first
		}
		if !seen || last > hi {
			hi = last
		}
		seen = true
	}
	if !seen {
		return 0, 0, ErrEmptyTimes
	}
	return lo, hi, nil
}
