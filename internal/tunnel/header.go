package tunnel

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// HeaderLines is the number of lines at the top of a data file that make up
// the header block, title line included.
const HeaderLines = 22

// Recognized header keys.
const (
	KeyGain                   = "gain"
	KeyTransducerSensitivity  = "transducerSensitivity"
	KeyDataUnits              = "dataUnits"
	KeyTransducerLocation     = "transducerLocation"
	KeyTransducerSerialNumber = "transducerSerialNumber"
	KeyTransducerType         = "transducerType"
	KeyDataPoints             = "dataPoints"
	KeyTimeStart              = "timeStart"
	KeyTimeInterval           = "timeInterval"
)

type headerSetter func(ch *Channel, value string) error

// headerFields maps each recognized key onto the Channel field it sets.
// Keys missing from this table are kept in the header map only.
var headerFields = map[string]headerSetter{
	KeyGain:                   floatSetter(func(ch *Channel, v float64) { ch.ExternalGain = v }),
	KeyTransducerSensitivity:  floatSetter(func(ch *Channel, v float64) { ch.Sensitivity = v }),
	KeyDataUnits:              stringSetter(func(ch *Channel, v string) { ch.Units = v }),
	KeyTransducerLocation:     stringSetter(func(ch *Channel, v string) { ch.Position = v }),
	KeyTransducerSerialNumber: stringSetter(func(ch *Channel, v string) { ch.SerialNo = v }),
	KeyTransducerType:         stringSetter(func(ch *Channel, v string) { ch.TransducerType = v }),
	KeyDataPoints: func(ch *Channel, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return err
		}
		if n < 0 {
			return errors.Errorf("negative count %d", n)
		}
		ch.DeclaredDataPoints = n
		return nil
	},
	KeyTimeStart:    floatSetter(func(ch *Channel, v float64) { ch.StartTime = v }),
	KeyTimeInterval: floatSetter(func(ch *Channel, v float64) { ch.SampleInterval = v }),
}

func floatSetter(set func(*Channel, float64)) headerSetter {
	return func(ch *Channel, value string) error {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		set(ch, v)
		return nil
	}
}

func stringSetter(set func(*Channel, string)) headerSetter {
	return func(ch *Channel, value string) error {
		set(ch, value)
		return nil
	}
}

// applyHeader reads the header block into ch. Line 0 is the title. Every
// other line is "<index> <key> <value...>"; the value is the remaining
// tokens joined by a single space. Later lines win on duplicate keys.
func applyHeader(ch *Channel, lines []string) error {
	ch.header = make(map[string]string, len(lines))
	for i, line := range lines {
		if i == 0 {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		key := fields[1]
		value := strings.Join(fields[2:], " ")
		ch.header[key] = value

		set, ok := headerFields[key]
		if !ok {
			continue
		}
		if err := set(ch, value); err != nil {
			return &HeaderValueError{Key: key, Value: value, Err: err}
		}
	}

	if _, ok := ch.header[KeyTimeInterval]; !ok {
		return &HeaderValueError{Key: KeyTimeInterval, Err: errors.New("missing")}
	}
	if !(ch.SampleInterval > 0) {
		return &HeaderValueError{
			Key:   KeyTimeInterval,
			Value: ch.header[KeyTimeInterval],
			Err:   errors.New("sample interval must be positive"),
		}
	}
	return nil
}
