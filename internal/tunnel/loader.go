package tunnel

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"
)

// Loader turns channel descriptors into loaded Channels.
type Loader struct {
	source Source
	logger *zap.Logger
}

// NewLoader returns a Loader reading data files from source.
func NewLoader(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{source: source, logger: logger}
}

// DataFileName returns "{dataset}A.{composite_id}.gz".
func DataFileName(dataset string, d Descriptor) string {
	return fmt.Sprintf("%sA.%d.gz", dataset, d.CompositeID())
}

// DataFilePath returns directory/dataset/DataFileName(dataset, d).
func DataFilePath(dataset, directory string, d Descriptor) string {
	return filepath.Join(directory, dataset, DataFileName(dataset, d))
}

// Load reads, decompresses and parses the data file of one channel.
func (l *Loader) Load(dataset, directory string, d Descriptor) (*Channel, error) {
	start := time.Now()
	p := DataFilePath(dataset, directory, d)

	content, err := l.readAll(p)
	if err != nil {
		return nil, &PathError{Kind: ErrDataFileNotFound, Path: p, Err: err}
	}

	ch, err := parseChannel(dataset, d, content)
	if err != nil {
		l.logger.Error(
			"Error parsing channel data",
			zap.String("dataset", dataset),
			zap.String("channel", d.Name),
			zap.String("path", p),
			zap.Error(err),
		)
		return nil, err
	}

	if ch.DeclaredDataPoints >= 0 && ch.DeclaredDataPoints != ch.NumberDataPoints {
		l.logger.Warn(
			"Declared data points differ from parsed samples",
			zap.String("dataset", dataset),
			zap.String("channel", d.Name),
			zap.String("path", p),
			zap.Int("declared", ch.DeclaredDataPoints),
			zap.Int("parsed", ch.NumberDataPoints),
		)
	}

	l.logger.Debug(
		"Loaded channel",
		zap.String("dataset", dataset),
		zap.String("channel", d.Name),
		zap.Int("samples", ch.NumberDataPoints),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ch, nil
}

func (l *Loader) readAll(p string) ([]byte, error) {
	rc, err := l.source.Open(p)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	zr, err := gzip.NewReader(rc)
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

// parseChannel builds a Channel from decompressed data file content.
func parseChannel(dataset string, d Descriptor, content []byte) (*Channel, error) {
	lines := strings.Split(string(content), "\n")

	headerEnd := HeaderLines
	if len(lines) < headerEnd {
		headerEnd = len(lines)
	}

	ch := newChannel(dataset, d)
	if err := applyHeader(ch, lines[:headerEnd]); err != nil {
		return nil, err
	}

	body := lines[headerEnd:]
	for len(body) > 0 && strings.TrimSpace(body[len(body)-1]) == "" {
		body = body[:len(body)-1]
	}

	samples := make([]float64, len(body))
	for i, line := range body {
		text := strings.TrimSpace(line)
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, &SampleParseError{Index: i, Text: text, Err: err}
		}
		samples[i] = v
	}

	times := make([]float64, len(samples))
	for i := range times {
		times[i] = ch.StartTime + float64(i)*ch.SampleInterval
	}

	ch.samples = samples
	ch.times = times
	ch.NumberDataPoints = len(samples)
	return ch, nil
}
