package tunnel

import (
	"bufio"
	"io"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ManifestSuffix is appended to the dataset name to form the manifest file name.
const ManifestSuffix = ".config"

// Source opens dataset files. Names are paths built from the dataset
// directory, the dataset name and the file name.
type Source interface {
	Open(name string) (io.ReadCloser, error)
}

// Descriptor identifies one channel of a dataset before its data is loaded.
type Descriptor struct {
	Name      string `json:"name"`
	CardID    int    `json:"card_id"`
	ChannelID int    `json:"channel_id"`
}

// CompositeID is the numeric suffix of the channel's data file name.
func (d Descriptor) CompositeID() int {
	return 100*d.CardID + 10*d.ChannelID
}

// Index resolves dataset names into channel descriptors and loads channels
// through a Loader.
type Index struct {
	source Source
	loader *Loader
	logger *zap.Logger
}

// NewIndex returns an Index reading manifests and data files from source.
func NewIndex(source Source, logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{
		source: source,
		loader: NewLoader(source, logger),
		logger: logger,
	}
}

// ManifestPath returns directory/dataset/dataset.config.
func ManifestPath(dataset, directory string) string {
	return filepath.Join(directory, dataset, dataset+ManifestSuffix)
}

// ListChannelNames returns the channel names of the manifest in file order.
// Only the first token of each line is read, so lines with malformed
// addresses are still listed.
func (ix *Index) ListChannelNames(dataset, directory string) ([]string, error) {
	var names []string
	err := ix.scanManifest(dataset, directory, func(p string, lineNo int, fields []string, text string) (bool, error) {
		names = append(names, fields[0])
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Descriptors parses every channel line of the manifest.
func (ix *Index) Descriptors(dataset, directory string) ([]Descriptor, error) {
	var descriptors []Descriptor
	err := ix.scanManifest(dataset, directory, func(p string, lineNo int, fields []string, text string) (bool, error) {
		d, err := parseDescriptor(p, lineNo, fields, text)
		if err != nil {
			return false, err
		}
		descriptors = append(descriptors, d)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return descriptors, nil
}

// Descriptor returns the first manifest entry named name.
func (ix *Index) Descriptor(dataset, directory, name string) (Descriptor, error) {
	var (
		found Descriptor
		ok    bool
	)
	err := ix.scanManifest(dataset, directory, func(p string, lineNo int, fields []string, text string) (bool, error) {
		if fields[0] != name {
			return true, nil
		}
		d, err := parseDescriptor(p, lineNo, fields, text)
		if err != nil {
			return false, err
		}
		found, ok = d, true
		return false, nil
	})
	if err != nil {
		return Descriptor{}, err
	}
	if !ok {
		return Descriptor{}, errors.Wrapf(ErrChannelNotFound, "%s in %s", name, ManifestPath(dataset, directory))
	}
	return found, nil
}

// LoadAllChannels loads every channel of the manifest, in manifest order.
// A channel that fails to load is left out and its error is combined into
// the returned error, so callers get the channels that did load alongside
// the failures. Only a manifest that cannot be read or parsed yields no
// channels.
func (ix *Index) LoadAllChannels(dataset, directory string) ([]*Channel, error) {
	descriptors, err := ix.Descriptors(dataset, directory)
	if err != nil {
		return nil, err
	}
	var (
		channels = make([]*Channel, 0, len(descriptors))
		failures error
	)
	for _, d := range descriptors {
		ch, err := ix.loader.Load(dataset, directory, d)
		if err != nil {
			ix.logger.Warn(
				"Skipping channel that failed to load",
				zap.String("dataset", dataset),
				zap.String("channel", d.Name),
				zap.Error(err),
			)
			failures = multierr.Append(failures, &ChannelError{Name: d.Name, Err: err})
			continue
		}
		channels = append(channels, ch)
	}
	return channels, failures
}

// LoadNamedChannel loads the first channel of the manifest named name.
func (ix *Index) LoadNamedChannel(dataset, directory, name string) (*Channel, error) {
	d, err := ix.Descriptor(dataset, directory, name)
	if err != nil {
		return nil, err
	}
	return ix.loader.Load(dataset, directory, d)
}

// MatchChannelNames returns the channel names matching a shell pattern such
// as "P_IB*", in manifest order. A limit above zero caps the result.
func (ix *Index) MatchChannelNames(dataset, directory, pattern string, limit int) ([]string, error) {
	if _, err := path.Match(pattern, ""); err != nil {
		return nil, errors.Wrapf(err, "bad channel pattern %q", pattern)
	}
	names, err := ix.ListChannelNames(dataset, directory)
	if err != nil {
		return nil, err
	}
	var matched []string
	for _, name := range names {
		if ok, _ := path.Match(pattern, name); !ok {
			continue
		}
		matched = append(matched, name)
		if limit > 0 && len(matched) == limit {
			ix.logger.Debug(
				"Channel match limit reached",
				zap.String("dataset", dataset),
				zap.String("pattern", pattern),
				zap.Int("limit", limit),
			)
			break
		}
	}
	return matched, nil
}

type manifestLineFunc func(p string, lineNo int, fields []string, text string) (bool, error)

// scanManifest calls fn for each channel line of the manifest until fn
// returns false or an error.
func (ix *Index) scanManifest(dataset, directory string, fn manifestLineFunc) error {
	p := ManifestPath(dataset, directory)
	rc, err := ix.source.Open(p)
	if err != nil {
		return &PathError{Kind: ErrManifestNotFound, Path: p, Err: err}
	}
	defer rc.Close()

	scanner := bufio.NewScanner(rc)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		if strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		more, err := fn(p, lineNo, fields, text)
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return &PathError{Kind: ErrManifestNotFound, Path: p, Err: err}
	}
	return nil
}

func parseDescriptor(p string, lineNo int, fields []string, text string) (Descriptor, error) {
	lineErr := func(err error) error {
		return &ManifestLineError{Path: p, Line: lineNo, Text: text, Err: err}
	}
	if len(fields) < 3 {
		return Descriptor{}, lineErr(errors.Errorf("expected name, card id and channel id, got %d fields", len(fields)))
	}
	cardID, err := strconv.Atoi(fields[1])
	if err != nil {
		return Descriptor{}, lineErr(errors.Wrap(err, "card id"))
	}
	channelID, err := strconv.Atoi(fields[2])
	if err != nil {
		return Descriptor{}, lineErr(errors.Wrap(err, "channel id"))
	}
	if cardID < 0 {
		return Descriptor{}, lineErr(errors.Errorf("card id %d is negative", cardID))
	}
	if channelID < 0 || channelID > 7 {
		return Descriptor{}, lineErr(errors.Errorf("channel id %d outside 0-7", channelID))
	}
	return Descriptor{Name: fields[0], CardID: cardID, ChannelID: channelID}, nil
}
