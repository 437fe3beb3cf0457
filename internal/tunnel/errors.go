package tunnel

import (
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

// Error kinds returned by the dataset index, the channel loader and the
// channel statistics. Every error produced by this package matches exactly
// one of them through errors.Is.
var (
	ErrManifestNotFound      = errors.New("manifest not found")
	ErrMalformedManifestLine = errors.New("malformed manifest line")
	ErrChannelNotFound       = errors.New("channel not found")
	ErrDataFileNotFound      = errors.New("data file not found")
	ErrHeaderValue           = errors.New("invalid header value")
	ErrSampleParse           = errors.New("invalid sample")
	ErrEmptyRange            = errors.New("empty range")
	ErrEmptyTimes            = errors.New("empty time series")
	ErrNothingToExport       = errors.New("nothing to export")
)

// PathError records a file that could not be found or read, along with the
// exact path that was tried.
type PathError struct {
	Kind error
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v: %s", e.Kind, e.Path)
	}
	return fmt.Sprintf("%v: %s: %v", e.Kind, e.Path, e.Err)
}

func (e *PathError) Is(target error) bool { return target == e.Kind }

func (e *PathError) Unwrap() error { return e.Err }

// ManifestLineError is returned when a manifest line cannot be split into a
// name, a card id and a channel id. Line is 1-based.
type ManifestLineError struct {
	Path string
	Line int
	Text string
	Err  error
}

func (e *ManifestLineError) Error() string {
	return fmt.Sprintf("%s:%d: %v %q: %v", e.Path, e.Line, ErrMalformedManifestLine, e.Text, e.Err)
}

func (e *ManifestLineError) Is(target error) bool { return target == ErrMalformedManifestLine }

func (e *ManifestLineError) Unwrap() error { return e.Err }

// HeaderValueError is returned when a recognized header key carries a value
// that does not parse as the field's type.
type HeaderValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *HeaderValueError) Error() string {
	return fmt.Sprintf("%v for key %s (%q): %v", ErrHeaderValue, e.Key, e.Value, e.Err)
}

func (e *HeaderValueError) Is(target error) bool { return target == ErrHeaderValue }

func (e *HeaderValueError) Unwrap() error { return e.Err }

// SampleParseError is returned when a payload line is not a number. Index is
// the 0-based sample index, not the line number in the file.
type SampleParseError struct {
	Index int
	Text  string
	Err   error
}

func (e *SampleParseError) Error() string {
	return fmt.Sprintf("%v at index %d (%q): %v", ErrSampleParse, e.Index, e.Text, e.Err)
}

func (e *SampleParseError) Is(target error) bool { return target == ErrSampleParse }

func (e *SampleParseError) Unwrap() error { return e.Err }

// ChannelError names the channel a load failure belongs to when several
// channels are loaded at once.
type ChannelError struct {
	Name string
	Err  error
}

func (e *ChannelError) Error() string { return fmt.Sprintf("%s: %v", e.Name, e.Err) }

func (e *ChannelError) Unwrap() error { return e.Err }

// FailedChannels returns the names carried by the ChannelErrors combined
// into err, in load order.
func FailedChannels(err error) []string {
	var names []string
	for _, e := range multierr.Errors(err) {
		var chErr *ChannelError
		if errors.As(e, &chErr) {
			names = append(names, chErr.Name)
		}
	}
	return names
}

// IsNotFound reports whether err stems from a missing manifest, data file or
// channel, as opposed to malformed data.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrManifestNotFound) ||
		errors.Is(err, ErrDataFileNotFound) ||
		errors.Is(err, ErrChannelNotFound)
}
