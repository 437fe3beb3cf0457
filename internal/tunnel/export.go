package tunnel

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WriteTable writes channels as a whitespace-delimited table ready for
// gnuplot. The header row is
//
//	# <dataset>:time(s) <dataset>:<name>(<units>) ...
//
// and each row holds the first channel's time followed by every channel's
// sample at that row. Rows stop at the shortest channel.
func WriteTable(w io.Writer, channels []*Channel, logger *zap.Logger) error {
	if len(channels) == 0 {
		return ErrNothingToExport
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rows := channels[0].Len()
	for _, ch := range channels[1:] {
		if ch.Len() < rows {
			rows = ch.Len()
		}
	}
	for _, ch := range channels {
		if ch.Len() != rows {
			logger.Warn(
				"Truncating exported channel to shortest channel",
				zap.String("channel", ch.String()),
				zap.Int("samples", ch.Len()),
				zap.Int("rows", rows),
			)
		}
	}

	bw := bufio.NewWriter(w)

	header := make([]string, 0, len(channels)+1)
	header = append(header, "# "+channels[0].Dataset+":time(s)")
	for _, ch := range channels {
		header = append(header, ch.Dataset+":"+ch.Name+"("+ch.Units+")")
	}
	if _, err := bw.WriteString(strings.Join(header, " ") + "\n"); err != nil {
		return err
	}

	buf := make([]byte, 0, 32*(len(channels)+1))
	for i := 0; i < rows; i++ {
		buf = buf[:0]
		buf = strconv.AppendFloat(buf, channels[0].times[i], 'g', -1, 64)
		for _, ch := range channels {
			buf = append(buf, ' ')
			buf = strconv.AppendFloat(buf, ch.samples[i], 'g', -1, 64)
		}
		buf = append(buf, '\n')
		if _, err := bw.Write(buf); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveTable writes channels with WriteTable to the file at path, replacing it.
func SaveTable(path string, channels []*Channel, logger *zap.Logger) error {
	if len(channels) == 0 {
		return ErrNothingToExport
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "creating save file")
	}
	if err := WriteTable(f, channels, logger); err != nil {
		f.Close()
		return errors.Wrapf(err, "writing %s", path)
	}
	return f.Close()
}
