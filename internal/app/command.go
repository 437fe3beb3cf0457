package app

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/spectriclabs/tunnel-data-service/internal/cache"
	"github.com/spectriclabs/tunnel-data-service/internal/config"
	"github.com/spectriclabs/tunnel-data-service/internal/datasource"
	"github.com/spectriclabs/tunnel-data-service/internal/tunnel"
)

// Command is a one-shot browse of a dataset from the command line.
type Command struct {
	Location string
	Dataset  string
	Channels []string
	Match    string
	Average  string // "start,end" in seconds
	Save     string
	Workers  int
	Timeout  time.Duration
}

// ParseRange parses "start,end" into two times. Start must not be after end.
func ParseRange(s string) (float64, float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, errors.Errorf("range %q is not start,end", s)
	}
	start, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "range start")
	}
	end, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "range end")
	}
	if start > end {
		return 0, 0, errors.New("LEFT bound needs to be less than RIGHT bound")
	}
	return start, end, nil
}

// RunCommand lists the channels of the dataset when no channel is named.
// Otherwise it loads the named channels, prints a line per channel, the
// range average when requested, and saves the loaded channels as a table
// when a save file is set. Channels that fail to load are reported and
// skipped.
func RunCommand(w io.Writer, cfg *config.Configuration, logger *zap.Logger, cmd Command) error {
	if cmd.Dataset == "" {
		return errors.New("no dataset specified")
	}

	var (
		start, end float64
		err        error
	)
	if cmd.Average != "" {
		if start, end, err = ParseRange(cmd.Average); err != nil {
			return err
		}
	}

	source, directory, err := datasource.OpenDataSource(cfg, &cache.Cache{Location: cfg.CacheLocation}, logger, cmd.Location)
	if err != nil {
		return err
	}
	ix := tunnel.NewIndex(source, logger)

	names := cmd.Channels
	if cmd.Match != "" {
		matched, err := ix.MatchChannelNames(cmd.Dataset, directory, cmd.Match, cfg.MatchLimit)
		if err != nil {
			return err
		}
		names = append(names, matched...)
	}

	if len(names) == 0 {
		list, err := ix.ListChannelNames(cmd.Dataset, directory)
		if err != nil {
			return err
		}
		fmt.Fprintln(w, strings.Join(list, "\n"))
		return nil
	}

	ctx := context.Background()
	if cmd.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cmd.Timeout)
		defer cancel()
	}
	results, err := ix.LoadChannels(ctx, cmd.Dataset, directory, names, cmd.Workers)
	if err != nil {
		return err
	}

	var loaded []*tunnel.Channel
	for _, r := range results {
		if r.Err != nil {
			logger.Error("Error loading channel", zap.String("channel", r.Name), zap.Error(r.Err))
			fmt.Fprintf(w, "%s:%s: %v\n", cmd.Dataset, r.Name, r.Err)
			continue
		}
		loaded = append(loaded, r.Channel)
		printChannel(w, r.Channel)
		if cmd.Average == "" {
			continue
		}
		avg, err := r.Channel.AverageBetween(start, end)
		if err != nil {
			fmt.Fprintf(w, "  average: %v\n", err)
			continue
		}
		fmt.Fprintf(w, "  x2-x1    = %.6f\n  Average = %.6f\n", end-start, avg)
	}

	if cmd.Save != "" {
		if len(loaded) == 0 {
			return tunnel.ErrNothingToExport
		}
		if err := tunnel.SaveTable(cmd.Save, loaded, logger); err != nil {
			return err
		}
		logger.Info("Saved data", zap.String("save_file", cmd.Save), zap.Int("channels", len(loaded)))
	}

	if len(loaded) == 0 {
		return errors.Errorf("no channel of %s could be loaded", cmd.Dataset)
	}
	return nil
}

func printChannel(w io.Writer, ch *tunnel.Channel) {
	if ch.Len() == 0 {
		fmt.Fprintf(w, "%s  no samples\n", ch)
		return
	}
	fmt.Fprintf(
		w,
		"%s  %d samples  %g s to %g s  dt=%g s  units=%q  sensitivity=%g V/unit  gain=%g\n",
		ch, ch.Len(), ch.Time(0), ch.Time(ch.Len()-1), ch.SampleInterval, ch.Units, ch.Sensitivity, ch.ExternalGain,
	)
}
