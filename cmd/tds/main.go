package main

import (
	"log"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/spectriclabs/tunnel-data-service/internal/app"
	"github.com/spectriclabs/tunnel-data-service/internal/config"
)

const version = "0.2.0"

// Flags holds the command-line options.
type Flags struct {
	ConfigFile string
	Debug      bool
	Serve      bool
	Location   string
	Dataset    string
	Channels   []string
	Match      string
	List       bool
	Average    string
	Save       string
	Workers    int
	Timeout    time.Duration
}

// SetupFlags sets up the command-line flags.
//
// Note: we're using the pflags module, which is a
// drop-in replacement for the built-in flags module.
func SetupFlags(args []string) (*Flags, error) {
	f := &Flags{}
	fs := flag.NewFlagSet("tds", flag.ContinueOnError)
	fs.StringVarP(&f.ConfigFile, "config", "c", "", "Location of the configuration file (yaml, json or tdbr.ini)")
	fs.BoolVarP(&f.Debug, "debug", "d", false, "Whether or not to enable debug logging")
	fs.BoolVar(&f.Serve, "serve", false, "Serve the HTTP data service")
	fs.StringVarP(&f.Location, "location", "l", "", "Configured location to read datasets from")
	fs.StringVarP(&f.Dataset, "dataset", "s", "", "Dataset (shot or calibration) name")
	fs.StringSliceVarP(&f.Channels, "channel", "n", nil, "Channel to load; repeat or comma-separate for several")
	fs.StringVarP(&f.Match, "match", "m", "", "Load channels matching a pattern such as P_IB*")
	fs.BoolVar(&f.List, "list", false, "List the channels of the dataset")
	fs.StringVarP(&f.Average, "average", "a", "", "Average loaded channels between start,end seconds")
	fs.StringVarP(&f.Save, "save", "o", "", "Save loaded channels to this file")
	fs.IntVarP(&f.Workers, "workers", "w", 0, "Channels loaded in parallel (default from config)")
	fs.DurationVar(&f.Timeout, "timeout", 0, "Give up on channels not started within this time")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return f, nil
}

// SetupLogger sets up the zap.Logger structured logger.
func SetupLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	logger, logErr := zap.Config{
		Encoding:    "json",
		Level:       zap.NewAtomicLevelAt(level),
		OutputPaths: []string{"stderr"},
		EncoderConfig: zapcore.EncoderConfig{
			MessageKey:  "message",
			LevelKey:    "level",
			EncodeLevel: zapcore.CapitalLevelEncoder,

			TimeKey:    "time",
			EncodeTime: zapcore.ISO8601TimeEncoder,

			CallerKey:    "caller",
			EncodeCaller: zapcore.ShortCallerEncoder,
		},
	}.Build()
	if logErr != nil {
		log.Fatalf("Couldn't setup logger: %v", logErr)
	}

	return logger
}

// commandFromFlags fills unset flags from the configuration defaults.
func commandFromFlags(f *Flags, cfg *config.Configuration) app.Command {
	cmd := app.Command{
		Location: f.Location,
		Dataset:  f.Dataset,
		Channels: f.Channels,
		Match:    f.Match,
		Average:  f.Average,
		Save:     f.Save,
		Workers:  f.Workers,
		Timeout:  f.Timeout,
	}
	if cmd.Location == "" && len(cfg.LocationDetails) > 0 {
		cmd.Location = cfg.LocationDetails[0].LocationName
	}
	if cmd.Dataset == "" {
		cmd.Dataset = cfg.ShotNumber
	}
	if len(cmd.Channels) == 0 && cmd.Match == "" && !f.List && cfg.Channel != "" {
		cmd.Channels = []string{cfg.Channel}
	}
	if f.List {
		cmd.Channels = nil
		cmd.Match = ""
	}
	if cmd.Workers == 0 {
		cmd.Workers = cfg.Workers
	}
	if cmd.Timeout == 0 && cfg.LoadTimeout > 0 {
		cmd.Timeout = time.Duration(cfg.LoadTimeout) * time.Second
	}
	return cmd
}

func main() {
	flags, err := SetupFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	logger := SetupLogger(flags.Debug)
	defer logger.Sync()

	cfg, err := config.LoadConfig(flags.ConfigFile)
	if err != nil {
		logger.Fatal("Error loading configuration", zap.String("config_file", flags.ConfigFile), zap.Error(err))
	}
	cfg.Debug = cfg.Debug || flags.Debug

	logger.Info(
		"tds - tunnel data browser service",
		zap.String("version", version),
		zap.String("data_directory", cfg.DataDirectory),
		zap.String("facility", cfg.Facility),
	)

	if flags.Serve {
		if err := app.StartServer(cfg, logger); err != nil {
			logger.Fatal("Stopping server due to error", zap.Error(err))
		}
		return
	}

	if err := app.RunCommand(os.Stdout, cfg, logger, commandFromFlags(flags, cfg)); err != nil {
		logger.Fatal("Command failed", zap.Error(err))
	}
}
