// Command ruiden reads an RD60xx power supply once and prints the decoded
// snapshot, or drops into an interactive shell.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/tetragramaton/ruiden-go/internal/capture"
	modbusClient "github.com/tetragramaton/ruiden-go/internal/client/modbus"
	"github.com/tetragramaton/ruiden-go/internal/config"
	"github.com/tetragramaton/ruiden-go/internal/logging"
	"github.com/tetragramaton/ruiden-go/internal/ruiden"
)

type options struct {
	Path        string
	TCPAddr     string
	BaudRate    int
	SlaveID     int
	ConfigFile  string
	LogLevel    string
	Mode        string
	Model       string
	Interactive bool
	Replay      string
}

var defaultOptions = options{
	Path:     "/dev/ttyUSB0",
	BaudRate: 115200,
	SlaveID:  1,
	LogLevel: "warn",
	Mode:     "info",
}

var opts options

func init() {
	flag.StringVar(&opts.Path, "path", defaultOptions.Path, "Serial port of the power supply")
	flag.StringVar(&opts.TCPAddr, "tcp", "", "Modbus TCP gateway address (host:port); overrides -path")
	flag.IntVar(&opts.BaudRate, "baud-rate", defaultOptions.BaudRate, "Serial baud rate")
	flag.IntVar(&opts.SlaveID, "slave-id", defaultOptions.SlaveID, "Modbus slave id (1-247)")
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&opts.LogLevel, "log-level", defaultOptions.LogLevel, "Log level: trace, debug, info, warn, error")
	flag.StringVar(&opts.Mode, "mode", defaultOptions.Mode, "What to fetch: init, info, all")
	flag.StringVar(&opts.Model, "model", "", "Model to assume when the identity register is unknown")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Start the interactive shell")
	flag.StringVar(&opts.Replay, "replay", "", "Print records from a capture file and exit")
}

type snapshot struct {
	Init ruiden.Initialization `json:"init"`
	Info ruiden.Information    `json:"info"`
}

func main() {
	flag.Parse()
	set := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := run(opts, set); err != nil {
		log.Fatal().Err(err).Msg("ruiden")
	}
}

func run(o options, set map[string]bool) error {
	if o.Replay != "" {
		return replay(os.Stdout, o.Replay)
	}

	if err := validateMode(o.Mode); err != nil {
		return err
	}

	cfg, err := buildConfig(o, set)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return err
	}

	client, err := modbusClient.NewHandler(cfg.Device.Transport(), logger)
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	dev := ruiden.New(client,
		ruiden.WithLogger(logger),
		ruiden.WithModelOverride(cfg.Device.ModelOverride()),
	)
	defer func() {
		if err := dev.Close(); err != nil {
			logger.Warn().Err(err).Msg("close")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return execute(ctx, dev, o, os.Stdout)
}

// execute runs the shell or one fetch against dev and prints to out.
func execute(ctx context.Context, dev *ruiden.Ruiden, o options, out io.Writer) error {
	if o.Interactive {
		return NewShell(dev, out).Run(ctx)
	}
	snap, err := fetch(ctx, dev, o.Mode)
	if err != nil {
		return err
	}
	return printJSON(out, snap)
}

// buildConfig layers defaults, file, environment and explicitly set flags.
// Without a file the flag defaults take the place of the file.
func buildConfig(o options, set map[string]bool) (*config.Config, error) {
	cfg, err := config.Load(o.ConfigFile)
	if err != nil {
		return nil, err
	}
	if o.ConfigFile == "" {
		cfg.Device.Port = defaultOptions.Path
		cfg.Device.Baud = defaultOptions.BaudRate
		cfg.Device.SlaveID = defaultOptions.SlaveID
		cfg.Log.Level = defaultOptions.LogLevel
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if set["path"] {
		cfg.Device.Port = o.Path
	}
	if set["tcp"] {
		cfg.Device.Mode = "tcp"
		cfg.Device.TCPAddr = o.TCPAddr
	}
	if set["baud-rate"] {
		cfg.Device.Baud = o.BaudRate
	}
	if set["slave-id"] {
		cfg.Device.SlaveID = o.SlaveID
	}
	if set["model"] {
		cfg.Device.Model = o.Model
	}
	if set["log-level"] {
		cfg.Log.Level = o.LogLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	return cfg, nil
}

func validateMode(mode string) error {
	switch mode {
	case "init", "info", "all":
		return nil
	}
	return fmt.Errorf("mode must be init, info or all, got %q", mode)
}

func fetch(ctx context.Context, dev *ruiden.Ruiden, mode string) (any, error) {
	switch mode {
	case "init":
		return dev.FetchInit(ctx)
	case "info":
		return dev.FetchInfo(ctx)
	case "all":
		if err := dev.FetchAll(ctx); err != nil {
			return nil, err
		}
		return snapshot{Init: dev.Init(), Info: dev.Info()}, nil
	}
	return nil, validateMode(mode)
}

func replay(w io.Writer, path string) error {
	records, err := capture.ReadFile(path)
	for _, r := range records {
		if perr := printJSON(w, r); perr != nil {
			return perr
		}
	}
	return err
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
