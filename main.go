package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/msgscope/internal/apiclient"
	"github.com/hay-kot/msgscope/internal/commands"
	"github.com/hay-kot/msgscope/internal/core/config"
	"github.com/hay-kot/msgscope/internal/core/history"
	"github.com/hay-kot/msgscope/internal/msgscope"
	"github.com/hay-kot/msgscope/internal/printer"
	"github.com/hay-kot/msgscope/internal/store/jsonfile"
	"github.com/hay-kot/msgscope/pkg/utils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	short := commit
	if len(commit) > 7 {
		short = commit[:7]
	}

	return fmt.Sprintf("%s (%s) %s", version, short, date)
}

func main() {
	if err := setupLogger("info", "", nil); err != nil {
		panic(err)
	}

	var (
		p     = printer.New(os.Stderr)
		ctx   = printer.NewContext(context.Background(), p)
		flags = &commands.Flags{}
	)

	var deferredLogs *utils.DeferredWriter

	app := &cli.Command{
		Name:      "msgscope",
		Usage:     "Inspect messages logged by the loghub server",
		UsageText: "msgscope [global options] command [command options]",
		Description: `msgscope queries the loghub API for the packets a terminal exchanged with the
server, either raw or decoded into message bodies.

Run 'msgscope' with no arguments to open the interactive query views.
Run 'msgscope query location --sim <sim>' to print one query and exit.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("MSGSCOPE_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (optional)",
				Sources:     cli.EnvVars("MSGSCOPE_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("MSGSCOPE_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("MSGSCOPE_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			// No subcommand means TUI; its logs are held until it exits.
			var deferred io.Writer
			if c.Args().Len() == 0 {
				deferredLogs = &utils.DeferredWriter{}
				deferred = deferredLogs
			}

			if err := setupLogger(flags.LogLevel, flags.LogFile, deferred); err != nil {
				return ctx, err
			}

			return ctx, bootstrap(ctx, flags, p)
		},
	}

	tuiCmd := commands.NewTuiCmd(flags)

	app = commands.NewQueryCmd(flags).Register(app)
	app = commands.NewBatchCmd(flags).Register(app)
	app = commands.NewHistoryCmd(flags).Register(app)
	app = commands.NewDoctorCmd(flags).Register(app)
	app = commands.NewConfigValidateCmd(flags).Register(app)
	app = commands.NewDocCmd(flags).Register(app)

	// The TUI is the root action, so its flags live on the root command.
	app.Flags = append(app.Flags, tuiCmd.Flags()...)

	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'msgscope --help' for usage", c.Args().First())
		}
		return tuiCmd.Run(ctx, c)
	}

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Println()
		printer.Ctx(ctx).FatalError(err)
		exitCode = 1
	}

	// Logs held while the TUI owned the terminal.
	if deferredLogs != nil {
		if err := deferredLogs.Flush(zerolog.ConsoleWriter{Out: os.Stderr}); err != nil {
			fmt.Fprintf(os.Stderr, "failed to flush logs: %v\n", err)
		}
	}

	os.Exit(exitCode)
}

// bootstrap loads the configuration and wires the history store, the API
// client and the query service into flags. API failures are reported to
// notify until the TUI takes over the relay.
func bootstrap(ctx context.Context, flags *commands.Flags, notify apiclient.Notifier) error {
	cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	flags.Config = cfg

	flags.Slot = jsonfile.NewSlotStore(cfg.StorageFile())
	flags.History = history.NewStore(flags.Slot,
		history.WithKey(cfg.Storage.Key),
		history.WithLogger(component("history")),
	)
	if _, err := flags.History.Initialize(ctx); err != nil {
		return fmt.Errorf("initialize history: %w", err)
	}

	flags.Notifier = apiclient.NewRelay(notify)
	flags.Client, err = apiclient.New(cfg.API.BaseURL,
		apiclient.WithBasePath(cfg.API.BasePath),
		apiclient.WithTimeout(cfg.API.Timeout),
		apiclient.WithNotifier(flags.Notifier),
		apiclient.WithLogger(component("apiclient")),
	)
	if err != nil {
		return fmt.Errorf("create api client: %w", err)
	}

	flags.Service = msgscope.New(flags.History, flags.Client, component("msgscope"))
	return nil
}

func component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}

func setupLogger(level string, logFile string, deferred io.Writer) error {
	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("failed to parse log level: %w", err)
	}

	w, err := logWriter(logFile, deferred)
	if err != nil {
		return err
	}

	log.Logger = zerolog.New(w).Level(parsedLevel).With().Timestamp().Logger()
	return nil
}

// logWriter sends events to the console, or to deferred while the TUI owns
// the terminal, and additionally appends them to logFile when set.
func logWriter(logFile string, deferred io.Writer) (io.Writer, error) {
	var console io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}
	if deferred != nil {
		console = deferred
	}

	if logFile == "" {
		return console, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return zerolog.MultiLevelWriter(console, file), nil
}
