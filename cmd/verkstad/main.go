package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/fang"
	charmLog "github.com/charmbracelet/log"
	"github.com/mellgren/verkstad/internal/api"
	"github.com/mellgren/verkstad/internal/board"
	"github.com/mellgren/verkstad/internal/config"
	"github.com/mellgren/verkstad/internal/platform"
	"github.com/mellgren/verkstad/internal/server"
	"github.com/mellgren/verkstad/internal/storage/sqlite"
	"github.com/mellgren/verkstad/internal/tui"
	"github.com/spf13/cobra"
)

// version is stamped at release build time.
var version = "dev"

// program abstracts the TUI event loop so tests can substitute a fake.
type program interface {
	Run() (tea.Model, error)
}

var programFactory = func(m tea.Model) program {
	return tea.NewProgram(m)
}

func main() {
	cmd := newRootCmd(os.Stdout, os.Stderr)
	if err := fang.Execute(
		context.Background(),
		cmd,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	dbPath     string
	appName    string
	devMode    bool
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	defaultDevMode := version == "dev"
	if envDev, ok := parseBoolEnv("VERKSTAD_DEV_MODE"); ok {
		defaultDevMode = envDev
	}
	defaultAppName := "verkstad"
	if envApp := strings.TrimSpace(os.Getenv("VERKSTAD_APP_NAME")); envApp != "" {
		defaultAppName = envApp
	}

	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "verkstad",
		Short: "Terminal kanban board for tracking shop work orders",
		Long: `Verkstad renders a shared work-order board in the terminal.

The board talks to a verkstad server over HTTP; run "verkstad serve" to host
one backed by a local sqlite database.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBoard(*opts, stderr)
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "path to config TOML")
	pf.StringVar(&opts.dbPath, "db", "", "path to sqlite database")
	pf.StringVar(&opts.appName, "app", defaultAppName, "application name for config/data path resolution")
	pf.BoolVar(&opts.devMode, "dev", defaultDevMode, "use dev mode paths (<app>-dev)")

	cmd.AddCommand(newServeCmd(opts, stderr))
	cmd.AddCommand(newPathsCmd(opts, stdout))
	return cmd
}

// runtimeState is the resolved configuration shared by the board and serve flows.
type runtimeState struct {
	paths      platform.Paths
	configPath string
	cfg        config.Config
}

func resolveRuntime(opts rootOptions) (runtimeState, error) {
	paths, err := platform.DefaultPathsWithOptions(platform.Options{
		AppName: opts.appName,
		DevMode: opts.devMode,
	})
	if err != nil {
		return runtimeState{}, err
	}

	configPath := strings.TrimSpace(opts.configPath)
	if configPath == "" {
		if envPath := strings.TrimSpace(os.Getenv("VERKSTAD_CONFIG")); envPath != "" {
			configPath = envPath
		} else {
			configPath = paths.ConfigPath
		}
	}

	dbPath := strings.TrimSpace(opts.dbPath)
	dbOverridden := dbPath != ""
	if !dbOverridden {
		if envPath := strings.TrimSpace(os.Getenv("VERKSTAD_DB_PATH")); envPath != "" {
			dbPath = envPath
			dbOverridden = true
		} else {
			dbPath = paths.DBPath
		}
	}

	cfg, err := config.Load(configPath, config.Default(dbPath))
	if err != nil {
		return runtimeState{}, fmt.Errorf("load config %q: %w", configPath, err)
	}
	if dbOverridden {
		cfg.Database.Path = dbPath
	}
	return runtimeState{paths: paths, configPath: configPath, cfg: cfg}, nil
}

// runBoard starts the TUI against the configured server URL.
func runBoard(opts rootOptions, stderr io.Writer) error {
	rt, err := resolveRuntime(opts)
	if err != nil {
		return err
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, rt.cfg.Logging, rt.paths.LogPath)
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	// The board owns the terminal; runtime events go to the file sink only.
	logger.SetConsoleEnabled(false)
	defer func() {
		if closeErr := logger.Close(); closeErr != nil {
			_, _ = fmt.Fprintf(stderr, "warning: close runtime log sink: %v\n", closeErr)
		}
	}()
	logger.Info("configuration loaded",
		"config_path", rt.configPath, "server_url", rt.cfg.Server.URL, "log_level", rt.cfg.Logging.Level)

	client, err := api.NewClient(rt.cfg.Server.URL, nil)
	if err != nil {
		logger.Error("api client setup failed", "server_url", rt.cfg.Server.URL, "err", err)
		return fmt.Errorf("configure api client: %w", err)
	}

	m := tui.NewModel(
		client,
		tui.WithSortBy(board.SortBy(rt.cfg.Board.SortBy)),
		tui.WithAutosaveQuiet(time.Duration(rt.cfg.Board.AutosaveQuietMS)*time.Millisecond),
		tui.WithDoneMaxAge(time.Duration(rt.cfg.Board.DoneMaxAgeHours)*time.Hour),
	)
	logger.Info("starting board program loop", "server_url", rt.cfg.Server.URL)
	if _, err := programFactory(m).Run(); err != nil {
		logger.Error("board program terminated with error", "err", err)
		return fmt.Errorf("run board program: %w", err)
	}
	logger.Info("board program complete")
	return nil
}

func newServeCmd(opts *rootOptions, stderr io.Writer) *cobra.Command {
	var bind string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Host the board API and MCP endpoint over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), *opts, bind, stderr)
		},
	}
	cmd.Flags().StringVar(&bind, "bind", "", "listen address (overrides server.bind from config)")
	return cmd
}

func runServe(ctx context.Context, opts rootOptions, bind string, stderr io.Writer) error {
	rt, err := resolveRuntime(opts)
	if err != nil {
		return err
	}
	if strings.TrimSpace(bind) != "" {
		rt.cfg.Server.Bind = strings.TrimSpace(bind)
	}

	logger, err := newRuntimeLogger(stderr, opts.appName, rt.cfg.Logging, "")
	if err != nil {
		return fmt.Errorf("configure runtime logger: %w", err)
	}
	defer func() {
		_ = logger.Close()
	}()
	// The server's request log runs on the package default logger.
	charmLog.SetLevel(logger.consoleSink.GetLevel())

	logger.Info("opening sqlite repository", "db_path", rt.cfg.Database.Path)
	repo, err := sqlite.Open(rt.cfg.Database.Path)
	if err != nil {
		logger.Error("sqlite open failed", "db_path", rt.cfg.Database.Path, "err", err)
		return fmt.Errorf("open sqlite repository: %w", err)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			logger.Warn("sqlite close failed", "db_path", rt.cfg.Database.Path, "err", closeErr)
		}
	}()

	logger.Info("serving board", "bind", rt.cfg.Server.Bind, "db_path", rt.cfg.Database.Path)
	if err := server.Run(ctx, server.Config{
		HTTPBind:      rt.cfg.Server.Bind,
		ServerName:    opts.appName,
		ServerVersion: version,
	}, repo); err != nil {
		logger.Error("server terminated with error", "err", err)
		return err
	}
	logger.Info("server shut down")
	return nil
}

func newPathsCmd(opts *rootOptions, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "Print resolved config and data paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := resolveRuntime(*opts)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(stdout, "app: %s\n", opts.appName)
			_, _ = fmt.Fprintf(stdout, "dev_mode: %t\n", opts.devMode)
			_, _ = fmt.Fprintf(stdout, "config: %s\n", rt.configPath)
			_, _ = fmt.Fprintf(stdout, "data_dir: %s\n", rt.paths.DataDir)
			_, _ = fmt.Fprintf(stdout, "db: %s\n", rt.cfg.Database.Path)
			_, _ = fmt.Fprintf(stdout, "log: %s\n", rt.paths.LogPath)
			return nil
		},
	}
}

// runtimeLogger fans runtime events out to a console sink and an optional
// file sink. The console sink is muted while the board owns the terminal.
type runtimeLogger struct {
	sinks          []*charmLog.Logger
	consoleSink    *charmLog.Logger
	consoleEnabled bool
	closeFile      func() error
}

func newRuntimeLogger(stderr io.Writer, appName string, cfg config.LoggingConfig, filePath string) (*runtimeLogger, error) {
	levelName := strings.TrimSpace(cfg.Level)
	if levelName == "" {
		levelName = "info"
	}
	level, err := charmLog.ParseLevel(levelName)
	if err != nil {
		return nil, fmt.Errorf("parse logging level %q: %w", cfg.Level, err)
	}
	if stderr == nil {
		stderr = io.Discard
	}

	consoleSink := charmLog.NewWithOptions(stderr, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.TextFormatter,
	})
	logger := &runtimeLogger{
		sinks:          []*charmLog.Logger{consoleSink},
		consoleSink:    consoleSink,
		consoleEnabled: true,
	}
	if filePath == "" {
		return logger, nil
	}

	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	logFile, err := os.OpenFile(filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	// Keep file output parseable and unstyled.
	fileSink := charmLog.NewWithOptions(logFile, charmLog.Options{
		Level:           level,
		Prefix:          appName,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmLog.LogfmtFormatter,
	})
	logger.sinks = append(logger.sinks, fileSink)
	logger.closeFile = logFile.Close
	return logger, nil
}

// SetConsoleEnabled toggles whether the console sink receives runtime events.
func (l *runtimeLogger) SetConsoleEnabled(enabled bool) {
	l.consoleEnabled = enabled
}

// Close closes the optional file sink.
func (l *runtimeLogger) Close() error {
	if l.closeFile == nil {
		return nil
	}
	return l.closeFile()
}

func (l *runtimeLogger) emit(log func(sink *charmLog.Logger)) {
	for _, sink := range l.sinks {
		if sink == l.consoleSink && !l.consoleEnabled {
			continue
		}
		log(sink)
	}
}

func (l *runtimeLogger) Debug(msg string, keyvals ...any) {
	l.emit(func(sink *charmLog.Logger) { sink.Debug(msg, keyvals...) })
}

func (l *runtimeLogger) Info(msg string, keyvals ...any) {
	l.emit(func(sink *charmLog.Logger) { sink.Info(msg, keyvals...) })
}

func (l *runtimeLogger) Warn(msg string, keyvals ...any) {
	l.emit(func(sink *charmLog.Logger) { sink.Warn(msg, keyvals...) })
}

func (l *runtimeLogger) Error(msg string, keyvals ...any) {
	l.emit(func(sink *charmLog.Logger) { sink.Error(msg, keyvals...) })
}

// parseBoolEnv reads a boolean environment variable, reporting whether it was set.
func parseBoolEnv(name string) (bool, bool) {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return false, false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return value, true
}
