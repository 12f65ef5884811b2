package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cosmez/rediscli-go/internal/command"
	"github.com/cosmez/rediscli-go/internal/config"
	"github.com/cosmez/rediscli-go/internal/exec"
	"github.com/cosmez/rediscli-go/internal/logging"
	"github.com/cosmez/rediscli-go/internal/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var version = "dev" // set at build time via -ldflags "-X main.version=..."

// flags holds the command line; only flags the user actually set override
// the loaded configuration.
type flags struct {
	configPath string
	host       string
	port       string
	username   string
	password   string
	command    string
	noColor    bool
	logFile    string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("%v", err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	rootCmd := &cobra.Command{
		Use:           "rediscli",
		Short:         "An interactive Redis client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), f)
			if err != nil {
				return err
			}
			if cfg.NoColor {
				color.NoColor = true
			}

			log, closeLog, err := logging.New(logging.Config{
				Level:      logging.ParseLevel(cfg.Log.Level),
				OutputPath: cfg.Log.File,
				Format:     cfg.Log.Format,
			})
			if err != nil {
				return err
			}
			defer closeLog()

			if f.command != "" {
				return runOneShot(cmd.Context(), cfg, log, f.command)
			}
			return runRepl(cmd.Context(), cfg, log)
		},
	}

	fs := rootCmd.Flags()
	fs.StringVar(&f.configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/rediscli/config.yml)")
	fs.StringVarP(&f.host, "host", "H", "localhost", "Redis server host")
	fs.StringVarP(&f.port, "port", "p", "6379", "Redis server port")
	fs.StringVarP(&f.username, "username", "u", "", "Redis ACL username")
	fs.StringVar(&f.password, "password", "", "Redis password")
	fs.StringVarP(&f.command, "command", "c", "", "Execute a single command and exit")
	fs.BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	fs.StringVar(&f.logFile, "log-file", "", "Write diagnostic logs to this file")
	fs.StringVar(&f.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	return rootCmd
}

// loadConfig layers explicitly set flags over the config file and environment.
func loadConfig(fs *pflag.FlagSet, f flags) (config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return cfg, err
	}

	overrides := map[string]*string{
		"host":      &cfg.Host,
		"port":      &cfg.Port,
		"username":  &cfg.Username,
		"password":  &cfg.Password,
		"log-file":  &cfg.Log.File,
		"log-level": &cfg.Log.Level,
	}
	values := map[string]string{
		"host":      f.host,
		"port":      f.port,
		"username":  f.username,
		"password":  f.password,
		"log-file":  f.logFile,
		"log-level": f.logLevel,
	}
	for name, dst := range overrides {
		if fs.Changed(name) {
			*dst = values[name]
		}
	}
	if fs.Changed("no-color") {
		cfg.NoColor = f.noColor
	}
	return cfg, nil
}

// runOneShot executes line and exits. A subscription or monitor keeps
// printing until SIGINT or SIGTERM, or until the server closes the connection.
func runOneShot(ctx context.Context, cfg config.Config, log *slog.Logger, line string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := command.NewRegistry()
	if err != nil {
		return fmt.Errorf("failed to load commands: %w", err)
	}

	parsed, err := command.Parse(line, reg)
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	if parsed.Name == "" {
		return exec.ErrInvalidCommand
	}

	s := &session{
		log:    log,
		reg:    reg,
		out:    os.Stdout,
		sink:   output.NewWriterSink(os.Stdout, false),
		prompt: stdio{},
	}
	t := target{host: cfg.Host, port: cfg.Port, user: cfg.Username, pass: cfg.Password}
	if err := s.connect(ctx, t); err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer s.close()

	s.handle(ctx, parsed)
	if s.active == nil {
		return nil
	}

	select {
	case <-ctx.Done():
	case <-s.conn.Done():
		return fmt.Errorf("connection lost: %w", s.conn.Err())
	}
	return nil
}

// stdio reads answers from stdin and writes questions to stdout.
type stdio struct{}

func (stdio) Read(b []byte) (int, error)  { return os.Stdin.Read(b) }
func (stdio) Write(b []byte) (int, error) { return os.Stdout.Write(b) }
