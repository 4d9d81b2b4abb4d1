package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/tiback/tiback-client/internal/config"
	"github.com/tiback/tiback-client/internal/infrastructure/logging"
)

type command struct {
	name    string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
	// flags registers command-specific flags.
	flags func(fs *pflag.FlagSet)
}

var commands = []command{
	{name: "login", summary: "Authenticate and persist the session", flags: loginFlags, run: runLogin},
	{name: "register", summary: "Create an account and log in", flags: registerFlags, run: runRegister},
	{name: "logout", summary: "Clear the persisted session", run: runLogout},
	{name: "whoami", summary: "Show the current session", run: runWhoami},
	{name: "refresh", summary: "Rotate the access and refresh tokens", run: runRefresh},
	{name: "tickets", summary: "List, show, create or update tickets", flags: ticketFlags, run: runTickets},
	{name: "comment", summary: "List or add comments on a ticket", flags: commentFlags, run: runComment},
	{name: "watch", summary: "Stay connected and keep the caches current", run: runWatch},
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintln(os.Stderr, "tiback:", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return errors.New("a command is required")
		}
		return nil
	}

	var cmd *command
	for i := range commands {
		if commands[i].name == args[0] {
			cmd = &commands[i]
		}
	}
	if cmd == nil {
		usage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}

	fs := pflag.NewFlagSet("tiback "+cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.StringP("config", "c", "", "YAML config file (default $"+config.ConfigFileEnv+")")
	logLevel := fs.String("log-level", "", "override the configured log level")
	jsonOut := fs.Bool("json", false, "print results as JSON")
	if cmd.flags != nil {
		cmd.flags(fs)
	}
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      stderr,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)
	logger.Debug("configuration loaded", "config", cfg.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	a.out = &printer{w: stdout, json: *jsonOut}
	return cmd.run(ctx, a, fs.Args())
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "Usage: tiback <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	for _, c := range commands {
		fmt.Fprintf(w, "  %-10s %s\n", c.name, c.summary)
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'tiback <command> --help' for the flags of a command.")
}
