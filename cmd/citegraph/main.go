// Package main provides the citegraph CLI, which runs paper lookups, keyword
// searches and citation graph assembly without starting the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/scholarsphere/citegraph-service/internal/app"
	"github.com/scholarsphere/citegraph-service/internal/config"
	"github.com/scholarsphere/citegraph-service/internal/domain"
	"github.com/scholarsphere/citegraph-service/internal/observability"
)

// Version is set at build time via ldflags
var Version = "dev"

// Exit codes
const (
	ExitSuccess      = 0 // Success
	ExitError        = 1 // Upstream or runtime failure
	ExitConfigError  = 2 // Configuration could not be loaded
	ExitInvalidInput = 3 // Malformed ids, query or flags
	ExitNotFound     = 4 // Paper does not exist upstream
)

// configError marks failures that happen before any lookup runs.
type configError struct{ err error }

func (e *configError) Error() string { return e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	root := newRootCmd()
	err := root.ExecuteContext(ctx)
	stop()
	if err != nil {
		_ = outputJSON(root.ErrOrStderr(), ErrorResponse{Error: err.Error()})
		os.Exit(exitCode(err))
	}
}

// rootOptions carries the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "citegraph",
		Short: "Query OpenAlex papers, searches and citation graphs",
		Long: `citegraph resolves OpenAlex works, runs keyword searches and assembles
citation graphs using the same cache and upstream settings as the server.

All commands print JSON to stdout.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level written to stderr")

	cmd.AddCommand(newPaperCmd(opts))
	cmd.AddCommand(newPapersCmd(opts))
	cmd.AddCommand(newSearchCmd(opts))
	return cmd
}

// build loads configuration and assembles the services for one command.
func (o *rootOptions) build(stderr io.Writer) (*app.App, error) {
	cfg, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, &configError{err: err}
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: stderr, NoColor: true}).
		Level(observability.ParseLevel(o.logLevel)).
		With().Timestamp().Str("component", "cli").Logger()

	a, err := app.Build(cfg, logger, nil)
	if err != nil {
		return nil, &configError{err: err}
	}
	return a, nil
}

func exitCode(err error) int {
	var ce *configError
	switch {
	case errors.As(err, &ce):
		return ExitConfigError
	case errors.Is(err, domain.ErrInvalidInput):
		return ExitInvalidInput
	case errors.Is(err, domain.ErrNotFound):
		return ExitNotFound
	default:
		return ExitError
	}
}

func closeApp(a *app.App, stderr io.Writer) {
	if err := a.Close(); err != nil {
		fmt.Fprintf(stderr, "warning: closing cache: %v\n", err)
	}
}
