package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/adapters/exchange"
	"github.com/jsamuelsen/quotesync/internal/adapters/storage"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/platform/config"
	"github.com/jsamuelsen/quotesync/internal/platform/logging"
)

// cli holds what every subcommand shares. It is filled in by the root
// command's PersistentPreRunE and released by run.
type cli struct {
	configDir string
	profile   string
	driver    string
	path      string
	logLevel  string

	cfg        *config.Config
	logger     *slog.Logger
	state      *app.State
	service    *app.QuoteService
	closeStore func() error
}

// run executes quotectl with args and closes the store afterwards, even
// when the command fails.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{}

	root := newRootCmd(c)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)

	return errors.Join(err, c.close())
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "quotectl",
		Short:         "Manage the quotesync collection",
		Long:          "quotectl lists, adds, imports, exports and syncs quotes in the store configured for quotesync.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return c.open(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.configDir, "config-dir", "configs", "directory holding base.yaml and profile files")
	flags.StringVar(&c.profile, "profile", os.Getenv("APP_ENVIRONMENT"), "config profile (default: $APP_ENVIRONMENT)")
	flags.StringVar(&c.driver, "store-driver", "", "override storage.driver (sqlite, file, memory)")
	flags.StringVar(&c.path, "store-path", "", "override storage.path")
	flags.StringVar(&c.logLevel, "log-level", "warn", "log level written to stderr")

	root.AddCommand(
		newListCmd(c),
		newAddCmd(c),
		newExportCmd(c),
		newImportCmd(c),
		newSyncCmd(c),
	)

	return root
}

func (c *cli) open(cmd *cobra.Command) error {
	cfg, err := config.LoadFrom(c.configDir, c.profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.driver != "" {
		cfg.Storage.Driver = c.driver
	}

	if c.path != "" {
		cfg.Storage.Path = c.path
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	c.cfg = cfg
	c.logger = logging.NewWithWriter(&logging.Config{
		Level:   c.logLevel,
		Format:  "text",
		Service: "quotectl",
		Version: cfg.App.Version,
	}, cmd.ErrOrStderr())

	store, closeStore, err := storage.Open(cmd.Context(), storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path})
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}

	c.closeStore = closeStore

	c.state, err = app.LoadState(cmd.Context(), store, c.logger)
	if err != nil {
		return err
	}

	c.service = app.NewQuoteService(app.QuoteServiceConfig{
		Repository:  c.state.Repository,
		Preferences: c.state.Preferences,
		Codec:       exchange.JSONCodec{},
		Logger:      c.logger,
	})

	return nil
}

func (c *cli) close() error {
	if c.closeStore == nil {
		return nil
	}

	closeStore := c.closeStore
	c.closeStore = nil

	if err := closeStore(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	return nil
}
