package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jsamuelsen/quotesync/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotesync/internal/adapters/exchange"
	"github.com/jsamuelsen/quotesync/internal/app"
	"github.com/jsamuelsen/quotesync/internal/domain"
)

func newListCmd(c *cli) *cobra.Command {
	var category string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List quotes",
		Long:    "List quotes, optionally filtered by category. Without --category the last selected category is used.",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			quotes := c.service.QuotesFor(category)
			if len(quotes) == 0 {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), "No quotes found")
				return err
			}

			return writeQuotes(cmd.OutOrStdout(), quotes)
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", `category to show ("all" for every quote)`)

	return cmd
}

func newAddCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "add TEXT CATEGORY",
		Short: "Add a quote",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := c.service.AddQuote(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", q.Text, q.Category)

			return err
		},
	}
}

func newExportCmd(c *cli) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the collection as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.service.Export(cmd.Context())
			if err != nil {
				return err
			}

			if output == "-" {
				_, err = cmd.OutOrStdout().Write(out)
				return err
			}

			if err := os.WriteFile(output, out, 0o600); err != nil {
				return fmt.Errorf("writing export: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Exported %d quotes to %s\n", c.state.Repository.Len(), output)

			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", exchange.FileName, `destination file ("-" for stdout)`)

	return cmd
}

func newImportCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Append quotes from a JSON export",
		Long:  "Append every quote in FILE to the collection. Nothing is imported when any record is invalid.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening import file: %w", err)
			}
			defer f.Close()

			res, err := c.service.Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d quotes (%d total)\n", res.Imported, res.Total)

			return err
		},
	}
}

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync cycle against the configured feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			feed, err := acl.NewFeedFromConfig(c.cfg.Services.Feed, c.cfg.Client, c.logger)
			if err != nil {
				return err
			}

			engine, err := app.NewSyncEngine(app.SyncEngineConfig{
				Feed:       feed,
				Repository: c.state.Repository,
				Logger:     c.logger,
			})
			if err != nil {
				return err
			}

			res, err := engine.SyncNow(cmd.Context())
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(),
				"Fetched %d, kept %d local, dropped %d duplicates, %d total\n",
				res.Fetched, res.Kept, res.Dropped, res.Total)

			return err
		},
	}
}

func writeQuotes(w io.Writer, quotes []domain.Quote) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if _, err := fmt.Fprintln(tw, "CATEGORY\tTEXT"); err != nil {
		return err
	}

	for _, q := range quotes {
		if _, err := fmt.Fprintf(tw, "%s\t%s\n", q.Category, q.Text); err != nil {
			return err
		}
	}

	return tw.Flush()
}
