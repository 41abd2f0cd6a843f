package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/lehigh-university-libraries/adwizard/internal/export"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/spf13/cobra"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect, export or clear generation history",
	}

	cmd.AddCommand(newHistoryListCmd(opts))
	cmd.AddCommand(newHistoryClearCmd(opts))
	cmd.AddCommand(newHistoryExportCmd(opts))

	return cmd
}

func newHistoryListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List past generations, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			printHistory(cmd.OutOrStdout(), a.wizard.State().History)
			return nil
		},
	}
}

func printHistory(w io.Writer, history []models.HistoryEntry) {
	if len(history) == 0 {
		fmt.Fprintln(w, "No history yet")
		return
	}
	for _, e := range history {
		when := time.UnixMilli(e.Timestamp).Local().Format("2006-01-02 15:04")
		headline := ""
		if len(e.Creatives) > 0 {
			headline = e.Creatives[0].Headline1
		}
		fmt.Fprintf(w, "%s  %s  %-8s  %d creatives  %s\n", e.ID, when, e.FormData.Goal, len(e.Creatives), headline)
	}
}

func newHistoryClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all history entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			n := len(a.wizard.State().History)
			if err := a.wizard.ClearHistory(cmd.Context()); err != nil {
				return err
			}
			slog.Info("History cleared", "entries", n)
			return nil
		},
	}
}

func newHistoryExportCmd(opts *rootOptions) *cobra.Command {
	var (
		format    string
		outPath   string
		id        string
		imagesDir string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export history as YAML or parquet",
		Example: `  # All entries as YAML on stdout
  adwizard history export

  # One entry with its images
  adwizard history export --id 5f0c... --out entry.yml --images ./images

  # Flattened rows for analysis
  adwizard history export --format parquet --out history.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			history := a.wizard.State().History
			if id != "" {
				idx := slices.IndexFunc(history, func(e models.HistoryEntry) bool { return e.ID == id })
				if idx < 0 {
					return fmt.Errorf("history entry %s not found", id)
				}
				history = history[idx : idx+1]
			}

			if imagesDir != "" {
				paths, err := export.WriteHistoryImages(imagesDir, history)
				if err != nil {
					return err
				}
				slog.Info("Images written", "dir", imagesDir, "files", len(paths))
			}

			switch format {
			case "parquet":
				if outPath == "" {
					return fmt.Errorf("--out is required for parquet")
				}
				n, err := export.WriteParquet(outPath, history)
				if err != nil {
					return err
				}
				slog.Info("History exported", "path", outPath, "rows", n)
				return nil
			case "yaml":
				w := cmd.OutOrStdout()
				if outPath != "" {
					f, err := os.Create(outPath)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", outPath, err)
					}
					defer f.Close()
					w = f
				}
				if id != "" {
					return export.WriteYAML(w, history[0])
				}
				return export.WriteHistoryYAML(w, history)
			default:
				return fmt.Errorf("unsupported format: %s (supported: yaml, parquet)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "yaml", "Output format: yaml or parquet")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Output file (yaml defaults to stdout)")
	cmd.Flags().StringVar(&id, "id", "", "Export a single history entry")
	cmd.Flags().StringVar(&imagesDir, "images", "", "Also write creative images to this directory")

	return cmd
}
