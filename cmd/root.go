package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/adwizard/internal/config"
	"github.com/spf13/cobra"
)

// rootOptions is filled in before any subcommand runs
type rootOptions struct {
	cfg *config.Config
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "adwizard",
		Short: "AI-assisted ad creative wizard for Yandex.Direct",
		Long: `adwizard walks you through creating Yandex.Direct ad creatives:
pick a goal, describe the product, choose a style and let the model write
headlines, ad text, sitelinks and images. Results can be refined in plain
language and are kept in a local history.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			setupLogging(cfg.LogLevel)
			opts.cfg = cfg
			return nil
		},
	}

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newGenerateCmd(opts))
	cmd.AddCommand(newHistoryCmd(opts))
	cmd.AddCommand(newCredentialCmd(opts))
	cmd.AddCommand(newPINHashCmd())

	return cmd
}

func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})
	slog.SetDefault(slog.New(handler))
}
