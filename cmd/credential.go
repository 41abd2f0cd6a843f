package cmd

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
)

func newCredentialCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Manage the stored model API key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <api-key>",
		Short: "Store the API key used for generation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.wizard.SetCredential(cmd.Context(), strings.TrimSpace(args[0])); err != nil {
				return err
			}
			slog.Info("API key stored")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove the stored API key",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.wizard.ClearCredential(cmd.Context()); err != nil {
				return err
			}
			slog.Info("API key removed")
			return nil
		},
	})

	return cmd
}
