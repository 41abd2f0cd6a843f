package cmd

import (
	"fmt"

	"github.com/lehigh-university-libraries/adwizard/internal/auth"
	"github.com/spf13/cobra"
)

func newPINHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pin-hash <pin>",
		Short: "Print the bcrypt hash of a PIN for the pin_hash setting",
		Example: `  adwizard pin-hash 4821
  # then in adwizard.yml:
  # pin_hash: $2a$10$...`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashPIN(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
