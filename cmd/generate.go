package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/adwizard/internal/export"
	"github.com/lehigh-university-libraries/adwizard/internal/models"
	"github.com/lehigh-university-libraries/adwizard/internal/wizard"
	"github.com/spf13/cobra"
)

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var (
		formPath string
		outDir   string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate creatives once from a YAML form",
		Long: `Runs the wizard non-interactively: the form is read from YAML, creatives are
generated once and written to the output directory as creatives.yml plus one
JPEG per creative for image ads. The result is recorded in history and the
wizard's in-progress form is replaced.`,
		Example: `  adwizard generate --form flowers.yml --out ./out`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(formPath)
			if err != nil {
				return fmt.Errorf("failed to open form: %w", err)
			}
			form, err := export.ReadForm(f)
			f.Close()
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context(), opts.cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := runWizard(cmd, a.wizard, form)
			if err != nil {
				return err
			}
			if len(state.History) == 0 {
				return errors.New("generation finished without a history entry")
			}
			entry := state.History[0]

			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
			yamlPath := filepath.Join(outDir, "creatives.yml")
			out, err := os.Create(yamlPath)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", yamlPath, err)
			}
			if err := export.WriteYAML(out, entry); err != nil {
				out.Close()
				return err
			}
			if err := out.Close(); err != nil {
				return fmt.Errorf("failed to write %s: %w", yamlPath, err)
			}

			images, err := export.WriteImages(outDir, entry.Creatives)
			if err != nil {
				return err
			}

			slog.Info("Creatives written", "dir", outDir, "creatives", len(entry.Creatives), "images", len(images), "history_id", entry.ID)
			fmt.Fprintln(cmd.OutOrStdout(), yamlPath)
			for _, p := range images {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&formPath, "form", "", "YAML file with the wizard form (required)")
	cmd.Flags().StringVar(&outDir, "out", "out", "Directory to write creatives and images to")
	_ = cmd.MarkFlagRequired("form")

	return cmd
}

// runWizard walks the wizard through every step with form and waits for the
// generation to settle
func runWizard(cmd *cobra.Command, w *wizard.Wizard, form models.FormSnapshot) (wizard.State, error) {
	ctx := cmd.Context()

	if err := w.Restart(ctx); err != nil {
		return wizard.State{}, err
	}
	if err := w.SelectGoal(ctx, form.Goal); err != nil {
		return wizard.State{}, err
	}
	if err := w.ConfirmInfo(ctx, wizard.InfoUpdate{
		ProductDescription: form.ProductDescription,
		TargetAudience:     form.TargetAudience,
		USP:                form.USP,
		WebsiteURL:         form.WebsiteURL,
		Keywords:           form.Keywords,
	}); err != nil {
		return wizard.State{}, err
	}
	if err := w.UpdateStyle(ctx, wizard.StylePatch{
		CreativeStyle: &form.CreativeStyle,
		VariantCount:  &form.VariantCount,
		AIModel:       &form.AIModel,
	}); err != nil {
		return wizard.State{}, err
	}

	slog.Info("Generating creatives", "goal", form.Goal, "variants", form.VariantCount, "model", form.AIModel)
	done, err := w.Generate(ctx)
	if err != nil {
		return wizard.State{}, err
	}
	<-done

	state := w.State()
	if state.Phase != wizard.PhaseReady {
		return state, errors.New(state.LastError)
	}
	return state, nil
}
