package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"comfyd/internal/provision"
	"comfyd/pkg/types"
)

// buildRootCmd constructs the build-time provisioning command tree. The
// fetch decision is frozen into the image; there is no runtime counterpart.
func buildRootCmd(logger zerolog.Logger) *cobra.Command {
	var (
		modelSet   string
		modelsRoot string
		token      string
	)

	rootCmd := &cobra.Command{
		Use:           "provision",
		Short:         "Stage model artifacts into the image at build time",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&modelSet, "model-set", string(types.ModelSetAll), "Model set selector: sdxl|sd3|flux1-schnell|flux1-dev|all")
	rootCmd.PersistentFlags().StringVar(&modelsRoot, "models-root", "/comfyui/models", "Models root directory to populate")
	rootCmd.PersistentFlags().StringVar(&token, "hf-token", os.Getenv("HUGGINGFACE_ACCESS_TOKEN"), "Bearer credential for gated artifacts (defaults HUGGINGFACE_ACCESS_TOKEN)")

	planCmd := &cobra.Command{
		Use:     "plan",
		Short:   "Print the resolved artifact plan as JSON",
		Example: "  provision plan --model-set flux1-schnell",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := types.ParseModelSet(modelSet)
			if err != nil {
				return err
			}
			plan, err := provision.Resolve(set)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(plan)
		},
	}

	fetchCmd := &cobra.Command{
		Use:     "fetch",
		Short:   "Create the family layout and download the plan's artifacts",
		Example: "  provision fetch --model-set sd3 --hf-token $HUGGINGFACE_ACCESS_TOKEN",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := types.ParseModelSet(modelSet)
			if err != nil {
				return err
			}
			plan, err := provision.Resolve(set)
			if err != nil {
				return err
			}
			logger.Info().Str("model_set", string(set)).Int("artifacts", len(plan.Artifacts)).Str("root", modelsRoot).Msg("provisioning")
			if err := provision.Fetch(cmd.Context(), modelsRoot, plan, provision.Options{Token: token, Logger: logger}); err != nil {
				return fmt.Errorf("provisioning incomplete: %w", err)
			}
			logger.Info().Msg("provisioning complete")
			return nil
		},
	}

	layoutCmd := &cobra.Command{
		Use:   "layout",
		Short: "Create the family directory layout without downloading",
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := types.ParseModelSet(modelSet)
			if err != nil {
				return err
			}
			plan, err := provision.Resolve(set)
			if err != nil {
				return err
			}
			return provision.EnsureLayout(modelsRoot, plan)
		},
	}

	rootCmd.AddCommand(planCmd, fetchCmd, layoutCmd)
	return rootCmd
}
