package cmd

import (
	"errors"
	"fmt"

	"github.com/samzong/aicommit/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective aicommit configuration",
	Long: `Show the effective aicommit configuration after merging defaults, the config
file, the environment (including the dotenv file), and flags. The API key is masked.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil && !isValidationError(err) {
			return handleErrors(err)
		}

		out, marshalErr := yaml.Marshal(cfg.Redacted())
		if marshalErr != nil {
			return handleErrors(fmt.Errorf("failed to render config: %w", marshalErr))
		}
		fmt.Fprint(cmd.OutOrStdout(), string(out))

		return handleErrors(err)
	},
}

func isValidationError(err error) bool {
	return errors.Is(err, config.ErrMissingEnv) || errors.Is(err, config.ErrInvalid)
}
