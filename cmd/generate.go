package cmd

import "github.com/spf13/cobra"

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Print the suggested commit command without committing",
	Long: `Generate a commit message for the staged changes and print the matching
git commit command. This never commits, even when AI_AUTO or the config file
enables auto mode.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommitFlow(cmd, true)
	},
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
