package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/samzong/aicommit/internal/config"
	"github.com/samzong/aicommit/internal/git"
	"github.com/samzong/aicommit/internal/llm"
	"github.com/samzong/aicommit/internal/logging"
	"github.com/samzong/aicommit/internal/workflow"
	"github.com/spf13/cobra"
)

var (
	cfgFile      string
	envFile      string
	autoCommit   bool
	timeoutMs    int
	maxDiffBytes int
	verbose      bool
	rootCmd      = &cobra.Command{
		Use:   "aicommit",
		Short: "aicommit - AI commit message generator",
		Long: `aicommit reads the staged diff, asks a chat completion API for a conventional ` +
			`commit message, and prints the matching git commit command or runs it with --auto.`,
		Version: fmt.Sprintf("%s (built at %s)", Version, BuildTime),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommitFlow(cmd, false)
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

// ExitError signals that the failure was already reported to the user and the
// process should exit with Code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func Execute() error {
	return rootCmd.Execute()
}

func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// RootCmd exposes the command tree for doc generation.
func RootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", config.DefaultEnvFile,
		"dotenv file loaded before reading AI_* variables")
	rootCmd.PersistentFlags().IntVarP(&timeoutMs, "timeout", "t", config.DefaultTimeoutMillis,
		"Timeout for AI API requests (in milliseconds)")
	rootCmd.PersistentFlags().IntVar(&maxDiffBytes, "max-diff-bytes", 0,
		"Truncate the staged diff sent to the API to this many bytes (0 = no limit)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "V", false, "Log git commands and API requests to stderr")
	rootCmd.Flags().BoolVarP(&autoCommit, "auto", "a", false, "Automatically execute the generated git commit command")

	rootCmd.AddCommand(configCmd)
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	return config.Load(config.Options{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
		Flags:      cmd.Flags(),
	})
}

// runCommitFlow validates configuration before touching git or the network.
func runCommitFlow(cmd *cobra.Command, suggestOnly bool) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return handleErrors(err)
	}

	logger, closer, err := logging.New(logging.Options{
		Verbose: cfg.Verbose,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Stderr:  errWriter(),
	})
	if err != nil {
		fmt.Fprintln(errWriter(), "Warning: logging disabled:", err)
	}
	defer closer.Close()

	gitClient := git.NewClient(git.Options{Logger: logger})
	llmClient := llm.NewClient(llm.Options{
		APIKey:   cfg.APIKey,
		Endpoint: cfg.APIURL,
		Timeout:  cfg.Timeout(),
		Logger:   logger,
	})

	flow := workflow.NewCommitFlow(gitClient, llmClient, workflow.CommitOptions{
		Auto:         cfg.Auto && !suggestOnly,
		Model:        cfg.Model,
		MaxDiffBytes: cfg.MaxDiffBytes,
		OutWriter:    outWriter(),
		ErrWriter:    errWriter(),
		Logger:       logger,
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return handleErrors(flow.Run(ctx))
}

// handleErrors prints the user-facing message for each failure class and
// returns an *ExitError so main does not print it again. A run with nothing
// staged is a successful no-op.
func handleErrors(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.Canceled) {
		return err
	}

	w := errWriter()
	var (
		missingEnv *config.MissingEnvError
		statusErr  *llm.StatusError
		commitErr  *git.CommitError
	)

	switch {
	case errors.Is(err, workflow.ErrNoChanges):
		fmt.Fprintln(outWriter(), "No staged changes found. Nothing to commit.")
		return nil
	case errors.As(err, &missingEnv):
		fmt.Fprintln(w, "Error:", missingEnv.Error())
	case errors.Is(err, git.ErrNotRepository):
		fmt.Fprintln(w, "Error: Not a git repository.")
	case errors.As(err, &statusErr):
		fmt.Fprintf(w, "Error: Failed to call API. Status: %s\n", statusErr.StatusText())
		fmt.Fprintf(w, "Response: %s\n", statusErr.Body)
	case errors.Is(err, llm.ErrEmptyResponse):
		fmt.Fprintln(w, "Error: No commit message was generated.")
	case errors.As(err, &commitErr):
		fmt.Fprintln(w, "\nError: Git commit failed.")
		fmt.Fprintln(w, commitErr.Stderr)
	default:
		fmt.Fprintln(w, "Error:", err)
	}

	return &ExitError{Code: 1, Err: err}
}
