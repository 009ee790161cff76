package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/samzong/aicommit/internal/formatter"
	"github.com/samzong/aicommit/internal/ui"
)

var (
	ErrNoChanges    = errors.New("no staged changes found")
	errEmptyMessage = errors.New("model returned an empty message")
)

type CommitOptions struct {
	// Auto commits with the generated message instead of printing the command.
	Auto         bool
	Model        string
	MaxDiffBytes int
	OutWriter    io.Writer
	ErrWriter    io.Writer
	Logger       *slog.Logger
}

// CommitFlow is a strict sequence of gates: repository check, non-empty
// diff, message generation, then print or commit. Each gate exits early.
type CommitFlow struct {
	git    GitClient
	llm    LLMClient
	opts   CommitOptions
	logger *slog.Logger
}

func NewCommitFlow(git GitClient, llm LLMClient, opts CommitOptions) *CommitFlow {
	if opts.OutWriter == nil {
		opts.OutWriter = io.Discard
	}
	if opts.ErrWriter == nil {
		opts.ErrWriter = io.Discard
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &CommitFlow{git: git, llm: llm, opts: opts, logger: logger}
}

func (f *CommitFlow) Run(ctx context.Context) error {
	if err := f.git.CheckGitRepository(); err != nil {
		return err
	}

	diff, err := f.getStagedDiff()
	if err != nil {
		return err
	}

	message, err := f.generateCommitMessage(ctx, diff)
	if err != nil {
		return err
	}

	if !f.opts.Auto {
		fmt.Fprintln(f.opts.OutWriter, "\nGenerated command:")
		fmt.Fprintln(f.opts.OutWriter, formatter.FormatCommand(message))
		return nil
	}

	return f.performCommit(message)
}

func (f *CommitFlow) getStagedDiff() (string, error) {
	diff, err := f.git.GetStagedDiff()
	if err != nil {
		return "", fmt.Errorf("failed to get git diff: %w", err)
	}

	if strings.TrimSpace(diff) == "" {
		return "", ErrNoChanges
	}

	if truncated, cut := formatter.TruncateDiff(diff, f.opts.MaxDiffBytes); cut {
		f.logger.Warn("staged diff truncated",
			"original_bytes", len(diff),
			"limit_bytes", f.opts.MaxDiffBytes)
		diff = truncated
	}
	return diff, nil
}

func (f *CommitFlow) generateCommitMessage(ctx context.Context, diff string) (string, error) {
	prompt := formatter.BuildPrompt(diff)

	status := fmt.Sprintf("Generating commit message (model: %s)...", f.opts.Model)
	if branch := f.git.CurrentBranch(); branch != "" {
		status = fmt.Sprintf("Generating commit message for %s (model: %s)...", branch, f.opts.Model)
	}

	sp := ui.NewSpinner(f.opts.ErrWriter, status)
	if !sp.Enabled() {
		fmt.Fprintln(f.opts.ErrWriter, status)
	}
	sp.Start()
	message, err := f.llm.GenerateCommitMessage(ctx, prompt, f.opts.Model)
	sp.Stop()

	if err != nil {
		return "", fmt.Errorf("failed to generate commit message: %w", err)
	}

	// An all-whitespace answer is no more usable than zero choices.
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("failed to generate commit message: %w", errEmptyMessage)
	}

	fmt.Fprintln(f.opts.ErrWriter, "Commit message generated.")
	return message, nil
}

func (f *CommitFlow) performCommit(message string) error {
	fmt.Fprintln(f.opts.ErrWriter, "Auto mode: executing commit...")

	out, err := f.git.Commit(message)
	if err != nil {
		return err
	}

	fmt.Fprintln(f.opts.OutWriter, "\nCommit successful!")
	if strings.TrimSpace(out) != "" {
		fmt.Fprint(f.opts.OutWriter, out)
	}
	return nil
}
