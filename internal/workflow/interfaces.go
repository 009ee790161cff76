// Package workflow runs the staged-diff to commit-message pipeline.
package workflow

import "context"

// GitClient abstracts git operations for testability.
type GitClient interface {
	CheckGitRepository() error
	GetStagedDiff() (string, error)
	Commit(message string, args ...string) (string, error)
	CurrentBranch() string
}

// LLMClient abstracts LLM operations for testability.
type LLMClient interface {
	GenerateCommitMessage(ctx context.Context, prompt string, model string) (string, error)
}
