package git

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/samzong/aicommit/internal/gitcmd"
	"github.com/samzong/aicommit/internal/gitutil"
)

// ErrNotRepository is returned when the working directory is outside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// CommitError reports a git commit that exited non-zero.
type CommitError struct {
	ExitCode int
	Stdout   string
	Stderr   string
	Err      error
}

func (e *CommitError) Error() string {
	if msg := strings.TrimSpace(e.Stderr); msg != "" {
		return fmt.Sprintf("git commit failed (exit %d): %s", e.ExitCode, msg)
	}
	return fmt.Sprintf("git commit failed (exit %d)", e.ExitCode)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}

type Options struct {
	Dir    string
	Env    []string
	Logger *slog.Logger
}

// Client runs the git subcommands the commit workflow needs.
type Client struct {
	runner gitcmd.Runner
	dir    string
}

func NewClient(opts Options) *Client {
	return &Client{
		runner: gitcmd.Runner{Dir: opts.Dir, Env: opts.Env, Logger: opts.Logger},
		dir:    opts.Dir,
	}
}

// IsGitRepository reports whether the working directory is inside a work tree.
func (c *Client) IsGitRepository() bool {
	result, err := c.runner.Run("rev-parse", "--is-inside-work-tree")
	return err == nil && result.StdoutString(true) == "true"
}

func (c *Client) CheckGitRepository() error {
	if !c.IsGitRepository() {
		return ErrNotRepository
	}
	return nil
}

// GetStagedDiff returns the textual diff of the index against HEAD.
func (c *Client) GetStagedDiff() (string, error) {
	result, err := c.runner.Run("diff", "--cached")
	if err != nil {
		return "", gitutil.WrapGitError("git diff --cached failed", result, err)
	}
	return result.StdoutString(false), nil
}

// Commit runs git commit with the message passed as a single argument and
// returns the captured stdout. A non-zero exit yields a *CommitError.
func (c *Client) Commit(message string, args ...string) (string, error) {
	commitArgs := append([]string{"commit", "-m", message}, args...)
	result, err := c.runner.Run(commitArgs...)
	if err != nil {
		return "", &CommitError{
			ExitCode: result.ExitCode,
			Stdout:   result.StdoutString(false),
			Stderr:   result.StderrString(false),
			Err:      err,
		}
	}
	return result.StdoutString(false), nil
}

// CurrentBranch returns the checked out branch name, or a short hash for a
// detached HEAD. It returns "" when the repository or HEAD cannot be resolved.
func (c *Client) CurrentBranch() string {
	dir := c.dir
	if dir == "" {
		dir = "."
	}

	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}

	head, err := repo.Head()
	if err != nil {
		return ""
	}

	if head.Name().IsBranch() {
		return head.Name().Short()
	}

	hash := head.Hash().String()
	if len(hash) > 7 {
		return hash[:7]
	}
	return hash
}
