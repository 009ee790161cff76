package gitutil

import (
	"fmt"
	"strings"

	"github.com/samzong/aicommit/internal/gitcmd"
)

// WrapGitError builds an error message that prefers git stderr output when present.
func WrapGitError(action string, result gitcmd.Result, err error) error {
	errMsg := result.StderrString(true)
	if errMsg == "" {
		errMsg = result.StdoutString(true)
	}
	if errMsg != "" {
		return fmt.Errorf("%s: %s: %w", action, firstLine(errMsg), err)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func firstLine(s string) string {
	if line, _, found := strings.Cut(s, "\n"); found {
		return line
	}
	return s
}
