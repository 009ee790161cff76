package gitutil

import (
	"errors"
	"testing"

	"github.com/samzong/aicommit/internal/gitcmd"
	"github.com/stretchr/testify/assert"
)

func TestWrapGitError(t *testing.T) {
	base := errors.New("exit status 128")

	tests := []struct {
		name   string
		result gitcmd.Result
		want   string
	}{
		{
			name:   "prefers stderr",
			result: gitcmd.Result{Stderr: []byte("fatal: bad revision\nhint: more\n"), Stdout: []byte("ignored")},
			want:   "git diff failed: fatal: bad revision: exit status 128",
		},
		{
			name:   "falls back to stdout",
			result: gitcmd.Result{Stdout: []byte("nothing to commit\n")},
			want:   "git diff failed: nothing to commit: exit status 128",
		},
		{
			name: "no output",
			want: "git diff failed: exit status 128",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := WrapGitError("git diff failed", tt.result, base)
			assert.EqualError(t, err, tt.want)
			assert.ErrorIs(t, err, base)
		})
	}
}
