package git

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	out := []byte(" M app/main.py\n?? requirements.txt\nR  old.py -> new.py\nA  \"with space.py\"\n")

	got := parseStatus(out)
	assert.Equal(t, []ChangedFile{
		{Path: "app/main.py", Status: "M"},
		{Path: "requirements.txt", Status: "??"},
		{Path: "new.py", Status: "R"},
		{Path: "with space.py", Status: "A"},
	}, got)

	assert.Empty(t, parseStatus(nil))
}

func TestDescribe(t *testing.T) {
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
	ctx := context.Background()

	t.Run("Not a repository", func(t *testing.T) {
		_, err := Describe(ctx, t.TempDir())
		assert.ErrorIs(t, err, ErrNotRepository)
	})

	t.Run("Clean then dirty", func(t *testing.T) {
		dir := t.TempDir()
		gitRun := func(args ...string) {
			cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
			cmd.Env = append(os.Environ(),
				"GIT_AUTHOR_NAME=test", "GIT_AUTHOR_EMAIL=test@example.com",
				"GIT_COMMITTER_NAME=test", "GIT_COMMITTER_EMAIL=test@example.com")
			out, err := cmd.CombinedOutput()
			require.NoError(t, err, string(out))
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print(1)\n"), 0o644))
		gitRun("init", "-q")
		gitRun("add", ".")
		gitRun("commit", "-q", "-m", "init")

		info, err := Describe(ctx, dir)
		require.NoError(t, err)
		assert.Len(t, info.Revision, 40)
		assert.False(t, info.Dirty)

		require.NoError(t, os.WriteFile(filepath.Join(dir, "main.py"), []byte("print(2)\n"), 0o644))
		info, err = Describe(ctx, dir)
		require.NoError(t, err)
		assert.True(t, info.Dirty)
		assert.Equal(t, []ChangedFile{{Path: "main.py", Status: "M"}}, info.Changes)
	})
}
