package crawler

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dockagent/internal/ir"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func testOptions() Options {
	return Options{
		IgnoredDirs:       []string{".git", "__pycache__", ".venv"},
		IgnoredExtensions: []string{".pyc", ".log"},
		ConfigFiles:       []string{"requirements.txt", "pyproject.toml", "Dockerfile"},
		SourceExtensions:  []string{".py"},
		MaxFileBytes:      1024,
		Workers:           4,
	}
}

func TestCrawler_ScanProject(t *testing.T) {
	root := writeTree(t, map[string]string{
		"requirements.txt":         "fastapi\n",
		"app/main.py":              "from fastapi import FastAPI\napp = FastAPI()\n",
		"app/__init__.py":          "",
		"README.md":                "# demo",
		"Makefile":                 "all:",
		"app/__pycache__/main.pyc": "junk",
		".venv/lib/site.py":        "import os",
		"run.log":                  "log",
		"docs/requirements.txt":    "sphinx",
	})

	c := NewCrawler(testOptions(), nil)
	repo, err := c.ScanProject(context.Background(), root)
	require.NoError(t, err)

	want := ir.ScanResult{
		Files: []string{
			"Makefile",
			"README.md",
			"app/__init__.py",
			"app/main.py",
			"docs/requirements.txt",
			"requirements.txt",
		},
		Extensions:  map[string]int{".md": 1, ".py": 2, ".txt": 2},
		ConfigFiles: []string{"docs/requirements.txt", "requirements.txt"},
	}
	if diff := cmp.Diff(want, repo.Scan); diff != "" {
		t.Fatalf("scan mismatch (-want +got):\n%s", diff)
	}

	src, err := repo.ReadFile("app/main.py")
	require.NoError(t, err)
	assert.Contains(t, string(src), "FastAPI()")

	_, err = repo.ReadFile("README.md")
	assert.ErrorIs(t, err, os.ErrNotExist, "only source extensions are loaded")
}

func TestCrawler_OversizedSourceIsSkipped(t *testing.T) {
	root := writeTree(t, map[string]string{
		"big.py":   strings.Repeat("x = 1\n", 500),
		"small.py": "x = 1\n",
	})

	repo, err := NewCrawler(testOptions(), nil).ScanProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, []string{"big.py", "small.py"}, repo.Scan.Files, "oversized files are still inventoried")
	_, err = repo.ReadFile("big.py")
	assert.ErrorIs(t, err, ErrFileTooLarge)
	_, err = repo.ReadFile("small.py")
	assert.NoError(t, err)
}

func TestCrawler_DeterministicAcrossRuns(t *testing.T) {
	files := map[string]string{}
	for _, name := range []string{"z", "a", "m", "b", "q", "c"} {
		files["pkg/"+name+".py"] = "import " + name + "\n"
	}
	root := writeTree(t, files)

	c := NewCrawler(testOptions(), nil)
	first, err := c.ScanProject(context.Background(), root)
	require.NoError(t, err)
	second, err := c.ScanProject(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first.Scan, second.Scan)
	assert.Equal(t, first.sources, second.sources)
}

func TestValidateRoot(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := ValidateRoot(filepath.Join(dir, "missing"))
	assert.True(t, errors.Is(err, ErrInvalidRepository))

	_, err = ValidateRoot(file)
	assert.True(t, errors.Is(err, ErrInvalidRepository))

	abs, err := ValidateRoot(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(abs))
}
