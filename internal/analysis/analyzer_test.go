package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dockagent/internal/crawler"
	"dockagent/internal/extractor"
	"dockagent/internal/ir"
	"dockagent/internal/report"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEvidence records how often the detectors consulted the extractor.
type countingEvidence struct {
	inner Evidence
	calls int
}

func (c *countingEvidence) HasMainGuard(path string, src []byte) bool {
	c.calls++
	return c.inner.HasMainGuard(path, src)
}

func (c *countingEvidence) Constructions(path string, src []byte) []extractor.Binding {
	c.calls++
	return c.inner.Constructions(path, src)
}

func (c *countingEvidence) BoundVariable(path string, src []byte, ctor, name string) (extractor.Binding, bool) {
	c.calls++
	return c.inner.BoundVariable(path, src, ctor, name)
}

func writeRepo(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func newEvidence(t *testing.T) *countingEvidence {
	t.Helper()
	ext, err := extractor.NewExtractor("python", extractor.Options{
		Constructors: Python().Constructors(),
		MaxFileBytes: 1 << 20,
		ParseTimeout: time.Second,
	})
	require.NoError(t, err)
	return &countingEvidence{inner: ext}
}

func analyze(t *testing.T, files map[string]string) (ir.Snapshot, *report.Report, *countingEvidence) {
	t.Helper()
	root := writeRepo(t, files)
	c := crawler.NewCrawler(crawler.Options{
		IgnoredDirs:      []string{".git", "__pycache__"},
		ConfigFiles:      []string{"requirements.txt", "pyproject.toml"},
		SourceExtensions: []string{".py"},
		Workers:          2,
	}, nil)
	repo, err := c.ScanProject(context.Background(), root)
	require.NoError(t, err)

	ev := newEvidence(t)
	rep := report.New("test", root)
	snap := NewAnalyzer(Python(), ev).Analyze(repo.Scan, repo, rep)
	return snap, rep, ev
}

func TestAnalyze_NonTargetRepositorySkipsLaterStages(t *testing.T) {
	snap, rep, ev := analyze(t, map[string]string{
		"package.json": "{}",
		"index.js":     "console.log('hi')",
	})

	assert.False(t, snap.Stack.IsTarget)
	assert.Equal(t, ir.Low, snap.Stack.Confidence)
	assert.Equal(t, []string{"No Python source files detected."}, snap.Stack.Notes)
	assert.Zero(t, ev.calls, "extractor must not be consulted")

	assert.Empty(t, snap.Framework.Framework)
	assert.Equal(t, ir.ModelUnresolved, snap.Entrypoint.Model)
	assert.Empty(t, snap.Entrypoint.Command)

	for _, stage := range []string{StageFramework, StageEntrypoint} {
		m, ok := rep.Stage(stage)
		require.True(t, ok, stage)
		assert.Equal(t, report.StatusSkipped, m.Status, stage)
	}
}

func TestProfileStack(t *testing.T) {
	t.Run("Manifest priority and preferred directory ordering", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"pyproject.toml":    "[project]\n",
			"requirements.txt":  "flask\n",
			"zeta/server.py":    "from flask import Flask\napp = Flask(__name__)\n",
			"app/web.py":        "from flask import Flask\nweb = Flask(__name__)\n",
			"beta/factory.py":   "from flask import Flask\ndef make():\n    return Flask(__name__)\n",
			"scripts/helper.py": "print('hi')\n",
		})

		assert.True(t, snap.Stack.IsTarget)
		assert.Equal(t, ir.High, snap.Stack.Confidence)
		assert.Equal(t, "requirements.txt", snap.Stack.Manifest)

		want := []ir.Candidate{
			{File: "app/web.py", Symbol: "web", Constructor: "Flask"},
			{File: "beta/factory.py", Constructor: "Flask"},
			{File: "zeta/server.py", Symbol: "app", Constructor: "Flask"},
		}
		if diff := cmp.Diff(want, snap.Stack.Candidates); diff != "" {
			t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("Nested manifest does not count", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"docs/requirements.txt": "sphinx\n",
			"main.py":               "print('hi')\n",
		})

		assert.Equal(t, ir.Medium, snap.Stack.Confidence)
		assert.Empty(t, snap.Stack.Manifest)
		assert.Equal(t, []string{
			"No standard Python dependency file found (requirements.txt / pyproject.toml).",
			"No Python files construct a known application object (FastAPI, Flask).",
		}, snap.Stack.Notes)
		assert.Empty(t, snap.Stack.Candidates)
	})

	t.Run("Filename alone is not a candidate", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "",
			"main.py":          "import os\n",
			"app.py":           "x = 1\n",
			"wsgi.py":          "application = None\n",
		})
		assert.Empty(t, snap.Stack.Candidates)
		assert.Equal(t, ir.High, snap.Stack.Confidence, "no candidates does not lower confidence")
	})
}

func TestProfileFramework(t *testing.T) {
	tests := []struct {
		name       string
		files      map[string]string
		framework  string
		iface      ir.InterfaceFamily
		port       int
		runtime    string
		confidence ir.Confidence
		notes      []string
	}{
		{
			name: "single framework without runtime",
			files: map[string]string{
				"main.py": "from flask import Flask\n",
			},
			framework: "flask", iface: ir.InterfaceWSGI, port: 5000,
			confidence: ir.Medium, notes: []string{},
		},
		{
			name: "single framework with runtime",
			files: map[string]string{
				"main.py":  "from fastapi import FastAPI\n",
				"serve.py": "import uvicorn\n",
			},
			framework: "fastapi", iface: ir.InterfaceASGI, port: 8000, runtime: "uvicorn",
			confidence: ir.High, notes: []string{},
		},
		{
			name: "two runtimes are not auto-picked",
			files: map[string]string{
				"main.py": "import flask\nimport gunicorn\nfrom uvicorn import run\n",
			},
			framework: "flask", iface: ir.InterfaceWSGI, port: 5000,
			confidence: ir.Medium,
			notes:      []string{"Multiple runtime servers detected: [gunicorn uvicorn]."},
		},
		{
			name: "hybrid interface",
			files: map[string]string{
				"manage.py": "from django.core.management import execute_from_command_line\n",
			},
			framework: "django", iface: ir.InterfaceHybrid, port: 8000,
			confidence: ir.Medium, notes: []string{},
		},
		{
			name: "two frameworks are ambiguous",
			files: map[string]string{
				"a.py": "from fastapi import FastAPI\napp = FastAPI()\nimport uvicorn\n",
				"b.py": "from flask import Flask\n",
			},
			confidence: ir.Low,
			notes:      []string{"Multiple frameworks detected: [fastapi flask]. Manual review required."},
		},
		{
			name: "similar module names do not match",
			files: map[string]string{
				"main.py": "import flask_cors\nfrom fastapi_users import x\n# import flask\n",
			},
			confidence: ir.Low,
			notes:      []string{"No known Python web framework imports detected."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.files["requirements.txt"] = ""
			snap, _, _ := analyze(t, tt.files)
			fw := snap.Framework

			assert.Equal(t, tt.framework, fw.Framework)
			assert.Equal(t, tt.iface, fw.Interface)
			assert.Equal(t, tt.port, fw.DefaultPort)
			assert.Equal(t, tt.runtime, fw.RuntimeServer)
			assert.Equal(t, tt.confidence, fw.Confidence)
			assert.Equal(t, tt.notes, fw.Notes)
		})
	}
}

func TestResolveEntrypoint(t *testing.T) {
	t.Run("Script precedence over a service object", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "fastapi\nuvicorn\n",
			"app/main.py":      "from fastapi import FastAPI\nimport uvicorn\napp = FastAPI()\n",
			"tool.py": "from fastapi import FastAPI\nrunner = FastAPI()\n" +
				"if __name__ == \"__main__\":\n    print('run')\n",
		})

		e := snap.Entrypoint
		assert.Equal(t, ir.ModelScript, e.Model)
		assert.Equal(t, []string{"python", "tool.py"}, e.Command)
		assert.Equal(t, ir.High, e.Confidence)
		require.NotNil(t, e.Source)
		assert.Equal(t, "tool.py", e.Source.File)
	})

	t.Run("ASGI service command", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "fastapi\nuvicorn\n",
			"app/api/main.py":  "from fastapi import FastAPI\nimport uvicorn\nApp = FastAPI()\n",
		})

		e := snap.Entrypoint
		assert.Equal(t, ir.ModelASGIService, e.Model)
		assert.Equal(t, []string{"uvicorn", "app.api.main:App", "--host", "0.0.0.0", "--port", "8000"}, e.Command)
		assert.Equal(t, ir.High, e.Confidence)
	})

	t.Run("WSGI service command", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "flask\ngunicorn\n",
			"web.py":           "import flask\napp = flask.Flask(__name__)\n",
		})

		e := snap.Entrypoint
		assert.Equal(t, ir.ModelWSGIService, e.Model)
		assert.Equal(t, []string{"gunicorn", "web:app", "--bind", "0.0.0.0:5000"}, e.Command)
	})

	t.Run("Binding under another name is not guessed", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "fastapi\n",
			"main.py":          "from fastapi import FastAPI\napi = FastAPI()\n",
		})

		e := snap.Entrypoint
		assert.Equal(t, ir.ModelUnresolved, e.Model)
		assert.Empty(t, e.Command)
		assert.Equal(t, ir.Low, e.Confidence)
		assert.Equal(t, []string{"No resolvable execution entrypoint found."}, e.Notes)
	})

	t.Run("Hybrid interface stays unresolved", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "django\n",
			"settings.py":      "import django\n",
		})

		e := snap.Entrypoint
		assert.Equal(t, ir.ModelUnresolved, e.Model)
		assert.Equal(t, []string{
			"Framework django has no recognised application constructor.",
			"No resolvable execution entrypoint found.",
		}, e.Notes)
	})

	t.Run("Service phase needs an identified framework", func(t *testing.T) {
		snap, _, _ := analyze(t, map[string]string{
			"requirements.txt": "",
			"a.py":             "from fastapi import FastAPI\napp = FastAPI()\n",
			"b.py":             "import flask\n",
		})
		assert.Empty(t, snap.Framework.Framework)
		assert.Equal(t, ir.ModelUnresolved, snap.Entrypoint.Model)
	})
}

func TestAnalyze_EndToEndServiceRepository(t *testing.T) {
	snap, rep, _ := analyze(t, map[string]string{
		"requirements.txt": "fastapi\nuvicorn\n",
		"app/main.py":      "from fastapi import FastAPI\nimport uvicorn\n\napp = FastAPI()\n",
	})

	assert.Equal(t, ir.High, snap.Stack.Confidence)
	assert.Equal(t, ir.High, snap.Framework.Confidence)
	assert.Equal(t, ir.InterfaceASGI, snap.Framework.Interface)
	assert.Equal(t, ir.ModelASGIService, snap.Entrypoint.Model)
	assert.Contains(t, snap.Entrypoint.Command, "app.main:app")
	assert.Equal(t, ir.High, snap.Confidence())

	assert.Equal(t, []string{StageStack, StageFramework, StageEntrypoint}, rep.StageNames())
}

func TestAnalyze_AggregateIsMinimum(t *testing.T) {
	snap, _, _ := analyze(t, map[string]string{
		"main.py": "from flask import Flask\napp = Flask(__name__)\n",
	})

	assert.Equal(t, ir.Medium, snap.Stack.Confidence)
	assert.Equal(t, ir.Medium, snap.Framework.Confidence)
	assert.Equal(t, ir.High, snap.Entrypoint.Confidence)
	assert.Equal(t, ir.Medium, snap.Confidence())
}

func TestAnalyze_Deterministic(t *testing.T) {
	files := map[string]string{
		"requirements.txt": "flask\n",
		"app/a.py":         "from flask import Flask\napp = Flask(__name__)\n",
		"app/b.py":         "from flask import Flask\nApp = Flask(__name__)\n",
		"c.py":             "from flask import Flask\napp = Flask(__name__)\n",
	}

	first, _, _ := analyze(t, files)
	second, _, _ := analyze(t, files)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
	assert.Equal(t, "app.a:app", first.Entrypoint.Command[1])
}
