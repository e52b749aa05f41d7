package reviewer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const generated = `FROM python:3.11-slim

WORKDIR /app

ENV PYTHONDONTWRITEBYTECODE=1
ENV PYTHONUNBUFFERED=1

COPY requirements.txt .
RUN pip install --no-cache-dir -r requirements.txt

COPY . .

EXPOSE 8000

CMD ["uvicorn", "app.main:app", "--host", "0.0.0.0", "--port", "8000"]
`

func rules(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Rule)
	}
	return out
}

func TestReview_GeneratedArtifactPasses(t *testing.T) {
	rep := New().Review(generated)

	assert.True(t, rep.Passed)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, "non-root-user", rep.Issues[0].Rule)
	assert.Equal(t, SeverityWarning, rep.Issues[0].Severity)
	assert.Empty(t, rep.Errors())
}

func TestReview_PyprojectArtifactPasses(t *testing.T) {
	rep := New().Review(`FROM python:3.11-slim
WORKDIR /app
COPY pyproject.toml .
COPY . .
RUN pip install --no-cache-dir .
USER app
CMD ["python", "main.py"]
`)
	assert.True(t, rep.Passed)
	assert.Empty(t, rep.Issues)
}

func TestReview_Rules(t *testing.T) {
	tests := []struct {
		name       string
		dockerfile string
		wantRules  []string
		passed     bool
	}{
		{
			name:       "latest tag and fat image",
			dockerfile: "FROM python:latest\nUSER app\nCMD [\"python\"]\n",
			wantRules:  []string{"base-image", "base-image"},
			passed:     true,
		},
		{
			name:       "untagged image",
			dockerfile: "FROM debian\nUSER app\nCMD [\"bash\"]\n",
			wantRules:  []string{"base-image"},
			passed:     true,
		},
		{
			name:       "named stage is not re-checked",
			dockerfile: "FROM python:3.11-slim AS build\nFROM build\nUSER app\nCMD [\"python\"]\n",
			wantRules:  []string{},
			passed:     true,
		},
		{
			name:       "explicit root user",
			dockerfile: "FROM python:3.11-slim\nUSER root\nCMD [\"python\"]\n",
			wantRules:  []string{"non-root-user"},
			passed:     true,
		},
		{
			name:       "root restored after non-root user",
			dockerfile: "FROM python:3.11-slim\nUSER app\nRUN id\nUSER root\nCMD [\"python\"]\n",
			wantRules:  []string{"non-root-user"},
			passed:     true,
		},
		{
			name:       "non-root user after root",
			dockerfile: "FROM python:3.11-slim\nUSER root\nRUN id\nUSER 1000:1000\nCMD [\"python\"]\n",
			wantRules:  []string{},
			passed:     true,
		},
		{
			name:       "pip cache kept",
			dockerfile: "FROM python:3.11-slim\nCOPY requirements.txt .\nRUN pip install -r requirements.txt\nUSER app\nCMD [\"python\"]\n",
			wantRules:  []string{"pip-no-cache"},
			passed:     true,
		},
		{
			name:       "manifest copied after install",
			dockerfile: "FROM python:3.11-slim\nRUN pip install --no-cache-dir -r requirements.txt\nCOPY requirements.txt .\nUSER app\nCMD [\"python\"]\n",
			wantRules:  []string{"manifest-copy"},
			passed:     false,
		},
		{
			name:       "project install without manifest",
			dockerfile: "FROM python:3.11-slim\nCOPY src/ src/\nRUN pip install --no-cache-dir . && echo ok\nUSER app\nCMD [\"python\"]\n",
			wantRules:  []string{"manifest-copy"},
			passed:     false,
		},
		{
			name:       "no start directive",
			dockerfile: "FROM python:3.11-slim\nUSER app\n",
			wantRules:  []string{"start-directive"},
			passed:     false,
		},
		{
			name:       "no base image",
			dockerfile: "USER app\nENTRYPOINT [\"python\"]\n",
			wantRules:  []string{"base-image"},
			passed:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := New().Review(tt.dockerfile)
			assert.Equal(t, tt.wantRules, rules(rep.Issues))
			assert.Equal(t, tt.passed, rep.Passed)
		})
	}
}

func TestReview_UnparseableIsAnError(t *testing.T) {
	rep := New().Review("")
	assert.False(t, rep.Passed)
	require.Len(t, rep.Issues, 1)
	assert.Equal(t, "parse", rep.Issues[0].Rule)
}

func TestReview_CustomRules(t *testing.T) {
	r := New(Rule{ID: "start-directive", Check: reviewStartDirective})
	rep := r.Review("FROM python:latest\n")
	assert.Equal(t, []string{"start-directive"}, rules(rep.Issues))
}
