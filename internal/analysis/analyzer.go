// Package analysis turns scanned repository facts into a typed snapshot:
// stack profile, framework profile and entrypoint decision, each with its
// own confidence level.
package analysis

import (
	"fmt"
	"regexp"

	"dockagent/internal/extractor"
	"dockagent/internal/ir"
	"dockagent/internal/logging"
	"dockagent/internal/report"

	"go.uber.org/zap"
)

// Stage names as they appear in the run report.
const (
	StageStack      = "stack"
	StageFramework  = "framework"
	StageEntrypoint = "entrypoint"
)

// SourceReader serves raw file text by repo-relative path.
type SourceReader interface {
	ReadFile(rel string) ([]byte, error)
}

// Evidence answers the structural questions the detectors ask. Every method
// reports "no evidence" when a file cannot be examined.
type Evidence interface {
	HasMainGuard(path string, sourceCode []byte) bool
	Constructions(path string, sourceCode []byte) []extractor.Binding
	BoundVariable(path string, sourceCode []byte, constructor, name string) (extractor.Binding, bool)
}

// Analyzer runs the stack, framework and entrypoint detectors.
type Analyzer struct {
	eco          Ecosystem
	evidence     Evidence
	preferredDir string
	imports      map[string]*regexp.Regexp
	logger       *zap.Logger
}

type Option func(*Analyzer)

// WithPreferredDir sets the directory whose candidates sort first.
func WithPreferredDir(dir string) Option {
	return func(a *Analyzer) { a.preferredDir = dir }
}

func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = logging.OrNop(l) }
}

// NewAnalyzer creates a new analyzer.
func NewAnalyzer(eco Ecosystem, evidence Evidence, opts ...Option) *Analyzer {
	a := &Analyzer{
		eco:          eco,
		evidence:     evidence,
		preferredDir: "app",
		imports:      make(map[string]*regexp.Regexp),
		logger:       zap.NewNop(),
	}
	for _, fw := range eco.Frameworks {
		a.imports[fw.Import] = importPattern(fw.Import)
	}
	for _, rt := range eco.RuntimeServers {
		a.imports[rt] = importPattern(rt)
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs the three stages in order. Framework and entrypoint are
// skipped entirely when the repository is not in the target ecosystem.
// rep may be nil.
func (a *Analyzer) Analyze(scan ir.ScanResult, src SourceReader, rep *report.Report) ir.Snapshot {
	var snap ir.Snapshot

	h := rep.BeginStage(StageStack)
	snap.Stack = a.ProfileStack(scan, src)
	rep.EndStage(h, report.StatusOK, map[string]float64{
		"files":      float64(len(scan.Files)),
		"candidates": float64(len(snap.Stack.Candidates)),
	}, snap.Stack.Notes, nil)
	a.signal(rep, StageStack, snap.Stack.Confidence, snap.Stack.Notes)

	if !snap.Stack.IsTarget {
		name := displayName(a.eco)
		snap.Framework = ir.FrameworkProfile{
			Confidence: ir.Low,
			Notes:      []string{fmt.Sprintf("Not a %s project.", name)},
		}
		snap.Entrypoint = ir.EntrypointDecision{
			Model:      ir.ModelUnresolved,
			Confidence: ir.Low,
			Notes:      []string{fmt.Sprintf("Entrypoint resolution skipped: not a %s project.", name)},
		}
		rep.EndStage(rep.BeginStage(StageFramework), report.StatusSkipped, nil, snap.Framework.Notes, nil)
		rep.EndStage(rep.BeginStage(StageEntrypoint), report.StatusSkipped, nil, snap.Entrypoint.Notes, nil)
		a.logger.Info("repository is outside the target ecosystem", zap.String("ecosystem", a.eco.Name))
		return snap
	}

	h = rep.BeginStage(StageFramework)
	snap.Framework = a.ProfileFramework(scan, snap.Stack, src)
	rep.EndStage(h, report.StatusOK, nil, snap.Framework.Notes, nil)
	a.signal(rep, StageFramework, snap.Framework.Confidence, snap.Framework.Notes)

	h = rep.BeginStage(StageEntrypoint)
	snap.Entrypoint = a.ResolveEntrypoint(snap.Stack, snap.Framework, src)
	rep.EndStage(h, report.StatusOK, map[string]float64{
		"command_tokens": float64(len(snap.Entrypoint.Command)),
	}, snap.Entrypoint.Notes, nil)
	a.signal(rep, StageEntrypoint, snap.Entrypoint.Confidence, snap.Entrypoint.Notes)

	a.logger.Info("analysis finished",
		zap.String("framework", snap.Framework.Framework),
		zap.String("model", string(snap.Entrypoint.Model)),
		zap.Stringer("confidence", snap.Confidence()))
	return snap
}

func (a *Analyzer) signal(rep *report.Report, stage string, c ir.Confidence, notes []string) {
	severity := "info"
	if c != ir.High {
		severity = "warning"
	}
	for _, n := range notes {
		rep.AddSignal(stage+"_note", stage, severity, n)
	}
}
