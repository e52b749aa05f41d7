package conversation

import (
	"context"
	"fmt"

	"dockagent/internal/analysis"
	"dockagent/internal/crawler"
	"dockagent/internal/generator"
	"dockagent/internal/ir"
	"dockagent/internal/logging"
	"dockagent/internal/policy"
	"dockagent/internal/report"
	"dockagent/internal/reviewer"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const stageGeneration = "generation"

// Scanner inventories a repository.
type Scanner interface {
	ScanProject(ctx context.Context, root string) (*crawler.Repository, error)
}

// Orchestrator drives one session. Its methods must be called from a single
// goroutine.
type Orchestrator struct {
	state    *State
	scanner  Scanner
	analyzer *analysis.Analyzer
	registry *generator.Registry
	reviewer *reviewer.Reviewer
	report   *report.Report
	logger   *zap.Logger
}

type Option func(*Orchestrator)

func WithRegistry(r *generator.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithReviewer sets the reviewer run on generated artifacts. Nil disables
// the review.
func WithReviewer(r *reviewer.Reviewer) Option {
	return func(o *Orchestrator) { o.reviewer = r }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.logger = logging.OrNop(l) }
}

// NewOrchestrator starts a new session with a random id.
func NewOrchestrator(scanner Scanner, analyzer *analysis.Analyzer, opts ...Option) *Orchestrator {
	id := uuid.NewString()
	o := &Orchestrator{
		state:    &State{SessionID: id, confidence: ir.Low},
		scanner:  scanner,
		analyzer: analyzer,
		registry: generator.DefaultRegistry(),
		reviewer: reviewer.New(),
		report:   report.New(id, ""),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State exposes the session for reading.
func (o *Orchestrator) State() *State { return o.state }

// Report is the run report of the current analysis.
func (o *Orchestrator) Report() *report.Report { return o.report }

// SetRepoPath points the session at a repository. Changing the path discards
// any previous analysis.
func (o *Orchestrator) SetRepoPath(path string) {
	if o.state.RepoPath != path {
		o.reset(phaseNew)
		o.state.snapshot = nil
	}
	o.state.RepoPath = path
}

// RunAnalysis scans the repository and runs the detectors. An invalid path
// is returned as an error before any detector runs. Re-running discards
// answers, questions and results of the previous run.
func (o *Orchestrator) RunAnalysis(ctx context.Context) (ir.Snapshot, error) {
	if o.state.RepoPath == "" {
		return ir.Snapshot{}, fmt.Errorf("%w: repository path not set", ErrIllegalState)
	}

	repo, err := o.scanner.ScanProject(ctx, o.state.RepoPath)
	if err != nil {
		return ir.Snapshot{}, fmt.Errorf("failed to scan repository: %w", err)
	}

	o.report = report.New(o.state.SessionID, repo.Root)
	snap := o.analyzer.Analyze(repo.Scan, repo, o.report)

	o.reset(phaseAnalyzed)
	o.state.snapshot = &snap
	o.state.confidence = snap.Confidence()
	o.state.confidenceSource = SourceAnalysis

	o.logger.Info("analysis completed",
		zap.String("session", o.state.SessionID),
		zap.Stringer("confidence", o.state.confidence))
	return snap, nil
}

// EvaluateNextAction decides what the caller should do next. When
// confidence is insufficient it stores the clarification questions it built.
func (o *Orchestrator) EvaluateNextAction() Action {
	s := o.state
	switch {
	case s.phase == phaseNew:
		return ActionNeedsAnalysis
	case s.phase == phaseGenerated:
		return ActionDone
	case s.confidence != ir.High:
		questions := BuildQuestions(*s.snapshot)
		if len(questions) == 0 {
			s.pending = nil
			return ActionRefused
		}
		s.pending = questions
		return ActionNeedsClarification
	default:
		return ActionReadyForGeneration
	}
}

// SubmitClarificationAnswers records answers. Once every pending question
// has an answer the aggregate confidence is forced to high. Answers are
// trusted as given: they are not checked against the evidence, and the
// snapshot the gate later judges is left untouched.
func (o *Orchestrator) SubmitClarificationAnswers(answers map[string]string) error {
	s := o.state
	if s.phase != phaseAnalyzed || len(s.pending) == 0 {
		return fmt.Errorf("%w: no clarification question is pending", ErrIllegalState)
	}

	for id, answer := range answers {
		s.answers[id] = answer
	}
	for _, q := range s.pending {
		if _, ok := s.answers[q.ID]; !ok {
			return nil
		}
	}

	s.pending = nil
	s.confidence = ir.High
	s.confidenceSource = SourceClarification
	o.logger.Info("clarification complete; confidence raised by answers",
		zap.String("session", s.SessionID))
	return nil
}

// RunGeneration selects a generator and runs it once. Calling it before
// analysis, below high confidence or after a previous attempt is an
// ErrIllegalState.
func (o *Orchestrator) RunGeneration() (Outcome, error) {
	s := o.state
	switch {
	case s.phase == phaseNew:
		return Outcome{}, fmt.Errorf("%w: analysis not completed", ErrIllegalState)
	case s.phase == phaseGenerated:
		return Outcome{}, fmt.Errorf("%w: generation already attempted", ErrIllegalState)
	case s.confidence != ir.High:
		return Outcome{}, fmt.Errorf("%w: generation not allowed with %s confidence", ErrIllegalState, s.confidence)
	}

	h := o.report.BeginStage(stageGeneration)
	s.phase = phaseGenerated

	in := generator.Input{Snapshot: *s.snapshot, Answers: s.Answers()}
	g, ok := o.registry.Select(in)
	if !ok {
		reasons := policy.Evaluate(in.Snapshot, in.Answers).Reasons
		if len(reasons) == 0 {
			reasons = []string{"No suitable generator available for this project."}
		}
		out := Outcome{Status: StatusRefused, Confidence: ir.Low, Reasons: reasons}
		o.finishGeneration(h, out)
		return out, nil
	}

	res := g.Generate(in)
	s.result = &res

	out := Outcome{
		Generator:  res.Generator,
		Confidence: res.Confidence,
		Warnings:   res.Warnings,
	}
	if res.Refused {
		out.Status = StatusRefused
		out.Reasons = res.RefusalReasons
	} else {
		out.Status = StatusGenerated
		out.Dockerfile = res.Dockerfile
		if o.reviewer != nil {
			rev := o.reviewer.Review(res.Dockerfile)
			out.Review = &rev
		}
	}
	o.finishGeneration(h, out)
	return out, nil
}

func (o *Orchestrator) finishGeneration(h report.StageHandle, out Outcome) {
	o.state.outcome = &out
	o.report.EndStage(h, report.StatusOK, map[string]float64{
		"warnings": float64(len(out.Warnings)),
		"reasons":  float64(len(out.Reasons)),
	}, nil, nil)
	for _, r := range out.Reasons {
		o.report.AddSignal("refusal", stageGeneration, "error", r)
	}
	for _, w := range out.Warnings {
		o.report.AddSignal("generator_warning", stageGeneration, "warning", w)
	}

	ro := report.Outcome{
		Action:           string(ActionDone),
		Confidence:       o.state.confidence.String(),
		ConfidenceSource: o.state.confidenceSource,
		Status:           out.Status,
		Reasons:          out.Reasons,
	}
	if out.Review != nil {
		passed := out.Review.Passed
		ro.ReviewPassed = &passed
		for _, i := range out.Review.Issues {
			ro.ReviewIssues = append(ro.ReviewIssues, fmt.Sprintf("%s [%s] %s", i.Severity, i.Rule, i.Message))
		}
	}
	o.report.SetOutcome(ro)

	o.logger.Info("generation finished",
		zap.String("session", o.state.SessionID),
		zap.String("status", out.Status),
		zap.String("generator", out.Generator))
}

func (o *Orchestrator) reset(p phase) {
	s := o.state
	s.phase = p
	s.confidence = ir.Low
	s.confidenceSource = ""
	s.pending = nil
	s.answers = map[string]string{}
	s.result = nil
	s.outcome = nil
}
