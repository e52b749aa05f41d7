// Package conversation sequences analysis, clarification and generation for
// one session. The Orchestrator is the only writer of session state.
package conversation

import (
	"errors"

	"dockagent/internal/generator"
	"dockagent/internal/ir"
	"dockagent/internal/reviewer"
)

// ErrIllegalState is returned when an operation is called out of order. It
// signals a caller bug, not a recoverable condition.
var ErrIllegalState = errors.New("illegal session state")

// Action is what the caller should do next.
type Action string

const (
	ActionNeedsAnalysis      Action = "NEEDS_ANALYSIS"
	ActionNeedsClarification Action = "NEEDS_CLARIFICATION"
	ActionRefused            Action = "REFUSED"
	ActionReadyForGeneration Action = "READY_FOR_GENERATION"
	ActionDone               Action = "DONE"
)

// Where the aggregate confidence came from.
const (
	SourceAnalysis      = "analysis"
	SourceClarification = "clarification"
)

type phase int

const (
	phaseNew phase = iota
	phaseAnalyzed
	phaseGenerated
)

// Outcome statuses.
const (
	StatusGenerated = "generated"
	StatusRefused   = "refused"
)

// Outcome is what RunGeneration reports back to the caller.
type Outcome struct {
	Status     string           `json:"status"`
	Generator  string           `json:"generator,omitempty"`
	Dockerfile string           `json:"dockerfile,omitempty"`
	Confidence ir.Confidence    `json:"confidence"`
	Warnings   []string         `json:"warnings,omitempty"`
	Reasons    []string         `json:"reasons,omitempty"`
	Review     *reviewer.Report `json:"review,omitempty"`
}

// State is one analysis-to-generation run.
type State struct {
	SessionID string
	RepoPath  string

	phase            phase
	confidence       ir.Confidence
	confidenceSource string
	snapshot         *ir.Snapshot
	pending          []ir.Question
	answers          map[string]string
	result           *generator.Result
	outcome          *Outcome
}

func (s *State) AnalysisCompleted() bool { return s.phase >= phaseAnalyzed }

// GenerationRequested and GenerationCompleted are the same thing: generation
// runs synchronously, so a request is complete once recorded.
func (s *State) GenerationRequested() bool { return s.phase == phaseGenerated }
func (s *State) GenerationCompleted() bool { return s.phase == phaseGenerated }

// Confidence is the aggregate confidence, Low before analysis.
func (s *State) Confidence() ir.Confidence { return s.confidence }

// ConfidenceSource says whether the aggregate came from the analyzers or was
// raised by clarification answers.
func (s *State) ConfidenceSource() string { return s.confidenceSource }

// Snapshot returns the analyzer snapshot, or false before analysis.
func (s *State) Snapshot() (ir.Snapshot, bool) {
	if s.snapshot == nil {
		return ir.Snapshot{}, false
	}
	return *s.snapshot, true
}

// PendingQuestions returns a copy of the unanswered questions.
func (s *State) PendingQuestions() []ir.Question {
	return append([]ir.Question(nil), s.pending...)
}

// Answers returns a copy of the recorded answers.
func (s *State) Answers() map[string]string {
	if s.answers == nil {
		return nil
	}
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// GeneratorResult is the last generator result, if any generator ran.
func (s *State) GeneratorResult() (generator.Result, bool) {
	if s.result == nil {
		return generator.Result{}, false
	}
	return *s.result, true
}

// LastOutcome is the outcome of the generation attempt, if one was made.
func (s *State) LastOutcome() (Outcome, bool) {
	if s.outcome == nil {
		return Outcome{}, false
	}
	return *s.outcome, true
}
