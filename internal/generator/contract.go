package generator

import "dockagent/internal/ir"

// Input is what a generator sees: the analyzer snapshot plus the
// clarification answers recorded for the session.
type Input struct {
	Snapshot ir.Snapshot
	Answers  map[string]string
}

// Result is one generation attempt. Dockerfile is set iff Refused is false.
type Result struct {
	Generator      string        `json:"generator"`
	Dockerfile     string        `json:"dockerfile,omitempty"`
	Confidence     ir.Confidence `json:"confidence"`
	Warnings       []string      `json:"warnings"`
	Refused        bool          `json:"refused"`
	RefusalReasons []string      `json:"refusal_reasons,omitempty"`
}

// Generator builds a container artifact. CanGenerate must be pure; Generate
// re-checks safety on its own and refuses rather than guessing.
type Generator interface {
	Name() string
	CanGenerate(in Input) bool
	Generate(in Input) Result
}

func refuse(name string, reasons ...string) Result {
	return Result{
		Generator:      name,
		Confidence:     ir.Low,
		Warnings:       []string{},
		Refused:        true,
		RefusalReasons: reasons,
	}
}
