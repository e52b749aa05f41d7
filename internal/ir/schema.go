package ir

import "fmt"

// ScanResult holds the filesystem facts collected by the repository scanner.
// All slices are sorted and the value is never mutated after the scan.
type ScanResult struct {
	Files       []string       `json:"files"`
	Extensions  map[string]int `json:"file_extensions"`
	ConfigFiles []string       `json:"config_files"`
}

// HasExtension reports whether at least one scanned file carries ext.
func (s ScanResult) HasExtension(ext string) bool {
	return s.Extensions[ext] > 0
}

// Candidate is a file that provably constructs a framework application object.
// Symbol is empty when the object was constructed without a top-level binding.
type Candidate struct {
	File        string `json:"file"`
	Symbol      string `json:"symbol,omitempty"`
	Constructor string `json:"constructor,omitempty"`
}

// Ref renders the candidate as "<file>:<symbol>".
func (c Candidate) Ref() string {
	return fmt.Sprintf("%s:%s", c.File, c.Symbol)
}

// StackProfile answers whether the repository belongs to the target ecosystem.
type StackProfile struct {
	Ecosystem  string      `json:"ecosystem"`
	IsTarget   bool        `json:"is_target_ecosystem"`
	Confidence Confidence  `json:"confidence"`
	Manifest   string      `json:"dependency_manifest,omitempty"`
	Candidates []Candidate `json:"entrypoint_candidates"`
	Notes      []string    `json:"notes"`
}

// InterfaceFamily is the wire convention an application speaks.
type InterfaceFamily string

const (
	InterfaceNone   InterfaceFamily = ""
	InterfaceASGI   InterfaceFamily = "ASGI"
	InterfaceWSGI   InterfaceFamily = "WSGI"
	InterfaceHybrid InterfaceFamily = "ASGI/WSGI"
)

// FrameworkProfile describes the application framework. Framework is empty
// whenever zero or several distinct framework signals were found.
type FrameworkProfile struct {
	Framework     string          `json:"framework,omitempty"`
	Interface     InterfaceFamily `json:"interface,omitempty"`
	RuntimeServer string          `json:"runtime_server,omitempty"`
	DefaultPort   int             `json:"default_port,omitempty"`
	Confidence    Confidence      `json:"confidence"`
	Notes         []string        `json:"notes"`
}

// ExecutionModel is how the application is launched.
type ExecutionModel string

const (
	ModelUnresolved  ExecutionModel = "unresolved"
	ModelScript      ExecutionModel = "script"
	ModelASGIService ExecutionModel = "asgi_service"
	ModelWSGIService ExecutionModel = "wsgi_service"
)

// EntrypointDecision carries the execution model and its launch command.
// Command is non-empty iff Model is not ModelUnresolved.
type EntrypointDecision struct {
	Model      ExecutionModel `json:"type"`
	Command    []string       `json:"command,omitempty"`
	Source     *Candidate     `json:"source,omitempty"`
	Confidence Confidence     `json:"confidence"`
	Notes      []string       `json:"notes"`
}

// Snapshot is the read-only aggregate of the three analyzer stages.
type Snapshot struct {
	Stack      StackProfile       `json:"stack"`
	Framework  FrameworkProfile   `json:"framework"`
	Entrypoint EntrypointDecision `json:"entrypoint"`
}

// Confidence is the weakest stage confidence.
func (s Snapshot) Confidence() Confidence {
	return MinConfidence(s.Stack.Confidence, s.Framework.Confidence, s.Entrypoint.Confidence)
}

// Question is a single multiple-choice gap the user can close.
type Question struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"question"`
	Options []string `json:"options"`
}
