// Package reviewer statically checks a generated Dockerfile. It never edits
// the artifact; its findings are advisory.
package reviewer

import (
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is a single finding. Line is 0 when the finding is about the file
// as a whole.
type Issue struct {
	Rule     string   `json:"rule"`
	Severity Severity `json:"level"`
	Message  string   `json:"message"`
	Line     int      `json:"line,omitempty"`
}

// Report is the outcome of a review. Passed is true iff no issue is an error.
type Report struct {
	Issues []Issue `json:"issues"`
	Passed bool    `json:"passed"`
}

// Errors returns the error-level issues.
func (r Report) Errors() []Issue { return r.filter(SeverityError) }

// Warnings returns the warning-level issues.
func (r Report) Warnings() []Issue { return r.filter(SeverityWarning) }

func (r Report) filter(s Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == s {
			out = append(out, i)
		}
	}
	return out
}

// Rule is one independent check over the parsed instructions.
type Rule struct {
	ID    string
	Check func(instructions []*parser.Node) []Issue
}

// Reviewer applies its rules in order.
type Reviewer struct {
	rules []Rule
}

// New returns a reviewer with the given rules, or the default catalogue when
// none are passed.
func New(rules ...Rule) *Reviewer {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Reviewer{rules: rules}
}

// Review parses dockerfile and runs every rule. Text the parser rejects is
// reported as a single error issue.
func (r *Reviewer) Review(dockerfile string) Report {
	result, err := parser.Parse(strings.NewReader(dockerfile))
	if err != nil {
		return finish([]Issue{{
			Rule:     "parse",
			Severity: SeverityError,
			Message:  "Dockerfile could not be parsed: " + err.Error(),
		}})
	}

	issues := []Issue{}
	for _, rule := range r.rules {
		for _, issue := range rule.Check(result.AST.Children) {
			if issue.Rule == "" {
				issue.Rule = rule.ID
			}
			issues = append(issues, issue)
		}
	}
	return finish(issues)
}

func finish(issues []Issue) Report {
	passed := true
	for _, i := range issues {
		if i.Severity == SeverityError {
			passed = false
			break
		}
	}
	return Report{Issues: issues, Passed: passed}
}
