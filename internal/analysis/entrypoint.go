package analysis

import (
	"fmt"

	"dockagent/internal/ir"
)

// serviceSymbol is the variable name the service phase looks for.
const serviceSymbol = "app"

// ResolveEntrypoint decides the execution model. A main guard in any
// candidate wins over every service object.
func (a *Analyzer) ResolveEntrypoint(stack ir.StackProfile, framework ir.FrameworkProfile, src SourceReader) ir.EntrypointDecision {
	decision := ir.EntrypointDecision{
		Model:      ir.ModelUnresolved,
		Confidence: ir.Low,
		Notes:      []string{},
	}
	files := candidateFiles(stack.Candidates)

	// 1. Script phase
	for _, c := range files {
		text, err := src.ReadFile(c.File)
		if err != nil {
			continue
		}
		if a.evidence.HasMainGuard(c.File, text) {
			source := c
			decision.Model = ir.ModelScript
			decision.Command = []string{a.eco.Interpreter, c.File}
			decision.Source = &source
			decision.Confidence = ir.High
			return decision
		}
	}

	// 2. Service phase
	if framework.Framework != "" && framework.Interface != ir.InterfaceNone {
		if d, ok := a.resolveService(files, framework, src, &decision); ok {
			return d
		}
	}

	decision.Notes = append(decision.Notes, "No resolvable execution entrypoint found.")
	return decision
}

func (a *Analyzer) resolveService(files []ir.Candidate, framework ir.FrameworkProfile, src SourceReader, decision *ir.EntrypointDecision) (ir.EntrypointDecision, bool) {
	fw, ok := a.eco.Framework(framework.Framework)
	if !ok || fw.Constructor == "" {
		decision.Notes = append(decision.Notes, fmt.Sprintf(
			"Framework %s has no recognised application constructor.", framework.Framework))
		return ir.EntrypointDecision{}, false
	}
	tmpl, ok := a.eco.ServiceTemplates[framework.Interface]
	if !ok {
		decision.Notes = append(decision.Notes, fmt.Sprintf(
			"Interface family %s needs an explicit server choice.", framework.Interface))
		return ir.EntrypointDecision{}, false
	}

	for _, c := range files {
		text, err := src.ReadFile(c.File)
		if err != nil {
			continue
		}
		b, ok := a.evidence.BoundVariable(c.File, text, fw.Constructor, serviceSymbol)
		if !ok {
			continue
		}
		source := ir.Candidate{File: c.File, Symbol: b.Symbol, Constructor: b.Constructor}
		return ir.EntrypointDecision{
			Model:      tmpl.Model,
			Command:    tmpl.Command(a.eco.ModuleRef(c.File, b.Symbol), framework.DefaultPort),
			Source:     &source,
			Confidence: ir.High,
			Notes:      decision.Notes,
		}, true
	}
	return ir.EntrypointDecision{}, false
}

// candidateFiles keeps the first candidate of every file, preserving order.
func candidateFiles(candidates []ir.Candidate) []ir.Candidate {
	seen := make(map[string]bool, len(candidates))
	out := make([]ir.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if seen[c.File] {
			continue
		}
		seen[c.File] = true
		out = append(out, c)
	}
	return out
}
