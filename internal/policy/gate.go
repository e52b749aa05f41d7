// Package policy holds the safety rules that guard artifact generation.
package policy

import (
	"fmt"
	"sort"

	"dockagent/internal/ir"
)

// Verdict is the outcome of the safety gate. Reasons lists every unmet
// precondition, not only the first one.
type Verdict struct {
	Allowed bool     `json:"allowed"`
	Reasons []string `json:"reasons"`
}

// Evaluate checks whether generating an artifact for snap is safe. Every
// check runs; a nil answers map is itself a failure.
func Evaluate(snap ir.Snapshot, answers map[string]string) Verdict {
	reasons := []string{}

	// 1. Ecosystem certainty
	if !snap.Stack.IsTarget {
		reasons = append(reasons, "Repository is not a confirmed Python project.")
	}
	if snap.Stack.Confidence != ir.High {
		reasons = append(reasons, "Python stack confidence is not high.")
	}

	// 2. Dependency management must be known
	if snap.Stack.Manifest == "" {
		reasons = append(reasons, "Python dependency management is unknown.")
	}

	// 3. Framework certainty
	if snap.Framework.Confidence != ir.High {
		reasons = append(reasons, "Framework detection confidence is not high.")
	}
	if snap.Framework.Framework == "" {
		reasons = append(reasons, "Application framework is not detected.")
	}
	if snap.Framework.Interface == ir.InterfaceNone {
		reasons = append(reasons, "Application interface (ASGI/WSGI) is not detected.")
	}

	// 4. Entrypoint certainty
	if snap.Entrypoint.Confidence != ir.High {
		reasons = append(reasons, "Entrypoint resolution confidence is not high.")
	}
	if len(snap.Entrypoint.Command) == 0 {
		reasons = append(reasons, "Entrypoint command is missing.")
	}

	// 5. Clarification completeness
	if answers == nil {
		reasons = append(reasons, "Clarification answers missing.")
	}
	keys := make([]string, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if answers[k] == "" {
			reasons = append(reasons, fmt.Sprintf("Clarification '%s' has no answer.", k))
		}
	}

	return Verdict{Allowed: len(reasons) == 0, Reasons: reasons}
}
