package analysis

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"dockagent/internal/ir"
)

// importPattern matches `import name` and `from name` at the start of a line.
// The trailing word boundary keeps `flask_cors` from counting as `flask`.
func importPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?m)^[ \t]*(?:import|from)[ \t]+` + regexp.QuoteMeta(name) + `\b`)
}

// ProfileFramework identifies the application framework. Several distinct
// framework signals are never resolved automatically.
func (a *Analyzer) ProfileFramework(scan ir.ScanResult, stack ir.StackProfile, src SourceReader) ir.FrameworkProfile {
	profile := ir.FrameworkProfile{Confidence: ir.Low, Notes: []string{}}

	if !stack.IsTarget {
		profile.Notes = append(profile.Notes, fmt.Sprintf("Not a %s project.", displayName(a.eco)))
		return profile
	}

	frameworks, runtimes := a.scanImports(scan, src)

	switch len(frameworks) {
	case 0:
		profile.Notes = append(profile.Notes, fmt.Sprintf("No known %s web framework imports detected.", displayName(a.eco)))
		return profile
	case 1:
		fw, _ := a.eco.Framework(frameworks[0])
		profile.Framework = fw.ID
		profile.Interface = fw.Interface
		profile.DefaultPort = fw.DefaultPort
		profile.Confidence = ir.Medium
	default:
		profile.Notes = append(profile.Notes, fmt.Sprintf(
			"Multiple frameworks detected: [%s]. Manual review required.", strings.Join(frameworks, " ")))
		return profile
	}

	switch len(runtimes) {
	case 0:
	case 1:
		profile.RuntimeServer = runtimes[0]
		profile.Confidence = ir.High
	default:
		profile.Notes = append(profile.Notes, fmt.Sprintf(
			"Multiple runtime servers detected: [%s].", strings.Join(runtimes, " ")))
	}
	return profile
}

// scanImports returns the sorted distinct framework ids and runtime servers
// imported anywhere in the repository.
func (a *Analyzer) scanImports(scan ir.ScanResult, src SourceReader) (frameworks, runtimes []string) {
	seenFw := make(map[string]bool)
	seenRt := make(map[string]bool)

	for _, file := range scan.Files {
		if !strings.HasSuffix(file, a.eco.Extension) {
			continue
		}
		text, err := src.ReadFile(file)
		if err != nil {
			continue
		}
		for _, fw := range a.eco.Frameworks {
			if !seenFw[fw.ID] && a.imports[fw.Import].Match(text) {
				seenFw[fw.ID] = true
			}
		}
		for _, rt := range a.eco.RuntimeServers {
			if !seenRt[rt] && a.imports[rt].Match(text) {
				seenRt[rt] = true
			}
		}
	}

	for id := range seenFw {
		frameworks = append(frameworks, id)
	}
	for rt := range seenRt {
		runtimes = append(runtimes, rt)
	}
	sort.Strings(frameworks)
	sort.Strings(runtimes)
	return frameworks, runtimes
}
