package analysis

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"dockagent/internal/ir"
)

// ProfileStack decides ecosystem membership, finds the dependency manifest
// and lists the files that provably construct an application object.
func (a *Analyzer) ProfileStack(scan ir.ScanResult, src SourceReader) ir.StackProfile {
	eco := a.eco
	profile := ir.StackProfile{
		Ecosystem:  eco.Name,
		Confidence: ir.Low,
		Candidates: []ir.Candidate{},
		Notes:      []string{},
	}

	if !scan.HasExtension(eco.Extension) {
		profile.Notes = append(profile.Notes, fmt.Sprintf("No %s source files detected.", displayName(eco)))
		return profile
	}
	profile.IsTarget = true
	profile.Confidence = ir.Medium

	// Only root-level manifests count; the config list holds relative paths.
	for _, m := range eco.Manifests {
		if slices.Contains(scan.ConfigFiles, m) {
			profile.Manifest = m
			profile.Confidence = ir.High
			break
		}
	}
	if profile.Manifest == "" {
		profile.Notes = append(profile.Notes, fmt.Sprintf(
			"No standard %s dependency file found (%s).", displayName(eco), eco.ManifestList()))
	}

	profile.Candidates = a.findCandidates(scan, src)
	if len(profile.Candidates) == 0 {
		profile.Notes = append(profile.Notes, fmt.Sprintf(
			"No %s files construct a known application object (%s).",
			displayName(eco), strings.Join(eco.Constructors(), ", ")))
	}
	return profile
}

func (a *Analyzer) findCandidates(scan ir.ScanResult, src SourceReader) []ir.Candidate {
	candidates := []ir.Candidate{}
	for _, file := range scan.Files {
		if !strings.HasSuffix(file, a.eco.Extension) {
			continue
		}
		text, err := src.ReadFile(file)
		if err != nil {
			continue
		}

		var unbound *ir.Candidate
		bound := 0
		for _, b := range a.evidence.Constructions(file, text) {
			if b.Symbol == "" {
				if unbound == nil {
					unbound = &ir.Candidate{File: file, Constructor: b.Constructor}
				}
				continue
			}
			candidates = append(candidates, ir.Candidate{File: file, Symbol: b.Symbol, Constructor: b.Constructor})
			bound++
		}
		if bound == 0 && unbound != nil {
			candidates = append(candidates, *unbound)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := a.preferred(candidates[i].File), a.preferred(candidates[j].File)
		if pi != pj {
			return pi
		}
		return candidates[i].File < candidates[j].File
	})
	return candidates
}

func (a *Analyzer) preferred(file string) bool {
	if a.preferredDir == "" {
		return false
	}
	return strings.HasPrefix(file, a.preferredDir+"/")
}

func displayName(eco Ecosystem) string {
	if eco.Name == "" {
		return ""
	}
	return strings.ToUpper(eco.Name[:1]) + eco.Name[1:]
}
