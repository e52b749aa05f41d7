package reviewer

import (
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// DefaultRules is the built-in catalogue, in reporting order.
func DefaultRules() []Rule {
	return []Rule{
		{ID: "base-image", Check: reviewBaseImage},
		{ID: "non-root-user", Check: reviewUser},
		{ID: "pip-no-cache", Check: reviewPipCache},
		{ID: "manifest-copy", Check: reviewManifestCopy},
		{ID: "start-directive", Check: reviewStartDirective},
	}
}

func reviewBaseImage(instructions []*parser.Node) []Issue {
	var issues []Issue
	stages := map[string]bool{}
	found := false

	for _, n := range byInstruction(instructions, "from") {
		found = true
		args := arguments(n)
		if len(args) == 0 {
			continue
		}
		image := args[0]
		if len(args) >= 3 && strings.EqualFold(args[1], "as") {
			stages[strings.ToLower(args[2])] = true
		}
		if image == "scratch" || stages[strings.ToLower(image)] || strings.Contains(image, "@sha256:") {
			continue
		}

		name, tag := splitImage(image)
		switch {
		case tag == "":
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("Base image %s has no tag. Pin a specific version.", image),
				Line:     n.StartLine,
			})
		case tag == "latest":
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  "Avoid using 'latest' tag for base images. Pin a specific version.",
				Line:     n.StartLine,
			})
		}
		if path.Base(name) == "python" && !strings.Contains(tag, "slim") && !strings.Contains(tag, "alpine") {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  "Base image is not slim. Consider using python:X.Y-slim for smaller image size.",
				Line:     n.StartLine,
			})
		}
	}

	if !found {
		issues = append(issues, Issue{Severity: SeverityError, Message: "No FROM instruction found."})
	}
	return issues
}

// reviewUser judges the last USER instruction, since it decides who the
// container runs as.
func reviewUser(instructions []*parser.Node) []Issue {
	var last *parser.Node
	user := ""
	for _, n := range byInstruction(instructions, "user") {
		args := arguments(n)
		if len(args) == 0 {
			continue
		}
		last = n
		user = strings.SplitN(args[0], ":", 2)[0]
	}
	if user != "" && user != "root" && user != "0" {
		return nil
	}
	issue := Issue{
		Severity: SeverityWarning,
		Message:  "Container runs as root. Consider adding a non-root USER for security.",
	}
	if last != nil {
		issue.Line = last.StartLine
	}
	return []Issue{issue}
}

func reviewPipCache(instructions []*parser.Node) []Issue {
	var issues []Issue
	for _, n := range byInstruction(instructions, "run") {
		for _, install := range pipInstalls(arguments(n)) {
			if !slices.Contains(install, "--no-cache-dir") {
				issues = append(issues, Issue{
					Severity: SeverityWarning,
					Message:  "pip install should use --no-cache-dir to reduce image size.",
					Line:     n.StartLine,
				})
			}
		}
	}
	return issues
}

// reviewManifestCopy requires every manifest an install reads to be copied
// by name in an earlier COPY or ADD.
func reviewManifestCopy(instructions []*parser.Node) []Issue {
	var issues []Issue
	copied := map[string]bool{}

	for _, n := range instructions {
		switch strings.ToLower(n.Value) {
		case "copy", "add":
			args := arguments(n)
			if len(args) < 2 {
				continue
			}
			for _, src := range args[:len(args)-1] {
				copied[path.Clean(src)] = true
			}
		case "run":
			for _, install := range pipInstalls(arguments(n)) {
				for _, req := range requirementFiles(install) {
					if !copied[path.Clean(req)] {
						issues = append(issues, Issue{
							Severity: SeverityError,
							Message:  fmt.Sprintf("%s is referenced but not copied explicitly before installation.", req),
							Line:     n.StartLine,
						})
					}
				}
				if installsProject(install) && !copied["pyproject.toml"] && !copied["setup.py"] {
					issues = append(issues, Issue{
						Severity: SeverityError,
						Message:  "Project install runs before pyproject.toml or setup.py is copied explicitly.",
						Line:     n.StartLine,
					})
				}
			}
		}
	}
	return issues
}

func reviewStartDirective(instructions []*parser.Node) []Issue {
	if len(byInstruction(instructions, "cmd")) > 0 || len(byInstruction(instructions, "entrypoint")) > 0 {
		return nil
	}
	return []Issue{{
		Severity: SeverityError,
		Message:  "No CMD or ENTRYPOINT found. Container will not start.",
	}}
}

func byInstruction(instructions []*parser.Node, name string) []*parser.Node {
	var out []*parser.Node
	for _, n := range instructions {
		if strings.EqualFold(n.Value, name) {
			out = append(out, n)
		}
	}
	return out
}

// arguments flattens an instruction into words. Shell-form commands arrive
// as one string and are split on whitespace.
func arguments(n *parser.Node) []string {
	var out []string
	for next := n.Next; next != nil; next = next.Next {
		out = append(out, strings.Fields(next.Value)...)
	}
	return out
}

// pipInstalls returns the argument list of every `pip install` in words,
// cut at shell separators.
func pipInstalls(words []string) [][]string {
	var out [][]string
	for i := 0; i+1 < len(words); i++ {
		if !isPip(words[i]) || words[i+1] != "install" {
			continue
		}
		var args []string
		for _, w := range words[i+2:] {
			if w == "&&" || w == "||" || w == ";" || w == "|" {
				break
			}
			args = append(args, strings.TrimSuffix(w, ";"))
		}
		out = append(out, args)
	}
	return out
}

func isPip(word string) bool {
	switch path.Base(word) {
	case "pip", "pip3":
		return true
	}
	return false
}

func requirementFiles(args []string) []string {
	var out []string
	for i, a := range args {
		switch {
		case (a == "-r" || a == "--requirement") && i+1 < len(args):
			out = append(out, args[i+1])
		case strings.HasPrefix(a, "--requirement="):
			out = append(out, strings.TrimPrefix(a, "--requirement="))
		}
	}
	return out
}

func installsProject(args []string) bool {
	for i, a := range args {
		if a != "." {
			continue
		}
		if i > 0 && (args[i-1] == "-r" || args[i-1] == "--requirement") {
			continue
		}
		return true
	}
	return false
}

func splitImage(image string) (name, tag string) {
	slash := strings.LastIndex(image, "/")
	colon := strings.LastIndex(image, ":")
	if colon > slash {
		return image[:colon], image[colon+1:]
	}
	return image, ""
}
