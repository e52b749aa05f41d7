// Package git stamps session reports with the repository revision.
package git

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNotRepository is returned when dir is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// ChangedFile is one entry of `git status --porcelain`.
type ChangedFile struct {
	Path   string
	Status string
}

// Info is the revision a scan was taken from.
type Info struct {
	Revision string
	Dirty    bool
	Changes  []ChangedFile
}

// Describe returns the HEAD revision of dir and whether its work tree has
// uncommitted changes.
func Describe(ctx context.Context, dir string) (Info, error) {
	rev, err := run(ctx, dir, "rev-parse", "HEAD")
	if err != nil {
		return Info{}, fmt.Errorf("%w: %s: %v", ErrNotRepository, dir, err)
	}

	status, err := run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return Info{}, fmt.Errorf("git status failed: %w", err)
	}

	changes := parseStatus(status)
	return Info{
		Revision: strings.TrimSpace(string(rev)),
		Dirty:    len(changes) > 0,
		Changes:  changes,
	}, nil
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", dir}, args...)...)
	return cmd.Output()
}

func parseStatus(output []byte) []ChangedFile {
	scanner := bufio.NewScanner(bytes.NewReader(output))
	var changes []ChangedFile

	for scanner.Scan() {
		line := scanner.Text()
		// XY <path> or XY <old> -> <new>
		if len(line) < 4 {
			continue
		}
		path := line[3:]
		if i := strings.Index(path, " -> "); i >= 0 {
			path = path[i+4:]
		}
		changes = append(changes, ChangedFile{
			Path:   strings.Trim(path, `"`),
			Status: strings.TrimSpace(line[:2]),
		})
	}
	return changes
}
