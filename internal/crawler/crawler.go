package crawler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"dockagent/internal/ir"
	"dockagent/internal/logging"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrInvalidRepository is returned when the root is missing or not a directory.
	ErrInvalidRepository = errors.New("invalid repository path")
	// ErrFileTooLarge marks a source file skipped because of its size.
	ErrFileTooLarge = errors.New("file exceeds size limit")
)

// Options controls what the crawler records.
type Options struct {
	IgnoredDirs       []string
	IgnoredExtensions []string
	ConfigFiles       []string
	// SourceExtensions selects the files whose text is loaded for analysis.
	SourceExtensions []string
	MaxFileBytes     int64
	Workers          int
}

// Crawler scans a directory and materialises the facts the analyzers need.
type Crawler struct {
	opts   Options
	logger *zap.Logger
}

// NewCrawler creates a new crawler instance.
func NewCrawler(opts Options, logger *zap.Logger) *Crawler {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &Crawler{opts: opts, logger: logging.OrNop(logger)}
}

// Repository is a scanned repository: the immutable ScanResult plus the raw
// text of every source file, keyed by repo-relative slash path.
type Repository struct {
	Root    string
	Scan    ir.ScanResult
	sources map[string][]byte
	skipped map[string]error
}

// ReadFile returns the text of a scanned source file.
func (r *Repository) ReadFile(rel string) ([]byte, error) {
	if err, ok := r.skipped[rel]; ok {
		return nil, fmt.Errorf("%s: %w", rel, err)
	}
	b, ok := r.sources[rel]
	if !ok {
		return nil, fmt.Errorf("%s: %w", rel, fs.ErrNotExist)
	}
	return b, nil
}

// ValidateRoot resolves root to an absolute directory path.
func ValidateRoot(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrInvalidRepository, root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("%w: %s does not exist", ErrInvalidRepository, abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrInvalidRepository, abs)
	}
	return abs, nil
}

// ScanProject walks root, builds the sorted ScanResult and loads source files
// concurrently. The result does not depend on the order files were read in.
func (c *Crawler) ScanProject(ctx context.Context, root string) (*Repository, error) {
	abs, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	ignoredDirs := toSet(c.opts.IgnoredDirs)
	ignoredExts := toSet(c.opts.IgnoredExtensions)
	configNames := toSet(c.opts.ConfigFiles)
	sourceExts := toSet(c.opts.SourceExtensions)

	scan := ir.ScanResult{
		Files:       []string{},
		Extensions:  map[string]int{},
		ConfigFiles: []string{},
	}
	var sources []string

	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip ignored directories
		if d.IsDir() {
			if path != abs && ignoredDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		ext := filepath.Ext(d.Name())
		if ignoredExts[ext] {
			return nil
		}

		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		scan.Files = append(scan.Files, rel)
		if ext != "" {
			scan.Extensions[ext]++
		}
		if configNames[d.Name()] {
			scan.ConfigFiles = append(scan.ConfigFiles, rel)
		}
		if sourceExts[ext] {
			sources = append(sources, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", abs, err)
	}

	sort.Strings(scan.Files)
	sort.Strings(scan.ConfigFiles)
	sort.Strings(sources)

	repo := &Repository{
		Root:    abs,
		Scan:    scan,
		sources: make(map[string][]byte, len(sources)),
		skipped: map[string]error{},
	}
	if err := c.loadSources(ctx, repo, sources); err != nil {
		return nil, err
	}

	c.logger.Debug("repository scanned",
		zap.String("root", abs),
		zap.Int("files", len(scan.Files)),
		zap.Int("sources", len(repo.sources)),
		zap.Int("skipped", len(repo.skipped)))
	return repo, nil
}

func (c *Crawler) loadSources(ctx context.Context, repo *Repository, rels []string) error {
	contents := make([][]byte, len(rels))
	failures := make([]error, len(rels))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, rel := range rels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := c.readBounded(filepath.Join(repo.Root, filepath.FromSlash(rel)))
			if err != nil {
				// Log and continue instead of failing the whole scan
				failures[i] = err
				return nil
			}
			contents[i] = b
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	for i, rel := range rels {
		if failures[i] != nil {
			c.logger.Debug("source skipped", zap.String("file", rel), zap.Error(failures[i]))
			repo.skipped[rel] = failures[i]
			continue
		}
		repo.sources[rel] = contents[i]
	}
	return nil
}

func (c *Crawler) readBounded(path string) ([]byte, error) {
	if c.opts.MaxFileBytes > 0 {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.Size() > c.opts.MaxFileBytes {
			return nil, ErrFileTooLarge
		}
	}
	return os.ReadFile(path)
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, it := range items {
		out[it] = true
	}
	return out
}
