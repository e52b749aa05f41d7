package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dockagent/internal/logging"

	lru "github.com/hashicorp/golang-lru/v2"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported language")
	ErrFileTooLarge        = errors.New("file exceeds size limit")
	ErrParse               = errors.New("parse failure")
)

var (
	languagesMu sync.RWMutex
	languages   = map[string]func() LanguageExtractor{
		"python": func() LanguageExtractor { return &PythonExtractor{} },
	}
)

// Register makes a language extractor available to NewExtractor.
func Register(name string, factory func() LanguageExtractor) {
	languagesMu.Lock()
	defer languagesMu.Unlock()
	languages[name] = factory
}

// Options bounds and configures an Extractor.
type Options struct {
	Constructors []string
	MaxFileBytes int
	ParseTimeout time.Duration
	CacheSize    int
	Logger       *zap.Logger
}

// Extractor answers narrow structural questions about source files. Any
// failure to examine a file is reported as "no evidence" by the question
// methods; Inspect exposes the underlying error.
type Extractor struct {
	langExtractor LanguageExtractor
	constructors  map[string]bool
	maxBytes      int
	timeout       time.Duration
	cache         *lru.Cache[string, Facts]
	logger        *zap.Logger
}

// NewExtractor creates a new extractor for a given language.
func NewExtractor(lang string, opts Options) (*Extractor, error) {
	languagesMu.RLock()
	factory, ok := languages[lang]
	languagesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}

	size := opts.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, Facts](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create facts cache: %w", err)
	}

	ctors := make(map[string]bool, len(opts.Constructors))
	for _, c := range opts.Constructors {
		ctors[c] = true
	}

	return &Extractor{
		langExtractor: factory(),
		constructors:  ctors,
		maxBytes:      opts.MaxFileBytes,
		timeout:       opts.ParseTimeout,
		cache:         cache,
		logger:        logging.OrNop(opts.Logger),
	}, nil
}

// Extensions lists the file extensions the underlying language extractor
// understands.
func (e *Extractor) Extensions() []string {
	return e.langExtractor.Extensions()
}

// Inspect parses a single source file and returns its facts.
func (e *Extractor) Inspect(path string, sourceCode []byte) (Facts, error) {
	if e.maxBytes > 0 && len(sourceCode) > e.maxBytes {
		return Facts{}, fmt.Errorf("%w: %s (%d bytes)", ErrFileTooLarge, path, len(sourceCode))
	}

	key := cacheKey(path, sourceCode)
	if facts, ok := e.cache.Get(key); ok {
		return facts, nil
	}

	ctx := context.Background()
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(e.langExtractor.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, sourceCode)
	if err != nil {
		return Facts{}, fmt.Errorf("%w: %s: %v", ErrParse, path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return Facts{}, fmt.Errorf("%w: %s: syntax error", ErrParse, path)
	}

	facts := e.langExtractor.Inspect(root, sourceCode, e.constructors)
	e.cache.Add(key, facts)
	return facts, nil
}

// HasMainGuard reports whether the file has a top-level direct-execution guard.
func (e *Extractor) HasMainGuard(path string, sourceCode []byte) bool {
	facts, ok := e.inspectOrNone(path, sourceCode)
	return ok && facts.MainGuard
}

// Constructions lists every framework application object built in the file.
func (e *Extractor) Constructions(path string, sourceCode []byte) []Binding {
	facts, ok := e.inspectOrNone(path, sourceCode)
	if !ok {
		return nil
	}
	return facts.Bindings
}

// BoundVariable finds a top-level variable whose name equals name (ignoring
// case) bound to a call of constructor.
func (e *Extractor) BoundVariable(path string, sourceCode []byte, constructor, name string) (Binding, bool) {
	for _, b := range e.Constructions(path, sourceCode) {
		if b.Symbol == "" || b.Constructor != constructor {
			continue
		}
		if strings.EqualFold(b.Symbol, name) {
			return b, true
		}
	}
	return Binding{}, false
}

func (e *Extractor) inspectOrNone(path string, sourceCode []byte) (Facts, bool) {
	facts, err := e.Inspect(path, sourceCode)
	if err != nil {
		e.logger.Debug("no evidence from file",
			zap.String("language", e.langExtractor.Name()),
			zap.String("file", path),
			zap.Error(err))
		return Facts{}, false
	}
	return facts, true
}

func cacheKey(path string, sourceCode []byte) string {
	sum := sha256.Sum256(sourceCode)
	return path + "@" + hex.EncodeToString(sum[:8])
}
