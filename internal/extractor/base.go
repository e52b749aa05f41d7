package extractor

import sitter "github.com/smacker/go-tree-sitter"

// Binding records a framework application object constructed in a file.
type Binding struct {
	// Symbol is the top-level variable the object is bound to. Empty when the
	// constructor is called without a module-level binding (factories, returns).
	Symbol      string `json:"symbol,omitempty"`
	Constructor string `json:"constructor"`
	Line        int    `json:"line"`
}

// Facts is everything the pipeline needs to know about one source file.
type Facts struct {
	MainGuard bool      `json:"main_guard"`
	Bindings  []Binding `json:"bindings,omitempty"`
}

// LanguageExtractor defines the interface that each language parser must implement.
type LanguageExtractor interface {
	Name() string
	Extensions() []string
	GetLanguage() *sitter.Language
	// Inspect walks a parsed tree. constructors holds the callee names that
	// build a framework application object.
	Inspect(root *sitter.Node, sourceCode []byte, constructors map[string]bool) Facts
}
