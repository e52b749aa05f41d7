package analysis

import (
	"path"
	"strconv"
	"strings"

	"dockagent/internal/ir"
)

// Framework is one entry of an ecosystem's framework lookup table.
type Framework struct {
	ID string
	// Import is the module name matched by the import phrasings.
	Import string
	// Constructor builds the application object. Empty when the framework
	// exposes no single constructor the service phase could look for.
	Constructor string
	Interface   ir.InterfaceFamily
	DefaultPort int
}

// ServiceTemplate renders the launch command for one interface family.
type ServiceTemplate struct {
	Model  ir.ExecutionModel
	Server string
	Flags  func(port int) []string
}

// Command returns the launch tokens for ref on port.
func (t ServiceTemplate) Command(ref string, port int) []string {
	cmd := []string{t.Server, ref}
	return append(cmd, t.Flags(port)...)
}

// Ecosystem bundles everything the detectors need to know about one target
// language. Adding a language means adding an Ecosystem plus an extractor.
type Ecosystem struct {
	Name        string
	Language    string
	Extension   string
	Interpreter string
	// Manifests in priority order.
	Manifests        []string
	Frameworks       []Framework
	RuntimeServers   []string
	ServiceTemplates map[ir.InterfaceFamily]ServiceTemplate
}

// Python returns the Python ecosystem definition.
func Python() Ecosystem {
	return Ecosystem{
		Name:        "python",
		Language:    "python",
		Extension:   ".py",
		Interpreter: "python",
		Manifests:   []string{"requirements.txt", "pyproject.toml"},
		Frameworks: []Framework{
			{ID: "fastapi", Import: "fastapi", Constructor: "FastAPI", Interface: ir.InterfaceASGI, DefaultPort: 8000},
			{ID: "flask", Import: "flask", Constructor: "Flask", Interface: ir.InterfaceWSGI, DefaultPort: 5000},
			{ID: "django", Import: "django", Interface: ir.InterfaceHybrid, DefaultPort: 8000},
		},
		RuntimeServers: []string{"uvicorn", "gunicorn"},
		ServiceTemplates: map[ir.InterfaceFamily]ServiceTemplate{
			ir.InterfaceASGI: {
				Model:  ir.ModelASGIService,
				Server: "uvicorn",
				Flags: func(port int) []string {
					return []string{"--host", "0.0.0.0", "--port", strconv.Itoa(port)}
				},
			},
			ir.InterfaceWSGI: {
				Model:  ir.ModelWSGIService,
				Server: "gunicorn",
				Flags: func(port int) []string {
					return []string{"--bind", "0.0.0.0:" + strconv.Itoa(port)}
				},
			},
		},
	}
}

// Framework looks a framework up by id.
func (e Ecosystem) Framework(id string) (Framework, bool) {
	for _, f := range e.Frameworks {
		if f.ID == id {
			return f, true
		}
	}
	return Framework{}, false
}

// Constructors lists every known application constructor.
func (e Ecosystem) Constructors() []string {
	var out []string
	for _, f := range e.Frameworks {
		if f.Constructor != "" {
			out = append(out, f.Constructor)
		}
	}
	return out
}

// ManifestList renders the manifest names for diagnostics.
func (e Ecosystem) ManifestList() string {
	return strings.Join(e.Manifests, " / ")
}

// ModuleRef converts a repo-relative file into "<module path>:<symbol>".
func (e Ecosystem) ModuleRef(file, symbol string) string {
	module := strings.TrimSuffix(file, path.Ext(file))
	module = strings.ReplaceAll(module, "/", ".")
	return module + ":" + symbol
}
