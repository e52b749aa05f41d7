package generator

import (
	"fmt"

	"dockagent/internal/ir"
	"dockagent/internal/policy"
)

// FrameworkGenerator handles one framework speaking one interface family.
type FrameworkGenerator struct {
	name      string
	label     string
	framework string
	iface     ir.InterfaceFamily
}

func NewFastAPIGenerator() *FrameworkGenerator {
	return &FrameworkGenerator{name: "fastapi", label: "FastAPI", framework: "fastapi", iface: ir.InterfaceASGI}
}

func NewFlaskGenerator() *FrameworkGenerator {
	return &FrameworkGenerator{name: "flask", label: "Flask", framework: "flask", iface: ir.InterfaceWSGI}
}

func (g *FrameworkGenerator) Name() string { return g.name }

func (g *FrameworkGenerator) CanGenerate(in Input) bool {
	fw := in.Snapshot.Framework
	return policy.Evaluate(in.Snapshot, in.Answers).Allowed &&
		fw.Framework == g.framework &&
		fw.Interface == g.iface
}

func (g *FrameworkGenerator) Generate(in Input) Result {
	verdict := policy.Evaluate(in.Snapshot, in.Answers)
	if !verdict.Allowed {
		return refuse(g.name, verdict.Reasons...)
	}

	fw := in.Snapshot.Framework
	if fw.Framework != g.framework {
		return refuse(g.name, fmt.Sprintf("Not a %s project.", g.label))
	}
	if fw.Interface != g.iface {
		return refuse(g.name, fmt.Sprintf("%s app is not %s.", g.label, g.iface))
	}
	return build(g.name, in)
}

// PythonGenerator accepts any snapshot the safety gate allows, including the
// script model. It is the last entry of the default registry.
type PythonGenerator struct{}

func NewPythonGenerator() *PythonGenerator { return &PythonGenerator{} }

func (g *PythonGenerator) Name() string { return "python" }

func (g *PythonGenerator) CanGenerate(in Input) bool {
	return policy.Evaluate(in.Snapshot, in.Answers).Allowed
}

func (g *PythonGenerator) Generate(in Input) Result {
	verdict := policy.Evaluate(in.Snapshot, in.Answers)
	if !verdict.Allowed {
		return refuse(g.Name(), verdict.Reasons...)
	}
	return build(g.Name(), in)
}

// build renders the artifact from validated fields. Missing fields refuse
// even though the gate should have excluded them already.
func build(name string, in Input) Result {
	snap := in.Snapshot
	if snap.Stack.Manifest == "" {
		return refuse(name, "Dependency file not detected.")
	}
	command := snap.Entrypoint.Command
	if len(command) == 0 {
		return refuse(name, "Entrypoint command missing.")
	}

	warnings := []string{}
	port := 0
	switch snap.Entrypoint.Model {
	case ir.ModelScript:
		warnings = append(warnings, "Script entrypoint: no port is exposed.")
	case ir.ModelASGIService, ir.ModelWSGIService:
		port = snap.Framework.DefaultPort
		if port <= 0 {
			return refuse(name, "Default port not detected.")
		}
		if rt := snap.Framework.RuntimeServer; rt != "" && rt != command[0] {
			warnings = append(warnings, fmt.Sprintf(
				"Detected runtime server %s differs from launch command %s.", rt, command[0]))
		}
	default:
		return refuse(name, fmt.Sprintf("Execution model %s cannot be containerized.", snap.Entrypoint.Model))
	}

	if len(in.Answers) > 0 {
		warnings = append(warnings, "Analysis confidence was raised by clarification answers; they were not re-validated against the repository.")
	}

	return Result{
		Generator: name,
		Dockerfile: renderDockerfile(dockerfileSpec{
			Manifest: snap.Stack.Manifest,
			Command:  command,
			Port:     port,
		}),
		Confidence: ir.High,
		Warnings:   warnings,
	}
}
