package generator

import (
	"fmt"
	"strconv"
	"strings"
)

const baseImage = "python:3.11-slim"

// dockerfileSpec holds the already-validated fields the template needs.
type dockerfileSpec struct {
	Manifest string
	Command  []string
	// Port is exposed when non-zero.
	Port int
}

// renderDockerfile builds the artifact from d. Identical input always
// yields identical text.
func renderDockerfile(d dockerfileSpec) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("FROM %s\n\n", baseImage))
	sb.WriteString("WORKDIR /app\n\n")
	sb.WriteString("ENV PYTHONDONTWRITEBYTECODE=1\n")
	sb.WriteString("ENV PYTHONUNBUFFERED=1\n\n")

	switch d.Manifest {
	case "pyproject.toml":
		sb.WriteString(fmt.Sprintf("COPY %s .\n", d.Manifest))
		sb.WriteString("COPY . .\n")
		sb.WriteString("RUN pip install --no-cache-dir .\n\n")
	default:
		sb.WriteString(fmt.Sprintf("COPY %s .\n", d.Manifest))
		sb.WriteString(fmt.Sprintf("RUN pip install --no-cache-dir -r %s\n\n", d.Manifest))
		sb.WriteString("COPY . .\n\n")
	}

	if d.Port > 0 {
		sb.WriteString(fmt.Sprintf("EXPOSE %d\n\n", d.Port))
	}
	sb.WriteString(fmt.Sprintf("CMD %s\n", execForm(d.Command)))
	return sb.String()
}

func execForm(command []string) string {
	quoted := make([]string, 0, len(command))
	for _, c := range command {
		quoted = append(quoted, strconv.Quote(c))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
