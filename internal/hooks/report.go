package hooks

import (
	"context"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"github.com/conveyorci/conveyor/internal/workflow"
)

// Report renders the initial human-facing summary page for a workflow run.
// Later jobs overwrite it with their own results; configuration only has to
// make sure the page exists and lists every declared job.
type Report struct {
	OutputDir string
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Name}} — CI report</title></head>
<body>
<h1>{{.Name}}</h1>
<p>commit <code>{{.SHA}}</code></p>
<table border="1" cellpadding="4">
<tr><th>Job</th><th>Status</th></tr>
{{range .Jobs}}<tr><td>{{.Name}}</td><td>pending</td></tr>
{{end}}</table>
</body>
</html>
`))

type reportData struct {
	Name string
	SHA  string
	Jobs []workflow.Job
}

// Configure writes the report page and returns its path so the caller can
// register it as an attached file.
func (r *Report) Configure(_ context.Context, w *workflow.Workflow, sha string) (string, error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir: %w", err)
	}
	path := filepath.Join(r.OutputDir, fmt.Sprintf("report_%s.html", sanitize(w.Name)))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating report page: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := reportTemplate.Execute(f, reportData{Name: w.Name, SHA: sha, Jobs: w.Jobs}); err != nil {
		return "", fmt.Errorf("rendering report page: %w", err)
	}
	return path, nil
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
