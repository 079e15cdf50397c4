package checks

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ciCommands are the substrings a workflow step must reference for the gate
// to count. Matching happens on parsed YAML scalars, not raw text, so a
// commented-out command does not pass.
var ciCommands = []string{"assay scan", "assay score"}

// CIGate scores 100 when a CI workflow definition invokes the scanner and 0
// otherwise. GitHub workflow files and a top-level .gitlab-ci.yml are
// recognized.
func CIGate(root string) Result {
	var candidates []string
	for _, pattern := range []string{
		filepath.Join(root, ".github", "workflows", "*.yml"),
		filepath.Join(root, ".github", "workflows", "*.yaml"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		candidates = append(candidates, matches...)
	}
	if p := filepath.Join(root, ".gitlab-ci.yml"); fileExists(p) {
		candidates = append(candidates, p)
	}
	sort.Strings(candidates)

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			continue
		}
		if containsCommand(doc) {
			return Result{Score: 100, Evidence: rel(root, path), Detail: "workflow runs the scanner"}
		}
	}
	return Result{Detail: "no workflow runs the scanner"}
}

// containsCommand walks a decoded YAML document looking for a scalar that
// mentions one of the gate commands.
func containsCommand(v any) bool {
	switch t := v.(type) {
	case string:
		for _, cmd := range ciCommands {
			if strings.Contains(t, cmd) {
				return true
			}
		}
	case []any:
		for _, item := range t {
			if containsCommand(item) {
				return true
			}
		}
	case map[string]any:
		for _, item := range t {
			if containsCommand(item) {
				return true
			}
		}
	}
	return false
}
