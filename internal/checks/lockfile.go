package checks

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strings"
)

// lockfileNames are resolved dependency manifests, in preference order.
var lockfileNames = []string{"poetry.lock", "uv.lock", "Pipfile.lock", "pdm.lock"}

// Lockfile scores 100 for a real lockfile, 50 for a requirements.txt whose
// every requirement is pinned to an exact version, and 0 otherwise.
func Lockfile(root string) Result {
	for _, name := range lockfileNames {
		if fileExists(filepath.Join(root, name)) {
			return Result{Score: 100, Evidence: name, Detail: name}
		}
	}
	data, err := os.ReadFile(filepath.Join(root, "requirements.txt"))
	if err == nil && allPinned(data) {
		return Result{Score: 50, Evidence: "requirements.txt", Detail: "requirements.txt fully pinned"}
	}
	return Result{Detail: "no lockfile"}
}

// allPinned reports whether every requirement line pins an exact version.
// Comments, blank lines and pip options don't count either way; a file with
// no requirement lines at all is not considered pinned.
func allPinned(data []byte) bool {
	pinned := 0
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "-") {
			continue
		}
		if !strings.Contains(line, "==") {
			return false
		}
		pinned++
	}
	return pinned > 0
}
