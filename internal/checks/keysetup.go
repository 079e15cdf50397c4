package checks

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// KeySetup scores 100 when receipt signing is configured: either a
// .assay/signing.key file exists or the .assay config declares a
// signing_key or signing_key_path entry.
func KeySetup(root string) Result {
	keyPath := filepath.Join(root, ".assay", "signing.key")
	if fileExists(keyPath) {
		return Result{Score: 100, Evidence: ".assay/signing.key", Detail: "signing key present"}
	}
	for _, name := range []string{"config.yaml", "config.yml"} {
		path := filepath.Join(root, ".assay", name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var cfg map[string]any
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			continue
		}
		for _, key := range []string{"signing_key", "signing_key_path"} {
			if v, ok := cfg[key]; ok && v != nil && v != "" {
				return Result{Score: 100, Evidence: rel(root, path), Detail: "signing key configured"}
			}
		}
	}
	return Result{Detail: "no signing key"}
}
