package assay

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haserjian/assay/internal/registry"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine()
	require.NotNil(t, e.Registry())
	assert.Equal(t, 0, e.numWorkers)
	assert.NotNil(t, e.log, "default logger discards, never nil")
}

func TestWithWorkers(t *testing.T) {
	e := NewEngine(WithWorkers(2))
	assert.Equal(t, 2, e.numWorkers)
}

func TestWithRegistry(t *testing.T) {
	reg, err := registry.Parse([]byte(`
providers:
  - name: acme
    modules: [acme_ai]
`))
	require.NoError(t, err)

	e := NewEngine(WithRegistry(reg))
	assert.Equal(t, []string{"acme"}, e.Registry().ProviderNames())
}

func TestDiscoverFilesWalk(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py":            "x = 1\n",
		"svc/llm.py":        "y = 2\n",
		"README.md":         "docs\n",
		"__pycache__/c.py":  "cached\n",
		"venv/lib/site.py":  "venv\n",
		".hidden/h.py":      "hidden\n",
		"node_modules/n.py": "dep\n",
		"vendor/v.py":       "dep\n",
	})

	e := NewEngine()
	paths, err := e.discoverFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"app.py", "svc/llm.py"}, paths)
}

func TestScanCountsAndStatus(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"app.py": `import openai

client = openai.OpenAI()
resp = client.chat.completions.create(model="gpt-4", messages=[])
`,
		"wrapped.py": `import anthropic
from assay import record

client = anthropic.Anthropic()
msg = record(client.messages.create(model="claude", max_tokens=5))
`,
		"notes.txt": "not python\n",
	})

	e := NewEngine()
	rep, err := e.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "fail", rep.ScanStatus)
	assert.Equal(t, Summary{FilesScanned: 2, SitesTotal: 4, Instrumented: 1, Uninstrumented: 3}, rep.Summary)

	require.Len(t, rep.Files, 2)
	assert.Equal(t, FileStats{File: "app.py", SitesTotal: 2, Instrumented: 0}, rep.Files[0])
	assert.Equal(t, FileStats{File: "wrapped.py", SitesTotal: 2, Instrumented: 1}, rep.Files[1])

	// All five registry providers appear, with counts on the two in use.
	require.Len(t, rep.Providers, 5)
	byName := map[string]ProviderStats{}
	for _, p := range rep.Providers {
		byName[p.Provider] = p
	}
	assert.Equal(t, 2, byName["openai"].SitesTotal)
	assert.Equal(t, 2, byName["anthropic"].SitesTotal)
	assert.Equal(t, 1, byName["anthropic"].Instrumented)
	assert.Equal(t, 0, byName["mistral"].SitesTotal)

	recorded := rep.Sites[3]
	assert.Equal(t, "wrapped.py", recorded.File)
	assert.Equal(t, "client.messages.create", recorded.Call)
	assert.True(t, recorded.Instrumented)
	assert.Equal(t, "recorder", recorded.Construct)
}

func TestScanWarnsOnSyntaxError(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"good.py": "import openai\nopenai.OpenAI()\n",
		"bad.py":  "def broken(:\n",
	})

	e := NewEngine()
	rep, err := e.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, 1, rep.Summary.FilesScanned, "unparseable files do not count as scanned")
	assert.Equal(t, 1, rep.Summary.SitesTotal)
	require.Len(t, rep.Warnings, 1)
	assert.Equal(t, Warning{File: "bad.py", Reason: "source has syntax errors"}, rep.Warnings[0])
}

func TestWithLoggerSurfacesWarnings(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"bad.py": "def broken(:\n"})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := NewEngine(WithLogger(logger)).Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "skipping file")
	assert.Contains(t, buf.String(), "bad.py")
}

func TestWithLoggerNilKeepsDefault(t *testing.T) {
	e := NewEngine(WithLogger(nil))
	assert.NotNil(t, e.log)
}

func TestScanDeterministic(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "import openai\nopenai.OpenAI()\n",
		"b.py": "import cohere\ncohere.Client()\n",
		"c.py": "import mistralai\nmistralai.Mistral()\n",
	})

	e := NewEngine()
	first, err := e.Scan(context.Background(), root)
	require.NoError(t, err)
	second, err := e.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestScanWorkerCountDoesNotChangeResult(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.py": "import openai\nopenai.OpenAI()\n",
		"b.py": "import cohere\ncohere.Client()\n",
		"c.py": "import anthropic\nanthropic.Anthropic()\n",
		"d.py": "x = 1\n",
	})

	serial, err := NewEngine(WithWorkers(1)).Scan(context.Background(), root)
	require.NoError(t, err)
	parallel, err := NewEngine().Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
}

func TestScanEmptyTree(t *testing.T) {
	root := t.TempDir()

	e := NewEngine()
	rep, err := e.Scan(context.Background(), root)
	require.NoError(t, err)

	assert.Equal(t, "pass", rep.ScanStatus)
	assert.Equal(t, Summary{}, rep.Summary)
	assert.Len(t, rep.Providers, 5)
	assert.Empty(t, rep.Sites)
}

func TestScanRecordsAbsoluteRoot(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.py": "x = 1\n"})

	rep, err := NewEngine().Scan(context.Background(), root)
	require.NoError(t, err)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, abs, rep.Root)
	assert.Equal(t, Version, rep.Version)
	assert.NotEmpty(t, rep.Fingerprint)
}

func TestScanCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEngine().Scan(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}
