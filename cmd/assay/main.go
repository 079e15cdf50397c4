// Command assay scans Python repositories for LLM provider SDK call sites,
// reports which ones are wrapped in recognized instrumentation, and scores
// the repository's evidence readiness.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/haserjian/assay"
	"github.com/haserjian/assay/internal/registry"
)

// Flag names double as viper config keys, so ASSAY_* environment variables
// feed the same settings (ASSAY_FORMAT, ASSAY_DB, ASSAY_WORKERS, ...).
const (
	envPrefix = "ASSAY"

	formatKey   = "format"
	dbKey       = "db"
	workersKey  = "workers"
	verboseKey  = "verbose"
	logFileKey  = "log-file"
	logLevelKey = "log-level"
	registryKey = "registry"

	defaultFormat   = "json"
	defaultDBFile   = ".assay/history.db"
	defaultLogLevel = "warn"
)

// Exit codes: 1 means a gate tripped (uninstrumented sites, score
// regression), 3 means a delta input could not be read, 2 is any other
// failure.
const (
	exitGate     = 1
	exitFatal    = 2
	exitBadInput = 3
)

var (
	flagFormat   string
	flagDB       string
	flagWorkers  int
	flagVerbose  bool
	flagLogFile  string
	flagRegistry string
)

// errorHandled is set once a command has surfaced (or deliberately silenced)
// its own error so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(exitCode(err))
	}
}

// exitCode maps sentinel errors onto the documented exit codes.
func exitCode(err error) int {
	switch {
	case errors.Is(err, assay.ErrUninstrumented), errors.Is(err, assay.ErrRegression):
		return exitGate
	case errors.Is(err, assay.ErrBadInput):
		return exitBadInput
	default:
		return exitFatal
	}
}

var rootCmd = &cobra.Command{
	Use:   "assay",
	Short: "Score LLM instrumentation coverage in Python repositories",
	Long: "Assay finds LLM provider SDK call sites in Python source with tree-sitter,\n" +
		"reports which ones are wrapped in recognized instrumentation, and scores\n" +
		"the repository's evidence readiness.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configureLogger(viper.GetBool(verboseKey), viper.GetString(logFileKey))
		return validateFormat(viper.GetString(formatKey))
	},
	// No Run; prints help by default.
}

func init() {
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	viper.SetDefault(formatKey, defaultFormat)
	viper.SetDefault(dbKey, defaultDBFile)
	viper.SetDefault(workersKey, 0)
	viper.SetDefault(logLevelKey, defaultLogLevel)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagFormat, formatKey, viper.GetString(formatKey), "output format: json|text")
	pf.StringVar(&flagDB, dbKey, viper.GetString(dbKey), "history database path, relative paths resolve against the repo root")
	pf.IntVar(&flagWorkers, workersKey, viper.GetInt(workersKey), "analysis workers (0 = one per CPU)")
	pf.BoolVar(&flagVerbose, verboseKey, false, "debug logging")
	pf.StringVar(&flagLogFile, logFileKey, "", "log to a rotating file instead of stderr")
	pf.StringVar(&flagRegistry, registryKey, "", "alternate provider registry YAML (default: embedded)")

	for _, key := range []string{formatKey, dbKey, workersKey, verboseKey, logFileKey, registryKey} {
		bindFlagToConfig(pf.Lookup(key), key)
	}
}

// bindFlagToConfig wires a cobra flag to a viper key so config/env values
// feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}
	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// configureLogger points slog at stderr, or at a rotating file when
// --log-file is set. The default level is warn; --verbose selects debug.
func configureLogger(verbose bool, logFile string) {
	level := parseSlogLevel(viper.GetString(logLevelKey), slog.LevelWarn)
	if verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if strings.TrimSpace(logFile) != "" {
		w = &lumberjack.Logger{
			Filename:   logFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// parseSlogLevel accepts level names and numeric slog levels (e.g. -4).
func parseSlogLevel(value string, fallback slog.Level) slog.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return slog.Level(n)
	}
	return fallback
}

// newEngine builds an Engine from the persistent flags.
func newEngine() (*assay.Engine, error) {
	opts := []assay.Option{
		assay.WithWorkers(viper.GetInt(workersKey)),
		assay.WithLogger(slog.Default()),
	}
	if path := viper.GetString(registryKey); path != "" {
		reg, err := registry.Load(path)
		if err != nil {
			return nil, fmt.Errorf("loading registry %s: %w", path, err)
		}
		opts = append(opts, assay.WithRegistry(reg))
	}
	return assay.NewEngine(opts...), nil
}

// resolveTargetDir returns the absolute path of the directory to scan.
func resolveTargetDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving path %q: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("directory not found: %s", abs)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("not a directory: %s", abs)
	}
	return abs, nil
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root without finding .git.
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the history database path from --db (or ASSAY_DB).
// Relative paths resolve against repoRoot.
func resolveDBPath(repoRoot string) string {
	path := viper.GetString(dbKey)
	if path == "" {
		path = defaultDBFile
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, filepath.FromSlash(path))
}
