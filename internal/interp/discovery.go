package interp

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hostbridge/pybridge-go/internal/errors"
)

const (
	// MinimumVersion is the minimum interpreter version the bootstrap
	// protocol is exercised against. Older interpreters get a warning,
	// not a failure.
	MinimumVersion = "3.8.0"

	// VersionCheckTimeout is the timeout for the interpreter version probe.
	VersionCheckTimeout = 2 * time.Second
)

// candidateNames are the interpreter binary names searched in PATH, in order.
var candidateNames = []string{"python3", "python"}

// Config holds configuration for interpreter discovery.
type Config struct {
	// InterpPath is an explicit interpreter path that skips PATH search.
	// If empty, discovery will search PATH and common locations.
	InterpPath string

	// SkipVersionCheck skips version validation during discovery.
	// Can also be controlled via PYBRIDGE_SKIP_VERSION_CHECK env var.
	SkipVersionCheck bool

	// Logger is an optional logger for discovery operations.
	// If nil, a default no-op logger is used.
	Logger *slog.Logger
}

// Discoverer locates and probes the interpreter binary.
type Discoverer interface {
	// Discover locates the interpreter binary and probes its version.
	// Returns the path to the binary or an error.
	Discover(ctx context.Context) (string, error)
}

// discoverer implements the Discoverer interface.
type discoverer struct {
	cfg *Config
	log *slog.Logger
}

// Compile-time verification that discoverer implements Discoverer.
var _ Discoverer = (*discoverer)(nil)

// NewDiscoverer creates a new interpreter discoverer with the given configuration.
func NewDiscoverer(cfg *Config) Discoverer {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
	}

	return &discoverer{
		cfg: cfg,
		log: log,
	}
}

// Discover locates the interpreter binary and probes its version.
func (d *discoverer) Discover(ctx context.Context) (string, error) {
	d.log.Debug("Discovering interpreter binary")

	interpPath, err := d.findInterpreter()
	if err != nil {
		d.log.Error("Failed to find interpreter", "error", err)

		return "", err
	}

	d.log.Debug("Found interpreter binary", "interp_path", interpPath)

	d.checkVersion(ctx, interpPath)

	return interpPath, nil
}

// findInterpreter locates the interpreter binary.
func (d *discoverer) findInterpreter() (string, error) {
	// If explicit path provided, use it and only it
	if d.cfg.InterpPath != "" {
		d.log.Debug("Using explicit interpreter path", "interp_path", d.cfg.InterpPath)

		if _, err := os.Stat(d.cfg.InterpPath); err == nil {
			return d.cfg.InterpPath, nil
		}

		d.log.Debug("Explicit interpreter path not found", "interp_path", d.cfg.InterpPath)

		return "", &errors.InterpNotFoundError{SearchedPaths: []string{d.cfg.InterpPath}}
	}

	searchedPaths := make([]string, 0, 8)

	// Search in PATH
	for _, name := range candidateNames {
		d.log.Debug("Searching PATH", "name", name)

		if path, err := exec.LookPath(name); err == nil {
			d.log.Debug("Found interpreter in PATH", "path", path)

			return path, nil
		}

		searchedPaths = append(searchedPaths, "$PATH/"+name)
	}

	// Check common locations
	commonPaths := []string{
		"/usr/local/bin/python3",
		"/usr/bin/python3",
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		commonPaths = append(commonPaths, filepath.Join(homeDir, ".local/bin/python3"))
	}

	for _, path := range commonPaths {
		searchedPaths = append(searchedPaths, path)
		d.log.Debug("Checking common path", "path", path)

		if _, err := os.Stat(path); err == nil {
			d.log.Debug("Found interpreter at common path", "path", path)

			return path, nil
		}
	}

	d.log.Warn("Interpreter not found in any searched paths", "searched_paths", searchedPaths)

	return "", &errors.InterpNotFoundError{SearchedPaths: searchedPaths}
}

// checkVersion probes the interpreter version and warns if it is below the
// minimum. Probe failures are silently ignored.
func (d *discoverer) checkVersion(ctx context.Context, interpPath string) {
	if d.cfg.SkipVersionCheck {
		d.log.Debug("Skipping interpreter version check (configured)")

		return
	}

	if os.Getenv("PYBRIDGE_SKIP_VERSION_CHECK") != "" {
		d.log.Debug("Skipping interpreter version check (PYBRIDGE_SKIP_VERSION_CHECK set)")

		return
	}

	ctx, cancel := context.WithTimeout(ctx, VersionCheckTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, interpPath, "--version")

	output, err := cmd.Output()
	if err != nil {
		d.log.Debug("Interpreter version probe failed", "error", err)

		return
	}

	version, ok := parseVersion(string(output))
	if !ok {
		d.log.Debug("Could not parse interpreter version", "output", strings.TrimSpace(string(output)))

		return
	}

	if compareVersions(version, MinimumVersion) < 0 {
		d.log.Warn("Interpreter version is below the supported minimum",
			"version", version,
			"minimum_required", MinimumVersion,
		)
	} else {
		d.log.Debug("Interpreter version check passed", "version", version, "minimum", MinimumVersion)
	}
}

// versionRe extracts "X.Y.Z" from probe output such as "Python 3.12.1".
var versionRe = regexp.MustCompile(`([0-9]+\.[0-9]+\.[0-9]+)`)

// parseVersion extracts a semantic version from version probe output.
func parseVersion(output string) (string, bool) {
	match := versionRe.FindStringSubmatch(strings.TrimSpace(output))
	if match == nil {
		return "", false
	}

	return match[1], true
}

// compareVersions compares two semantic versions.
// Returns -1 if a < b, 0 if a == b, 1 if a > b.
func compareVersions(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := range 3 {
		aNum := 0
		bNum := 0

		if i < len(aParts) {
			aNum, _ = strconv.Atoi(aParts[i])
		}

		if i < len(bParts) {
			bNum, _ = strconv.Atoi(bParts[i])
		}

		if aNum < bNum {
			return -1
		}

		if aNum > bNum {
			return 1
		}
	}

	return 0
}
