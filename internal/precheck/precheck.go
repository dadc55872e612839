// Package precheck validates the external runtime for a job kind before
// anything is spawned. Checks are synchronous, never register a job, and a
// failure for one kind does not affect the others.
package precheck

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"strings"
	"time"

	"videobridge/internal/job"
)

// probeTimeout bounds a single interpreter probe run.
const probeTimeout = 30 * time.Second

// Report describes whether a job kind can run, and how to fix it if not.
type Report struct {
	Kind        job.Kind      `json:"kind"`
	Available   bool          `json:"available"`
	ErrorKind   job.ErrorKind `json:"error_kind,omitempty"`
	Missing     []string      `json:"missing,omitempty"`
	Remediation string        `json:"remediation,omitempty"`
}

// Required runtime components per kind for the scripted deployment. Names
// are the importable module names the probe tries to load.
var requiredComponents = map[job.Kind][]string{
	job.KindTranscribe: {"faster_whisper", "ctranslate2", "numpy"},
	job.KindSilenceCut: {"audiotsm", "scipy", "numpy"},
	job.KindAnalyze:    {"moviepy", "faster_whisper", "openai", "tiktoken", "PIL", "numpy"},
}

// pipPackages maps importable module names to installable package names
// where they differ.
var pipPackages = map[string]string{
	"faster_whisper": "faster-whisper",
	"PIL":            "pillow",
}

// probeRunner executes the interpreter probe and returns its combined
// output. Swapped in tests.
type probeRunner func(ctx context.Context, interpreter, code string) (string, error)

// Checker validates tool availability for job kinds.
type Checker struct {
	tools    *job.Tools
	logger   *slog.Logger
	runProbe probeRunner
}

// New creates a Checker over the given tool configuration.
func New(tools *job.Tools, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{tools: tools, logger: logger, runProbe: runInterpreterProbe}
}

// Check validates the runtime for one kind and reports actionable
// remediation for anything missing.
func (c *Checker) Check(ctx context.Context, kind job.Kind) Report {
	if c.tools.Deployment == job.DeploymentScripted {
		return c.checkScripted(ctx, kind)
	}
	return c.checkBundled(kind)
}

// checkBundled verifies the bundled executable exists and is runnable.
func (c *Checker) checkBundled(kind job.Kind) Report {
	report := Report{Kind: kind}

	executable, err := c.tools.Executable(kind)
	if err != nil {
		report.ErrorKind = job.ErrorBinaryMissing
		report.Missing = []string{string(kind)}
		report.Remediation = err.Error()
		return report
	}

	info, err := os.Stat(executable)
	if err != nil || !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		c.logger.Warn("Bundled tool unavailable", "kind", kind, "path", executable)
		report.ErrorKind = job.ErrorBinaryMissing
		report.Missing = []string{executable}
		report.Remediation = fmt.Sprintf(
			"the bundled %s tool at %s is missing or not executable; reinstall the application",
			kind, executable)
		return report
	}

	report.Available = true
	return report
}

// checkScripted probes the interpreter, attempting to load each required
// component independently and aggregating the failures.
func (c *Checker) checkScripted(ctx context.Context, kind job.Kind) Report {
	report := Report{Kind: kind}
	components := requiredComponents[kind]
	if len(components) == 0 {
		report.Available = true
		return report
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	output, err := c.runProbe(ctx, c.tools.Interpreter, probeCode(components))
	if err != nil && output == "" {
		// Interpreter itself failed to run; everything is unavailable.
		c.logger.Warn("Dependency probe failed to run",
			"kind", kind, "interpreter", c.tools.Interpreter, "error", err)
		report.ErrorKind = job.ErrorMissingDependency
		report.Missing = append(report.Missing, components...)
		report.Remediation = remediation(components)
		return report
	}

	missing := parseProbeOutput(output)
	if len(missing) == 0 {
		report.Available = true
		return report
	}

	sort.Strings(missing)
	report.ErrorKind = job.ErrorMissingDependency
	report.Missing = missing
	report.Remediation = remediation(missing)
	return report
}

// probeCode builds a minimal interpreter program that imports each
// component on its own so one broken module cannot mask the others.
func probeCode(components []string) string {
	var b strings.Builder
	b.WriteString("import importlib, sys\nfailed = []\n")
	b.WriteString(fmt.Sprintf("for name in [%s]:\n", quoteList(components)))
	b.WriteString("    try:\n        importlib.import_module(name)\n")
	b.WriteString("    except Exception as exc:\n")
	b.WriteString("        print('MISSING %s: %s' % (name, exc))\n")
	b.WriteString("        failed.append(name)\n")
	b.WriteString("sys.exit(1 if failed else 0)\n")
	return b.String()
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return strings.Join(quoted, ", ")
}

// parseProbeOutput extracts component names from "MISSING name: reason"
// lines.
func parseProbeOutput(output string) []string {
	var missing []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "MISSING ") {
			continue
		}
		name := strings.TrimPrefix(line, "MISSING ")
		if idx := strings.IndexByte(name, ':'); idx >= 0 {
			name = name[:idx]
		}
		if name = strings.TrimSpace(name); name != "" {
			missing = append(missing, name)
		}
	}
	return missing
}

// remediation generates an install instruction for the missing components.
func remediation(missing []string) string {
	packages := make([]string, len(missing))
	for i, name := range missing {
		if pkg, ok := pipPackages[name]; ok {
			packages[i] = pkg
		} else {
			packages[i] = name
		}
	}
	return "pip install " + strings.Join(packages, " ")
}

// runInterpreterProbe is the default probeRunner.
func runInterpreterProbe(ctx context.Context, interpreter, code string) (string, error) {
	cmd := exec.CommandContext(ctx, interpreter, "-c", code)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
