// Package hook runs post-write project checks (TypeScript compile, lint)
// against a generated project. Hooks are advisory: a failing check is
// reported but never rolls back what was written.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/armature-dev/armature/internal/review"
)

// Runner wraps the project's own toolchain binaries.
type Runner struct {
	Root    string        // project root the checks run in
	NpxBin  string        // path to npx (default: "npx")
	Timeout time.Duration // per-check timeout (default: 2m)
}

// NewRunner creates a Runner for the project under root.
func NewRunner(root string) *Runner {
	return &Runner{Root: root, NpxBin: "npx", Timeout: 2 * time.Minute}
}

// Enabled reports whether the project can be type-checked at all. Projects
// without a tsconfig.json have nothing to run the compiler against.
func (r *Runner) Enabled() bool {
	_, err := os.Stat(filepath.Join(r.Root, "tsconfig.json"))
	return err == nil
}

// CheckResult is the outcome of one post-write check.
type CheckResult struct {
	Name     string
	Passed   bool
	Output   string
	Findings []review.Finding
	Err      error
}

func (r *Runner) run(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.NpxBin, args...)
	cmd.Dir = r.Root
	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("npx %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// TypeCheck runs tsc --noEmit and converts compiler errors into findings.
func (r *Runner) TypeCheck(ctx context.Context) CheckResult {
	res := CheckResult{Name: "typecheck"}
	if !r.Enabled() {
		res.Passed = true
		return res
	}

	out, err := r.run(ctx, "tsc", "--noEmit", "--pretty", "false")
	res.Output = string(out)
	if err == nil {
		res.Passed = true
		return res
	}

	res.Err = err
	res.Findings = parseTscOutput(res.Output)
	return res
}

// Lint runs eslint with JSON output and converts messages into findings.
func (r *Runner) Lint(ctx context.Context) CheckResult {
	res := CheckResult{Name: "lint"}
	if !r.Enabled() {
		res.Passed = true
		return res
	}

	out, err := r.run(ctx, "eslint", "src", "--format", "json")
	res.Output = string(out)
	if err == nil {
		res.Passed = true
		return res
	}

	res.Err = err
	res.Findings = parseEslintOutput(r.Root, res.Output)
	return res
}

// parseTscOutput extracts findings from tsc's non-pretty diagnostic lines,
// which look like: src/app.ts(12,5): error TS2304: Cannot find name 'foo'.
func parseTscOutput(out string) []review.Finding {
	var findings []review.Finding
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		open := strings.Index(line, "(")
		sep := strings.Index(line, "): error TS")
		if open <= 0 || sep <= open {
			continue
		}

		file := line[:open]
		lineNo := 0
		if loc := line[open+1 : sep]; loc != "" {
			fmt.Sscanf(loc, "%d", &lineNo)
		}

		findings = append(findings, review.Finding{
			Domain:   "typecheck",
			Severity: review.SeverityHigh,
			File:     file,
			Line:     lineNo,
			Message:  strings.TrimSpace(line[sep+3:]),
		})
	}
	return findings
}

// parseEslintOutput extracts findings from eslint's JSON formatter output.
func parseEslintOutput(root, out string) []review.Finding {
	// eslint prints the JSON array as the last non-empty line; warnings and
	// banner text may precede it.
	var payload string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") && gjson.Valid(line) {
			payload = line
		}
	}
	if payload == "" {
		return nil
	}

	var findings []review.Finding
	gjson.Parse(payload).ForEach(func(_, file gjson.Result) bool {
		path := file.Get("filePath").String()
		if rel, err := filepath.Rel(root, path); err == nil {
			path = rel
		}
		file.Get("messages").ForEach(func(_, msg gjson.Result) bool {
			sev := review.SeverityLow
			if msg.Get("severity").Int() >= 2 {
				sev = review.SeverityMed
			}
			findings = append(findings, review.Finding{
				Domain:   "lint",
				Severity: sev,
				File:     path,
				Line:     int(msg.Get("line").Int()),
				Message:  msg.Get("message").String(),
			})
			return true
		})
		return true
	})
	return findings
}
