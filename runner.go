package vkfftbuild

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/magefile/mage/sh"
)

// Runner executes external tools. The pipeline never starts a process any
// other way, so tests substitute a Runner to capture every invocation.
//
// Run blocks until the process exits. env is added on top of the current
// process environment. A non-zero exit is reported as an error.
type Runner interface {
	Run(env map[string]string, stdout, stderr io.Writer, cmd string, args ...string) error
}

// ShellRunner runs tools through mage's sh package.
type ShellRunner struct{}

// Run executes cmd and waits for it to exit.
//
// sh.Exec expands $VAR references in the command and its arguments and has
// no escape for a literal dollar sign. A path containing one would reach the
// tool rewritten, so such invocations are refused instead of run.
func (ShellRunner) Run(env map[string]string, stdout, stderr io.Writer, cmd string, args ...string) error {
	for _, arg := range append([]string{cmd}, args...) {
		if strings.Contains(arg, "$") {
			return fmt.Errorf("refusing to run %s: argument %q contains '$', which would be expanded", cmd, arg)
		}
	}

	// sh.Exec rewrites its args slice in place; hand it a private copy.
	argv := append([]string{}, args...)
	_, err := sh.Exec(env, stdout, stderr, cmd, argv...)
	return err
}

// runCombined runs a tool and returns stdout and stderr interleaved, split
// into lines. In verbose mode the command line is recorded in result.
func runCombined(r Runner, cfg *Config, result *Result, cmd string, args ...string) ([]string, error) {
	var out bytes.Buffer
	err := r.Run(nil, &out, &out, cmd, args...)
	lines := outputLines(out.String())
	if result != nil {
		if cfg.Verbose {
			result.Output = append(result.Output, commandLine(cmd, args))
		}
		result.Output = append(result.Output, lines...)
	}
	return lines, err
}

func commandLine(cmd string, args []string) string {
	return fmt.Sprintf("Running: %s %s", cmd, strings.Join(args, " "))
}
