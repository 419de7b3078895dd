package vkfftbuild

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Every error returned by the pipeline wraps exactly one of
// these; match with errors.Is.
var (
	ErrToolchainNotFound    = errors.New("toolchain not found")
	ErrVersionTooLow        = errors.New("toolchain version too low")
	ErrAmbiguousIncludePath = errors.New("ambiguous toolchain include path")
	ErrConfigParse          = errors.New("invalid configuration override")
	ErrCompileFailure       = errors.New("native compilation failed")
	ErrBindingGeneration    = errors.New("binding generation failed")
	ErrArtifactIO           = errors.New("writing artifacts failed")
)

// BuildError creates a standardized tool error with output context.
//
// The tool's own diagnostics are appended verbatim so the invoking build shows
// exactly what the compiler or clang reported.
//
// # Format
//
// With error and output:
//
//	c++ failed: running "c++ ..." failed with exit code 1
//
//	Build output:
//	wrapper.cpp:1:10: fatal error: 'vkFFT.h' file not found
//
// With output but no error:
//
//	c++ failed
//
//	Build output:
//	... output lines ...
//
// The returned error wraps err.
func BuildError(tool string, output []string, err error) error {
	outputStr := strings.TrimRight(strings.Join(output, "\n"), "\n")

	if err == nil {
		if outputStr == "" {
			return fmt.Errorf("%s failed", tool)
		}
		return fmt.Errorf("%s failed\n\nBuild output:\n%s", tool, outputStr)
	}

	if outputStr == "" {
		return fmt.Errorf("%s failed: %w", tool, err)
	}
	return fmt.Errorf("%s failed: %w\n\nBuild output:\n%s", tool, err, outputStr)
}

// outputLines splits tool output into lines, dropping the trailing newline.
func outputLines(out string) []string {
	out = strings.TrimRight(out, "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

// splitFlags splits pkg-config output on unescaped whitespace.
func splitFlags(s string) []string {
	var (
		fields  []string
		current strings.Builder
		escaped bool
	)

	flush := func() {
		if current.Len() > 0 {
			fields = append(fields, current.String())
			current.Reset()
		}
	}

	for _, r := range s {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()

	return fields
}
