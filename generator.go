package vkfftbuild

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// NewBindingSpec builds the binding spec for the shim header. flags must be
// the value the CompileUnit was built with.
func NewBindingSpec(cfg *Config, flags Flags) *BindingSpec {
	return &BindingSpec{
		HeaderPath:       cfg.HeaderPath(),
		Flags:            flags,
		AllowedTypes:     append([]string{}, cfg.AllowedTypes...),
		AllowedFunctions: append([]string{}, cfg.AllowedFunctions...),
	}
}

func clangArgs(spec *BindingSpec) []string {
	args := []string{"-x", "c", "-fsyntax-only", "-Xclang", "-ast-dump=json"}
	args = append(args, spec.Flags.Args()...)
	return append(args, spec.HeaderPath)
}

// GenerateBinding parses spec.HeaderPath with clang and projects the result
// onto the allow-list.
//
// clang's JSON dump can be large for header-only libraries, so it is spooled
// to a temporary file and decoded as a stream. Any failure, including a
// missing allow-listed name, is ErrBindingGeneration; a partial binding is
// never returned.
func GenerateBinding(r Runner, cfg *Config, spec *BindingSpec, result *Result) (*Binding, error) {
	dump, err := os.CreateTemp("", "vkfftgen-ast-*.json")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBindingGeneration, err)
	}
	defer os.Remove(dump.Name())
	defer dump.Close()

	args := clangArgs(spec)
	if cfg.Verbose && result != nil {
		result.Output = append(result.Output, commandLine(cfg.Clang, args))
	}

	var diagnostics bytes.Buffer
	runErr := r.Run(nil, dump, &diagnostics, cfg.Clang, args...)
	lines := outputLines(diagnostics.String())
	if result != nil {
		result.Output = append(result.Output, lines...)
	}
	if runErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrBindingGeneration, BuildError(cfg.Clang, lines, runErr))
	}

	if _, err := dump.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: rewind AST dump: %w", ErrBindingGeneration, err)
	}

	header, err := ParseHeader(dump)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBindingGeneration, spec.HeaderPath, err)
	}

	binding, err := header.Closure(spec.AllowedTypes, spec.AllowedFunctions)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBindingGeneration, spec.HeaderPath, err)
	}

	return binding, nil
}
