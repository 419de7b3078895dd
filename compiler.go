package vkfftbuild

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Platform constants
const (
	platformWindows = "windows"
	platformDarwin  = "darwin"
)

// NewCompileUnit builds the compile unit for the shim source.
func NewCompileUnit(cfg *Config, toolchain *ToolchainDescriptor, flags Flags) *CompileUnit {
	return &CompileUnit{
		SourceFile: cfg.SourcePath(),
		Flags:      flags,
		LinkDirs:   append([]string{}, toolchain.LinkPaths...),
		Libraries:  append([]string{}, cfg.Libraries...),
	}
}

// Compile builds unit into the static archive at cfg.ArchivePath.
//
// The compile step is a single compiler invocation followed by ar. Every
// input is passed as a flag:
//
//	c++ -std=c++17 -w -fPIC -O2 -D.. -I.. -L.. -l.. -c wrapper.cpp -o wrapper.o
//	ar crs libvkfft.a wrapper.o
//
// A non-zero exit aborts with ErrCompileFailure and the tool's output. There
// is no retry.
//
// On success the returned directives link the archive, the toolchain's search
// paths, the unit's libraries and the C++ runtime, in that order.
func Compile(r Runner, cfg *Config, unit *CompileUnit, result *Result) ([]Directive, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %w", ErrCompileFailure, err)
	}

	objDir, err := os.MkdirTemp("", "vkfftgen-obj-")
	if err != nil {
		return nil, fmt.Errorf("%w: create object directory: %w", ErrCompileFailure, err)
	}
	defer os.RemoveAll(objDir)

	object := filepath.Join(objDir, "wrapper.o")

	output, err := runCombined(r, cfg, result, cfg.CXX, compileArgs(unit, object)...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailure, BuildError(cfg.CXX, output, err))
	}

	// ar appends to an existing archive.
	archive := cfg.ArchivePath()
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: remove stale archive: %w", ErrCompileFailure, err)
	}

	output, err = runCombined(r, cfg, result, cfg.AR, "crs", archive, object)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailure, BuildError(cfg.AR, output, err))
	}

	return linkDirectives(cfg, unit), nil
}

func compileArgs(unit *CompileUnit, object string) []string {
	args := []string{"-std=" + CXXStandard, "-w"}
	if runtime.GOOS != platformWindows {
		args = append(args, "-fPIC")
	}
	args = append(args, "-O2")

	args = append(args, unit.Flags.Args()...)

	for _, dir := range unit.LinkDirs {
		args = append(args, "-L"+dir)
	}
	for _, lib := range unit.Libraries {
		args = append(args, "-l"+lib)
	}

	return append(args, "-c", unit.SourceFile, "-o", object)
}

func linkDirectives(cfg *Config, unit *CompileUnit) []Directive {
	directives := []Directive{
		{Kind: DirectiveLinkSearch, Value: cfg.OutDir},
		{Kind: DirectiveLinkLib, Value: StaticLibrary},
	}
	for _, dir := range unit.LinkDirs {
		directives = append(directives, Directive{Kind: DirectiveLinkSearch, Value: dir})
	}
	for _, lib := range unit.Libraries {
		directives = append(directives, Directive{Kind: DirectiveLinkLib, Value: lib})
	}
	return append(directives, Directive{Kind: DirectiveLinkLib, Value: cxxRuntime()})
}

// cxxRuntime names the C++ standard library the archive depends on.
func cxxRuntime() string {
	if runtime.GOOS == platformDarwin {
		return "c++"
	}
	return "stdc++"
}
