package vkfftbuild

import (
	"fmt"
	"path/filepath"
)

// Result contains the output and status of a pipeline run.
//
// After a run completes, this structure provides:
//   - Success status indicating if every stage completed
//   - Output lines captured from the native tools
//   - Files written into the output directory
//   - Directives emitted to the host build system
//   - Error information if the run was aborted
type Result struct {
	Success    bool                 // True if all stages completed
	Output     []string             // Lines of output from the native tools
	Files      []string             // Paths of the written artifacts
	Directives []Directive          // Directives emitted for the host build
	Toolchain  *ToolchainDescriptor // Probed toolchain, nil before Probing completes
	Error      error                // Error if the run was aborted, nil otherwise
}

// BuildConfig holds the build-time tunables.
type BuildConfig struct {
	MaxDimensions uint64
}

// ToolchainDescriptor describes the native library found by the probe.
//
// IncludePaths holds exactly one entry once Probe has returned successfully.
type ToolchainDescriptor struct {
	Version      string
	IncludePaths []string
	LinkPaths    []string
}

// IncludeRoot returns the single include path of the toolchain.
func (t *ToolchainDescriptor) IncludeRoot() string {
	return t.IncludePaths[0]
}

// NestedInclude joins segments onto the include root. The result is not
// checked for existence; a missing directory surfaces as a file-not-found
// diagnostic from the compiler or from clang.
func (t *ToolchainDescriptor) NestedInclude(segments ...string) string {
	return filepath.Join(append([]string{t.IncludeRoot()}, segments...)...)
}

// Define is a single preprocessor definition.
type Define struct {
	Name  string
	Value string
}

// Flag renders the definition as a -D compiler flag.
func (d Define) Flag() string {
	return fmt.Sprintf("-D%s=%s", d.Name, d.Value)
}

// Flags are the preprocessor inputs shared by native compilation and binding
// generation. A Flags value is built once per run and never mutated.
type Flags struct {
	Defines     []Define
	IncludeDirs []string
}

// Args renders the flags as compiler arguments: defines first, then include
// directories. Each call returns a fresh slice.
func (f Flags) Args() []string {
	args := make([]string, 0, len(f.Defines)+len(f.IncludeDirs))
	for _, d := range f.Defines {
		args = append(args, d.Flag())
	}
	for _, dir := range f.IncludeDirs {
		args = append(args, "-I"+dir)
	}
	return args
}

// CompileUnit is the single native source compiled into the static archive.
type CompileUnit struct {
	SourceFile string
	Flags      Flags
	LinkDirs   []string // Additional linker search paths
	Libraries  []string // Additional libraries to link
}

// BindingSpec describes what the binding generator parses and keeps.
//
// Flags must be the same value as the CompileUnit's.
type BindingSpec struct {
	HeaderPath       string
	Flags            Flags
	AllowedTypes     []string
	AllowedFunctions []string
}

// Artifacts are the rendered outputs of a run, produced once and written once.
type Artifacts struct {
	BindingSource   []byte
	ConstantsSource []byte
	LinkSource      []byte
	Directives      []Directive
}

// DirectiveKind names a class of host build directive.
type DirectiveKind string

// Directive kinds emitted by the pipeline.
const (
	DirectiveEnv            DirectiveKind = "env"
	DirectiveLinkSearch     DirectiveKind = "link-search"
	DirectiveLinkLib        DirectiveKind = "link-lib"
	DirectiveDefine         DirectiveKind = "define"
	DirectiveRerunIfChanged DirectiveKind = "rerun-if-changed"
)

// Directive is one instruction for the host build system.
type Directive struct {
	Kind  DirectiveKind
	Value string
}

// String renders the directive in its line format, e.g.
// "vkfftgen:link-lib=vkfft".
func (d Directive) String() string {
	return fmt.Sprintf("vkfftgen:%s=%s", d.Kind, d.Value)
}
