package vkfftbuild

import (
	"context"
	"fmt"
)

// Stage is a state of the pipeline.
type Stage int

// Pipeline states in execution order. Aborted and Done are terminal.
const (
	StagePending Stage = iota
	StageProbing
	StageConfigResolving
	StageCompiling
	StageGenerating
	StageWriting
	StageDone
	StageAborted
)

func (s Stage) String() string {
	switch s {
	case StagePending:
		return "pending"
	case StageProbing:
		return "probing"
	case StageConfigResolving:
		return "resolving configuration"
	case StageCompiling:
		return "compiling"
	case StageGenerating:
		return "generating binding"
	case StageWriting:
		return "writing artifacts"
	case StageDone:
		return "done"
	case StageAborted:
		return "aborted"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// StageError reports the stage a run was aborted in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Pipeline runs the build stages for one Config.
//
// A Pipeline is single use: Run walks Probing -> ConfigResolving ->
// Compiling -> Generating -> Writing and ends in Done or Aborted. Nothing is
// retried.
type Pipeline struct {
	Config *Config
	Runner Runner

	state Stage
	run   runState
}

// runState carries the values threaded between stages. Each is set once by
// the stage that produces it.
type runState struct {
	toolchain  *ToolchainDescriptor
	build      BuildConfig
	unit       *CompileUnit
	spec       *BindingSpec
	binding    *Binding
	artifacts  Artifacts
	directives []Directive
}

// NewPipeline creates a pipeline running tools through mage's sh package.
func NewPipeline(cfg *Config) *Pipeline {
	return &Pipeline{Config: cfg, Runner: ShellRunner{}}
}

// State returns the current stage.
func (p *Pipeline) State() Stage {
	return p.state
}

type stageStep struct {
	stage Stage
	run   func(result *Result) error
}

// Run executes every stage in order.
//
// # Error Handling
//
// The first failing stage moves the pipeline to StageAborted:
//   - result.Error is set to a *StageError naming the stage
//   - result.Success remains false
//   - later stages are not executed
//
// The context is checked between stages only; tool invocations run to
// completion.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	result := &Result{
		Success: false,
		Output:  []string{},
	}

	if p.state != StagePending {
		err := fmt.Errorf("pipeline already ran (state %s)", p.state)
		result.Error = err
		return result, err
	}

	steps := []stageStep{
		{StageProbing, p.probe},
		{StageConfigResolving, p.resolveConfig},
		{StageCompiling, p.compile},
		{StageGenerating, p.generate},
		{StageWriting, p.write},
	}

	for _, step := range steps {
		p.state = step.stage

		err := ctx.Err()
		if err == nil {
			err = step.run(result)
		}
		if err != nil {
			p.state = StageAborted
			stageErr := &StageError{Stage: step.stage, Err: err}
			result.Error = stageErr
			return result, stageErr
		}
	}

	p.state = StageDone
	result.Directives = p.run.directives
	result.Success = true
	return result, nil
}

func (p *Pipeline) probe(result *Result) error {
	if err := p.Config.ResolveTools(); err != nil {
		return fmt.Errorf("%w: %w", ErrToolchainNotFound, err)
	}

	toolchain, err := Probe(p.Runner, p.Config)
	if err != nil {
		return err
	}

	p.run.toolchain = toolchain
	result.Toolchain = toolchain
	if p.Config.Verbose {
		result.Output = append(result.Output,
			fmt.Sprintf("Found %s %s, include root %s", p.Config.Library, toolchain.Version, toolchain.IncludeRoot()))
	}
	return nil
}

func (p *Pipeline) resolveConfig(_ *Result) error {
	build, err := ResolveBuildConfig(p.Config.Env)
	if err != nil {
		return err
	}

	p.run.build = build
	p.run.directives = append(p.run.directives, Directive{
		Kind:  DirectiveEnv,
		Value: fmt.Sprintf("%s=%d", MaxDimensionsEnv, build.MaxDimensions),
	})
	return nil
}

// compile fixes the shared Flags and builds both the compile unit and the
// binding spec from it before anything is invoked.
func (p *Pipeline) compile(result *Result) error {
	flags := NewFlags(p.Config, p.run.toolchain)
	p.run.unit = NewCompileUnit(p.Config, p.run.toolchain, flags)
	p.run.spec = NewBindingSpec(p.Config, flags)

	directives, err := Compile(p.Runner, p.Config, p.run.unit, result)
	if err != nil {
		return err
	}

	result.Files = append(result.Files, p.Config.ArchivePath())
	p.run.directives = append(p.run.directives, directives...)
	for _, d := range flags.Defines {
		p.run.directives = append(p.run.directives, Directive{Kind: DirectiveDefine, Value: d.Name + "=" + d.Value})
	}
	return nil
}

func (p *Pipeline) generate(result *Result) error {
	binding, err := GenerateBinding(p.Runner, p.Config, p.run.spec, result)
	if err != nil {
		return err
	}

	source, err := RenderBinding(p.Config.Package, p.run.spec, binding)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBindingGeneration, err)
	}

	p.run.binding = binding
	p.run.artifacts.BindingSource = source
	return nil
}

func (p *Pipeline) write(result *Result) error {
	for _, input := range p.Config.Inputs() {
		p.run.directives = append(p.run.directives, Directive{Kind: DirectiveRerunIfChanged, Value: input})
	}

	consts, err := RenderConstants(p.Config.Package, p.run.build)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactIO, err)
	}
	link, err := RenderLink(p.Config.Package, p.Config.OutDir, p.run.directives)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrArtifactIO, err)
	}

	p.run.artifacts.ConstantsSource = consts
	p.run.artifacts.LinkSource = link
	p.run.artifacts.Directives = p.run.directives

	manifest := newManifest(p.Config, p.run.toolchain, p.run.build, p.run.unit, p.run.binding)
	files, err := WriteArtifacts(p.Config, &p.run.artifacts, manifest)
	result.Files = append(result.Files, files...)
	return err
}
