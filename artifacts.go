package vkfftbuild

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"

	"github.com/magefile/mage/target"
	"gopkg.in/yaml.v3"
)

// Manifest records what a run produced and from which inputs.
type Manifest struct {
	Generator        string            `yaml:"generator"`
	Environment      map[string]string `yaml:"environment,omitempty"`
	Tools            ManifestTools     `yaml:"tools"`
	Library          string            `yaml:"library"`
	Version          string            `yaml:"version"`
	MaxFFTDimensions uint64            `yaml:"max_fft_dimensions"`
	Defines          []string          `yaml:"defines"`
	IncludeDirs      []string          `yaml:"include_dirs"`
	LinkDirs         []string          `yaml:"link_dirs"`
	Libraries        []string          `yaml:"libraries"`
	Types            []string          `yaml:"types"`
	Functions        []string          `yaml:"functions"`
	Inputs           []string          `yaml:"inputs"`
}

// ManifestTools records the tool binaries a run resolved.
type ManifestTools struct {
	PkgConfig string `yaml:"pkg_config"`
	CXX       string `yaml:"cxx"`
	AR        string `yaml:"ar"`
	Clang     string `yaml:"clang"`
}

// ManifestPath returns the manifest location in cfg.OutDir.
func ManifestPath(cfg *Config) string {
	return filepath.Join(cfg.OutDir, ManifestFile)
}

// ReadManifest loads a manifest written by a previous run.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return &m, nil
}

// WriteArtifacts writes the generated sources and the manifest into
// cfg.OutDir and streams a's directives to cfg.Directives.
//
// The manifest is written last; its modification time marks the run as
// complete for UpToDate. A failed write aborts with ErrArtifactIO and leaves
// already written files in place.
func WriteArtifacts(cfg *Config, a *Artifacts, m *Manifest) ([]string, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactIO, err)
	}

	manifest, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal manifest: %w", ErrArtifactIO, err)
	}

	files := []struct {
		name string
		data []byte
	}{
		{BindingFile, a.BindingSource},
		{ConstsFile, a.ConstantsSource},
		{LinkFile, a.LinkSource},
		{ManifestFile, manifest},
	}

	var written []string
	for _, f := range files {
		path := filepath.Join(cfg.OutDir, f.name)
		if err := os.WriteFile(path, f.data, 0o644); err != nil {
			return written, fmt.Errorf("%w: %w", ErrArtifactIO, err)
		}
		written = append(written, path)
	}

	if cfg.Directives != nil {
		for _, d := range a.Directives {
			if _, err := fmt.Fprintln(cfg.Directives, d); err != nil {
				return written, fmt.Errorf("%w: emit directive: %w", ErrArtifactIO, err)
			}
		}
	}

	return written, nil
}

// UpToDate reports whether the artifacts in cfg.OutDir are current:
//   - every generated file exists
//   - the manifest was written by this GeneratorVersion
//   - the toolchain environment (tool overrides, pkg-config search path) and
//     the resolved tunables match the manifest
//   - no input recorded in it changed since it was written
//
// PATH itself is not recorded. Any doubt, including an unreadable manifest
// or a missing input, reports false so the pipeline runs and reports the
// real problem.
func UpToDate(cfg *Config) bool {
	path := ManifestPath(cfg)
	m, err := ReadManifest(path)
	if err != nil {
		return false
	}

	for _, name := range GeneratedFiles {
		if _, err := os.Stat(filepath.Join(cfg.OutDir, name)); err != nil {
			return false
		}
	}

	if m.Generator != GeneratorVersion || !maps.Equal(m.Environment, cfg.ToolchainEnv()) {
		return false
	}

	build, err := ResolveBuildConfig(cfg.Env)
	if err != nil || build.MaxDimensions != m.MaxFFTDimensions {
		return false
	}

	changed, err := target.Path(path, m.Inputs...)
	if err != nil {
		return false
	}
	return !changed
}

func newManifest(cfg *Config, toolchain *ToolchainDescriptor, build BuildConfig, unit *CompileUnit, b *Binding) *Manifest {
	m := &Manifest{
		Generator:   GeneratorVersion,
		Environment: cfg.ToolchainEnv(),
		Tools: ManifestTools{
			PkgConfig: cfg.PkgConfig,
			CXX:       cfg.CXX,
			AR:        cfg.AR,
			Clang:     cfg.Clang,
		},
		Library:          cfg.Library,
		Version:          toolchain.Version,
		MaxFFTDimensions: build.MaxDimensions,
		IncludeDirs:      append([]string{}, unit.Flags.IncludeDirs...),
		LinkDirs:         append([]string{}, unit.LinkDirs...),
		Libraries:        append([]string{}, unit.Libraries...),
		Inputs:           cfg.Inputs(),
	}
	for _, d := range unit.Flags.Defines {
		m.Defines = append(m.Defines, d.Name+"="+d.Value)
	}
	for _, d := range b.Types {
		if d.Name != "" {
			m.Types = append(m.Types, d.Key)
		}
	}
	for _, d := range b.Functions {
		m.Functions = append(m.Functions, d.Name)
	}
	return m
}
