package vkfftbuild

import (
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
)

// Fixed inputs of the VkFFT build.
const (
	DefaultLibrary       = "vulkan"
	DefaultMinVersion    = "1.3.280"
	DefaultPackage       = "vkfft"
	MaxDimensionsEnv     = "VKFFT_MAX_FFT_DIMENSIONS"
	DefaultMaxDimensions = 4

	// GeneratorVersion changes whenever the generated output would change
	// for the same inputs; a manifest from another version is stale.
	GeneratorVersion = "2"

	// StaticLibrary is the archive name, without the lib prefix and .a suffix.
	StaticLibrary = "vkfft"
	ShimSource    = "wrapper.cpp"
	ShimHeader    = "wrapper.h"
	CXXStandard   = "c++17"
)

var (
	defaultDefines = []Define{
		{Name: "VKFFT_BACKEND", Value: "0"},
		{Name: "VK_API_VERSION", Value: "11"},
	}

	// glslang code generation, machine independent, OS dependent, generic
	// codegen, the Vulkan loader and the SPIR-V toolchain.
	defaultLibraries = []string{
		"glslang",
		"MachineIndependent",
		"OSDependent",
		"GenericCodeGen",
		"vulkan",
		"SPIRV",
		"SPIRV-Tools",
		"SPIRV-Tools-opt",
	}

	defaultAllowedTypes = []string{
		"VkFFTConfiguration",
		"VkFFTLaunchParams",
		"VkFFTResult",
		"VkFFTSpecializationConstantsLayout",
		"VkFFTPushConstantsLayout",
		"VkFFTAxis",
		"VkFFTPlan",
		"VkFFTApplication",
	}

	defaultAllowedFunctions = []string{
		"vkfft_sync",
		"vkfft_append",
		"vkfft_plan_axis",
		"vkfft_initialize",
		"vkfft_delete",
		"vkfft_get_version",
	}

	toolchainEnvKeys = []string{
		"CXX",
		"AR",
		"CLANG",
		"PKG_CONFIG",
		"PKG_CONFIG_PATH",
		"PKG_CONFIG_LIBDIR",
		"PKG_CONFIG_SYSROOT_DIR",
	}

	// glslang headers live under the Vulkan SDK include root.
	nestedIncludeSegments = []string{"glslang", "Include"}
)

// Config is the single configuration value of a pipeline run.
//
// It is constructed once, before the first stage, and passed by pointer to
// every component. Components read the environment only through Env.
//
// Source layout:
//   - SourceDir: directory holding wrapper.h, wrapper.cpp and the VkFFT checkout
//   - OutDir: directory receiving every generated artifact
//   - Package: Go package name of the generated files
//
// Toolchain:
//   - Library, MinVersion: pkg-config query
//   - CXX, AR, Clang, PkgConfig: tool binaries
//
// Surface:
//   - Defines, Libraries: fixed compile and link inputs
//   - AllowedTypes, AllowedFunctions: binding allow-list
type Config struct {
	SourceDir string
	OutDir    string
	Package   string

	Library    string
	MinVersion string

	Defines          []Define
	Libraries        []string
	AllowedTypes     []string
	AllowedFunctions []string

	CXX       string
	AR        string
	Clang     string
	PkgConfig string

	Env        map[string]string // Environment snapshot taken at construction
	Directives io.Writer         // Host directive channel, nil to disable
	Verbose    bool
}

// NewConfig builds a Config with the fixed VkFFT inputs. environ is a
// snapshot in os.Environ form; tool overrides (CXX, AR, CLANG, PKG_CONFIG)
// are read from it here and nowhere else.
func NewConfig(sourceDir, outDir string, environ []string) (*Config, error) {
	src, err := filepath.Abs(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("resolve source directory %s: %w", sourceDir, err)
	}
	out, err := filepath.Abs(outDir)
	if err != nil {
		return nil, fmt.Errorf("resolve output directory %s: %w", outDir, err)
	}

	env := parseEnviron(environ)

	return &Config{
		SourceDir:        src,
		OutDir:           out,
		Package:          DefaultPackage,
		Library:          DefaultLibrary,
		MinVersion:       DefaultMinVersion,
		Defines:          append([]Define{}, defaultDefines...),
		Libraries:        append([]string{}, defaultLibraries...),
		AllowedTypes:     append([]string{}, defaultAllowedTypes...),
		AllowedFunctions: append([]string{}, defaultAllowedFunctions...),
		CXX:              envOr(env, "CXX", "c++"),
		AR:               envOr(env, "AR", "ar"),
		Clang:            envOr(env, "CLANG", "clang"),
		PkgConfig:        envOr(env, "PKG_CONFIG", "pkg-config"),
		Env:              env,
	}, nil
}

// HeaderPath returns the shim's public header.
func (c *Config) HeaderPath() string {
	return filepath.Join(c.SourceDir, ShimHeader)
}

// SourcePath returns the shim's C++ source.
func (c *Config) SourcePath() string {
	return filepath.Join(c.SourceDir, ShimSource)
}

// VkFFTIncludeDir returns the VkFFT header directory of the checkout.
func (c *Config) VkFFTIncludeDir() string {
	return filepath.Join(c.SourceDir, "VkFFT", "vkFFT")
}

// ArchivePath returns the path of the compiled static archive.
func (c *Config) ArchivePath() string {
	return filepath.Join(c.OutDir, "lib"+StaticLibrary+".a")
}

// VkFFTHeader returns VkFFT's umbrella header.
func (c *Config) VkFFTHeader() string {
	return filepath.Join(c.VkFFTIncludeDir(), "vkFFT.h")
}

// Inputs returns the files whose modification invalidates a previous run.
func (c *Config) Inputs() []string {
	return []string{c.HeaderPath(), c.SourcePath(), c.VkFFTHeader()}
}

// ToolchainEnv returns the variables in Env that select tools or the
// pkg-config registry. Unset variables are omitted.
func (c *Config) ToolchainEnv() map[string]string {
	env := map[string]string{}
	for _, key := range toolchainEnvKeys {
		if v := c.Env[key]; v != "" {
			env[key] = v
		}
	}
	return env
}

// NewFlags builds the preprocessor inputs for both the compiler and clang:
// the configured defines, the VkFFT headers and the glslang headers nested
// under the toolchain's include root.
func NewFlags(cfg *Config, toolchain *ToolchainDescriptor) Flags {
	return Flags{
		Defines: append([]Define{}, cfg.Defines...),
		IncludeDirs: []string{
			cfg.VkFFTIncludeDir(),
			toolchain.NestedInclude(nestedIncludeSegments...),
		},
	}
}

// ResolveBuildConfig resolves the tunables from env.
//
// VKFFT_MAX_FFT_DIMENSIONS must be a base-10 unsigned integer when set; an
// unset or empty variable selects DefaultMaxDimensions.
func ResolveBuildConfig(env map[string]string) (BuildConfig, error) {
	raw, ok := env[MaxDimensionsEnv]
	if !ok || raw == "" {
		return BuildConfig{MaxDimensions: DefaultMaxDimensions}, nil
	}

	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return BuildConfig{}, fmt.Errorf("%w: %s=%q: %w", ErrConfigParse, MaxDimensionsEnv, raw, err)
	}

	return BuildConfig{MaxDimensions: n}, nil
}

func parseEnviron(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		env[key] = value
	}
	return env
}

func envOr(env map[string]string, key, fallback string) string {
	if v := env[key]; v != "" {
		return v
	}
	return fallback
}
