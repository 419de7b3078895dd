package vkfftbuild

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveBuildConfig(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    uint64
		wantErr bool
	}{
		{name: "unset", env: map[string]string{}, want: 4},
		{name: "nil environment", env: nil, want: 4},
		{name: "empty", env: map[string]string{MaxDimensionsEnv: ""}, want: 4},
		{name: "override", env: map[string]string{MaxDimensionsEnv: "8"}, want: 8},
		{name: "zero", env: map[string]string{MaxDimensionsEnv: "0"}, want: 0},
		{name: "leading zeros", env: map[string]string{MaxDimensionsEnv: "007"}, want: 7},
		{name: "word", env: map[string]string{MaxDimensionsEnv: "four"}, wantErr: true},
		{name: "negative", env: map[string]string{MaxDimensionsEnv: "-1"}, wantErr: true},
		{name: "padded", env: map[string]string{MaxDimensionsEnv: " 4"}, wantErr: true},
		{name: "hex", env: map[string]string{MaxDimensionsEnv: "0x4"}, wantErr: true},
		{name: "overflow", env: map[string]string{MaxDimensionsEnv: "18446744073709551616"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveBuildConfig(tt.env)
			if tt.wantErr {
				if !errors.Is(err, ErrConfigParse) {
					t.Errorf("error = %v, want %v", err, ErrConfigParse)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveBuildConfig returned error: %v", err)
			}
			if got.MaxDimensions != tt.want {
				t.Errorf("MaxDimensions = %d, want %d", got.MaxDimensions, tt.want)
			}
		})
	}
}

func TestNewConfigDefaults(t *testing.T) {
	cfg, err := NewConfig("native", "out", nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	if !filepath.IsAbs(cfg.SourceDir) || !filepath.IsAbs(cfg.OutDir) {
		t.Errorf("directories not absolute: %s, %s", cfg.SourceDir, cfg.OutDir)
	}
	if cfg.Library != "vulkan" || cfg.MinVersion != "1.3.280" {
		t.Errorf("toolchain query = %s >= %s", cfg.Library, cfg.MinVersion)
	}
	if cfg.CXX != "c++" || cfg.AR != "ar" || cfg.Clang != "clang" || cfg.PkgConfig != "pkg-config" {
		t.Errorf("tools = %s, %s, %s, %s", cfg.CXX, cfg.AR, cfg.Clang, cfg.PkgConfig)
	}

	wantLibs := []string{
		"glslang", "MachineIndependent", "OSDependent", "GenericCodeGen",
		"vulkan", "SPIRV", "SPIRV-Tools", "SPIRV-Tools-opt",
	}
	if !reflect.DeepEqual(cfg.Libraries, wantLibs) {
		t.Errorf("Libraries = %v, want %v", cfg.Libraries, wantLibs)
	}

	wantDefines := []Define{{"VKFFT_BACKEND", "0"}, {"VK_API_VERSION", "11"}}
	if !reflect.DeepEqual(cfg.Defines, wantDefines) {
		t.Errorf("Defines = %v, want %v", cfg.Defines, wantDefines)
	}

	if len(cfg.AllowedTypes) != 8 || len(cfg.AllowedFunctions) != 6 {
		t.Errorf("allow-list has %d types and %d functions, want 8 and 6", len(cfg.AllowedTypes), len(cfg.AllowedFunctions))
	}
}

func TestNewConfigCopiesDefaults(t *testing.T) {
	cfg, err := NewConfig("native", "out", nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	cfg.Libraries[0] = "changed"
	cfg.Defines[0].Value = "1"

	if defaultLibraries[0] != "glslang" || defaultDefines[0].Value != "0" {
		t.Error("Config shares its slices with the package defaults")
	}
}

func TestNewConfigEnvironment(t *testing.T) {
	environ := []string{
		"CXX=clang++",
		"AR=llvm-ar",
		"CLANG=clang-18",
		"PKG_CONFIG=",
		MaxDimensionsEnv + "=6",
		"MALFORMED",
		"=ignored",
		"VALUE_WITH_EQUALS=a=b",
	}

	cfg, err := NewConfig("native", "out", environ)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	if cfg.CXX != "clang++" || cfg.AR != "llvm-ar" || cfg.Clang != "clang-18" {
		t.Errorf("tools = %s, %s, %s", cfg.CXX, cfg.AR, cfg.Clang)
	}
	if cfg.PkgConfig != "pkg-config" {
		t.Errorf("empty PKG_CONFIG should fall back, got %q", cfg.PkgConfig)
	}
	if cfg.Env[MaxDimensionsEnv] != "6" {
		t.Errorf("Env[%s] = %q", MaxDimensionsEnv, cfg.Env[MaxDimensionsEnv])
	}
	if cfg.Env["VALUE_WITH_EQUALS"] != "a=b" {
		t.Errorf("Env[VALUE_WITH_EQUALS] = %q", cfg.Env["VALUE_WITH_EQUALS"])
	}
	if _, ok := cfg.Env["MALFORMED"]; ok {
		t.Error("entries without = should be dropped")
	}
	if _, ok := cfg.Env[""]; ok {
		t.Error("entries without a key should be dropped")
	}
}

func TestConfigPaths(t *testing.T) {
	cfg, err := NewConfig("/src/native", "/work/vkfft", nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"HeaderPath", cfg.HeaderPath(), "/src/native/wrapper.h"},
		{"SourcePath", cfg.SourcePath(), "/src/native/wrapper.cpp"},
		{"VkFFTIncludeDir", cfg.VkFFTIncludeDir(), "/src/native/VkFFT/vkFFT"},
		{"ArchivePath", cfg.ArchivePath(), "/work/vkfft/libvkfft.a"},
		{"VkFFTHeader", cfg.VkFFTHeader(), "/src/native/VkFFT/vkFFT/vkFFT.h"},
		{"ManifestPath", ManifestPath(cfg), "/work/vkfft/vkfftgen.yaml"},
	}

	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestConfigInputs(t *testing.T) {
	cfg, err := NewConfig("/src/native", "/work/vkfft", nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	want := []string{"/src/native/wrapper.h", "/src/native/wrapper.cpp", "/src/native/VkFFT/vkFFT/vkFFT.h"}
	if got := cfg.Inputs(); !reflect.DeepEqual(got, want) {
		t.Errorf("Inputs() = %v, want %v", got, want)
	}
}

func TestToolchainEnv(t *testing.T) {
	cfg, err := NewConfig("native", "out", []string{
		"PKG_CONFIG_PATH=/opt/vulkan/lib/pkgconfig",
		"CLANG=clang-18",
		"AR=",
		"HOME=/root",
		MaxDimensionsEnv + "=8",
	})
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	want := map[string]string{"PKG_CONFIG_PATH": "/opt/vulkan/lib/pkgconfig", "CLANG": "clang-18"}
	if got := cfg.ToolchainEnv(); !reflect.DeepEqual(got, want) {
		t.Errorf("ToolchainEnv() = %v, want %v", got, want)
	}
}

func TestNewFlags(t *testing.T) {
	cfg, err := NewConfig("/src/native", "/work/vkfft", nil)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	toolchain := &ToolchainDescriptor{Version: "1.3.280", IncludePaths: []string{"/usr/include"}, LinkPaths: []string{"/usr/lib"}}

	flags := NewFlags(cfg, toolchain)
	want := []string{
		"-DVKFFT_BACKEND=0",
		"-DVK_API_VERSION=11",
		"-I/src/native/VkFFT/vkFFT",
		"-I/usr/include/glslang/Include",
	}
	if got := flags.Args(); !reflect.DeepEqual(got, want) {
		t.Errorf("Args() = %v, want %v", got, want)
	}

	unit := NewCompileUnit(cfg, toolchain, flags)
	spec := NewBindingSpec(cfg, flags)
	if !reflect.DeepEqual(unit.Flags.Args(), spec.Flags.Args()) {
		t.Errorf("compile unit flags %v differ from binding flags %v", unit.Flags.Args(), spec.Flags.Args())
	}

	args := flags.Args()
	args[0] = "-DCHANGED"
	if flags.Args()[0] != "-DVKFFT_BACKEND=0" {
		t.Error("Args() returned a shared slice")
	}
}

func TestDirectiveString(t *testing.T) {
	tests := []struct {
		d    Directive
		want string
	}{
		{Directive{DirectiveLinkLib, "vkfft"}, "vkfftgen:link-lib=vkfft"},
		{Directive{DirectiveLinkSearch, "/usr/lib"}, "vkfftgen:link-search=/usr/lib"},
		{Directive{DirectiveEnv, "VKFFT_MAX_FFT_DIMENSIONS=4"}, "vkfftgen:env=VKFFT_MAX_FFT_DIMENSIONS=4"},
		{Directive{DirectiveRerunIfChanged, "wrapper.h"}, "vkfftgen:rerun-if-changed=wrapper.h"},
	}

	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
