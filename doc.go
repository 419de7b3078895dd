// Package vkfftbuild prepares the native VkFFT shim for use from Go.
//
// The package is a build-time pipeline. It discovers the installed Vulkan
// toolchain, compiles the C++ shim into a static archive, parses the shim's
// public header with clang and turns the allow-listed declarations into a cgo
// binding. Every artifact a consumer needs is written into one output
// directory, so the consuming package never re-derives any of it.
//
// # Basic Usage
//
// Build a Config once and hand it to a Pipeline:
//
//	cfg, err := vkfftbuild.NewConfig("vkfft/native", "vkfft", os.Environ())
//	if err != nil {
//	    return err
//	}
//	cfg.Directives = os.Stdout
//
//	result, err := vkfftbuild.NewPipeline(cfg).Run(ctx)
//
// # Architecture
//
// The pipeline runs five stages in order and aborts at the first failure:
//
//	Probing          pkg-config --atleast-version=1.3.280 vulkan
//	ConfigResolving  VKFFT_MAX_FFT_DIMENSIONS (default 4)
//	Compiling        c++ -std=c++17 -w ... wrapper.cpp && ar crs libvkfft.a
//	Generating       clang -Xclang -ast-dump=json ... wrapper.h
//	Writing          bindings.go, consts.go, link.go, vkfftgen.yaml
//
// The defines and include directories handed to the compiler and to clang
// come from a single Flags value. A binding generated under different flags
// than the archive it links against would disagree on struct layouts.
//
// # Generated Files
//
//   - bindings.go - cgo aliases for the reachable types and an Unchecked
//     capability type carrying one method per allow-listed function
//   - consts.go - the resolved MaxFFTDimensions constant
//   - link.go - #cgo LDFLAGS for the archive and the Vulkan/glslang libraries
//   - vkfftgen.yaml - build manifest, also used to skip unchanged rebuilds
//
// # Requirements
//
// Requires pkg-config, a C++ compiler, ar and clang on PATH.
package vkfftbuild
