package vkfftbuild

import (
	"bytes"
	"fmt"
	"strings"
)

// pkg-config hides system directories such as /usr/include unless told not
// to; the glslang include root is derived from that directory.
var probeEnv = map[string]string{
	"PKG_CONFIG_ALLOW_SYSTEM_CFLAGS": "1",
	"PKG_CONFIG_ALLOW_SYSTEM_LIBS":   "1",
}

// Probe queries pkg-config for cfg.Library at cfg.MinVersion or newer.
//
// # Process Flow
//
//  1. --exists: absent library or unusable registry -> ErrToolchainNotFound
//  2. --modversion: the installed version
//  3. --atleast-version: version below minimum -> ErrVersionTooLow
//  4. --cflags-only-I: must yield exactly one path, else ErrAmbiguousIncludePath
//  5. --libs-only-L: must yield at least one path, else ErrToolchainNotFound
//
// There is no fallback discovery.
func Probe(r Runner, cfg *Config) (*ToolchainDescriptor, error) {
	lib := cfg.Library

	if _, err := pkgConfig(r, cfg, "--exists", lib); err != nil {
		return nil, fmt.Errorf("%w: %s is not known to %s: %w", ErrToolchainNotFound, lib, cfg.PkgConfig, err)
	}

	version, err := pkgConfig(r, cfg, "--modversion", lib)
	if err != nil {
		return nil, fmt.Errorf("%w: %s version: %w", ErrToolchainNotFound, lib, err)
	}
	version = strings.TrimSpace(version)

	if _, err := pkgConfig(r, cfg, "--atleast-version="+cfg.MinVersion, lib); err != nil {
		return nil, fmt.Errorf("%w: %s %s found, %s or newer required", ErrVersionTooLow, lib, version, cfg.MinVersion)
	}

	cflags, err := pkgConfig(r, cfg, "--cflags-only-I", lib)
	if err != nil {
		return nil, fmt.Errorf("%w: %s include paths: %w", ErrToolchainNotFound, lib, err)
	}

	libs, err := pkgConfig(r, cfg, "--libs-only-L", lib)
	if err != nil {
		return nil, fmt.Errorf("%w: %s link paths: %w", ErrToolchainNotFound, lib, err)
	}

	desc := &ToolchainDescriptor{
		Version:      version,
		IncludePaths: flagValues(cflags, "-I"),
		LinkPaths:    flagValues(libs, "-L"),
	}

	if len(desc.IncludePaths) != 1 {
		return nil, fmt.Errorf("%w: %s reports %d include paths %v, expected exactly one",
			ErrAmbiguousIncludePath, lib, len(desc.IncludePaths), desc.IncludePaths)
	}

	if len(desc.LinkPaths) == 0 {
		return nil, fmt.Errorf("%w: %s reports no link search path", ErrToolchainNotFound, lib)
	}

	return desc, nil
}

// pkgConfig runs one query and returns its stdout. stderr is folded into the
// error so pkg-config's own explanation reaches the user.
func pkgConfig(r Runner, cfg *Config, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer
	if err := r.Run(probeEnv, &stdout, &stderr, cfg.PkgConfig, args...); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}
		return "", err
	}
	return stdout.String(), nil
}

// flagValues returns the values of every flag with the given prefix.
func flagValues(out, prefix string) []string {
	var values []string
	for _, field := range splitFlags(out) {
		if v, ok := strings.CutPrefix(field, prefix); ok && v != "" {
			values = append(values, v)
		}
	}
	return values
}
