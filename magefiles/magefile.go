//go:build mage

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"

	vkfftbuild "github.com/contriboss/vkfft-go"
)

const (
	packageDir = "vkfft"
	nativeDir  = "vkfft/native"
)

// Default target to run when none is specified.
var Default = Generate

// Generate compiles the shim and regenerates the binding when an input changed.
func Generate(ctx context.Context) error {
	cfg, err := vkfftbuild.NewConfig(nativeDir, packageDir, os.Environ())
	if err != nil {
		return err
	}
	cfg.Verbose = mg.Verbose()
	cfg.Directives = os.Stdout

	if vkfftbuild.UpToDate(cfg) {
		if mg.Verbose() {
			fmt.Println("binding is up to date")
		}
		return nil
	}

	result, err := vkfftbuild.NewPipeline(cfg).Run(ctx)
	if mg.Verbose() {
		for _, line := range result.Output {
			fmt.Println(line)
		}
	}
	return err
}

// Smoke links the generated binding and checks the native version query.
func Smoke(ctx context.Context) error {
	mg.CtxDeps(ctx, Generate)
	return sh.RunV("go", "test", "-tags", "vkfft", "./"+packageDir)
}

// Test runs the pipeline's unit tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// Clean removes generated artifacts.
func Clean() error {
	for _, name := range vkfftbuild.GeneratedFiles {
		if err := sh.Rm(filepath.Join(packageDir, name)); err != nil {
			return err
		}
	}
	return nil
}
