// Command vkfftgen compiles the VkFFT shim and generates its cgo binding.
//
// It is meant to run from the consuming package through go:generate:
//
//	//go:generate go run github.com/contriboss/vkfft-go/cmd/vkfftgen -src native -out .
//
// Host build directives are printed to stdout, diagnostics to stderr. Any
// failure exits non-zero.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/magefile/mage/mg"

	vkfftbuild "github.com/contriboss/vkfft-go"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("vkfftgen: ")

	if err := run(os.Args[1:], os.Environ(), os.Stdout, os.Stderr); err != nil {
		log.Print(err)
		os.Exit(mg.ExitStatus(err))
	}
}

func run(args, environ []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("vkfftgen", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		src     = fs.String("src", "native", "directory holding wrapper.h, wrapper.cpp and the VkFFT checkout")
		out     = fs.String("out", ".", "output directory for generated files")
		pkg     = fs.String("pkg", vkfftbuild.DefaultPackage, "package name of the generated Go files")
		force   = fs.Bool("force", false, "run even if the outputs are up to date")
		verbose = fs.Bool("v", mg.Verbose(), "print tool command lines and output")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := vkfftbuild.NewConfig(*src, *out, environ)
	if err != nil {
		return err
	}
	cfg.Package = *pkg
	cfg.Verbose = *verbose
	cfg.Directives = stdout

	if !*force && vkfftbuild.UpToDate(cfg) {
		if *verbose {
			fmt.Fprintf(stderr, "vkfftgen: %s is up to date\n", cfg.OutDir)
		}
		return nil
	}

	result, err := vkfftbuild.NewPipeline(cfg).Run(context.Background())
	if *verbose {
		for _, line := range result.Output {
			fmt.Fprintln(stderr, line)
		}
	}
	return err
}
