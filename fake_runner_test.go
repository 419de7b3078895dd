package vkfftbuild

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	testVulkanVersion = "1.3.280"
	testVulkanInclude = "/usr/include/vulkan"
	testVulkanLib     = "/usr/lib/x86_64-linux-gnu"
)

type call struct {
	env  map[string]string
	cmd  string
	args []string
}

// fakeToolchain answers pkg-config queries, records compiler and clang
// invocations and replays a clang AST fixture.
type fakeToolchain struct {
	version  string
	includes []string
	links    []string
	missing  bool

	astFixture string
	compileErr error
	compileOut string
	clangErr   error
	clangOut   string

	calls []call
}

func newFakeToolchain() *fakeToolchain {
	return &fakeToolchain{
		version:    testVulkanVersion,
		includes:   []string{testVulkanInclude},
		links:      []string{testVulkanLib},
		astFixture: filepath.Join("testdata", "wrapper_ast.json"),
	}
}

func (f *fakeToolchain) Run(env map[string]string, stdout, stderr io.Writer, cmd string, args ...string) error {
	f.calls = append(f.calls, call{env: env, cmd: cmd, args: append([]string{}, args...)})

	tool := cmd
	if strings.HasPrefix(cmd, "clang-") {
		tool = "clang"
	}

	switch tool {
	case "pkg-config":
		return f.pkgConfig(stdout, stderr, args)
	case "c++":
		if f.compileOut != "" {
			fmt.Fprint(stderr, f.compileOut)
		}
		return f.compileErr
	case "ar":
		return os.WriteFile(args[1], []byte("!<arch>\n"), 0o644)
	case "clang":
		if f.clangOut != "" {
			fmt.Fprint(stderr, f.clangOut)
		}
		if f.clangErr != nil {
			return f.clangErr
		}
		data, err := os.ReadFile(f.astFixture)
		if err != nil {
			return err
		}
		_, err = stdout.Write(data)
		return err
	}
	return fmt.Errorf("unexpected command %s", cmd)
}

func (f *fakeToolchain) pkgConfig(stdout, stderr io.Writer, args []string) error {
	if f.missing {
		fmt.Fprintln(stderr, "Package vulkan was not found in the pkg-config search path.")
		return errors.New(`running "pkg-config" failed with exit code 1`)
	}

	switch {
	case args[0] == "--exists":
		return nil
	case args[0] == "--modversion":
		fmt.Fprintln(stdout, f.version)
	case strings.HasPrefix(args[0], "--atleast-version="):
		if compareVersions(f.version, strings.TrimPrefix(args[0], "--atleast-version=")) < 0 {
			return errors.New(`running "pkg-config" failed with exit code 1`)
		}
	case args[0] == "--cflags-only-I":
		var flags []string
		for _, inc := range f.includes {
			flags = append(flags, "-I"+inc)
		}
		fmt.Fprintln(stdout, strings.Join(flags, " "))
	case args[0] == "--libs-only-L":
		var flags []string
		for _, dir := range f.links {
			flags = append(flags, "-L"+dir)
		}
		fmt.Fprintln(stdout, strings.Join(flags, " "))
	default:
		return fmt.Errorf("unexpected pkg-config query %v", args)
	}
	return nil
}

func (f *fakeToolchain) invoked(cmd string) []call {
	var calls []call
	for _, c := range f.calls {
		if c.cmd == cmd {
			calls = append(calls, c)
		}
	}
	return calls
}

// compareVersions compares dotted numeric versions.
func compareVersions(a, b string) int {
	as, bs := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(as) || i < len(bs); i++ {
		var x, y int
		if i < len(as) {
			fmt.Sscanf(as[i], "%d", &x)
		}
		if i < len(bs) {
			fmt.Sscanf(bs[i], "%d", &y)
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// preprocessorArgs keeps the -D and -I arguments of an invocation.
func preprocessorArgs(args []string) []string {
	var out []string
	for _, a := range args {
		if strings.HasPrefix(a, "-D") || strings.HasPrefix(a, "-I") {
			out = append(out, a)
		}
	}
	return out
}

func stubLookPath(t *testing.T, missing ...string) {
	t.Helper()
	orig := execLookPath
	t.Cleanup(func() { execLookPath = orig })

	execLookPath = func(name string) (string, error) {
		for _, m := range missing {
			if m == name {
				return "", errors.New("not found")
			}
		}
		return "/usr/bin/" + name, nil
	}
}

func testConfig(t *testing.T, environ ...string) *Config {
	t.Helper()
	root := t.TempDir()
	src := filepath.Join(root, "native")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatalf("failed to create source directory: %v", err)
	}
	cfg, err := NewConfig(src, filepath.Join(root, "out"), environ)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}

	if err := os.MkdirAll(cfg.VkFFTIncludeDir(), 0o755); err != nil {
		t.Fatalf("failed to create VkFFT checkout: %v", err)
	}
	for _, input := range cfg.Inputs() {
		if err := os.WriteFile(input, []byte("// shim\n"), 0o644); err != nil {
			t.Fatalf("failed to write %s: %v", input, err)
		}
	}
	return cfg
}
