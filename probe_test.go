package vkfftbuild

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
)

func TestProbe(t *testing.T) {
	cfg := testConfig(t)
	fake := newFakeToolchain()
	fake.links = []string{testVulkanLib, "/opt/glslang/lib"}

	desc, err := Probe(fake, cfg)
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}

	want := &ToolchainDescriptor{
		Version:      testVulkanVersion,
		IncludePaths: []string{testVulkanInclude},
		LinkPaths:    []string{testVulkanLib, "/opt/glslang/lib"},
	}
	if !reflect.DeepEqual(desc, want) {
		t.Errorf("Probe() = %+v, want %+v", desc, want)
	}

	var queries []string
	for _, c := range fake.calls {
		queries = append(queries, strings.Join(c.args, " "))
	}
	wantQueries := []string{
		"--exists vulkan",
		"--modversion vulkan",
		"--atleast-version=1.3.280 vulkan",
		"--cflags-only-I vulkan",
		"--libs-only-L vulkan",
	}
	if !reflect.DeepEqual(queries, wantQueries) {
		t.Errorf("queries = %v, want %v", queries, wantQueries)
	}
}

func TestProbeNewerVersion(t *testing.T) {
	fake := newFakeToolchain()
	fake.version = "1.4.304"

	desc, err := Probe(fake, testConfig(t))
	if err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
	if desc.Version != "1.4.304" {
		t.Errorf("Version = %q, want 1.4.304", desc.Version)
	}
}

func TestProbeUsesConfiguredPkgConfig(t *testing.T) {
	cfg := testConfig(t, "PKG_CONFIG=x86_64-linux-gnu-pkg-config")
	r := &recordingRunner{}

	_, _ = Probe(r, cfg)

	if len(r.cmds) == 0 || r.cmds[0] != "x86_64-linux-gnu-pkg-config" {
		t.Errorf("Probe ran %v, want the configured pkg-config", r.cmds)
	}
}

func TestProbeErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fakeToolchain)
		wantErr error
	}{
		{"absent", func(f *fakeToolchain) { f.missing = true }, ErrToolchainNotFound},
		{"too old", func(f *fakeToolchain) { f.version = "1.3.279" }, ErrVersionTooLow},
		{"older major", func(f *fakeToolchain) { f.version = "1.2.198" }, ErrVersionTooLow},
		{"no include path", func(f *fakeToolchain) { f.includes = nil }, ErrAmbiguousIncludePath},
		{"two include paths", func(f *fakeToolchain) { f.includes = []string{"/a", "/b"} }, ErrAmbiguousIncludePath},
		{"no link path", func(f *fakeToolchain) { f.links = nil }, ErrToolchainNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFakeToolchain()
			tt.setup(fake)

			desc, err := Probe(fake, testConfig(t))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
			if desc != nil {
				t.Errorf("Probe returned descriptor %+v on failure", desc)
			}
		})
	}
}

func TestFlagValues(t *testing.T) {
	tests := []struct {
		out    string
		prefix string
		want   []string
	}{
		{"-I/usr/include \n", "-I", []string{"/usr/include"}},
		{"-L/usr/lib -L/opt/lib\n", "-L", []string{"/usr/lib", "/opt/lib"}},
		{`-I/opt/vulkan\ sdk/include`, "-I", []string{"/opt/vulkan sdk/include"}},
		{"-pthread -I/usr/include", "-I", []string{"/usr/include"}},
		{"\n", "-I", nil},
		{"-I", "-I", nil},
	}

	for _, tt := range tests {
		if got := flagValues(tt.out, tt.prefix); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("flagValues(%q, %q) = %v, want %v", tt.out, tt.prefix, got, tt.want)
		}
	}
}

func TestNestedInclude(t *testing.T) {
	desc := &ToolchainDescriptor{IncludePaths: []string{"/usr/include"}}

	if got := desc.NestedInclude("glslang", "Include"); got != "/usr/include/glslang/Include" {
		t.Errorf("NestedInclude() = %q", got)
	}
	if got := desc.IncludeRoot(); got != "/usr/include" {
		t.Errorf("IncludeRoot() = %q", got)
	}
}

// recordingRunner records commands and fails every invocation.
type recordingRunner struct {
	cmds []string
}

func (r *recordingRunner) Run(_ map[string]string, _, _ io.Writer, cmd string, _ ...string) error {
	r.cmds = append(r.cmds, cmd)
	return errors.New("exit status 1")
}
