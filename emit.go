package vkfftbuild

import (
	"bytes"
	"fmt"
	"go/token"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"
)

const generatedHeader = "// Code generated by vkfftgen. DO NOT EDIT.\n\n"

// Generated file names, all relative to Config.OutDir.
const (
	BindingFile  = "bindings.go"
	ConstsFile   = "consts.go"
	LinkFile     = "link.go"
	ManifestFile = "vkfftgen.yaml"
)

// GeneratedFiles lists every file a run writes into the output directory.
var GeneratedFiles = []string{BindingFile, ConstsFile, LinkFile, ManifestFile, "lib" + StaticLibrary + ".a"}

// bindingWriter renders a Binding as cgo source.
type bindingWriter struct {
	out       bytes.Buffer
	names     map[string]string // decl key -> Go type name
	cgo       map[string]string // decl key -> cgo spelling
	useUnsafe bool
}

// RenderBinding renders b as the Go source of package pkg.
//
// The cgo preamble repeats the BindingSpec flags verbatim so cgo reads the header the
// same way the compiler and clang did. Types become aliases of their cgo
// counterparts, which carry the native layouts. Functions become methods of
// Unchecked.
func RenderBinding(pkg string, spec *BindingSpec, b *Binding) ([]byte, error) {
	w := &bindingWriter{
		names: map[string]string{},
		cgo:   map[string]string{},
	}
	w.nameTypes(b.Types)

	var body bytes.Buffer
	w.writeTypes(&body, b.Types)
	if err := w.writeFunctions(&body, b.Functions); err != nil {
		return nil, err
	}

	w.out.WriteString(generatedHeader)
	fmt.Fprintf(&w.out, "package %s\n\n", pkg)
	w.out.WriteString("/*\n")
	if args := spec.Flags.Args(); len(args) > 0 {
		fmt.Fprintf(&w.out, "#cgo CFLAGS: %s\n", cgoArgs(args))
	}
	fmt.Fprintf(&w.out, "#include %q\n", filepath.ToSlash(spec.HeaderPath))
	w.out.WriteString("*/\n")
	w.out.WriteString("import \"C\"\n\n")
	if w.useUnsafe {
		w.out.WriteString("import \"unsafe\"\n\n")
	}

	w.out.WriteString(`// Unchecked is the capability for calling into the native VkFFT shim.
//
// Its methods hand their arguments to C unchanged. Nothing checks pointer
// validity, buffer sizes or object lifetimes, and a violated native contract
// is undefined behavior. Wrap calls behind APIs that uphold those contracts.
type Unchecked struct{}

`)
	w.out.Write(body.Bytes())

	return formatSource(BindingFile, w.out.Bytes())
}

// nameTypes assigns Go names. Typedef names win over tag names, so the
// common "typedef struct X {...} X" yields a single alias.
func (w *bindingWriter) nameTypes(types []*Decl) {
	taken := map[string]bool{}
	for _, d := range types {
		if d.Kind == TypedefDecl {
			w.names[d.Key] = goIdent(d.Name)
			w.cgo[d.Key] = "C." + d.Name
			taken[d.Name] = true
		}
	}
	for _, d := range types {
		if d.Kind == TypedefDecl || d.Name == "" || taken[d.Name] {
			continue
		}
		w.names[d.Key] = goIdent(d.Name)
		w.cgo[d.Key] = "C." + d.Tag + "_" + d.Name
		taken[d.Name] = true
	}
}

func (w *bindingWriter) writeTypes(out *bytes.Buffer, types []*Decl) {
	for _, d := range types {
		name, ok := w.names[d.Key]
		if ok {
			fmt.Fprintf(out, "type %s = %s\n\n", name, w.cgo[d.Key])
		}

		if d.Kind == EnumDecl && len(d.Constants) > 0 {
			typeName := w.enumTypeName(d, types)
			out.WriteString("const (\n")
			for _, c := range d.Constants {
				if typeName != "" {
					fmt.Fprintf(out, "\t%s %s = C.%s\n", goIdent(c), typeName, c)
				} else {
					fmt.Fprintf(out, "\t%s = C.%s\n", goIdent(c), c)
				}
			}
			out.WriteString(")\n\n")
		}
	}
}

// enumTypeName picks the Go type of an enum's constants: a typedef naming
// the enum directly, else the enum's own alias.
func (w *bindingWriter) enumTypeName(enum *Decl, types []*Decl) string {
	for _, d := range types {
		if d.Kind != TypedefDecl || strings.Contains(string(d.Type), "*") {
			continue
		}
		for _, ref := range d.refs {
			if ref == enum.Key {
				return w.names[d.Key]
			}
		}
	}
	return w.names[enum.Key]
}

func (w *bindingWriter) writeFunctions(out *bytes.Buffer, functions []*Decl) error {
	for _, fn := range functions {
		if fn.Variadic {
			return fmt.Errorf("function %s is variadic and cannot be called through cgo", fn.Name)
		}

		var (
			params []string
			args   []string
			used   = map[string]bool{}
		)
		for i, p := range fn.Params {
			name := paramName(p.Name, i, used)
			goType, conv, err := w.paramType(p.Type)
			if err != nil {
				return fmt.Errorf("function %s parameter %d: %w", fn.Name, i, err)
			}
			params = append(params, name+" "+goType)
			args = append(args, fmt.Sprintf(conv, name))
		}

		goResult, resultConv, err := w.resultType(fn.Result)
		if err != nil {
			return fmt.Errorf("function %s result: %w", fn.Name, err)
		}

		call := fmt.Sprintf("C.%s(%s)", fn.Name, strings.Join(args, ", "))

		fmt.Fprintf(out, "// %s calls %s.\n", exportedName(fn.Name), fn.Name)
		fmt.Fprintf(out, "func (Unchecked) %s(%s) %s {\n", exportedName(fn.Name), strings.Join(params, ", "), goResult)
		if goResult == "" {
			fmt.Fprintf(out, "\t%s\n", call)
		} else {
			fmt.Fprintf(out, "\treturn %s\n", fmt.Sprintf(resultConv, call))
		}
		out.WriteString("}\n\n")
	}
	return nil
}

// paramType returns the Go type of a parameter and a format string that
// converts the Go value named by %s into the cgo argument.
func (w *bindingWriter) paramType(t CType) (string, string, error) {
	sh := t.shape()

	if sh.FuncPtr {
		w.useUnsafe = true
		return "unsafe.Pointer", "(*[0]byte)(%s)", nil
	}

	alias, isAlias := w.names[sh.Base]
	sc, isScalar := cScalars[sh.Base]

	switch {
	case sh.Pointers == 0 && isAlias:
		return alias, "%s", nil
	case sh.Pointers == 0 && isScalar:
		return sc.Go, sc.Cgo + "(%s)", nil
	case sh.Pointers == 0:
		return "", "", fmt.Errorf("type %q is passed by value but not part of the binding", t)
	case sh.Pointers == 1 && isAlias:
		return "*" + alias, "%s", nil
	case sh.Pointers == 1 && sh.Base == "void":
		w.useUnsafe = true
		return "unsafe.Pointer", "%s", nil
	case sh.Pointers == 1 && isScalar:
		w.useUnsafe = true
		return "*" + sc.Go, "(*" + sc.Cgo + ")(unsafe.Pointer(%s))", nil
	default:
		w.useUnsafe = true
		return "unsafe.Pointer", "(" + strings.Repeat("*", sh.Pointers) + w.cgoBase(sh.Base) + ")(%s)", nil
	}
}

// resultType returns the Go result type, empty for void, and a format string
// converting the cgo call %s into it.
func (w *bindingWriter) resultType(t CType) (string, string, error) {
	sh := t.shape()

	if sh.FuncPtr {
		w.useUnsafe = true
		return "unsafe.Pointer", "unsafe.Pointer(%s)", nil
	}

	alias, isAlias := w.names[sh.Base]
	sc, isScalar := cScalars[sh.Base]

	switch {
	case sh.Pointers == 0 && sh.Base == "void":
		return "", "", nil
	case sh.Pointers == 0 && isAlias:
		return alias, "%s", nil
	case sh.Pointers == 0 && isScalar:
		return sc.Go, sc.Go + "(%s)", nil
	case sh.Pointers == 0:
		return "", "", fmt.Errorf("type %q is returned by value but not part of the binding", t)
	case sh.Pointers == 1 && isAlias:
		return "*" + alias, "%s", nil
	case sh.Pointers == 1 && isScalar:
		w.useUnsafe = true
		return "*" + sc.Go, "(*" + sc.Go + ")(unsafe.Pointer(%s))", nil
	default:
		w.useUnsafe = true
		return "unsafe.Pointer", "unsafe.Pointer(%s)", nil
	}
}

func (w *bindingWriter) cgoBase(base string) string {
	if c, ok := w.cgo[base]; ok {
		return c
	}
	if sc, ok := cScalars[base]; ok {
		return sc.Cgo
	}
	if base == "void" {
		return "unsafe.Pointer"
	}
	if tag, name, ok := strings.Cut(base, " "); ok {
		return "C." + tag + "_" + name
	}
	return "C." + base
}

// RenderConstants renders the resolved tunables as Go constants.
func RenderConstants(pkg string, build BuildConfig) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	fmt.Fprintf(&buf, "// MaxFFTDimensions is the %s value the binding was generated with.\n", MaxDimensionsEnv)
	fmt.Fprintf(&buf, "const MaxFFTDimensions uint = %d\n", build.MaxDimensions)
	return formatSource(ConstsFile, buf.Bytes())
}

// RenderLink renders the link directives as #cgo LDFLAGS. The archive's
// directory is written as ${SRCDIR} when it is the output directory itself.
func RenderLink(pkg, outDir string, directives []Directive) ([]byte, error) {
	var flags []string
	for _, d := range directives {
		switch d.Kind {
		case DirectiveLinkSearch:
			if filepath.Clean(d.Value) == filepath.Clean(outDir) {
				flags = append(flags, "-L${SRCDIR}")
			} else {
				flags = append(flags, "-L"+d.Value)
			}
		case DirectiveLinkLib:
			flags = append(flags, "-l"+d.Value)
		}
	}

	var buf bytes.Buffer
	buf.WriteString(generatedHeader)
	fmt.Fprintf(&buf, "package %s\n\n", pkg)
	buf.WriteString("/*\n")
	if len(flags) > 0 {
		fmt.Fprintf(&buf, "#cgo LDFLAGS: %s\n", cgoArgs(flags))
	}
	buf.WriteString("*/\n")
	buf.WriteString("import \"C\"\n")
	return formatSource(LinkFile, buf.Bytes())
}

func formatSource(name string, src []byte) ([]byte, error) {
	out, err := imports.Process(name, src, &imports.Options{
		FormatOnly: true,
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
	})
	if err != nil {
		return nil, fmt.Errorf("format %s: %w", name, err)
	}
	return out, nil
}

// cgoArgs joins flags for a #cgo line, quoting those containing spaces.
func cgoArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, a := range args {
		if strings.ContainsAny(a, " \t") {
			a = "'" + a + "'"
		}
		quoted[i] = a
	}
	return strings.Join(quoted, " ")
}

// goIdent makes a C identifier usable as a Go identifier.
func goIdent(name string) string {
	if token.IsKeyword(name) || name == "C" || name == "unsafe" {
		return name + "_"
	}
	return name
}

// exportedName turns snake_case into an exported CamelCase name:
// vkfft_plan_axis -> VkfftPlanAxis.
func exportedName(name string) string {
	var b strings.Builder
	for _, part := range strings.Split(name, "_") {
		if part == "" {
			continue
		}
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	if b.Len() == 0 {
		return "X" + name
	}
	return b.String()
}

func paramName(name string, index int, used map[string]bool) string {
	if name == "" || used[name] {
		name = fmt.Sprintf("arg%d", index)
	}
	name = goIdent(name)
	used[name] = true
	return name
}
