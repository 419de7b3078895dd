package vkfftbuild

import (
	"strings"
)

// CType is a C type as clang spells it, e.g. "const VkBuffer *" or
// "uint64_t[4]".
type CType string

// scalar maps a canonical C scalar to its Go and cgo spellings.
type scalar struct {
	Go  string
	Cgo string
}

// Scalars the binding converts to plain Go types. long is taken as 64 bits.
var cScalars = map[string]scalar{
	"char":               {"int8", "C.char"},
	"signed char":        {"int8", "C.schar"},
	"unsigned char":      {"uint8", "C.uchar"},
	"short":              {"int16", "C.short"},
	"unsigned short":     {"uint16", "C.ushort"},
	"int":                {"int32", "C.int"},
	"unsigned int":       {"uint32", "C.uint"},
	"long":               {"int64", "C.long"},
	"unsigned long":      {"uint64", "C.ulong"},
	"long long":          {"int64", "C.longlong"},
	"unsigned long long": {"uint64", "C.ulonglong"},
	"float":              {"float32", "C.float"},
	"double":             {"float64", "C.double"},
	"_Bool":              {"bool", "C._Bool"},
	"int8_t":             {"int8", "C.int8_t"},
	"int16_t":            {"int16", "C.int16_t"},
	"int32_t":            {"int32", "C.int32_t"},
	"int64_t":            {"int64", "C.int64_t"},
	"uint8_t":            {"uint8", "C.uint8_t"},
	"uint16_t":           {"uint16", "C.uint16_t"},
	"uint32_t":           {"uint32", "C.uint32_t"},
	"uint64_t":           {"uint64", "C.uint64_t"},
	"size_t":             {"uint64", "C.size_t"},
	"uintptr_t":          {"uintptr", "C.uintptr_t"},
	"intptr_t":           {"int64", "C.intptr_t"},
}

var cQualifiers = map[string]bool{
	"const":      true,
	"volatile":   true,
	"restrict":   true,
	"__restrict": true,
	"_Nonnull":   true,
	"_Nullable":  true,
	"_Atomic":    true,
}

var cBuiltinWords = map[string]bool{
	"void":     true,
	"char":     true,
	"short":    true,
	"int":      true,
	"long":     true,
	"signed":   true,
	"unsigned": true,
	"float":    true,
	"double":   true,
	"_Bool":    true,
	"bool":     true,
	"_Complex": true,
	"__int128": true,
}

func isTagKeyword(word string) bool {
	return word == "struct" || word == "union" || word == "enum"
}

// isScalarName reports whether a referenced name is bound as a Go scalar
// rather than followed into the declaration graph.
func isScalarName(name string) bool {
	_, ok := cScalars[name]
	return ok
}

// anonymous reports whether clang spelled an unnamed tag, e.g.
// "struct (unnamed struct at wrapper.h:3:9)". Such spellings carry file paths,
// not type names.
func (t CType) anonymous() bool {
	s := string(t)
	return strings.Contains(s, "(unnamed") || strings.Contains(s, "(anonymous")
}

// Refs returns the declaration keys the type names, in order of appearance:
// "struct X" for tags and "X" for typedef names.
func (t CType) Refs() []string {
	if t.anonymous() {
		return nil
	}

	words := cWords(string(t))
	var refs []string
	seen := map[string]bool{}
	add := func(ref string) {
		if !seen[ref] {
			seen[ref] = true
			refs = append(refs, ref)
		}
	}

	for i := 0; i < len(words); i++ {
		w := words[i]
		switch {
		case isTagKeyword(w):
			if i+1 < len(words) {
				add(w + " " + words[i+1])
				i++
			}
		case cQualifiers[w], cBuiltinWords[w]:
		case w[0] >= '0' && w[0] <= '9':
		default:
			add(w)
		}
	}

	return refs
}

// shape is the part of a type the function binder cares about.
type shape struct {
	Base     string // canonical scalar, "void", "struct X" or a typedef name
	Pointers int
	FuncPtr  bool
}

// shape decomposes t. Arrays count as one level of pointer, matching how
// they decay in parameter position.
func (t CType) shape() shape {
	s := string(t)
	var sh shape

	if strings.Contains(s, "(*)") {
		sh.FuncPtr = true
		return sh
	}

	if i := strings.Index(s, "["); i >= 0 {
		sh.Pointers++
		s = s[:i]
	}
	sh.Pointers += strings.Count(s, "*")
	s = strings.ReplaceAll(s, "*", " ")

	var words []string
	for _, w := range cWords(s) {
		if !cQualifiers[w] {
			words = append(words, w)
		}
	}

	switch {
	case len(words) == 0:
		sh.Base = "int"
	case isTagKeyword(words[0]) && len(words) > 1:
		sh.Base = words[0] + " " + words[1]
	case allBuiltinWords(words):
		sh.Base = canonicalScalar(words)
	default:
		sh.Base = words[len(words)-1]
	}

	return sh
}

func allBuiltinWords(words []string) bool {
	for _, w := range words {
		if !cBuiltinWords[w] {
			return false
		}
	}
	return true
}

// canonicalScalar folds spellings such as "long unsigned int" into the keys
// of cScalars.
func canonicalScalar(words []string) string {
	var unsigned, signed, short, char, isFloat, isDouble, isVoid, isBool bool
	long := 0
	for _, w := range words {
		switch w {
		case "unsigned":
			unsigned = true
		case "signed":
			signed = true
		case "short":
			short = true
		case "long":
			long++
		case "char":
			char = true
		case "float":
			isFloat = true
		case "double":
			isDouble = true
		case "void":
			isVoid = true
		case "_Bool", "bool":
			isBool = true
		}
	}

	sign := ""
	if unsigned {
		sign = "unsigned "
	}

	switch {
	case isVoid:
		return "void"
	case isBool:
		return "_Bool"
	case isFloat:
		return "float"
	case isDouble && long > 0:
		return "long double"
	case isDouble:
		return "double"
	case char && signed:
		return "signed char"
	case char:
		return sign + "char"
	case short:
		return sign + "short"
	case long >= 2:
		return sign + "long long"
	case long == 1:
		return sign + "long"
	default:
		return sign + "int"
	}
}

// cWords splits a C type spelling into identifier words.
func cWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
}

// resultType extracts the result type of a function type spelling such as
// "VkFFTResult (VkFFTApplication *, int)".
func resultType(fn CType) CType {
	s := strings.TrimSpace(string(fn))
	if !strings.HasSuffix(s, ")") {
		return CType(s)
	}

	depth := 0
	for i := len(s) - 1; i >= 0; i-- {
		switch s[i] {
		case ')':
			depth++
		case '(':
			depth--
			if depth == 0 {
				return CType(strings.TrimSpace(s[:i]))
			}
		}
	}
	return CType(s)
}
