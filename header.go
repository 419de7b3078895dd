package vkfftbuild

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
)

// DeclKind classifies a header declaration.
type DeclKind int

// Declaration kinds kept in the graph.
const (
	RecordDecl DeclKind = iota
	EnumDecl
	TypedefDecl
	FunctionDecl
)

func (k DeclKind) String() string {
	switch k {
	case RecordDecl:
		return "record"
	case EnumDecl:
		return "enum"
	case TypedefDecl:
		return "typedef"
	case FunctionDecl:
		return "function"
	default:
		return fmt.Sprintf("DeclKind(%d)", int(k))
	}
}

// Field is a record member.
type Field struct {
	Name string
	Type CType
}

// Param is a function parameter. Name may be empty.
type Param struct {
	Name string
	Type CType
}

// Decl is one node of the header's declaration graph.
type Decl struct {
	Kind DeclKind
	Key  string // graph key: "struct X", "enum X", "X", or "anon <id>"
	Name string // empty for anonymous tags
	Tag  string // struct, union or enum for tag declarations

	Complete  bool     // records: a definition was seen
	Type      CType    // typedefs: underlying type; functions: function type
	Fields    []Field  // records
	Constants []string // enums
	Result    CType    // functions
	Params    []Param  // functions
	Variadic  bool     // functions

	refs []string
}

// Refs returns the keys of the declarations d refers to.
func (d *Decl) Refs() []string {
	return append([]string{}, d.refs...)
}

func (d *Decl) addRefs(refs ...string) {
	for _, ref := range refs {
		if ref == "" || ref == d.Key {
			continue
		}
		dup := false
		for _, have := range d.refs {
			if have == ref {
				dup = true
				break
			}
		}
		if !dup {
			d.refs = append(d.refs, ref)
		}
	}
}

// Header is the declaration graph of a parsed header, in declaration order.
type Header struct {
	decls map[string]*Decl
	order []string
	ids   map[string]string // clang node id -> graph key
}

func newHeader() *Header {
	return &Header{
		decls: map[string]*Decl{},
		ids:   map[string]string{},
	}
}

// Lookup returns the declaration stored under key.
func (h *Header) Lookup(key string) (*Decl, bool) {
	d, ok := h.decls[key]
	return d, ok
}

// Len returns the number of declarations in the graph.
func (h *Header) Len() int {
	return len(h.order)
}

// astNode mirrors the parts of clang's -ast-dump=json output the graph needs.
type astNode struct {
	ID                 string    `json:"id"`
	Kind               string    `json:"kind"`
	Name               string    `json:"name"`
	TagUsed            string    `json:"tagUsed"`
	CompleteDefinition bool      `json:"completeDefinition"`
	IsImplicit         bool      `json:"isImplicit"`
	Variadic           bool      `json:"variadic"`
	Type               *astType  `json:"type"`
	Decl               *astRef   `json:"decl"`
	OwnedTagDecl       *astRef   `json:"ownedTagDecl"`
	Inner              []astNode `json:"inner"`
}

type astType struct {
	QualType string `json:"qualType"`
}

type astRef struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Name string `json:"name"`
}

func (n *astNode) qualType() CType {
	if n.Type == nil {
		return ""
	}
	return CType(n.Type.QualType)
}

// ParseHeader decodes a clang JSON AST dump into a declaration graph.
//
// Top-level declarations are decoded one at a time so that function bodies
// in header-only libraries never have to be held in memory together.
func ParseHeader(r io.Reader) (*Header, error) {
	dec := json.NewDecoder(r)
	h := newHeader()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("read AST: %w", err)
		}
		key, _ := tok.(string)

		if key != "inner" {
			var skip json.RawMessage
			if err := dec.Decode(&skip); err != nil {
				return nil, fmt.Errorf("read AST field %s: %w", key, err)
			}
			continue
		}

		if err := expectDelim(dec, '['); err != nil {
			return nil, err
		}
		for dec.More() {
			var node astNode
			if err := dec.Decode(&node); err != nil {
				return nil, fmt.Errorf("read AST declaration: %w", err)
			}
			h.add(&node)
		}
		if err := expectDelim(dec, ']'); err != nil {
			return nil, err
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return h, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("read AST: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("read AST: expected %q, got %v", want, tok)
	}
	return nil
}

func (h *Header) add(n *astNode) {
	if n.IsImplicit {
		return
	}

	switch n.Kind {
	case "LinkageSpecDecl":
		for i := range n.Inner {
			h.add(&n.Inner[i])
		}
	case "RecordDecl", "CXXRecordDecl":
		h.addRecord(n)
	case "EnumDecl":
		h.addEnum(n)
	case "TypedefDecl":
		h.addTypedef(n)
	case "FunctionDecl":
		h.addFunction(n)
	}
}

func tagKey(tag, name, id string) string {
	if name == "" {
		return "anon " + id
	}
	return tag + " " + name
}

func (h *Header) addRecord(n *astNode) *Decl {
	tag := n.TagUsed
	if tag == "" || tag == "class" {
		tag = "struct"
	}

	d := &Decl{
		Kind:     RecordDecl,
		Key:      tagKey(tag, n.Name, n.ID),
		Name:     n.Name,
		Tag:      tag,
		Complete: n.CompleteDefinition,
	}
	h.ids[n.ID] = d.Key

	for i := range n.Inner {
		child := &n.Inner[i]
		switch child.Kind {
		case "FieldDecl":
			f := Field{Name: child.Name, Type: child.qualType()}
			d.Fields = append(d.Fields, f)
			d.addRefs(f.Type.Refs()...)
			d.addRefs(h.nodeRefs(child.Inner)...)
		case "RecordDecl", "CXXRecordDecl":
			// Anonymous members are only reachable through their parent.
			nested := h.addRecord(child)
			if nested.Name == "" {
				d.addRefs(nested.Key)
			}
		case "EnumDecl":
			nested := h.addEnum(child)
			if nested.Name == "" {
				d.addRefs(nested.Key)
			}
		}
	}

	return h.put(d)
}

func (h *Header) addEnum(n *astNode) *Decl {
	d := &Decl{
		Kind:     EnumDecl,
		Key:      tagKey("enum", n.Name, n.ID),
		Name:     n.Name,
		Tag:      "enum",
		Complete: len(n.Inner) > 0,
	}
	h.ids[n.ID] = d.Key

	for _, child := range n.Inner {
		if child.Kind == "EnumConstantDecl" {
			d.Constants = append(d.Constants, child.Name)
		}
	}

	return h.put(d)
}

func (h *Header) addTypedef(n *astNode) {
	d := &Decl{
		Kind:     TypedefDecl,
		Key:      n.Name,
		Name:     n.Name,
		Complete: true,
		Type:     n.qualType(),
	}
	h.ids[n.ID] = d.Key

	d.addRefs(d.Type.Refs()...)
	d.addRefs(h.nodeRefs(n.Inner)...)

	h.put(d)
}

func (h *Header) addFunction(n *astNode) {
	if _, ok := h.decls[n.Name]; ok {
		return
	}

	d := &Decl{
		Kind:     FunctionDecl,
		Key:      n.Name,
		Name:     n.Name,
		Complete: true,
		Type:     n.qualType(),
		Variadic: n.Variadic || strings.Contains(string(n.qualType()), "..."),
	}
	d.Result = resultType(d.Type)
	d.addRefs(d.Result.Refs()...)

	for _, child := range n.Inner {
		if child.Kind != "ParmVarDecl" {
			continue
		}
		p := Param{Name: child.Name, Type: child.qualType()}
		d.Params = append(d.Params, p)
		d.addRefs(p.Type.Refs()...)
	}

	h.put(d)
}

// nodeRefs collects the declarations referenced from a type subtree through
// clang node ids. This is how anonymous tags are linked to their typedefs.
func (h *Header) nodeRefs(nodes []astNode) []string {
	var refs []string
	for i := range nodes {
		n := &nodes[i]
		for _, ref := range []*astRef{n.Decl, n.OwnedTagDecl} {
			if ref == nil {
				continue
			}
			if key, ok := h.ids[ref.ID]; ok {
				refs = append(refs, key)
			}
		}
		refs = append(refs, h.nodeRefs(n.Inner)...)
	}
	return refs
}

// put stores d, keeping the first position of its key. A forward declaration
// never replaces a definition.
func (h *Header) put(d *Decl) *Decl {
	existing, ok := h.decls[d.Key]
	if !ok {
		h.decls[d.Key] = d
		h.order = append(h.order, d.Key)
		return d
	}

	if existing.Complete && !d.Complete {
		return existing
	}
	*existing = *d
	return existing
}

// Binding is the allow-listed projection of a header: the reachable type
// declarations and the allow-listed functions, in header order.
type Binding struct {
	Types     []*Decl
	Functions []*Decl
}

// Closure computes the declarations reachable from the allow-list.
//
// Type names match a typedef first, then a struct, union or enum tag.
// Function names must name functions. Names missing from the header are
// reported together. References are followed through record fields, typedef
// targets and function signatures; scalar names such as uint64_t end the walk
// because the binding maps them to Go types directly. Functions are only ever
// seeded, never reached.
func (h *Header) Closure(types, functions []string) (*Binding, error) {
	var (
		queue   []string
		missing []string
	)

	for _, name := range types {
		key, ok := h.lookupType(name)
		if !ok {
			missing = append(missing, "type "+name)
			continue
		}
		queue = append(queue, key)
	}

	for _, name := range functions {
		d, ok := h.decls[name]
		if !ok || d.Kind != FunctionDecl {
			missing = append(missing, "function "+name)
			continue
		}
		queue = append(queue, name)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("allow-listed declarations not found in header: %s", strings.Join(missing, ", "))
	}

	reached := map[string]bool{}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		if reached[key] {
			continue
		}
		reached[key] = true

		for _, ref := range h.decls[key].refs {
			if reached[ref] || isScalarName(ref) {
				continue
			}
			if d, ok := h.decls[ref]; ok && d.Kind != FunctionDecl {
				queue = append(queue, ref)
			}
		}
	}

	b := &Binding{}
	for _, key := range h.order {
		if !reached[key] {
			continue
		}
		d := h.decls[key]
		if d.Kind == FunctionDecl {
			b.Functions = append(b.Functions, d)
		} else {
			b.Types = append(b.Types, d)
		}
	}

	return b, nil
}

func (h *Header) lookupType(name string) (string, bool) {
	if d, ok := h.decls[name]; ok && d.Kind != FunctionDecl {
		return name, true
	}
	for _, tag := range []string{"struct", "union", "enum"} {
		if _, ok := h.decls[tag+" "+name]; ok {
			return tag + " " + name, true
		}
	}
	return "", false
}
