package vkfftbuild

import (
	"fmt"
	"os/exec"
	"strings"
)

var execLookPath = exec.LookPath

// ToolRequirement describes a build tool dependency.
//
// Tool with alternatives:
//
//	ToolRequirement{
//	    Name:         "clang",
//	    Alternatives: []string{"clang-19", "clang-18"},
//	    Purpose:      "header parsing",
//	}
type ToolRequirement struct {
	// Name is the primary tool binary name (e.g., "pkg-config", "clang").
	Name string

	// Alternatives are tool names that satisfy the requirement when Name
	// is not on PATH. A tool set through the environment has none.
	Alternatives []string

	// Purpose is a human-readable description of why this tool is needed.
	Purpose string
}

// Versioned names tried when a tool is not overridden through the
// environment and its default name is not on PATH.
var toolAlternatives = map[string][]string{
	"PKG_CONFIG": {"pkgconf"},
	"CXX":        {"g++", "clang++"},
	"AR":         {"llvm-ar"},
	"CLANG":      {"clang-19", "clang-18", "clang-17"},
}

// toolSlot ties a requirement to the Config field holding the tool name.
type toolSlot struct {
	env   string
	field *string
	req   ToolRequirement
}

func (c *Config) toolSlots() []toolSlot {
	slots := []toolSlot{
		{env: "PKG_CONFIG", field: &c.PkgConfig, req: ToolRequirement{Name: c.PkgConfig, Purpose: "Vulkan toolchain discovery"}},
		{env: "CXX", field: &c.CXX, req: ToolRequirement{Name: c.CXX, Purpose: "C++ compiler for the native shim"}},
		{env: "AR", field: &c.AR, req: ToolRequirement{Name: c.AR, Purpose: "static archive creation"}},
		{env: "CLANG", field: &c.Clang, req: ToolRequirement{Name: c.Clang, Purpose: "header parsing for binding generation"}},
	}
	for i := range slots {
		if c.Env[slots[i].env] == "" {
			slots[i].req.Alternatives = toolAlternatives[slots[i].env]
		}
	}
	return slots
}

// RequiredTools returns the tools a pipeline run invokes.
func (c *Config) RequiredTools() []ToolRequirement {
	var reqs []ToolRequirement
	for _, slot := range c.toolSlots() {
		reqs = append(reqs, slot.req)
	}
	return reqs
}

// ResolveTools checks every required tool and records the name that was
// found, so a fallback such as clang-18 is also the binary the pipeline runs.
// Nothing is changed when a tool is missing.
func (c *Config) ResolveTools() error {
	slots := c.toolSlots()

	reqs := make([]ToolRequirement, len(slots))
	for i, slot := range slots {
		reqs[i] = slot.req
	}

	found, err := FindRequiredTools(reqs)
	if err != nil {
		return err
	}

	for i, slot := range slots {
		*slot.field = found[i]
	}
	return nil
}

// CheckToolAvailable checks if a tool is available in the system PATH.
func CheckToolAvailable(tool string) error {
	_, err := execLookPath(tool)
	if err != nil {
		return fmt.Errorf("%s not found in PATH", tool)
	}
	return nil
}

// FindRequiredTools verifies all required tools are available and returns
// the name found for each requirement, in order.
//
// The primary name is tried first, then each alternative in order. All
// missing tools are reported in a single error.
//
// # Error Format
//
// Single missing tool:
//
//	clang (header parsing for binding generation) not found in PATH
//
// Multiple missing tools:
//
//	missing required tools: ar (static archive creation), clang (header parsing for binding generation)
func FindRequiredTools(requirements []ToolRequirement) ([]string, error) {
	var (
		found        = make([]string, len(requirements))
		missingTools []string
	)

	for i, req := range requirements {
		for _, name := range append([]string{req.Name}, req.Alternatives...) {
			if CheckToolAvailable(name) == nil {
				found[i] = name
				break
			}
		}

		if found[i] != "" {
			continue
		}
		if req.Purpose != "" {
			missingTools = append(missingTools, fmt.Sprintf("%s (%s)", req.Name, req.Purpose))
		} else {
			missingTools = append(missingTools, req.Name)
		}
	}

	switch len(missingTools) {
	case 0:
		return found, nil
	case 1:
		return nil, fmt.Errorf("%s not found in PATH", missingTools[0])
	default:
		return nil, fmt.Errorf("missing required tools: %s", strings.Join(missingTools, ", "))
	}
}
