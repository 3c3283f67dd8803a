package modmap

import (
	"fmt"
	"sort"
	"strings"

	"modmap/internal/model"
)

// Checker validates a snapshot of a full module map. It is stateless;
// callers run it synchronously before and after mutating operations.
type Checker struct {
	resolver *Resolver
	strict   bool
}

// NewChecker creates a Checker. In strict mode a dangling dependency is
// an error instead of a warning.
func NewChecker(resolver *Resolver, strict bool) *Checker {
	return &Checker{resolver: resolver, strict: strict}
}

// Report aggregates the outcome of a reference or structure pass.
type Report struct {
	Errors   []string
	Warnings []string
}

// OK reports whether the pass found no errors.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// ValidateModule checks one module's structural invariants: required
// fields, identifier grammar, known enums, and agreement between the
// hierarchical name and its parent + local name.
func (c *Checker) ValidateModule(m *model.Module) error {
	if m == nil {
		return NewError(KindValidation, "module is nil")
	}
	if m.ID == "" {
		return NewError(KindValidation, "module id is required")
	}
	if !c.resolver.ValidName(m.Name) {
		return NewError(KindValidation, "invalid module name %q", m.Name)
	}
	if !m.Type.Valid() {
		return NewError(KindValidation, "unknown module type %q", m.Type)
	}
	if m.AccessModifier != "" && !m.AccessModifier.Valid() {
		return NewError(KindValidation, "unknown access modifier %q", m.AccessModifier)
	}
	if !c.resolver.ValidHierarchicalName(m.HierarchicalName) {
		return NewError(KindValidation, "invalid hierarchical name %q", m.HierarchicalName)
	}
	if want := c.resolver.HierarchicalName(m.Name, m.ParentModule); m.HierarchicalName != want {
		return NewError(KindValidation,
			"hierarchical name %q does not match parent %q + name %q",
			m.HierarchicalName, m.ParentModule, m.Name)
	}
	if err := c.validateDetails(m); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		return NewError(KindValidation, "module %q has no created_at timestamp", m.HierarchicalName)
	}
	return nil
}

// validateDetails rejects a detail block belonging to a different type;
// only the block matching Type may be set.
func (c *Checker) validateDetails(m *model.Module) error {
	blocks := []struct {
		t   model.ModuleType
		set bool
	}{
		{model.TypeClass, m.Class != nil},
		{model.TypeFunction, m.Function != nil},
		{model.TypeVariable, m.Variable != nil},
		{model.TypeFile, m.File != nil},
		{model.TypeFunctionGroup, m.FunctionGroup != nil},
	}
	for _, b := range blocks {
		if b.set && b.t != m.Type {
			return NewError(KindValidation,
				"module %q of type %q carries a %q detail block", m.HierarchicalName, m.Type, b.t)
		}
	}
	return nil
}

// ValidateStructure runs ValidateModule over a whole map and verifies
// hierarchical-name uniqueness. This is the structural pass the storage
// engine runs before every save; it does not chase references.
func (c *Checker) ValidateStructure(modules map[string]*model.Module) *Report {
	report := &Report{}
	seen := make(map[string]string, len(modules))
	for id, m := range modules {
		if err := c.ValidateModule(m); err != nil {
			report.errorf("module %s: %v", id, err)
			continue
		}
		if m.ID != id {
			report.errorf("module %s: key does not match id %s", id, m.ID)
		}
		if prev, ok := seen[m.HierarchicalName]; ok {
			report.errorf("duplicate hierarchical name %q (ids %s, %s)", m.HierarchicalName, prev, id)
		}
		seen[m.HierarchicalName] = id
	}
	return report
}

// CheckReferences verifies that every parent link resolves and that
// dependency edges point at existing modules. Missing parents are
// errors; missing dependencies are advisory and downgraded to warnings
// unless strict mode is on.
func (c *Checker) CheckReferences(modules map[string]*model.Module) *Report {
	report := &Report{}
	byName := indexByName(modules)
	for _, m := range modules {
		if m.ParentModule != "" {
			if _, ok := byName[m.ParentModule]; !ok {
				report.errorf("module %q references missing parent %q", m.HierarchicalName, m.ParentModule)
			}
		}
		for _, dep := range m.Dependencies {
			if _, ok := byName[dep]; !ok {
				if c.strict {
					report.errorf("module %q depends on missing module %q", m.HierarchicalName, dep)
				} else {
					report.warnf("module %q depends on missing module %q", m.HierarchicalName, dep)
				}
			}
		}
	}
	return report
}

// Cycle is one detected cycle, as the chain of hierarchical names from
// the first repeated node back to itself.
type Cycle struct {
	Path []string
}

func (cy Cycle) String() string { return strings.Join(cy.Path, " -> ") }

// edge colors for the iterative traversal
const (
	colorWhite = 0 // unvisited
	colorGrey  = 1 // on the current stack
	colorBlack = 2 // fully explored
)

type frame struct {
	name string
	next int // index of the next outgoing edge to follow
}

// DetectCycles finds true back-edges in the combined parent + dependency
// graph. The traversal is an explicit work stack, not recursion, so deep
// hierarchies cannot exhaust the goroutine stack. Diamond shapes (shared
// ancestors reached twice) are not cycles: a node already explored is
// skipped, only a node on the current stack closes a cycle.
func (c *Checker) DetectCycles(modules map[string]*model.Module) []Cycle {
	byName := indexByName(modules)

	edges := make(map[string][]string, len(byName))
	names := make([]string, 0, len(byName))
	for name, m := range byName {
		names = append(names, name)
		var out []string
		if m.ParentModule != "" {
			if _, ok := byName[m.ParentModule]; ok {
				out = append(out, m.ParentModule)
			}
		}
		for _, dep := range m.Dependencies {
			if _, ok := byName[dep]; ok {
				out = append(out, dep)
			}
		}
		sort.Strings(out)
		edges[name] = out
	}
	sort.Strings(names)

	color := make(map[string]int, len(names))
	var cycles []Cycle

	for _, start := range names {
		if color[start] != colorWhite {
			continue
		}
		stack := []frame{{name: start}}
		color[start] = colorGrey

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			out := edges[top.name]
			if top.next < len(out) {
				next := out[top.next]
				top.next++
				switch color[next] {
				case colorWhite:
					color[next] = colorGrey
					stack = append(stack, frame{name: next})
				case colorGrey:
					// Back-edge: next is on the current stack.
					cycles = append(cycles, extractCycle(stack, next))
				}
				continue
			}
			color[top.name] = colorBlack
			stack = stack[:len(stack)-1]
		}
	}
	return cycles
}

// extractCycle builds the path from the first occurrence of repeated on
// the stack down to the top, closing back on repeated.
func extractCycle(stack []frame, repeated string) Cycle {
	start := 0
	for i := range stack {
		if stack[i].name == repeated {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.name)
	}
	path = append(path, repeated)
	return Cycle{Path: path}
}

// WouldCycle reports whether adding or keeping module m inside modules
// closes a cycle, and returns the offending cycle when it does. The map
// is probed with a shallow overlay so callers can test a mutation before
// committing it.
func (c *Checker) WouldCycle(modules map[string]*model.Module, m *model.Module) (Cycle, bool) {
	probe := make(map[string]*model.Module, len(modules)+1)
	for id, existing := range modules {
		probe[id] = existing
	}
	probe[m.ID] = m
	for _, cy := range c.DetectCycles(probe) {
		for _, name := range cy.Path {
			if name == m.HierarchicalName {
				return cy, true
			}
		}
	}
	return Cycle{}, false
}

func indexByName(modules map[string]*model.Module) map[string]*model.Module {
	byName := make(map[string]*model.Module, len(modules))
	for _, m := range modules {
		byName[m.HierarchicalName] = m
	}
	return byName
}
