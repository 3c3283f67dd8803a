package modmap

import (
	"fmt"

	"modmap/internal/model"
)

// IssueKind classifies a repairable (or reportable) integrity issue.
type IssueKind string

const (
	// IssueDanglingParent is a parent_module pointing at a module that
	// no longer exists. Auto-fixable: the reference is stripped and the
	// module becomes a root.
	IssueDanglingParent IssueKind = "dangling_parent"

	// IssueDanglingDependency is a dependency edge pointing at a module
	// that no longer exists. Auto-fixable: the edge is removed.
	IssueDanglingDependency IssueKind = "dangling_dependency"

	// IssueStructural is a missing or malformed required field. Never
	// auto-fixed: there is no safe default for a lost name or type.
	IssueStructural IssueKind = "structural"
)

// Issue is one finding from a repair detection pass.
type Issue struct {
	Kind     IssueKind
	ModuleID string
	Target   string // the missing reference, for dangling kinds
	Detail   string
}

// Fixable reports whether ApplyFixes can resolve this issue class.
func (i Issue) Fixable() bool {
	return i.Kind == IssueDanglingParent || i.Kind == IssueDanglingDependency
}

// RepairReport summarizes an ApplyFixes pass.
type RepairReport struct {
	Fixed   []Issue
	Skipped []Issue
}

// DetectIssues scans the map for orphan references and structural
// problems. It never mutates; pair it with ApplyFixes for the explicit
// two-phase repair flow (callers snapshot the pre-repair state between
// the phases).
func (c *Checker) DetectIssues(modules map[string]*model.Module) []Issue {
	var issues []Issue
	byName := indexByName(modules)

	for id, m := range modules {
		if err := c.ValidateModule(m); err != nil {
			issues = append(issues, Issue{
				Kind:     IssueStructural,
				ModuleID: id,
				Detail:   err.Error(),
			})
			continue
		}
		if m.ParentModule != "" {
			if _, ok := byName[m.ParentModule]; !ok {
				issues = append(issues, Issue{
					Kind:     IssueDanglingParent,
					ModuleID: id,
					Target:   m.ParentModule,
					Detail:   fmt.Sprintf("module %q references missing parent %q", m.HierarchicalName, m.ParentModule),
				})
			}
		}
		for _, dep := range m.Dependencies {
			if _, ok := byName[dep]; !ok {
				issues = append(issues, Issue{
					Kind:     IssueDanglingDependency,
					ModuleID: id,
					Target:   dep,
					Detail:   fmt.Sprintf("module %q depends on missing module %q", m.HierarchicalName, dep),
				})
			}
		}
	}
	return issues
}

// ApplyFixes mutates modules in place, stripping the orphan references
// named by the fixable issues. Structural issues are reported as skipped.
// Stripping a dangling parent rewrites the module's hierarchical name to
// its local name so the containment invariant keeps holding; when that
// name is already taken the issue is skipped instead, so a repair can
// never introduce a duplicate the structural gate would then reject.
func (c *Checker) ApplyFixes(modules map[string]*model.Module, issues []Issue) *RepairReport {
	report := &RepairReport{}
	byName := indexByName(modules)
	for _, issue := range issues {
		if !issue.Fixable() {
			report.Skipped = append(report.Skipped, issue)
			continue
		}
		m, ok := modules[issue.ModuleID]
		if !ok {
			report.Skipped = append(report.Skipped, issue)
			continue
		}
		switch issue.Kind {
		case IssueDanglingParent:
			if m.ParentModule != issue.Target {
				report.Skipped = append(report.Skipped, issue)
				continue
			}
			if existing, taken := byName[m.Name]; taken && existing != m {
				report.Skipped = append(report.Skipped, issue)
				continue
			}
			delete(byName, m.HierarchicalName)
			m.ParentModule = ""
			m.HierarchicalName = m.Name
			byName[m.Name] = m
			report.Fixed = append(report.Fixed, issue)
		case IssueDanglingDependency:
			kept := m.Dependencies[:0]
			removed := false
			for _, dep := range m.Dependencies {
				if dep == issue.Target {
					removed = true
					continue
				}
				kept = append(kept, dep)
			}
			if !removed {
				report.Skipped = append(report.Skipped, issue)
				continue
			}
			if len(kept) == 0 {
				m.Dependencies = nil
			} else {
				m.Dependencies = kept
			}
			report.Fixed = append(report.Fixed, issue)
		}
	}
	return report
}
