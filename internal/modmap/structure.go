package modmap

import (
	"sort"

	"modmap/internal/model"
)

// TypeStructure describes a module's position in the containment forest
// plus its advisory dependency neighborhood.
type TypeStructure struct {
	Target *model.Module

	// Ancestors runs root-first down to the direct parent.
	Ancestors []string

	// Children are direct children; Descendants is the full subtree,
	// both sorted by hierarchical name.
	Children    []string
	Descendants []string

	// Dependencies are outgoing advisory edges, Dependents incoming.
	Dependencies []string
	Dependents   []string
}

// GetTypeStructure traverses the ancestor and descendant chain for the
// named module and collects its related modules.
func (s *ModuleService) GetTypeStructure(hname string) (*TypeStructure, error) {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, err
	}
	byName := indexByName(modules)
	target, ok := byName[hname]
	if !ok {
		return nil, NewError(KindNotFound, "module %q not found", hname)
	}

	ts := &TypeStructure{Target: target.Clone()}

	// Walk the parent chain. The walk is bounded by the number of
	// modules so a corrupted cyclic chain cannot loop forever.
	seen := make(map[string]bool, len(byName))
	for cur := target.ParentModule; cur != "" && !seen[cur]; {
		seen[cur] = true
		ts.Ancestors = append([]string{cur}, ts.Ancestors...)
		parent, ok := byName[cur]
		if !ok {
			break
		}
		cur = parent.ParentModule
	}

	// Children and full subtree via an explicit work list.
	childrenOf := make(map[string][]string, len(byName))
	for _, m := range modules {
		if m.ParentModule != "" {
			childrenOf[m.ParentModule] = append(childrenOf[m.ParentModule], m.HierarchicalName)
		}
	}
	ts.Children = append(ts.Children, childrenOf[hname]...)
	sort.Strings(ts.Children)

	queue := append([]string(nil), childrenOf[hname]...)
	visited := make(map[string]bool, len(queue))
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if visited[cur] {
			continue
		}
		visited[cur] = true
		ts.Descendants = append(ts.Descendants, cur)
		queue = append(queue, childrenOf[cur]...)
	}
	sort.Strings(ts.Descendants)

	ts.Dependencies = append(ts.Dependencies, target.Dependencies...)
	sort.Strings(ts.Dependencies)
	for _, m := range modules {
		for _, dep := range m.Dependencies {
			if dep == hname {
				ts.Dependents = append(ts.Dependents, m.HierarchicalName)
				break
			}
		}
	}
	sort.Strings(ts.Dependents)

	return ts, nil
}
