package modmap_test

import (
	"time"

	"modmap/internal/model"
)

var testCreatedAt = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// testModule builds a valid class module. parent is the parent's
// hierarchical name; the module's own hierarchical name is derived from
// it the way the service would.
func testModule(id, name, parent string, deps ...string) *model.Module {
	hname := name
	if parent != "" {
		hname = parent + "." + name
	}
	return &model.Module{
		ID:               id,
		HierarchicalName: hname,
		Name:             name,
		Type:             model.TypeClass,
		ParentModule:     parent,
		Dependencies:     deps,
		CreatedAt:        testCreatedAt,
		UpdatedAt:        testCreatedAt,
	}
}

// moduleMap keys modules by ID the way the storage layer does.
func moduleMap(modules ...*model.Module) map[string]*model.Module {
	out := make(map[string]*model.Module, len(modules))
	for _, m := range modules {
		out[m.ID] = m
	}
	return out
}
