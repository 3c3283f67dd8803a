package modmap_test

import (
	"errors"
	"testing"
	"time"

	"modmap/internal/model"
	"modmap/internal/modmap"
)

func newChecker(strict bool) *modmap.Checker {
	return modmap.NewChecker(modmap.NewResolver(0), strict)
}

func TestChecker_ValidateModule(t *testing.T) {
	c := newChecker(false)

	t.Run("accepts a well-formed module", func(t *testing.T) {
		if err := c.ValidateModule(testModule("id-1", "UserService", "app")); err != nil {
			t.Fatalf("ValidateModule() error = %v", err)
		}
	})

	t.Run("accepts the detail block matching the type", func(t *testing.T) {
		m := testModule("id-1", "UserService", "app")
		m.Class = &model.ClassDetails{Inherits: []string{"Base"}}
		if err := c.ValidateModule(m); err != nil {
			t.Fatalf("ValidateModule() error = %v", err)
		}
	})

	cases := []struct {
		name   string
		mutate func(m *model.Module)
	}{
		{"missing id", func(m *model.Module) { m.ID = "" }},
		{"invalid name", func(m *model.Module) { m.Name = "2fast" }},
		{"unknown type", func(m *model.Module) { m.Type = "interface" }},
		{"unknown access modifier", func(m *model.Module) { m.AccessModifier = "internal" }},
		{"hierarchical name disagrees with parent", func(m *model.Module) { m.HierarchicalName = "other.UserService" }},
		{"zero created_at", func(m *model.Module) { m.CreatedAt = time.Time{} }},
		{"function details on a class", func(m *model.Module) {
			m.Function = &model.FunctionDetails{ReturnType: "User"}
		}},
		{"variable details on a class", func(m *model.Module) {
			m.Variable = &model.VariableDetails{DataType: "string"}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := testModule("id-1", "UserService", "app")
			tc.mutate(m)
			err := c.ValidateModule(m)
			if !errors.Is(err, modmap.ErrValidation) {
				t.Errorf("ValidateModule() error = %v, want a VALIDATION_ERROR", err)
			}
		})
	}
}

func TestChecker_ValidateStructure(t *testing.T) {
	c := newChecker(false)

	t.Run("passes a clean map", func(t *testing.T) {
		modules := moduleMap(
			testModule("id-1", "app", ""),
			testModule("id-2", "UserService", "app"),
		)
		if report := c.ValidateStructure(modules); !report.OK() {
			t.Fatalf("ValidateStructure() errors = %v", report.Errors)
		}
	})

	t.Run("rejects duplicate hierarchical names", func(t *testing.T) {
		a := testModule("id-1", "app", "")
		b := testModule("id-2", "app", "")
		report := c.ValidateStructure(moduleMap(a, b))
		if report.OK() {
			t.Fatal("duplicate hierarchical name not reported")
		}
	})

	t.Run("rejects a key that does not match the module id", func(t *testing.T) {
		m := testModule("id-1", "app", "")
		modules := map[string]*model.Module{"wrong-key": m}
		report := c.ValidateStructure(modules)
		if report.OK() {
			t.Fatal("key/id mismatch not reported")
		}
	})
}

func TestChecker_CheckReferences(t *testing.T) {
	t.Run("missing parent is an error", func(t *testing.T) {
		orphan := testModule("id-1", "child", "gone")
		report := newChecker(false).CheckReferences(moduleMap(orphan))
		if len(report.Errors) != 1 {
			t.Fatalf("errors = %v, want exactly one", report.Errors)
		}
	})

	t.Run("missing dependency is a warning by default", func(t *testing.T) {
		m := testModule("id-1", "app", "", "vanished")
		report := newChecker(false).CheckReferences(moduleMap(m))
		if len(report.Errors) != 0 {
			t.Errorf("errors = %v, want none", report.Errors)
		}
		if len(report.Warnings) != 1 {
			t.Errorf("warnings = %v, want exactly one", report.Warnings)
		}
	})

	t.Run("missing dependency is an error in strict mode", func(t *testing.T) {
		m := testModule("id-1", "app", "", "vanished")
		report := newChecker(true).CheckReferences(moduleMap(m))
		if len(report.Errors) != 1 {
			t.Errorf("errors = %v, want exactly one", report.Errors)
		}
	})

	t.Run("resolved references pass", func(t *testing.T) {
		modules := moduleMap(
			testModule("id-1", "app", ""),
			testModule("id-2", "UserService", "app", "app.Database"),
			testModule("id-3", "Database", "app"),
		)
		report := newChecker(true).CheckReferences(modules)
		if !report.OK() || len(report.Warnings) != 0 {
			t.Errorf("report = %+v, want clean", report)
		}
	})
}

func TestChecker_DetectCycles(t *testing.T) {
	c := newChecker(false)

	t.Run("clean tree has no cycles", func(t *testing.T) {
		modules := moduleMap(
			testModule("id-1", "app", ""),
			testModule("id-2", "UserService", "app"),
			testModule("id-3", "createUser", "app.UserService"),
		)
		if cycles := c.DetectCycles(modules); len(cycles) != 0 {
			t.Errorf("DetectCycles() = %v, want none", cycles)
		}
	})

	t.Run("dependency ring is one cycle", func(t *testing.T) {
		modules := moduleMap(
			testModule("id-1", "a", "", "b"),
			testModule("id-2", "b", "", "c"),
			testModule("id-3", "c", "", "a"),
		)
		cycles := c.DetectCycles(modules)
		if len(cycles) != 1 {
			t.Fatalf("DetectCycles() found %d cycles, want 1: %v", len(cycles), cycles)
		}
		path := cycles[0].Path
		if len(path) < 2 || path[0] != path[len(path)-1] {
			t.Errorf("cycle path %v does not close on itself", path)
		}
	})

	t.Run("diamond is not a cycle", func(t *testing.T) {
		// b and c both depend on d; a depends on b and c. Shared
		// ancestors reached twice must not count as back-edges.
		modules := moduleMap(
			testModule("id-1", "a", "", "b", "c"),
			testModule("id-2", "b", "", "d"),
			testModule("id-3", "c", "", "d"),
			testModule("id-4", "d", ""),
		)
		if cycles := c.DetectCycles(modules); len(cycles) != 0 {
			t.Errorf("DetectCycles() = %v, want none", cycles)
		}
	})

	t.Run("self dependency is a cycle", func(t *testing.T) {
		modules := moduleMap(testModule("id-1", "a", "", "a"))
		if cycles := c.DetectCycles(modules); len(cycles) != 1 {
			t.Errorf("DetectCycles() found %d cycles, want 1", len(cycles))
		}
	})

	t.Run("corrupted parent chain is a cycle", func(t *testing.T) {
		// Hand-built corruption: two modules claiming each other as
		// parent. DetectCycles must still terminate and report it.
		a := testModule("id-1", "a", "")
		a.ParentModule = "b"
		b := testModule("id-2", "b", "")
		b.ParentModule = "a"
		if cycles := c.DetectCycles(moduleMap(a, b)); len(cycles) != 1 {
			t.Errorf("DetectCycles() found %d cycles, want 1", len(cycles))
		}
	})

	t.Run("deep chain does not overflow", func(t *testing.T) {
		modules := make(map[string]*model.Module)
		prev := ""
		for i := 0; i < 50_000; i++ {
			name := nameFor(i)
			m := testModule(name, name, "")
			if prev != "" {
				m.Dependencies = []string{prev}
			}
			modules[name] = m
			prev = name
		}
		if cycles := c.DetectCycles(modules); len(cycles) != 0 {
			t.Errorf("DetectCycles() = %v, want none", cycles)
		}
	})
}

func nameFor(i int) string {
	// base-26 letters so every name stays a valid identifier
	const alphabet = "abcdefghijklmnopqrstuvwxyz"
	name := ""
	for {
		name = string(alphabet[i%26]) + name
		i /= 26
		if i == 0 {
			return "n" + name
		}
	}
}

func TestChecker_WouldCycle(t *testing.T) {
	c := newChecker(false)

	existing := moduleMap(
		testModule("id-1", "a", "", "b"),
		testModule("id-2", "b", ""),
	)

	t.Run("reports the cycle a mutation would close", func(t *testing.T) {
		updated := testModule("id-2", "b", "", "a")
		cy, bad := c.WouldCycle(existing, updated)
		if !bad {
			t.Fatal("WouldCycle() = false, want true")
		}
		found := false
		for _, name := range cy.Path {
			if name == "b" {
				found = true
			}
		}
		if !found {
			t.Errorf("cycle %v does not contain the probed module", cy.Path)
		}
	})

	t.Run("accepts a harmless addition", func(t *testing.T) {
		added := testModule("id-3", "c", "", "a")
		if _, bad := c.WouldCycle(existing, added); bad {
			t.Error("WouldCycle() = true, want false")
		}
	})

	t.Run("does not mutate the probed map", func(t *testing.T) {
		before := len(existing)
		c.WouldCycle(existing, testModule("id-9", "z", ""))
		if len(existing) != before {
			t.Errorf("probed map grew from %d to %d entries", before, len(existing))
		}
	})
}
