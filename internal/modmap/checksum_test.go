package modmap_test

import (
	"testing"

	"modmap/internal/model"
	"modmap/internal/modmap"
)

func TestCollectionChecksum(t *testing.T) {
	t.Run("ignores map insertion and list append order", func(t *testing.T) {
		a1 := testModule("id-1", "a", "", "x", "y")
		b1 := testModule("id-2", "b", "")
		first := moduleMap(a1, b1)

		// Same logical content, dependencies appended in reverse and
		// modules inserted in the opposite order.
		b2 := testModule("id-2", "b", "")
		a2 := testModule("id-1", "a", "", "y", "x")
		second := map[string]*model.Module{}
		second[b2.ID] = b2
		second[a2.ID] = a2

		if modmap.CollectionChecksum(first) != modmap.CollectionChecksum(second) {
			t.Error("checksums differ for identical logical content")
		}
	})

	t.Run("changes when any field changes", func(t *testing.T) {
		base := moduleMap(testModule("id-1", "a", ""))
		before := modmap.CollectionChecksum(base)

		changed := moduleMap(testModule("id-1", "a", ""))
		changed["id-1"].Description = "now documented"
		if modmap.CollectionChecksum(changed) == before {
			t.Error("checksum unchanged after a field edit")
		}
	})

	t.Run("covers detail blocks", func(t *testing.T) {
		base := moduleMap(testModule("id-1", "a", ""))
		before := modmap.CollectionChecksum(base)

		withDetail := moduleMap(testModule("id-1", "a", ""))
		withDetail["id-1"].Class = &model.ClassDetails{Inherits: []string{"Base"}}
		if modmap.CollectionChecksum(withDetail) == before {
			t.Error("checksum unchanged after adding class details")
		}
	})

	t.Run("empty collection is stable", func(t *testing.T) {
		a := modmap.CollectionChecksum(nil)
		b := modmap.CollectionChecksum(map[string]*model.Module{})
		if a != b {
			t.Errorf("nil map checksum %q != empty map checksum %q", a, b)
		}
	})
}
