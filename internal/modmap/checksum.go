package modmap

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"time"

	"modmap/internal/model"
)

// CollectionChecksum hashes a canonical rendering of the module map so
// the same logical content always produces the same digest regardless
// of map iteration order or the order lists were appended in. Used to
// detect external tampering between integrity checks, never for locking
// decisions.
func CollectionChecksum(modules map[string]*model.Module) string {
	names := make([]string, 0, len(modules))
	byName := make(map[string]*model.Module, len(modules))
	for _, m := range modules {
		names = append(names, m.HierarchicalName)
		byName[m.HierarchicalName] = m
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		writeCanonicalModule(h, byName[name])
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeCanonicalModule(w io.Writer, m *model.Module) {
	writeField(w, "id", m.ID)
	writeField(w, "hname", m.HierarchicalName)
	writeField(w, "name", m.Name)
	writeField(w, "type", string(m.Type))
	writeField(w, "parent", m.ParentModule)
	writeField(w, "file", m.FilePath)
	writeField(w, "desc", m.Description)
	writeField(w, "access", string(m.AccessModifier))
	writeList(w, "deps", m.Dependencies)

	if m.Class != nil {
		writeList(w, "inherits", m.Class.Inherits)
		writeList(w, "implements", m.Class.Implements)
	}
	if m.Function != nil {
		for _, p := range m.Function.Parameters {
			writeField(w, "param", p.Name+":"+p.DataType+"="+p.Default)
		}
		writeField(w, "returns", m.Function.ReturnType)
		writeField(w, "async", fmt.Sprintf("%t", m.Function.Async))
	}
	if m.Variable != nil {
		writeField(w, "data_type", m.Variable.DataType)
		writeField(w, "initial", m.Variable.InitialValue)
		writeField(w, "constant", fmt.Sprintf("%t", m.Variable.Constant))
	}
	if m.File != nil {
		writeList(w, "exports", m.File.Exports)
		writeList(w, "imports", m.File.Imports)
	}
	if m.FunctionGroup != nil {
		writeList(w, "functions", m.FunctionGroup.Functions)
	}

	writeField(w, "created", m.CreatedAt.UTC().Format(time.RFC3339Nano))
	writeField(w, "updated", m.UpdatedAt.UTC().Format(time.RFC3339Nano))
}

func writeField(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s=%s\n", key, value)
}

// writeList sorts a copy so append order never changes the digest.
func writeList(w io.Writer, key string, values []string) {
	sorted := append([]string(nil), values...)
	sort.Strings(sorted)
	for _, v := range sorted {
		writeField(w, key, v)
	}
}
