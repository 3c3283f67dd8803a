package model

import "time"

// ModuleType classifies what kind of source construct a module documents.
type ModuleType string

const (
	TypeClass         ModuleType = "class"
	TypeFunction      ModuleType = "function"
	TypeVariable      ModuleType = "variable"
	TypeFile          ModuleType = "file"
	TypeFunctionGroup ModuleType = "function_group"
)

// Valid reports whether t is one of the known module types.
func (t ModuleType) Valid() bool {
	switch t {
	case TypeClass, TypeFunction, TypeVariable, TypeFile, TypeFunctionGroup:
		return true
	}
	return false
}

// AccessModifier is the declared visibility of a module.
type AccessModifier string

const (
	AccessPublic    AccessModifier = "public"
	AccessPrivate   AccessModifier = "private"
	AccessProtected AccessModifier = "protected"
)

// Valid reports whether a is one of the known access modifiers.
func (a AccessModifier) Valid() bool {
	switch a {
	case AccessPublic, AccessPrivate, AccessProtected:
		return true
	}
	return false
}

// Module is the persisted unit: one documented source construct.
// ID, Type and HierarchicalName are fixed at creation and never mutated
// by updates. HierarchicalName is always ParentModule + "." + Name, or
// Name alone when the module has no parent.
type Module struct {
	ID               string         `json:"id"`
	HierarchicalName string         `json:"hierarchical_name"`
	Name             string         `json:"name"`
	Type             ModuleType     `json:"type"`
	ParentModule     string         `json:"parent_module,omitempty"`
	FilePath         string         `json:"file_path,omitempty"`
	Description      string         `json:"description,omitempty"`
	AccessModifier   AccessModifier `json:"access_modifier,omitempty"`

	// Type-specific detail blocks. Only the block matching Type is set.
	Class         *ClassDetails         `json:"class,omitempty"`
	Function      *FunctionDetails      `json:"function,omitempty"`
	Variable      *VariableDetails      `json:"variable,omitempty"`
	File          *FileDetails          `json:"file,omitempty"`
	FunctionGroup *FunctionGroupDetails `json:"function_group,omitempty"`

	// Dependencies holds hierarchical names of other modules this one
	// depends on. These are advisory edges: they participate in cycle
	// detection but not in containment.
	Dependencies []string `json:"dependencies,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ClassDetails holds class-specific fields.
type ClassDetails struct {
	Inherits   []string `json:"inherits,omitempty"`
	Implements []string `json:"implements,omitempty"`
}

// FunctionDetails holds function-specific fields.
type FunctionDetails struct {
	Parameters []Parameter `json:"parameters,omitempty"`
	ReturnType string      `json:"return_type,omitempty"`
	Async      bool        `json:"async,omitempty"`
}

// Parameter is a single function parameter.
type Parameter struct {
	Name     string `json:"name"`
	DataType string `json:"data_type,omitempty"`
	Default  string `json:"default,omitempty"`
}

// VariableDetails holds variable-specific fields.
type VariableDetails struct {
	DataType     string `json:"data_type,omitempty"`
	InitialValue string `json:"initial_value,omitempty"`
	Constant     bool   `json:"constant,omitempty"`
}

// FileDetails holds file-specific fields.
type FileDetails struct {
	Exports []string `json:"exports,omitempty"`
	Imports []string `json:"imports,omitempty"`
}

// FunctionGroupDetails holds function-group-specific fields.
type FunctionGroupDetails struct {
	Functions []string `json:"functions,omitempty"`
}

// Clone returns a deep copy of the module. The storage layer hands out
// clones so callers can never mutate the in-memory collection behind
// the engine's back.
func (m *Module) Clone() *Module {
	c := *m
	c.Dependencies = cloneStrings(m.Dependencies)
	if m.Class != nil {
		cc := *m.Class
		cc.Inherits = cloneStrings(m.Class.Inherits)
		cc.Implements = cloneStrings(m.Class.Implements)
		c.Class = &cc
	}
	if m.Function != nil {
		fc := *m.Function
		fc.Parameters = append([]Parameter(nil), m.Function.Parameters...)
		c.Function = &fc
	}
	if m.Variable != nil {
		vc := *m.Variable
		c.Variable = &vc
	}
	if m.File != nil {
		fc := *m.File
		fc.Exports = cloneStrings(m.File.Exports)
		fc.Imports = cloneStrings(m.File.Imports)
		c.File = &fc
	}
	if m.FunctionGroup != nil {
		gc := *m.FunctionGroup
		gc.Functions = cloneStrings(m.FunctionGroup.Functions)
		c.FunctionGroup = &gc
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// CollectionMetadata is written on every save.
type CollectionMetadata struct {
	Version      string    `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	TotalModules int       `json:"total_modules"`
}

// SchemaVersion is the current collection file schema version.
const SchemaVersion = "1.0"

// Collection is the full set of modules persisted to one storage file,
// keyed by module ID.
type Collection struct {
	Metadata CollectionMetadata `json:"metadata"`
	Modules  map[string]*Module `json:"modules"`
}

// BackupInfo describes one immutable point-in-time copy of a collection file.
type BackupInfo struct {
	ID         string    `json:"id"`
	Collection string    `json:"collection"`
	Path       string    `json:"path"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}
