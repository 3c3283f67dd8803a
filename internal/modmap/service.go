package modmap

import (
	"modmap/internal/model"
)

// ModuleService is the façade the REST and tool-adapter layers consume.
// It delegates naming to the Resolver, persistence to Storage, and
// consistency checks to the Checker. One service instance manages one
// named collection.
type ModuleService struct {
	storage    Storage
	resolver   *Resolver
	checker    *Checker
	logger     Logger
	clock      Clock
	idgen      IDGenerator
	collection string
	strict     bool
}

// NewModuleService creates a ModuleService with the provided dependencies.
func NewModuleService(storage Storage, resolver *Resolver, checker *Checker, logger Logger, clock Clock, idgen IDGenerator, collection string, strict bool) *ModuleService {
	return &ModuleService{
		storage:    storage,
		resolver:   resolver,
		checker:    checker,
		logger:     logger,
		clock:      clock,
		idgen:      idgen,
		collection: collection,
		strict:     strict,
	}
}

// Collection returns the collection name this service manages.
func (s *ModuleService) Collection() string { return s.collection }

// AddModuleInput carries the caller-supplied fields for Add. The
// hierarchical name, ID and timestamps are computed server-side.
type AddModuleInput struct {
	Name           string
	Type           model.ModuleType
	Parent         string // hierarchical name of the parent, empty for a root
	FilePath       string
	Description    string
	AccessModifier model.AccessModifier
	Dependencies   []string

	Class         *model.ClassDetails
	Function      *model.FunctionDetails
	Variable      *model.VariableDetails
	File          *model.FileDetails
	FunctionGroup *model.FunctionGroupDetails
}

// Add validates, names and persists a new module.
func (s *ModuleService) Add(in AddModuleInput) (*model.Module, error) {
	if !s.resolver.ValidName(in.Name) {
		return nil, NewError(KindValidation, "invalid module name %q", in.Name)
	}
	if !in.Type.Valid() {
		return nil, NewError(KindValidation, "unknown module type %q", in.Type)
	}
	if in.AccessModifier != "" && !in.AccessModifier.Valid() {
		return nil, NewError(KindValidation, "unknown access modifier %q", in.AccessModifier)
	}

	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, err
	}
	byName := indexByName(modules)

	if in.Parent != "" {
		if _, ok := byName[in.Parent]; !ok {
			return nil, NewError(KindNotFound, "parent module %q not found", in.Parent)
		}
	}

	hname := s.resolver.HierarchicalName(in.Name, in.Parent)
	if !s.resolver.ValidHierarchicalName(hname) {
		return nil, NewError(KindValidation,
			"hierarchical name %q exceeds the nesting bound of %d", hname, s.resolver.MaxDepth())
	}
	if _, ok := byName[hname]; ok {
		return nil, NewError(KindDuplicate, "module %q already exists", hname)
	}

	if err := s.checkDependencies(byName, hname, in.Dependencies); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	m := &model.Module{
		ID:               s.idgen.New(),
		HierarchicalName: hname,
		Name:             in.Name,
		Type:             in.Type,
		ParentModule:     in.Parent,
		FilePath:         in.FilePath,
		Description:      in.Description,
		AccessModifier:   in.AccessModifier,
		Dependencies:     in.Dependencies,
		Class:            in.Class,
		Function:         in.Function,
		Variable:         in.Variable,
		File:             in.File,
		FunctionGroup:    in.FunctionGroup,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.checker.ValidateModule(m); err != nil {
		return nil, err
	}
	if cy, bad := s.checker.WouldCycle(modules, m); bad {
		return nil, NewError(KindCircular, "adding %q closes a cycle: %s", hname, cy)
	}

	modules[m.ID] = m
	if err := s.storage.Save(s.collection, modules); err != nil {
		return nil, err
	}

	s.logger.Info("module added", "collection", s.collection, "module", hname, "type", string(in.Type))
	return m.Clone(), nil
}

// ModulePatch carries the updatable fields for Update. Nil pointers
// leave the field untouched. ID, type, name, parent and therefore the
// hierarchical name are immutable after creation.
type ModulePatch struct {
	FilePath       *string
	Description    *string
	AccessModifier *model.AccessModifier
	Dependencies   *[]string

	Class         *model.ClassDetails
	Function      *model.FunctionDetails
	Variable      *model.VariableDetails
	File          *model.FileDetails
	FunctionGroup *model.FunctionGroupDetails
}

// Update merges a patch into the named module and persists the result.
func (s *ModuleService) Update(hname string, patch ModulePatch) (*model.Module, error) {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, err
	}
	byName := indexByName(modules)
	m, ok := byName[hname]
	if !ok {
		return nil, NewError(KindNotFound, "module %q not found", hname)
	}

	if patch.AccessModifier != nil && !patch.AccessModifier.Valid() {
		return nil, NewError(KindValidation, "unknown access modifier %q", *patch.AccessModifier)
	}
	if patch.Dependencies != nil {
		if err := s.checkDependencies(byName, hname, *patch.Dependencies); err != nil {
			return nil, err
		}
	}

	updated := m.Clone()
	if patch.FilePath != nil {
		updated.FilePath = *patch.FilePath
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.AccessModifier != nil {
		updated.AccessModifier = *patch.AccessModifier
	}
	if patch.Dependencies != nil {
		updated.Dependencies = append([]string(nil), (*patch.Dependencies)...)
	}
	if patch.Class != nil {
		updated.Class = patch.Class
	}
	if patch.Function != nil {
		updated.Function = patch.Function
	}
	if patch.Variable != nil {
		updated.Variable = patch.Variable
	}
	if patch.File != nil {
		updated.File = patch.File
	}
	if patch.FunctionGroup != nil {
		updated.FunctionGroup = patch.FunctionGroup
	}
	updated.UpdatedAt = s.clock.Now().UTC()

	if err := s.checker.ValidateModule(updated); err != nil {
		return nil, err
	}
	if patch.Dependencies != nil {
		if cy, bad := s.checker.WouldCycle(modules, updated); bad {
			return nil, NewError(KindCircular, "updating %q closes a cycle: %s", hname, cy)
		}
	}

	modules[updated.ID] = updated
	if err := s.storage.Save(s.collection, modules); err != nil {
		return nil, err
	}

	s.logger.Info("module updated", "collection", s.collection, "module", hname)
	return updated.Clone(), nil
}

// Delete removes the named module. Modules with children are rejected
// with ErrHasChildren; there is no cascading delete.
func (s *ModuleService) Delete(hname string) error {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return err
	}
	byName := indexByName(modules)
	m, ok := byName[hname]
	if !ok {
		return NewError(KindNotFound, "module %q not found", hname)
	}

	var children []string
	for _, other := range modules {
		if other.ParentModule == hname {
			children = append(children, other.HierarchicalName)
		}
	}
	if len(children) > 0 {
		return NewError(KindHasChildren,
			"module %q has %d child module(s); delete them first", hname, len(children))
	}

	delete(modules, m.ID)
	if err := s.storage.Save(s.collection, modules); err != nil {
		return err
	}

	s.logger.Info("module deleted", "collection", s.collection, "module", hname)
	return nil
}

// Get returns the named module.
func (s *ModuleService) Get(hname string) (*model.Module, error) {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, err
	}
	for _, m := range modules {
		if m.HierarchicalName == hname {
			return m.Clone(), nil
		}
	}
	return nil, NewError(KindNotFound, "module %q not found", hname)
}

// CheckGraph runs the reference and cycle passes over the live
// collection and returns the combined report.
func (s *ModuleService) CheckGraph() (*Report, []Cycle, error) {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, nil, err
	}
	report := s.checker.CheckReferences(modules)
	cycles := s.checker.DetectCycles(modules)
	for _, cy := range cycles {
		report.errorf("cycle: %s", cy)
	}
	return report, cycles, nil
}

// Repair runs the explicit two-phase auto-repair: detect issues, snapshot
// the pre-repair state, apply the fixable subset, and persist. With
// nothing fixable the collection is left untouched.
func (s *ModuleService) Repair() ([]Issue, *RepairReport, error) {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, nil, err
	}

	issues := s.checker.DetectIssues(modules)
	fixable := 0
	for _, issue := range issues {
		if issue.Fixable() {
			fixable++
		}
	}
	if fixable == 0 {
		return issues, &RepairReport{Skipped: issues}, nil
	}

	// Snapshot before mutating anything.
	if _, err := s.storage.Backup(s.collection); err != nil {
		return issues, nil, WrapError(KindWrite, err, "pre-repair snapshot failed")
	}

	report := s.checker.ApplyFixes(modules, issues)
	if err := s.storage.Save(s.collection, modules); err != nil {
		return issues, report, err
	}

	s.logger.Info("auto-repair applied",
		"collection", s.collection,
		"fixed", len(report.Fixed),
		"skipped", len(report.Skipped))
	return issues, report, nil
}

// checkDependencies validates dependency targets. A self-dependency is
// always rejected; a missing target is an error in strict mode and a
// logged warning otherwise (dependencies are advisory edges).
func (s *ModuleService) checkDependencies(byName map[string]*model.Module, self string, deps []string) error {
	for _, dep := range deps {
		if dep == self {
			return NewError(KindCircular, "module %q cannot depend on itself", self)
		}
		if !s.resolver.ValidHierarchicalName(dep) {
			return NewError(KindValidation, "invalid dependency name %q", dep)
		}
		if _, ok := byName[dep]; !ok {
			if s.strict {
				return NewError(KindNotFound, "dependency %q not found", dep)
			}
			s.logger.Warn("dependency target missing", "module", self, "dependency", dep)
		}
	}
	return nil
}
