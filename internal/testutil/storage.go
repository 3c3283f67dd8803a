package testutil

import (
	"modmap/internal/model"
	"modmap/internal/modmap"
)

// MemStorage is an in-memory modmap.Storage for service tests. It clones
// on Load the way the real engine does, so tests exercise the same
// isolation guarantees.
type MemStorage struct {
	Modules map[string]*model.Module

	Saves   int
	Backups int

	LoadErr   error
	SaveErr   error
	BackupErr error
}

var _ modmap.Storage = (*MemStorage)(nil)

func NewMemStorage() *MemStorage {
	return &MemStorage{Modules: make(map[string]*model.Module)}
}

func (s *MemStorage) Initialize() error { return nil }

func (s *MemStorage) Load(collection string) (map[string]*model.Module, error) {
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	out := make(map[string]*model.Module, len(s.Modules))
	for id, m := range s.Modules {
		out[id] = m.Clone()
	}
	return out, nil
}

func (s *MemStorage) Save(collection string, modules map[string]*model.Module) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.Saves++
	s.Modules = modules
	return nil
}

func (s *MemStorage) Backup(collection string) (*model.BackupInfo, error) {
	if s.BackupErr != nil {
		return nil, s.BackupErr
	}
	s.Backups++
	return &model.BackupInfo{Collection: collection}, nil
}
