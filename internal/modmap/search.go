package modmap

import (
	"sort"
	"strings"

	"modmap/internal/model"
)

// SearchCriteria selects modules by case-insensitive substring match.
// Empty fields match everything; Query matches across all searchable
// fields at once. Limit 0 means no limit.
type SearchCriteria struct {
	Query          string
	Name           string
	Type           model.ModuleType
	FilePath       string
	Description    string
	Parent         string
	AccessModifier model.AccessModifier
	Limit          int
	Offset         int
}

// SearchResult is one page of matches plus the total match count before
// pagination.
type SearchResult struct {
	Modules []*model.Module
	Total   int
}

// Search filters the collection and returns a deterministically ordered
// page: matches sorted by creation time, ties broken by hierarchical
// name.
func (s *ModuleService) Search(criteria SearchCriteria) (*SearchResult, error) {
	modules, err := s.storage.Load(s.collection)
	if err != nil {
		return nil, err
	}

	var matches []*model.Module
	for _, m := range modules {
		if matchesCriteria(m, criteria) {
			matches = append(matches, m)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		if !matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].CreatedAt.Before(matches[j].CreatedAt)
		}
		return matches[i].HierarchicalName < matches[j].HierarchicalName
	})

	total := len(matches)
	if criteria.Offset > 0 {
		if criteria.Offset >= total {
			matches = nil
		} else {
			matches = matches[criteria.Offset:]
		}
	}
	if criteria.Limit > 0 && len(matches) > criteria.Limit {
		matches = matches[:criteria.Limit]
	}

	page := make([]*model.Module, len(matches))
	for i, m := range matches {
		page[i] = m.Clone()
	}
	return &SearchResult{Modules: page, Total: total}, nil
}

func matchesCriteria(m *model.Module, c SearchCriteria) bool {
	if c.Name != "" && !containsFold(m.Name, c.Name) {
		return false
	}
	if c.Type != "" && m.Type != c.Type {
		return false
	}
	if c.FilePath != "" && !containsFold(m.FilePath, c.FilePath) {
		return false
	}
	if c.Description != "" && !containsFold(m.Description, c.Description) {
		return false
	}
	if c.Parent != "" && !containsFold(m.ParentModule, c.Parent) {
		return false
	}
	if c.AccessModifier != "" && m.AccessModifier != c.AccessModifier {
		return false
	}
	if c.Query != "" {
		q := c.Query
		if !containsFold(m.Name, q) &&
			!containsFold(m.HierarchicalName, q) &&
			!containsFold(string(m.Type), q) &&
			!containsFold(m.FilePath, q) &&
			!containsFold(m.Description, q) &&
			!containsFold(m.ParentModule, q) &&
			!containsFold(string(m.AccessModifier), q) {
			return false
		}
	}
	return true
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
