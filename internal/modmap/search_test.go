package modmap_test

import (
	"testing"
	"time"

	"modmap/internal/model"
	"modmap/internal/modmap"
	"modmap/internal/testutil"
)

func seedSearchService(t *testing.T) *modmap.ModuleService {
	t.Helper()
	store := testutil.NewMemStorage()
	clock := testutil.FixedClock()
	resolver := modmap.NewResolver(0)
	checker := modmap.NewChecker(resolver, false)
	svc := modmap.NewModuleService(store, resolver, checker, modmap.NewNopLogger(),
		clock, testutil.NewStubIDGenerator(), "modules", false)

	inputs := []modmap.AddModuleInput{
		{Name: "auth", Type: model.TypeFile, FilePath: "src/auth.py", Description: "authentication entry point"},
		{Name: "UserService", Type: model.TypeClass, Parent: "auth", AccessModifier: model.AccessPublic},
		{Name: "createUser", Type: model.TypeFunction, Parent: "auth.UserService", Description: "registers a new user"},
		{Name: "deleteUser", Type: model.TypeFunction, Parent: "auth.UserService"},
		{Name: "billing", Type: model.TypeFile, FilePath: "src/billing.py"},
	}
	for _, in := range inputs {
		if _, err := svc.Add(in); err != nil {
			t.Fatalf("seed Add(%s) error = %v", in.Name, err)
		}
		clock.Advance(time.Second)
	}
	return svc
}

func TestModuleService_Search(t *testing.T) {
	t.Run("empty criteria matches everything in creation order", func(t *testing.T) {
		svc := seedSearchService(t)
		result, err := svc.Search(modmap.SearchCriteria{})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if result.Total != 5 || len(result.Modules) != 5 {
			t.Fatalf("Total = %d, page = %d, want 5/5", result.Total, len(result.Modules))
		}
		if result.Modules[0].HierarchicalName != "auth" || result.Modules[4].HierarchicalName != "billing" {
			t.Errorf("order = [%s .. %s]", result.Modules[0].HierarchicalName, result.Modules[4].HierarchicalName)
		}
	})

	t.Run("filters by type", func(t *testing.T) {
		svc := seedSearchService(t)
		result, err := svc.Search(modmap.SearchCriteria{Type: model.TypeFunction})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if result.Total != 2 {
			t.Errorf("Total = %d, want 2", result.Total)
		}
	})

	t.Run("query is case-insensitive across fields", func(t *testing.T) {
		svc := seedSearchService(t)
		result, err := svc.Search(modmap.SearchCriteria{Query: "USERSERVICE"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		// matches the class itself and both functions under it (their
		// hierarchical names and parents contain the query)
		if result.Total != 3 {
			t.Errorf("Total = %d, want 3", result.Total)
		}
	})

	t.Run("combines filters", func(t *testing.T) {
		svc := seedSearchService(t)
		result, err := svc.Search(modmap.SearchCriteria{
			Type:        model.TypeFunction,
			Description: "registers",
		})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if result.Total != 1 || result.Modules[0].Name != "createUser" {
			t.Errorf("result = %+v", result)
		}
	})

	t.Run("paginates with a stable total", func(t *testing.T) {
		svc := seedSearchService(t)
		page, err := svc.Search(modmap.SearchCriteria{Limit: 2, Offset: 2})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if page.Total != 5 {
			t.Errorf("Total = %d, want the pre-pagination count", page.Total)
		}
		if len(page.Modules) != 2 || page.Modules[0].Name != "createUser" {
			t.Errorf("page = %v", names(page.Modules))
		}
	})

	t.Run("offset past the end is an empty page, not an error", func(t *testing.T) {
		svc := seedSearchService(t)
		page, err := svc.Search(modmap.SearchCriteria{Offset: 50})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(page.Modules) != 0 || page.Total != 5 {
			t.Errorf("page = %d modules, total = %d", len(page.Modules), page.Total)
		}
	})

	t.Run("no match is an empty result", func(t *testing.T) {
		svc := seedSearchService(t)
		page, err := svc.Search(modmap.SearchCriteria{Query: "nonexistent"})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if page.Total != 0 {
			t.Errorf("Total = %d, want 0", page.Total)
		}
	})
}

func names(modules []*model.Module) []string {
	out := make([]string, len(modules))
	for i, m := range modules {
		out[i] = m.HierarchicalName
	}
	return out
}
