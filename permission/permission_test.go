package permission

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestNormalize(t *testing.T) {
	got := Normalize([]string{" rbac:manage", "SKU:MANAGE", "", "rbac:MANAGE ", "  "})
	want := []string{"RBAC:MANAGE", "SKU:MANAGE"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
	if Normalize(nil) == nil {
		t.Fatal("expected non-nil result")
	}
}

func TestParseRole(t *testing.T) {
	r, err := ParseRole(" super_admin ")
	if err != nil || r != RoleSuperAdmin {
		t.Fatalf("expected SUPER_ADMIN, got %q err=%v", r, err)
	}
	if _, err := ParseRole("ROOT"); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	roles := NormalizeRoles([]string{"user", "ghost", "USER", "leader"})
	if len(roles) != 2 || roles[0] != RoleLeader || roles[1] != RoleUser {
		t.Fatalf("unexpected roles %v", roles)
	}
}

func TestEmptyRequirementAlwaysAllowed(t *testing.T) {
	m := DefaultMapping()
	for _, route := range []string{"/catalog", "/cart", "/unknown/page", ""} {
		if !HasRoutePermission(m, route, nil, nil) {
			t.Fatalf("expected %q to be allowed with no requirement", route)
		}
	}
	if !HasActionPermission(m, "no.such.action", nil, nil) {
		t.Fatal("expected unknown action to be allowed")
	}
}

func TestSuperAdminBypass(t *testing.T) {
	m := DefaultMapping()
	for route := range m.Routes {
		if !HasRoutePermission(m, route, []string{"super_admin"}, nil) {
			t.Fatalf("expected SUPER_ADMIN bypass on %s", route)
		}
	}
	for id := range m.Actions {
		if !HasActionPermission(m, id, []string{"USER", "SUPER_ADMIN"}, []string{"UNRELATED"}) {
			t.Fatalf("expected SUPER_ADMIN bypass on %s", id)
		}
	}
}

func TestPermissionIntersection(t *testing.T) {
	m := DefaultMapping()
	if HasRoutePermission(m, "/admin/rbac", []string{"ADMIN"}, []string{"SKU:MANAGE"}) {
		t.Fatal("expected /admin/rbac denied without RBAC:MANAGE")
	}
	if !HasRoutePermission(m, "/admin/rbac/", []string{"ADMIN"}, []string{"rbac:manage"}) {
		t.Fatal("expected /admin/rbac allowed with rbac:manage")
	}
	if !HasActionPermission(m, "admin.sku.delete", []string{"ADMIN"}, []string{"SKU:MANAGE"}) {
		t.Fatal("expected admin.sku.delete allowed")
	}
}

func TestRouteParamPatterns(t *testing.T) {
	m := Apply(GuardConfig{Routes: []RouteRule{
		{Path: "/applications/:id", Permissions: []string{"APPLICATION:READ"}},
		{Path: "/applications/:id/approve", Permissions: []string{"APPLICATION:APPROVE"}},
		{Path: "/applications/new", Permissions: []string{"APPLICATION:CREATE"}},
	}})

	if got := m.RouteRequirement("/applications/42"); len(got) != 1 || got[0] != "APPLICATION:READ" {
		t.Fatalf("unexpected requirement %v", got)
	}
	if got := m.RouteRequirement("/applications/new?tab=1"); len(got) != 1 || got[0] != "APPLICATION:CREATE" {
		t.Fatalf("exact path should win, got %v", got)
	}
	if got := m.RouteRequirement("/applications/42/approve"); len(got) != 1 || got[0] != "APPLICATION:APPROVE" {
		t.Fatalf("unexpected requirement %v", got)
	}
	if got := m.RouteRequirement("/applications"); got != nil {
		t.Fatalf("expected no requirement, got %v", got)
	}
}

func TestApplyEmptyRestoresDefaults(t *testing.T) {
	if !Apply(GuardConfig{}).Equal(DefaultMapping()) {
		t.Fatal("expected defaults for empty config")
	}
}

func TestApplyIsPure(t *testing.T) {
	before := DefaultMapping()
	m := Apply(GuardConfig{Actions: []ActionRule{
		{ID: "copilot.query", Permissions: []string{"b", "a"}},
		{ID: "copilot.query", Permissions: []string{"a", "c"}},
		{ID: " ", Permissions: []string{"x"}},
	}})

	got := m.ActionRequirement("copilot.query")
	if strings.Join(got, ",") != "A,B,C" {
		t.Fatalf("expected merged normalized permissions, got %v", got)
	}
	if len(m.Actions) != 1 || len(m.Routes) != 0 {
		t.Fatalf("unexpected mapping %+v", m)
	}
	if !DefaultMapping().Equal(before) {
		t.Fatal("Apply must not change the defaults")
	}
}

func TestResolverApplyReset(t *testing.T) {
	r := NewResolver()
	if !r.IsDefault() {
		t.Fatal("expected defaults on construction")
	}

	r.Apply(GuardConfig{Routes: []RouteRule{{Path: "/catalog", Permissions: []string{"SKU:VIEW"}}}})
	if r.HasRoute("/catalog", []string{"USER"}, nil) {
		t.Fatal("expected /catalog gated after apply")
	}
	if !r.HasRoute("/catalog", []string{"USER"}, []string{"SKU:VIEW"}) {
		t.Fatal("expected /catalog allowed with SKU:VIEW")
	}

	r.Reset()
	if !r.IsDefault() {
		t.Fatal("expected defaults after reset")
	}
	if !r.HasRoute("/catalog", []string{"USER"}, nil) {
		t.Fatal("expected /catalog open after reset")
	}
}

func TestResolverConcurrentSwap(t *testing.T) {
	r := NewResolver()
	cfg := GuardConfig{Actions: []ActionRule{{ID: "x", Permissions: []string{"P"}}}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				r.Apply(cfg)
				r.Reset()
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = r.HasAction("x", nil, []string{"P"})
			}
		}()
	}
	wg.Wait()
}

func TestLoadGuardConfigYAML(t *testing.T) {
	doc := `
routes:
  - path: /admin/rbac
    permissions: [rbac:manage]
actions:
  - id: admin.sku.delete
    permissions: [SKU:MANAGE, sku:manage]
`
	cfg, err := LoadGuardConfigYAML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	m := Apply(cfg)
	if got := m.RouteRequirement("/admin/rbac"); len(got) != 1 || got[0] != "RBAC:MANAGE" {
		t.Fatalf("unexpected route requirement %v", got)
	}
	if got := m.ActionRequirement("admin.sku.delete"); len(got) != 1 {
		t.Fatalf("unexpected action requirement %v", got)
	}

	if cfg, err := LoadGuardConfigYAML(strings.NewReader("")); err != nil || !cfg.Empty() {
		t.Fatalf("expected empty config, got %+v err=%v", cfg, err)
	}
	if _, err := LoadGuardConfigYAML(strings.NewReader("routes: [unknown: 1")); !errors.Is(err, ErrInvalidGuardConfig) {
		t.Fatalf("expected ErrInvalidGuardConfig, got %v", err)
	}
}

func TestResolverCustomDefaults(t *testing.T) {
	defaults := Apply(GuardConfig{Routes: []RouteRule{{Path: "/analytics", Permissions: []string{"REPORT:EXPORT"}}}})
	r := NewResolverWithDefaults(defaults)
	if !r.IsDefault() {
		t.Fatal("expected custom defaults on construction")
	}
	if r.HasRoute("/analytics", []string{"LEADER"}, []string{"REPORT:VIEW"}) {
		t.Fatal("expected custom default requirement to apply")
	}

	r.Apply(GuardConfig{Actions: []ActionRule{{ID: "copilot.query", Permissions: []string{"REPORT:VIEW"}}}})
	if !r.HasRoute("/analytics", []string{"LEADER"}, nil) {
		t.Fatal("expected server config to replace the defaults")
	}

	r.Apply(GuardConfig{})
	if !r.HasRoute("/analytics", nil, []string{"REPORT:EXPORT"}) || !r.IsDefault() {
		t.Fatal("expected empty config to restore the custom defaults")
	}
}
