package access

import (
	"os"
	"path/filepath"
	"testing"
)

func TestMatchPrefix(t *testing.T) {
	tests := []struct {
		path   string
		prefix string
		want   bool
	}{
		{"/admin", "/admin", true},
		{"/admin/users", "/admin", true},
		{"/administrator", "/admin", false},
		{"/adm", "/admin", false},
		{"/", "/", true},
		{"/anything", "/", true},
	}

	for _, tt := range tests {
		if got := MatchPrefix(tt.path, tt.prefix); got != tt.want {
			t.Errorf("MatchPrefix(%q, %q) = %v, want %v", tt.path, tt.prefix, got, tt.want)
		}
	}
}

func TestRouteTable_LongestPrefixWins(t *testing.T) {
	table := NewRouteTable([]RouteRule{
		{Prefix: "/admin", Roles: []Role{RoleAdmin}},
		{Prefix: "/admin/users", Roles: []Role{RoleAdmin, RoleModerator}},
	})
	h := NewHierarchy(nil)

	roles, ok := table.RequiredRoles("/admin/users")
	if !ok {
		t.Fatal("RequiredRoles(/admin/users) found no rule")
	}
	if !h.HasRole(RoleModerator, roles) {
		t.Error("MODERATOR should be allowed at /admin/users")
	}

	roles, ok = table.RequiredRoles("/admin")
	if !ok {
		t.Fatal("RequiredRoles(/admin) found no rule")
	}
	if h.HasRole(RoleModerator, roles) {
		t.Error("MODERATOR should be denied at /admin")
	}

	roles, _ = table.RequiredRoles("/admin/users/42/edit")
	if len(roles) != 2 {
		t.Errorf("RequiredRoles(/admin/users/42/edit) = %v, want the /admin/users rule", roles)
	}
}

func TestRouteTable_OrderIndependent(t *testing.T) {
	table := NewRouteTable([]RouteRule{
		{Prefix: "/admin/users", Roles: []Role{RoleModerator}},
		{Prefix: "/admin", Roles: []Role{RoleAdmin}},
	})

	roles, _ := table.RequiredRoles("/admin/users")
	if len(roles) != 1 || roles[0] != RoleModerator {
		t.Errorf("RequiredRoles(/admin/users) = %v, want [MODERATOR]", roles)
	}
}

func TestRouteTable_LongestPrefixAfterNormalizing(t *testing.T) {
	table := NewRouteTable([]RouteRule{
		{Prefix: "  /admin///   ", Roles: []Role{RoleAdmin}},
		{Prefix: "admin/users", Roles: []Role{RoleModerator}},
	})

	roles, _ := table.RequiredRoles("/admin/users/42")
	if len(roles) != 1 || roles[0] != RoleModerator {
		t.Errorf("RequiredRoles(/admin/users/42) = %v, want [MODERATOR]", roles)
	}
	roles, _ = table.RequiredRoles("/admin/settings")
	if len(roles) != 1 || roles[0] != RoleAdmin {
		t.Errorf("RequiredRoles(/admin/settings) = %v, want [ADMIN]", roles)
	}

	flags := NewFlagTable([]FlagRule{
		{Prefix: "/client/////", Flag: "client-area"},
		{Prefix: "client/chat", Flag: "support-chat"},
	})
	if got, _ := flags.FlagFor("/client/chat"); got != "support-chat" {
		t.Errorf("FlagFor(/client/chat) = %q, want %q", got, "support-chat")
	}
}

func TestRouteTable_Miss(t *testing.T) {
	table := NewRouteTable([]RouteRule{
		{Prefix: "/admin/", Roles: []Role{RoleAdmin}},
		{Prefix: "/public", Roles: nil},
	})

	if _, ok := table.RequiredRoles("/about"); ok {
		t.Error("RequiredRoles(/about) should be public")
	}
	if _, ok := table.RequiredRoles("/public/page"); ok {
		t.Error("rule without roles should be public")
	}
	if _, ok := table.RequiredRoles("/admin"); !ok {
		t.Error("trailing slash in prefix should be normalized")
	}
}

func TestFlagTable(t *testing.T) {
	table := NewFlagTable([]FlagRule{
		{Prefix: "/admin", Flag: "admin-panel"},
		{Prefix: "/admin/chat", Flag: "support-chat"},
	})

	tests := []struct {
		path     string
		wantFlag string
		wantOK   bool
	}{
		{"/admin/chat", "support-chat", true},
		{"/admin/chat/room/1", "support-chat", true},
		{"/admin/users", "admin-panel", true},
		{"/client", "", false},
	}

	for _, tt := range tests {
		flag, ok := table.FlagFor(tt.path)
		if flag != tt.wantFlag || ok != tt.wantOK {
			t.Errorf("FlagFor(%q) = (%q, %v), want (%q, %v)", tt.path, flag, ok, tt.wantFlag, tt.wantOK)
		}
	}
}

func TestHierarchy_HasRole(t *testing.T) {
	h := DefaultHierarchy()

	tests := []struct {
		name     string
		held     Role
		required []Role
		want     bool
	}{
		{"exact match", RoleClient, []Role{RoleClient}, true},
		{"member of set", RoleLead, []Role{RoleClient, RoleLead}, true},
		{"admin satisfies anything", RoleAdmin, []Role{RoleEmployee}, true},
		{"client denied admin", RoleClient, []Role{RoleAdmin}, false},
		{"moderator is flat", RoleModerator, []Role{RoleEmployee}, false},
		{"empty role", "", []Role{RoleClient}, false},
		{"empty requirement", RoleClient, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.HasRole(tt.held, tt.required); got != tt.want {
				t.Errorf("HasRole(%s, %v) = %v, want %v", tt.held, tt.required, got, tt.want)
			}
		})
	}
}

func TestHierarchy_NotTransitive(t *testing.T) {
	h := NewHierarchy(map[Role][]Role{
		RoleAdmin:     {RoleModerator},
		RoleModerator: {RoleEmployee},
	})

	if h.HasRole(RoleAdmin, []Role{RoleEmployee}) {
		t.Error("ADMIN should not inherit EMPLOYEE through MODERATOR")
	}
	if !h.HasRole(RoleModerator, []Role{RoleEmployee}) {
		t.Error("MODERATOR should satisfy EMPLOYEE")
	}
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in     string
		want   Role
		wantOK bool
	}{
		{"ADMIN", RoleAdmin, true},
		{"employee", RoleEmployee, true},
		{" lead ", RoleLead, true},
		{"SUPERUSER", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseRole(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestRole_DashboardPath(t *testing.T) {
	tests := map[Role]string{
		RoleClient:    "/client/dashboard",
		RoleLead:      "/client/dashboard",
		RoleUser:      "/client/dashboard",
		RoleEmployee:  "/employee/dashboard",
		RoleAdmin:     "/admin/dashboard",
		RoleModerator: "/admin/dashboard",
	}

	for role, want := range tests {
		if got := role.DashboardPath(); got != want {
			t.Errorf("%s.DashboardPath() = %q, want %q", role, got, want)
		}
	}
}

func TestEvaluatePending(t *testing.T) {
	tests := []struct {
		name            string
		status          AccountStatus
		emailVerified   bool
		profileComplete bool
		want            PendingState
	}{
		{"active ignores flags", StatusActive, false, false, PendingComplete},
		{"pending unverified", StatusPending, false, true, PendingEmailUnverified},
		{"pending unverified and incomplete", StatusPending, false, false, PendingEmailUnverified},
		{"pending incomplete profile", StatusPending, true, false, PendingProfileIncomplete},
		{"pending complete", StatusPending, true, true, PendingComplete},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluatePending(tt.status, tt.emailVerified, tt.profileComplete); got != tt.want {
				t.Errorf("EvaluatePending() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadRules_Defaults(t *testing.T) {
	rules, err := LoadRules("")
	if err != nil {
		t.Fatalf("LoadRules() failed: %v", err)
	}
	if !rules.IsAuthPage("/auth/login") {
		t.Error("/auth/login should be an auth page")
	}
	if rules.IsAuthPage("/auth/verify-email") {
		t.Error("/auth/verify-email should not be an auth page")
	}
	if _, ok := rules.RouteTable().RequiredRoles("/dashboard"); !ok {
		t.Error("/dashboard should be protected by default")
	}
}

func TestLoadRules_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "access.yaml")
	content := `
routes:
  - prefix: /admin
    roles: [ADMIN]
  - prefix: /reports
    roles: [EMPLOYEE, MODERATOR]
hierarchy:
  MODERATOR: [EMPLOYEE]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules() failed: %v", err)
	}

	if len(rules.Routes) != 2 {
		t.Errorf("len(Routes) = %d, want 2", len(rules.Routes))
	}
	if len(rules.FeatureFlags) == 0 {
		t.Error("FeatureFlags should keep defaults when omitted")
	}
	if !rules.RoleHierarchy().HasRole(RoleModerator, []Role{RoleEmployee}) {
		t.Error("hierarchy from file not applied")
	}
	if rules.RoleHierarchy().HasRole(RoleAdmin, []Role{RoleEmployee}) {
		t.Error("file hierarchy should replace the default one")
	}
}

func TestLoadRules_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown route role", "routes:\n  - prefix: /x\n    roles: [ROOT]\n"},
		{"empty prefix", "routes:\n  - prefix: \"\"\n    roles: [ADMIN]\n"},
		{"flag without key", "feature_flags:\n  - prefix: /x\n"},
		{"unknown hierarchy role", "hierarchy:\n  ROOT: [ADMIN]\n"},
		{"malformed yaml", "routes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "access.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("WriteFile() failed: %v", err)
			}
			if _, err := LoadRules(path); err == nil {
				t.Error("LoadRules() should fail")
			}
		})
	}
}

func TestLoadRules_MissingFile(t *testing.T) {
	if _, err := LoadRules(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadRules() should fail for a missing file")
	}
}

func TestLoadRules_ExampleFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join("..", "..", "configs", "access.example.yaml"))
	if err != nil {
		t.Fatalf("LoadRules() failed: %v", err)
	}

	roles, ok := rules.RouteTable().RequiredRoles("/admin/dashboard/stats")
	if !ok || len(roles) != 2 {
		t.Errorf("RequiredRoles(/admin/dashboard/stats) = %v, %v, want ADMIN and MODERATOR", roles, ok)
	}
	if !rules.RoleHierarchy().HasRole(RoleAdmin, []Role{RoleLead}) {
		t.Error("HasRole(ADMIN, [LEAD]) = false, want true")
	}
	if flag, ok := rules.FlagTable().FlagFor("/client/chat"); !ok || flag != "support-chat" {
		t.Errorf("FlagFor(/client/chat) = %q, %v, want support-chat", flag, ok)
	}
	if !rules.IsAuthPage("/auth/reset-password") {
		t.Error("IsAuthPage(/auth/reset-password) = false, want true")
	}
}
