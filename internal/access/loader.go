package access

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rules is the static access configuration consumed by the gate.
// All of it is loaded once at startup and never mutated.
type Rules struct {
	Routes       []RouteRule     `yaml:"routes"`
	FeatureFlags []FlagRule      `yaml:"feature_flags"`
	Hierarchy    map[Role][]Role `yaml:"hierarchy"`
	AuthPages    []string        `yaml:"auth_pages"`
}

// DefaultRules returns the built-in rules used when no file is configured.
func DefaultRules() *Rules {
	return &Rules{
		Routes: []RouteRule{
			{Prefix: "/admin", Roles: []Role{RoleAdmin}},
			{Prefix: "/admin/dashboard", Roles: []Role{RoleAdmin, RoleModerator}},
			{Prefix: "/admin/chat", Roles: []Role{RoleAdmin, RoleModerator}},
			{Prefix: "/admin/requests", Roles: []Role{RoleAdmin, RoleModerator}},
			{Prefix: "/employee", Roles: []Role{RoleEmployee}},
			{Prefix: "/client", Roles: []Role{RoleClient, RoleLead, RoleUser}},
			{Prefix: "/dashboard", Roles: AllRoles},
			{Prefix: "/profile", Roles: AllRoles},
			{Prefix: "/notifications", Roles: AllRoles},
		},
		FeatureFlags: []FlagRule{
			{Prefix: "/admin/chat", Flag: "support-chat"},
			{Prefix: "/employee/chat", Flag: "support-chat"},
			{Prefix: "/client/chat", Flag: "support-chat"},
		},
		Hierarchy: map[Role][]Role{
			RoleAdmin: AllRoles,
		},
		AuthPages: []string{
			"/auth/login",
			"/auth/register",
			"/auth/forgot-password",
			"/auth/reset-password",
			"/unauthorized",
		},
	}
}

// LoadRules reads rules from a YAML file. An empty path yields DefaultRules.
// Sections missing from the file keep their defaults.
func LoadRules(path string) (*Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read access rules: %w", err)
	}

	var file Rules
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse access rules: %w", err)
	}

	if file.Routes != nil {
		rules.Routes = file.Routes
	}
	if file.FeatureFlags != nil {
		rules.FeatureFlags = file.FeatureFlags
	}
	if file.Hierarchy != nil {
		rules.Hierarchy = file.Hierarchy
	}
	if file.AuthPages != nil {
		rules.AuthPages = file.AuthPages
	}

	if err := rules.Validate(); err != nil {
		return nil, fmt.Errorf("invalid access rules in %s: %w", path, err)
	}
	return rules, nil
}

// Validate checks that every rule names known roles and non-empty prefixes.
func (r *Rules) Validate() error {
	for i, route := range r.Routes {
		if strings.TrimSpace(route.Prefix) == "" {
			return fmt.Errorf("routes[%d]: prefix is required", i)
		}
		for _, role := range route.Roles {
			if !role.Valid() {
				return fmt.Errorf("routes[%d] %s: unknown role %q", i, route.Prefix, role)
			}
		}
	}
	for i, flag := range r.FeatureFlags {
		if strings.TrimSpace(flag.Prefix) == "" {
			return fmt.Errorf("feature_flags[%d]: prefix is required", i)
		}
		if strings.TrimSpace(flag.Flag) == "" {
			return fmt.Errorf("feature_flags[%d] %s: flag is required", i, flag.Prefix)
		}
	}
	for held, roles := range r.Hierarchy {
		if !held.Valid() {
			return fmt.Errorf("hierarchy: unknown role %q", held)
		}
		for _, role := range roles {
			if !role.Valid() {
				return fmt.Errorf("hierarchy %s: unknown role %q", held, role)
			}
		}
	}
	return nil
}

// RouteTable builds the route authorization table.
func (r *Rules) RouteTable() *RouteTable {
	return NewRouteTable(r.Routes)
}

// FlagTable builds the feature flag table.
func (r *Rules) FlagTable() *FlagTable {
	return NewFlagTable(r.FeatureFlags)
}

// RoleHierarchy builds the role hierarchy.
func (r *Rules) RoleHierarchy() *Hierarchy {
	return NewHierarchy(r.Hierarchy)
}

// IsAuthPage reports whether cleanPath is one of the configured auth pages.
func (r *Rules) IsAuthPage(cleanPath string) bool {
	for _, p := range r.AuthPages {
		if MatchPrefix(cleanPath, normalizePrefix(p)) {
			return true
		}
	}
	return false
}
