package access

import (
	"sort"
	"strings"
)

// RouteRule requires one of Roles for paths under Prefix.
type RouteRule struct {
	Prefix string `yaml:"prefix"`
	Roles  []Role `yaml:"roles"`
}

// FlagRule gates paths under Prefix behind the feature flag Flag.
type FlagRule struct {
	Prefix string `yaml:"prefix"`
	Flag   string `yaml:"flag"`
}

// MatchPrefix reports whether path is prefix itself or lies beneath it.
func MatchPrefix(path, prefix string) bool {
	if prefix == "/" {
		return strings.HasPrefix(path, "/")
	}
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

// prefixTable resolves a path to the value of its longest matching prefix.
type prefixTable[V any] struct {
	prefixes []string
	values   []V
}

func newPrefixTable[V any](prefixes []string, values []V) prefixTable[V] {
	normalized := make([]string, len(prefixes))
	idx := make([]int, len(prefixes))
	for i := range idx {
		normalized[i] = normalizePrefix(prefixes[i])
		idx[i] = i
	}
	// Longest first, so the first match is the most specific one.
	sort.SliceStable(idx, func(a, b int) bool {
		return len(normalized[idx[a]]) > len(normalized[idx[b]])
	})

	t := prefixTable[V]{
		prefixes: make([]string, len(idx)),
		values:   make([]V, len(idx)),
	}
	for i, j := range idx {
		t.prefixes[i] = normalized[j]
		t.values[i] = values[j]
	}
	return t
}

func (t prefixTable[V]) lookup(path string) (V, bool) {
	for i, p := range t.prefixes {
		if MatchPrefix(path, p) {
			return t.values[i], true
		}
	}
	var zero V
	return zero, false
}

func normalizePrefix(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// RouteTable maps path prefixes to the roles allowed under them.
// It is immutable after construction and safe for concurrent use.
type RouteTable struct {
	table prefixTable[[]Role]
}

// NewRouteTable builds a route table from rules.
func NewRouteTable(rules []RouteRule) *RouteTable {
	prefixes := make([]string, len(rules))
	roles := make([][]Role, len(rules))
	for i, r := range rules {
		prefixes[i] = r.Prefix
		roles[i] = append([]Role(nil), r.Roles...)
	}
	return &RouteTable{table: newPrefixTable(prefixes, roles)}
}

// RequiredRoles returns the roles required for cleanPath. The boolean is
// false when no rule matches and the route is public.
func (t *RouteTable) RequiredRoles(cleanPath string) ([]Role, bool) {
	roles, ok := t.table.lookup(cleanPath)
	if !ok || len(roles) == 0 {
		return nil, false
	}
	return roles, true
}

// FlagTable maps path prefixes to feature flag keys.
type FlagTable struct {
	table prefixTable[string]
}

// NewFlagTable builds a flag table from rules.
func NewFlagTable(rules []FlagRule) *FlagTable {
	prefixes := make([]string, len(rules))
	flags := make([]string, len(rules))
	for i, r := range rules {
		prefixes[i] = r.Prefix
		flags[i] = r.Flag
	}
	return &FlagTable{table: newPrefixTable(prefixes, flags)}
}

// FlagFor returns the flag gating cleanPath, if any.
func (t *FlagTable) FlagFor(cleanPath string) (string, bool) {
	flag, ok := t.table.lookup(cleanPath)
	if !ok || flag == "" {
		return "", false
	}
	return flag, true
}
