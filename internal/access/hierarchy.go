package access

// Hierarchy maps a held role to the additional roles it satisfies.
// It is not transitive: if ADMIN satisfies MODERATOR and MODERATOR satisfies
// EMPLOYEE, ADMIN only satisfies EMPLOYEE when listed explicitly.
type Hierarchy struct {
	satisfies map[Role]map[Role]struct{}
}

// DefaultHierarchy makes ADMIN satisfy every role and keeps all others flat.
func DefaultHierarchy() *Hierarchy {
	return NewHierarchy(map[Role][]Role{
		RoleAdmin: AllRoles,
	})
}

// NewHierarchy builds a hierarchy from a role → satisfied roles relation.
func NewHierarchy(relation map[Role][]Role) *Hierarchy {
	h := &Hierarchy{satisfies: make(map[Role]map[Role]struct{}, len(relation))}
	for held, roles := range relation {
		set := make(map[Role]struct{}, len(roles))
		for _, r := range roles {
			set[r] = struct{}{}
		}
		h.satisfies[held] = set
	}
	return h
}

// HasRole reports whether held meets any of required.
func (h *Hierarchy) HasRole(held Role, required []Role) bool {
	if held == "" {
		return false
	}
	satisfied := h.satisfies[held]
	for _, r := range required {
		if r == held {
			return true
		}
		if _, ok := satisfied[r]; ok {
			return true
		}
	}
	return false
}
