package permission

import (
	"errors"
	"sync"
)

// RoleManager maps role names to permission names and expands a subject's
// role list into the permissions those roles grant. Roles are registered
// during initialization and frozen before use.
type RoleManager struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string][]string
	frozen bool
}

// NewRoleManager creates an empty role table. registry may be nil, in which
// case role permissions are not validated against a known set.
func NewRoleManager(registry *Registry) *RoleManager {
	return &RoleManager{
		registry: registry,
		roles:    make(map[string][]string),
	}
}

// RegisterRole maps roleName to the given permission names. When a registry
// is configured, every permission must already be registered.
func (rm *RoleManager) RegisterRole(roleName string, permissionNames []string) error {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	if rm.frozen {
		return errors.New("role manager frozen")
	}

	if roleName == "" {
		return errors.New("role name empty")
	}

	if _, exists := rm.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	perms := make([]string, 0, len(permissionNames))
	for _, perm := range permissionNames {
		if perm == "" {
			return errors.New("role " + roleName + " contains an empty permission name")
		}
		if rm.registry != nil && !rm.registry.Has(perm) {
			return errors.New("permission not registered: " + perm)
		}
		perms = append(perms, perm)
	}

	rm.roles[roleName] = perms
	return nil
}

/*
====================================
EXPANSION
====================================
*/

// Expand returns the union of the permissions granted by the given roles,
// deduplicated, preserving first-seen order. Unknown roles contribute
// nothing.
func (rm *RoleManager) Expand(roles []string) []string {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	var out []string
	seen := make(map[string]struct{})

	for _, role := range roles {
		for _, perm := range rm.roles[role] {
			if _, dup := seen[perm]; dup {
				continue
			}
			seen[perm] = struct{}{}
			out = append(out, perm)
		}
	}

	return out
}

// Permissions returns the permission names mapped to roleName.
func (rm *RoleManager) Permissions(roleName string) ([]string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	perms, ok := rm.roles[roleName]
	if !ok {
		return nil, false
	}

	out := make([]string, len(perms))
	copy(out, perms)
	return out, true
}

// Freeze prevents further role registrations.
func (rm *RoleManager) Freeze() {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.frozen = true
}

// Count returns the number of registered roles.
func (rm *RoleManager) Count() int {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.roles)
}
