// Package roles owns the role hierarchy of a vault deployment: the sole
// admin, the keeper set, the pauser set, and the paused flag. Every gated
// operation in the registry and the vault routes its authorization check
// through a Manager.
package roles

import (
	"sort"
	"sync"

	"vaultd/internal/errs"
	"vaultd/internal/identity"
)

// Failure codes, numbered independently per component.
const (
	CodeNotAuthorized = 100
	CodeAlreadyExists = 101
)

var (
	ErrNotAuthorized = errs.New(CodeNotAuthorized, "caller is not authorized")
	ErrAlreadyExists = errs.New(CodeAlreadyExists, "identity already holds the role")
	ErrNotMember     = errs.New(CodeAlreadyExists, "identity does not hold the role")
)

// Manager holds the role state for one deployment. All operations are
// serialized, validate-then-apply state transitions: a failed call leaves
// the state untouched. Multiple independent Managers can coexist in one
// process.
type Manager struct {
	mu      sync.RWMutex
	admin   identity.Identity
	keepers map[identity.Identity]struct{}
	pausers map[identity.Identity]struct{}
	paused  bool
}

// NewManager creates the role state with the given deployer as admin,
// empty keeper/pauser sets, and paused=false. The admin is never absent.
func NewManager(admin identity.Identity) (*Manager, error) {
	if admin.IsZero() {
		return nil, ErrNotAuthorized
	}
	return &Manager{
		admin:   admin,
		keepers: make(map[identity.Identity]struct{}),
		pausers: make(map[identity.Identity]struct{}),
	}, nil
}

func (m *Manager) IsAdmin(id identity.Identity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return id == m.admin
}

func (m *Manager) Admin() identity.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.admin
}

func (m *Manager) IsKeeper(id identity.Identity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.keepers[id]
	return ok
}

func (m *Manager) IsPauser(id identity.Identity) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.pausers[id]
	return ok
}

func (m *Manager) IsPaused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Keepers returns the keeper set sorted for deterministic output.
func (m *Manager) Keepers() []identity.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedSet(m.keepers)
}

// Pausers returns the pauser set sorted for deterministic output.
func (m *Manager) Pausers() []identity.Identity {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedSet(m.pausers)
}

// SetAdmin replaces the admin. Caller must be the current admin. Setting
// the same admin again is allowed.
func (m *Manager) SetAdmin(caller, newAdmin identity.Identity) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return "", ErrNotAuthorized
	}
	if newAdmin.IsZero() {
		return "", ErrNotAuthorized
	}
	m.admin = newAdmin
	return newAdmin, nil
}

func (m *Manager) AddKeeper(caller, id identity.Identity) (identity.Identity, error) {
	return m.addRole(caller, id, keeperSet)
}

func (m *Manager) AddPauser(caller, id identity.Identity) (identity.Identity, error) {
	return m.addRole(caller, id, pauserSet)
}

func (m *Manager) RemoveKeeper(caller, id identity.Identity) (identity.Identity, error) {
	return m.removeRole(caller, id, keeperSet)
}

func (m *Manager) RemovePauser(caller, id identity.Identity) (identity.Identity, error) {
	return m.removeRole(caller, id, pauserSet)
}

// AddKeepers inserts a batch of keepers as one transition. Authorization
// failure rejects the whole batch; duplicates inside the batch are skipped
// without aborting. Returns the number of identities actually inserted.
func (m *Manager) AddKeepers(caller identity.Identity, ids []identity.Identity) (int, error) {
	return m.addRoleBatch(caller, ids, keeperSet)
}

// AddPausers is the pauser-set batch variant of AddKeepers.
func (m *Manager) AddPausers(caller identity.Identity, ids []identity.Identity) (int, error) {
	return m.addRoleBatch(caller, ids, pauserSet)
}

// SetPaused sets the paused flag. Pausing is allowed for the admin or any
// pauser; resuming is admin-only.
func (m *Manager) SetPaused(caller identity.Identity, value bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if value {
		if caller != m.admin {
			if _, ok := m.pausers[caller]; !ok {
				return m.paused, ErrNotAuthorized
			}
		}
	} else if caller != m.admin {
		return m.paused, ErrNotAuthorized
	}
	m.paused = value
	return m.paused, nil
}

// Unpause unconditionally clears the paused flag. Admin-only.
func (m *Manager) Unpause(caller identity.Identity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return m.paused, ErrNotAuthorized
	}
	m.paused = false
	return false, nil
}

// EmergencyPause unconditionally sets the paused flag. Callable by the
// admin or any pauser.
func (m *Manager) EmergencyPause(caller identity.Identity) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		if _, ok := m.pausers[caller]; !ok {
			return m.paused, ErrNotAuthorized
		}
	}
	m.paused = true
	return true, nil
}

type roleSet int

const (
	keeperSet roleSet = iota
	pauserSet
)

func (m *Manager) set(which roleSet) map[identity.Identity]struct{} {
	if which == keeperSet {
		return m.keepers
	}
	return m.pausers
}

func (m *Manager) addRole(caller, id identity.Identity, which roleSet) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return "", ErrNotAuthorized
	}
	if id.IsZero() {
		return "", ErrNotAuthorized
	}
	set := m.set(which)
	if _, ok := set[id]; ok {
		return "", ErrAlreadyExists
	}
	set[id] = struct{}{}
	return id, nil
}

func (m *Manager) removeRole(caller, id identity.Identity, which roleSet) (identity.Identity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return "", ErrNotAuthorized
	}
	set := m.set(which)
	if _, ok := set[id]; !ok {
		return "", ErrNotMember
	}
	delete(set, id)
	return id, nil
}

func (m *Manager) addRoleBatch(caller identity.Identity, ids []identity.Identity, which roleSet) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if caller != m.admin {
		return 0, ErrNotAuthorized
	}
	set := m.set(which)
	added := 0
	for _, id := range ids {
		if id.IsZero() {
			continue
		}
		if _, ok := set[id]; ok {
			continue
		}
		set[id] = struct{}{}
		added++
	}
	return added, nil
}

func sortedSet(set map[identity.Identity]struct{}) []identity.Identity {
	out := make([]identity.Identity, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
