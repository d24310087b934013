// Package registry owns the strategy allowlist: the set of (chain,
// protocol) venues eligible to receive reallocated vault capital, with
// their parameter bounds and descriptive metadata. Records are never
// deleted, only soft-disabled, so historical lookups stay stable.
package registry

import (
	"sort"
	"sync"

	"vaultd/internal/errs"
	"vaultd/internal/identity"
)

const (
	CodeNotAuthorized     = 100
	CodeStrategyExists    = 102
	CodeStrategyNotFound  = 103
	CodeInvalidParameters = 104
)

var (
	ErrNotAuthorized     = errs.New(CodeNotAuthorized, "caller is not authorized")
	ErrStrategyExists    = errs.New(CodeStrategyExists, "strategy already exists")
	ErrStrategyNotFound  = errs.New(CodeStrategyNotFound, "strategy not found")
	ErrInvalidParameters = errs.New(CodeInvalidParameters, "invalid strategy parameters")
)

const (
	maxFeeBps    = 10_000
	maxNameLen   = 64
	maxDescLen   = 256
	maxURLLen    = 256
	minRiskLevel = 1
	maxRiskLevel = 5
)

// Key identifies a strategy record.
type Key struct {
	ChainID uint64 `json:"chain_id"`
	ProtoID uint64 `json:"proto_id"`
}

// Metadata carries the descriptive fields of a strategy.
type Metadata struct {
	Description    string `json:"description"`
	URL            string `json:"url"`
	LogoURL        string `json:"logo_url"`
	RiskLevel      uint8  `json:"risk_level"`
	ExpectedAprBps uint32 `json:"expected_apr_bps"`
}

// Strategy is one registry record. Address is the optional on-venue
// contract identity.
type Strategy struct {
	Key
	Name      string             `json:"name"`
	Address   *identity.Identity `json:"address,omitempty"`
	MinAmount uint64             `json:"min_amount"`
	MaxAmount uint64             `json:"max_amount"`
	FeeBps    uint32             `json:"fee_bps"`
	Enabled   bool               `json:"enabled"`
	Metadata  *Metadata          `json:"metadata,omitempty"`
}

// AdminChecker is the role-provider surface the registry needs.
type AdminChecker interface {
	IsAdmin(id identity.Identity) bool
}

// Registry is the strategy allowlist for one deployment. All mutations are
// admin-gated, validate-then-apply transitions.
type Registry struct {
	mu         sync.RWMutex
	roles      AdminChecker
	strategies map[Key]*Strategy
}

func New(roles AdminChecker) *Registry {
	return &Registry{
		roles:      roles,
		strategies: make(map[Key]*Strategy),
	}
}

// AddParams are the creation parameters for AddStrategy.
type AddParams struct {
	ChainID   uint64
	ProtoID   uint64
	Name      string
	Address   *identity.Identity
	MinAmount uint64
	MaxAmount uint64
	FeeBps    uint32
}

// AddStrategy creates a record with enabled=true and returns its key.
func (r *Registry) AddStrategy(caller identity.Identity, p AddParams) (Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.roles.IsAdmin(caller) {
		return Key{}, ErrNotAuthorized
	}
	if p.ChainID == 0 || p.ProtoID == 0 {
		return Key{}, ErrInvalidParameters
	}
	if p.MinAmount > p.MaxAmount || p.FeeBps >= maxFeeBps {
		return Key{}, ErrInvalidParameters
	}
	if p.Name == "" || len(p.Name) > maxNameLen {
		return Key{}, ErrInvalidParameters
	}
	key := Key{ChainID: p.ChainID, ProtoID: p.ProtoID}
	if _, ok := r.strategies[key]; ok {
		return Key{}, ErrStrategyExists
	}
	r.strategies[key] = &Strategy{
		Key:       key,
		Name:      p.Name,
		Address:   p.Address,
		MinAmount: p.MinAmount,
		MaxAmount: p.MaxAmount,
		FeeBps:    p.FeeBps,
		Enabled:   true,
	}
	return key, nil
}

// GetStrategy returns a copy of the record, or ok=false when absent.
// Missing keys are not an error on the read path.
func (r *Registry) GetStrategy(chainID, protoID uint64) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	if !ok {
		return Strategy{}, false
	}
	return cloneStrategy(s), true
}

func (r *Registry) StrategyExists(chainID, protoID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	return ok
}

func (r *Registry) IsStrategyEnabled(chainID, protoID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	return ok && s.Enabled
}

// EnableStrategy flips the enabled flag on. Idempotent.
func (r *Registry) EnableStrategy(caller identity.Identity, chainID, protoID uint64) error {
	return r.setEnabled(caller, chainID, protoID, true)
}

// DisableStrategy flips the enabled flag off. Idempotent; the record is
// never removed.
func (r *Registry) DisableStrategy(caller identity.Identity, chainID, protoID uint64) error {
	return r.setEnabled(caller, chainID, protoID, false)
}

func (r *Registry) setEnabled(caller identity.Identity, chainID, protoID uint64, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.roles.IsAdmin(caller) {
		return ErrNotAuthorized
	}
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	if !ok {
		return ErrStrategyNotFound
	}
	s.Enabled = enabled
	return nil
}

// UpdateStrategyParams overwrites the amount bounds and fee.
func (r *Registry) UpdateStrategyParams(caller identity.Identity, chainID, protoID, newMin, newMax uint64, newFee uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.roles.IsAdmin(caller) {
		return ErrNotAuthorized
	}
	if newMin > newMax || newFee >= maxFeeBps {
		return ErrInvalidParameters
	}
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	if !ok {
		return ErrStrategyNotFound
	}
	s.MinAmount = newMin
	s.MaxAmount = newMax
	s.FeeBps = newFee
	return nil
}

// SetStrategyMetadata attaches or replaces the descriptive metadata.
func (r *Registry) SetStrategyMetadata(caller identity.Identity, chainID, protoID uint64, md Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.roles.IsAdmin(caller) {
		return ErrNotAuthorized
	}
	if md.RiskLevel < minRiskLevel || md.RiskLevel > maxRiskLevel {
		return ErrInvalidParameters
	}
	if len(md.Description) > maxDescLen || len(md.URL) > maxURLLen || len(md.LogoURL) > maxURLLen {
		return ErrInvalidParameters
	}
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	if !ok {
		return ErrStrategyNotFound
	}
	copied := md
	s.Metadata = &copied
	return nil
}

// GetStrategyMetadata returns the metadata, or ok=false when the record or
// its metadata is absent.
func (r *Registry) GetStrategyMetadata(chainID, protoID uint64) (Metadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	if !ok || s.Metadata == nil {
		return Metadata{}, false
	}
	return *s.Metadata, true
}

// ValidateStrategy reports whether the key exists, is enabled, and the
// amount falls inside [MinAmount, MaxAmount].
func (r *Registry) ValidateStrategy(chainID, protoID, amount uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.strategies[Key{ChainID: chainID, ProtoID: protoID}]
	if !ok || !s.Enabled {
		return false
	}
	return amount >= s.MinAmount && amount <= s.MaxAmount
}

// StrategiesForChain returns the keys registered for a chain, sorted by
// protocol id.
func (r *Registry) StrategiesForChain(chainID uint64) []Key {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []Key
	for key := range r.strategies {
		if key.ChainID == chainID {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ProtoID < keys[j].ProtoID })
	return keys
}

// All returns every record sorted by (chain, proto), for the API surface
// and the persistence mirror.
func (r *Registry) All() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, 0, len(r.strategies))
	for _, s := range r.strategies {
		out = append(out, cloneStrategy(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ChainID != out[j].ChainID {
			return out[i].ChainID < out[j].ChainID
		}
		return out[i].ProtoID < out[j].ProtoID
	})
	return out
}

// Restore loads previously persisted records, bypassing the admin gate.
// Intended for boot-time rehydration only; existing keys are overwritten.
func (r *Registry) Restore(records []Strategy) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	restored := 0
	for _, rec := range records {
		if rec.ChainID == 0 || rec.ProtoID == 0 {
			continue
		}
		copied := cloneStrategy(&rec)
		r.strategies[rec.Key] = &copied
		restored++
	}
	return restored
}

func cloneStrategy(s *Strategy) Strategy {
	out := *s
	if s.Address != nil {
		addr := *s.Address
		out.Address = &addr
	}
	if s.Metadata != nil {
		md := *s.Metadata
		out.Metadata = &md
	}
	return out
}
