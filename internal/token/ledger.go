// Package token implements the share-token ledger consumed by the vault:
// a fungible balance book whose mint/burn entry points are reserved for a
// single bound vault identity.
package token

import (
	"math"
	"sync"

	"vaultd/internal/errs"
	"vaultd/internal/identity"
)

const (
	CodeNotVault            = 100
	CodeVaultAlreadySet     = 101
	CodeInsufficientBalance = 102
	CodeInvalidAmount       = 103
)

var (
	ErrNotVault            = errs.New(CodeNotVault, "caller is not the bound vault")
	ErrVaultAlreadySet     = errs.New(CodeVaultAlreadySet, "vault contract already bound")
	ErrInsufficientBalance = errs.New(CodeInsufficientBalance, "insufficient share balance")
	ErrInvalidAmount       = errs.New(CodeInvalidAmount, "invalid amount")
)

// Ledger tracks per-holder share balances. The vault never tracks holders
// itself; it delegates here.
type Ledger struct {
	mu       sync.RWMutex
	vault    identity.Identity
	bound    bool
	balances map[identity.Identity]uint64
	total    uint64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[identity.Identity]uint64)}
}

// SetVaultContract designates the sole authorized minter/burner. One-time.
func (l *Ledger) SetVaultContract(vault identity.Identity) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bound {
		return ErrVaultAlreadySet
	}
	if vault.IsZero() {
		return ErrInvalidAmount
	}
	l.vault = vault
	l.bound = true
	return nil
}

// Mint credits shares to a holder. Caller must be the bound vault.
func (l *Ledger) Mint(caller, to identity.Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.bound || caller != l.vault {
		return ErrNotVault
	}
	if amount == 0 || to.IsZero() {
		return ErrInvalidAmount
	}
	if l.total > math.MaxUint64-amount {
		return ErrInvalidAmount
	}
	l.balances[to] += amount
	l.total += amount
	return nil
}

// Burn debits shares from a holder. Caller must be the bound vault.
func (l *Ledger) Burn(caller, from identity.Identity, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.bound || caller != l.vault {
		return ErrNotVault
	}
	if amount == 0 {
		return ErrInvalidAmount
	}
	bal := l.balances[from]
	if bal < amount {
		return ErrInsufficientBalance
	}
	if bal == amount {
		delete(l.balances, from)
	} else {
		l.balances[from] = bal - amount
	}
	l.total -= amount
	return nil
}

func (l *Ledger) BalanceOf(id identity.Identity) uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[id]
}

func (l *Ledger) TotalSupply() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.total
}
