package token

import (
	"errors"
	"testing"

	"vaultd/internal/identity"
)

const (
	vaultID = identity.Identity("vault")
	holder  = identity.Identity("wallet_1")
)

func boundLedger(t *testing.T) *Ledger {
	t.Helper()
	l := NewLedger()
	if err := l.SetVaultContract(vaultID); err != nil {
		t.Fatalf("bind vault: %v", err)
	}
	return l
}

func TestLedgerBindingIsOneTime(t *testing.T) {
	l := boundLedger(t)
	if err := l.SetVaultContract("other"); !errors.Is(err, ErrVaultAlreadySet) {
		t.Fatalf("rebind err=%v want ErrVaultAlreadySet", err)
	}
}

func TestLedgerMintRequiresVault(t *testing.T) {
	l := NewLedger()
	if err := l.Mint(vaultID, holder, 100); !errors.Is(err, ErrNotVault) {
		t.Fatalf("mint before bind err=%v want ErrNotVault", err)
	}
	l = boundLedger(t)
	if err := l.Mint("intruder", holder, 100); !errors.Is(err, ErrNotVault) {
		t.Fatalf("mint by non-vault err=%v want ErrNotVault", err)
	}
	if got := l.BalanceOf(holder); got != 0 {
		t.Fatalf("balance=%d want 0", got)
	}
}

func TestLedgerMintAndBurn(t *testing.T) {
	l := boundLedger(t)
	if err := l.Mint(vaultID, holder, 1_000_000); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := l.BalanceOf(holder); got != 1_000_000 {
		t.Fatalf("balance=%d want 1000000", got)
	}
	if got := l.TotalSupply(); got != 1_000_000 {
		t.Fatalf("total=%d want 1000000", got)
	}

	if err := l.Burn(vaultID, holder, 400_000); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := l.BalanceOf(holder); got != 600_000 {
		t.Fatalf("balance=%d want 600000", got)
	}
	if got := l.TotalSupply(); got != 600_000 {
		t.Fatalf("total=%d want 600000", got)
	}

	if err := l.Burn(vaultID, holder, 600_001); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("overburn err=%v want ErrInsufficientBalance", err)
	}
	if got := l.BalanceOf(holder); got != 600_000 {
		t.Fatalf("balance changed on failed burn: %d", got)
	}
}

func TestLedgerRejectsZeroAmounts(t *testing.T) {
	l := boundLedger(t)
	if err := l.Mint(vaultID, holder, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero mint err=%v want ErrInvalidAmount", err)
	}
	if err := l.Burn(vaultID, holder, 0); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero burn err=%v want ErrInvalidAmount", err)
	}
}
