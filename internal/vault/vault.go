// Package vault implements the pooled-asset accounting core: total
// underlying, total shares, fees, the deposit cap, and the keeper-driven
// virtual-yield adjustment. Per-holder share balances live in the external
// share-token collaborator; eligibility of reallocation destinations lives
// in the strategy registry. Every mutating operation is a validate-then-
// apply transition with no partial effects on failure.
package vault

import (
	"math"
	"sync"

	"vaultd/internal/errs"
	"vaultd/internal/identity"
)

const (
	CodePaused             = 100
	CodeNotKeeper          = 103
	CodeNotAdmin           = 104
	CodeCapExceeded        = 105
	CodeStrategyNotAllowed = 106
	CodeInvalidAmount      = 107
	CodeInsufficientShares = 108
)

var (
	ErrPaused             = errs.New(CodePaused, "vault is paused")
	ErrNotKeeper          = errs.New(CodeNotKeeper, "caller is not a keeper")
	ErrNotAdmin           = errs.New(CodeNotAdmin, "caller is not the admin")
	ErrCapExceeded        = errs.New(CodeCapExceeded, "deposit cap exceeded")
	ErrStrategyNotAllowed = errs.New(CodeStrategyNotAllowed, "strategy not allowed")
	ErrInvalidAmount      = errs.New(CodeInvalidAmount, "invalid amount")
	ErrInsufficientShares = errs.New(CodeInsufficientShares, "insufficient shares")
)

// FeeMode selects how the deposit fee is accounted.
type FeeMode int

const (
	// FeeAccrue credits the gross deposit to totalUnderlying; the fee
	// stays in the pool and accrues to existing holders.
	FeeAccrue FeeMode = iota
	// FeeSkim credits only the net deposit; the fee is tracked as skimmed
	// and owed outside the pool.
	FeeSkim
)

func ParseFeeMode(raw string) (FeeMode, bool) {
	switch raw {
	case "", "accrue":
		return FeeAccrue, true
	case "skim":
		return FeeSkim, true
	}
	return FeeAccrue, false
}

func (m FeeMode) String() string {
	if m == FeeSkim {
		return "skim"
	}
	return "accrue"
}

// RoleReader is the role-provider surface the vault consumes.
type RoleReader interface {
	IsAdmin(id identity.Identity) bool
	IsKeeper(id identity.Identity) bool
	IsPaused() bool
}

// StrategySource is the registry surface consulted before authorizing a
// capital reallocation.
type StrategySource interface {
	StrategyExists(chainID, protoID uint64) bool
	IsStrategyEnabled(chainID, protoID uint64) bool
}

// ShareToken is the external ledger that mints/burns ownership units. Any
// call failure aborts the enclosing vault operation before state changes.
type ShareToken interface {
	Mint(caller, to identity.Identity, amount uint64) error
	Burn(caller, from identity.Identity, amount uint64) error
	BalanceOf(id identity.Identity) uint64
}

// Config carries the deployment parameters of a Vault.
type Config struct {
	// Self is the vault's own identity, presented to the share token as
	// the authorized minter/burner.
	Self           identity.Identity
	FeeMode        FeeMode
	DepositFeeBps  uint32
	WithdrawFeeBps uint32
	Cap            *uint64
}

// Vault is the accounting state for one deployment.
type Vault struct {
	mu         sync.RWMutex
	self       identity.Identity
	roles      RoleReader
	strategies StrategySource
	shares     ShareToken

	totalUnderlying uint64
	totalShares     uint64
	depositFeeBps   uint32
	withdrawFeeBps  uint32
	cap             *uint64
	feeMode         FeeMode

	depositFeesTaken  uint64
	withdrawFeesTaken uint64
}

func New(cfg Config, roles RoleReader, strategies StrategySource, shares ShareToken) (*Vault, error) {
	if cfg.Self.IsZero() || roles == nil || strategies == nil || shares == nil {
		return nil, ErrInvalidAmount
	}
	if cfg.DepositFeeBps >= bpsDenominator || cfg.WithdrawFeeBps >= bpsDenominator {
		return nil, ErrInvalidAmount
	}
	v := &Vault{
		self:           cfg.Self,
		roles:          roles,
		strategies:     strategies,
		shares:         shares,
		depositFeeBps:  cfg.DepositFeeBps,
		withdrawFeeBps: cfg.WithdrawFeeBps,
		feeMode:        cfg.FeeMode,
	}
	if cfg.Cap != nil {
		capVal := *cfg.Cap
		v.cap = &capVal
	}
	return v, nil
}

// Deposit converts an underlying amount into newly minted shares for the
// caller. The first deposit bootstraps at 1:1 on the net amount; later
// deposits mint pro-rata against the pre-deposit totals. The cap is
// checked against the gross amount.
func (v *Vault) Deposit(caller identity.Identity, amount uint64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.roles.IsPaused() {
		return 0, ErrPaused
	}
	if amount == 0 || caller.IsZero() {
		return 0, ErrInvalidAmount
	}

	grossTotal, err := checkedAdd(v.totalUnderlying, amount)
	if err != nil {
		return 0, err
	}
	if v.cap != nil && grossTotal > *v.cap {
		return 0, ErrCapExceeded
	}

	fee, err := feeOf(amount, v.depositFeeBps)
	if err != nil {
		return 0, err
	}
	net := amount - fee

	var minted uint64
	if v.totalShares == 0 {
		minted = net
	} else {
		minted, err = mulDiv(net, v.totalShares, v.totalUnderlying)
		if err != nil {
			return 0, err
		}
	}
	if minted == 0 {
		return 0, ErrInvalidAmount
	}

	credited := amount
	if v.feeMode == FeeSkim {
		credited = net
	}
	newUnderlying, err := checkedAdd(v.totalUnderlying, credited)
	if err != nil {
		return 0, err
	}
	newShares, err := checkedAdd(v.totalShares, minted)
	if err != nil {
		return 0, err
	}

	// Last fallible step; a mint failure leaves the vault untouched.
	if err := v.shares.Mint(v.self, caller, minted); err != nil {
		return 0, err
	}

	v.totalUnderlying = newUnderlying
	v.totalShares = newShares
	if v.feeMode == FeeSkim {
		v.depositFeesTaken += fee
	}
	return minted, nil
}

// Withdraw burns the caller's shares and returns the net underlying
// amount owed after the withdraw fee.
func (v *Vault) Withdraw(caller identity.Identity, shares uint64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.roles.IsPaused() {
		return 0, ErrPaused
	}
	if shares == 0 || caller.IsZero() {
		return 0, ErrInvalidAmount
	}
	if shares > v.totalShares || shares > v.shares.BalanceOf(caller) {
		return 0, ErrInsufficientShares
	}

	gross, err := mulDiv(shares, v.totalUnderlying, v.totalShares)
	if err != nil {
		return 0, err
	}
	fee, err := feeOf(gross, v.withdrawFeeBps)
	if err != nil {
		return 0, err
	}
	net := gross - fee

	// Last fallible step; a burn failure leaves the vault untouched.
	if err := v.shares.Burn(v.self, caller, shares); err != nil {
		return 0, err
	}

	v.totalUnderlying -= gross
	v.totalShares -= shares
	v.withdrawFeesTaken += fee
	return net, nil
}

// UpdateVirtualYield adds a signed accounting delta to totalUnderlying
// with no share change and no asset movement. Keeper-only. The adjustment
// may not underflow the pool, and an empty vault (zero shares) admits no
// nonzero adjustment.
func (v *Vault) UpdateVirtualYield(caller identity.Identity, delta int64) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.roles.IsKeeper(caller) {
		return 0, ErrNotKeeper
	}
	if delta == 0 {
		return v.totalUnderlying, nil
	}
	if v.totalShares == 0 {
		return 0, ErrInvalidAmount
	}
	if delta > 0 {
		next, err := checkedAdd(v.totalUnderlying, uint64(delta))
		if err != nil {
			return 0, err
		}
		v.totalUnderlying = next
		return next, nil
	}
	loss := uint64(-(delta + 1)) + 1 // safe for math.MinInt64
	if loss > v.totalUnderlying {
		return 0, ErrInvalidAmount
	}
	v.totalUnderlying -= loss
	return v.totalUnderlying, nil
}

// SetDepositFee sets the deposit fee in basis points. Admin-only.
func (v *Vault) SetDepositFee(caller identity.Identity, bps uint32) (uint32, error) {
	return v.setFee(caller, bps, &v.depositFeeBps)
}

// SetWithdrawFee sets the withdraw fee in basis points. Admin-only.
func (v *Vault) SetWithdrawFee(caller identity.Identity, bps uint32) (uint32, error) {
	return v.setFee(caller, bps, &v.withdrawFeeBps)
}

func (v *Vault) setFee(caller identity.Identity, bps uint32, target *uint32) (uint32, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.roles.IsAdmin(caller) {
		return 0, ErrNotAdmin
	}
	if bps >= bpsDenominator {
		return 0, ErrInvalidAmount
	}
	*target = bps
	return bps, nil
}

// SetCap sets or clears the gross deposit cap. Admin-only. Returns the
// resulting cap (nil means uncapped).
func (v *Vault) SetCap(caller identity.Identity, cap *uint64) (*uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.roles.IsAdmin(caller) {
		return nil, ErrNotAdmin
	}
	if cap == nil {
		v.cap = nil
		return nil, nil
	}
	capVal := *cap
	v.cap = &capVal
	out := capVal
	return &out, nil
}

// Fees returns the current deposit and withdraw fee bps.
func (v *Vault) Fees() (depositBps, withdrawBps uint32) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.depositFeeBps, v.withdrawFeeBps
}

// Cap returns the current cap, or nil when uncapped.
func (v *Vault) Cap() *uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.cap == nil {
		return nil
	}
	out := *v.cap
	return &out
}

// ExchangeRate returns totalUnderlying*Precision/totalShares at 6-decimal
// fixed point, or Precision for an empty vault. Saturates at the uint64
// limit.
func (v *Vault) ExchangeRate() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.exchangeRateLocked()
}

func (v *Vault) exchangeRateLocked() uint64 {
	if v.totalShares == 0 {
		return Precision
	}
	rate, err := mulDiv(v.totalUnderlying, Precision, v.totalShares)
	if err != nil {
		return math.MaxUint64
	}
	return rate
}

// PreviewWithdraw projects the net amount a withdraw of the given shares
// would return at current totals, with the same fee treatment as the live
// Withdraw path. Non-mutating.
func (v *Vault) PreviewWithdraw(shares uint64) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if shares == 0 || v.totalShares == 0 {
		return 0
	}
	gross, err := mulDiv(shares, v.totalUnderlying, v.totalShares)
	if err != nil {
		return 0
	}
	fee, err := feeOf(gross, v.withdrawFeeBps)
	if err != nil {
		return 0
	}
	return gross - fee
}

// RequestStrategyChange authorizes a reallocation intent from one venue to
// another. Keeper-only. The destination must exist and be enabled in the
// registry. No assets move; execution is delegated to an external actor.
func (v *Vault) RequestStrategyChange(caller identity.Identity, fromChain, fromProto, toChain, toProto, amount uint64, reasonCode uint32) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if !v.roles.IsKeeper(caller) {
		return ErrNotKeeper
	}
	if !v.strategies.StrategyExists(toChain, toProto) || !v.strategies.IsStrategyEnabled(toChain, toProto) {
		return ErrStrategyNotAllowed
	}
	return nil
}

// TotalUnderlying returns the pooled underlying accounting figure.
func (v *Vault) TotalUnderlying() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalUnderlying
}

// TotalShares returns the outstanding share count.
func (v *Vault) TotalShares() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.totalShares
}

// FeeMode returns the configured deposit fee accounting mode.
func (v *Vault) FeeMode() FeeMode {
	return v.feeMode
}

// FeesTaken returns the cumulative fees routed outside the pool: skimmed
// deposit fees (skim mode only) and withdraw fees.
func (v *Vault) FeesTaken() (deposit, withdraw uint64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.depositFeesTaken, v.withdrawFeesTaken
}
