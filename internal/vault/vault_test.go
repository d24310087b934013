package vault

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultd/internal/identity"
	"vaultd/internal/token"
)

const (
	vaultSelf = identity.Identity("vault")
	admin     = identity.Identity("deployer")
	keeper    = identity.Identity("keeper_1")
	user1     = identity.Identity("wallet_1")
	user2     = identity.Identity("wallet_2")
)

type fakeRoles struct {
	admin   identity.Identity
	keepers map[identity.Identity]bool
	paused  bool
}

func (f *fakeRoles) IsAdmin(id identity.Identity) bool  { return id == f.admin }
func (f *fakeRoles) IsKeeper(id identity.Identity) bool { return f.keepers[id] }
func (f *fakeRoles) IsPaused() bool                     { return f.paused }

type fakeStrategies struct {
	enabled map[[2]uint64]bool
}

func (f *fakeStrategies) StrategyExists(chainID, protoID uint64) bool {
	_, ok := f.enabled[[2]uint64{chainID, protoID}]
	return ok
}

func (f *fakeStrategies) IsStrategyEnabled(chainID, protoID uint64) bool {
	return f.enabled[[2]uint64{chainID, protoID}]
}

type failingToken struct {
	mintErr error
	burnErr error
	balance uint64
}

func (f *failingToken) Mint(caller, to identity.Identity, amount uint64) error { return f.mintErr }
func (f *failingToken) Burn(caller, from identity.Identity, amount uint64) error {
	return f.burnErr
}
func (f *failingToken) BalanceOf(id identity.Identity) uint64 { return f.balance }

type fixture struct {
	vault  *Vault
	roles  *fakeRoles
	strats *fakeStrategies
	ledger *token.Ledger
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	roles := &fakeRoles{admin: admin, keepers: map[identity.Identity]bool{keeper: true}}
	strats := &fakeStrategies{enabled: map[[2]uint64]bool{}}
	ledger := token.NewLedger()
	require.NoError(t, ledger.SetVaultContract(vaultSelf))
	cfg.Self = vaultSelf
	v, err := New(cfg, roles, strats, ledger)
	require.NoError(t, err)
	return &fixture{vault: v, roles: roles, strats: strats, ledger: ledger}
}

func TestDeposit(t *testing.T) {
	t.Run("BootstrapOneToOne", func(t *testing.T) {
		f := newFixture(t, Config{})
		minted, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_000_000), minted)
		assert.Equal(t, uint64(1_000_000), f.vault.TotalUnderlying())
		assert.Equal(t, uint64(1_000_000), f.vault.TotalShares())
		assert.Equal(t, uint64(1_000_000), f.ledger.BalanceOf(user1))
	})

	t.Run("ProRataAfterYield", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		_, err = f.vault.UpdateVirtualYield(keeper, 500_000)
		require.NoError(t, err)

		// 1,000,000 * 1,000,000 / 1,500,000 floors to 666,666.
		minted, err := f.vault.Deposit(user2, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(666_666), minted)
		assert.Equal(t, uint64(2_500_000), f.vault.TotalUnderlying())
		assert.Equal(t, uint64(1_666_666), f.vault.TotalShares())
	})

	t.Run("PausedBlocks", func(t *testing.T) {
		f := newFixture(t, Config{})
		f.roles.paused = true
		_, err := f.vault.Deposit(user1, 500_000)
		require.ErrorIs(t, err, ErrPaused)

		f.roles.paused = false
		_, err = f.vault.Deposit(user1, 500_000)
		require.NoError(t, err)
	})

	t.Run("ZeroAmount", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 0)
		require.ErrorIs(t, err, ErrInvalidAmount)
	})

	t.Run("CapBlocksExcess", func(t *testing.T) {
		f := newFixture(t, Config{})
		capVal := uint64(1_500_000)
		_, err := f.vault.SetCap(admin, &capVal)
		require.NoError(t, err)

		_, err = f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)

		// 1.0M + 0.6M would breach the 1.5M cap; nothing changes.
		_, err = f.vault.Deposit(user1, 600_000)
		require.ErrorIs(t, err, ErrCapExceeded)
		assert.Equal(t, uint64(1_000_000), f.vault.TotalUnderlying())
		assert.Equal(t, uint64(1_000_000), f.ledger.BalanceOf(user1))

		_, err = f.vault.Deposit(user1, 400_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_400_000), f.vault.TotalUnderlying())
	})

	t.Run("CapAgainstGrossWithFee", func(t *testing.T) {
		f := newFixture(t, Config{DepositFeeBps: 100})
		capVal := uint64(1_000_000)
		_, err := f.vault.SetCap(admin, &capVal)
		require.NoError(t, err)

		// Net would fit under the cap but the gross amount is checked.
		_, err = f.vault.Deposit(user1, 1_000_001)
		require.ErrorIs(t, err, ErrCapExceeded)
	})

	t.Run("ClearCap", func(t *testing.T) {
		f := newFixture(t, Config{})
		capVal := uint64(100)
		_, err := f.vault.SetCap(admin, &capVal)
		require.NoError(t, err)
		got, err := f.vault.SetCap(admin, nil)
		require.NoError(t, err)
		assert.Nil(t, got)
		_, err = f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
	})

	t.Run("AccrueModeCreditsGross", func(t *testing.T) {
		f := newFixture(t, Config{DepositFeeBps: 100, FeeMode: FeeAccrue})
		minted, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		// fee 10,000; shares minted from the 990,000 net.
		assert.Equal(t, uint64(990_000), minted)
		assert.Equal(t, uint64(1_000_000), f.vault.TotalUnderlying())
		assert.Equal(t, uint64(990_000), f.vault.TotalShares())
		// Fee accrues to holders: rate floor(1,000,000*1e6/990,000).
		assert.Equal(t, uint64(1_010_101), f.vault.ExchangeRate())
		dep, _ := f.vault.FeesTaken()
		assert.Equal(t, uint64(0), dep)
	})

	t.Run("SkimModeCreditsNet", func(t *testing.T) {
		f := newFixture(t, Config{DepositFeeBps: 100, FeeMode: FeeSkim})
		minted, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(990_000), minted)
		assert.Equal(t, uint64(990_000), f.vault.TotalUnderlying())
		assert.Equal(t, uint64(990_000), f.vault.TotalShares())
		assert.Equal(t, uint64(Precision), f.vault.ExchangeRate())
		dep, _ := f.vault.FeesTaken()
		assert.Equal(t, uint64(10_000), dep)
	})

	t.Run("ProRataInvariantNonzeroFee", func(t *testing.T) {
		for _, mode := range []FeeMode{FeeAccrue, FeeSkim} {
			f := newFixture(t, Config{DepositFeeBps: 250, FeeMode: mode})
			_, err := f.vault.Deposit(user1, 3_000_000)
			require.NoError(t, err)
			_, err = f.vault.UpdateVirtualYield(keeper, 700_000)
			require.NoError(t, err)

			preShares := f.vault.TotalShares()
			preUnderlying := f.vault.TotalUnderlying()
			amount := uint64(1_234_567)
			fee := amount * 250 / 10_000
			net := amount - fee
			want := net * preShares / preUnderlying

			minted, err := f.vault.Deposit(user2, amount)
			require.NoError(t, err, "mode=%s", mode)
			assert.Equal(t, want, minted, "mode=%s", mode)
		}
	})

	t.Run("MintFailureLeavesStateUntouched", func(t *testing.T) {
		roles := &fakeRoles{admin: admin, keepers: map[identity.Identity]bool{}}
		tok := &failingToken{mintErr: errors.New("mint rejected")}
		v, err := New(Config{Self: vaultSelf}, roles, &fakeStrategies{}, tok)
		require.NoError(t, err)

		_, err = v.Deposit(user1, 1_000_000)
		require.Error(t, err)
		assert.Equal(t, uint64(0), v.TotalUnderlying())
		assert.Equal(t, uint64(0), v.TotalShares())
	})
}

func TestWithdraw(t *testing.T) {
	t.Run("BurnsSharesAtRate", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		_, err = f.vault.UpdateVirtualYield(keeper, 500_000)
		require.NoError(t, err)

		// 500,000 * 1,500,000 / 1,000,000 = 750,000.
		got, err := f.vault.Withdraw(user1, 500_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(750_000), got)
		assert.Equal(t, uint64(750_000), f.vault.TotalUnderlying())
		assert.Equal(t, uint64(500_000), f.vault.TotalShares())
		assert.Equal(t, uint64(500_000), f.ledger.BalanceOf(user1))
	})

	t.Run("PausedBlocks", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		f.roles.paused = true
		_, err = f.vault.Withdraw(user1, 500_000)
		require.ErrorIs(t, err, ErrPaused)
	})

	t.Run("OverBalanceFails", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		_, err = f.vault.Withdraw(user1, 1_000_001)
		require.ErrorIs(t, err, ErrInsufficientShares)
		_, err = f.vault.Withdraw(user2, 1)
		require.ErrorIs(t, err, ErrInsufficientShares)
	})

	t.Run("WithdrawFeeNets", func(t *testing.T) {
		f := newFixture(t, Config{WithdrawFeeBps: 50})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)

		// gross 500,000; fee 2,500; net 497,500.
		got, err := f.vault.Withdraw(user1, 500_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(497_500), got)
		// Gross leaves the pool; the fee is routed outside it.
		assert.Equal(t, uint64(500_000), f.vault.TotalUnderlying())
		_, wd := f.vault.FeesTaken()
		assert.Equal(t, uint64(2_500), wd)
	})

	t.Run("BurnFailureLeavesStateUntouched", func(t *testing.T) {
		roles := &fakeRoles{admin: admin, keepers: map[identity.Identity]bool{}}
		tok := &failingToken{burnErr: errors.New("burn rejected"), balance: 1_000_000}
		v, err := New(Config{Self: vaultSelf}, roles, &fakeStrategies{}, tok)
		require.NoError(t, err)
		_, err = v.Deposit(user1, 1_000_000)
		require.NoError(t, err)

		_, err = v.Withdraw(user1, 500_000)
		require.Error(t, err)
		assert.Equal(t, uint64(1_000_000), v.TotalUnderlying())
		assert.Equal(t, uint64(1_000_000), v.TotalShares())
	})
}

func TestVirtualYield(t *testing.T) {
	t.Run("KeeperOnly", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)

		_, err = f.vault.UpdateVirtualYield(user1, 100_000)
		require.ErrorIs(t, err, ErrNotKeeper)

		got, err := f.vault.UpdateVirtualYield(keeper, 100_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(1_100_000), got)
	})

	t.Run("NegativeDelta", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)

		got, err := f.vault.UpdateVirtualYield(keeper, -250_000)
		require.NoError(t, err)
		assert.Equal(t, uint64(750_000), got)

		// Cannot drive the pool below zero.
		_, err = f.vault.UpdateVirtualYield(keeper, -750_001)
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, uint64(750_000), f.vault.TotalUnderlying())
	})

	t.Run("EmptyVaultRejectsAdjustment", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.UpdateVirtualYield(keeper, 100_000)
		require.ErrorIs(t, err, ErrInvalidAmount)
		assert.Equal(t, uint64(0), f.vault.TotalUnderlying())
	})
}

func TestExchangeRate(t *testing.T) {
	f := newFixture(t, Config{})
	assert.Equal(t, uint64(Precision), f.vault.ExchangeRate())

	_, err := f.vault.Deposit(user1, 1_000_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), f.vault.ExchangeRate())

	_, err = f.vault.UpdateVirtualYield(keeper, 500_000)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_500_000), f.vault.ExchangeRate())

	// Deposits and withdrawals do not decrease the rate.
	rate := f.vault.ExchangeRate()
	_, err = f.vault.Deposit(user2, 777_777)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.vault.ExchangeRate(), rate)

	rate = f.vault.ExchangeRate()
	_, err = f.vault.Withdraw(user1, 300_000)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, f.vault.ExchangeRate(), rate)
}

func TestPreviewWithdraw(t *testing.T) {
	t.Run("MatchesLiveWithdrawZeroFee", func(t *testing.T) {
		f := newFixture(t, Config{})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		_, err = f.vault.UpdateVirtualYield(keeper, 500_000)
		require.NoError(t, err)

		preview := f.vault.PreviewWithdraw(500_000)
		assert.Equal(t, uint64(750_000), preview)

		got, err := f.vault.Withdraw(user1, 500_000)
		require.NoError(t, err)
		assert.Equal(t, preview, got)
	})

	t.Run("MatchesLiveWithdrawNonzeroFee", func(t *testing.T) {
		f := newFixture(t, Config{WithdrawFeeBps: 125})
		_, err := f.vault.Deposit(user1, 1_000_000)
		require.NoError(t, err)
		_, err = f.vault.UpdateVirtualYield(keeper, 333_333)
		require.NoError(t, err)

		preview := f.vault.PreviewWithdraw(400_000)
		got, err := f.vault.Withdraw(user1, 400_000)
		require.NoError(t, err)
		assert.Equal(t, preview, got)
	})

	t.Run("EmptyVault", func(t *testing.T) {
		f := newFixture(t, Config{})
		assert.Equal(t, uint64(0), f.vault.PreviewWithdraw(100))
	})
}

func TestFeeAndCapSetters(t *testing.T) {
	f := newFixture(t, Config{})

	_, err := f.vault.SetDepositFee(user1, 100)
	require.ErrorIs(t, err, ErrNotAdmin)

	got, err := f.vault.SetDepositFee(admin, 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(100), got)

	got, err = f.vault.SetWithdrawFee(admin, 50)
	require.NoError(t, err)
	assert.Equal(t, uint32(50), got)

	dep, wd := f.vault.Fees()
	assert.Equal(t, uint32(100), dep)
	assert.Equal(t, uint32(50), wd)

	_, err = f.vault.SetDepositFee(admin, 10_000)
	require.ErrorIs(t, err, ErrInvalidAmount)

	capVal := uint64(10_000_000)
	capGot, err := f.vault.SetCap(admin, &capVal)
	require.NoError(t, err)
	require.NotNil(t, capGot)
	assert.Equal(t, capVal, *capGot)

	_, err = f.vault.SetCap(user1, &capVal)
	require.ErrorIs(t, err, ErrNotAdmin)
}

func TestRequestStrategyChange(t *testing.T) {
	f := newFixture(t, Config{})

	err := f.vault.RequestStrategyChange(user1, 1, 1, 2, 1, 1_000_000, 1)
	require.ErrorIs(t, err, ErrNotKeeper)

	// Destination absent from the registry.
	err = f.vault.RequestStrategyChange(keeper, 1, 1, 2, 1, 1_000_000, 1)
	require.ErrorIs(t, err, ErrStrategyNotAllowed)

	f.strats.enabled[[2]uint64{2, 1}] = false
	err = f.vault.RequestStrategyChange(keeper, 1, 1, 2, 1, 1_000_000, 1)
	require.ErrorIs(t, err, ErrStrategyNotAllowed)

	f.strats.enabled[[2]uint64{2, 1}] = true
	err = f.vault.RequestStrategyChange(keeper, 1, 1, 2, 1, 1_000_000, 1)
	require.NoError(t, err)
}
