package staking

import (
	"errors"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/stakedb/memorydb"
	"github.com/tos-network/gstake/state"
	"github.com/tos-network/gstake/sysaction"
)

const (
	testDecimals = 9
	testPrice    = 1_000_000_000 // fee = 2 * 10^9 / 10^9 * 1 = 2
	testExpo     = 1
	testFee      = 2
)

var (
	stakeAsset  = params.DefaultStakeAsset
	rewardAsset = params.DefaultRewardAsset
)

func tAddr(b byte) common.Address {
	var a common.Address
	a[0] = 0xee
	a[19] = b
	return a
}

type testEnv struct {
	t      *testing.T
	db     *state.StateDB
	ledger *assetledger.StateLedger
	now    int64
	events []sysaction.Event
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := state.New(memorydb.New(), 0)
	if err != nil {
		t.Fatalf("failed to create state db: %v", err)
	}
	ledger := assetledger.NewStateLedger(db)
	for _, asset := range []common.Address{stakeAsset, rewardAsset} {
		if err := ledger.RegisterAsset(asset, testDecimals); err != nil {
			t.Fatal(err)
		}
	}
	return &testEnv{t: t, db: db, ledger: ledger}
}

func (e *testEnv) exec(from common.Address, kind sysaction.ActionKind, payload interface{}) error {
	e.t.Helper()
	sa, err := sysaction.MakeSysAction(kind, payload)
	if err != nil {
		e.t.Fatalf("failed to encode sysaction: %v", err)
	}
	ctx := &sysaction.Context{From: from, Now: e.now, StateDB: e.db, Ledger: e.ledger}
	err = sysaction.DefaultRegistry.Execute(ctx, sa)
	e.events = ctx.Events()
	return err
}

func (e *testEnv) mustExec(from common.Address, kind sysaction.ActionKind, payload interface{}) {
	e.t.Helper()
	if err := e.exec(from, kind, payload); err != nil {
		e.t.Fatalf("%s by %x: %v", kind, from, err)
	}
}

func (e *testEnv) mint(asset, to common.Address, amount uint64) {
	e.t.Helper()
	if err := e.ledger.Mint(asset, to, amount); err != nil {
		e.t.Fatal(err)
	}
}

// setup initializes a config owned by owner with the given cycle.
func (e *testEnv) setup(owner common.Address, cycleStaked uint64) sysaction.Accounts {
	e.t.Helper()
	if err := e.ledger.CreditNative(owner, 10_000_000); err != nil {
		e.t.Fatal(err)
	}
	e.mustExec(owner, sysaction.ActionInitialize, sysaction.InitializePayload{
		NewOwner: owner, Price: testPrice, PriceExponent: testExpo,
	})
	acc := sysaction.Accounts{Config: derive.Config(owner)}
	if cycleStaked != 0 {
		e.mustExec(owner, sysaction.ActionSetCycleStakedAmount, sysaction.SetValuePayload{Accounts: acc, Value: cycleStaked})
	}
	return acc
}

func (e *testEnv) config(acc sysaction.Accounts) GlobalConfig {
	return ReadConfig(e.db, acc.Config)
}

func (e *testEnv) position(acc sysaction.Accounts, user common.Address) (StakedPosition, bool) {
	return ReadPosition(e.db, derive.Position(acc.Config, user))
}

func TestInitialize(t *testing.T) {
	env := newTestEnv(t)
	owner := tAddr(1)
	acc := env.setup(owner, 0)

	cfg := env.config(acc)
	want := GlobalConfig{
		Initialized:       true,
		Owner:             owner,
		NativeVault:       derive.NativeVault(acc.Config),
		StakeAsset:        params.DefaultStakeAsset,
		RewardAsset:       params.DefaultRewardAsset,
		Precision:         1000,
		StakeFeeAmount:    2,
		MaxStakeAmount:    90_000_000_000,
		CycleStakedAmount: 30_000_000_000,
		CycleDuration:     86400,
		RewardPrice:       testPrice,
		RewardPriceExpo:   testExpo,
	}
	if cfg != want {
		t.Fatalf("config mismatch:\nhave %s\nwant %s", spew.Sdump(cfg), spew.Sdump(want))
	}
	rec := ReadMinter(env.db, derive.Minter(acc.Config, owner))
	if !rec.IsMinter || rec.Identity != owner {
		t.Fatalf("owner minter record %+v", rec)
	}
	if bal := env.ledger.NativeBalance(cfg.NativeVault); bal != params.VaultMinimumBalance {
		t.Fatalf("native vault balance %d", bal)
	}
	if len(env.events) != 1 {
		t.Fatalf("events %v", env.events)
	}
	if ev, ok := env.events[0].(Initialized); !ok || ev.Owner != owner || ev.Config != acc.Config {
		t.Fatalf("event %+v", env.events[0])
	}
}

func TestReinitializeIsNoop(t *testing.T) {
	env := newTestEnv(t)
	owner := tAddr(1)
	acc := env.setup(owner, 0)
	env.mustExec(owner, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 9})
	before := env.config(acc)
	nativeBefore := env.ledger.NativeBalance(owner)

	env.mustExec(owner, sysaction.ActionInitialize, sysaction.InitializePayload{NewOwner: owner, Price: 5, PriceExponent: 5})
	if after := env.config(acc); after != before {
		t.Fatalf("re-initialize changed config:\nbefore %s\nafter %s", spew.Sdump(before), spew.Sdump(after))
	}
	if len(env.events) != 0 {
		t.Fatalf("re-initialize emitted %v", env.events)
	}
	if env.ledger.NativeBalance(owner) != nativeBefore {
		t.Fatal("re-initialize moved native funds")
	}
}

func TestInitializeForOtherOwner(t *testing.T) {
	env := newTestEnv(t)
	creator, newOwner := tAddr(1), tAddr(2)
	env.ledger.CreditNative(creator, 10_000_000)
	env.mustExec(creator, sysaction.ActionInitialize, sysaction.InitializePayload{NewOwner: newOwner, Price: testPrice, PriceExponent: testExpo})

	// The creator is no longer the recorded owner and cannot re-enter.
	err := env.exec(creator, sysaction.ActionInitialize, sysaction.InitializePayload{NewOwner: creator})
	if !errors.Is(err, faults.ErrNotAllowedOwner) {
		t.Fatalf("unexpected error: %v", err)
	}
	// The config was created at the creator's identity but re-derives from the
	// new owner, so no later access can address it.
	acc := sysaction.Accounts{Config: derive.Config(creator)}
	err = env.exec(newOwner, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc, Paused: true})
	if !errors.Is(err, faults.ErrIdentityMismatch) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStakeUnstakeExactFormula(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 300_000_000)
	env.mint(stakeAsset, user, 100_000_000+testFee)
	env.mint(rewardAsset, owner, 1_000)
	env.mustExec(owner, sysaction.ActionDepositReward, sysaction.AmountPayload{Accounts: acc, Amount: 1_000})

	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 100_000_000})
	if ev, ok := env.events[0].(Staked); !ok || ev.Amount != 100_000_000 || ev.Fee != testFee || ev.Staker != user {
		t.Fatalf("stake event %+v", env.events)
	}
	if bal := env.ledger.BalanceOf(stakeAsset, user); bal != 0 {
		t.Fatalf("user stake balance %d, fee not burned", bal)
	}
	if supply := env.ledger.Supply(stakeAsset); supply != 100_000_000 {
		t.Fatalf("stake supply %d after burn", supply)
	}

	env.now = 86400
	pending, err := PendingReward(env.db, acc.Config, user, env.now)
	if err != nil {
		t.Fatal(err)
	}
	if pending != 333 {
		t.Fatalf("pending %d, want 333", pending)
	}

	env.mustExec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc})
	ev, ok := env.events[0].(Unstaked)
	if !ok || ev.Amount != 100_000_000 || ev.Reward != 0 {
		t.Fatalf("unstake event %+v", env.events)
	}
	if bal := env.ledger.BalanceOf(stakeAsset, user); bal != 100_000_000 {
		t.Fatalf("principal not returned: %d", bal)
	}
	if _, ok := env.position(acc, user); ok {
		t.Fatal("position survived unstake")
	}
	if _, err := PendingReward(env.db, acc.Config, user, env.now); !errors.Is(err, faults.ErrNotStaked) {
		t.Fatalf("pending after unstake: %v", err)
	}
}

// referenceReward simulates accrual with banking at every principal change.
func referenceReward(precision, cycle, cycleStaked uint64, stakes []struct{ at, amount uint64 }, end uint64) uint64 {
	var banked, principal, since uint64
	for _, s := range stakes {
		if principal > 0 {
			banked += (s.at - since) * principal * precision / (cycle * cycleStaked)
		}
		principal += s.amount
		since = s.at
	}
	return banked + (end-since)*principal*precision/(cycle*cycleStaked)
}

func TestBankingCorrectness(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 1_000_000)
	env.mint(stakeAsset, user, 10_000_000)
	env.mint(rewardAsset, owner, 1_000_000)
	env.mustExec(owner, sysaction.ActionDepositReward, sysaction.AmountPayload{Accounts: acc, Amount: 1_000_000})

	stakes := []struct{ at, amount uint64 }{{0, 500_000}, {86400, 250_000}, {2 * 86400, 250_000}}
	for _, s := range stakes {
		env.now = int64(s.at)
		env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: s.amount})
	}
	pos, ok := env.position(acc, user)
	if !ok {
		t.Fatal("no position")
	}
	// 500 for the first day, 750 for the second. The debt replaces rather
	// than accumulates the previously banked amount.
	if pos.RewardDebt != 1250 {
		t.Fatalf("reward debt %d, want 1250", pos.RewardDebt)
	}
	if pos.Amount != 1_000_000 || pos.StakedAt != 2*86400 {
		t.Fatalf("position %+v", pos)
	}

	end := uint64(5 * 86400)
	env.now = int64(end)
	want := referenceReward(1000, 86400, 1_000_000, stakes, end)
	pending, err := PendingReward(env.db, acc.Config, user, env.now)
	if err != nil {
		t.Fatal(err)
	}
	if pending != want {
		t.Fatalf("pending %d, reference %d", pending, want)
	}
	env.mustExec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc})
	if got := env.ledger.BalanceOf(rewardAsset, user); got != want/1000 {
		t.Fatalf("reward paid %d, want %d", got, want/1000)
	}
}

func TestConservation(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	env.mint(stakeAsset, user, 1_000_000)
	vault := derive.TokenVault(acc.Config, stakeAsset)

	for i, amount := range []uint64{10, 2000, 35, 400_000} {
		env.now = int64(i * 1000)
		env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: amount})
		pos, _ := env.position(acc, user)
		if got := env.ledger.BalanceOf(stakeAsset, vault); got != pos.Amount {
			t.Fatalf("after stake %d: vault %d, position %d", i, got, pos.Amount)
		}
	}
}

func TestStrictMaxStakeBound(t *testing.T) {
	env := newTestEnv(t)
	owner, alice, bob := tAddr(1), tAddr(2), tAddr(3)
	acc := env.setup(owner, 0)
	env.mustExec(owner, sysaction.ActionSetMaxStakeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 1000})
	env.mint(stakeAsset, alice, 10_000)
	env.mint(stakeAsset, bob, 10_000)

	// Exactly the max is rejected: the bound is exclusive.
	err := env.exec(bob, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 1000})
	if !errors.Is(err, faults.ErrMaxStakingAmountAttained) {
		t.Fatalf("stake of exactly max: %v", err)
	}
	env.mustExec(alice, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 999})
	err = env.exec(alice, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 1})
	if !errors.Is(err, faults.ErrMaxStakingAmountAttained) {
		t.Fatalf("topping up to max: %v", err)
	}
	if pos, _ := env.position(acc, alice); pos.Amount != 999 {
		t.Fatalf("rejected stake mutated position: %+v", pos)
	}
}

func TestPauseGate(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	env.mint(stakeAsset, user, 10_000)
	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 100})
	env.mustExec(owner, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc, Paused: true})

	if err := env.exec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 100}); !errors.Is(err, faults.ErrPaused) {
		t.Fatalf("stake while paused: %v", err)
	}
	if err := env.exec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc}); !errors.Is(err, faults.Validation) {
		t.Fatalf("unstake while paused: %v", err)
	}
	// Admin setters keep working.
	env.mustExec(owner, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 7})
	if env.config(acc).StakeFeeAmount != 7 {
		t.Fatal("setter ignored while paused")
	}
	env.mustExec(owner, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc, Paused: false})
	env.mustExec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc})
}

func TestAuthorization(t *testing.T) {
	env := newTestEnv(t)
	owner, stranger, minter := tAddr(1), tAddr(2), tAddr(3)
	acc := env.setup(owner, 0)
	env.mustExec(owner, sysaction.ActionSetMinterRole, sysaction.SetMinterRolePayload{Accounts: acc, Identity: minter, Enabled: true})
	nativeVault, tokenVault := derive.NativeVault(acc.Config), derive.TokenVault(acc.Config, stakeAsset)
	env.mint(stakeAsset, tokenVault, 1_000)
	before := env.config(acc)
	balances := func() [4]uint64 {
		return [4]uint64{
			env.ledger.NativeBalance(nativeVault),
			env.ledger.NativeBalance(owner),
			env.ledger.BalanceOf(stakeAsset, tokenVault),
			env.ledger.BalanceOf(stakeAsset, owner),
		}
	}
	beforeBalances := balances()

	tests := []struct {
		from    common.Address
		kind    sysaction.ActionKind
		payload interface{}
		want    error
	}{
		{stranger, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc, Paused: true}, faults.ErrNotOwner},
		{minter, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc, Paused: true}, faults.ErrNotOwner},
		{stranger, sysaction.ActionSetMinterRole, sysaction.SetMinterRolePayload{Accounts: acc, Identity: stranger, Enabled: true}, faults.ErrNotOwner},
		{stranger, sysaction.ActionWithdrawNative, sysaction.AmountPayload{Accounts: acc, Amount: 1}, faults.ErrNotOwner},
		{stranger, sysaction.ActionWithdrawToken, sysaction.WithdrawTokenPayload{Accounts: acc, Asset: stakeAsset, Amount: 1}, faults.ErrNotOwner},
		{stranger, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 1}, faults.ErrNotMinter},
		{stranger, sysaction.ActionSetMaxStakeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 1}, faults.ErrNotMinter},
		{stranger, sysaction.ActionSetCycleStakedAmount, sysaction.SetValuePayload{Accounts: acc, Value: 1}, faults.ErrNotMinter},
		{stranger, sysaction.ActionSetCycleDuration, sysaction.SetValuePayload{Accounts: acc, Value: 1}, faults.ErrNotMinter},
		{stranger, sysaction.ActionSetStakeAsset, sysaction.SetAssetPayload{Accounts: acc, Asset: rewardAsset}, faults.ErrNotMinter},
		{stranger, sysaction.ActionSetRewardAsset, sysaction.SetAssetPayload{Accounts: acc, Asset: stakeAsset}, faults.ErrNotMinter},
		{stranger, sysaction.ActionDepositReward, sysaction.AmountPayload{Accounts: acc, Amount: 0}, faults.ErrNotMinter},
		// A minter supplying someone else's minter record.
		{minter, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{
			Accounts: sysaction.Accounts{Config: acc.Config, Minter: derive.Minter(acc.Config, owner)}, Value: 1,
		}, faults.ErrIdentityMismatch},
		{common.Address{}, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc}, faults.ErrInvalidSignature},
	}
	for i, tt := range tests {
		err := env.exec(tt.from, tt.kind, tt.payload)
		if !errors.Is(err, tt.want) {
			t.Errorf("test %d (%s): got %v, want %v", i, tt.kind, err, tt.want)
		}
		if !errors.Is(err, faults.Authorization) {
			t.Errorf("test %d (%s): %v not classified as authorization", i, tt.kind, err)
		}
	}
	if after := env.config(acc); after != before {
		t.Fatalf("rejected calls mutated config:\nbefore %s\nafter %s", spew.Sdump(before), spew.Sdump(after))
	}
	if after := balances(); after != beforeBalances {
		t.Fatalf("rejected calls moved funds: before %v, after %v", beforeBalances, after)
	}
	if rec := ReadMinter(env.db, derive.Minter(acc.Config, stranger)); rec.IsMinter {
		t.Fatalf("rejected grant produced minter record %+v", rec)
	}

	// The granted minter may tune parameters until revoked.
	env.mustExec(minter, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 5})
	env.mustExec(owner, sysaction.ActionSetMinterRole, sysaction.SetMinterRolePayload{Accounts: acc, Identity: minter, Enabled: false})
	if rec := ReadMinter(env.db, derive.Minter(acc.Config, minter)); rec.IsMinter || rec.Identity != minter {
		t.Fatalf("revoked record %+v", rec)
	}
	if err := env.exec(minter, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{Accounts: acc, Value: 6}); !errors.Is(err, faults.ErrNotMinter) {
		t.Fatalf("revoked minter: %v", err)
	}
}

func TestIdentityVerification(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	env.mint(stakeAsset, user, 10_000)

	wrong := []sysaction.Accounts{
		{Config: acc.Config, Position: derive.Position(acc.Config, owner)},
		{Config: acc.Config, Vault: derive.TokenVault(acc.Config, rewardAsset)},
		{Config: derive.Config(user)},
		{},
	}
	for i, a := range wrong {
		err := env.exec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: a, Amount: 10})
		if !errors.Is(err, faults.Authorization) && !errors.Is(err, faults.ErrNotInitialized) {
			t.Errorf("accounts %d: unexpected error %v", i, err)
		}
	}
	// Matching identities are accepted.
	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: sysaction.Accounts{
		Config:   acc.Config,
		Position: derive.Position(acc.Config, user),
		Vault:    derive.TokenVault(acc.Config, stakeAsset),
	}, Amount: 10})
}

func TestStakeValidation(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	env.mint(stakeAsset, user, 10_000)

	if err := env.exec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc}); !errors.Is(err, faults.ErrZeroAmount) {
		t.Fatalf("zero stake: %v", err)
	}
	if err := env.exec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc}); !errors.Is(err, faults.ErrNotStaked) {
		t.Fatalf("unstake without position: %v", err)
	}
	uninit := sysaction.Accounts{Config: derive.Config(tAddr(9))}
	if err := env.exec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: uninit, Amount: 1}); !errors.Is(err, faults.ErrNotInitialized) {
		t.Fatalf("stake on missing config: %v", err)
	}

	env.now = 100
	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 10})
	env.now = 50
	if err := env.exec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 10}); !errors.Is(err, faults.ErrUnderflow) {
		t.Fatalf("clock going backwards: %v", err)
	}
}

func TestFailedStakeHasNoEffect(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	// Enough for the principal but not for the burned fee.
	env.mint(stakeAsset, user, 100)

	err := env.exec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 100})
	if !errors.Is(err, faults.ErrInsufficientBalance) {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := env.position(acc, user); ok {
		t.Fatal("failed stake left a position")
	}
	if bal := env.ledger.BalanceOf(stakeAsset, user); bal != 100 {
		t.Fatalf("failed stake moved funds: %d", bal)
	}
	if len(env.events) != 0 {
		t.Fatalf("failed stake emitted %v", env.events)
	}
}

func TestUnstakeNeedsRewardVault(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 1_000_000)
	env.mint(stakeAsset, user, 10_000)
	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 1000})

	// One scaled unit is pending, which pays out zero but still moves through
	// the reward vault.
	env.now = 86400
	err := env.exec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc})
	if !errors.Is(err, faults.ErrAssetMismatch) {
		t.Fatalf("unstake without reward vault: %v", err)
	}
	if pos, ok := env.position(acc, user); !ok || pos.Amount != 1000 {
		t.Fatalf("failed unstake touched position: %+v", pos)
	}
	// Funding the reward vault unblocks it.
	env.mustExec(owner, sysaction.ActionDepositReward, sysaction.AmountPayload{Accounts: acc, Amount: 0})
	env.mustExec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc})
}

func TestZeroCycleDurationHazard(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	env.mint(stakeAsset, user, 10_000)
	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 1000})

	// The setter accepts a value that breaks accrual.
	env.mustExec(owner, sysaction.ActionSetCycleDuration, sysaction.SetValuePayload{Accounts: acc, Value: 0})
	if _, err := PendingReward(env.db, acc.Config, user, 10); !errors.Is(err, faults.ErrDivisionByZero) {
		t.Fatalf("pending with zero cycle: %v", err)
	}
	if err := env.exec(user, sysaction.ActionUnstake, sysaction.UnstakePayload{Accounts: acc}); !errors.Is(err, faults.ErrDivisionByZero) {
		t.Fatalf("unstake with zero cycle: %v", err)
	}
	if err := env.exec(owner, sysaction.ActionSetCycleDuration, sysaction.SetValuePayload{Accounts: acc, Value: 1 << 32}); !errors.Is(err, faults.ErrInvalidPayload) {
		t.Fatalf("32-bit overflow: %v", err)
	}
}

func TestSetAssets(t *testing.T) {
	env := newTestEnv(t)
	owner := tAddr(1)
	acc := env.setup(owner, 0)
	other := tAddr(0x77)

	if err := env.exec(owner, sysaction.ActionSetStakeAsset, sysaction.SetAssetPayload{Accounts: acc, Asset: other}); !errors.Is(err, faults.ErrUnknownAsset) {
		t.Fatalf("unknown asset: %v", err)
	}
	if err := env.ledger.RegisterAsset(other, 6); err != nil {
		t.Fatal(err)
	}
	env.mustExec(owner, sysaction.ActionSetStakeAsset, sysaction.SetAssetPayload{Accounts: acc, Asset: other})
	env.mustExec(owner, sysaction.ActionSetRewardAsset, sysaction.SetAssetPayload{Accounts: acc, Asset: other})
	cfg := env.config(acc)
	if cfg.StakeAsset != other || cfg.RewardAsset != other {
		t.Fatalf("assets %x %x", cfg.StakeAsset, cfg.RewardAsset)
	}
}

func TestWithdraw(t *testing.T) {
	env := newTestEnv(t)
	owner, user := tAddr(1), tAddr(2)
	acc := env.setup(owner, 0)
	env.mint(stakeAsset, user, 10_000)
	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: acc, Amount: 5000})

	// The sweep is not limited by staking liabilities.
	env.mustExec(owner, sysaction.ActionWithdrawToken, sysaction.WithdrawTokenPayload{Accounts: acc, Asset: stakeAsset, Amount: 5000})
	if bal := env.ledger.BalanceOf(stakeAsset, owner); bal != 5000 {
		t.Fatalf("owner token balance %d", bal)
	}
	nativeBefore := env.ledger.NativeBalance(owner)
	env.mustExec(owner, sysaction.ActionWithdrawNative, sysaction.AmountPayload{Accounts: acc, Amount: params.VaultMinimumBalance})
	if got := env.ledger.NativeBalance(owner) - nativeBefore; got != params.VaultMinimumBalance {
		t.Fatalf("native sweep moved %d", got)
	}
	err := env.exec(owner, sysaction.ActionWithdrawNative, sysaction.AmountPayload{Accounts: acc, Amount: 1})
	if !errors.Is(err, faults.ErrInsufficientBalance) {
		t.Fatalf("overdrawn vault: %v", err)
	}
}

func TestConfigsIsolated(t *testing.T) {
	env := newTestEnv(t)
	ownerA, ownerB, user := tAddr(1), tAddr(2), tAddr(3)
	accA := env.setup(ownerA, 0)
	accB := env.setup(ownerB, 0)
	env.mint(stakeAsset, user, 10_000)

	env.mustExec(user, sysaction.ActionStake, sysaction.AmountPayload{Accounts: accA, Amount: 100})
	if _, ok := env.position(accB, user); ok {
		t.Fatal("position leaked into another config")
	}
	env.mustExec(ownerB, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: accB, Paused: true})
	if env.config(accA).Paused {
		t.Fatal("pause leaked into another config")
	}
	// Owner A holds no rights over config B.
	if err := env.exec(ownerA, sysaction.ActionSetStakeFeeAmount, sysaction.SetValuePayload{Accounts: accB, Value: 1}); !errors.Is(err, faults.ErrNotMinter) {
		t.Fatalf("cross-config minter: %v", err)
	}
}

func TestGuardReportsPreconditionName(t *testing.T) {
	want := []string{"signed", "config-identity", "initialized", "not-paused", "position-identity", "vault-identity"}
	got := participantGuard.names()
	if len(got) != len(want) {
		t.Fatalf("participant guard %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("participant guard %v, want %v", got, want)
		}
	}

	env := newTestEnv(t)
	owner := tAddr(1)
	acc := env.setup(owner, 0)
	env.mustExec(owner, sysaction.ActionSetPaused, sysaction.SetPausedPayload{Accounts: acc, Paused: true})
	c := newCall(&sysaction.Context{From: tAddr(2), StateDB: env.db, Ledger: env.ledger}, acc)
	c.vault = stakeVault
	err := participantGuard.evaluate(c)
	if err == nil || err.Error() != "not-paused: validation: paused" {
		t.Fatalf("unexpected guard error: %v", err)
	}
}
