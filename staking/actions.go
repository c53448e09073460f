package staking

import (
	"fmt"
	gomath "math"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/custody"
	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/reward"
	"github.com/tos-network/gstake/state"
	"github.com/tos-network/gstake/sysaction"
)

// Initialize creates the global config of the caller with newOwner as owner
// and grants newOwner the minter role. The native vault is topped up to its
// minimum balance from the caller. Re-entry by the recorded owner changes
// nothing.
func Initialize(ctx *sysaction.Context, p *sysaction.InitializePayload) error {
	c := newCall(ctx, p.Accounts)
	c.minterOf = p.NewOwner
	c.vault = nativeVault
	if err := initializeGuard.evaluate(c); err != nil {
		return err
	}
	if c.cfg.Initialized {
		log.Debug("staking: config already initialized", "config", c.configID, "owner", c.cfg.Owner)
		return nil
	}
	cfg := GlobalConfig{
		Initialized:       true,
		Owner:             p.NewOwner,
		NativeVault:       c.vaultID,
		StakeAsset:        params.DefaultStakeAsset,
		RewardAsset:       params.DefaultRewardAsset,
		Precision:         params.DefaultPrecision,
		StakeFeeAmount:    params.DefaultStakeFeeAmount,
		MaxStakeAmount:    params.DefaultMaxStakeAmount,
		CycleStakedAmount: params.DefaultCycleStakedAmount,
		CycleDuration:     params.DefaultCycleDuration,
		RewardPrice:       p.Price,
		RewardPriceExpo:   p.PriceExponent,
	}
	writeConfig(ctx.StateDB, c.configID, &cfg)
	writeMinter(ctx.StateDB, c.minterID, &MinterRecord{Identity: p.NewOwner, IsMinter: true})

	// The creator pays for the vault of the config it created.
	if _, err := custody.New(ctx.Ledger, ctx.From).FundNativeVault(ctx.From); err != nil {
		return err
	}
	ctx.Emit(Initialized{Config: c.configID, Owner: p.NewOwner})
	log.Debug("staking: initialized", "config", c.configID, "owner", p.NewOwner)
	return nil
}

// Stake adds amount to the caller's position. Reward accrued so far is banked
// into the position's reward debt and the accrual clock restarts for the
// combined principal. The stake fee is burned from the caller's balance.
func Stake(ctx *sysaction.Context, p *sysaction.AmountPayload) error {
	c := newCall(ctx, p.Accounts)
	c.vault = stakeVault
	if err := participantGuard.evaluate(c); err != nil {
		return err
	}
	if p.Amount == 0 {
		return faults.ErrZeroAmount
	}
	pos, exists := ReadPosition(ctx.StateDB, c.positionID)
	total, overflow := math.SafeAdd(pos.Amount, p.Amount)
	if overflow {
		return faults.ErrOverflow
	}
	if total >= c.cfg.MaxStakeAmount {
		return fmt.Errorf("%w: %d staked, max %d", faults.ErrMaxStakingAmountAttained, total, c.cfg.MaxStakeAmount)
	}
	if exists {
		pending, err := reward.Pending(c.cfg.Rate(), pos.Accrual(), ctx.Now)
		if err != nil {
			return err
		}
		pos.RewardDebt = pending
	}
	pos.Staker = ctx.From
	pos.Amount = total
	pos.StakedAt = ctx.Now
	writePosition(ctx.StateDB, c.positionID, &pos)

	if err := custody.New(ctx.Ledger, c.cfg.Owner).Deposit(c.cfg.StakeAsset, ctx.From, p.Amount); err != nil {
		return err
	}
	decimals, err := ctx.Ledger.Decimals(c.cfg.StakeAsset)
	if err != nil {
		return err
	}
	fee, err := reward.StakeFee(c.cfg.StakeFeeAmount, decimals, c.cfg.RewardPrice, c.cfg.RewardPriceExpo)
	if err != nil {
		return err
	}
	if fee > 0 {
		if err := ctx.Ledger.Burn(c.cfg.StakeAsset, ctx.From, fee, assetledger.Plain(ctx.From)); err != nil {
			return fmt.Errorf("burn stake fee: %w", err)
		}
	}
	ctx.Emit(Staked{Staker: ctx.From, Amount: p.Amount, Fee: fee})
	log.Debug("staking: staked", "config", c.configID, "staker", ctx.From, "amount", p.Amount, "total", total, "fee", fee, "debt", pos.RewardDebt)
	return nil
}

// Unstake pays the caller's pending reward, returns the principal and
// destroys the position.
func Unstake(ctx *sysaction.Context, p *sysaction.UnstakePayload) error {
	c := newCall(ctx, p.Accounts)
	c.vault = stakeVault
	if err := participantGuard.evaluate(c); err != nil {
		return err
	}
	pos, ok := ReadPosition(ctx.StateDB, c.positionID)
	if !ok {
		return faults.ErrNotStaked
	}
	pending, err := reward.Pending(c.cfg.Rate(), pos.Accrual(), ctx.Now)
	if err != nil {
		return err
	}
	cust := custody.New(ctx.Ledger, c.cfg.Owner)

	var paid uint64
	if pending > 0 {
		if paid, err = reward.Payout(c.cfg.Precision, pending); err != nil {
			return err
		}
		if err := cust.Payout(c.cfg.RewardAsset, ctx.From, paid); err != nil {
			return fmt.Errorf("pay reward: %w", err)
		}
	}
	if err := cust.Payout(c.cfg.StakeAsset, ctx.From, pos.Amount); err != nil {
		return fmt.Errorf("return stake: %w", err)
	}
	destroyPosition(ctx.StateDB, c.positionID)

	ctx.Emit(Unstaked{Staker: ctx.From, Amount: pos.Amount, Reward: paid})
	log.Debug("staking: unstaked", "config", c.configID, "staker", ctx.From, "amount", pos.Amount, "pending", pending, "reward", paid)
	return nil
}

// DepositReward moves amount of the reward asset from the minter into the
// reward vault.
func DepositReward(ctx *sysaction.Context, p *sysaction.AmountPayload) error {
	c := newCall(ctx, p.Accounts)
	c.vault = rewardVault
	if err := minterVaultGuard.evaluate(c); err != nil {
		return err
	}
	if err := custody.New(ctx.Ledger, c.cfg.Owner).Deposit(c.cfg.RewardAsset, ctx.From, p.Amount); err != nil {
		return err
	}
	ctx.Emit(RewardDeposited{Minter: ctx.From, Amount: p.Amount})
	log.Debug("staking: reward deposited", "config", c.configID, "minter", ctx.From, "amount", p.Amount)
	return nil
}

// setConfig runs a single-field config update under g. No cross-field
// validation is applied.
func setConfig(ctx *sysaction.Context, accounts sysaction.Accounts, g guard, field string, update func(cfg *GlobalConfig) error) error {
	c := newCall(ctx, accounts)
	if err := g.evaluate(c); err != nil {
		return err
	}
	if err := update(&c.cfg); err != nil {
		return err
	}
	writeConfig(ctx.StateDB, c.configID, &c.cfg)
	log.Debug("staking: config updated", "config", c.configID, "field", field, "by", ctx.From)
	return nil
}

// SetStakeFeeAmount sets the stake fee, quoted in reward-asset units.
func SetStakeFeeAmount(ctx *sysaction.Context, p *sysaction.SetValuePayload) error {
	return setConfig(ctx, p.Accounts, minterGuard, "stakeFeeAmount", func(cfg *GlobalConfig) error {
		cfg.StakeFeeAmount = p.Value
		return nil
	})
}

// SetMaxStakeAmount sets the exclusive bound on a position's amount.
func SetMaxStakeAmount(ctx *sysaction.Context, p *sysaction.SetValuePayload) error {
	return setConfig(ctx, p.Accounts, minterGuard, "maxStakeAmount", func(cfg *GlobalConfig) error {
		cfg.MaxStakeAmount = p.Value
		return nil
	})
}

// SetCycleStakedAmount sets the reference staked amount of the accrual rate.
func SetCycleStakedAmount(ctx *sysaction.Context, p *sysaction.SetValuePayload) error {
	return setConfig(ctx, p.Accounts, minterGuard, "cycleStakedAmount", func(cfg *GlobalConfig) error {
		cfg.CycleStakedAmount = p.Value
		return nil
	})
}

// SetCycleDuration sets the reference period of the accrual rate in seconds.
func SetCycleDuration(ctx *sysaction.Context, p *sysaction.SetValuePayload) error {
	return setConfig(ctx, p.Accounts, minterGuard, "cycleDuration", func(cfg *GlobalConfig) error {
		if p.Value > gomath.MaxUint32 {
			return fmt.Errorf("%w: cycle duration %d exceeds 32 bits", faults.ErrInvalidPayload, p.Value)
		}
		cfg.CycleDuration = uint32(p.Value)
		return nil
	})
}

// SetStakeAsset selects the stake asset. The asset must be known to the ledger.
func SetStakeAsset(ctx *sysaction.Context, p *sysaction.SetAssetPayload) error {
	return setConfig(ctx, p.Accounts, minterGuard, "stakeAsset", func(cfg *GlobalConfig) error {
		if _, err := ctx.Ledger.Decimals(p.Asset); err != nil {
			return err
		}
		cfg.StakeAsset = p.Asset
		return nil
	})
}

// SetRewardAsset selects the reward asset. The asset must be known to the
// ledger.
func SetRewardAsset(ctx *sysaction.Context, p *sysaction.SetAssetPayload) error {
	return setConfig(ctx, p.Accounts, minterGuard, "rewardAsset", func(cfg *GlobalConfig) error {
		if _, err := ctx.Ledger.Decimals(p.Asset); err != nil {
			return err
		}
		cfg.RewardAsset = p.Asset
		return nil
	})
}

// SetPaused toggles participation.
func SetPaused(ctx *sysaction.Context, p *sysaction.SetPausedPayload) error {
	return setConfig(ctx, p.Accounts, ownerGuard, "paused", func(cfg *GlobalConfig) error {
		cfg.Paused = p.Paused
		return nil
	})
}

// SetMinterRole grants or revokes the minter role of an identity. The record
// is created on first grant and kept on revocation.
func SetMinterRole(ctx *sysaction.Context, p *sysaction.SetMinterRolePayload) error {
	c := newCall(ctx, p.Accounts)
	c.minterOf = p.Identity
	if err := minterRoleGuard.evaluate(c); err != nil {
		return err
	}
	writeMinter(ctx.StateDB, c.minterID, &MinterRecord{Identity: p.Identity, IsMinter: p.Enabled})
	log.Debug("staking: minter role set", "config", c.configID, "identity", p.Identity, "enabled", p.Enabled)
	return nil
}

// WithdrawNative sweeps amount of native currency from the native vault to
// the owner.
func WithdrawNative(ctx *sysaction.Context, p *sysaction.AmountPayload) error {
	c := newCall(ctx, p.Accounts)
	c.vault = nativeVault
	if err := ownerVaultGuard.evaluate(c); err != nil {
		return err
	}
	if err := custody.New(ctx.Ledger, c.cfg.Owner).SweepNative(p.Amount); err != nil {
		return err
	}
	log.Info("staking: native vault swept", "config", c.configID, "owner", c.cfg.Owner, "amount", p.Amount)
	return nil
}

// WithdrawToken sweeps amount of asset from its vault to the owner.
func WithdrawToken(ctx *sysaction.Context, p *sysaction.WithdrawTokenPayload) error {
	c := newCall(ctx, p.Accounts)
	c.vault = tokenVault(p.Asset)
	if err := ownerVaultGuard.evaluate(c); err != nil {
		return err
	}
	if err := custody.New(ctx.Ledger, c.cfg.Owner).SweepToken(p.Asset, p.Amount); err != nil {
		return err
	}
	log.Info("staking: token vault swept", "config", c.configID, "owner", c.cfg.Owner, "asset", p.Asset, "amount", p.Amount)
	return nil
}

// PendingReward returns the scaled reward owed to user under config as of now.
func PendingReward(db state.Store, config, user common.Address, now int64) (uint64, error) {
	cfg := ReadConfig(db, config)
	if !cfg.Initialized {
		return 0, faults.ErrNotInitialized
	}
	if _, err := checkIdentity(config, derive.Config(cfg.Owner)); err != nil {
		return 0, err
	}
	pos, ok := ReadPosition(db, derive.Position(config, user))
	if !ok {
		return 0, faults.ErrNotStaked
	}
	return reward.Pending(cfg.Rate(), pos.Accrual(), now)
}
