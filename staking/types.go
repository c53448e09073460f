package staking

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gstake/reward"
)

// GlobalConfig is the protocol configuration of one owner.
type GlobalConfig struct {
	Initialized       bool           `json:"initialized"`
	Paused            bool           `json:"paused"`
	Owner             common.Address `json:"owner"`
	NativeVault       common.Address `json:"nativeVault"`
	StakeAsset        common.Address `json:"stakeAsset"`
	RewardAsset       common.Address `json:"rewardAsset"`
	Precision         uint32         `json:"precision"`
	StakeFeeAmount    uint64         `json:"stakeFeeAmount"`
	MaxStakeAmount    uint64         `json:"maxStakeAmount"`
	CycleStakedAmount uint64         `json:"cycleStakedAmount"`
	CycleDuration     uint32         `json:"cycleDuration"`
	RewardPrice       uint64         `json:"rewardPrice"`
	RewardPriceExpo   uint64         `json:"rewardPriceExponent"`
}

// Rate returns the accrual rate of the config.
func (c *GlobalConfig) Rate() reward.Rate {
	return reward.Rate{
		Precision:         c.Precision,
		CycleDuration:     c.CycleDuration,
		CycleStakedAmount: c.CycleStakedAmount,
	}
}

// MinterRecord grants minter rights to Identity under one config. Revocation
// clears IsMinter; the record is never removed.
type MinterRecord struct {
	Identity common.Address `json:"identity"`
	IsMinter bool           `json:"isMinter"`
}

// StakedPosition is the stake of one user under one config. A stored position
// always has a non-zero Amount.
type StakedPosition struct {
	Staker     common.Address `json:"staker"`
	Amount     uint64         `json:"amount"`
	StakedAt   int64          `json:"stakedAt"`
	RewardDebt uint64         `json:"rewardDebt"`
}

// Accrual returns the part of the position the reward engine reads.
func (p *StakedPosition) Accrual() reward.Accrual {
	return reward.Accrual{Amount: p.Amount, Since: p.StakedAt, Debt: p.RewardDebt}
}

// Events.

// Initialized is emitted when a config is created.
type Initialized struct {
	Config common.Address `json:"config"`
	Owner  common.Address `json:"owner"`
}

// Staked is emitted by a successful stake.
type Staked struct {
	Staker common.Address `json:"staker"`
	Amount uint64         `json:"amount"`
	Fee    uint64         `json:"fee"`
}

// Unstaked is emitted by a successful unstake.
type Unstaked struct {
	Staker common.Address `json:"staker"`
	Amount uint64         `json:"amount"`
	Reward uint64         `json:"reward"`
}

// RewardDeposited is emitted when a minter funds the reward vault.
type RewardDeposited struct {
	Minter common.Address `json:"minter"`
	Amount uint64         `json:"amount"`
}

func (Initialized) EventName() string     { return "Initialized" }
func (Staked) EventName() string          { return "Staked" }
func (Unstaked) EventName() string        { return "Unstaked" }
func (RewardDeposited) EventName() string { return "RewardDeposited" }
