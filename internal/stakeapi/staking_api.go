// Package stakeapi provides the staking_* RPC namespace for gstake.
package stakeapi

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/core"
	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/reward"
	"github.com/tos-network/gstake/staking"
	"github.com/tos-network/gstake/state"
	"github.com/tos-network/gstake/sysaction"
)

// Backend is the processor surface the API serves.
type Backend interface {
	Apply(env *sysaction.Envelope) (*core.Receipt, error)
	SubscribeReceipts(ch chan<- *core.Receipt) event.Subscription
	View(fn func(db state.Store, ledger *assetledger.StateLedger) error) error
	PendingReward(config, user common.Address) (uint64, error)
	ForEachStorage(addr common.Address, cb func(slot, value common.Hash) bool) error
	Nonce(addr common.Address) uint64
}

var _ Backend = (*core.Processor)(nil)

// APIs returns the RPC services offered over b.
func APIs(b Backend) []rpc.API {
	return []rpc.API{{
		Namespace: "staking",
		Service:   NewStakingAPI(b),
	}}
}

// StakingAPI implements the staking_* RPC namespace.
type StakingAPI struct {
	b Backend
}

// NewStakingAPI creates a StakingAPI backed by b.
func NewStakingAPI(b Backend) *StakingAPI {
	return &StakingAPI{b: b}
}

// Config returns the global config stored at config.
func (s *StakingAPI) Config(_ context.Context, config common.Address) (*staking.GlobalConfig, error) {
	var cfg staking.GlobalConfig
	err := s.b.View(func(db state.Store, _ *assetledger.StateLedger) error {
		cfg = staking.ReadConfig(db, config)
		return nil
	})
	if err != nil || !cfg.Initialized {
		return nil, err
	}
	return &cfg, nil
}

// Minter returns the minter record of minter under config.
func (s *StakingAPI) Minter(_ context.Context, config, minter common.Address) (staking.MinterRecord, error) {
	var rec staking.MinterRecord
	err := s.b.View(func(db state.Store, _ *assetledger.StateLedger) error {
		rec = staking.ReadMinter(db, derive.Minter(config, minter))
		return nil
	})
	return rec, err
}

// Position returns the staked position of user under config, or null.
func (s *StakingAPI) Position(_ context.Context, config, user common.Address) (*staking.StakedPosition, error) {
	var (
		pos staking.StakedPosition
		ok  bool
	)
	err := s.b.View(func(db state.Store, _ *assetledger.StateLedger) error {
		pos, ok = staking.ReadPosition(db, derive.Position(config, user))
		return nil
	})
	if err != nil || !ok {
		return nil, err
	}
	return &pos, nil
}

// PendingReward returns the scaled reward owed to user under config now.
func (s *StakingAPI) PendingReward(_ context.Context, config, user common.Address) (hexutil.Uint64, error) {
	pending, err := s.b.PendingReward(config, user)
	return hexutil.Uint64(pending), err
}

// Quote projects the scaled reward amount would accrue over seconds at the
// current rate of config.
func (s *StakingAPI) Quote(_ context.Context, config common.Address, amount, seconds hexutil.Uint64) (*hexutil.Big, error) {
	var rate reward.Rate
	err := s.b.View(func(db state.Store, _ *assetledger.StateLedger) error {
		cfg := staking.ReadConfig(db, config)
		if !cfg.Initialized {
			return errNotInitialized
		}
		rate = cfg.Rate()
		return nil
	})
	if err != nil {
		return nil, err
	}
	projected, err := reward.Project(rate, uint64(amount), uint64(seconds))
	if err != nil {
		return nil, err
	}
	return (*hexutil.Big)(projected.ToBig()), nil
}

var errNotInitialized = errors.New("config not initialized")

// Nonce returns the next envelope nonce expected from addr.
func (s *StakingAPI) Nonce(_ context.Context, addr common.Address) hexutil.Uint64 {
	return hexutil.Uint64(s.b.Nonce(addr))
}

// Balance returns holder's balance of asset.
func (s *StakingAPI) Balance(_ context.Context, asset, holder common.Address) (hexutil.Uint64, error) {
	var bal uint64
	err := s.b.View(func(_ state.Store, ledger *assetledger.StateLedger) error {
		if _, err := ledger.Decimals(asset); err != nil {
			return err
		}
		bal = ledger.BalanceOf(asset, holder)
		return nil
	})
	return hexutil.Uint64(bal), err
}

// NativeBalance returns holder's native currency balance.
func (s *StakingAPI) NativeBalance(_ context.Context, holder common.Address) (hexutil.Uint64, error) {
	var bal uint64
	err := s.b.View(func(_ state.Store, ledger *assetledger.StateLedger) error {
		bal = ledger.NativeBalance(holder)
		return nil
	})
	return hexutil.Uint64(bal), err
}

// DerivedAccounts lists the identities an action of user under owner's
// config touches.
type DerivedAccounts struct {
	Config      common.Address `json:"config"`
	NativeVault common.Address `json:"nativeVault"`
	Minter      common.Address `json:"minter"`
	Position    common.Address `json:"position"`
	StakeVault  common.Address `json:"stakeVault"`
	RewardVault common.Address `json:"rewardVault"`
}

// Accounts derives the identities of owner's config as seen by user. Vaults
// follow the configured assets, or the defaults before initialization.
func (s *StakingAPI) Accounts(_ context.Context, owner, user common.Address) (*DerivedAccounts, error) {
	config := derive.Config(owner)
	stakeAsset, rewardAsset := params.DefaultStakeAsset, params.DefaultRewardAsset
	err := s.b.View(func(db state.Store, _ *assetledger.StateLedger) error {
		if cfg := staking.ReadConfig(db, config); cfg.Initialized {
			stakeAsset, rewardAsset = cfg.StakeAsset, cfg.RewardAsset
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &DerivedAccounts{
		Config:      config,
		NativeVault: derive.NativeVault(config),
		Minter:      derive.Minter(config, user),
		Position:    derive.Position(config, user),
		StakeVault:  derive.TokenVault(config, stakeAsset),
		RewardVault: derive.TokenVault(config, rewardAsset),
	}, nil
}

// SendAction applies a signed envelope. Envelopes that fail verification are
// returned as errors; executed envelopes return their receipt, whose status
// tells whether the action took effect.
func (s *StakingAPI) SendAction(_ context.Context, env sysaction.Envelope) (*core.Receipt, error) {
	receipt, err := s.b.Apply(&env)
	if receipt != nil {
		return receipt, nil
	}
	return nil, err
}

// Storage dumps the slots held under addr.
func (s *StakingAPI) Storage(_ context.Context, addr common.Address) (map[common.Hash]common.Hash, error) {
	out := make(map[common.Hash]common.Hash)
	err := s.b.ForEachStorage(addr, func(slot, value common.Hash) bool {
		out[slot] = value
		return true
	})
	return out, err
}

// Receipts streams the receipt of every executed envelope.
func (s *StakingAPI) Receipts(ctx context.Context) (*rpc.Subscription, error) {
	notifier, supported := rpc.NotifierFromContext(ctx)
	if !supported {
		return &rpc.Subscription{}, rpc.ErrNotificationsUnsupported
	}
	rpcSub := notifier.CreateSubscription()

	go func() {
		receipts := make(chan *core.Receipt, 64)
		sub := s.b.SubscribeReceipts(receipts)
		defer sub.Unsubscribe()

		for {
			select {
			case r := <-receipts:
				notifier.Notify(rpcSub.ID, r)
			case <-rpcSub.Err():
				return
			case <-sub.Err():
				return
			}
		}
	}()
	return rpcSub, nil
}
