package staking

import (
	"fmt"

	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/sysaction"
)

func init() {
	sysaction.DefaultRegistry.Register(&stakingHandler{})
}

// stakingHandler implements sysaction.Handler for every staking action.
type stakingHandler struct{}

func (h *stakingHandler) CanHandle(kind sysaction.ActionKind) bool {
	for _, k := range sysaction.AllActions {
		if k == kind {
			return true
		}
	}
	return false
}

func decode(sa *sysaction.SysAction, dst interface{}) error {
	if err := sysaction.DecodePayload(sa, dst); err != nil {
		return fmt.Errorf("%w: %v", faults.ErrInvalidPayload, err)
	}
	return nil
}

func (h *stakingHandler) Handle(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	err := h.dispatch(ctx, sa)
	if err != nil {
		return fmt.Errorf("%s: %w", sa.Action, err)
	}
	return nil
}

func (h *stakingHandler) dispatch(ctx *sysaction.Context, sa *sysaction.SysAction) error {
	switch sa.Action {
	case sysaction.ActionInitialize:
		var p sysaction.InitializePayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return Initialize(ctx, &p)

	case sysaction.ActionStake:
		var p sysaction.AmountPayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return Stake(ctx, &p)

	case sysaction.ActionUnstake:
		var p sysaction.UnstakePayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return Unstake(ctx, &p)

	case sysaction.ActionDepositReward:
		var p sysaction.AmountPayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return DepositReward(ctx, &p)

	case sysaction.ActionSetStakeFeeAmount, sysaction.ActionSetMaxStakeAmount,
		sysaction.ActionSetCycleStakedAmount, sysaction.ActionSetCycleDuration:
		var p sysaction.SetValuePayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		switch sa.Action {
		case sysaction.ActionSetStakeFeeAmount:
			return SetStakeFeeAmount(ctx, &p)
		case sysaction.ActionSetMaxStakeAmount:
			return SetMaxStakeAmount(ctx, &p)
		case sysaction.ActionSetCycleStakedAmount:
			return SetCycleStakedAmount(ctx, &p)
		default:
			return SetCycleDuration(ctx, &p)
		}

	case sysaction.ActionSetStakeAsset, sysaction.ActionSetRewardAsset:
		var p sysaction.SetAssetPayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		if sa.Action == sysaction.ActionSetStakeAsset {
			return SetStakeAsset(ctx, &p)
		}
		return SetRewardAsset(ctx, &p)

	case sysaction.ActionSetPaused:
		var p sysaction.SetPausedPayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return SetPaused(ctx, &p)

	case sysaction.ActionSetMinterRole:
		var p sysaction.SetMinterRolePayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return SetMinterRole(ctx, &p)

	case sysaction.ActionWithdrawNative:
		var p sysaction.AmountPayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return WithdrawNative(ctx, &p)

	case sysaction.ActionWithdrawToken:
		var p sysaction.WithdrawTokenPayload
		if err := decode(sa, &p); err != nil {
			return err
		}
		return WithdrawToken(ctx, &p)
	}
	return fmt.Errorf("staking handler: unsupported action %q", sa.Action)
}
