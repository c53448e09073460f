// Package sysaction implements the gstake action protocol.
//
// An action is a JSON-encoded SysAction wrapped in a signed Envelope. The
// processor verifies the envelope and calls Registry.Execute, which dispatches
// to the handler registered for the action kind (e.g. staking).
package sysaction

import "encoding/json"

// ActionKind identifies the type of action.
type ActionKind string

const (
	// Participation
	ActionStake   ActionKind = "STAKE"
	ActionUnstake ActionKind = "UNSTAKE"

	// Owner
	ActionInitialize     ActionKind = "INITIALIZE"
	ActionSetPaused      ActionKind = "SET_PAUSED"
	ActionSetMinterRole  ActionKind = "SET_MINTER_ROLE"
	ActionWithdrawNative ActionKind = "WITHDRAW_NATIVE"
	ActionWithdrawToken  ActionKind = "WITHDRAW_TOKEN"

	// Minter
	ActionDepositReward        ActionKind = "DEPOSIT_REWARD"
	ActionSetStakeFeeAmount    ActionKind = "SET_STAKE_FEE_AMOUNT"
	ActionSetMaxStakeAmount    ActionKind = "SET_MAX_STAKE_AMOUNT"
	ActionSetCycleStakedAmount ActionKind = "SET_CYCLE_STAKED_AMOUNT"
	ActionSetCycleDuration     ActionKind = "SET_CYCLE_DURATION"
	ActionSetStakeAsset        ActionKind = "SET_STAKE_ASSET"
	ActionSetRewardAsset       ActionKind = "SET_REWARD_ASSET"
)

// AllActions lists every action kind.
var AllActions = []ActionKind{
	ActionInitialize, ActionStake, ActionUnstake, ActionDepositReward,
	ActionSetStakeFeeAmount, ActionSetMaxStakeAmount, ActionSetCycleStakedAmount,
	ActionSetCycleDuration, ActionSetStakeAsset, ActionSetRewardAsset,
	ActionSetPaused, ActionSetMinterRole, ActionWithdrawNative, ActionWithdrawToken,
}

// SysAction is the action carried by an Envelope.
type SysAction struct {
	Action  ActionKind      `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
