package sysaction

import "github.com/ethereum/go-ethereum/common"

// Accounts names the records and vaults an action touches. A zero entry is
// derived by the handler; a non-zero entry must equal the derivation.
type Accounts struct {
	Config   common.Address `json:"config"`
	Minter   common.Address `json:"minter"`
	Position common.Address `json:"position"`
	Vault    common.Address `json:"vault"`
}

// InitializePayload is the payload for INITIALIZE.
type InitializePayload struct {
	Accounts
	NewOwner      common.Address `json:"newOwner"`
	Price         uint64         `json:"price"`
	PriceExponent uint64         `json:"priceExponent"`
}

// AmountPayload is the payload for STAKE, DEPOSIT_REWARD and WITHDRAW_NATIVE.
type AmountPayload struct {
	Accounts
	Amount uint64 `json:"amount"`
}

// UnstakePayload is the payload for UNSTAKE.
type UnstakePayload struct {
	Accounts
}

// SetValuePayload is the payload for the numeric config setters.
type SetValuePayload struct {
	Accounts
	Value uint64 `json:"value"`
}

// SetAssetPayload is the payload for SET_STAKE_ASSET and SET_REWARD_ASSET.
type SetAssetPayload struct {
	Accounts
	Asset common.Address `json:"asset"`
}

// SetPausedPayload is the payload for SET_PAUSED.
type SetPausedPayload struct {
	Accounts
	Paused bool `json:"paused"`
}

// SetMinterRolePayload is the payload for SET_MINTER_ROLE. Accounts.Minter
// names the record of Identity.
type SetMinterRolePayload struct {
	Accounts
	Identity common.Address `json:"identity"`
	Enabled  bool           `json:"enabled"`
}

// WithdrawTokenPayload is the payload for WITHDRAW_TOKEN.
type WithdrawTokenPayload struct {
	Accounts
	Asset  common.Address `json:"asset"`
	Amount uint64         `json:"amount"`
}
