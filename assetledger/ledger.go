// Package assetledger is the transfer ledger that moves stake and reward
// assets between user accounts and custody vaults.
//
// The staking engine only depends on the Ledger interface. StateLedger is the
// implementation used by the node; it keeps balances in the same StateDB as the
// staking records, so a failed operation rolls back its transfers together with
// its record writes.
package assetledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gstake/derive"
)

// Signer authorizes a debit. A plain signer names an address whose signature
// was verified by the caller. A derived signer carries the proof of a custody
// identity.
type Signer struct {
	Address common.Address
	Proof   *derive.Proof
}

// Plain returns a signer for an externally verified address.
func Plain(addr common.Address) Signer { return Signer{Address: addr} }

// Derived returns a signer for the custody identity proof re-derives to.
func Derived(proof *derive.Proof) Signer {
	return Signer{Address: proof.Signer(), Proof: proof}
}

// Ledger moves native currency and token balances.
type Ledger interface {
	// Decimals returns the decimals of asset.
	Decimals(asset common.Address) (uint8, error)

	// BalanceOf returns the token balance of holder.
	BalanceOf(asset, holder common.Address) uint64

	// NativeBalance returns the native currency balance of holder.
	NativeBalance(holder common.Address) uint64

	// OpenAccount makes authority the only signer allowed to debit holder's
	// balance of asset. Opening an account that is already open with the same
	// authority is a no-op.
	OpenAccount(asset, holder, authority common.Address) error

	// Transfer moves amount of asset from one holder to another.
	Transfer(asset, from, to common.Address, amount uint64, auth Signer) error

	// TransferNative moves amount of native currency.
	TransferNative(from, to common.Address, amount uint64, auth Signer) error

	// Burn destroys amount of asset held by from.
	Burn(asset, from common.Address, amount uint64, auth Signer) error
}
