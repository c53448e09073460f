// Package custody manages the vaults of a global config. Vaults have no key of
// their own; every outbound transfer is signed with a proof re-derived from the
// owner identity and a fixed seed.
package custody

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/params"
)

// Custodian is bound to the global config of one owner.
type Custodian struct {
	ledger assetledger.Ledger
	owner  common.Address
	config common.Address
}

// New returns the custodian of owner's global config.
func New(ledger assetledger.Ledger, owner common.Address) *Custodian {
	return &Custodian{
		ledger: ledger,
		owner:  owner,
		config: derive.Config(owner),
	}
}

// Config returns the global config identity, which is the authority of every
// token vault.
func (c *Custodian) Config() common.Address { return c.config }

// NativeVault returns the native currency vault.
func (c *Custodian) NativeVault() common.Address { return derive.NativeVault(c.config) }

// TokenVault returns the vault holding asset.
func (c *Custodian) TokenVault(asset common.Address) common.Address {
	return derive.TokenVault(c.config, asset)
}

func (c *Custodian) configSigner() assetledger.Signer {
	return assetledger.Derived(derive.Prove(params.GlobalConfigSeed, c.owner.Bytes()))
}

func (c *Custodian) nativeSigner() assetledger.Signer {
	return assetledger.Derived(derive.Prove(params.VaultSeed, c.config.Bytes()))
}

// OpenTokenVault opens the vault of asset with the config as authority if it
// is not open yet.
func (c *Custodian) OpenTokenVault(asset common.Address) (common.Address, error) {
	vault := c.TokenVault(asset)
	if err := c.ledger.OpenAccount(asset, vault, c.config); err != nil {
		return common.Address{}, fmt.Errorf("open vault for %x: %w", asset, err)
	}
	return vault, nil
}

// FundNativeVault tops the native vault up to its minimum balance from payer
// and returns the amount moved.
func (c *Custodian) FundNativeVault(payer common.Address) (uint64, error) {
	vault := c.NativeVault()
	target := params.VaultMinimumBalance
	if target < 1 {
		target = 1
	}
	balance := c.ledger.NativeBalance(vault)
	if balance >= target {
		return 0, nil
	}
	amount := target - balance
	if err := c.ledger.TransferNative(payer, vault, amount, assetledger.Plain(payer)); err != nil {
		return 0, fmt.Errorf("fund native vault: %w", err)
	}
	log.Debug("staking: funded native vault", "vault", vault, "amount", amount)
	return amount, nil
}

// Deposit moves amount of asset from a signer's own account into the vault of
// asset, opening the vault if needed.
func (c *Custodian) Deposit(asset, from common.Address, amount uint64) error {
	vault, err := c.OpenTokenVault(asset)
	if err != nil {
		return err
	}
	return c.ledger.Transfer(asset, from, vault, amount, assetledger.Plain(from))
}

// Payout moves amount of asset from its vault to to, signed by the config.
func (c *Custodian) Payout(asset, to common.Address, amount uint64) error {
	return c.ledger.Transfer(asset, c.TokenVault(asset), to, amount, c.configSigner())
}

// SweepToken moves amount of asset from its vault to the owner.
func (c *Custodian) SweepToken(asset common.Address, amount uint64) error {
	return c.Payout(asset, c.owner, amount)
}

// SweepNative moves amount of native currency from the native vault to the
// owner.
func (c *Custodian) SweepNative(amount uint64) error {
	return c.ledger.TransferNative(c.NativeVault(), c.owner, amount, c.nativeSigner())
}
