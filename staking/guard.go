package staking

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/sysaction"
)

// call is what the preconditions of an action establish for its body.
type call struct {
	ctx      *sysaction.Context
	accounts sysaction.Accounts

	configID   common.Address
	cfg        GlobalConfig
	minterID   common.Address
	positionID common.Address
	vaultID    common.Address

	// minterOf is the identity whose minter record the action writes; zero
	// means the caller's own record is checked for minter rights.
	minterOf common.Address
	// vault returns the vault the action moves funds through.
	vault func(c *call) common.Address
}

func newCall(ctx *sysaction.Context, accounts sysaction.Accounts) *call {
	return &call{ctx: ctx, accounts: accounts}
}

// precondition is one named check evaluated before an action's body.
type precondition struct {
	name  string
	check func(c *call) error
}

// guard is an ordered list of preconditions. The first failure aborts the
// action and is reported with the precondition's name.
type guard []precondition

func (g guard) evaluate(c *call) error {
	for _, p := range g {
		if err := p.check(c); err != nil {
			return fmt.Errorf("%s: %w", p.name, err)
		}
	}
	return nil
}

// names lists the preconditions of g in evaluation order.
func (g guard) names() []string {
	out := make([]string, len(g))
	for i, p := range g {
		out[i] = p.name
	}
	return out
}

// checkIdentity compares a caller-supplied identity with the derived one. A
// zero supplied identity is accepted and replaced by the derivation.
func checkIdentity(supplied, want common.Address) (common.Address, error) {
	if supplied != (common.Address{}) && supplied != want {
		return want, fmt.Errorf("%w: supplied %x, derived %x", faults.ErrIdentityMismatch, supplied, want)
	}
	return want, nil
}

var (
	// The processor verifies the envelope proof; an empty caller means none
	// was verified.
	signed = precondition{"signed", func(c *call) error {
		if c.ctx.From == (common.Address{}) {
			return faults.ErrInvalidSignature
		}
		return nil
	}}

	// configIdentity loads the config named by the caller and checks that it
	// re-derives from its recorded owner.
	configIdentity = precondition{"config-identity", func(c *call) error {
		if c.accounts.Config == (common.Address{}) {
			return fmt.Errorf("%w: config identity required", faults.ErrIdentityMismatch)
		}
		c.configID = c.accounts.Config
		c.cfg = ReadConfig(c.ctx.StateDB, c.configID)
		if !c.cfg.Initialized {
			return nil
		}
		_, err := checkIdentity(c.configID, derive.Config(c.cfg.Owner))
		return err
	}}

	// creatorConfigIdentity derives the config of the caller, which is where
	// initialize creates it.
	creatorConfigIdentity = precondition{"config-identity", func(c *call) error {
		id, err := checkIdentity(c.accounts.Config, derive.Config(c.ctx.From))
		if err != nil {
			return err
		}
		c.configID = id
		c.cfg = ReadConfig(c.ctx.StateDB, id)
		return nil
	}}

	initialized = precondition{"initialized", func(c *call) error {
		if !c.cfg.Initialized {
			return faults.ErrNotInitialized
		}
		return nil
	}}

	notPaused = precondition{"not-paused", func(c *call) error {
		if c.cfg.Paused {
			return faults.ErrPaused
		}
		return nil
	}}

	ownerOnly = precondition{"owner", func(c *call) error {
		if c.ctx.From != c.cfg.Owner {
			return faults.ErrNotOwner
		}
		return nil
	}}

	// reentryOwner lets only the recorded owner re-enter initialize.
	reentryOwner = precondition{"owner", func(c *call) error {
		if c.cfg.Initialized && c.ctx.From != c.cfg.Owner {
			return faults.ErrNotAllowedOwner
		}
		return nil
	}}

	minterOnly = precondition{"minter", func(c *call) error {
		id, err := checkIdentity(c.accounts.Minter, derive.Minter(c.configID, c.ctx.From))
		if err != nil {
			return err
		}
		c.minterID = id
		rec := ReadMinter(c.ctx.StateDB, id)
		if !rec.IsMinter || rec.Identity != c.ctx.From {
			return faults.ErrNotMinter
		}
		return nil
	}}

	// minterRecordIdentity checks the record of minterOf that the action
	// writes.
	minterRecordIdentity = precondition{"minter-identity", func(c *call) error {
		id, err := checkIdentity(c.accounts.Minter, derive.Minter(c.configID, c.minterOf))
		c.minterID = id
		return err
	}}

	positionIdentity = precondition{"position-identity", func(c *call) error {
		id, err := checkIdentity(c.accounts.Position, derive.Position(c.configID, c.ctx.From))
		c.positionID = id
		return err
	}}

	vaultIdentity = precondition{"vault-identity", func(c *call) error {
		id, err := checkIdentity(c.accounts.Vault, c.vault(c))
		c.vaultID = id
		return err
	}}
)

// Precondition lists per role.
var (
	initializeGuard  = guard{signed, creatorConfigIdentity, reentryOwner, minterRecordIdentity, vaultIdentity}
	participantGuard = guard{signed, configIdentity, initialized, notPaused, positionIdentity, vaultIdentity}
	minterGuard      = guard{signed, configIdentity, initialized, minterOnly}
	minterVaultGuard = guard{signed, configIdentity, initialized, minterOnly, vaultIdentity}
	ownerGuard       = guard{signed, configIdentity, initialized, ownerOnly}
	ownerVaultGuard  = guard{signed, configIdentity, initialized, ownerOnly, vaultIdentity}
	minterRoleGuard  = guard{signed, configIdentity, initialized, ownerOnly, minterRecordIdentity}
)

// Vault selectors.

func nativeVault(c *call) common.Address { return derive.NativeVault(c.configID) }

func stakeVault(c *call) common.Address { return derive.TokenVault(c.configID, c.cfg.StakeAsset) }

func rewardVault(c *call) common.Address { return derive.TokenVault(c.configID, c.cfg.RewardAsset) }

func tokenVault(asset common.Address) func(c *call) common.Address {
	return func(c *call) common.Address { return derive.TokenVault(c.configID, asset) }
}
