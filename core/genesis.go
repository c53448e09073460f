package core

import (
	"errors"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/state"
)

var genesisMarkerSlot = crypto.Keccak256Hash([]byte("gstake.genesis"))

// ErrDuplicateGenesisAsset is returned when an asset is listed twice.
var ErrDuplicateGenesisAsset = errors.New("duplicate genesis asset")

// GenesisAccount is an initial balance.
type GenesisAccount struct {
	Address common.Address
	Balance uint64
}

// GenesisAsset registers an asset and mints its initial allocation.
type GenesisAsset struct {
	Address  common.Address
	Decimals uint8
	Alloc    []GenesisAccount `toml:",omitempty"`
}

// Genesis seeds the asset ledger of a fresh database.
type Genesis struct {
	Assets []GenesisAsset
	Native []GenesisAccount `toml:",omitempty"`
}

// DefaultGenesis registers the default stake and reward assets with no
// allocation.
func DefaultGenesis() *Genesis {
	return &Genesis{
		Assets: []GenesisAsset{
			{Address: params.DefaultStakeAsset, Decimals: 9},
			{Address: params.DefaultRewardAsset, Decimals: 9},
		},
	}
}

// Commit writes the genesis allocation to db unless a genesis was already
// applied. It reports whether anything was written.
func (g *Genesis) Commit(db *state.StateDB) (bool, error) {
	if db.GetState(params.LedgerAddress, genesisMarkerSlot) != (common.Hash{}) {
		log.Debug("Genesis already applied")
		return false, nil
	}
	ledger := assetledger.NewStateLedger(db)
	seen := mapset.NewThreadUnsafeSetWithSize[common.Address](len(g.Assets))
	for _, asset := range g.Assets {
		if !seen.Add(asset.Address) {
			db.Discard()
			return false, fmt.Errorf("%w: %x", ErrDuplicateGenesisAsset, asset.Address)
		}
		if err := ledger.RegisterAsset(asset.Address, asset.Decimals); err != nil {
			db.Discard()
			return false, err
		}
		for _, acc := range asset.Alloc {
			if err := ledger.Mint(asset.Address, acc.Address, acc.Balance); err != nil {
				db.Discard()
				return false, fmt.Errorf("mint %x to %x: %w", asset.Address, acc.Address, err)
			}
		}
	}
	for _, acc := range g.Native {
		if err := ledger.CreditNative(acc.Address, acc.Balance); err != nil {
			db.Discard()
			return false, fmt.Errorf("credit %x: %w", acc.Address, err)
		}
	}
	db.SetState(params.LedgerAddress, genesisMarkerSlot, common.BytesToHash([]byte{1}))
	if err := db.Commit(); err != nil {
		return false, err
	}
	log.Info("Applied genesis", "assets", len(g.Assets), "native", len(g.Native))
	return true, nil
}
