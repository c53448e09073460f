// Copyright 2024 The gstake Authors
// This file is part of the gstake library.
//
// The gstake library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The gstake library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the gstake library. If not, see <http://www.gnu.org/licenses/>.

package params

import "github.com/ethereum/go-ethereum/common"

// Fixed, well-known addresses used by the protocol.
var (
	// ProgramAddress is the namespace every derived record and vault identity
	// is computed under. Only code holding this address can produce a proof
	// the asset ledger accepts for a derived account.
	ProgramAddress = common.HexToAddress("0x000000000000000000000000000000005354414b") // "STAK"

	// LedgerAddress stores asset balances, account authorities and asset
	// metadata of the state-backed asset ledger.
	LedgerAddress = common.HexToAddress("0x000000000000000000000000000000004c454447") // "LEDG"

	// NonceAddress stores per-caller envelope nonces.
	NonceAddress = common.HexToAddress("0x000000000000000000000000000000004e4f4e43") // "NONC"
)

// Seed tags of the derived records.
const (
	GlobalConfigSeed = "global-config"
	MinterSeed       = "minter"
	StakedInfoSeed   = "staked-info"
	VaultSeed        = "vault"
	TokenVaultSeed   = "token-vault"
)

// Economics written into a freshly initialized global config.
const (
	// DefaultPrecision scales accrued reward until payout.
	DefaultPrecision uint32 = 1000

	// DefaultStakeFeeAmount is the stake fee quoted in reward-asset units.
	DefaultStakeFeeAmount uint64 = 2

	// DefaultMaxStakeAmount bounds a single position (exclusive).
	DefaultMaxStakeAmount uint64 = 90_000_000_000

	// DefaultCycleStakedAmount and DefaultCycleDuration define the reference
	// accrual rate: one precision unit per cycle for this many staked units.
	DefaultCycleStakedAmount uint64 = 30_000_000_000
	DefaultCycleDuration     uint32 = 60 * 60 * 24
)

var (
	// DefaultStakeAsset is the stake asset id recorded on initialization.
	DefaultStakeAsset = common.HexToAddress("0xd5f1a3b5c7e8e33e5d41e8d9c1f6b7a0c3e2f0a1")

	// DefaultRewardAsset is the reward asset id recorded on initialization.
	DefaultRewardAsset = common.HexToAddress("0x31a9c7d4e6b2f0a88c5e3d1b7f9a2c4e6d8b0f13")
)

// VaultMinimumBalance is the native balance a vault must hold to stay
// allocated. Initialization tops the native vault up to this amount.
const VaultMinimumBalance uint64 = 890_880

// MaxAssetDecimals is the largest decimals value whose power of ten fits a uint64.
const MaxAssetDecimals = 19
