package staking

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tos-network/gstake/state"
)

// --- slot derivation ---

// Every record keeps its fields under its own derived identity.
func fieldSlot(field string) common.Hash {
	return crypto.Keccak256Hash([]byte("gstake.staking." + field))
}

var (
	cfgInitializedSlot = fieldSlot("initialized")
	cfgPausedSlot      = fieldSlot("paused")
	cfgOwnerSlot       = fieldSlot("owner")
	cfgNativeVaultSlot = fieldSlot("nativeVault")
	cfgStakeAssetSlot  = fieldSlot("stakeAsset")
	cfgRewardAssetSlot = fieldSlot("rewardAsset")
	cfgPrecisionSlot   = fieldSlot("precision")
	cfgStakeFeeSlot    = fieldSlot("stakeFeeAmount")
	cfgMaxStakeSlot    = fieldSlot("maxStakeAmount")
	cfgCycleStakedSlot = fieldSlot("cycleStakedAmount")
	cfgCycleSlot       = fieldSlot("cycleDuration")
	cfgPriceSlot       = fieldSlot("rewardPrice")
	cfgPriceExpoSlot   = fieldSlot("rewardPriceExponent")

	minterIdentitySlot = fieldSlot("minterIdentity")
	minterEnabledSlot  = fieldSlot("isMinter")

	posStakerSlot   = fieldSlot("staker")
	posAmountSlot   = fieldSlot("stakedAmount")
	posStakedAtSlot = fieldSlot("stakedAt")
	posDebtSlot     = fieldSlot("rewardDebt")
)

func readBool(db state.Store, owner common.Address, slot common.Hash) bool {
	return db.GetState(owner, slot)[31] != 0
}

func writeBool(db state.Store, owner common.Address, slot common.Hash, v bool) {
	var word common.Hash
	if v {
		word[31] = 1
	}
	db.SetState(owner, slot, word)
}

func readUint64(db state.Store, owner common.Address, slot common.Hash) uint64 {
	raw := db.GetState(owner, slot)
	return binary.BigEndian.Uint64(raw[24:])
}

func writeUint64(db state.Store, owner common.Address, slot common.Hash, n uint64) {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], n)
	db.SetState(owner, slot, word)
}

func readAddress(db state.Store, owner common.Address, slot common.Hash) common.Address {
	return common.BytesToAddress(db.GetState(owner, slot).Bytes())
}

func writeAddress(db state.Store, owner common.Address, slot common.Hash, addr common.Address) {
	db.SetState(owner, slot, common.BytesToHash(addr.Bytes()))
}

// --- global config ---

// ReadConfig reads the global config stored at identity.
func ReadConfig(db state.Store, identity common.Address) GlobalConfig {
	return GlobalConfig{
		Initialized:       readBool(db, identity, cfgInitializedSlot),
		Paused:            readBool(db, identity, cfgPausedSlot),
		Owner:             readAddress(db, identity, cfgOwnerSlot),
		NativeVault:       readAddress(db, identity, cfgNativeVaultSlot),
		StakeAsset:        readAddress(db, identity, cfgStakeAssetSlot),
		RewardAsset:       readAddress(db, identity, cfgRewardAssetSlot),
		Precision:         uint32(readUint64(db, identity, cfgPrecisionSlot)),
		StakeFeeAmount:    readUint64(db, identity, cfgStakeFeeSlot),
		MaxStakeAmount:    readUint64(db, identity, cfgMaxStakeSlot),
		CycleStakedAmount: readUint64(db, identity, cfgCycleStakedSlot),
		CycleDuration:     uint32(readUint64(db, identity, cfgCycleSlot)),
		RewardPrice:       readUint64(db, identity, cfgPriceSlot),
		RewardPriceExpo:   readUint64(db, identity, cfgPriceExpoSlot),
	}
}

// writeConfig stores every field of cfg at identity.
func writeConfig(db state.Store, identity common.Address, cfg *GlobalConfig) {
	writeBool(db, identity, cfgInitializedSlot, cfg.Initialized)
	writeBool(db, identity, cfgPausedSlot, cfg.Paused)
	writeAddress(db, identity, cfgOwnerSlot, cfg.Owner)
	writeAddress(db, identity, cfgNativeVaultSlot, cfg.NativeVault)
	writeAddress(db, identity, cfgStakeAssetSlot, cfg.StakeAsset)
	writeAddress(db, identity, cfgRewardAssetSlot, cfg.RewardAsset)
	writeUint64(db, identity, cfgPrecisionSlot, uint64(cfg.Precision))
	writeUint64(db, identity, cfgStakeFeeSlot, cfg.StakeFeeAmount)
	writeUint64(db, identity, cfgMaxStakeSlot, cfg.MaxStakeAmount)
	writeUint64(db, identity, cfgCycleStakedSlot, cfg.CycleStakedAmount)
	writeUint64(db, identity, cfgCycleSlot, uint64(cfg.CycleDuration))
	writeUint64(db, identity, cfgPriceSlot, cfg.RewardPrice)
	writeUint64(db, identity, cfgPriceExpoSlot, cfg.RewardPriceExpo)
}

// --- minter ---

// ReadMinter reads the minter record stored at identity.
func ReadMinter(db state.Store, identity common.Address) MinterRecord {
	return MinterRecord{
		Identity: readAddress(db, identity, minterIdentitySlot),
		IsMinter: readBool(db, identity, minterEnabledSlot),
	}
}

func writeMinter(db state.Store, identity common.Address, rec *MinterRecord) {
	writeAddress(db, identity, minterIdentitySlot, rec.Identity)
	writeBool(db, identity, minterEnabledSlot, rec.IsMinter)
}

// --- staked position ---

// ReadPosition reads the staked position stored at identity. ok is false if
// no position exists.
func ReadPosition(db state.Store, identity common.Address) (pos StakedPosition, ok bool) {
	pos = StakedPosition{
		Staker:     readAddress(db, identity, posStakerSlot),
		Amount:     readUint64(db, identity, posAmountSlot),
		StakedAt:   int64(readUint64(db, identity, posStakedAtSlot)),
		RewardDebt: readUint64(db, identity, posDebtSlot),
	}
	return pos, pos.Amount > 0
}

func writePosition(db state.Store, identity common.Address, pos *StakedPosition) {
	writeAddress(db, identity, posStakerSlot, pos.Staker)
	writeUint64(db, identity, posAmountSlot, pos.Amount)
	writeUint64(db, identity, posStakedAtSlot, uint64(pos.StakedAt))
	writeUint64(db, identity, posDebtSlot, pos.RewardDebt)
}

// destroyPosition clears every slot of the position at identity.
func destroyPosition(db state.Store, identity common.Address) {
	for _, slot := range []common.Hash{posStakerSlot, posAmountSlot, posStakedAtSlot, posDebtSlot} {
		db.SetState(identity, slot, common.Hash{})
	}
}
