// Package derive computes deterministic identities for records and custody
// accounts, and the proofs that authorize a custody account to spend.
//
// An identity is a one-way function of the program address, a seed tag and
// ordered key material. Holding the seeds is the only way to sign for a derived
// account, so a proof is simply the seeds that re-derive it.
package derive

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/sha3"

	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/params"
)

var domainTag = []byte("gstake.derive")

// Address derives the identity for seedTag and keyMaterial under the
// program address.
func Address(seedTag string, keyMaterial ...[]byte) common.Address {
	return addressFor(params.ProgramAddress, seedTag, keyMaterial)
}

func addressFor(program common.Address, seedTag string, keyMaterial [][]byte) common.Address {
	h := sha3.NewLegacyKeccak256()
	h.Write(domainTag)
	h.Write(program.Bytes())
	writePart(h, []byte(seedTag))
	for _, part := range keyMaterial {
		writePart(h, part)
	}
	var sum common.Hash
	h.Sum(sum[:0])
	return common.BytesToAddress(sum[12:])
}

type writer interface{ Write([]byte) (int, error) }

func writePart(w writer, part []byte) {
	var size [8]byte
	binary.BigEndian.PutUint64(size[:], uint64(len(part)))
	w.Write(size[:])
	w.Write(part)
}

// Proof authorizes an outbound transfer from a derived account.
type Proof struct {
	Program common.Address  `json:"program"`
	Seed    string          `json:"seed"`
	Key     []hexutil.Bytes `json:"key"`
}

// Prove returns the proof for the identity derived from seedTag and keyMaterial.
func Prove(seedTag string, keyMaterial ...[]byte) *Proof {
	key := make([]hexutil.Bytes, len(keyMaterial))
	for i, part := range keyMaterial {
		key[i] = common.CopyBytes(part)
	}
	return &Proof{Program: params.ProgramAddress, Seed: seedTag, Key: key}
}

// Signer returns the identity the proof re-derives to.
func (p *Proof) Signer() common.Address {
	parts := make([][]byte, len(p.Key))
	for i, part := range p.Key {
		parts[i] = part
	}
	return addressFor(p.Program, p.Seed, parts)
}

// Verify checks that proof was produced by this program and re-derives to
// identity.
func Verify(proof *Proof, identity common.Address) error {
	if proof == nil || proof.Program != params.ProgramAddress {
		return faults.ErrIdentityMismatch
	}
	if proof.Signer() != identity {
		return faults.ErrIdentityMismatch
	}
	return nil
}

// Check compares a caller-supplied identity against the derivation. A zero
// supplied identity means the caller left it to be derived.
func Check(supplied common.Address, seedTag string, keyMaterial ...[]byte) (common.Address, error) {
	want := Address(seedTag, keyMaterial...)
	if supplied != (common.Address{}) && supplied != want {
		return want, faults.ErrIdentityMismatch
	}
	return want, nil
}

// Record identities.

// Config returns the global config identity of owner.
func Config(owner common.Address) common.Address {
	return Address(params.GlobalConfigSeed, owner.Bytes())
}

// Minter returns the minter record identity of minter under config.
func Minter(config, minter common.Address) common.Address {
	return Address(params.MinterSeed, config.Bytes(), minter.Bytes())
}

// Position returns the staked position identity of user under config.
func Position(config, user common.Address) common.Address {
	return Address(params.StakedInfoSeed, config.Bytes(), user.Bytes())
}

// NativeVault returns the native currency vault of config.
func NativeVault(config common.Address) common.Address {
	return Address(params.VaultSeed, config.Bytes())
}

// TokenVault returns the token vault of config for asset.
func TokenVault(config, asset common.Address) common.Address {
	return Address(params.TokenVaultSeed, config.Bytes(), asset.Bytes())
}
