package accountsigner

import (
	"bytes"
	"crypto/ecdsa"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	btcschnorr "github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const (
	SignerTypeSecp256k1 = "secp256k1"
	SignerTypeSchnorr   = "schnorr"
)

func normalizeSignerType(signerType string) (string, error) {
	if len(signerType) > MaxSignerTypeLen {
		return "", ErrUnknownSignerType
	}
	switch strings.ToLower(strings.TrimSpace(signerType)) {
	case SignerTypeSecp256k1, "ethereum_secp256k1", "":
		return SignerTypeSecp256k1, nil
	case SignerTypeSchnorr, "bip340":
		return SignerTypeSchnorr, nil
	default:
		return "", ErrUnknownSignerType
	}
}

// CanonicalSignerType normalizes signer type alias to canonical lowercase name.
// An empty type means secp256k1.
func CanonicalSignerType(signerType string) (string, error) {
	return normalizeSignerType(signerType)
}

func normalizeSecp256k1Pubkey(raw []byte) ([]byte, error) {
	var (
		pub *ecdsa.PublicKey
		err error
	)
	switch len(raw) {
	case 33:
		pub, err = crypto.DecompressPubkey(raw)
	case 65:
		pub, err = crypto.UnmarshalPubkey(raw)
	default:
		return nil, ErrInvalidSignerValue
	}
	if err != nil {
		return nil, ErrInvalidSignerValue
	}
	return crypto.FromECDSAPub(pub), nil
}

func normalizeSchnorrPubkey(raw []byte) ([]byte, error) {
	switch len(raw) {
	case btcschnorr.PubKeyBytesLen:
		pub, err := btcschnorr.ParsePubKey(raw)
		if err != nil {
			return nil, ErrInvalidSignerValue
		}
		return btcschnorr.SerializePubKey(pub), nil
	case 33, 65:
		pub, err := btcec.ParsePubKey(raw)
		if err != nil {
			return nil, ErrInvalidSignerValue
		}
		return btcschnorr.SerializePubKey(pub), nil
	default:
		return nil, ErrInvalidSignerValue
	}
}

// NormalizeSigner validates signerType/signerValue and returns canonical type,
// canonical pubkey bytes and canonical value.
func NormalizeSigner(signerType, signerValue string) (string, []byte, string, error) {
	normalizedType, err := normalizeSignerType(signerType)
	if err != nil {
		return "", nil, "", err
	}
	raw, err := hexutil.Decode(strings.TrimSpace(signerValue))
	if err != nil {
		return "", nil, "", ErrInvalidSignerValue
	}
	pub, err := normalizePubkey(normalizedType, raw)
	if err != nil {
		return "", nil, "", err
	}
	return normalizedType, pub, hexutil.Encode(pub), nil
}

func normalizePubkey(signerType string, raw []byte) ([]byte, error) {
	if len(raw) == 0 || len(raw) > MaxSignerValueLen {
		return nil, ErrInvalidSignerValue
	}
	switch signerType {
	case SignerTypeSecp256k1:
		return normalizeSecp256k1Pubkey(raw)
	case SignerTypeSchnorr:
		return normalizeSchnorrPubkey(raw)
	}
	return nil, ErrUnknownSignerType
}

// AddressFromSigner derives account address from canonical signer pubkey bytes.
func AddressFromSigner(signerType string, signerPub []byte) (common.Address, error) {
	switch signerType {
	case SignerTypeSecp256k1:
		pub, err := crypto.UnmarshalPubkey(signerPub)
		if err != nil {
			return common.Address{}, ErrInvalidSignerValue
		}
		return crypto.PubkeyToAddress(*pub), nil
	case SignerTypeSchnorr:
		if len(signerPub) != btcschnorr.PubKeyBytesLen {
			return common.Address{}, ErrInvalidSignerValue
		}
		return common.BytesToAddress(crypto.Keccak256(signerPub)), nil
	default:
		return common.Address{}, ErrUnknownSignerType
	}
}

// PublicKey returns the canonical public key of priv for signerType.
func PublicKey(signerType string, priv *ecdsa.PrivateKey) ([]byte, error) {
	signerType, err := normalizeSignerType(signerType)
	if err != nil {
		return nil, err
	}
	if priv == nil {
		return nil, ErrInvalidSignerKey
	}
	switch signerType {
	case SignerTypeSchnorr:
		_, pub := btcec.PrivKeyFromBytes(crypto.FromECDSA(priv))
		return btcschnorr.SerializePubKey(pub), nil
	default:
		return crypto.FromECDSAPub(&priv.PublicKey), nil
	}
}

// Address returns the account address of priv for signerType.
func Address(signerType string, priv *ecdsa.PrivateKey) (common.Address, error) {
	signerType, err := normalizeSignerType(signerType)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := PublicKey(signerType, priv)
	if err != nil {
		return common.Address{}, err
	}
	return AddressFromSigner(signerType, pub)
}

// Sign produces a proof over digest with priv.
func Sign(signerType string, priv *ecdsa.PrivateKey, digest common.Hash) (*Proof, error) {
	signerType, err := normalizeSignerType(signerType)
	if err != nil {
		return nil, err
	}
	pub, err := PublicKey(signerType, priv)
	if err != nil {
		return nil, err
	}
	var sig []byte
	switch signerType {
	case SignerTypeSchnorr:
		key, _ := btcec.PrivKeyFromBytes(crypto.FromECDSA(priv))
		s, err := btcschnorr.Sign(key, digest[:])
		if err != nil {
			return nil, err
		}
		sig = s.Serialize()
	default:
		if sig, err = crypto.Sign(digest[:], priv); err != nil {
			return nil, err
		}
	}
	return &Proof{SignerType: signerType, PublicKey: pub, Signature: sig}, nil
}

// Verify checks proof over digest and returns the address of the signer.
func Verify(proof *Proof, digest common.Hash) (common.Address, error) {
	if proof == nil {
		return common.Address{}, ErrMissingProof
	}
	signerType, err := normalizeSignerType(proof.SignerType)
	if err != nil {
		return common.Address{}, err
	}
	pub, err := normalizePubkey(signerType, proof.PublicKey)
	if err != nil {
		return common.Address{}, err
	}
	switch signerType {
	case SignerTypeSchnorr:
		if !verifySchnorr(pub, proof.Signature, digest) {
			return common.Address{}, ErrSignatureMismatch
		}
	default:
		if len(proof.Signature) != crypto.SignatureLength {
			return common.Address{}, ErrSignatureMismatch
		}
		recovered, err := crypto.Ecrecover(digest[:], proof.Signature)
		if err != nil || !bytes.Equal(recovered, pub) {
			return common.Address{}, ErrSignatureMismatch
		}
	}
	return AddressFromSigner(signerType, pub)
}

func verifySchnorr(pub, sig []byte, digest common.Hash) bool {
	key, err := btcschnorr.ParsePubKey(pub)
	if err != nil {
		return false
	}
	s, err := btcschnorr.ParseSignature(sig)
	if err != nil {
		return false
	}
	return s.Verify(digest[:], key)
}
