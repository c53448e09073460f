package accountsigner

import (
	"errors"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	// MaxSignerTypeLen caps signerType bytes accepted in a proof.
	MaxSignerTypeLen = 64
	// MaxSignerValueLen caps public key bytes accepted in a proof.
	MaxSignerValueLen = 1024
)

// Proof is the caller's authorization over an action digest.
type Proof struct {
	SignerType string        `json:"signerType"`
	PublicKey  hexutil.Bytes `json:"publicKey"`
	Signature  hexutil.Bytes `json:"signature"`
}

var (
	ErrUnknownSignerType  = errors.New("accountsigner: unknown signer type")
	ErrInvalidSignerValue = errors.New("accountsigner: invalid signer value")
	ErrInvalidSignerKey   = errors.New("accountsigner: invalid signer private key")
	ErrMissingProof       = errors.New("accountsigner: missing proof")
	ErrSignatureMismatch  = errors.New("accountsigner: signature does not verify")
)
