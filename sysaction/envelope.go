package sysaction

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"github.com/tos-network/gstake/accountsigner"
)

var signingDomain = []byte("gstake.envelope.v1")

// Envelope is a SysAction signed by From. Nonce must equal the next nonce the
// processor expects from From.
type Envelope struct {
	From   common.Address       `json:"from"`
	Nonce  hexutil.Uint64       `json:"nonce"`
	Action SysAction            `json:"action"`
	Proof  *accountsigner.Proof `json:"proof,omitempty"`
}

// SigningHash returns the digest the proof signs.
func (e *Envelope) SigningHash() common.Hash {
	enc, err := rlp.EncodeToBytes([]interface{}{
		e.From,
		uint64(e.Nonce),
		string(e.Action.Action),
		[]byte(e.Action.Payload),
	})
	if err != nil {
		// Only fixed-shape values are encoded above.
		panic(err)
	}
	return crypto.Keccak256Hash(signingDomain, enc)
}

// Hash identifies the envelope including its proof.
func (e *Envelope) Hash() common.Hash {
	digest := e.SigningHash()
	if e.Proof == nil {
		return digest
	}
	return crypto.Keccak256Hash(digest[:], []byte(e.Proof.SignerType), e.Proof.PublicKey, e.Proof.Signature)
}

// Sign sets the proof of e with key. From is set to the signer address.
func (e *Envelope) Sign(signerType string, key *ecdsa.PrivateKey) error {
	from, err := accountsigner.Address(signerType, key)
	if err != nil {
		return err
	}
	e.From = from
	proof, err := accountsigner.Sign(signerType, key, e.SigningHash())
	if err != nil {
		return err
	}
	e.Proof = proof
	return nil
}

// NewEnvelope builds an unsigned envelope for kind with payload.
func NewEnvelope(nonce uint64, kind ActionKind, payload interface{}) (*Envelope, error) {
	sa, err := MakeSysAction(kind, payload)
	if err != nil {
		return nil, err
	}
	return &Envelope{Nonce: hexutil.Uint64(nonce), Action: *sa}, nil
}
