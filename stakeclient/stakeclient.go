// Package stakeclient provides a client for the gstake RPC API.
package stakeclient

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tos-network/gstake/accountsigner"
	"github.com/tos-network/gstake/staking"
	"github.com/tos-network/gstake/sysaction"
)

// Client defines typed wrappers for the staking RPC API.
type Client struct {
	c *rpc.Client
}

// Log is an event carried by a receipt. Data is left encoded; its shape
// depends on Name.
type Log struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// Receipt reports the outcome of an executed action.
type Receipt struct {
	Hash   common.Hash          `json:"hash"`
	Action sysaction.ActionKind `json:"action"`
	From   common.Address       `json:"from"`
	Nonce  hexutil.Uint64       `json:"nonce"`
	Time   int64                `json:"time"`
	Status hexutil.Uint64       `json:"status"`
	Logs   []Log                `json:"logs"`
	Error  string               `json:"error,omitempty"`
}

// Succeeded reports whether the action took effect.
func (r *Receipt) Succeeded() bool { return r.Status == 1 }

// DerivedAccounts lists the identities of a config as seen by one user.
type DerivedAccounts struct {
	Config      common.Address `json:"config"`
	NativeVault common.Address `json:"nativeVault"`
	Minter      common.Address `json:"minter"`
	Position    common.Address `json:"position"`
	StakeVault  common.Address `json:"stakeVault"`
	RewardVault common.Address `json:"rewardVault"`
}

// Dial connects a client to the given URL.
func Dial(rawurl string) (*Client, error) {
	return DialContext(context.Background(), rawurl)
}

func DialContext(ctx context.Context, rawurl string) (*Client, error) {
	c, err := rpc.DialContext(ctx, rawurl)
	if err != nil {
		return nil, err
	}
	return NewClient(c), nil
}

// NewClient creates a client that uses the given RPC client.
func NewClient(c *rpc.Client) *Client {
	return &Client{c}
}

func (sc *Client) Close() {
	sc.c.Close()
}

// State access

// Config returns the global config at config, or nil if it is not
// initialized.
func (sc *Client) Config(ctx context.Context, config common.Address) (*staking.GlobalConfig, error) {
	var result *staking.GlobalConfig
	err := sc.c.CallContext(ctx, &result, "staking_config", config)
	return result, err
}

// Minter returns the minter record of minter under config.
func (sc *Client) Minter(ctx context.Context, config, minter common.Address) (*staking.MinterRecord, error) {
	var result staking.MinterRecord
	if err := sc.c.CallContext(ctx, &result, "staking_minter", config, minter); err != nil {
		return nil, err
	}
	return &result, nil
}

// Position returns the staked position of user under config, or nil.
func (sc *Client) Position(ctx context.Context, config, user common.Address) (*staking.StakedPosition, error) {
	var result *staking.StakedPosition
	err := sc.c.CallContext(ctx, &result, "staking_position", config, user)
	return result, err
}

// PendingReward returns the scaled reward owed to user under config.
func (sc *Client) PendingReward(ctx context.Context, config, user common.Address) (uint64, error) {
	var result hexutil.Uint64
	err := sc.c.CallContext(ctx, &result, "staking_pendingReward", config, user)
	return uint64(result), err
}

// Quote projects the scaled reward amount would accrue over seconds.
func (sc *Client) Quote(ctx context.Context, config common.Address, amount, seconds uint64) (*big.Int, error) {
	var result hexutil.Big
	err := sc.c.CallContext(ctx, &result, "staking_quote", config, hexutil.Uint64(amount), hexutil.Uint64(seconds))
	if err != nil {
		return nil, err
	}
	return (*big.Int)(&result), nil
}

// Nonce returns the next action nonce of addr.
func (sc *Client) Nonce(ctx context.Context, addr common.Address) (uint64, error) {
	var result hexutil.Uint64
	err := sc.c.CallContext(ctx, &result, "staking_nonce", addr)
	return uint64(result), err
}

// Balance returns holder's balance of asset.
func (sc *Client) Balance(ctx context.Context, asset, holder common.Address) (uint64, error) {
	var result hexutil.Uint64
	err := sc.c.CallContext(ctx, &result, "staking_balance", asset, holder)
	return uint64(result), err
}

// NativeBalance returns holder's native currency balance.
func (sc *Client) NativeBalance(ctx context.Context, holder common.Address) (uint64, error) {
	var result hexutil.Uint64
	err := sc.c.CallContext(ctx, &result, "staking_nativeBalance", holder)
	return uint64(result), err
}

// Accounts derives the identities of owner's config as seen by user.
func (sc *Client) Accounts(ctx context.Context, owner, user common.Address) (*DerivedAccounts, error) {
	var result DerivedAccounts
	if err := sc.c.CallContext(ctx, &result, "staking_accounts", owner, user); err != nil {
		return nil, err
	}
	return &result, nil
}

// Storage dumps the slots held under addr.
func (sc *Client) Storage(ctx context.Context, addr common.Address) (map[common.Hash]common.Hash, error) {
	var result map[common.Hash]common.Hash
	err := sc.c.CallContext(ctx, &result, "staking_storage", addr)
	return result, err
}

// Actions

// SendAction submits a signed envelope and returns its receipt.
func (sc *Client) SendAction(ctx context.Context, env *sysaction.Envelope) (*Receipt, error) {
	if env.Proof == nil {
		return nil, errors.New("envelope is not signed")
	}
	var result Receipt
	if err := sc.c.CallContext(ctx, &result, "staking_sendAction", env); err != nil {
		return nil, err
	}
	return &result, nil
}

// Send builds an envelope for kind with the next nonce of key, signs it and
// submits it. A receipt of a failed action is returned together with an
// error carrying its reason.
func (sc *Client) Send(ctx context.Context, signerType string, key *ecdsa.PrivateKey, kind sysaction.ActionKind, payload interface{}) (*Receipt, error) {
	from, err := accountsigner.Address(signerType, key)
	if err != nil {
		return nil, err
	}
	nonce, err := sc.Nonce(ctx, from)
	if err != nil {
		return nil, err
	}
	env, err := sysaction.NewEnvelope(nonce, kind, payload)
	if err != nil {
		return nil, err
	}
	if err := env.Sign(signerType, key); err != nil {
		return nil, err
	}
	receipt, err := sc.SendAction(ctx, env)
	if err != nil {
		return nil, err
	}
	if !receipt.Succeeded() {
		return receipt, fmt.Errorf("%s failed: %s", kind, receipt.Error)
	}
	return receipt, nil
}

// Subscriptions

// SubscribeReceipts subscribes to the receipts of executed actions.
func (sc *Client) SubscribeReceipts(ctx context.Context, ch chan<- *Receipt) (ethereum.Subscription, error) {
	return sc.c.Subscribe(ctx, "staking", ch, "receipts")
}
