package core

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/log"

	"github.com/tos-network/gstake/accountsigner"
	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/faults"
	"github.com/tos-network/gstake/state"
	"github.com/tos-network/gstake/staking"
	"github.com/tos-network/gstake/sysaction"
)

// ErrProcessorClosed is returned by Apply after Close.
var ErrProcessorClosed = errors.New("processor closed")

const (
	// ReceiptStatusFailed is the status of an action whose handler failed.
	ReceiptStatusFailed = uint64(0)
	// ReceiptStatusSuccessful is the status of an applied action.
	ReceiptStatusSuccessful = uint64(1)
)

// Log is an event emitted by an applied action.
type Log struct {
	Name string          `json:"name"`
	Data sysaction.Event `json:"data"`
}

// Receipt reports the outcome of an executed envelope.
type Receipt struct {
	Hash   common.Hash          `json:"hash"`
	Action sysaction.ActionKind `json:"action"`
	From   common.Address       `json:"from"`
	Nonce  hexutil.Uint64       `json:"nonce"`
	Time   int64                `json:"time"`
	Status hexutil.Uint64       `json:"status"`
	Logs   []*Log               `json:"logs"`
	Error  string               `json:"error,omitempty"`
}

// Processor applies signed envelopes to the staking state one at a time.
// Every action observes a single clock reading and either commits in full or
// leaves no trace.
type Processor struct {
	mu       sync.Mutex
	db       *state.StateDB
	ledger   *assetledger.StateLedger
	registry *sysaction.Registry
	now      func() time.Time
	closed   bool

	receiptFeed event.Feed
	scope       event.SubscriptionScope
}

// NewProcessor returns a processor over db. A nil clock reads the wall clock.
func NewProcessor(db *state.StateDB, clock func() time.Time) *Processor {
	if clock == nil {
		clock = time.Now
	}
	return &Processor{
		db:       db,
		ledger:   assetledger.NewStateLedger(db),
		registry: sysaction.DefaultRegistry,
		now:      clock,
	}
}

// Apply verifies env and executes its action. Envelopes with a bad proof or an
// unexpected nonce are rejected with an error and no receipt. An executed
// envelope always yields a receipt; a failed handler additionally returns its
// error, and nothing it wrote is kept.
func (p *Processor) Apply(env *sysaction.Envelope) (*Receipt, error) {
	start := time.Now()
	receipt, err := p.apply(env)
	if receipt == nil {
		actionRejectedMeter.Mark(1)
		return nil, err
	}
	applyTimer.UpdateSince(start)
	if err != nil {
		actionFailedMeter.Mark(1)
	} else {
		actionAppliedMeter.Mark(1)
	}
	p.receiptFeed.Send(receipt)
	return receipt, err
}

func (p *Processor) apply(env *sysaction.Envelope) (*Receipt, error) {
	signer, err := accountsigner.Verify(env.Proof, env.SigningHash())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", faults.ErrInvalidSignature, err)
	}
	if signer != env.From {
		return nil, fmt.Errorf("%w: signed by %x, from %x", faults.ErrInvalidSignature, signer, env.From)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrProcessorClosed
	}
	if want := p.db.GetNonce(env.From); uint64(env.Nonce) != want {
		return nil, fmt.Errorf("%w: have %d, want %d", faults.ErrNonceMismatch, env.Nonce, want)
	}
	now := p.now().Unix()
	ctx := &sysaction.Context{From: env.From, Now: now, StateDB: p.db, Ledger: p.ledger}
	receipt := &Receipt{
		Hash:   env.Hash(),
		Action: env.Action.Action,
		From:   env.From,
		Nonce:  env.Nonce,
		Time:   now,
	}
	if err := p.registry.Execute(ctx, &env.Action); err != nil {
		p.db.Discard()
		receipt.Status = hexutil.Uint64(ReceiptStatusFailed)
		receipt.Error = err.Error()
		log.Debug("Rejected staking action", "action", env.Action.Action, "from", env.From, "nonce", uint64(env.Nonce), "err", err)
		return receipt, err
	}
	p.db.SetNonce(env.From, uint64(env.Nonce)+1)
	if err := p.db.Commit(); err != nil {
		p.db.Discard()
		log.Error("Failed to commit staking action", "action", env.Action.Action, "from", env.From, "err", err)
		return nil, err
	}
	receipt.Status = hexutil.Uint64(ReceiptStatusSuccessful)
	for _, ev := range ctx.Events() {
		receipt.Logs = append(receipt.Logs, &Log{Name: ev.EventName(), Data: ev})
	}
	log.Trace("Applied staking action", "action", env.Action.Action, "from", env.From, "nonce", uint64(env.Nonce), "logs", len(receipt.Logs))
	return receipt, nil
}

// SubscribeReceipts delivers the receipt of every executed envelope to ch.
func (p *Processor) SubscribeReceipts(ch chan<- *Receipt) event.Subscription {
	return p.scope.Track(p.receiptFeed.Subscribe(ch))
}

// Close ends all receipt subscriptions and rejects further envelopes.
func (p *Processor) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.scope.Close()
}

// Now returns the processor clock in unix seconds.
func (p *Processor) Now() int64 { return p.now().Unix() }

// Ledger returns the asset ledger the processor moves funds on.
func (p *Processor) Ledger() *assetledger.StateLedger { return p.ledger }

// View runs fn with exclusive read access to the committed state.
func (p *Processor) View(fn func(db state.Store, ledger *assetledger.StateLedger) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return fn(p.db, p.ledger)
}

// Nonce returns the next nonce expected from addr.
func (p *Processor) Nonce(addr common.Address) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db.GetNonce(addr)
}

// Config returns the global config stored at identity.
func (p *Processor) Config(identity common.Address) staking.GlobalConfig {
	p.mu.Lock()
	defer p.mu.Unlock()
	return staking.ReadConfig(p.db, identity)
}

// Minter returns the minter record stored at identity.
func (p *Processor) Minter(identity common.Address) staking.MinterRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return staking.ReadMinter(p.db, identity)
}

// Position returns the staked position stored at identity.
func (p *Processor) Position(identity common.Address) (staking.StakedPosition, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return staking.ReadPosition(p.db, identity)
}

// PendingReward returns the scaled reward owed to user under config as of the
// processor clock.
func (p *Processor) PendingReward(config, user common.Address) (uint64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return staking.PendingReward(p.db, config, user, p.now().Unix())
}

// ForEachStorage iterates the slots held under addr.
func (p *Processor) ForEachStorage(addr common.Address, cb func(slot, value common.Hash) bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.db.ForEachStorage(addr, cb)
}
