package sysaction

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gstake/assetledger"
	"github.com/tos-network/gstake/state"
)

// Event is a notification emitted by a handler.
type Event interface {
	EventName() string
}

// Context carries information available to an action handler. Now is read
// once per action.
type Context struct {
	From    common.Address
	Now     int64
	StateDB state.Store
	Ledger  assetledger.Ledger

	events []Event
}

// Emit records ev. Events of a failed action are dropped.
func (c *Context) Emit(ev Event) { c.events = append(c.events, ev) }

// Events returns the events emitted so far.
func (c *Context) Events() []Event { return c.events }

// Handler is implemented by the action sub-systems.
type Handler interface {
	CanHandle(kind ActionKind) bool
	Handle(ctx *Context, sa *SysAction) error
}

// Registry holds registered handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers []Handler
}

// DefaultRegistry is the process-wide handler registry.
var DefaultRegistry = &Registry{}

// Register adds a handler to the registry.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, h)
}

func (r *Registry) lookup(kind ActionKind) Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, h := range r.handlers {
		if h.CanHandle(kind) {
			return h
		}
	}
	return nil
}

// Execute dispatches sa to its handler. If the handler fails, every state
// write and event of the action is rolled back.
func (r *Registry) Execute(ctx *Context, sa *SysAction) error {
	h := r.lookup(sa.Action)
	if h == nil {
		return fmt.Errorf("unknown system action: %q", sa.Action)
	}
	snap := ctx.StateDB.Snapshot()
	emitted := len(ctx.events)
	if err := h.Handle(ctx, sa); err != nil {
		ctx.StateDB.RevertToSnapshot(snap)
		ctx.events = ctx.events[:emitted]
		return err
	}
	return nil
}

// ExecuteWithContext decodes data and dispatches it on DefaultRegistry.
func ExecuteWithContext(ctx *Context, data []byte) error {
	sa, err := Decode(data)
	if err != nil {
		return err
	}
	return DefaultRegistry.Execute(ctx, sa)
}
