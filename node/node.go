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

package node

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"golang.org/x/sync/errgroup"

	"github.com/tos-network/gstake/core"
	"github.com/tos-network/gstake/internal/stakeapi"
	"github.com/tos-network/gstake/stakedb"
	"github.com/tos-network/gstake/stakedb/leveldb"
	"github.com/tos-network/gstake/stakedb/memorydb"
	"github.com/tos-network/gstake/state"
)

var (
	ErrNodeStopped = errors.New("node not started")
	ErrNodeRunning = errors.New("node already running")
)

// Lifecycle encompasses the behavior of services that can be started and
// stopped along with the node.
type Lifecycle interface {
	// Start is called after all services have been constructed and the
	// endpoints are about to open.
	Start() error

	// Stop terminates all goroutines belonging to the service, blocking until
	// they are all terminated.
	Stop() error
}

const (
	initializingState = iota
	runningState
	closedState
)

// Node is a container on which services can be registered. It owns the state
// database, the action processor and the RPC endpoints.
type Node struct {
	config *Config
	log    log.Logger

	startStopLock sync.Mutex // Start/Stop are protected by an additional lock
	lock          sync.Mutex
	state         int
	lifecycles    []Lifecycle
	rpcAPIs       []rpc.API

	db            stakedb.KeyValueStore
	processor     *core.Processor
	inprocHandler *rpc.Server // In-process RPC request handler to process the API requests
	http          *httpServer

	stop chan struct{}
}

// New creates a node, opens its database and applies the genesis.
func New(conf *Config) (*Node, error) {
	confCopy := *conf
	conf = &confCopy
	if conf.DataDir != "" {
		if err := os.MkdirAll(conf.DataDir, 0700); err != nil {
			return nil, err
		}
	}
	node := &Node{
		config:        conf,
		log:           log.New(),
		inprocHandler: rpc.NewServer(),
		stop:          make(chan struct{}),
	}
	db, err := node.openDatabase()
	if err != nil {
		return nil, err
	}
	node.db = db

	statedb, err := state.New(db, conf.StateCache)
	if err != nil {
		db.Close()
		return nil, err
	}
	if conf.Genesis != nil {
		if _, err := conf.Genesis.Commit(statedb); err != nil {
			db.Close()
			return nil, fmt.Errorf("genesis: %w", err)
		}
	}
	node.processor = core.NewProcessor(statedb, nil)
	node.RegisterLifecycle(&processorService{node.processor})
	node.RegisterAPIs(stakeapi.APIs(node.processor))

	node.http = newHTTPServer(node.log, conf)
	return node, nil
}

func (n *Node) openDatabase() (stakedb.KeyValueStore, error) {
	if n.config.DataDir == "" {
		n.log.Info("Using in-memory state database")
		return memorydb.New(), nil
	}
	return leveldb.New(n.config.ResolvePath(datadirDatabase), n.config.DatabaseCache, n.config.DatabaseHandles, "gstake/db/state/", false)
}

// processorService stops the processor with the node.
type processorService struct{ p *core.Processor }

func (s *processorService) Start() error { return nil }
func (s *processorService) Stop() error  { s.p.Close(); return nil }

// Start starts all registered lifecycles and the RPC endpoints. Start can
// only be called once.
func (n *Node) Start() error {
	n.startStopLock.Lock()
	defer n.startStopLock.Unlock()

	n.lock.Lock()
	switch n.state {
	case runningState:
		n.lock.Unlock()
		return ErrNodeRunning
	case closedState:
		n.lock.Unlock()
		return ErrNodeStopped
	}
	n.state = runningState
	lifecycles := make([]Lifecycle, len(n.lifecycles))
	copy(lifecycles, n.lifecycles)
	n.lock.Unlock()

	if err := n.startRPC(); err != nil {
		n.doClose(nil)
		return err
	}
	var started []Lifecycle
	for _, lifecycle := range lifecycles {
		if err := lifecycle.Start(); err != nil {
			n.stopServices(started)
			n.doClose(nil)
			return err
		}
		started = append(started, lifecycle)
	}
	n.log.Info("Started staking node", "config", n.config.String())
	return nil
}

func (n *Node) startRPC() error {
	for _, api := range n.rpcAPIs {
		if err := n.inprocHandler.RegisterName(api.Namespace, api.Service); err != nil {
			return err
		}
	}
	if n.config.HTTPHost == "" {
		return nil
	}
	return n.http.start(n.inprocHandler)
}

// Close stops the node and releases its resources.
func (n *Node) Close() error {
	n.startStopLock.Lock()
	defer n.startStopLock.Unlock()

	n.lock.Lock()
	state := n.state
	n.lock.Unlock()
	switch state {
	case initializingState:
		n.processor.Close()
		return n.doClose(nil)
	case runningState:
		return n.doClose(n.stopServices(n.lifecycles))
	default:
		return ErrNodeStopped
	}
}

func (n *Node) doClose(errs []error) error {
	n.lock.Lock()
	n.state = closedState
	n.lock.Unlock()

	n.http.stop()
	n.inprocHandler.Stop()
	if err := n.db.Close(); err != nil {
		errs = append(errs, err)
	}
	close(n.stop)

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return fmt.Errorf("%v", errs)
	}
}

// stopServices terminates running services in reverse order.
func (n *Node) stopServices(running []Lifecycle) []error {
	var errs []error
	for i := len(running) - 1; i >= 0; i-- {
		if err := running[i].Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Wait blocks until the node is closed.
func (n *Node) Wait() {
	<-n.stop
}

// Serve starts the node and keeps it running until ctx is cancelled or an
// endpoint fails.
func (n *Node) Serve(ctx context.Context) error {
	if err := n.Start(); err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return n.http.wait()
	})
	g.Go(func() error {
		<-gctx.Done()
		n.log.Info("Shutting down staking node")
		shutdown := time.AfterFunc(10*time.Second, func() {
			n.log.Warn("Node shutdown is taking long")
		})
		defer shutdown.Stop()
		return n.Close()
	})
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// RegisterLifecycle registers the given Lifecycle on the node.
func (n *Node) RegisterLifecycle(lifecycle Lifecycle) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.state != initializingState {
		panic("can't register lifecycle on running/stopped node")
	}
	for _, l := range n.lifecycles {
		if l == lifecycle {
			panic(fmt.Sprintf("attempt to register lifecycle %T more than once", lifecycle))
		}
	}
	n.lifecycles = append(n.lifecycles, lifecycle)
}

// RegisterAPIs registers the APIs a service provides on the node.
func (n *Node) RegisterAPIs(apis []rpc.API) {
	n.lock.Lock()
	defer n.lock.Unlock()

	if n.state != initializingState {
		panic("can't register APIs on running/stopped node")
	}
	n.rpcAPIs = append(n.rpcAPIs, apis...)
}

// Attach creates an RPC client attached to an in-process API handler.
func (n *Node) Attach() (*rpc.Client, error) {
	n.lock.Lock()
	defer n.lock.Unlock()
	if n.state != runningState {
		return nil, ErrNodeStopped
	}
	return rpc.DialInProc(n.inprocHandler), nil
}

// Processor returns the action processor of the node.
func (n *Node) Processor() *core.Processor { return n.processor }

// Config returns the configuration of node.
func (n *Node) Config() *Config { return n.config }

// HTTPEndpoint returns the URL of the HTTP server, or "" when it is not
// listening.
func (n *Node) HTTPEndpoint() string {
	if addr := n.http.listenAddr(); addr != "" {
		return "http://" + addr
	}
	return ""
}

// WSEndpoint returns the websocket URL, or "" when websockets are disabled.
func (n *Node) WSEndpoint() string {
	if !n.config.WSEnabled {
		return ""
	}
	if addr := n.http.listenAddr(); addr != "" {
		return "ws://" + addr
	}
	return ""
}
