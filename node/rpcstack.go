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
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/cors"
)

// httpServer serves JSON-RPC over HTTP and, when enabled, websockets on the
// same listener.
type httpServer struct {
	log  log.Logger
	conf *Config

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener

	errc     chan error
	done     chan struct{}
	doneOnce sync.Once
}

func newHTTPServer(log log.Logger, conf *Config) *httpServer {
	return &httpServer{
		log:  log,
		conf: conf,
		errc: make(chan error, 1),
		done: make(chan struct{}),
	}
}

// start opens the listener and serves rpcServer on it.
func (h *httpServer) start(rpcServer *rpc.Server) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener != nil {
		return nil // already running
	}
	listener, err := net.Listen("tcp", h.conf.HTTPEndpoint())
	if err != nil {
		return err
	}
	h.listener = listener
	h.server = &http.Server{
		Handler:           newHTTPHandlerStack(rpcServer, h.conf),
		ReadTimeout:       rpc.DefaultHTTPTimeouts.ReadTimeout,
		ReadHeaderTimeout: rpc.DefaultHTTPTimeouts.ReadHeaderTimeout,
		WriteTimeout:      rpc.DefaultHTTPTimeouts.WriteTimeout,
		IdleTimeout:       rpc.DefaultHTTPTimeouts.IdleTimeout,
	}
	go func(srv *http.Server) {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.errc <- err
		}
	}(h.server)

	h.log.Info("HTTP server started", "endpoint", listener.Addr(),
		"cors", strings.Join(h.conf.HTTPCors, ","),
		"vhosts", strings.Join(h.conf.HTTPVirtualHosts, ","),
		"ws", h.conf.WSEnabled)
	return nil
}

// wait blocks until the server fails or is stopped.
func (h *httpServer) wait() error {
	select {
	case err := <-h.errc:
		return err
	case <-h.done:
		return nil
	}
}

// stop shuts the server down and releases wait.
func (h *httpServer) stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			h.log.Warn("HTTP server shutdown failed", "err", err)
		}
		h.log.Info("HTTP server stopped", "endpoint", h.listener.Addr())
		h.server, h.listener = nil, nil
	}
	h.doneOnce.Do(func() { close(h.done) })
}

// listenAddr returns the listening address of the server.
func (h *httpServer) listenAddr() string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.listener != nil {
		return h.listener.Addr().String()
	}
	return ""
}

// newHTTPHandlerStack returns wrapped http-related handlers.
func newHTTPHandlerStack(srv *rpc.Server, conf *Config) http.Handler {
	h := &rpcHandler{http: srv}
	if conf.WSEnabled {
		h.ws = srv.WebsocketHandler(conf.WSOrigins)
	}
	handler := newCorsHandler(h, conf.HTTPCors)
	return newVHostHandler(conf.HTTPVirtualHosts, handler)
}

// rpcHandler routes websocket upgrades away from the plain HTTP handler.
type rpcHandler struct {
	http http.Handler
	ws   http.Handler
}

func (h *rpcHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.ws != nil && isWebsocket(r) {
		h.ws.ServeHTTP(w, r)
		return
	}
	h.http.ServeHTTP(w, r)
}

// isWebsocket checks the header of an http request for a websocket upgrade request.
func isWebsocket(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("Upgrade"), "websocket") &&
		strings.Contains(strings.ToLower(r.Header.Get("Connection")), "upgrade")
}

func newCorsHandler(srv http.Handler, allowedOrigins []string) http.Handler {
	// disable CORS support if user has not specified a custom CORS configuration
	if len(allowedOrigins) == 0 {
		return srv
	}
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodPost, http.MethodGet},
		AllowedHeaders: []string{"*"},
		MaxAge:         600,
	})
	return c.Handler(srv)
}

// virtualHostHandler is a handler which validates the Host-header of incoming requests.
// Using virtual hosts can help prevent DNS rebinding attacks, where a 'random' domain name points to
// the service ip address (but without CORS headers). By verifying the targeted virtual host, we can
// ensure that it's a destination that the node operator has defined.
type virtualHostHandler struct {
	vhosts map[string]struct{}
	next   http.Handler
}

func newVHostHandler(vhosts []string, next http.Handler) http.Handler {
	vhostMap := make(map[string]struct{})
	for _, allowedHost := range vhosts {
		vhostMap[strings.ToLower(allowedHost)] = struct{}{}
	}
	return &virtualHostHandler{vhostMap, next}
}

// ServeHTTP serves JSON-RPC requests over HTTP, implements http.Handler
func (h *virtualHostHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// if r.Host is not set, we can continue serving since a browser would set the Host header
	if r.Host == "" {
		h.next.ServeHTTP(w, r)
		return
	}
	host, _, err := net.SplitHostPort(r.Host)
	if err != nil {
		// Either invalid (too many colons) or no port specified
		host = r.Host
	}
	if ipAddr := net.ParseIP(host); ipAddr != nil {
		// It's an IP address, we can serve that
		h.next.ServeHTTP(w, r)
		return
	}
	// Not an IP address, but a hostname. Need to validate
	if _, exist := h.vhosts["*"]; exist {
		h.next.ServeHTTP(w, r)
		return
	}
	if _, exist := h.vhosts[strings.ToLower(host)]; exist {
		h.next.ServeHTTP(w, r)
		return
	}
	http.Error(w, "invalid host specified", http.StatusForbidden)
}
