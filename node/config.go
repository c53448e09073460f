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
	"fmt"
	"net"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/tos-network/gstake/core"
)

const (
	// DefaultHTTPHost is the host interface for the HTTP RPC server.
	DefaultHTTPHost = "localhost"
	// DefaultHTTPPort is the TCP port for the HTTP RPC server.
	DefaultHTTPPort = 8645

	datadirDatabase = "stakedata" // Path within the datadir to the state database
)

// Config represents a small collection of configuration values to fine tune the
// node. These values can be further extended by all registered services.
type Config struct {
	// DataDir is the file system folder the node should use for its state
	// database. An empty DataDir keeps all state in memory.
	DataDir string

	// DatabaseCache is the megabytes of memory allocated to internal caching
	// of the state database.
	DatabaseCache int

	// DatabaseHandles is the number of open files the state database may use.
	DatabaseHandles int `toml:"-"`

	// StateCache is the number of committed slots kept decoded in memory.
	StateCache int

	// HTTPHost is the host interface on which to start the HTTP RPC server. If
	// this field is empty, no HTTP API endpoint will be started.
	HTTPHost string

	// HTTPPort is the TCP port number on which to start the HTTP RPC server.
	// Zero picks a random port.
	HTTPPort int `toml:",omitempty"`

	// HTTPCors is the Cross-Origin Resource Sharing header to send to requesting
	// clients.
	HTTPCors []string `toml:",omitempty"`

	// HTTPVirtualHosts is the list of virtual hostnames which are allowed on
	// incoming requests. A single "*" accepts any host.
	HTTPVirtualHosts []string `toml:",omitempty"`

	// WSEnabled serves websocket connections, which carry subscriptions, on
	// the HTTP endpoint.
	WSEnabled bool `toml:",omitempty"`

	// WSOrigins is the list of domains to accept websocket requests from.
	WSOrigins []string `toml:",omitempty"`

	// Genesis seeds the asset ledger of a fresh database.
	Genesis *core.Genesis `toml:",omitempty"`
}

// DefaultConfig contains reasonable default settings.
var DefaultConfig = Config{
	DataDir:          DefaultDataDir(),
	DatabaseCache:    64,
	DatabaseHandles:  256,
	StateCache:       4096,
	HTTPHost:         DefaultHTTPHost,
	HTTPPort:         DefaultHTTPPort,
	HTTPVirtualHosts: []string{"localhost"},
	Genesis:          core.DefaultGenesis(),
}

// DefaultDataDir is the default data directory to use for the databases.
func DefaultDataDir() string {
	home := homeDir()
	if home == "" {
		return ""
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "GStake")
	case "windows":
		if appdata := os.Getenv("LOCALAPPDATA"); appdata != "" {
			return filepath.Join(appdata, "GStake")
		}
		return filepath.Join(home, "AppData", "Local", "GStake")
	default:
		return filepath.Join(home, ".gstake")
	}
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// HTTPEndpoint resolves an HTTP endpoint based on the configured host interface
// and port parameters.
func (c *Config) HTTPEndpoint() string {
	if c.HTTPHost == "" {
		return ""
	}
	return net.JoinHostPort(c.HTTPHost, strconv.Itoa(c.HTTPPort))
}

// ResolvePath resolves path in the instance directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, path)
}

// String summarizes the endpoints of c.
func (c *Config) String() string {
	db := "memory"
	if c.DataDir != "" {
		db = c.ResolvePath(datadirDatabase)
	}
	return fmt.Sprintf("database=%s http=%q ws=%v", db, c.HTTPEndpoint(), c.WSEnabled)
}
