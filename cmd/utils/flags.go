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

// Package utils contains internal helper functions for gstake commands.
package utils

import (
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common/fdlimit"
	gopsutil "github.com/shirou/gopsutil/mem"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gstake/internal/flags"
	"github.com/tos-network/gstake/node"
)

// These are all the command line flags we support.
// If you add to this list, please remember to include the
// flag in the appropriate command definition.
//
// The flags are defined here so their names and help texts
// are the same for all commands.

var (
	// General settings
	DataDirFlag = &cli.PathFlag{
		Name:     "datadir",
		Usage:    "Data directory for the state database",
		Value:    node.DefaultDataDir(),
		Category: flags.StakingCategory,
	}
	InMemoryFlag = &cli.BoolFlag{
		Name:     "inmemory",
		Usage:    "Keep all state in memory, discarding it on exit",
		Category: flags.StakingCategory,
	}
	ConfigFileFlag = &cli.StringFlag{
		Name:     "config",
		Usage:    "TOML configuration file",
		Category: flags.MiscCategory,
	}

	// Performance tuning settings
	CacheDatabaseFlag = &cli.IntFlag{
		Name:     "cache.database",
		Usage:    "Megabytes of memory allocated to the state database",
		Value:    node.DefaultConfig.DatabaseCache,
		Category: flags.PerfCategory,
	}
	CacheStateFlag = &cli.IntFlag{
		Name:     "cache.state",
		Usage:    "Number of committed storage slots kept decoded in memory",
		Value:    node.DefaultConfig.StateCache,
		Category: flags.PerfCategory,
	}
	FDLimitFlag = &cli.IntFlag{
		Name:     "fdlimit",
		Usage:    "Raise the open file descriptor resource limit (default = system fd limit)",
		Category: flags.PerfCategory,
	}

	// Account settings
	PasswordFileFlag = &cli.PathFlag{
		Name:      "password",
		Usage:     "Password file to use for non-interactive password input",
		TakesFile: true,
		Category:  flags.AccountCategory,
	}
	KeyFileFlag = &cli.PathFlag{
		Name:      "keyfile",
		Usage:     "Encrypted key file that signs actions",
		TakesFile: true,
		Category:  flags.AccountCategory,
	}
	SignerFlag = &cli.StringFlag{
		Name:     "signer",
		Usage:    "Signature scheme the key signs with (secp256k1|schnorr)",
		Value:    "secp256k1",
		Category: flags.AccountCategory,
	}

	// RPC settings
	HTTPListenAddrFlag = &cli.StringFlag{
		Name:     "http.addr",
		Usage:    "HTTP-RPC server listening interface",
		Value:    node.DefaultHTTPHost,
		Category: flags.APICategory,
	}
	HTTPPortFlag = &cli.IntFlag{
		Name:     "http.port",
		Usage:    "HTTP-RPC server listening port",
		Value:    node.DefaultHTTPPort,
		Category: flags.APICategory,
	}
	HTTPCORSDomainFlag = &cli.StringFlag{
		Name:     "http.corsdomain",
		Usage:    "Comma separated list of domains from which to accept cross origin requests (browser enforced)",
		Value:    "",
		Category: flags.APICategory,
	}
	HTTPVirtualHostsFlag = &cli.StringFlag{
		Name:     "http.vhosts",
		Usage:    "Comma separated list of virtual hostnames from which to accept requests (server enforced). Accepts '*' wildcard.",
		Value:    strings.Join(node.DefaultConfig.HTTPVirtualHosts, ","),
		Category: flags.APICategory,
	}
	WSEnabledFlag = &cli.BoolFlag{
		Name:     "ws",
		Usage:    "Accept websocket connections, which carry receipt subscriptions, on the HTTP endpoint",
		Category: flags.APICategory,
	}
	WSAllowedOriginsFlag = &cli.StringFlag{
		Name:     "ws.origins",
		Usage:    "Origins from which to accept websockets requests",
		Value:    "",
		Category: flags.APICategory,
	}
	RPCEndpointFlag = &cli.StringFlag{
		Name:     "rpc",
		Usage:    "Endpoint of a running node (http, ws or in-process path)",
		Value:    "http://" + node.DefaultConfig.HTTPEndpoint(),
		Category: flags.APICategory,
	}
)

var (
	// DatabaseFlags is the flag group of all database flags.
	DatabaseFlags = []cli.Flag{
		DataDirFlag,
		InMemoryFlag,
		CacheDatabaseFlag,
		CacheStateFlag,
		FDLimitFlag,
	}
	// RPCFlags is the flag group of the RPC server flags.
	RPCFlags = []cli.Flag{
		HTTPListenAddrFlag,
		HTTPPortFlag,
		HTTPCORSDomainFlag,
		HTTPVirtualHostsFlag,
		WSEnabledFlag,
		WSAllowedOriginsFlag,
	}
)

// MakeDataDir retrieves the currently requested data directory, terminating
// if none (or the empty string) is specified.
func MakeDataDir(ctx *cli.Context) string {
	if path := ctx.Path(DataDirFlag.Name); path != "" {
		return path
	}
	Fatalf("Cannot determine default data directory, please set manually (--datadir)")
	return ""
}

// SplitAndTrim splits input separated by a comma
// and trims excessive white space from the substrings.
func SplitAndTrim(input string) (ret []string) {
	l := strings.Split(input, ",")
	for _, r := range l {
		if r = strings.TrimSpace(r); r != "" {
			ret = append(ret, r)
		}
	}
	return ret
}

// setHTTP applies the HTTP RPC listener flags. An empty --http.addr disables
// the endpoint.
func setHTTP(ctx *cli.Context, cfg *node.Config) {
	if ctx.IsSet(HTTPListenAddrFlag.Name) {
		cfg.HTTPHost = ctx.String(HTTPListenAddrFlag.Name)
	}
	if ctx.IsSet(HTTPPortFlag.Name) {
		cfg.HTTPPort = ctx.Int(HTTPPortFlag.Name)
	}
	if ctx.IsSet(HTTPCORSDomainFlag.Name) {
		cfg.HTTPCors = SplitAndTrim(ctx.String(HTTPCORSDomainFlag.Name))
	}
	if ctx.IsSet(HTTPVirtualHostsFlag.Name) {
		cfg.HTTPVirtualHosts = SplitAndTrim(ctx.String(HTTPVirtualHostsFlag.Name))
	}
}

// setWS applies the websocket flags.
func setWS(ctx *cli.Context, cfg *node.Config) {
	if ctx.IsSet(WSEnabledFlag.Name) {
		cfg.WSEnabled = ctx.Bool(WSEnabledFlag.Name)
	}
	if ctx.IsSet(WSAllowedOriginsFlag.Name) {
		cfg.WSOrigins = SplitAndTrim(ctx.String(WSAllowedOriginsFlag.Name))
	}
}

// SetDataDir applies the data directory flags. --inmemory wins over --datadir.
func SetDataDir(ctx *cli.Context, cfg *node.Config) {
	switch {
	case ctx.Bool(InMemoryFlag.Name):
		cfg.DataDir = ""
	case ctx.IsSet(DataDirFlag.Name):
		cfg.DataDir = ctx.Path(DataDirFlag.Name)
	}
}

// SetNodeConfig applies node-related command line flags to the config.
func SetNodeConfig(ctx *cli.Context, cfg *node.Config) {
	setHTTP(ctx, cfg)
	setWS(ctx, cfg)
	SetDataDir(ctx, cfg)

	if ctx.IsSet(CacheDatabaseFlag.Name) {
		cfg.DatabaseCache = ctx.Int(CacheDatabaseFlag.Name)
	}
	cfg.DatabaseCache = sanitizeCache(cfg.DatabaseCache)
	if ctx.IsSet(CacheStateFlag.Name) {
		cfg.StateCache = ctx.Int(CacheStateFlag.Name)
	}
	if cfg.DataDir != "" {
		cfg.DatabaseHandles = MakeDatabaseHandles(ctx.Int(FDLimitFlag.Name))
	}
}

// sanitizeCache caps the database cache at a third of the system memory.
func sanitizeCache(cache int) int {
	mem, err := gopsutil.VirtualMemory()
	if err != nil {
		log.Debug("Failed to read system memory", "err", err)
		return cache
	}
	allowance := int(mem.Total / 1024 / 1024 / 3)
	if cache > allowance {
		log.Warn("Sanitizing cache to Go's GC limits", "provided", cache, "updated", allowance)
		return allowance
	}
	return cache
}

// MakeDatabaseHandles raises out the number of allowed file handles per process
// for gstake and returns half of the allowance to assign to the database.
func MakeDatabaseHandles(max int) int {
	limit, err := fdlimit.Maximum()
	if err != nil {
		Fatalf("Failed to retrieve file descriptor allowance: %v", err)
	}
	switch {
	case max == 0:
		// User didn't specify a meaningful value, use system limits
	case max < 128:
		// User specified something unhealthy, just use system defaults
		log.Error("File descriptor limit invalid (<128)", "had", max, "updated", limit)
	case max > limit:
		// User requested more than the OS allows, notify that we can't allocate it
		log.Warn("Requested file descriptors denied by OS", "req", max, "limit", limit)
	default:
		// User limit is meaningful and within allowed range, use that
		limit = max
	}
	raised, err := fdlimit.Raise(uint64(limit))
	if err != nil {
		Fatalf("Failed to raise file descriptor allowance: %v", err)
	}
	return int(raised / 2) // Leave half for the RPC listener and key files
}

// MakePasswordList reads password lines from the file specified by the global --password flag.
func MakePasswordList(ctx *cli.Context) []string {
	path := ctx.Path(PasswordFileFlag.Name)
	if path == "" {
		return nil
	}
	text, err := os.ReadFile(path)
	if err != nil {
		Fatalf("Failed to read password file: %v", err)
	}
	lines := strings.Split(string(text), "\n")
	// Sanitise DOS line endings.
	for i := range lines {
		lines[i] = strings.TrimRight(lines[i], "\r")
	}
	return lines
}
