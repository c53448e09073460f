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

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"syscall"
	"unicode"

	"github.com/ethereum/go-ethereum/log"
	"github.com/naoina/toml"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gstake/cmd/utils"
	"github.com/tos-network/gstake/core"
	"github.com/tos-network/gstake/internal/flags"
	"github.com/tos-network/gstake/node"
)

var (
	nodeFlags = flags.Merge([]cli.Flag{utils.ConfigFileFlag}, utils.DatabaseFlags, utils.RPCFlags)

	serveCommand = &cli.Command{
		Action:    serve,
		Name:      "serve",
		Usage:     "Run the staking node and serve its RPC endpoint",
		ArgsUsage: " ",
		Flags:     nodeFlags,
		Description: `
Opens the state database, seeds it from the configured genesis on first start
and serves the staking API over HTTP (and websockets with --ws) until
interrupted.`,
	}

	dumpConfigCommand = &cli.Command{
		Action:      dumpConfig,
		Name:        "dumpconfig",
		Usage:       "Export configuration values in a TOML format",
		ArgsUsage:   "<dumpfile (optional)>",
		Flags:       nodeFlags,
		Description: `Export configuration values in TOML format (to stdout by default).`,
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://godoc.org/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type gstakeConfig struct {
	Node node.Config
}

func loadConfig(file string, cfg *gstakeConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	if _, ok := err.(*toml.LineError); ok {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies the command
// line flags on top of it.
func makeConfig(ctx *cli.Context) gstakeConfig {
	cfg := gstakeConfig{Node: node.DefaultConfig}
	cfg.Node.Genesis = core.DefaultGenesis()

	if file := ctx.String(utils.ConfigFileFlag.Name); file != "" {
		if err := loadConfig(file, &cfg); err != nil {
			utils.Fatalf("%v", err)
		}
	}
	utils.SetNodeConfig(ctx, &cfg.Node)
	return cfg
}

// makeConfigNode creates the staking node from the effective configuration.
func makeConfigNode(ctx *cli.Context) (*node.Node, gstakeConfig) {
	cfg := makeConfig(ctx)
	stack, err := node.New(&cfg.Node)
	if err != nil {
		utils.Fatalf("Failed to create the staking node: %v", err)
	}
	return stack, cfg
}

// serve is the main entry point into the system if no special subcommand is
// run. It creates the node and serves it until interrupted.
func serve(ctx *cli.Context) error {
	if args := ctx.Args().Slice(); len(args) > 0 {
		return fmt.Errorf("invalid command: %q", args[0])
	}
	stack, cfg := makeConfigNode(ctx)
	log.Info("Starting staking node", "datadir", cfg.Node.DataDir, "http", cfg.Node.HTTPEndpoint(), "ws", cfg.Node.WSEnabled)

	sigctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return stack.Serve(sigctx)
}

// dumpConfig is the dumpconfig command.
func dumpConfig(ctx *cli.Context) error {
	cfg := makeConfig(ctx)
	out, err := tomlSettings.Marshal(&cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	dump.Write(out)

	return nil
}
