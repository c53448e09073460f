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

// gstake is the command-line client of the staking node.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/tos-network/gstake/internal/debug"
	"github.com/tos-network/gstake/internal/flags"
)

const (
	clientIdentifier = "gstake" // Client identifier to advertise over the network
)

var (
	// Git SHA1 commit hash of the release (set via linker flags)
	gitCommit = ""
	gitDate   = ""
)

var app = flags.NewApp(gitCommit, gitDate, "the staking node command line interface")

func init() {
	app.Action = serve
	app.Commands = []*cli.Command{
		serveCommand,
		dumpConfigCommand,
		accountCommand,
		actionCommand,
		quoteCommand,
		accountsCommand,
		versionCommand,
		licenseCommand,
	}
	app.Flags = flags.Merge(nodeFlags, debug.Flags)

	app.Before = func(ctx *cli.Context) error {
		flags.MigrateGlobalFlags(ctx)
		return debug.Setup(ctx)
	}
	app.After = func(ctx *cli.Context) error {
		debug.Exit()
		return nil
	}
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
