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
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gstake/cmd/utils"
	"github.com/tos-network/gstake/stakeclient"
	"github.com/tos-network/gstake/sysaction"
)

var (
	payloadFlag = &cli.StringFlag{
		Name:  "payload",
		Usage: "JSON payload of the action",
		Value: "{}",
	}
	timeoutFlag = &cli.DurationFlag{
		Name:  "timeout",
		Usage: "Time allowed for the request",
		Value: 30 * time.Second,
	}

	actionCommand = &cli.Command{
		Action:    sendAction,
		Name:      "action",
		Usage:     "Sign and submit a staking action to a running node",
		ArgsUsage: "<KIND>",
		Flags: []cli.Flag{
			utils.RPCEndpointFlag,
			utils.KeyFileFlag,
			utils.PasswordFileFlag,
			utils.SignerFlag,
			payloadFlag,
			timeoutFlag,
			jsonFlag,
		},
		Description: `
Signs an action with the key in --keyfile, using the next nonce of the signing
account, and prints the receipt. KIND is one of:

    ` + strings.Join(actionKindNames(), ", ") + `

Record and custody addresses left out of the payload are derived by the node.`,
	}

	quoteCommand = &cli.Command{
		Action:    quote,
		Name:      "quote",
		Usage:     "Quote the scaled reward an amount accrues over a period",
		ArgsUsage: "<config> <amount> <seconds>",
		Flags:     []cli.Flag{utils.RPCEndpointFlag, timeoutFlag},
	}

	accountsCommand = &cli.Command{
		Action:    derivedAccounts,
		Name:      "accounts",
		Usage:     "Print the record and custody addresses derived for an owner",
		ArgsUsage: "<owner> [ <user> ]",
		Flags:     []cli.Flag{utils.RPCEndpointFlag, timeoutFlag},
	}
)

func actionKindNames() []string {
	names := make([]string, len(sysaction.AllActions))
	for i, kind := range sysaction.AllActions {
		names[i] = string(kind)
	}
	return names
}

func parseActionKind(arg string) (sysaction.ActionKind, error) {
	kind := sysaction.ActionKind(strings.ToUpper(arg))
	for _, known := range sysaction.AllActions {
		if kind == known {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", arg)
}

func parseAddress(arg string) (common.Address, error) {
	if !common.IsHexAddress(arg) {
		return common.Address{}, fmt.Errorf("invalid address %q", arg)
	}
	return common.HexToAddress(arg), nil
}

func dial(ctx *cli.Context) (*stakeclient.Client, context.Context, context.CancelFunc) {
	rctx, cancel := context.WithTimeout(ctx.Context, ctx.Duration(timeoutFlag.Name))
	client, err := stakeclient.DialContext(rctx, ctx.String(utils.RPCEndpointFlag.Name))
	if err != nil {
		cancel()
		utils.Fatalf("Failed to connect to %s: %v", ctx.String(utils.RPCEndpointFlag.Name), err)
	}
	return client, rctx, func() {
		client.Close()
		cancel()
	}
}

func sendAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return fmt.Errorf("expected exactly one action kind, got %d arguments", ctx.NArg())
	}
	kind, err := parseActionKind(ctx.Args().First())
	if err != nil {
		return err
	}
	payload := json.RawMessage(ctx.String(payloadFlag.Name))
	if !json.Valid(payload) {
		return fmt.Errorf("payload is not valid JSON: %s", payload)
	}
	keyfile := ctx.Path(utils.KeyFileFlag.Name)
	if keyfile == "" {
		return fmt.Errorf("--%s is required", utils.KeyFileFlag.Name)
	}
	key := loadKeyfile(ctx, keyfile)

	client, rctx, done := dial(ctx)
	defer done()

	receipt, err := client.Send(rctx, signerType(ctx), key, kind, payload)
	if receipt != nil {
		printReceipt(ctx, receipt)
	}
	return err
}

func printReceipt(ctx *cli.Context, receipt *stakeclient.Receipt) {
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(receipt)
		return
	}
	status := color.GreenString("succeeded")
	if !receipt.Succeeded() {
		status = color.RedString("failed: %s", receipt.Error)
	}
	fmt.Printf("%s %s (hash %s, nonce %d)\n", receipt.Action, status, receipt.Hash.Hex(), uint64(receipt.Nonce))
	for _, l := range receipt.Logs {
		fmt.Printf("  %s %s\n", l.Name, string(l.Data))
	}
}

func quote(ctx *cli.Context) error {
	if ctx.NArg() != 3 {
		return fmt.Errorf("expected <config> <amount> <seconds>")
	}
	config, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	amount, err := strconv.ParseUint(ctx.Args().Get(1), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid amount: %v", err)
	}
	seconds, err := strconv.ParseUint(ctx.Args().Get(2), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid duration: %v", err)
	}
	client, rctx, done := dial(ctx)
	defer done()

	reward, err := client.Quote(rctx, config, amount, seconds)
	if err != nil {
		return err
	}
	fmt.Println(reward)
	return nil
}

func derivedAccounts(ctx *cli.Context) error {
	if ctx.NArg() < 1 || ctx.NArg() > 2 {
		return fmt.Errorf("expected <owner> [ <user> ]")
	}
	owner, err := parseAddress(ctx.Args().Get(0))
	if err != nil {
		return err
	}
	var user common.Address
	if ctx.NArg() == 2 {
		if user, err = parseAddress(ctx.Args().Get(1)); err != nil {
			return err
		}
	}
	client, rctx, done := dial(ctx)
	defer done()

	accounts, err := client.Accounts(rctx, owner, user)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Account", "Address"})
	table.AppendBulk([][]string{
		{"config", accounts.Config.Hex()},
		{"native vault", accounts.NativeVault.Hex()},
		{"minter record", accounts.Minter.Hex()},
		{"position", accounts.Position.Hex()},
		{"stake vault", accounts.StakeVault.Hex()},
		{"reward vault", accounts.RewardVault.Hex()},
	})
	table.Render()
	return nil
}
