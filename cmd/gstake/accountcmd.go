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
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/tos-network/gstake/accountsigner"
	"github.com/tos-network/gstake/cmd/utils"
	"github.com/tos-network/gstake/internal/flags"
)

const defaultKeyfileName = "keyfile.json"

var (
	lightKDFFlag = &cli.BoolFlag{
		Name:     "lightkdf",
		Usage:    "Reduce key-derivation RAM & CPU usage at some expense of KDF strength",
		Category: flags.AccountCategory,
	}
	privateKeyFlag = &cli.StringFlag{
		Name:     "privatekey",
		Usage:    "File containing a raw hex private key to encrypt",
		Category: flags.AccountCategory,
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "Output JSON instead of human-readable format",
	}
	privateFlag = &cli.BoolFlag{
		Name:  "private",
		Usage: "Include the private key in the output",
	}

	accountCommand = &cli.Command{
		Name:  "account",
		Usage: "Manage the keys that sign staking actions",
		Description: `
Keys are stored encrypted in the Web3 secret storage format. The same key can
sign as a secp256k1 or a schnorr account; the two schemes derive different
addresses, selected with --signer whenever the key is used.`,
		Subcommands: []*cli.Command{
			{
				Name:      "new",
				Usage:     "Create a new encrypted keyfile",
				Action:    accountNew,
				ArgsUsage: "[ <keyfile> ]",
				Flags: []cli.Flag{
					utils.PasswordFileFlag,
					utils.SignerFlag,
					lightKDFFlag,
					privateKeyFlag,
					jsonFlag,
				},
			},
			{
				Name:      "inspect",
				Usage:     "Print the addresses and public key of a keyfile",
				Action:    accountInspect,
				ArgsUsage: "<keyfile>",
				Flags: []cli.Flag{
					utils.PasswordFileFlag,
					jsonFlag,
					privateFlag,
				},
			},
		},
	}
)

type outputAccount struct {
	Address    common.Address            `json:"address"`
	SignerType string                    `json:"signerType"`
	Addresses  map[string]common.Address `json:"addresses,omitempty"`
	PublicKey  string                    `json:"publicKey,omitempty"`
	PrivateKey string                    `json:"privateKey,omitempty"`
}

// getPassphrase obtains a passphrase given by the user. It first checks the
// --password command line flag and ultimately prompts the user for a
// passphrase.
func getPassphrase(ctx *cli.Context, confirmation bool) string {
	return utils.GetPassPhraseWithList("", confirmation, 0, utils.MakePasswordList(ctx))
}

func signerType(ctx *cli.Context) string {
	requested := ctx.String(utils.SignerFlag.Name)
	canonical, err := accountsigner.CanonicalSignerType(requested)
	if err != nil {
		utils.Fatalf("Unsupported signer type %q", requested)
	}
	return canonical
}

func accountNew(ctx *cli.Context) error {
	// Check if keyfile path given and make sure it doesn't already exist.
	keyfilepath := ctx.Args().First()
	if keyfilepath == "" {
		keyfilepath = defaultKeyfileName
	}
	if _, err := os.Stat(keyfilepath); err == nil {
		utils.Fatalf("Keyfile already exists at %s.", keyfilepath)
	} else if !os.IsNotExist(err) {
		utils.Fatalf("Error checking if keyfile exists: %v", err)
	}
	scheme := signerType(ctx)

	var (
		privateKey *ecdsa.PrivateKey
		err        error
	)
	if file := ctx.String(privateKeyFlag.Name); file != "" {
		// Load private key from file.
		privateKey, err = crypto.LoadECDSA(file)
		if err != nil {
			utils.Fatalf("Can't load private key: %v", err)
		}
	} else {
		// If not loaded, generate random.
		privateKey, err = crypto.GenerateKey()
		if err != nil {
			utils.Fatalf("Failed to generate random private key: %v", err)
		}
	}

	// Create the keyfile object with a random UUID.
	UUID, err := uuid.NewRandom()
	if err != nil {
		utils.Fatalf("Failed to generate random uuid: %v", err)
	}
	key := &keystore.Key{
		Id:         UUID,
		Address:    crypto.PubkeyToAddress(privateKey.PublicKey),
		PrivateKey: privateKey,
	}

	// Encrypt key with passphrase.
	passphrase := getPassphrase(ctx, true)
	scryptN, scryptP := keystore.StandardScryptN, keystore.StandardScryptP
	if ctx.Bool(lightKDFFlag.Name) {
		scryptN, scryptP = keystore.LightScryptN, keystore.LightScryptP
	}
	keyjson, err := keystore.EncryptKey(key, passphrase, scryptN, scryptP)
	if err != nil {
		utils.Fatalf("Error encrypting key: %v", err)
	}

	// Store the file to disk.
	if err := os.MkdirAll(filepath.Dir(keyfilepath), 0700); err != nil {
		utils.Fatalf("Could not create directory %s", filepath.Dir(keyfilepath))
	}
	if err := os.WriteFile(keyfilepath, keyjson, 0600); err != nil {
		utils.Fatalf("Failed to write keyfile to %s: %v", keyfilepath, err)
	}

	address, err := accountsigner.Address(scheme, privateKey)
	if err != nil {
		utils.Fatalf("Failed to derive %s address: %v", scheme, err)
	}
	out := outputAccount{Address: address, SignerType: scheme}
	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(out)
	} else {
		fmt.Println("Address:", out.Address.Hex())
		fmt.Println("Signer: ", out.SignerType)
	}
	return nil
}

func accountInspect(ctx *cli.Context) error {
	keyfilepath := ctx.Args().First()
	if keyfilepath == "" {
		utils.Fatalf("Keyfile path is required")
	}
	key := loadKeyfile(ctx, keyfilepath)

	out := outputAccount{
		SignerType: accountsigner.SignerTypeSecp256k1,
		Addresses:  make(map[string]common.Address),
		PublicKey:  hex.EncodeToString(crypto.FromECDSAPub(&key.PublicKey)),
	}
	for _, scheme := range []string{accountsigner.SignerTypeSecp256k1, accountsigner.SignerTypeSchnorr} {
		address, err := accountsigner.Address(scheme, key)
		if err != nil {
			utils.Fatalf("Failed to derive %s address: %v", scheme, err)
		}
		out.Addresses[scheme] = address
	}
	out.Address = out.Addresses[out.SignerType]
	if ctx.Bool(privateFlag.Name) {
		out.PrivateKey = hex.EncodeToString(crypto.FromECDSA(key))
	}

	if ctx.Bool(jsonFlag.Name) {
		mustPrintJSON(out)
	} else {
		fmt.Println("Address (secp256k1):", out.Addresses[accountsigner.SignerTypeSecp256k1].Hex())
		fmt.Println("Address (schnorr):  ", out.Addresses[accountsigner.SignerTypeSchnorr].Hex())
		fmt.Println("Public key:         ", out.PublicKey)
		if out.PrivateKey != "" {
			fmt.Println("Private key:        ", out.PrivateKey)
		}
	}
	return nil
}

// loadKeyfile reads and decrypts an encrypted keyfile.
func loadKeyfile(ctx *cli.Context, path string) *ecdsa.PrivateKey {
	keyjson, err := os.ReadFile(path)
	if err != nil {
		utils.Fatalf("Failed to read the keyfile at '%s': %v", path, err)
	}
	key, err := keystore.DecryptKey(keyjson, getPassphrase(ctx, false))
	if err != nil {
		utils.Fatalf("Error decrypting key: %v", err)
	}
	return key.PrivateKey
}

// mustPrintJSON prints the JSON encoding of the given object and
// exits the program with an error message when the marshaling fails.
func mustPrintJSON(jsonObject interface{}) {
	str, err := json.MarshalIndent(jsonObject, "", "  ")
	if err != nil {
		utils.Fatalf("Failed to marshal JSON object: %v", err)
	}
	fmt.Println(string(str))
}
