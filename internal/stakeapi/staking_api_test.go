package stakeapi

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/tos-network/gstake/accountsigner"
	"github.com/tos-network/gstake/core"
	"github.com/tos-network/gstake/derive"
	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/stakedb/memorydb"
	"github.com/tos-network/gstake/state"
	"github.com/tos-network/gstake/sysaction"
)

func newTestAPI(t *testing.T) (*StakingAPI, *core.Processor) {
	t.Helper()
	db, err := state.New(memorydb.New(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := core.DefaultGenesis().Commit(db); err != nil {
		t.Fatal(err)
	}
	proc := core.NewProcessor(db, nil)
	t.Cleanup(proc.Close)
	return NewStakingAPI(proc), proc
}

func TestAccountsBeforeInitialize(t *testing.T) {
	api, _ := newTestAPI(t)
	owner, user := common.HexToAddress("0x01"), common.HexToAddress("0x02")

	accounts, err := api.Accounts(context.Background(), owner, user)
	if err != nil {
		t.Fatal(err)
	}
	config := derive.Config(owner)
	want := DerivedAccounts{
		Config:      config,
		NativeVault: derive.NativeVault(config),
		Minter:      derive.Minter(config, user),
		Position:    derive.Position(config, user),
		StakeVault:  derive.TokenVault(config, params.DefaultStakeAsset),
		RewardVault: derive.TokenVault(config, params.DefaultRewardAsset),
	}
	if *accounts != want {
		t.Fatalf("accounts mismatch:\nhave %+v\nwant %+v", accounts, want)
	}
}

func TestReadsOfMissingRecords(t *testing.T) {
	api, _ := newTestAPI(t)
	ctx := context.Background()
	config := derive.Config(common.HexToAddress("0x01"))

	if cfg, err := api.Config(ctx, config); cfg != nil || err != nil {
		t.Fatalf("Config = %+v, %v", cfg, err)
	}
	if pos, err := api.Position(ctx, config, common.Address{}); pos != nil || err != nil {
		t.Fatalf("Position = %+v, %v", pos, err)
	}
	if _, err := api.Quote(ctx, config, 1, 1); !errors.Is(err, errNotInitialized) {
		t.Fatalf("Quote error = %v", err)
	}
	if _, err := api.Balance(ctx, common.HexToAddress("0xdead"), common.Address{}); err == nil {
		t.Fatal("balance of unknown asset succeeded")
	}
	if _, err := api.Receipts(ctx); !errors.Is(err, rpc.ErrNotificationsUnsupported) {
		t.Fatalf("Receipts without notifier: %v", err)
	}
}

func TestSendActionReturnsFailedReceipt(t *testing.T) {
	api, proc := newTestAPI(t)
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	// Initialize fails: the signer cannot fund the native vault.
	env, err := sysaction.NewEnvelope(0, sysaction.ActionInitialize, sysaction.InitializePayload{})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Sign(accountsigner.SignerTypeSchnorr, key); err != nil {
		t.Fatal(err)
	}
	receipt, err := api.SendAction(context.Background(), *env)
	if err != nil {
		t.Fatalf("executed envelope reported as rejected: %v", err)
	}
	if uint64(receipt.Status) != core.ReceiptStatusFailed || receipt.Error == "" {
		t.Fatalf("unexpected receipt: %+v", receipt)
	}
	if proc.Nonce(env.From) != 0 {
		t.Fatal("failed action advanced the nonce")
	}

	env.Nonce = 3
	if _, err := api.SendAction(context.Background(), *env); err == nil {
		t.Fatal("envelope with a stale proof accepted")
	}
}
