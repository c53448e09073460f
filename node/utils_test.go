// Contains a batch of utility type declarations used by the tests.

package node

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/tos-network/gstake/accountsigner"
	"github.com/tos-network/gstake/core"
	"github.com/tos-network/gstake/sysaction"
)

// NoopLifecycle is a trivial implementation of the Lifecycle interface.
type NoopLifecycle struct{}

func (s *NoopLifecycle) Start() error { return nil }
func (s *NoopLifecycle) Stop() error  { return nil }

// InstrumentedService is an implementation of Lifecycle for which all interface
// methods can be instrumented both return value as well as event hook wise.
type InstrumentedService struct {
	start error
	stop  error

	startHook func()
	stopHook  func()
}

func (s *InstrumentedService) Start() error {
	if s.startHook != nil {
		s.startHook()
	}
	return s.start
}

func (s *InstrumentedService) Stop() error {
	if s.stopHook != nil {
		s.stopHook()
	}
	return s.stop
}

// testConfig is an in-memory node serving HTTP on a random port.
func testConfig() *Config {
	return &Config{
		HTTPHost:         "127.0.0.1",
		HTTPVirtualHosts: []string{"localhost"},
		WSEnabled:        true,
		Genesis:          core.DefaultGenesis(),
	}
}

func createNode(t *testing.T, conf *Config) *Node {
	t.Helper()
	stack, err := New(conf)
	if err != nil {
		t.Fatalf("failed to create node: %v", err)
	}
	return stack
}

// signedInitialize returns a signed initialize envelope for a fresh key that
// the genesis of conf funds.
func signedInitialize(t *testing.T, conf *Config) *sysaction.Envelope {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	owner := crypto.PubkeyToAddress(key.PublicKey)
	conf.Genesis.Native = append(conf.Genesis.Native, core.GenesisAccount{Address: owner, Balance: 1 << 30})

	env, err := sysaction.NewEnvelope(0, sysaction.ActionInitialize, sysaction.InitializePayload{NewOwner: owner, Price: 1, PriceExponent: 1})
	if err != nil {
		t.Fatal(err)
	}
	if err := env.Sign(accountsigner.SignerTypeSecp256k1, key); err != nil {
		t.Fatal(err)
	}
	return env
}
