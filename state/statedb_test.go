package state

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/tos-network/gstake/stakedb"
	"github.com/tos-network/gstake/stakedb/memorydb"
)

var errWriteFailed = errors.New("write failed")

// flakyStore fails the next n batch writes.
type flakyStore struct {
	stakedb.KeyValueStore
	n int
}

func (s *flakyStore) NewBatch() stakedb.Batch {
	return &flakyBatch{Batch: s.KeyValueStore.NewBatch(), store: s}
}

type flakyBatch struct {
	stakedb.Batch
	store *flakyStore
}

func (b *flakyBatch) Write() error {
	if b.store.n > 0 {
		b.store.n--
		return errWriteFailed
	}
	return b.Batch.Write()
}

func newTestState(t *testing.T) (*StateDB, *memorydb.Database) {
	t.Helper()
	db := memorydb.New()
	s, err := New(db, 16)
	if err != nil {
		t.Fatalf("failed to create state db: %v", err)
	}
	return s, db
}

func tAddr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func word(b byte) common.Hash {
	var h common.Hash
	h[31] = b
	return h
}

func TestOverlayNotPersistedUntilCommit(t *testing.T) {
	s, db := newTestState(t)
	s.SetState(tAddr(1), word(1), word(7))
	if got := s.GetState(tAddr(1), word(1)); got != word(7) {
		t.Fatalf("overlay read = %x", got)
	}
	if db.Len() != 0 {
		t.Fatalf("write reached the database before commit")
	}
	if err := s.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if db.Len() != 1 {
		t.Fatalf("database holds %d entries, want 1", db.Len())
	}

	fresh, err := New(db, 16)
	if err != nil {
		t.Fatal(err)
	}
	if got := fresh.GetState(tAddr(1), word(1)); got != word(7) {
		t.Fatalf("committed read = %x", got)
	}
}

func TestCommitDeletesZeroWords(t *testing.T) {
	s, db := newTestState(t)
	s.SetState(tAddr(1), word(1), word(7))
	s.SetState(tAddr(1), word(2), word(8))
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	s.SetState(tAddr(1), word(1), common.Hash{})
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if db.Len() != 1 {
		t.Fatalf("database holds %d entries, want 1", db.Len())
	}
	if got := s.GetState(tAddr(1), word(1)); got != (common.Hash{}) {
		t.Fatalf("cleared slot read = %x", got)
	}
}

func TestSnapshotRevert(t *testing.T) {
	s, _ := newTestState(t)
	s.SetState(tAddr(1), word(1), word(1))
	id := s.Snapshot()
	s.SetState(tAddr(1), word(1), word(2))
	s.SetState(tAddr(2), word(1), word(3))
	inner := s.Snapshot()
	s.SetState(tAddr(2), word(1), word(4))

	s.RevertToSnapshot(inner)
	if got := s.GetState(tAddr(2), word(1)); got != word(3) {
		t.Fatalf("after inner revert = %x", got)
	}
	s.RevertToSnapshot(id)
	if got := s.GetState(tAddr(1), word(1)); got != word(1) {
		t.Fatalf("after outer revert = %x", got)
	}
	if got := s.GetState(tAddr(2), word(1)); got != (common.Hash{}) {
		t.Fatalf("slot written after snapshot survived revert: %x", got)
	}
	// Reverting to a discarded snapshot is a no-op.
	s.SetState(tAddr(3), word(1), word(5))
	s.RevertToSnapshot(inner)
	if got := s.GetState(tAddr(3), word(1)); got != word(5) {
		t.Fatalf("stale snapshot reverted state: %x", got)
	}
}

func TestDiscard(t *testing.T) {
	s, db := newTestState(t)
	s.SetState(tAddr(1), word(1), word(1))
	s.Discard()
	if s.Dirty() != 0 {
		t.Fatalf("dirty slots after discard: %d", s.Dirty())
	}
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	if db.Len() != 0 {
		t.Fatalf("discarded write persisted")
	}
}

func TestNonce(t *testing.T) {
	s, _ := newTestState(t)
	if n := s.GetNonce(tAddr(1)); n != 0 {
		t.Fatalf("fresh nonce = %d", n)
	}
	s.SetNonce(tAddr(1), 42)
	if n := s.GetNonce(tAddr(1)); n != 42 {
		t.Fatalf("nonce = %d", n)
	}
	if n := s.GetNonce(tAddr(2)); n != 0 {
		t.Fatalf("nonce leaked across accounts: %d", n)
	}
}

func TestForEachStorage(t *testing.T) {
	s, _ := newTestState(t)
	s.SetState(tAddr(1), word(1), word(1))
	s.SetState(tAddr(1), word(2), word(2))
	s.SetState(tAddr(2), word(1), word(9))
	if err := s.Commit(); err != nil {
		t.Fatal(err)
	}
	s.SetState(tAddr(1), word(2), common.Hash{})
	s.SetState(tAddr(1), word(3), word(3))

	got := make(map[common.Hash]common.Hash)
	err := s.ForEachStorage(tAddr(1), func(slot, value common.Hash) bool {
		got[slot] = value
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[common.Hash]common.Hash{word(1): word(1), word(3): word(3)}
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(got), len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("slot %x = %x, want %x", k, got[k], v)
		}
	}
}

func TestFailedCommitDropsOverlay(t *testing.T) {
	mem := memorydb.New()
	store := &flakyStore{KeyValueStore: mem, n: 1}
	s, err := New(store, 16)
	if err != nil {
		t.Fatalf("failed to create state db: %v", err)
	}
	s.SetState(tAddr(1), word(1), word(7))
	s.SetNonce(tAddr(1), 3)
	if err := s.Commit(); !errors.Is(err, errWriteFailed) {
		t.Fatalf("commit error = %v, want %v", err, errWriteFailed)
	}
	if n := s.Dirty(); n != 0 {
		t.Fatalf("%d slots survived a failed commit", n)
	}
	if got := s.GetState(tAddr(1), word(1)); got != (common.Hash{}) {
		t.Fatalf("slot after failed commit = %x", got)
	}
	if got := s.GetNonce(tAddr(1)); got != 0 {
		t.Fatalf("nonce after failed commit = %d", got)
	}
	if mem.Len() != 0 {
		t.Fatalf("failed commit reached the database")
	}
	if err := s.Error(); err != nil {
		t.Fatalf("error retained after failed commit: %v", err)
	}

	s.SetState(tAddr(1), word(1), word(8))
	if err := s.Commit(); err != nil {
		t.Fatalf("commit after failure: %v", err)
	}
	if got := s.GetCommittedState(tAddr(1), word(1)); got != word(8) {
		t.Fatalf("committed slot = %x", got)
	}
}
