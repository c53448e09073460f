// Package state keeps the staking records as 32-byte storage slots on top of
// a key-value store.
//
// A StateDB serves reads from a local write overlay first, then from a clean
// cache, then from the database. Writes only touch the overlay until Commit
// flushes them in one batch, so a failed operation can be dropped whole with
// Discard or rolled back partially with RevertToSnapshot.
package state

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	lru "github.com/hashicorp/golang-lru"

	"github.com/tos-network/gstake/params"
	"github.com/tos-network/gstake/stakedb"
)

// Store is the slot access the domain packages need. It is satisfied by
// *StateDB.
type Store interface {
	GetState(addr common.Address, slot common.Hash) common.Hash
	SetState(addr common.Address, slot common.Hash, value common.Hash)
	Snapshot() int
	RevertToSnapshot(id int)
}

const defaultCacheSize = 4096

var slotPrefix = []byte("s")

// overlaySnapshot is a point-in-time copy of the write overlay.
type overlaySnapshot struct {
	storage map[common.Address]map[common.Hash]common.Hash
}

// StateDB is a journaled slot overlay over a stakedb.KeyValueStore.
type StateDB struct {
	db    stakedb.KeyValueStore
	clean *lru.Cache // slot key -> common.Hash of committed values

	storage   map[common.Address]map[common.Hash]common.Hash
	snapshots []overlaySnapshot

	// dbErr records the first database failure seen by a read. Reads cannot
	// return errors, so it is surfaced by Commit.
	dbErr error
}

// New creates a StateDB on db with a clean cache of cacheSize slots.
func New(db stakedb.KeyValueStore, cacheSize int) (*StateDB, error) {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	clean, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	return &StateDB{
		db:      db,
		clean:   clean,
		storage: make(map[common.Address]map[common.Hash]common.Hash),
	}, nil
}

func slotKey(addr common.Address, slot common.Hash) []byte {
	key := make([]byte, 0, len(slotPrefix)+common.AddressLength+common.HashLength)
	key = append(key, slotPrefix...)
	key = append(key, addr.Bytes()...)
	return append(key, slot.Bytes()...)
}

func (s *StateDB) setError(err error) {
	if s.dbErr == nil {
		s.dbErr = err
	}
}

// Error returns the first database read failure, if any.
func (s *StateDB) Error() error {
	return s.dbErr
}

// GetState returns the current value of slot under addr.
func (s *StateDB) GetState(addr common.Address, slot common.Hash) common.Hash {
	if slots, ok := s.storage[addr]; ok {
		if val, ok := slots[slot]; ok {
			return val
		}
	}
	return s.GetCommittedState(addr, slot)
}

// GetCommittedState returns the value of slot as of the last Commit, ignoring
// the overlay.
func (s *StateDB) GetCommittedState(addr common.Address, slot common.Hash) common.Hash {
	key := slotKey(addr, slot)
	if cached, ok := s.clean.Get(string(key)); ok {
		cacheHitMeter.Mark(1)
		return cached.(common.Hash)
	}
	cacheMissMeter.Mark(1)

	var val common.Hash
	enc, err := s.db.Get(key)
	switch {
	case errors.Is(err, stakedb.ErrNotFound):
	case err != nil:
		s.setError(fmt.Errorf("read slot %x of %x: %w", slot, addr, err))
		return common.Hash{}
	default:
		val = common.BytesToHash(enc)
	}
	s.clean.Add(string(key), val)
	return val
}

// SetState writes value to slot under addr in the overlay.
func (s *StateDB) SetState(addr common.Address, slot common.Hash, value common.Hash) {
	slots := s.storage[addr]
	if slots == nil {
		slots = make(map[common.Hash]common.Hash)
		s.storage[addr] = slots
	}
	slots[slot] = value
}

func nonceSlot(addr common.Address) common.Hash {
	return crypto.Keccak256Hash(addr.Bytes(), []byte("nonce"))
}

// GetNonce returns the next envelope nonce expected from addr.
func (s *StateDB) GetNonce(addr common.Address) uint64 {
	word := s.GetState(params.NonceAddress, nonceSlot(addr))
	return binary.BigEndian.Uint64(word[24:])
}

// SetNonce records the next envelope nonce expected from addr.
func (s *StateDB) SetNonce(addr common.Address, nonce uint64) {
	var word common.Hash
	binary.BigEndian.PutUint64(word[24:], nonce)
	s.SetState(params.NonceAddress, nonceSlot(addr), word)
}

// Snapshot captures a deep copy of the current overlay and returns an id that
// can be passed to RevertToSnapshot.
func (s *StateDB) Snapshot() int {
	snap := overlaySnapshot{
		storage: make(map[common.Address]map[common.Hash]common.Hash, len(s.storage)),
	}
	for addr, slots := range s.storage {
		cpy := make(map[common.Hash]common.Hash, len(slots))
		for k, v := range slots {
			cpy[k] = v
		}
		snap.storage[addr] = cpy
	}
	id := len(s.snapshots)
	s.snapshots = append(s.snapshots, snap)
	return id
}

// RevertToSnapshot restores the overlay captured by Snapshot(id). All
// snapshots taken after id are discarded.
func (s *StateDB) RevertToSnapshot(id int) {
	if id < 0 || id >= len(s.snapshots) {
		return
	}
	s.storage = s.snapshots[id].storage
	s.snapshots = s.snapshots[:id]
}

// Dirty reports the number of slots written since the last Commit or Discard.
func (s *StateDB) Dirty() int {
	n := 0
	for _, slots := range s.storage {
		n += len(slots)
	}
	return n
}

// Discard drops every uncommitted write and forgets any read failure seen
// since the last commit.
func (s *StateDB) Discard() {
	s.storage = make(map[common.Address]map[common.Hash]common.Hash)
	s.snapshots = s.snapshots[:0]
	s.dbErr = nil
}

// Commit flushes the overlay to the database in a single batch. Zero words are
// deleted rather than stored. A failed commit drops the overlay, so none of its
// writes remain visible.
func (s *StateDB) Commit() error {
	if err := s.commit(); err != nil {
		s.Discard()
		return err
	}
	return nil
}

func (s *StateDB) commit() error {
	if s.dbErr != nil {
		return s.dbErr
	}
	batch := s.db.NewBatch()
	written := 0
	for addr, slots := range s.storage {
		for slot, val := range slots {
			if val == s.GetCommittedState(addr, slot) {
				continue
			}
			key := slotKey(addr, slot)
			var err error
			if val == (common.Hash{}) {
				err = batch.Delete(key)
			} else {
				err = batch.Put(key, val.Bytes())
			}
			if err != nil {
				return err
			}
			written++
		}
	}
	if s.dbErr != nil {
		return s.dbErr
	}
	if err := batch.Write(); err != nil {
		return err
	}
	for addr, slots := range s.storage {
		for slot, val := range slots {
			s.clean.Add(string(slotKey(addr, slot)), val)
		}
	}
	commitSlotsMeter.Mark(int64(written))
	log.Trace("state: committed", "slots", written, "bytes", batch.ValueSize())
	s.Discard()
	return nil
}

// ForEachStorage calls cb for every non-zero slot of addr, committed or not,
// in ascending slot order of the committed keys followed by overlay-only slots.
// Iteration stops when cb returns false.
func (s *StateDB) ForEachStorage(addr common.Address, cb func(slot, value common.Hash) bool) error {
	prefix := append(common.CopyBytes(slotPrefix), addr.Bytes()...)
	it := s.db.NewIterator(prefix, nil)
	defer it.Release()

	seen := make(map[common.Hash]struct{})
	for it.Next() {
		slot := common.BytesToHash(it.Key()[len(prefix):])
		seen[slot] = struct{}{}
		val := s.GetState(addr, slot)
		if val == (common.Hash{}) {
			continue
		}
		if !cb(slot, val) {
			return nil
		}
	}
	if err := it.Error(); err != nil {
		return err
	}
	for slot, val := range s.storage[addr] {
		if _, ok := seen[slot]; ok || val == (common.Hash{}) {
			continue
		}
		if !cb(slot, val) {
			return nil
		}
	}
	return nil
}
