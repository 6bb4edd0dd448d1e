// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state manages contract storage and code on top of a kv store.
// Changes are kept in a stacked journal until committed, so any checkpoint can
// be reverted.
package state

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/cache"
	"github.com/anchorprotocol/ethanchor/kv"
	"github.com/anchorprotocol/ethanchor/stackedmap"
)

const (
	storageBucket = kv.Bucket("s")
	codeBucket    = kv.Bucket("c")

	cacheSize = 4096
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

type entryKind byte

const (
	storageEntry entryKind = iota
	codeEntry
)

type entryKey struct {
	kind entryKind
	addr anchor.Address
	slot anchor.Bytes32
}

func (k entryKey) dbKey() []byte {
	if k.kind == codeEntry {
		return codeBucket.Key(k.addr.Bytes())
	}
	return storageBucket.Key(append(k.addr.Bytes(), k.slot.Bytes()...))
}

// State manages the storage of all contract accounts.
type State struct {
	db    kv.Store
	cache *cache.LRU // committed values read from db
	sm    *stackedmap.StackedMap[entryKey, []byte]
}

// New create state object.
func New(db kv.Store) *State {
	c, _ := cache.NewLRU(cacheSize)
	s := &State{db: db, cache: c}
	s.sm = stackedmap.New(s.load)
	return s
}

func (s *State) load(key entryKey) ([]byte, bool, error) {
	v, err := s.cache.GetOrLoad(key, func(any) (any, error) {
		data, err := s.db.Get(key.dbKey())
		if err != nil {
			if s.db.IsNotFound(err) {
				return []byte(nil), nil
			}
			return nil, err
		}
		return data, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), true, nil
}

// GetStorage returns storage value for the given address and key.
func (s *State) GetStorage(addr anchor.Address, key anchor.Bytes32) (anchor.Bytes32, error) {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return anchor.Bytes32{}, err
	}
	if len(raw) == 0 {
		return anchor.Bytes32{}, nil
	}
	kind, content, _, err := rlp.Split(raw)
	if err != nil {
		return anchor.Bytes32{}, &Error{err}
	}
	if kind == rlp.List {
		// structured values are represented by their hash
		return anchor.Blake2b(raw), nil
	}
	return anchor.BytesToBytes32(content), nil
}

// SetStorage set storage value for the given address and key.
func (s *State) SetStorage(addr anchor.Address, key, value anchor.Bytes32) {
	if value.IsZero() {
		s.SetRawStorage(addr, key, nil)
		return
	}
	v, _ := rlp.EncodeToBytes(bytes.TrimLeft(value[:], "\x00"))
	s.SetRawStorage(addr, key, v)
}

// GetRawStorage returns storage value in rlp raw for given address and key.
func (s *State) GetRawStorage(addr anchor.Address, key anchor.Bytes32) (rlp.RawValue, error) {
	data, _, err := s.sm.Get(entryKey{kind: storageEntry, addr: addr, slot: key})
	if err != nil {
		return nil, &Error{err}
	}
	return data, nil
}

// SetRawStorage set storage value in rlp raw.
func (s *State) SetRawStorage(addr anchor.Address, key anchor.Bytes32, raw rlp.RawValue) {
	s.sm.Put(entryKey{kind: storageEntry, addr: addr, slot: key}, raw)
}

// EncodeStorage set storage value encoded by given enc method.
func (s *State) EncodeStorage(addr anchor.Address, key anchor.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
func (s *State) DecodeStorage(addr anchor.Address, key anchor.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetCode returns the code tag deployed at addr, empty if none.
func (s *State) GetCode(addr anchor.Address) ([]byte, error) {
	code, _, err := s.sm.Get(entryKey{kind: codeEntry, addr: addr})
	if err != nil {
		return nil, &Error{err}
	}
	return code, nil
}

// SetCode set code for the given address.
func (s *State) SetCode(addr anchor.Address, code []byte) {
	s.sm.Put(entryKey{kind: codeEntry, addr: addr}, code)
}

// Exists returns whether code is deployed at addr.
func (s *State) Exists(addr anchor.Address) (bool, error) {
	code, err := s.GetCode(addr)
	if err != nil {
		return false, err
	}
	return len(code) > 0, nil
}

// CacheStats reports the hits and misses of committed values, see cache.Stats.
func (s *State) CacheStats() (bool, int64, int64) {
	return s.cache.Stats()
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	s.sm.PopTo(revision)
}

// Commit writes every journaled change to the underlying store in one batch
// and starts a fresh journal.
func (s *State) Commit() error {
	journal := s.sm.Journal()

	// last write wins
	latest := make(map[entryKey][]byte, len(journal))
	for _, entry := range journal {
		latest[entry.Key] = entry.Value
	}

	batch := s.db.NewBatch()
	for key, value := range latest {
		var err error
		if len(value) == 0 {
			err = batch.Delete(key.dbKey())
		} else {
			err = batch.Put(key.dbKey(), value)
		}
		if err != nil {
			return &Error{err}
		}
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}

	for key, value := range latest {
		s.cache.Add(key, value)
	}
	metricStateChanges().Add(int64(len(latest)))

	s.sm = stackedmap.New(s.load)
	return nil
}
