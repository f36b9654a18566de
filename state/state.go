// Copyright (c) 2022 The TombChain developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"

	"github.com/tombchain/tombcore/kv"
	"github.com/tombchain/tombcore/tomb"
)

const readCacheSize = 2048

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

type storageKey struct {
	addr tomb.Address
	key  tomb.Bytes32
}

// level is one revision of uncommitted writes. Levels stack up as
// checkpoints are created; a get searches from the top down.
type level struct {
	kvs map[storageKey][]byte
}

func newLevel() *level {
	return &level{kvs: make(map[storageKey][]byte)}
}

// State manages contract storage with a save-restore journal.
// All writes are buffered in journal levels until Commit; RevertTo
// drops every write made after the matching NewCheckpoint, which is
// what gives each operation all-or-nothing semantics.
type State struct {
	kv     kv.GetPutter
	levels []*level
	cache  *lru.Cache // raw values read from kv
}

// New create a state object backed by the given kv store.
func New(store kv.GetPutter) *State {
	cache, _ := lru.New(readCacheSize)
	return &State{
		kv:     store,
		levels: []*level{newLevel()},
		cache:  cache,
	}
}

func persistentKey(k storageKey) []byte {
	b := make([]byte, 0, 1+tomb.AddressLength+32)
	b = append(b, 's')
	b = append(b, k.addr.Bytes()...)
	b = append(b, k.key.Bytes()...)
	return b
}

// GetRawStorage returns the raw storage value for the given address and key.
// Missing values yield nil.
func (s *State) GetRawStorage(addr tomb.Address, key tomb.Bytes32) ([]byte, error) {
	sk := storageKey{addr, key}
	for i := len(s.levels) - 1; i >= 0; i-- {
		if v, ok := s.levels[i].kvs[sk]; ok {
			return v, nil
		}
	}
	if v, ok := s.cache.Get(sk); ok {
		return v.([]byte), nil
	}
	v, err := s.kv.Get(persistentKey(sk))
	if err != nil {
		if s.kv.IsNotFound(err) {
			v = nil
		} else {
			return nil, &Error{err}
		}
	}
	s.cache.Add(sk, v)
	return v, nil
}

// SetRawStorage set the raw storage value for the given address and key.
// nil deletes the entry.
func (s *State) SetRawStorage(addr tomb.Address, key tomb.Bytes32, raw []byte) {
	top := s.levels[len(s.levels)-1]
	top.kvs[storageKey{addr, key}] = raw
}

// EncodeStorage set storage value encoded by given enc method.
func (s *State) EncodeStorage(addr tomb.Address, key tomb.Bytes32, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.SetRawStorage(addr, key, raw)
	return nil
}

// DecodeStorage get and decode storage value.
func (s *State) DecodeStorage(addr tomb.Address, key tomb.Bytes32, dec func([]byte) error) error {
	raw, err := s.GetRawStorage(addr, key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// GetBigInt returns the big.Int stored for the given address and key,
// zero if absent.
func (s *State) GetBigInt(addr tomb.Address, key tomb.Bytes32) (*big.Int, error) {
	v := new(big.Int)
	if err := s.DecodeStorage(addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, v)
	}); err != nil {
		return nil, err
	}
	return v, nil
}

// SetBigInt stores a big.Int for the given address and key.
func (s *State) SetBigInt(addr tomb.Address, key tomb.Bytes32, v *big.Int) error {
	return s.EncodeStorage(addr, key, func() ([]byte, error) {
		if v == nil || v.Sign() == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	})
}

// GetUint64 returns the uint64 stored for the given address and key,
// zero if absent.
func (s *State) GetUint64(addr tomb.Address, key tomb.Bytes32) (uint64, error) {
	var v uint64
	if err := s.DecodeStorage(addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &v)
	}); err != nil {
		return 0, err
	}
	return v, nil
}

// SetUint64 stores a uint64 for the given address and key.
func (s *State) SetUint64(addr tomb.Address, key tomb.Bytes32, v uint64) error {
	return s.EncodeStorage(addr, key, func() ([]byte, error) {
		if v == 0 {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	})
}

// GetAddress returns the address stored for the given address and key,
// zero address if absent.
func (s *State) GetAddress(addr tomb.Address, key tomb.Bytes32) (tomb.Address, error) {
	var v tomb.Address
	if err := s.DecodeStorage(addr, key, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &v)
	}); err != nil {
		return tomb.Address{}, err
	}
	return v, nil
}

// SetAddress stores an address for the given address and key.
func (s *State) SetAddress(addr tomb.Address, key tomb.Bytes32, v tomb.Address) error {
	return s.EncodeStorage(addr, key, func() ([]byte, error) {
		if v.IsZero() {
			return nil, nil
		}
		return rlp.EncodeToBytes(v)
	})
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	s.levels = append(s.levels, newLevel())
	return len(s.levels) - 1
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision < 1 || revision > len(s.levels) {
		panic("state: invalid revision")
	}
	s.levels = s.levels[:revision]
}

// Atomic runs fn inside a checkpoint and reverts every write fn made
// when it returns an error.
func (s *State) Atomic(fn func() error) error {
	rev := s.NewCheckpoint()
	if err := fn(); err != nil {
		s.RevertTo(rev)
		return err
	}
	return nil
}

// Commit flushes all journaled writes into the backing store and
// resets the journal.
func (s *State) Commit() error {
	batch := s.kv.NewBatch()
	flat := make(map[storageKey][]byte)
	for _, lvl := range s.levels {
		for k, v := range lvl.kvs {
			flat[k] = v
		}
	}
	for k, v := range flat {
		if len(v) == 0 {
			if err := batch.Delete(persistentKey(k)); err != nil {
				return &Error{err}
			}
		} else if err := batch.Put(persistentKey(k), v); err != nil {
			return &Error{err}
		}
		s.cache.Add(k, v)
	}
	if err := batch.Write(); err != nil {
		return &Error{err}
	}
	s.levels = []*level{newLevel()}
	return nil
}
