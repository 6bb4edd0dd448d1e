// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"encoding/binary"
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/anchorprotocol/ethanchor/anchor"
)

type Key interface {
	Bytes() []byte
}

// Index is an integer mapping key.
type Index uint64

func (i Index) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(i))
}

// Mapping is a key/value storage abstraction, similar to the mapping in Solidity.
// Values are RLP encoded; an absent key reads as the zero value.
type Mapping[K Key, V any] struct {
	context *Context
	basePos anchor.Bytes32
}

func NewMapping[K Key, V any](context *Context, pos anchor.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{context: context, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) anchor.Bytes32 {
	return anchor.Blake2b(key.Bytes(), m.basePos.Bytes())
}

func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.context.state.DecodeStorage(m.context.address, m.position(key), func(raw []byte) error {
		if t := reflect.TypeOf(value); t != nil && t.Kind() == reflect.Ptr {
			value = reflect.New(t.Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.context.state.EncodeStorage(m.context.address, m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Delete clears the value stored under key.
func (m *Mapping[K, V]) Delete(key K) {
	m.context.state.SetRawStorage(m.context.address, m.position(key), nil)
}

// Value is a single RLP encoded value, such as a struct, stored in one slot.
type Value[V any] struct {
	context *Context
	pos     anchor.Bytes32
}

func NewValue[V any](context *Context, pos anchor.Bytes32) *Value[V] {
	return &Value[V]{context: context, pos: pos}
}

func (v *Value[V]) Get() (value V, err error) {
	err = v.context.state.DecodeStorage(v.context.address, v.pos, func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (v *Value[V]) Set(value V) error {
	return v.context.state.EncodeStorage(v.context.address, v.pos, func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

func (v *Value[V]) Clear() {
	v.context.state.SetRawStorage(v.context.address, v.pos, nil)
}
