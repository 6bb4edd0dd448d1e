// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package slots

import (
	"math/big"

	"github.com/anchorprotocol/ethanchor/anchor"
)

// Address is an address stored in a single slot.
type Address struct {
	context *Context
	pos     anchor.Bytes32
}

func NewAddress(context *Context, pos anchor.Bytes32) *Address {
	return &Address{context: context, pos: pos}
}

func (a *Address) Get() (anchor.Address, error) {
	storage, err := a.context.state.GetStorage(a.context.address, a.pos)
	if err != nil {
		return anchor.Address{}, err
	}
	return storage.Address(), nil
}

func (a *Address) Set(addr anchor.Address) {
	a.context.state.SetStorage(a.context.address, a.pos, addr.Bytes32())
}

// Bytes32 is a 32-byte word stored in a single slot.
type Bytes32 struct {
	context *Context
	pos     anchor.Bytes32
}

func NewBytes32(context *Context, pos anchor.Bytes32) *Bytes32 {
	return &Bytes32{context: context, pos: pos}
}

func (b *Bytes32) Get() (anchor.Bytes32, error) {
	return b.context.state.GetStorage(b.context.address, b.pos)
}

func (b *Bytes32) Set(value anchor.Bytes32) {
	b.context.state.SetStorage(b.context.address, b.pos, value)
}

// Uint256 is an unsigned integer stored in a single slot.
// Values wider than 256 bits are truncated.
type Uint256 struct {
	context *Context
	pos     anchor.Bytes32
}

func NewUint256(context *Context, pos anchor.Bytes32) *Uint256 {
	return &Uint256{context: context, pos: pos}
}

func (u *Uint256) Get() (*big.Int, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(storage.Bytes()), nil
}

func (u *Uint256) Set(value *big.Int) {
	u.context.state.SetStorage(u.context.address, u.pos, anchor.BytesToBytes32(value.Bytes()))
}

func (u *Uint256) Add(value *big.Int) error {
	v, err := u.Get()
	if err != nil {
		return err
	}
	u.Set(v.Add(v, value))
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	v, err := u.Get()
	if err != nil {
		return err
	}
	u.Set(v.Sub(v, value))
	return nil
}

// Bool is a flag stored in a single slot.
type Bool struct {
	context *Context
	pos     anchor.Bytes32
}

func NewBool(context *Context, pos anchor.Bytes32) *Bool {
	return &Bool{context: context, pos: pos}
}

func (b *Bool) Get() (bool, error) {
	storage, err := b.context.state.GetStorage(b.context.address, b.pos)
	if err != nil {
		return false, err
	}
	return !storage.IsZero(), nil
}

func (b *Bool) Set(value bool) {
	var storage anchor.Bytes32
	if value {
		storage[31] = 1
	}
	b.context.state.SetStorage(b.context.address, b.pos, storage)
}

// Uint64 is a counter stored in a single slot.
type Uint64 struct {
	context *Context
	pos     anchor.Bytes32
}

func NewUint64(context *Context, pos anchor.Bytes32) *Uint64 {
	return &Uint64{context: context, pos: pos}
}

func (u *Uint64) Get() (uint64, error) {
	storage, err := u.context.state.GetStorage(u.context.address, u.pos)
	if err != nil {
		return 0, err
	}
	return new(big.Int).SetBytes(storage.Bytes()).Uint64(), nil
}

func (u *Uint64) Set(value uint64) {
	u.context.state.SetStorage(u.context.address, u.pos, anchor.BytesToBytes32(new(big.Int).SetUint64(value).Bytes()))
}
