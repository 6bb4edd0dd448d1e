// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package runtime

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/state"
)

// Binder binds the native implementation of a contract to its address.
type Binder func(addr anchor.Address, state *state.State) any

// Registry maps code tags to native implementations.
type Registry struct {
	lock    sync.RWMutex
	binders map[string]Binder
}

func NewRegistry() *Registry {
	return &Registry{binders: make(map[string]Binder)}
}

// Register adds a binder for code. It panics on duplicated code.
func (r *Registry) Register(code string, binder Binder) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.binders[code]; ok {
		panic("runtime: duplicated code " + code)
	}
	r.binders[code] = binder
}

// Resolve implements xenv.Resolver.
func (r *Registry) Resolve(st *state.State, addr anchor.Address) (any, error) {
	code, err := st.GetCode(addr)
	if err != nil {
		return nil, err
	}
	if len(code) == 0 {
		return nil, errors.Errorf("no contract at %v", addr)
	}

	r.lock.RLock()
	binder, ok := r.binders[string(code)]
	r.lock.RUnlock()
	if !ok {
		return nil, errors.Errorf("unknown code %q at %v", code, addr)
	}
	return binder(addr, st), nil
}
