// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis_test

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/builtin"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/feeder"
	"github.com/anchorprotocol/ethanchor/genesis"
	"github.com/anchorprotocol/ethanchor/lvldb"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/pool"
	"github.com/anchorprotocol/ethanchor/router"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/swapper"
)

var (
	owner = anchor.BytesToAddress([]byte("owner"))
	bot   = anchor.BytesToAddress([]byte("bot"))
)

func newRuntime(t *testing.T) *runtime.Runtime {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return runtime.New(db, builtin.NewRegistry())
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"42", "42"},
		{"1e18", "1000000000000000000"},
		{" 15E2 ", "1500"},
	}
	for _, c := range cases {
		v, err := genesis.ParseAmount(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, v.String())
	}
	for _, bad := range []string{"", "-1", "1.5", "1e", "0x10", "1e-3"} {
		_, err := genesis.ParseAmount(bad)
		assert.Error(t, err, bad)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
owner: "`+owner.String()+`"
bot: "`+bot.String()+`"
bridge: "`+genesis.DevBridge.String()+`"
wrappedStable: wUST
anchoredStable: aUST
tokens:
  - symbol: wUST
    name: Wrapped UST Token
    decimals: 18
    balances:
      - address: "`+bot.String()+`"
        amount: 100e18
  - symbol: aUST
    name: Wrapped Anchor UST Token
    decimals: 18
terraAddresses:
  - "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"
`), 0o600))

	cfg, err := genesis.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, owner, cfg.Owner)
	assert.Equal(t, bot, cfg.Bot)
	assert.Equal(t, genesis.DevBridge, cfg.Bridge)
	require.Len(t, cfg.Tokens, 2)
	require.Len(t, cfg.Tokens[0].Balances, 1)
	assert.Equal(t, "100000000000000000000", cfg.Tokens[0].Balances[0].Amount.Int().String())
	assert.Equal(t, []anchor.Bytes32{
		anchor.MustParseBytes32("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"),
	}, cfg.TerraAddresses)

	require.NoError(t, os.WriteFile(path, []byte("tokens:\n  - balances:\n      - amount: [1]\n"), 0o600))
	_, err = genesis.LoadConfig(path)
	assert.ErrorContains(t, err, "amount must be a scalar")
}

func TestBuild(t *testing.T) {
	rt := newRuntime(t)
	cfg := genesis.DevConfig(owner, bot)
	d, err := genesis.Build(rt, cfg)
	require.NoError(t, err)

	assert.Equal(t, anchor.CreateContractAddress(owner, 0), d.Tokens["wUST"])
	assert.NotEqual(t, d.Router, d.Controller)
	require.Contains(t, d.Pools, "aDAI")

	require.NoError(t, rt.View(func(st *state.State) error {
		s := store.New(d.Store, st)
		f, err := s.Factory()
		require.NoError(t, err)
		assert.Equal(t, d.Factory, f)
		r, _ := s.ACL().Router()
		assert.Equal(t, d.Router, r)

		fac := factory.New(d.Factory, st)
		n, err := fac.TerraAddressCount()
		require.NoError(t, err)
		assert.Equal(t, uint64(16), n)
		std, err := fac.Standards(genesis.StdOptID)
		require.NoError(t, err)
		assert.Equal(t, factory.Standard{Router: d.Router, Controller: d.Controller, Operation: d.Operation}, std)

		rc, err := router.New(d.Router, st).Config()
		require.NoError(t, err)
		assert.Equal(t, d.Tokens["wUST"], rc.WrappedStable)
		op, _ := router.New(d.Router, st).Guard().Operator()
		assert.Equal(t, bot, op)

		oc, err := operation.New(d.Operation, st).Config()
		require.NoError(t, err)
		assert.Equal(t, genesis.DevBridge, oc.Bridge)

		tok, err := feeder.New(d.Feeder, st).Tokens(d.Tokens["DAI"])
		require.NoError(t, err)
		assert.Equal(t, feeder.StatusRunning, tok.Status)

		in, out, err := swapper.NewUniswap(d.Swapper, st).Reserves(d.Tokens["wUST"], d.Tokens["DAI"])
		require.NoError(t, err)
		liquidity := new(big.Int).Mul(big.NewInt(1000000), big.NewInt(1e18))
		assert.Equal(t, liquidity, in)
		assert.Equal(t, liquidity, out)

		pc, err := pool.New(d.Pools["aDAI"], st).Config()
		require.NoError(t, err)
		assert.Equal(t, d.Tokens["DAI"], pc.InputToken)
		return nil
	}))

	// the same addresses are taken now
	_, err = genesis.Build(rt, cfg)
	assert.Error(t, err)
}

func TestBuildRejectsUnknownToken(t *testing.T) {
	cfg := genesis.DevConfig(owner, bot)
	cfg.Pools = append(cfg.Pools, genesis.Pool{Name: "x", Symbol: "aX", Input: "X"})
	_, err := genesis.Build(newRuntime(t), cfg)
	assert.ErrorContains(t, err, `unknown token "X"`)

	cfg = genesis.DevConfig(anchor.Address{}, bot)
	_, err = genesis.Build(newRuntime(t), cfg)
	assert.ErrorContains(t, err, "owner must be set")

	cfg = genesis.DevConfig(owner, bot)
	cfg.Bridge = anchor.Address{}
	_, err = genesis.Build(newRuntime(t), cfg)
	assert.ErrorContains(t, err, "bridge must be set")
}

func TestDeploymentRoundTrip(t *testing.T) {
	d, err := genesis.Build(newRuntime(t), genesis.DevConfig(owner, bot))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "deployment.yaml")
	require.NoError(t, d.Save(path))
	loaded, err := genesis.LoadDeployment(path)
	require.NoError(t, err)
	assert.Equal(t, d, loaded)
}
