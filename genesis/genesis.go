// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package genesis deploys and wires the protocol contracts in one transaction.
package genesis

import (
	"os"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/controller"
	"github.com/anchorprotocol/ethanchor/factory"
	"github.com/anchorprotocol/ethanchor/feeder"
	"github.com/anchorprotocol/ethanchor/operation"
	"github.com/anchorprotocol/ethanchor/pool"
	"github.com/anchorprotocol/ethanchor/router"
	"github.com/anchorprotocol/ethanchor/runtime"
	"github.com/anchorprotocol/ethanchor/store"
	"github.com/anchorprotocol/ethanchor/swapper"
	"github.com/anchorprotocol/ethanchor/token"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// StdOptID is the blueprint index every deployment starts with.
const StdOptID = 0

// Deployment records where everything was deployed.
type Deployment struct {
	Owner      anchor.Address            `yaml:"owner" json:"owner"`
	Bot        anchor.Address            `yaml:"bot" json:"bot"`
	Bridge     anchor.Address            `yaml:"bridge" json:"bridge"`
	Tokens     map[string]anchor.Address `yaml:"tokens" json:"tokens"`
	Store      anchor.Address            `yaml:"store" json:"store"`
	Factory    anchor.Address            `yaml:"factory" json:"factory"`
	Router     anchor.Address            `yaml:"router" json:"router"`
	Controller anchor.Address            `yaml:"controller" json:"controller"`
	Operation  anchor.Address            `yaml:"operation" json:"operation"`
	Feeder     anchor.Address            `yaml:"feeder" json:"feeder"`
	Swapper    anchor.Address            `yaml:"swapper" json:"swapper"`
	Pools      map[string]anchor.Address `yaml:"pools" json:"pools"`
}

func (d *Deployment) WrappedStable(cfg *Config) anchor.Address  { return d.Tokens[cfg.WrappedStable] }
func (d *Deployment) AnchoredStable(cfg *Config) anchor.Address { return d.Tokens[cfg.AnchoredStable] }

// Save writes the deployment as yaml.
func (d *Deployment) Save(path string) error {
	data, err := yaml.Marshal(d)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadDeployment reads a deployment saved by Save.
func LoadDeployment(path string) (*Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var d Deployment
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrapf(err, "parse %v", path)
	}
	return &d, nil
}

func (cfg *Config) validate() error {
	if cfg.Owner.IsZero() {
		return errors.New("owner must be set")
	}
	if cfg.Bridge.IsZero() {
		return errors.New("bridge must be set")
	}
	symbols := make(map[string]bool, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		if symbols[t.Symbol] {
			return errors.Errorf("duplicated token %v", t.Symbol)
		}
		symbols[t.Symbol] = true
	}
	refs := []string{cfg.WrappedStable, cfg.AnchoredStable}
	for _, f := range cfg.Feeds {
		if f.Rate == nil || f.Weight == nil {
			return errors.Errorf("feed %v: rate and weight must be set", f.Token)
		}
		refs = append(refs, f.Token)
	}
	for _, l := range cfg.Liquidity {
		if l.AmountA == nil || l.AmountB == nil {
			return errors.Errorf("liquidity %v/%v: amounts must be set", l.A, l.B)
		}
		refs = append(refs, l.A, l.B)
	}
	for _, p := range cfg.Pools {
		refs = append(refs, p.Input)
	}
	for _, r := range refs {
		if !symbols[r] {
			return errors.Errorf("unknown token %q", r)
		}
	}
	return nil
}

// Build deploys cfg onto rt. Nothing is deployed if any step fails.
func Build(rt *runtime.Runtime, cfg *Config) (*Deployment, error) {
	if err := cfg.validate(); err != nil {
		return nil, errors.WithMessage(err, "genesis")
	}
	b := NewBuilder(cfg.Owner)
	owner := cfg.Owner

	d := &Deployment{
		Owner:  owner,
		Bot:    cfg.Bot,
		Bridge: cfg.Bridge,
		Tokens: make(map[string]anchor.Address),
		Pools:  make(map[string]anchor.Address),
	}
	for _, t := range cfg.Tokens {
		d.Tokens[t.Symbol] = b.NextAddress()
	}
	d.Store = b.NextAddress()
	d.Factory = b.NextAddress()
	d.Router = b.NextAddress()
	d.Controller = b.NextAddress()
	d.Operation = b.NextAddress()
	d.Feeder = b.NextAddress()
	d.Swapper = b.NextAddress()
	for _, p := range cfg.Pools {
		d.Pools[p.Symbol] = b.NextAddress()
	}
	wUST, aUST := d.WrappedStable(cfg), d.AnchoredStable(cfg)

	b.Call("tokens", func(env *xenv.Environment) error {
		for _, t := range cfg.Tokens {
			tok, err := token.Deploy(env, d.Tokens[t.Symbol], t.Name, t.Symbol, t.Decimals, owner)
			if err != nil {
				return err
			}
			for _, bal := range t.Balances {
				if err := tok.Mint(env.At(tok.Address()), bal.Address, bal.Amount.Int()); err != nil {
					return errors.WithMessage(err, t.Symbol)
				}
			}
		}
		return nil
	})

	b.Call("core", func(env *xenv.Environment) error {
		s, err := store.Deploy(env, d.Store)
		if err != nil {
			return err
		}
		f, err := factory.Deploy(env, d.Factory, d.Store)
		if err != nil {
			return err
		}
		r, err := router.Deploy(env, d.Router)
		if err != nil {
			return err
		}
		c, err := controller.Deploy(env, d.Controller)
		if err != nil {
			return err
		}
		if _, err := operation.Deploy(env, d.Operation, operation.Config{
			Router:         d.Router,
			Controller:     d.Controller,
			WrappedStable:  wUST,
			AnchoredStable: aUST,
			Bridge:         cfg.Bridge,
		}); err != nil {
			return err
		}

		if err := r.Initialize(env.At(d.Router), d.Store, StdOptID, d.Factory, wUST, aUST); err != nil {
			return err
		}
		if err := c.Initialize(env.At(d.Controller), d.Store, StdOptID, d.Factory); err != nil {
			return err
		}
		for _, acl := range []struct {
			addr anchor.Address
			impl interface {
				TransferRouter(*xenv.Environment, anchor.Address) error
				TransferController(*xenv.Environment, anchor.Address) error
			}
		}{{d.Store, s.ACL()}, {d.Factory, f.ACL()}} {
			if err := acl.impl.TransferRouter(env.At(acl.addr), d.Router); err != nil {
				return err
			}
			if err := acl.impl.TransferController(env.At(acl.addr), d.Controller); err != nil {
				return err
			}
		}
		if err := s.SetFactory(env.At(d.Store), d.Factory); err != nil {
			return err
		}
		if !cfg.Bot.IsZero() {
			if err := r.Guard().TransferOperator(env.At(d.Router), cfg.Bot); err != nil {
				return err
			}
			if err := c.Guard().TransferOperator(env.At(d.Controller), cfg.Bot); err != nil {
				return err
			}
		}

		idx, err := f.PushStandardOperation(env.At(d.Factory), d.Router, d.Controller, d.Operation)
		if err != nil {
			return err
		}
		if idx != StdOptID {
			return errors.Errorf("unexpected blueprint index %v", idx)
		}
		if len(cfg.TerraAddresses) > 0 {
			return f.PushTerraAddresses(env.At(d.Factory), cfg.TerraAddresses)
		}
		return nil
	})

	b.Call("feeder", func(env *xenv.Environment) error {
		f, err := feeder.Deploy(env, d.Feeder)
		if err != nil {
			return err
		}
		if !cfg.Bot.IsZero() {
			if err := f.Guard().TransferOperator(env.At(d.Feeder), cfg.Bot); err != nil {
				return err
			}
		}
		var running []anchor.Address
		for _, feed := range cfg.Feeds {
			rate, overflow := uint256.FromBig(feed.Rate.Int())
			if overflow {
				return errors.Errorf("rate of %v overflows", feed.Token)
			}
			weight, overflow := uint256.FromBig(feed.Weight.Int())
			if overflow {
				return errors.Errorf("weight of %v overflows", feed.Token)
			}
			if err := f.AddToken(env.At(d.Feeder), d.Tokens[feed.Token], rate, feed.Period, weight); err != nil {
				return errors.WithMessage(err, feed.Token)
			}
			if feed.Running {
				running = append(running, d.Tokens[feed.Token])
			}
		}
		if len(running) == 0 {
			return nil
		}
		return f.StartUpdate(env.At(d.Feeder), running)
	})

	b.Call("swapper", func(env *xenv.Environment) error {
		uni, err := swapper.DeployUniswap(env, d.Swapper)
		if err != nil {
			return err
		}
		for _, l := range cfg.Liquidity {
			tokA, tokB := d.Tokens[l.A], d.Tokens[l.B]
			for _, side := range []struct {
				addr   anchor.Address
				amount *Amount
			}{{tokA, l.AmountA}, {tokB, l.AmountB}} {
				tok := token.New(side.addr, env.State())
				if err := tok.Mint(env.At(side.addr), owner, side.amount.Int()); err != nil {
					return err
				}
				if err := tok.Approve(env.At(side.addr), d.Swapper, side.amount.Int()); err != nil {
					return err
				}
			}
			if err := uni.AddLiquidity(env.At(d.Swapper), tokA, tokB, l.AmountA.Int(), l.AmountB.Int()); err != nil {
				return errors.WithMessagef(err, "%v/%v", l.A, l.B)
			}
		}
		return nil
	})

	b.Call("pools", func(env *xenv.Environment) error {
		for _, p := range cfg.Pools {
			addr := d.Pools[p.Symbol]
			cp, err := pool.Deploy(env, addr)
			if err != nil {
				return err
			}
			if err := cp.Initialize(env.At(addr), p.Name, p.Symbol,
				d.Tokens[p.Input], wUST, aUST, d.Router, d.Swapper, d.Feeder); err != nil {
				return errors.WithMessage(err, p.Symbol)
			}
		}
		return nil
	})

	if _, err := b.Build(rt); err != nil {
		return nil, errors.WithMessage(err, "genesis")
	}
	return d, nil
}
