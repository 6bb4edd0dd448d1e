// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package feeder publishes compounding exchange rates of anchored tokens.
package feeder

import (
	"github.com/holiman/uint256"
	"github.com/pkg/errors"

	"github.com/anchorprotocol/ethanchor/access"
	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
	"github.com/anchorprotocol/ethanchor/xenv"
)

// Code tags feeder accounts.
const Code = "feeder"

var (
	ErrTokenExists   = reverts.New("ExchangeRateFeeder: token already exists")
	ErrTokenNotFound = reverts.New("ExchangeRateFeeder: token not found")
	ErrInvalidStatus = reverts.New("ExchangeRateFeeder: invalid status")
	ErrInvalidPeriod = reverts.New("ExchangeRateFeeder: period must be positive")
	ErrInvalidRate   = reverts.New("ExchangeRateFeeder: rate must be positive")
)

// One is 1.0 in 18 decimals fixed point.
var One = uint256.NewInt(1e18)

type Status uint8

const (
	StatusNeutral Status = iota
	StatusRunning
	StatusStopped
)

// Token is the rate schedule of one token. Every elapsed period multiplies
// the rate by weight.
type Token struct {
	Status        Status       `json:"status"`
	ExchangeRate  *uint256.Int `json:"exchangeRate"`
	Period        uint64       `json:"period"`
	Weight        *uint256.Int `json:"weight"`
	LastUpdatedAt uint64       `json:"lastUpdatedAt"`
}

func (t *Token) exists() bool { return t.Period > 0 }

// pending returns the rate as of now and the whole periods it compounds.
func (t *Token) pending(now uint64) (*uint256.Int, uint64) {
	if t.Status != StatusRunning || now <= t.LastUpdatedAt {
		return t.ExchangeRate.Clone(), 0
	}
	periods := (now - t.LastUpdatedAt) / t.Period
	return Compound(t.ExchangeRate, t.Weight, periods), periods
}

// Compound returns rate * weight^periods, both in 18 decimals fixed point.
func Compound(rate, weight *uint256.Int, periods uint64) *uint256.Int {
	factor := One.Clone()
	base := weight.Clone()
	for n := periods; n > 0; n >>= 1 {
		if n&1 == 1 {
			factor = mulOne(factor, base)
		}
		if n > 1 {
			base = mulOne(base, base)
		}
	}
	return mulOne(rate, factor)
}

func mulOne(x, y *uint256.Int) *uint256.Int {
	z, _ := new(uint256.Int).MulDivOverflow(x, y, One)
	return z
}

type Feeder struct {
	addr   anchor.Address
	guard  *access.Guard
	tokens *slots.Mapping[anchor.Address, Token]
}

func New(addr anchor.Address, st *state.State) *Feeder {
	ctx := slots.NewContext(addr, st)
	return &Feeder{
		addr:   addr,
		guard:  access.NewGuard(ctx),
		tokens: slots.NewMapping[anchor.Address, Token](ctx, slots.Pos("tokens")),
	}
}

// Deploy installs a feeder at addr, owned and operated by the caller of env.
func Deploy(env *xenv.Environment, addr anchor.Address) (*Feeder, error) {
	if err := env.Deploy(addr, []byte(Code)); err != nil {
		return nil, err
	}
	f := New(addr, env.State())
	f.guard.Setup(env.Call(addr), env.Caller())
	return f, nil
}

// At resolves the feeder deployed at addr.
func At(env *xenv.Environment, addr anchor.Address) (*Feeder, error) {
	impl, err := env.Resolve(addr)
	if err != nil {
		return nil, err
	}
	f, ok := impl.(*Feeder)
	if !ok {
		return nil, errors.Errorf("contract at %v is not a feeder", addr)
	}
	return f, nil
}

func (f *Feeder) Address() anchor.Address { return f.addr }

func (f *Feeder) Guard() *access.Guard { return f.guard }

func (f *Feeder) Tokens(token anchor.Address) (Token, error) {
	t, err := f.tokens.Get(token)
	if err != nil {
		return Token{}, err
	}
	if !t.exists() {
		return Token{}, ErrTokenNotFound
	}
	return t, nil
}

func (f *Feeder) AddToken(env *xenv.Environment, token anchor.Address, baseRate *uint256.Int, period uint64, weight *uint256.Int) error {
	if err := f.guard.RequireOwner(env); err != nil {
		return err
	}
	if period == 0 {
		return ErrInvalidPeriod
	}
	if baseRate.IsZero() || weight.IsZero() {
		return ErrInvalidRate
	}
	t, err := f.tokens.Get(token)
	if err != nil {
		return err
	}
	if t.exists() {
		return ErrTokenExists
	}
	if err := f.tokens.Set(token, Token{
		Status:        StatusNeutral,
		ExchangeRate:  baseRate.Clone(),
		Period:        period,
		Weight:        weight.Clone(),
		LastUpdatedAt: env.BlockContext().Time,
	}); err != nil {
		return err
	}
	env.Log("TokenAdded", token, baseRate.ToBig(), period, weight.ToBig())
	return nil
}

// StartUpdate starts compounding tokens from the current block time.
func (f *Feeder) StartUpdate(env *xenv.Environment, tokens []anchor.Address) error {
	return f.setStatus(env, tokens, StatusRunning)
}

func (f *Feeder) StopUpdate(env *xenv.Environment, tokens []anchor.Address) error {
	return f.setStatus(env, tokens, StatusStopped)
}

func (f *Feeder) setStatus(env *xenv.Environment, tokens []anchor.Address, status Status) error {
	if err := f.guard.RequireOwner(env); err != nil {
		return err
	}
	for _, addr := range tokens {
		t, err := f.Tokens(addr)
		if err != nil {
			return err
		}
		t.Status = status
		if status == StatusRunning {
			t.LastUpdatedAt = env.BlockContext().Time
		}
		if err := f.tokens.Set(addr, t); err != nil {
			return err
		}
		env.Log("StatusChanged", addr, uint8(status))
	}
	return nil
}

// Update compounds the rate of token over the whole periods elapsed.
func (f *Feeder) Update(env *xenv.Environment, token anchor.Address) error {
	if err := f.guard.RequireGranted(env); err != nil {
		return err
	}
	t, err := f.Tokens(token)
	if err != nil {
		return err
	}
	if t.Status != StatusRunning {
		return ErrInvalidStatus
	}
	rate, periods := t.pending(env.BlockContext().Time)
	if periods == 0 {
		return nil
	}
	t.ExchangeRate = rate
	t.LastUpdatedAt += periods * t.Period
	if err := f.tokens.Set(token, t); err != nil {
		return err
	}
	env.Log("RateUpdated", env.Caller(), token, rate.ToBig(), periods)
	return nil
}

// ExchangeRateOf returns the last stored rate of token.
func (f *Feeder) ExchangeRateOf(token anchor.Address) (*uint256.Int, error) {
	t, err := f.Tokens(token)
	if err != nil {
		return nil, err
	}
	return t.ExchangeRate, nil
}

// SimulateExchangeRateOf returns the rate token would have if updated at now.
func (f *Feeder) SimulateExchangeRateOf(token anchor.Address, now uint64) (*uint256.Int, error) {
	t, err := f.Tokens(token)
	if err != nil {
		return nil, err
	}
	rate, _ := t.pending(now)
	return rate, nil
}
