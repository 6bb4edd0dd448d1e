// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package genesis

import (
	"encoding/binary"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/anchorprotocol/ethanchor/anchor"
)

// Amount is a token amount. In yaml it is written as an integer, optionally
// scaled by a power of ten, e.g. "1000e18".
type Amount big.Int

func (a *Amount) Int() *big.Int { return (*big.Int)(a) }

func (a *Amount) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: amount must be a scalar", node.Line)
	}
	v, err := ParseAmount(node.Value)
	if err != nil {
		return errors.WithMessagef(err, "line %d", node.Line)
	}
	*a = Amount(*v)
	return nil
}

func (a *Amount) MarshalYAML() (any, error) {
	return a.Int().String(), nil
}

// ParseAmount parses a non-negative integer with an optional decimal exponent.
func ParseAmount(s string) (*big.Int, error) {
	mantissa, exp, scaled := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "e")
	v, ok := new(big.Int).SetString(mantissa, 10)
	if !ok || v.Sign() < 0 {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	if scaled {
		n, err := strconv.ParseUint(exp, 10, 8)
		if err != nil {
			return nil, errors.Errorf("invalid amount %q", s)
		}
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
	}
	return v, nil
}

func NewAmount(v *big.Int) *Amount { return (*Amount)(new(big.Int).Set(v)) }

type Balance struct {
	Address anchor.Address `yaml:"address"`
	Amount  *Amount        `yaml:"amount"`
}

type Token struct {
	Symbol   string    `yaml:"symbol"`
	Name     string    `yaml:"name"`
	Decimals uint8     `yaml:"decimals"`
	Balances []Balance `yaml:"balances"`
}

// Feed registers a token with the exchange rate feeder.
type Feed struct {
	Token   string  `yaml:"token"`
	Rate    *Amount `yaml:"rate"`
	Period  uint64  `yaml:"period"`
	Weight  *Amount `yaml:"weight"`
	Running bool    `yaml:"running"`
}

// Liquidity seeds a swapper pair, minted to the owner first.
type Liquidity struct {
	A       string  `yaml:"a"`
	B       string  `yaml:"b"`
	AmountA *Amount `yaml:"amountA"`
	AmountB *Amount `yaml:"amountB"`
}

// Pool deploys a conversion pool accepting Input.
type Pool struct {
	Name   string `yaml:"name"`
	Symbol string `yaml:"symbol"`
	Input  string `yaml:"input"`
}

// Config describes a full deployment.
type Config struct {
	Owner          anchor.Address   `yaml:"owner"`
	Bot            anchor.Address   `yaml:"bot"`
	Bridge         anchor.Address   `yaml:"bridge"`
	WrappedStable  string           `yaml:"wrappedStable"`
	AnchoredStable string           `yaml:"anchoredStable"`
	Tokens         []Token          `yaml:"tokens"`
	TerraAddresses []anchor.Bytes32 `yaml:"terraAddresses"`
	Feeds          []Feed           `yaml:"feeds"`
	Liquidity      []Liquidity      `yaml:"liquidity"`
	Pools          []Pool           `yaml:"pools"`
}

// LoadConfig reads a deployment config from a yaml file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %v", path)
	}
	return &cfg, nil
}

// TerraAddresses derives n placeholder terra addresses.
func TerraAddresses(n int) []anchor.Bytes32 {
	addrs := make([]anchor.Bytes32, 0, n)
	var buf [8]byte
	for i := range n {
		binary.BigEndian.PutUint64(buf[:], uint64(i))
		addrs = append(addrs, anchor.Blake2b([]byte("terra"), buf[:]))
	}
	return addrs
}

// DevBridge receives the inputs of dev deployments.
var DevBridge = anchor.BytesToAddress([]byte("bridge"))

// DevConfig returns a self-contained deployment for local use and tests.
func DevConfig(owner, bot anchor.Address) *Config {
	amount := func(s string) *Amount {
		v, _ := ParseAmount(s)
		return (*Amount)(v)
	}
	return &Config{
		Owner:          owner,
		Bot:            bot,
		Bridge:         DevBridge,
		WrappedStable:  "wUST",
		AnchoredStable: "aUST",
		Tokens: []Token{
			{Symbol: "wUST", Name: "Wrapped UST Token", Decimals: 18},
			{Symbol: "aUST", Name: "Wrapped Anchor UST Token", Decimals: 18},
			{Symbol: "DAI", Name: "Dai Stablecoin", Decimals: 18},
		},
		TerraAddresses: TerraAddresses(16),
		Feeds: []Feed{
			{Token: "wUST", Rate: amount("1e18"), Period: 3600, Weight: amount("1000015954686906531"), Running: true},
			{Token: "DAI", Rate: amount("1e18"), Period: 3600, Weight: amount("1000015954686906531"), Running: true},
		},
		Liquidity: []Liquidity{
			{A: "wUST", B: "DAI", AmountA: amount("1000000e18"), AmountB: amount("1000000e18")},
		},
		Pools: []Pool{
			{Name: "Anchor DAI Token", Symbol: "aDAI", Input: "DAI"},
		},
	}
}
