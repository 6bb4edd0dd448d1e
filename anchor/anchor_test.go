// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package anchor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0xFFfFfFffFFfffFFfFFfFFFFFffFFFffffFfFFFfF")
	assert.NoError(t, err)
	assert.Equal(t, "0xffffffffffffffffffffffffffffffffffffffff", addr.String())

	_, err = ParseAddress("0xffff")
	assert.EqualError(t, err, "invalid length")

	_, err = ParseAddress("1xffffffffffffffffffffffffffffffffffffffff")
	assert.EqualError(t, err, "invalid prefix")

	assert.True(t, Address{}.IsZero())
	assert.False(t, addr.IsZero())
}

func TestBytes32TextCodec(t *testing.T) {
	hash := "0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef"

	var fromJSON Bytes32
	assert.NoError(t, json.Unmarshal([]byte(`"`+hash+`"`), &fromJSON))
	assert.Equal(t, MustParseBytes32(hash), fromJSON)

	var fromYAML struct {
		Terra Bytes32 `yaml:"terra"`
		Owner Address `yaml:"owner"`
	}
	doc := "terra: " + hash + "\nowner: 0x0000000000000000000000000000000000000001\n"
	assert.NoError(t, yaml.Unmarshal([]byte(doc), &fromYAML))
	assert.Equal(t, fromJSON, fromYAML.Terra)
	assert.Equal(t, BytesToAddress([]byte{1}), fromYAML.Owner)

	out, err := json.Marshal(fromJSON)
	assert.NoError(t, err)
	assert.Equal(t, `"`+hash+`"`, string(out))
}

func TestAddressBytes32RoundTrip(t *testing.T) {
	addr := BytesToAddress([]byte("operation"))
	assert.Equal(t, addr, addr.Bytes32().Address())
}

func TestCreateContractAddress(t *testing.T) {
	creator := BytesToAddress([]byte("factory"))
	a0 := CreateContractAddress(creator, 0)
	a1 := CreateContractAddress(creator, 1)
	assert.NotEqual(t, a0, a1)
	assert.Equal(t, a0, CreateContractAddress(creator, 0))
	assert.False(t, a0.IsZero())
}

func TestBlake2b(t *testing.T) {
	assert.Equal(t, Blake2b([]byte("ab")), Blake2b([]byte("a"), []byte("b")))
	assert.NotEqual(t, Blake2b([]byte("a")), Keccak256([]byte("a")))
}
