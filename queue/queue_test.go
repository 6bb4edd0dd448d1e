// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package queue

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anchorprotocol/ethanchor/anchor"
	"github.com/anchorprotocol/ethanchor/lvldb"
	"github.com/anchorprotocol/ethanchor/reverts"
	"github.com/anchorprotocol/ethanchor/slots"
	"github.com/anchorprotocol/ethanchor/state"
)

func newQueue(t *testing.T, name string) *Queue {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	st := state.New(db)
	st.NewCheckpoint()
	return New(slots.NewContext(anchor.BytesToAddress([]byte("tester")), st), name)
}

func TestQueue(t *testing.T) {
	q := newQueue(t, "q")

	hash1 := anchor.MustParseBytes32("0xdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef")
	hash2 := anchor.MustParseBytes32("0xbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeefdead")

	empty, err := q.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, q.Produce(hash1))
	item, _ := q.ItemAt(0)
	assert.Equal(t, hash1, item)
	empty, _ = q.IsEmpty()
	assert.False(t, empty)

	require.NoError(t, q.Produce(hash2))
	item, _ = q.ItemAt(1)
	assert.Equal(t, hash2, item)

	item, err = q.Consume()
	require.NoError(t, err)
	assert.Equal(t, hash1, item)
	item, err = q.Consume()
	require.NoError(t, err)
	assert.Equal(t, hash2, item)

	item, _ = q.ItemAt(0)
	assert.True(t, item.IsZero())
	empty, _ = q.IsEmpty()
	assert.True(t, empty)

	_, err = q.Consume()
	assert.ErrorIs(t, err, ErrEmptyQueue)
	assert.EqualError(t, err, "StdQueue: empty queue")
	kind, _ := reverts.KindOf(err)
	assert.Equal(t, reverts.KindExhausted, kind)

	// indexes are relative to the front
	require.NoError(t, q.Produce(hash1))
	item, _ = q.ItemAt(0)
	assert.Equal(t, hash1, item)
	n, _ := q.Len()
	assert.Equal(t, uint64(1), n)
}

func TestQueueDuplicates(t *testing.T) {
	q := newQueue(t, "q")
	item := anchor.Blake2b([]byte("dup"))

	require.NoError(t, q.Produce(item))
	require.NoError(t, q.Produce(item))
	n, _ := q.Len()
	assert.Equal(t, uint64(2), n)
}

func TestQueuesAreIsolated(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	st := state.New(db)
	st.NewCheckpoint()
	ctx := slots.NewContext(anchor.BytesToAddress([]byte("tester")), st)

	a, b := New(ctx, "a"), New(ctx, "b")
	require.NoError(t, a.Produce(anchor.Blake2b([]byte("x"))))

	empty, _ := b.IsEmpty()
	assert.True(t, empty)
}

func TestQueueFuzz(t *testing.T) {
	q := newQueue(t, "fuzz")
	f := fuzz.NewWithSeed(42).NilChance(0)

	var model []anchor.Bytes32
	for range 500 {
		var produce bool
		f.Fuzz(&produce)

		if produce || len(model) == 0 {
			var item anchor.Bytes32
			f.Fuzz(&item)
			require.NoError(t, q.Produce(item))
			model = append(model, item)
		} else {
			item, err := q.Consume()
			require.NoError(t, err)
			require.Equal(t, model[0], item)
			model = model[1:]
		}

		n, err := q.Len()
		require.NoError(t, err)
		require.Equal(t, uint64(len(model)), n)

		var probe uint8
		f.Fuzz(&probe)
		item, err := q.ItemAt(uint64(probe))
		require.NoError(t, err)
		if int(probe) < len(model) {
			require.Equal(t, model[probe], item)
		} else {
			require.True(t, item.IsZero())
		}
	}
}
