// Copyright (c) 2025 The EthAnchor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

// Getter defines methods to read kv.
type Getter interface {
	// Get value for given key.
	// An error returned if key not found. It can be checked via IsNotFound.
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter defines methods to write kv.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Batch collects puts and writes them atomically.
type Batch interface {
	Putter

	Len() int
	Write() error
}

// Store defines the full functional kv store.
type Store interface {
	Getter
	Putter

	NewBatch() Batch
	Close() error
}

// Bucket provides a view of a store under a key prefix.
type Bucket string

// ProxyGetter returns a getter that prefixes every key.
func (b Bucket) ProxyGetter(g Getter) Getter {
	return &bucketGetter{b, g}
}

// ProxyPutter returns a putter that prefixes every key.
func (b Bucket) ProxyPutter(p Putter) Putter {
	return &bucketPutter{b, p}
}

// Key returns the prefixed key.
func (b Bucket) Key(key []byte) []byte {
	buf := make([]byte, 0, len(b)+len(key))
	buf = append(buf, b...)
	return append(buf, key...)
}

type bucketGetter struct {
	bucket Bucket
	src    Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) { return g.src.Get(g.bucket.Key(key)) }
func (g *bucketGetter) Has(key []byte) (bool, error)   { return g.src.Has(g.bucket.Key(key)) }
func (g *bucketGetter) IsNotFound(err error) bool      { return g.src.IsNotFound(err) }

type bucketPutter struct {
	bucket Bucket
	dst    Putter
}

func (p *bucketPutter) Put(key, val []byte) error { return p.dst.Put(p.bucket.Key(key), val) }
func (p *bucketPutter) Delete(key []byte) error   { return p.dst.Delete(p.bucket.Key(key)) }
