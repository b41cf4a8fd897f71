// Package zseekcache caches recently decoded byte ranges on top of a
// zseek.Index, so repeated reads near the same uncompressed offset skip
// re-priming a fresh decoder. Every seek re-seats the index cursor; cached
// chunks are keyed by absolute uncompressed offset, so a seek evicts
// nothing. The cache never makes a backward read cheaper than "jump to the nearest
// point and skip forward" — it only remembers results already produced by
// a forward Read.
package zseekcache

import (
	"hash/maphash"
	"io"

	"github.com/dgryski/go-tinylfu"
	"github.com/sirupsen/logrus"

	"zseek"
)

// rangeKey identifies a cached chunk. Chunks are Cache.chunkSize bytes,
// matching the index's configured read-buffer size so cache hits align
// with how callers typically drive Read.
type rangeKey struct {
	chunk int64 // uncompressed offset, rounded down to a chunk boundary
}

// Cache wraps an Index and Source, caching decoded chunks keyed by their
// rounded uncompressed offset.
type Cache struct {
	ix        *zseek.Index
	src       zseek.Source
	chunkSize int64
	cache     *tinylfu.T[rangeKey, []byte]
	log       logrus.FieldLogger
}

var seed = maphash.MakeSeed()

func hashKey(k rangeKey) uint64 {
	return maphash.Comparable(seed, k)
}

// New wraps ix/src with a decode cache holding approximately capacity
// chunks of ix.Config().ReadBufSize bytes each.
func New(ix *zseek.Index, src zseek.Source, capacity int, log logrus.FieldLogger) *Cache {
	chunkSize := int64(ix.Config().ReadBufSize)
	return &Cache{
		ix:        ix,
		src:       src,
		chunkSize: chunkSize,
		cache:     tinylfu.New[rangeKey, []byte](capacity, capacity*10, hashKey),
		log:       log,
	}
}

// Seek invalidates nothing in the cache itself (cached chunks remain valid
// regardless of cursor position) but re-seats the underlying index/source
// cursor, per zseek.Seek's contract.
func (c *Cache) Seek(offset int64) (*zseek.Point, error) {
	return zseek.Seek(c.ix, c.src, offset, io.SeekStart)
}

// Read serves buf from cached chunks where possible, falling back to
// zseek.Read (and re-seating the cursor, since a cache-served read never
// touches the source) for any chunk not already cached.
func (c *Cache) Read(offset int64, buf []byte) (int, error) {
	delivered := 0
	for delivered < len(buf) {
		want := offset + int64(delivered)
		chunkStart := (want / c.chunkSize) * c.chunkSize
		key := rangeKey{chunk: chunkStart}

		chunk, ok := c.cache.Get(key)
		if !ok {
			if _, err := zseek.Seek(c.ix, c.src, chunkStart, io.SeekStart); err != nil {
				if delivered > 0 {
					return delivered, nil
				}
				return 0, err
			}
			chunk = make([]byte, c.chunkSize)
			n, err := zseek.Read(c.ix, c.src, chunk)
			if err != nil {
				if delivered > 0 {
					return delivered, nil
				}
				return 0, err
			}
			chunk = chunk[:n]
			c.cache.Add(key, chunk)
			if c.log != nil {
				c.log.WithField("chunk_offset", chunkStart).Debug("zseekcache: miss, decoded and cached")
			}
			if n == 0 {
				break
			}
		}

		within := want - chunkStart
		if within >= int64(len(chunk)) {
			break
		}
		n := copy(buf[delivered:], chunk[within:])
		delivered += n
	}

	if _, err := zseek.Seek(c.ix, c.src, offset+int64(delivered), io.SeekStart); err != nil {
		return delivered, err
	}
	return delivered, nil
}
