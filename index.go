package zseek

import "golang.org/x/exp/slices"

const (
	defaultSpacing     = 1 << 20 // 1,048,576
	defaultWindowSize  = 32768
	defaultReadBufSize = 16384
	minWindowSize      = 32768
	initialCapacity    = 8
)

// Config holds the Index Store's construction parameters. A zero value for
// any field means "use the default".
type Config struct {
	Spacing     int64
	WindowSize  int
	ReadBufSize int
}

func (c Config) withDefaults() Config {
	if c.Spacing == 0 {
		c.Spacing = defaultSpacing
	}
	if c.WindowSize == 0 {
		c.WindowSize = defaultWindowSize
	}
	if c.ReadBufSize == 0 {
		c.ReadBufSize = defaultReadBufSize
	}
	return c
}

func (c Config) validate() error {
	if c.Spacing <= 0 {
		return newErr(ConfigInvalid, "spacing must be > 0")
	}
	if c.WindowSize < minWindowSize {
		return newErr(ConfigInvalid, "window_size must be >= 32768")
	}
	if c.ReadBufSize <= 0 {
		return newErr(ConfigInvalid, "readbuf_size must be > 0")
	}
	return nil
}

// domain selects which field of a Point locate compares offsets against.
type domain int

const (
	uncompressedDomain domain = iota
	compressedDomain
)

// Index is the ordered, growable sequence of access points plus the
// configuration that produced them. An Index is built once by Build and is
// immutable thereafter except for the logical read cursor maintained by
// Seek/Read.
type Index struct {
	cfg    Config
	points []Point
	built  bool

	// cursor is uncmp_seek_offset: the logical position in the
	// uncompressed stream maintained across Seek/Read calls.
	cursor int64
}

// New validates cfg (applying defaults for zero fields) and returns an
// empty, unbuilt Index ready to be passed to Build.
func New(cfg Config) (*Index, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Index{
		cfg:    cfg,
		points: make([]Point, 0, initialCapacity),
	}, nil
}

// FromSnapshot reconstructs an already-built Index directly from a
// previously captured configuration and point set, without repeating the
// forward decode pass. Used by zseekio to restore a persisted index.
func FromSnapshot(cfg Config, points []Point) (*Index, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ix := &Index{cfg: cfg, points: make([]Point, len(points)), built: true}
	copy(ix.points, points)
	return ix, nil
}

// Len is the number of access points in a built index.
func (ix *Index) Len() int { return len(ix.points) }

// Config returns the configuration the index was built with.
func (ix *Index) Config() Config { return ix.cfg }

// Points returns the built access points. The returned slice is a borrow;
// callers must not retain it past Free.
func (ix *Index) Points() []Point { return ix.points }

// append places p at the end of the sequence, doubling capacity first if
// full. Callers are trusted to uphold the monotonicity invariant (§3.1):
// append does not re-validate ordering.
func (ix *Index) append(p Point) error {
	if len(ix.points) == cap(ix.points) {
		grown := make([]Point, len(ix.points), cap(ix.points)*2)
		copy(grown, ix.points)
		ix.points = grown
	}
	ix.points = append(ix.points, p)
	return nil
}

// trim shrinks the backing array to the exact point count. Failure to
// shrink is non-fatal; the caller keeps using the larger backing array.
func (ix *Index) trim() {
	if len(ix.points) == cap(ix.points) {
		return
	}
	trimmed := make([]Point, len(ix.points))
	copy(trimmed, ix.points)
	ix.points = trimmed
}

// locate returns the last point whose key is <= offset, where the key is
// p.UncompressedOffset (uncompressedDomain) or p.straddleOffset()
// (compressedDomain). Returns NotBuilt if the index has no points.
func (ix *Index) locate(offset int64, dom domain) (*Point, error) {
	if len(ix.points) == 0 {
		return nil, newErr(NotBuilt, "index has no access points")
	}
	key := func(p Point) int64 {
		if dom == compressedDomain {
			return p.straddleOffset()
		}
		return p.UncompressedOffset
	}
	// BinarySearchFunc finds the leftmost point whose key is >= offset;
	// the point we want is the one just before it, unless offset matches
	// exactly. The source this is ported from used a linear scan flagged
	// as a known deficiency; binary search is the documented fix.
	i, found := slices.BinarySearchFunc(ix.points, offset, func(p Point, offset int64) int {
		k := key(p)
		switch {
		case k < offset:
			return -1
		case k > offset:
			return 1
		default:
			return 0
		}
	})
	if found {
		return &ix.points[i], nil
	}
	if i == 0 {
		// offset precedes every point's key; since the first point's
		// UncompressedOffset is always 0, this can only happen in the
		// compressed domain for an offset before the first point, which
		// cannot occur given a valid Seek/locate caller.
		return &ix.points[0], nil
	}
	return &ix.points[i-1], nil
}

// Free releases the index's point windows and resets its configuration.
// Points returned by locate/Seek are borrows and must not be used after
// Free.
func (ix *Index) Free() {
	ix.points = nil
	ix.cfg = Config{}
	ix.built = false
	ix.cursor = 0
}
