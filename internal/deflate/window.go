package deflate

// window is the decoder's back-reference history: a ring buffer of exactly
// len(hist) bytes. A DEFLATE back-reference can name any distance up to
// 32768 bytes; capturing more than that (a larger configured window_size)
// is harmless since only the most recent 32768 bytes are ever addressable.
type window struct {
	hist []byte
	pos  int  // next write position
	full bool // hist has been written past once already
}

func (w *window) init(size int, seed []byte) {
	if cap(w.hist) < size {
		w.hist = make([]byte, size)
	} else {
		w.hist = w.hist[:size]
		for i := range w.hist {
			w.hist[i] = 0
		}
	}
	w.pos = 0
	w.full = false
	if len(seed) > 0 {
		n := len(seed)
		if n > size {
			seed = seed[n-size:]
			n = size
		}
		copy(w.hist, seed)
		w.pos = n % size
		w.full = n == size
	}
}

func (w *window) size() int { return len(w.hist) }

// histLen reports how many valid history bytes are addressable right now.
func (w *window) histLen() int {
	if w.full {
		return len(w.hist)
	}
	return w.pos
}

func (w *window) writeByte(b byte) {
	w.hist[w.pos] = b
	w.pos++
	if w.pos == len(w.hist) {
		w.pos = 0
		w.full = true
	}
}

// copyByte performs one step of a back-reference copy at the given
// distance behind the current write position, returning the byte written
// so the caller can accumulate decoded output without a second pass over
// the ring buffer.
func (w *window) copyByte(dist int) byte {
	src := w.pos - dist
	if src < 0 {
		src += len(w.hist)
	}
	b := w.hist[src]
	w.hist[w.pos] = b
	w.pos++
	if w.pos == len(w.hist) {
		w.pos = 0
		w.full = true
	}
	return b
}

// snapshot returns a linear copy of the ring, exactly size() bytes, oldest
// first; the histLen() valid bytes sit at the end, behind a zero prefix
// when the ring has not yet filled. This is the ring-to-linear concatenation from the spec: the tail
// since the last wrap, then the head up to the current write position.
func (w *window) snapshot() []byte {
	out := make([]byte, len(w.hist))
	if !w.full {
		// Not yet wrapped: bytes [0:pos) are history, the rest is the
		// zero-filled prefix a point captured before the window filled.
		copy(out[len(out)-w.pos:], w.hist[:w.pos])
		return out
	}
	n := copy(out, w.hist[w.pos:])
	copy(out[n:], w.hist[:w.pos])
	return out
}
