package zseek

// Point is an access point: a resumable decoder state at a DEFLATE block
// boundary. Immutable once constructed.
type Point struct {
	// CompressedOffset is the byte offset in the compressed stream of the
	// first byte of the next block. If the block begins mid-byte, the byte
	// holding its first bits is the one before this offset (see Bits).
	CompressedOffset int64

	// Bits is the number of unused high-order bits, in [0,7], remaining in
	// the byte before CompressedOffset that belong to the next block's
	// bitstream.
	Bits int

	// UncompressedOffset is the cumulative uncompressed byte count produced
	// up to (not including) this block.
	UncompressedOffset int64

	// Window is exactly the configured window size of uncompressed history
	// preceding this point, oldest byte first.
	Window []byte
}

// straddleOffset is the compressed-domain key used by locate: the byte
// position a reader must re-seek to before priming, accounting for the
// one-byte straddle when Bits > 0.
func (p Point) straddleOffset() int64 {
	if p.Bits > 0 {
		return p.CompressedOffset - 1
	}
	return p.CompressedOffset
}
