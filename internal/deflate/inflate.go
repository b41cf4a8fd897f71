// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package deflate

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

// CorruptInputError reports corrupt DEFLATE data at a given compressed-byte
// offset.
type CorruptInputError int64

func (e CorruptInputError) Error() string {
	return "deflate: corrupt input before offset " + strconv.FormatInt(int64(e), 10)
}

var errInternal = errors.New("deflate: internal error")

// byteReader is what the decoder needs from its source: it reads a byte at
// a time while decoding Huffman symbols, so io.ByteReader avoids a
// per-symbol interface-method round trip through Read.
type byteReader interface {
	io.Reader
	io.ByteReader
}

func asByteReader(r io.Reader) byteReader {
	if br, ok := r.(byteReader); ok {
		return br
	}
	return bufio.NewReader(r)
}

const endBlockMarker = 256

// Decoder is the DEFLATE Adapter the Index Builder and Random-Access Reader
// consume. A Decoder decodes exactly one DEFLATE stream (raw, no
// zlib/gzip framing); see the container package for header handling.
type Decoder struct {
	r       byteReader
	roffset int64 // compressed bytes consumed
	woffset int64 // uncompressed bytes produced

	b  uint32 // bit buffer, LSB-first
	nb uint   // valid bits in b

	lit, dist huffmanDecoder
	litLens   [maxNumLit + maxNumDist]int
	lenLens   [numCodes]int

	hist window

	step      func(*Decoder)
	final     bool
	lastBlock bool // the block that just finished was the final block
	blockDone bool // a block boundary was just reached; consumed by ReadBlock
	blockOut  int  // uncompressed bytes produced by the block in progress
	err       error

	toRead   []byte
	hl, hd   *huffmanDecoder
	copyLen  int
	copyDist int

	scratch [4]byte
}

// NewRaw constructs a Decoder for a headerless DEFLATE stream, with a
// back-reference history buffer of histSize bytes (>= 32768).
func NewRaw(r io.Reader, histSize int) *Decoder {
	f := &Decoder{r: asByteReader(r), step: (*Decoder).nextBlock}
	f.hist.init(histSize, nil)
	return f
}

// Prime injects the low n bits of bits (n in [0,7]) as the next bits of the
// bitstream, ahead of anything read from r. Used to resume decoding at a
// sub-byte boundary captured by an access point.
func (f *Decoder) Prime(n int, bits byte) error {
	if n < 0 || n > 7 {
		return errInternal
	}
	if f.nb != 0 {
		return errInternal
	}
	f.b = uint32(bits) & (1<<uint(n) - 1)
	f.nb = uint(n)
	return nil
}

// SetDictionary installs dict as back-reference history, as if it were the
// uncompressed output immediately preceding the stream's current position.
func (f *Decoder) SetDictionary(dict []byte) {
	f.hist.init(f.hist.size(), dict)
}

// BytesRead is the number of compressed bytes consumed so far.
func (f *Decoder) BytesRead() int64 { return f.roffset }

// BytesWritten is the number of uncompressed bytes produced so far.
func (f *Decoder) BytesWritten() int64 { return f.woffset }

// BitsRemainder is the number of unused high-order bits, in [0,7], left over
// in the byte before BytesRead() that belong to the next block.
func (f *Decoder) BitsRemainder() int { return int(f.nb) }

// AtLastBlock reports whether the most recently completed block (via
// ReadBlock) was the stream's final block.
func (f *Decoder) AtLastBlock() bool { return f.lastBlock }

// Snapshot returns a linear copy of the decoder's current back-reference
// history, exactly histSize bytes (zero-padded at the start if fewer than
// histSize uncompressed bytes have been produced yet).
func (f *Decoder) Snapshot() []byte { return f.hist.snapshot() }

// ReadBlock decodes forward until the current DEFLATE block ends, returning
// the uncompressed bytes produced by that block. After it returns with a
// nil error, the decoder sits exactly at a block boundary: BytesRead,
// BytesWritten, BitsRemainder and AtLastBlock describe that boundary. It
// returns io.EOF once the stream's last block has been fully delivered.
func (f *Decoder) ReadBlock() ([]byte, error) {
	var out []byte
	for {
		if len(f.toRead) > 0 {
			out = append(out, f.toRead...)
			f.toRead = nil
		}
		if f.blockDone {
			f.blockDone = false
			if f.err == io.EOF {
				return out, io.EOF
			}
			return out, nil
		}
		if f.err != nil {
			return out, f.err
		}
		f.step(f)
	}
}

// Read implements io.Reader, crossing block boundaries freely. It returns
// bytes already decoded, decoding the next block only when none are
// pending, so one call may return fewer than len(p) bytes.
func (f *Decoder) Read(p []byte) (int, error) {
	for {
		if len(f.toRead) > 0 {
			n := copy(p, f.toRead)
			f.toRead = f.toRead[n:]
			return n, nil
		}
		if f.err != nil {
			return 0, f.err
		}
		f.blockDone = false
		f.step(f)
	}
}

func (f *Decoder) nextBlock() {
	for f.nb < 3 {
		if err := f.moreBits(); err != nil {
			f.err = err
			return
		}
	}
	f.final = f.b&1 == 1
	f.b >>= 1
	typ := f.b & 3
	f.b >>= 2
	f.nb -= 3
	switch typ {
	case 0:
		f.storedBlock()
	case 1:
		f.hl = &fixedLiteralDecoder
		f.hd = nil
		f.huffmanBlock()
	case 2:
		if err := f.readDynamicTables(); err != nil {
			f.err = err
			return
		}
		f.hl = &f.lit
		f.hd = &f.dist
		f.huffmanBlock()
	default:
		f.err = CorruptInputError(f.roffset)
	}
}

func (f *Decoder) readDynamicTables() error {
	for f.nb < 5+5+4 {
		if err := f.moreBits(); err != nil {
			return err
		}
	}
	nlit := int(f.b&0x1F) + 257
	if nlit > maxNumLit {
		return CorruptInputError(f.roffset)
	}
	f.b >>= 5
	ndist := int(f.b&0x1F) + 1
	if ndist > maxNumDist {
		return CorruptInputError(f.roffset)
	}
	f.b >>= 5
	nclen := int(f.b&0xF) + 4
	f.b >>= 4
	f.nb -= 14

	for i := 0; i < nclen; i++ {
		for f.nb < 3 {
			if err := f.moreBits(); err != nil {
				return err
			}
		}
		f.lenLens[codeOrder[i]] = int(f.b & 0x7)
		f.b >>= 3
		f.nb -= 3
	}
	for i := nclen; i < len(codeOrder); i++ {
		f.lenLens[codeOrder[i]] = 0
	}
	if !f.lit.init(f.lenLens[:]) {
		return CorruptInputError(f.roffset)
	}

	for i, n := 0, nlit+ndist; i < n; {
		x, err := f.huffSym(&f.lit)
		if err != nil {
			return err
		}
		if x < 16 {
			f.litLens[i] = x
			i++
			continue
		}
		var rep int
		var nb uint
		var b int
		switch x {
		case 16:
			rep, nb = 3, 2
			if i == 0 {
				return CorruptInputError(f.roffset)
			}
			b = f.litLens[i-1]
		case 17:
			rep, nb = 3, 3
		case 18:
			rep, nb = 11, 7
		default:
			return errInternal
		}
		for f.nb < nb {
			if err := f.moreBits(); err != nil {
				return err
			}
		}
		rep += int(f.b & uint32(1<<nb-1))
		f.b >>= nb
		f.nb -= nb
		if i+rep > n {
			return CorruptInputError(f.roffset)
		}
		for j := 0; j < rep; j++ {
			f.litLens[i] = b
			i++
		}
	}

	if !f.lit.init(f.litLens[0:nlit]) || !f.dist.init(f.litLens[nlit:nlit+ndist]) {
		return CorruptInputError(f.roffset)
	}
	if f.lit.min < f.litLens[endBlockMarker] {
		f.lit.min = f.litLens[endBlockMarker]
	}
	return nil
}

func (f *Decoder) huffmanBlock() {
readLiteral:
	{
		v, err := f.huffSym(f.hl)
		if err != nil {
			f.err = err
			return
		}
		var n uint
		var length int
		switch {
		case v < 256:
			f.hist.writeByte(byte(v))
			f.toRead = append(f.toRead, byte(v))
			f.blockOut++
			goto readLiteral
		case v == endBlockMarker:
			f.finishBlock()
			return
		case v < 265:
			length, n = v-(257-3), 0
		case v < 269:
			length, n = v*2-(265*2-11), 1
		case v < 273:
			length, n = v*4-(269*4-19), 2
		case v < 277:
			length, n = v*8-(273*8-35), 3
		case v < 281:
			length, n = v*16-(277*16-67), 4
		case v < 285:
			length, n = v*32-(281*32-131), 5
		case v < maxNumLit:
			length, n = 258, 0
		default:
			f.err = CorruptInputError(f.roffset)
			return
		}
		if n > 0 {
			for f.nb < n {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			length += int(f.b & uint32(1<<n-1))
			f.b >>= n
			f.nb -= n
		}

		var dist int
		if f.hd == nil {
			for f.nb < 5 {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			dist = int(reverseByte(uint8(f.b&0x1F) << 3))
			f.b >>= 5
			f.nb -= 5
		} else if dist, err = f.huffSym(f.hd); err != nil {
			f.err = err
			return
		}

		switch {
		case dist < 4:
			dist++
		case dist < maxNumDist:
			nb := uint(dist-2) >> 1
			extra := (dist & 1) << nb
			for f.nb < nb {
				if err = f.moreBits(); err != nil {
					f.err = err
					return
				}
			}
			extra |= int(f.b & uint32(1<<nb-1))
			f.b >>= nb
			f.nb -= nb
			dist = 1<<(nb+1) + 1 + extra
		default:
			f.err = CorruptInputError(f.roffset)
			return
		}
		if dist > f.hist.histLen() {
			f.err = CorruptInputError(f.roffset)
			return
		}
		f.copyLen, f.copyDist = length, dist
		goto copyHistory
	}

copyHistory:
	for f.copyLen > 0 {
		b := f.hist.copyByte(f.copyDist)
		f.toRead = append(f.toRead, b)
		f.blockOut++
		f.copyLen--
	}
	goto readLiteral
}

func reverseByte(b uint8) uint8 {
	b = (b&0x55)<<1 | (b&0xAA)>>1
	b = (b&0x33)<<2 | (b&0xCC)>>2
	b = (b&0x0F)<<4 | (b&0xF0)>>4
	return b
}

func (f *Decoder) storedBlock() {
	f.b, f.nb = 0, 0

	n, err := io.ReadFull(f.r, f.scratch[0:4])
	f.roffset += int64(n)
	if err != nil {
		f.err = noEOF(err)
		return
	}
	length := int(f.scratch[0]) | int(f.scratch[1])<<8
	nlength := int(f.scratch[2]) | int(f.scratch[3])<<8
	if uint16(nlength) != uint16(^length) {
		f.err = CorruptInputError(f.roffset)
		return
	}

	buf := make([]byte, length)
	n, err = io.ReadFull(f.r, buf)
	f.roffset += int64(n)
	if err != nil {
		f.err = noEOF(err)
		return
	}
	for _, b := range buf {
		f.hist.writeByte(b)
		f.toRead = append(f.toRead, b)
		f.blockOut++
	}
	f.finishBlock()
}

func (f *Decoder) finishBlock() {
	f.woffset += int64(f.blockOut)
	f.blockOut = 0

	f.lastBlock = f.final
	if f.final {
		f.err = io.EOF
	}
	f.step = (*Decoder).nextBlock
	f.blockDone = true
}

func noEOF(e error) error {
	if e == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return e
}

func (f *Decoder) moreBits() error {
	c, err := f.r.ReadByte()
	if err != nil {
		return noEOF(err)
	}
	f.roffset++
	f.b |= uint32(c) << f.nb
	f.nb += 8
	return nil
}

func (f *Decoder) huffSym(h *huffmanDecoder) (int, error) {
	n := uint(h.min)
	nb, b := f.nb, f.b
	for {
		for nb < n {
			c, err := f.r.ReadByte()
			if err != nil {
				f.b, f.nb = b, nb
				return 0, noEOF(err)
			}
			f.roffset++
			b |= uint32(c) << (nb & 31)
			nb += 8
		}
		chunk := h.chunks[b&(huffmanNumChunks-1)]
		n = uint(chunk & huffmanCountMask)
		if n > huffmanChunkBits {
			chunk = h.links[chunk>>huffmanValueShift][(b>>huffmanChunkBits)&h.linkMask]
			n = uint(chunk & huffmanCountMask)
		}
		if n <= nb {
			if n == 0 {
				f.b, f.nb = b, nb
				f.err = CorruptInputError(f.roffset)
				return 0, f.err
			}
			f.b = b >> (n & 31)
			f.nb = nb - n
			return int(chunk >> huffmanValueShift), nil
		}
	}
}
