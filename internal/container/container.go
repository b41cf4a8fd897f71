// Package container sniffs and parses the zlib/gzip framing around a
// DEFLATE stream, forwarding the payload to an internal/deflate.Decoder and
// validating the trailer once the stream's first member ends. Only the
// first gzip member is indexed or read: ReadBlock returns io.EOF once that
// member's trailer validates (Reader.Done then reports true), and the
// Builder stops at that io.EOF.
package container

import (
	"bufio"
	"encoding/binary"
	"hash"
	"hash/adler32"
	"hash/crc32"
	"io"
	"time"

	"github.com/pkg/errors"

	"zseek/internal/deflate"
)

// Kind identifies which framing wraps the DEFLATE payload.
type Kind int

const (
	Raw Kind = iota
	Zlib
	Gzip
)

func (k Kind) String() string {
	switch k {
	case Zlib:
		return "zlib"
	case Gzip:
		return "gzip"
	default:
		return "raw"
	}
}

const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8
	flagText    = 1 << 0
	flagHdrCrc  = 1 << 1
	flagExtra   = 1 << 2
	flagName    = 1 << 3
	flagComment = 1 << 4
)

// Header carries the metadata fields a gzip header records; zero value for
// zlib/raw streams.
type Header struct {
	Name    string
	Comment string
	Extra   []byte
	ModTime time.Time
	OS      byte
}

// Reader wraps a single DEFLATE payload (with optional zlib/gzip framing)
// and validates its trailer, if any, once decoding reaches the end of the
// stream.
type Reader struct {
	Header
	Kind   Kind
	r      *bufio.Reader
	dec    *deflate.Decoder
	digest hash.Hash32
	size   uint32
	done   bool // first member's trailer has been validated
	err    error
}

// Open detects the framing at the start of r, consumes any header, and
// returns a Reader ready to decode the first member's payload. histSize is
// the DEFLATE Adapter's back-reference history buffer size.
func Open(r io.Reader, histSize int) (*Reader, error) {
	br := bufioReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, "container: peek magic")
	}
	z := &Reader{r: br}
	switch {
	case len(magic) == 2 && magic[0] == gzipID1 && magic[1] == gzipID2:
		z.Kind = Gzip
		if err := z.readGzipHeader(); err != nil {
			return nil, err
		}
	case len(magic) == 2 && isZlibHeader(magic[0], magic[1]):
		z.Kind = Zlib
		if _, err := io.ReadFull(br, make([]byte, 2)); err != nil {
			return nil, errors.Wrap(err, "container: read zlib header")
		}
		z.digest = adler32.New()
	default:
		z.Kind = Raw
	}
	z.dec = deflate.NewRaw(br, histSize)
	return z, nil
}

func bufioReader(r io.Reader) *bufio.Reader {
	if br, ok := r.(*bufio.Reader); ok {
		return br
	}
	return bufio.NewReader(r)
}

// isZlibHeader reports whether cmf/flg form a valid zlib header per RFC
// 1950: compression method 8, and the 16-bit header value a multiple of 31.
func isZlibHeader(cmf, flg byte) bool {
	if cmf&0x0F != 8 {
		return false
	}
	return (int(cmf)<<8|int(flg))%31 == 0
}

// Decoder exposes the underlying DEFLATE Adapter, e.g. for snapshotting an
// access point's window and bit state.
func (z *Reader) Decoder() *deflate.Decoder { return z.dec }

// ReadBlock decodes forward to the next DEFLATE block boundary. Once the
// final block is consumed it validates the trailer (if any) and returns
// io.EOF; a checksum mismatch surfaces as a DataError-classed error.
func (z *Reader) ReadBlock() ([]byte, error) {
	if z.err != nil {
		return nil, z.err
	}
	out, err := z.dec.ReadBlock()
	if z.digest != nil && len(out) > 0 {
		z.digest.Write(out)
		z.size += uint32(len(out))
	}
	if err == io.EOF {
		if verr := z.validateTrailer(); verr != nil {
			z.err = verr
			return out, verr
		}
		z.done = true
		z.err = io.EOF
		return out, io.EOF
	}
	if err != nil {
		z.err = err
	}
	return out, err
}

// Done reports whether the first member has been fully decoded and its
// trailer (if any) validated.
func (z *Reader) Done() bool { return z.done }

func (z *Reader) validateTrailer() error {
	switch z.Kind {
	case Gzip:
		var buf [8]byte
		if _, err := io.ReadFull(z.r, buf[:]); err != nil {
			return errors.Wrap(noEOF(err), "container: read gzip trailer")
		}
		crc := binary.LittleEndian.Uint32(buf[0:4])
		isize := binary.LittleEndian.Uint32(buf[4:8])
		if crc != z.digest.Sum32() {
			return errors.Wrap(ErrTrailerMismatch, "gzip crc32 mismatch")
		}
		if isize != z.size {
			return errors.Wrap(ErrTrailerMismatch, "gzip isize mismatch")
		}
		return nil
	case Zlib:
		var buf [4]byte
		if _, err := io.ReadFull(z.r, buf[:]); err != nil {
			return errors.Wrap(noEOF(err), "container: read zlib trailer")
		}
		sum := binary.BigEndian.Uint32(buf[:])
		if sum != z.digest.Sum32() {
			return errors.Wrap(ErrTrailerMismatch, "zlib adler32 mismatch")
		}
		return nil
	default:
		return nil
	}
}

// ErrTrailerMismatch is the sentinel wrapped by a failed gzip/zlib trailer
// checksum or length comparison, so callers can classify it as a decode
// error rather than an I/O error.
var ErrTrailerMismatch = errors.New("container: trailer checksum mismatch")

// ErrHeader is the sentinel wrapped by a malformed gzip header.
var ErrHeader = errors.New("container: invalid header")

func noEOF(err error) error {
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

func (z *Reader) readGzipHeader() error {
	var buf [10]byte
	if _, err := io.ReadFull(z.r, buf[:]); err != nil {
		return errors.Wrap(err, "container: read gzip header")
	}
	if buf[0] != gzipID1 || buf[1] != gzipID2 || buf[2] != gzipDeflate {
		return errors.Wrap(ErrHeader, "invalid gzip header")
	}
	flg := buf[3]
	z.ModTime = time.Unix(int64(binary.LittleEndian.Uint32(buf[4:8])), 0)
	z.OS = buf[9]

	z.digest = crc32.NewIEEE()
	z.digest.Write(buf[:])

	if flg&flagExtra != 0 {
		n, err := z.read2()
		if err != nil {
			return err
		}
		data := make([]byte, n)
		if _, err := io.ReadFull(z.r, data); err != nil {
			return errors.Wrap(err, "container: read gzip extra field")
		}
		z.Extra = data
	}
	if flg&flagName != 0 {
		s, err := z.readCString()
		if err != nil {
			return err
		}
		z.Name = s
	}
	if flg&flagComment != 0 {
		s, err := z.readCString()
		if err != nil {
			return err
		}
		z.Comment = s
	}
	if flg&flagHdrCrc != 0 {
		n, err := z.read2()
		if err != nil {
			return err
		}
		if n != z.digest.Sum32()&0xFFFF {
			return errors.Wrap(ErrHeader, "gzip header crc mismatch")
		}
	}
	z.digest.Reset()
	return nil
}

func (z *Reader) read2() (uint32, error) {
	var buf [2]byte
	if _, err := io.ReadFull(z.r, buf[:]); err != nil {
		return 0, errors.Wrap(err, "container: read field length")
	}
	return uint32(binary.LittleEndian.Uint16(buf[:])), nil
}

func (z *Reader) readCString() (string, error) {
	var out []byte
	for {
		b, err := z.r.ReadByte()
		if err != nil {
			return "", errors.Wrap(err, "container: read header string")
		}
		if b == 0 {
			return string(out), nil
		}
		out = append(out, b)
	}
}
