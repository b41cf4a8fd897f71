package zseek

import (
	"io"

	"zseek/internal/deflate"
)

// Seek repositions the index's logical uncompressed cursor to offset and
// repositions src to the access point covering it. whence must be
// io.SeekStart; anything else fails with InvalidArg, as does a negative
// offset. Returns the located point (a borrow valid until Free).
func Seek(ix *Index, src Source, offset int64, whence int) (*Point, error) {
	if whence != io.SeekStart {
		return nil, newErr(InvalidArg, "whence must be SEEK_SET")
	}
	if offset < 0 {
		return nil, newErr(InvalidArg, "offset must be non-negative")
	}
	if !ix.built {
		return nil, newErr(NotBuilt, "index has not been built")
	}
	p, err := ix.locate(offset, uncompressedDomain)
	if err != nil {
		return nil, err
	}
	if _, err := src.Seek(p.straddleOffset(), io.SeekStart); err != nil {
		return nil, wrapErr(IoError, err, "seeking compressed source")
	}
	ix.cursor = offset
	return p, nil
}

// Read decodes up to len(buf) uncompressed bytes starting at the index's
// current logical cursor, delivering them into buf, then re-anchors the
// cursor to the byte following what was delivered and repositions src to
// the access point covering that byte, as Seek does.
// Returns 0, nil for a zero-length buf without touching the cursor or src.
func Read(ix *Index, src Source, buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if !ix.built {
		return 0, newErr(NotBuilt, "index has not been built")
	}

	cmpPos, err := src.Tell()
	if err != nil {
		return 0, wrapErr(IoError, err, "telling compressed source position")
	}
	p, err := ix.locate(cmpPos, compressedDomain)
	if err != nil {
		return 0, err
	}

	u := ix.cursor
	skip := u - p.UncompressedOffset
	if skip < 0 {
		return 0, newErr(DataError, "access point located after target offset")
	}

	dec := deflate.NewRaw(src, ix.cfg.WindowSize)
	if p.Bits > 0 {
		var straddle [1]byte
		if _, err := io.ReadFull(src, straddle[:]); err != nil {
			return 0, wrapErr(classifyIOKind(err), err, "reading bit-straddle byte")
		}
		if err := dec.Prime(p.Bits, straddle[0]>>(8-uint(p.Bits))); err != nil {
			return 0, wrapErr(DataError, err, "priming decoder")
		}
	}
	dec.SetDictionary(p.Window)

	discard := make([]byte, ix.cfg.WindowSize)
	for skip > 0 {
		chunk := discard
		if int64(len(chunk)) > skip {
			chunk = chunk[:int(skip)]
		}
		n, rerr := dec.Read(chunk)
		skip -= int64(n)
		if rerr == io.EOF {
			// Target offset lies past the uncompressed end-of-stream:
			// deliver zero bytes, but still re-anchor.
			if _, serr := Seek(ix, src, u, io.SeekStart); serr != nil {
				return 0, serr
			}
			return 0, nil
		}
		if rerr != nil {
			return 0, wrapErr(classifyIOKind(rerr), rerr, "discarding to target offset")
		}
	}

	total := 0
	for total < len(buf) {
		n, rerr := dec.Read(buf[total:])
		total += n
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return 0, wrapErr(classifyIOKind(rerr), rerr, "reading decoded output")
		}
	}

	if _, err := Seek(ix, src, u+int64(total), io.SeekStart); err != nil {
		return total, err
	}
	return total, nil
}

func classifyIOKind(err error) Kind {
	if err == io.ErrUnexpectedEOF {
		return DataError
	}
	if _, ok := err.(deflate.CorruptInputError); ok {
		return DataError
	}
	return IoError
}
