package zseek

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"zseek/internal/container"
	"zseek/internal/deflate"
)

// Build drives the DEFLATE Adapter end-to-end over src's first compressed
// member (auto-detecting zlib/gzip/raw framing) and emits access points at
// admissible block boundaries, per the admission policy below. On success
// the index is sealed (capacity trimmed) and has at least one point; on
// failure the returned index is nil and the error's Kind classifies the
// failure.
//
// log may be nil; when non-nil, Build reports each admitted point at Debug
// level.
func Build(src Source, cfg Config, log logrus.FieldLogger) (*Index, error) {
	ix, err := New(cfg)
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(src)
	cr, err := container.Open(br, ix.cfg.WindowSize)
	if err != nil {
		return nil, classifyDecodeErr(err)
	}

	// The decoder counts only the payload bytes it consumes, so base, the
	// offset in src of the first payload byte, is added to every
	// CompressedOffset: src has advanced by what br pulled from it, of
	// which br.Buffered() bytes are still unread.
	pos, err := src.Tell()
	if err != nil {
		return nil, wrapErr(IoError, err, "telling compressed source position")
	}
	base := pos - int64(br.Buffered())

	// The entry point (totout == 0) sits at the post-header, pre-first-block
	// boundary: base accounts for the header bytes container consumed, and
	// dec.Snapshot() is the empty (zero-padded) window, since no
	// uncompressed bytes have been produced yet. This is captured before
	// the first ReadBlock, which already decodes all of block 0 and so would
	// otherwise observe totout > 0 from its very first sample.
	entry := Point{
		CompressedOffset:   base + cr.Decoder().BytesRead(),
		Bits:               cr.Decoder().BitsRemainder(),
		UncompressedOffset: 0,
		Window:             cr.Decoder().Snapshot(),
	}
	if aerr := ix.append(entry); aerr != nil {
		return nil, wrapErr(OutOfMemory, aerr, "append entry access point")
	}
	if log != nil {
		log.WithFields(logrus.Fields{
			"cmp_offset":   entry.CompressedOffset,
			"uncmp_offset": entry.UncompressedOffset,
			"bits":         entry.Bits,
		}).Debug("zseek: admitted access point")
	}

	var last int64
	for {
		_, blockErr := cr.ReadBlock()
		dec := cr.Decoder()
		totout := dec.BytesWritten()

		if !dec.AtLastBlock() && totout-last > ix.cfg.Spacing {
			win := dec.Snapshot()
			point := Point{
				CompressedOffset:   base + dec.BytesRead(),
				Bits:               dec.BitsRemainder(),
				UncompressedOffset: totout,
				Window:             win,
			}
			if aerr := ix.append(point); aerr != nil {
				return nil, wrapErr(OutOfMemory, aerr, "append access point")
			}
			last = totout
			if log != nil {
				log.WithFields(logrus.Fields{
					"cmp_offset":   point.CompressedOffset,
					"uncmp_offset": point.UncompressedOffset,
					"bits":         point.Bits,
				}).Debug("zseek: admitted access point")
			}
		}

		if blockErr == io.EOF {
			break
		}
		if blockErr != nil {
			return nil, classifyDecodeErr(blockErr)
		}
	}

	ix.trim()
	ix.built = true
	return ix, nil
}

// classifyDecodeErr maps an error surfaced by internal/container or
// internal/deflate onto the public error taxonomy (§7).
func classifyDecodeErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, io.ErrUnexpectedEOF):
		return wrapErr(DataError, err, "stream truncated before end-of-stream")
	case errors.Is(err, container.ErrTrailerMismatch):
		return wrapErr(DataError, err, "trailer checksum mismatch")
	case errors.Is(err, container.ErrHeader):
		return wrapErr(DataError, err, "malformed stream header")
	}
	var cerr deflate.CorruptInputError
	if errors.As(err, &cerr) {
		return wrapErr(DataError, err, "corrupt deflate stream")
	}
	return wrapErr(IoError, err, "reading compressed source")
}
