package zseek

import (
	"bytes"
	"io"
	"math/rand"
	"testing"
)

func buildFromGzip(t *testing.T, data []byte, cfg Config) (*Index, Source) {
	t.Helper()
	compressed := gzipOf(t, data)
	src := NewSource(bytes.NewReader(compressed))
	ix, err := Build(src, cfg, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return ix, src
}

func TestReadZeroLengthIsNoop(t *testing.T) {
	want := sequence(1 << 16)
	ix, src := buildFromGzip(t, want, Config{})
	if _, err := Seek(ix, src, 1000, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	n, err := Read(ix, src, nil)
	if err != nil || n != 0 {
		t.Fatalf("Read(nil) = %d, %v, want 0, nil", n, err)
	}
}

func TestSeekRejectsNonSeekSet(t *testing.T) {
	want := sequence(1 << 16)
	ix, src := buildFromGzip(t, want, Config{})
	_, err := Seek(ix, src, 0, io.SeekCurrent)
	if err == nil {
		t.Fatalf("expected InvalidArg, got nil")
	}
	if !InvalidArg.Is(err) {
		t.Fatalf("expected InvalidArg, got %v", err)
	}
	// The failed seek leaves the index usable: a valid seek still works.
	if _, err := Seek(ix, src, 0, io.SeekStart); err != nil {
		t.Fatalf("Seek after failed seek: %v", err)
	}
}

func TestSeekIdempotent(t *testing.T) {
	want := sequence(1 << 20)
	ix, src := buildFromGzip(t, want, Config{Spacing: 1 << 16})
	if _, err := Seek(ix, src, 12345, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if ix.cursor != 12345 {
		t.Fatalf("cursor = %d, want 12345", ix.cursor)
	}
	if _, err := Seek(ix, src, 12345, io.SeekStart); err != nil {
		t.Fatalf("Seek again: %v", err)
	}
	if ix.cursor != 12345 {
		t.Fatalf("cursor after repeat seek = %d, want 12345", ix.cursor)
	}
}

func TestReadAdvancesCursor(t *testing.T) {
	want := sequence(1 << 20)
	ix, src := buildFromGzip(t, want, Config{Spacing: 1 << 16})
	if _, err := Seek(ix, src, 500, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 300)
	n, err := Read(ix, src, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if ix.cursor != 500+int64(n) {
		t.Fatalf("cursor = %d, want %d", ix.cursor, 500+int64(n))
	}

	buf2 := make([]byte, 100)
	n2, err := Read(ix, src, buf2)
	if err != nil {
		t.Fatalf("second Read: %v", err)
	}
	wantStart := 500 + n
	if !bytes.Equal(buf2[:n2], want[wantStart:wantStart+n2]) {
		t.Fatalf("second read did not continue from first read's end")
	}
}

func TestReadPastEndOfStreamReturnsZero(t *testing.T) {
	want := sequence(1 << 16)
	ix, src := buildFromGzip(t, want, Config{})
	if _, err := Seek(ix, src, int64(len(want))+1000, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 10)
	n, err := Read(ix, src, buf)
	if err != nil {
		t.Fatalf("Read past end: %v", err)
	}
	if n != 0 {
		t.Fatalf("Read past end = %d bytes, want 0", n)
	}
}

// TestBitStraddleResume builds a stream likely to contain a non-byte-
// aligned block boundary (pseudo-random letters from a 16-symbol alphabet,
// which compress into Huffman-coded blocks, with a small spacing so most
// boundaries get a point) and verifies reading from such a point matches a
// full decode sliced at the same offset.
func TestBitStraddleResume(t *testing.T) {
	data := make([]byte, 2<<20)
	rng := rand.New(rand.NewSource(1))
	rng.Read(data)
	for i := range data {
		data[i] = 'a' + data[i]%16
	}

	ix, src := buildFromGzip(t, data, Config{Spacing: 1 << 14})

	var straddle *Point
	for i := range ix.Points() {
		if ix.Points()[i].Bits > 0 {
			straddle = &ix.Points()[i]
			break
		}
	}
	if straddle == nil {
		t.Skip("no bit-straddling access point found in this stream")
	}

	if _, err := Seek(ix, src, straddle.UncompressedOffset, io.SeekStart); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	buf := make([]byte, 4096)
	n, err := Read(ix, src, buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := data[straddle.UncompressedOffset : straddle.UncompressedOffset+int64(n)]
	if !bytes.Equal(buf[:n], want) {
		t.Fatalf("bit-straddle resume mismatch at offset %d", straddle.UncompressedOffset)
	}
}

func TestSpacingIndependenceRetrievability(t *testing.T) {
	want := sequence(3 << 20)
	offsets := []int64{0, 100, 1 << 19, 2 << 20, (3 << 20) - 100}

	for _, spacing := range []int64{1 << 16, 1 << 19} {
		ix, src := buildFromGzip(t, want, Config{Spacing: spacing})
		for _, off := range offsets {
			if _, err := Seek(ix, src, off, io.SeekStart); err != nil {
				t.Fatalf("spacing=%d Seek(%d): %v", spacing, off, err)
			}
			buf := make([]byte, 64)
			n, err := Read(ix, src, buf)
			if err != nil {
				t.Fatalf("spacing=%d Read(%d): %v", spacing, off, err)
			}
			if !bytes.Equal(buf[:n], want[off:off+int64(n)]) {
				t.Fatalf("spacing=%d offset=%d: mismatch", spacing, off)
			}
		}
	}
}
