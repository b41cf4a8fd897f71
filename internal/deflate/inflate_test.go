package deflate

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
)

func deflateRaw(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		t.Fatalf("flate.NewWriter: %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func readAll(t *testing.T, dec *Decoder) []byte {
	t.Helper()
	var out []byte
	buf := make([]byte, 4096)
	for {
		n, err := dec.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
	}
}

func TestDecoderRoundTrip(t *testing.T) {
	want := make([]byte, 200000)
	for i := range want {
		want[i] = byte(i % 251)
	}
	compressed := deflateRaw(t, want)

	dec := NewRaw(bytes.NewReader(compressed), 32768)
	got := readAll(t, dec)
	if !bytes.Equal(got, want) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestDecoderReadBlockStepsToBoundaries(t *testing.T) {
	want := make([]byte, 500000)
	for i := range want {
		want[i] = byte((i * 7) % 256)
	}
	compressed := deflateRaw(t, want)

	dec := NewRaw(bytes.NewReader(compressed), 32768)
	var got []byte
	for {
		block, err := dec.ReadBlock()
		got = append(got, block...)
		if dec.BitsRemainder() < 0 || dec.BitsRemainder() > 7 {
			t.Fatalf("bits remainder out of range: %d", dec.BitsRemainder())
		}
		if err == io.EOF {
			if !dec.AtLastBlock() {
				t.Fatalf("reached EOF but AtLastBlock is false")
			}
			break
		}
		if err != nil {
			t.Fatalf("ReadBlock: %v", err)
		}
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("block-stepped round trip mismatch: got %d bytes, want %d bytes", len(got), len(want))
	}
}

func TestDecoderResumeFromAccessPoint(t *testing.T) {
	want := make([]byte, 300000)
	for i := range want {
		want[i] = byte((i*13 + 1) % 256)
	}
	compressed := deflateRaw(t, want)

	src := bytes.NewReader(compressed)
	dec := NewRaw(src, 32768)

	var totout int64
	var point struct {
		cmpOffset int64
		bits      int
		uncOffset int64
		window    []byte
	}
	for {
		_, err := dec.ReadBlock()
		totout = dec.BytesWritten()
		if !dec.AtLastBlock() && totout > 100000 && point.window == nil {
			point.cmpOffset = dec.BytesRead()
			point.bits = dec.BitsRemainder()
			point.uncOffset = totout
			win := dec.Snapshot()
			point.window = append([]byte(nil), win...)
		}
		if err == io.EOF || point.window != nil {
			break
		}
	}
	if point.window == nil {
		t.Fatalf("no access point captured before end of stream")
	}

	// Resume a fresh decoder at the captured point and compare the tail.
	resumeSrc := bytes.NewReader(compressed)
	straddleOffset := point.cmpOffset
	if point.bits > 0 {
		straddleOffset--
	}
	if _, err := resumeSrc.Seek(straddleOffset, io.SeekStart); err != nil {
		t.Fatalf("seek: %v", err)
	}

	fresh := NewRaw(resumeSrc, 32768)
	if point.bits > 0 {
		var b [1]byte
		if _, err := io.ReadFull(resumeSrc, b[:]); err != nil {
			t.Fatalf("read straddle byte: %v", err)
		}
		if err := fresh.Prime(point.bits, b[0]>>(8-uint(point.bits))); err != nil {
			t.Fatalf("prime: %v", err)
		}
	}
	fresh.SetDictionary(point.window)

	got := readAll(t, fresh)
	wantTail := want[point.uncOffset:]
	if !bytes.Equal(got, wantTail) {
		t.Fatalf("resumed decode mismatch: got %d bytes, want %d bytes", len(got), len(wantTail))
	}
}

func TestDecoderCorruptInput(t *testing.T) {
	compressed := deflateRaw(t, []byte("hello world, this is a test stream"))
	corrupt := append([]byte(nil), compressed...)
	corrupt = corrupt[:len(corrupt)-3] // truncate before the end-of-stream marker

	dec := NewRaw(bytes.NewReader(corrupt), 32768)
	_, err := io.ReadAll(dec)
	if err == nil {
		t.Fatalf("expected an error decoding truncated input, got nil")
	}
}
