package morphpack

import "fmt"

// bitSink receives the completed 32-bit words a BitWriter emits. The two
// implementations differ only in where the words go: appendSink grows a word
// slice (multi-batch encoding), bufferSink fills a pre-sized caller-owned
// buffer at a running cursor (single-record serialization where the total
// size is known up front).
type bitSink interface {
	putWord(w uint32)
	words() []uint32
}

type appendSink struct {
	out []uint32
}

func (s *appendSink) putWord(w uint32) { s.out = append(s.out, w) }
func (s *appendSink) words() []uint32  { return s.out }

type bufferSink struct {
	buf []uint32
	pos int
}

func (s *bufferSink) putWord(w uint32) {
	s.buf[s.pos] = w
	s.pos++
}

func (s *bufferSink) words() []uint32 { return s.buf[:s.pos] }

// BitWriter packs values of arbitrary width (0 to 32 bits) least-significant-
// bit-first into consecutive 32-bit words. Bits accumulate in a 64-bit pending
// register; completed words are handed to the sink as the pending count
// reaches 32.
type BitWriter struct {
	sink bitSink
	acc  uint64
	bits uint32
}

// NewBitWriter returns a writer that appends words to an internal growable
// slice, retrievable via Words.
func NewBitWriter() *BitWriter {
	return &BitWriter{sink: &appendSink{}}
}

// NewFixedBitWriter returns a writer that fills the caller-owned buf from the
// front. The caller must have sized buf for everything it intends to write;
// overrunning it panics.
func NewFixedBitWriter(buf []uint32) *BitWriter {
	return &BitWriter{sink: &bufferSink{buf: buf}}
}

// PutBits appends the low width bits of value. The value must fit the width:
// value < 1<<width. A width of zero writes nothing.
func (w *BitWriter) PutBits(value uint32, width uint8) {
	if width < 32 && value >= 1<<width {
		panic(fmt.Sprintf("morphpack: value %d does not fit in %d bits", value, width))
	}
	w.acc |= uint64(value) << w.bits
	w.bits += uint32(width)
	for w.bits >= 32 {
		w.sink.putWord(uint32(w.acc))
		w.acc >>= 32
		w.bits -= 32
	}
}

// Flush emits any partial pending word, zero-padded in the high bits, and
// resets the pending state. Called once per batch so every batch ends on a
// word boundary.
func (w *BitWriter) Flush() {
	if w.bits > 0 {
		w.sink.putWord(uint32(w.acc))
		w.acc = 0
		w.bits = 0
	}
}

// Words returns the words written so far. Only complete after Flush.
func (w *BitWriter) Words() []uint32 {
	return w.sink.words()
}

// BitReader extracts values of arbitrary width (0 to 32 bits) from a word
// buffer produced by BitWriter, starting at any bit position. Reads that
// straddle a word boundary are handled transparently. A BitReader is not safe
// for concurrent use; create one reader per goroutine over the same buffer.
type BitReader struct {
	buf    []uint32
	offset uint32
}

// NewBitReader returns a reader positioned at the given absolute bit offset
// into buf. Header-driven random access into batch i starts at
// DataOffset*8.
func NewBitReader(buf []uint32, bitOffset uint32) *BitReader {
	return &BitReader{buf: buf, offset: bitOffset}
}

// GetBits reads width bits at the cursor and advances past them. A width of
// zero reads nothing and returns zero.
func (r *BitReader) GetBits(width uint8) uint32 {
	if width == 0 {
		return 0
	}
	word := r.offset >> 5
	shift := r.offset & 31
	v := uint64(r.buf[word]) >> shift
	if shift+uint32(width) > 32 {
		v |= uint64(r.buf[word+1]) << (32 - shift)
	}
	r.offset += uint32(width)
	return uint32(v & (1<<width - 1))
}

// GetOffset returns the absolute bit position of the cursor. Capturing it
// after a read is how the iterative decoder externalizes its resume point.
func (r *BitReader) GetOffset() uint32 {
	return r.offset
}

// alignWord rounds the cursor up to the next word boundary, landing on the
// start of the following batch.
func (r *BitReader) alignWord() {
	r.offset = (r.offset + 31) &^ 31
}

// alignBitOffset rounds an absolute bit offset up to a word boundary.
func alignBitOffset(offset uint32) uint32 {
	return (offset + 31) &^ 31
}
