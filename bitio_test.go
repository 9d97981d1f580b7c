package morphpack

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitWriterEmitsNothingWithoutBits(t *testing.T) {
	assert := assert.New(t)
	w := NewBitWriter()
	w.PutBits(0, 0)
	w.Flush()
	assert.Empty(w.Words())
}

func TestBitWriterWordBoundaryCrossings(t *testing.T) {
	// Widths chosen to exercise the straddle cases: 1-bit, 31-bit (ends one
	// bit short of the boundary), 32-bit (exactly one word after a 1-bit
	// offset, so it straddles), and 33 total bits carried across a word edge.
	assert := assert.New(t)
	w := NewBitWriter()
	w.PutBits(1, 1)
	w.PutBits(0x7FFFFFFF, 31)
	w.PutBits(0xDEADBEEF, 32)
	w.PutBits(5, 3)
	w.Flush()

	words := w.Words()
	assert.Len(words, 3)

	r := NewBitReader(words, 0)
	assert.Equal(uint32(1), r.GetBits(1))
	assert.Equal(uint32(0x7FFFFFFF), r.GetBits(31))
	assert.Equal(uint32(0xDEADBEEF), r.GetBits(32))
	assert.Equal(uint32(5), r.GetBits(3))
	assert.Equal(uint32(67), r.GetOffset())
}

func TestBitWriterRejectsOversizedValue(t *testing.T) {
	assert := assert.New(t)
	assert.Panics(func() {
		NewBitWriter().PutBits(8, 3)
	})
}

func TestBitReaderZeroWidthReadsNothing(t *testing.T) {
	assert := assert.New(t)
	r := NewBitReader([]uint32{0xFFFFFFFF}, 0)
	assert.Equal(uint32(0), r.GetBits(0))
	assert.Equal(uint32(0), r.GetOffset())
}

func TestBitReaderStartsAtArbitraryOffset(t *testing.T) {
	assert := assert.New(t)
	w := NewBitWriter()
	w.PutBits(0x2A, 7)
	w.PutBits(0x155, 9)
	w.Flush()

	r := NewBitReader(w.Words(), 7)
	assert.Equal(uint32(0x155), r.GetBits(9))
	assert.Equal(uint32(16), r.GetOffset())
}

func TestFixedBitWriterMatchesAppendWriter(t *testing.T) {
	assert := assert.New(t)
	rng := rand.New(rand.NewSource(42))

	type field struct {
		value uint32
		width uint8
	}
	fields := make([]field, 200)
	for i := range fields {
		width := uint8(rng.Intn(33))
		var value uint32
		if width == 32 {
			value = rng.Uint32()
		} else if width > 0 {
			value = rng.Uint32() & (1<<width - 1)
		}
		fields[i] = field{value, width}
	}

	grow := NewBitWriter()
	for _, f := range fields {
		grow.PutBits(f.value, f.width)
	}
	grow.Flush()

	fixed := NewFixedBitWriter(make([]uint32, len(grow.Words())))
	for _, f := range fields {
		fixed.PutBits(f.value, f.width)
	}
	fixed.Flush()

	assert.Equal(grow.Words(), fixed.Words(), "both sinks must produce identical words")
}

func TestBitRoundTripRandomWidths(t *testing.T) {
	assert := assert.New(t)
	rng := rand.New(rand.NewSource(2025))

	widths := make([]uint8, 500)
	values := make([]uint32, len(widths))
	w := NewBitWriter()
	for i := range widths {
		widths[i] = uint8(1 + rng.Intn(32))
		if widths[i] == 32 {
			values[i] = rng.Uint32()
		} else {
			values[i] = rng.Uint32() & (1<<widths[i] - 1)
		}
		w.PutBits(values[i], widths[i])
	}
	w.Flush()

	r := NewBitReader(w.Words(), 0)
	for i := range widths {
		assert.Equal(values[i], r.GetBits(widths[i]), "field %d (width %d)", i, widths[i])
	}
}

func TestFlushPadsToWordBoundary(t *testing.T) {
	assert := assert.New(t)
	w := NewBitWriter()
	w.PutBits(1, 1)
	w.Flush()
	w.PutBits(3, 2)
	w.Flush()

	words := w.Words()
	assert.Len(words, 2)
	assert.Equal(uint32(1), words[0], "partial word must be zero-padded high")
	assert.Equal(uint32(3), words[1], "flush must restart the next batch on a word boundary")
}
