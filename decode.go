package morphpack

import (
	"errors"
	"fmt"
)

// ErrInvalidStream is returned by ValidateStream when a header table and
// payload are inconsistent.
var ErrInvalidStream = errors.New("morphpack: invalid stream")

// Decode reconstructs every delta of a compressed stream, in ascending source
// index order. The result has one entry per surviving (non-zero) input delta;
// vertices that quantized to all-zero at encode time never appear.
//
// Decode trusts the headers completely. A stream from an untrusted source
// must pass ValidateStream first; feeding Decode an inconsistent stream may
// panic on an out-of-range payload read.
func Decode(headers []BatchHeader, payload []uint32, posPrecision, tanPrecision float32) []VertexDelta {
	total := 0
	for _, h := range headers {
		total += int(h.NumElements)
	}
	out := make([]VertexDelta, 0, total)

	// Batches were end-padded to word boundaries at encode time, so a single
	// sequential reader lands on each next batch without consulting
	// DataOffset.
	r := NewBitReader(payload, 0)
	for _, h := range headers {
		for i := range h.NumElements {
			q := readElement(r, h, i)
			out = append(out, Dequantize(q, h.HasTangents, posPrecision, tanPrecision))
		}
		r.alignWord()
	}
	return out
}

// readElement decodes the element at local position in its batch and undoes
// the min-relative and index-adjustment transforms. A zero-width field reads
// nothing and reconstructs to the field's minimum.
func readElement(r *BitReader, h BatchHeader, local uint32) QuantizedDelta {
	var q QuantizedDelta
	q.Index = r.GetBits(h.IndexBits) + h.IndexMin + local
	for a := range 3 {
		q.Position[a] = int32(r.GetBits(h.PositionBits[a])) + h.PositionMin[a]
	}
	if h.HasTangents {
		for a := range 3 {
			q.TangentZ[a] = int32(r.GetBits(h.TangentZBits[a])) + h.TangentZMin[a]
		}
	}
	return q
}

// ReadQuantizedDeltas deserializes a single batch from the word buffer buf,
// appending the elements to dst. buf must start at the batch's first payload
// word and hold at least CalculateBatchDwords(h) words. Together with
// WriteQuantizedDeltas this forms the single-batch path that operates in
// isolation from the multi-batch stream, and with DataOffset it is what makes
// per-batch parallel decoding possible.
func ReadQuantizedDeltas(h BatchHeader, buf []uint32, dst []QuantizedDelta) []QuantizedDelta {
	r := NewBitReader(buf, 0)
	for i := range h.NumElements {
		dst = append(dst, readElement(r, h, i))
	}
	return dst
}

// ValidateStream bounds-checks a header table against its payload so the
// trusting fast decode path can be used on data from outside sources. It
// verifies that every header's declared widths are within the format caps,
// that batch payloads are word-aligned, laid out back-to-back, and end inside
// the payload buffer, and that the stream covers the payload exactly.
func ValidateStream(headers []BatchHeader, payload []uint32) error {
	var wordOffset uint32
	for i, h := range headers {
		if h.NumElements < 1 || h.NumElements > BatchSize {
			return fmt.Errorf("%w: header %d: element count %d out of range [1, %d]",
				ErrInvalidStream, i, h.NumElements, BatchSize)
		}
		if h.IndexBits > maxIndexBits {
			return fmt.Errorf("%w: header %d: index width %d exceeds cap %d",
				ErrInvalidStream, i, h.IndexBits, maxIndexBits)
		}
		for a := range 3 {
			if h.PositionBits[a] > maxPositionBits {
				return fmt.Errorf("%w: header %d: position width %d exceeds cap %d",
					ErrInvalidStream, i, h.PositionBits[a], maxPositionBits)
			}
			if h.TangentZBits[a] > maxTangentBits {
				return fmt.Errorf("%w: header %d: tangent width %d exceeds cap %d",
					ErrInvalidStream, i, h.TangentZBits[a], maxTangentBits)
			}
		}
		if h.DataOffset%4 != 0 {
			return fmt.Errorf("%w: header %d: byte offset %d not word-aligned",
				ErrInvalidStream, i, h.DataOffset)
		}
		if h.DataOffset/4 != wordOffset {
			return fmt.Errorf("%w: header %d: byte offset %d does not follow previous batch (want %d)",
				ErrInvalidStream, i, h.DataOffset, wordOffset*4)
		}
		wordOffset += CalculateBatchDwords(h)
		if wordOffset > uint32(len(payload)) {
			return fmt.Errorf("%w: header %d: batch ends at word %d past payload length %d",
				ErrInvalidStream, i, wordOffset, len(payload))
		}
	}
	if wordOffset != uint32(len(payload)) {
		return fmt.Errorf("%w: headers cover %d payload words, buffer has %d",
			ErrInvalidStream, wordOffset, len(payload))
	}
	return nil
}
