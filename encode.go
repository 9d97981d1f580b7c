package morphpack

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"
)

// Encode compresses a collection of morph target vertex deltas.
//
// Deltas are quantized at the given precisions (tangents are zeroed for
// vertices where needsTangent reports false; a nil needsTangent means every
// vertex keeps its tangent), deltas that quantize to all-zero are dropped, the
// survivors are sorted by vertex index if not already ascending, and the
// result is packed into batches of up to BatchSize elements, each at the
// minimal per-field bit widths that batch needs.
//
// The returned header slice and payload word buffer together form the
// compressed stream. Encode panics with a precision-overflow message if a
// batch's value span exceeds a field's hard bit-width cap; the caller must
// retry with a coarser precision.
func Encode(deltas []VertexDelta, needsTangent func(vertexIndex uint32) bool, posPrecision, tanPrecision float32) ([]BatchHeader, []uint32) {
	quantized := make([]QuantizedDelta, 0, len(deltas))
	sorted := true
	for _, d := range deltas {
		withTangent := needsTangent == nil || needsTangent(d.SourceIndex)
		q := Quantize(d, withTangent, posPrecision, tanPrecision)
		if q.IsZero() {
			continue
		}
		if n := len(quantized); n > 0 && quantized[n-1].Index >= q.Index {
			sorted = false
		}
		quantized = append(quantized, q)
	}
	if !sorted {
		slices.SortStableFunc(quantized, func(a, b QuantizedDelta) int {
			return cmp.Compare(a.Index, b.Index)
		})
	}
	return EncodeQuantized(quantized)
}

// EncodeQuantized packs already-quantized, index-sorted deltas into batches.
// Indices must be strictly ascending.
func EncodeQuantized(quantized []QuantizedDelta) ([]BatchHeader, []uint32) {
	numBatches := (len(quantized) + BatchSize - 1) / BatchSize
	headers := make([]BatchHeader, 0, numBatches)
	w := NewBitWriter()

	for start := 0; start < len(quantized); start += BatchSize {
		batch := quantized[start:min(start+BatchSize, len(quantized))]
		h := BuildBatchHeader(batch, uint32(len(w.Words())*4))
		packBatch(w, h, batch)
		w.Flush()
		headers = append(headers, h)
	}
	return headers, w.Words()
}

// BuildBatchHeader computes the header for one batch of up to BatchSize
// index-sorted quantized deltas: the per-field minima across the batch and the
// minimal bit width that covers each field's span. dataOffset is the byte
// offset the batch's payload will start at.
//
// The index field stores each element's index minus its position within the
// batch, so a run of perfectly consecutive indices collapses to a zero-bit
// field. Strictly ascending input indices make that adjusted index
// non-decreasing, which also means IndexMin is always the batch's first
// source index.
func BuildBatchHeader(batch []QuantizedDelta, dataOffset uint32) BatchHeader {
	if len(batch) == 0 || len(batch) > BatchSize {
		panic(fmt.Sprintf("morphpack: invalid batch length %d (must be 1 to %d)", len(batch), BatchSize))
	}

	indexMin := batch[0].Index
	indexMax := indexMin
	posMin := batch[0].Position
	posMax := batch[0].Position
	tanMin := batch[0].TangentZ
	tanMax := batch[0].TangentZ

	for i, q := range batch[1:] {
		adjusted := q.Index - uint32(i+1)
		indexMin = min(indexMin, adjusted)
		indexMax = max(indexMax, adjusted)
		for a := range 3 {
			posMin[a] = min(posMin[a], q.Position[a])
			posMax[a] = max(posMax[a], q.Position[a])
			tanMin[a] = min(tanMin[a], q.TangentZ[a])
			tanMax[a] = max(tanMax[a], q.TangentZ[a])
		}
	}

	h := BatchHeader{
		DataOffset:  dataOffset,
		NumElements: uint32(len(batch)),
		HasTangents: tanMin != [3]int32{} || tanMax != [3]int32{},
		IndexBits:   fieldWidth("index", uint32(indexMax-indexMin), maxIndexBits),
		IndexMin:    indexMin,
		PositionMin: posMin,
		TangentZMin: tanMin,
	}
	for a := range 3 {
		h.PositionBits[a] = fieldWidth("position", uint32(posMax[a]-posMin[a]), maxPositionBits)
		h.TangentZBits[a] = fieldWidth("tangent", uint32(tanMax[a]-tanMin[a]), maxTangentBits)
	}
	return h
}

// fieldWidth returns ceil(log2(span+1)), the bits needed to store any value
// in [0, span]. Exceeding the field's cap means the chosen precision produced
// a wider value range than the format can carry, which is a caller contract
// violation rather than a recoverable error.
func fieldWidth(field string, span uint32, maxWidth uint8) uint8 {
	width := uint8(bits.Len32(span))
	if width > maxWidth {
		panic(fmt.Sprintf("morphpack: precision overflow: %s span needs %d bits (cap %d); use a coarser precision", field, width, maxWidth))
	}
	return width
}

// packBatch bit-packs the batch's elements at the widths recorded in h. Each
// element contributes its min-relative adjusted index, position components,
// and, only when the batch has tangents, tangent components. The caller
// flushes the writer afterwards to end the batch on a word boundary.
func packBatch(w *BitWriter, h BatchHeader, batch []QuantizedDelta) {
	for i, q := range batch {
		adjusted := q.Index - uint32(i)
		w.PutBits(adjusted-h.IndexMin, h.IndexBits)
		for a := range 3 {
			w.PutBits(uint32(q.Position[a]-h.PositionMin[a]), h.PositionBits[a])
		}
		if h.HasTangents {
			for a := range 3 {
				w.PutBits(uint32(q.TangentZ[a]-h.TangentZMin[a]), h.TangentZBits[a])
			}
		}
	}
}

// WriteQuantizedDeltas serializes a single batch's elements into the
// caller-owned buf, which must hold at least CalculateBatchDwords(h) words.
// This is the header-table-decoupled path: h must have been built from the
// same elements via BuildBatchHeader.
func WriteQuantizedDeltas(h BatchHeader, batch []QuantizedDelta, buf []uint32) {
	w := NewFixedBitWriter(buf)
	packBatch(w, h, batch)
	w.Flush()
}
