// Package morphpack implements a lossy, quantized compression codec for morph
// target (blend shape) vertex deltas.
//
// The codec operates on fixed batches of up to 64 vertex deltas, each carrying
// a position offset and an optional tangent-space normal offset. Deltas are
// quantized to fixed point, sparsified (all-zero deltas are dropped), sorted by
// vertex index, and bit-packed at the minimal per-field width each batch needs.
// Every batch ends on a 32-bit word boundary, so its header's byte offset is
// enough to decode it in isolation; any number of goroutines may decode the
// same stream concurrently. The package maintains no global mutable state.
package morphpack

// Batch and field-width configuration constants. The payload layout depends on
// every one of these, so changing them changes the wire format.
const (
	// BatchSize is the fixed number of delta elements grouped under one header.
	BatchSize = 64

	// Hard caps on the adaptive per-field bit widths. A batch whose value span
	// does not fit the cap cannot be encoded at the requested precision.
	maxIndexBits    = 31
	maxPositionBits = 28
	maxTangentBits  = 16

	// Quantized position range. The upper bound sits 8 steps below 2^27-1 so
	// float rounding during clamping cannot escape the 28-bit signed range.
	quantizedPositionMin = -(1 << 27)
	quantizedPositionMax = (1 << 27) - 8

	// Quantized tangent range, a plain signed 16-bit span.
	quantizedTangentMin = -32768
	quantizedTangentMax = 32767
)

// VertexDelta is a single morph target entry: the offsets applied to one
// vertex of the base mesh. SourceIndex is the vertex's index in the mesh.
type VertexDelta struct {
	SourceIndex   uint32
	PositionDelta [3]float32
	TangentZDelta [3]float32
}

// QuantizedDelta is a VertexDelta after fixed-point conversion. Position
// components fit in 28 signed bits, tangent components in 16.
type QuantizedDelta struct {
	Index    uint32
	Position [3]int32
	TangentZ [3]int32
}

// IsZero reports whether every quantized component is zero. Such deltas
// represent no visible change and are dropped from the compressed stream.
func (q QuantizedDelta) IsZero() bool {
	return q.Position == [3]int32{} && q.TangentZ == [3]int32{}
}

// BatchHeader describes how one batch of up to 64 elements is packed: where
// its payload starts, how many bits each field occupies, and the per-field
// minima the packed values are relative to. Headers are created once at encode
// time and never modified.
type BatchHeader struct {
	// DataOffset is the byte offset of the batch's first payload word,
	// measured from the start of the payload buffer. Sequential decoding
	// never consults it; it exists so a consumer can seek straight to any
	// batch without decoding the ones before it.
	DataOffset uint32

	// NumElements is the number of deltas in the batch (1 to BatchSize).
	NumElements uint32

	// HasTangents is set when any element of the batch carries a non-zero
	// tangent delta; when clear, the tangent fields occupy no payload bits
	// and decode to zero.
	HasTangents bool

	IndexBits    uint8
	PositionBits [3]uint8
	TangentZBits [3]uint8

	IndexMin    uint32
	PositionMin [3]int32
	TangentZMin [3]int32
}

// ElementBits returns the number of payload bits one element of the batch
// occupies.
func (h BatchHeader) ElementBits() uint32 {
	bits := uint32(h.IndexBits) +
		uint32(h.PositionBits[0]) + uint32(h.PositionBits[1]) + uint32(h.PositionBits[2])
	if h.HasTangents {
		bits += uint32(h.TangentZBits[0]) + uint32(h.TangentZBits[1]) + uint32(h.TangentZBits[2])
	}
	return bits
}

// CalculateBatchDwords returns the number of 32-bit words the batch's payload
// occupies, including the zero padding that aligns the batch end to a whole
// word.
func CalculateBatchDwords(h BatchHeader) uint32 {
	return (h.ElementBits()*h.NumElements + 31) / 32
}
