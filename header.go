package morphpack

// Header wire record layout.
//
// A BatchHeader serializes to a fixed 320-bit record of 10 consecutive 32-bit
// words, independent of the variable-length batch payload, so header tables
// can be indexed in O(1). Fields are packed least-significant-bit-first:
//
//	DataOffset(32) · IndexBits(5) · PositionBits.x/y/z(5 each) ·
//	HasTangents(1) · NumElements(11) · IndexMin(32) ·
//	PositionMin.x/y/z(32 each) · TangentZBits.x/y/z(5 each) · padding(17) ·
//	TangentZMin.x/y/z(32 each)
//
// This layout is a wire contract; the in-memory BatchHeader struct is not.
const (
	// HeaderRecordWords is the size of one serialized header in 32-bit words.
	HeaderRecordWords = 10

	headerBitsFieldWidth  = 5
	headerFlagFieldWidth  = 1
	headerCountFieldWidth = 11
	headerRecordPadding   = 17
)

// PutBatchHeader serializes h into dst, which must hold at least
// HeaderRecordWords words. All HeaderRecordWords words are written.
func PutBatchHeader(dst []uint32, h BatchHeader) {
	w := NewFixedBitWriter(dst[:HeaderRecordWords])
	w.PutBits(h.DataOffset, 32)
	w.PutBits(uint32(h.IndexBits), headerBitsFieldWidth)
	for i := range 3 {
		w.PutBits(uint32(h.PositionBits[i]), headerBitsFieldWidth)
	}
	var tangentFlag uint32
	if h.HasTangents {
		tangentFlag = 1
	}
	w.PutBits(tangentFlag, headerFlagFieldWidth)
	w.PutBits(h.NumElements, headerCountFieldWidth)
	w.PutBits(h.IndexMin, 32)
	for i := range 3 {
		w.PutBits(uint32(h.PositionMin[i]), 32)
	}
	for i := range 3 {
		w.PutBits(uint32(h.TangentZBits[i]), headerBitsFieldWidth)
	}
	w.PutBits(0, headerRecordPadding)
	for i := range 3 {
		w.PutBits(uint32(h.TangentZMin[i]), 32)
	}
	w.Flush()
}

// GetBatchHeader deserializes one header record from src, which must hold at
// least HeaderRecordWords words.
func GetBatchHeader(src []uint32) BatchHeader {
	r := NewBitReader(src[:HeaderRecordWords], 0)
	var h BatchHeader
	h.DataOffset = r.GetBits(32)
	h.IndexBits = uint8(r.GetBits(headerBitsFieldWidth))
	for i := range 3 {
		h.PositionBits[i] = uint8(r.GetBits(headerBitsFieldWidth))
	}
	h.HasTangents = r.GetBits(headerFlagFieldWidth) != 0
	h.NumElements = r.GetBits(headerCountFieldWidth)
	h.IndexMin = r.GetBits(32)
	for i := range 3 {
		h.PositionMin[i] = int32(r.GetBits(32))
	}
	for i := range 3 {
		h.TangentZBits[i] = uint8(r.GetBits(headerBitsFieldWidth))
	}
	r.GetBits(headerRecordPadding)
	for i := range 3 {
		h.TangentZMin[i] = int32(r.GetBits(32))
	}
	return h
}
