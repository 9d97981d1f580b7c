package morphpack

// IterationToken is an opaque resume cursor for element-at-a-time decoding.
// The zero token starts at the first element; TokenDone marks the position
// past the last one. Tokens are only meaningful for the stream that produced
// them within one decode session — they are not a wire format and must never
// be persisted or handed to a different decoder.
//
// Internally a token packs the absolute payload bit offset in its top 32
// bits, the batch index in the next 26, and the element's position within
// the batch in the low 6.
type IterationToken uint64

// TokenDone is the end-of-stream sentinel. DecodeNext returns it alongside
// the final element; the call after that reports no more items.
const TokenDone = ^IterationToken(0)

const (
	tokenBatchBits = 26
	tokenLocalBits = 6
)

func makeToken(bitOffset, batch, local uint32) IterationToken {
	return IterationToken(bitOffset)<<32 |
		IterationToken(batch)<<tokenLocalBits |
		IterationToken(local)
}

func (t IterationToken) bitOffset() uint32 { return uint32(t >> 32) }

func (t IterationToken) batchIndex() uint32 {
	return uint32(t>>tokenLocalBits) & (1<<tokenBatchBits - 1)
}

func (t IterationToken) localIndex() uint32 { return uint32(t) & (1<<tokenLocalBits - 1) }

// DecodeNext decodes the single element the token points at and returns it
// with the token for the element after it. It reports false once the stream
// is exhausted. Repeated calls starting from the zero token yield exactly the
// sequence Decode produces, one element per call, and iteration can stop and
// resume mid-batch at any returned token.
//
// Only the zero token and tokens previously returned over the same
// (headers, payload) pair are valid inputs; the decoder is strictly forward
// and not seekable from externally constructed tokens.
func DecodeNext(headers []BatchHeader, payload []uint32, posPrecision, tanPrecision float32, token IterationToken) (VertexDelta, IterationToken, bool) {
	if token == TokenDone {
		return VertexDelta{}, TokenDone, false
	}
	batch := token.batchIndex()
	if batch >= uint32(len(headers)) {
		return VertexDelta{}, TokenDone, false
	}

	h := headers[batch]
	local := token.localIndex()
	r := NewBitReader(payload, token.bitOffset())
	q := readElement(r, h, local)
	d := Dequantize(q, h.HasTangents, posPrecision, tanPrecision)

	offset := r.GetOffset()
	local++
	if local == h.NumElements {
		// Batches end word-aligned; the next one starts on the boundary.
		batch++
		local = 0
		offset = alignBitOffset(offset)
	}
	next := TokenDone
	if batch < uint32(len(headers)) {
		next = makeToken(offset, batch, local)
	}
	return d, next, true
}

// StreamReader is a stateful convenience wrapper around DecodeNext. It holds
// one token and no decode buffer, so keeping many readers over large streams
// stays cheap. A StreamReader is not safe for concurrent use; create one
// reader per goroutine over the same stream.
type StreamReader struct {
	headers      []BatchHeader
	payload      []uint32
	posPrecision float32
	tanPrecision float32
	token        IterationToken
	pos          int
	total        int
	loaded       bool
}

// NewStreamReader creates an empty StreamReader that must be loaded with Load
// before use.
func NewStreamReader() *StreamReader {
	return &StreamReader{}
}

// Load validates the stream and resets the reader to its first element. It
// can be called again to reuse the reader for another stream.
func (r *StreamReader) Load(headers []BatchHeader, payload []uint32, posPrecision, tanPrecision float32) error {
	if err := ValidateStream(headers, payload); err != nil {
		return err
	}
	total := 0
	for _, h := range headers {
		total += int(h.NumElements)
	}
	r.headers = headers
	r.payload = payload
	r.posPrecision = posPrecision
	r.tanPrecision = tanPrecision
	r.token = 0
	r.pos = 0
	r.total = total
	r.loaded = true
	return nil
}

// IsLoaded returns whether the reader has been loaded with a stream.
func (r *StreamReader) IsLoaded() bool {
	return r.loaded
}

// Len returns the total number of deltas in the stream.
func (r *StreamReader) Len() int {
	return r.total
}

// Pos returns the number of deltas consumed so far.
func (r *StreamReader) Pos() int {
	return r.pos
}

// Reset rewinds the reader to the first element.
func (r *StreamReader) Reset() {
	r.token = 0
	r.pos = 0
}

// Next returns the next delta in source index order, or false when the
// stream is exhausted or the reader is not loaded.
func (r *StreamReader) Next() (VertexDelta, bool) {
	if !r.loaded {
		return VertexDelta{}, false
	}
	d, next, ok := DecodeNext(r.headers, r.payload, r.posPrecision, r.tanPrecision, r.token)
	if !ok {
		return VertexDelta{}, false
	}
	r.token = next
	r.pos++
	return d, true
}
