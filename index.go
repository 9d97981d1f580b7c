package morphpack

import (
	"encoding/binary"

	"github.com/mhr3/streamvbyte"
)

var bo = binary.LittleEndian

// SeekIndex maps vertex indices to batches so a consumer can jump straight to
// the batch covering a vertex via the header's DataOffset instead of decoding
// the stream from the front. It stores each batch's first source index,
// StreamVByte-compressed, and decodes single entries on demand.
//
// A SeekIndex is immutable after BuildSeekIndex and safe for concurrent use.
type SeekIndex struct {
	data  []byte
	count int
}

// BuildSeekIndex builds the index for a compressed stream's header table.
// Because adjusted indices are non-decreasing within a batch, each header's
// IndexMin is exactly its batch's first source index, so the headers alone
// are enough.
func BuildSeekIndex(headers []BatchHeader) SeekIndex {
	if len(headers) == 0 {
		return SeekIndex{}
	}
	firsts := make([]uint32, len(headers))
	for i, h := range headers {
		firsts[i] = h.IndexMin
	}
	buf := make([]byte, streamvbyte.MaxEncodedLen(len(firsts)))
	data := streamvbyte.EncodeUint32(firsts, &streamvbyte.EncodeOptions[uint32]{
		Buffer: buf,
	})
	return SeekIndex{data: data, count: len(firsts)}
}

// Len returns the number of batches the index covers.
func (s SeekIndex) Len() int {
	return s.count
}

// FirstIndex returns the first source vertex index of the given batch. It
// decodes only that entry, not the whole table.
func (s SeekIndex) FirstIndex(batch int) uint32 {
	if batch < 0 || batch >= s.count {
		panic("morphpack: seek index batch out of range")
	}
	return svbDecodeOne(s.data, s.count, batch)
}

// FindBatch returns the index of the last batch whose first source index is
// <= vertexIndex — the only batch that can contain the vertex — or -1 when
// vertexIndex precedes the stream entirely. Batch first indices are strictly
// increasing across the stream, so a binary search suffices.
func (s SeekIndex) FindBatch(vertexIndex uint32) int {
	lo, hi := 0, s.count
	for lo < hi {
		mid := (lo + hi) / 2
		if s.FirstIndex(mid) <= vertexIndex {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1
}

// Decode materializes the full first-index table, mainly for diagnostics and
// tests.
func (s SeekIndex) Decode() []uint32 {
	if s.count == 0 {
		return nil
	}
	return streamvbyte.DecodeUint32(s.data, s.count, &streamvbyte.DecodeOptions[uint32]{
		Buffer: make([]uint32, s.count),
	})
}

// svbControlBlockSizeLUT is a precomputed lookup table for StreamVByte control
// byte sizes. Each control byte encodes lengths for 4 values (2 bits each,
// code+1 = byte length). Entry i = sum of byte lengths for all 4 values
// encoded in control byte i.
var svbControlBlockSizeLUT [256]uint8

func init() {
	for ctrl := range 256 {
		size := (ctrl & 0x03) + ((ctrl >> 2) & 0x03) + ((ctrl >> 4) & 0x03) + (ctrl >> 6) + 4
		svbControlBlockSizeLUT[ctrl] = uint8(size)
	}
}

// svbDecodeOne decodes a single value from StreamVByte data at the given
// index without decoding the entire stream. count is the total number of
// encoded values. Allocation-free, suitable for random access patterns.
func svbDecodeOne(svbData []byte, count, index int) uint32 {
	// StreamVByte format: control bytes first, then data bytes.
	// Control bytes: one per 4 values, each 2-bit code = byteLength-1.
	numControlBytes := (count + 3) >> 2
	controlBytes := svbData[:numControlBytes]
	dataBytes := svbData[numControlBytes:]

	blockIndex := index >> 2
	posInBlock := index & 0x03

	// Sum data sizes for all blocks before ours.
	dataOffset := 0
	for i := range blockIndex {
		dataOffset += int(svbControlBlockSizeLUT[controlBytes[i]])
	}

	// Decode the value at posInBlock within this block.
	ctrl := controlBytes[blockIndex]
	var value uint32
	for i := 0; i <= posInBlock; i++ {
		code := (ctrl >> (i * 2)) & 0x03
		byteLen := int(code) + 1
		if i == posInBlock {
			value = svbReadValue(dataBytes[dataOffset:], byteLen)
		}
		dataOffset += byteLen
	}

	return value
}

// svbReadValue reads a variable-length encoded value (1-4 bytes).
func svbReadValue(data []byte, byteLen int) uint32 {
	switch byteLen {
	case 1:
		return uint32(data[0])
	case 2:
		return uint32(bo.Uint16(data))
	case 3:
		return uint32(data[0]) | uint32(data[1])<<8 | uint32(data[2])<<16
	case 4:
		return bo.Uint32(data)
	}
	return 0
}
