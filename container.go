package morphpack

import (
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

// Container format.
//
// A container is the persisted envelope for one compressed stream:
//
//	magic(4) · version(4) · flags(4) · headerCount(4) · payloadWords(4) ·
//	header records (HeaderRecordWords words each) ·
//	payload (raw little-endian words, or a length-prefixed snappy block)
//
// All fixed fields are little-endian uint32. The header record and batch
// payload layouts inside the envelope are the codec's wire contracts and are
// unaffected by the framing.
const (
	containerMagic   = 0x4b50524d // "MRPK"
	containerVersion = 1

	containerFlagSnappy = 1 << 0

	containerFixedBytes = 20
)

// ErrInvalidContainer is returned when a container buffer is malformed.
var ErrInvalidContainer = errors.New("morphpack: invalid container")

// WriteContainer serializes a compressed stream to a self-describing byte
// buffer. With compress set, the payload block is snappy-compressed; header
// records are left uncompressed so the table stays O(1)-indexable inside the
// buffer.
func WriteContainer(headers []BatchHeader, payload []uint32, compress bool) []byte {
	headerWords := len(headers) * HeaderRecordWords
	out := make([]byte, containerFixedBytes+headerWords*4, containerFixedBytes+(headerWords+len(payload))*4)

	var flags uint32
	if compress {
		flags |= containerFlagSnappy
	}
	bo.PutUint32(out[0:], containerMagic)
	bo.PutUint32(out[4:], containerVersion)
	bo.PutUint32(out[8:], flags)
	bo.PutUint32(out[12:], uint32(len(headers)))
	bo.PutUint32(out[16:], uint32(len(payload)))

	record := make([]uint32, HeaderRecordWords)
	pos := containerFixedBytes
	for _, h := range headers {
		PutBatchHeader(record, h)
		for _, w := range record {
			bo.PutUint32(out[pos:], w)
			pos += 4
		}
	}

	raw := make([]byte, len(payload)*4)
	for i, w := range payload {
		bo.PutUint32(raw[i*4:], w)
	}
	if compress {
		block := snappy.Encode(nil, raw)
		var size [4]byte
		bo.PutUint32(size[:], uint32(len(block)))
		out = append(out, size[:]...)
		return append(out, block...)
	}
	return append(out, raw...)
}

// ReadContainer parses a container buffer back into its header table and
// payload, validating the stream before returning it so the result is safe
// for the trusting decode paths.
func ReadContainer(buf []byte) ([]BatchHeader, []uint32, error) {
	if len(buf) < containerFixedBytes {
		return nil, nil, fmt.Errorf("%w: buffer too small for fixed fields (need %d bytes, got %d)",
			ErrInvalidContainer, containerFixedBytes, len(buf))
	}
	if magic := bo.Uint32(buf[0:]); magic != containerMagic {
		return nil, nil, fmt.Errorf("%w: bad magic 0x%08x", ErrInvalidContainer, magic)
	}
	if version := bo.Uint32(buf[4:]); version != containerVersion {
		return nil, nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidContainer, version)
	}
	flags := bo.Uint32(buf[8:])
	headerCount := int(bo.Uint32(buf[12:]))
	payloadWords := int(bo.Uint32(buf[16:]))

	headerBytes := headerCount * HeaderRecordWords * 4
	pos := containerFixedBytes
	if len(buf) < pos+headerBytes {
		return nil, nil, fmt.Errorf("%w: truncated header table (need %d bytes, got %d)",
			ErrInvalidContainer, pos+headerBytes, len(buf))
	}
	headers := make([]BatchHeader, headerCount)
	record := make([]uint32, HeaderRecordWords)
	for i := range headers {
		for j := range record {
			record[j] = bo.Uint32(buf[pos:])
			pos += 4
		}
		headers[i] = GetBatchHeader(record)
	}

	raw := buf[pos:]
	if flags&containerFlagSnappy != 0 {
		if len(raw) < 4 {
			return nil, nil, fmt.Errorf("%w: missing compressed block length", ErrInvalidContainer)
		}
		blockLen := int(bo.Uint32(raw))
		raw = raw[4:]
		if len(raw) < blockLen {
			return nil, nil, fmt.Errorf("%w: truncated compressed block (need %d bytes, got %d)",
				ErrInvalidContainer, blockLen, len(raw))
		}
		decoded, err := snappy.Decode(nil, raw[:blockLen])
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidContainer, err)
		}
		raw = decoded
	}
	if len(raw) < payloadWords*4 {
		return nil, nil, fmt.Errorf("%w: truncated payload (need %d bytes, got %d)",
			ErrInvalidContainer, payloadWords*4, len(raw))
	}
	payload := make([]uint32, payloadWords)
	for i := range payload {
		payload[i] = bo.Uint32(raw[i*4:])
	}

	if err := ValidateStream(headers, payload); err != nil {
		return nil, nil, err
	}
	return headers, payload, nil
}
