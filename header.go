package fbvector

import (
	"encoding/binary"
)

// magic identifies an fbvector file and rejects foreign files (spec.md §3.1).
const magic uint32 = 0x46425643 // "FBVC"

// headerSize is the fixed, page-friendly size of the on-disk header
// (spec.md §3.1: "aligned to a page-friendly boundary"). Declared fields
// occupy the first headerFieldsSize bytes; the remainder is zero padding.
const headerSize = 4096

// headerFieldsSize is the byte width of the five declared uint32 fields,
// in declaration order, little-endian (spec.md §6.1).
const headerFieldsSize = 5 * 4

// header is the in-memory mirror of the on-disk header record.
type header struct {
	Magic          uint32
	ElementSize    uint32
	NumElements    uint32
	VectorChecksum uint32
	HeaderChecksum uint32
}

// encode writes h's declared fields into a headerSize-byte buffer, the rest
// zero, in the bit-exact layout spec.md §6.1 pins.
func (h header) encode() []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.ElementSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumElements)
	binary.LittleEndian.PutUint32(buf[12:16], h.VectorChecksum)
	binary.LittleEndian.PutUint32(buf[16:20], h.HeaderChecksum)
	return buf
}

// encodeFieldsInto writes h's declared fields into the first
// headerFieldsSize bytes of buf, leaving the rest of buf untouched. Used to
// keep a live mapping's header current without reallocating and rewriting
// the whole headerSize-byte padded record on every call.
func (h header) encodeFieldsInto(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.ElementSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumElements)
	binary.LittleEndian.PutUint32(buf[12:16], h.VectorChecksum)
	binary.LittleEndian.PutUint32(buf[16:20], h.HeaderChecksum)
}

// decodeHeader reads a header record back out of a headerSize-byte buffer.
func decodeHeader(buf []byte) header {
	return header{
		Magic:          binary.LittleEndian.Uint32(buf[0:4]),
		ElementSize:    binary.LittleEndian.Uint32(buf[4:8]),
		NumElements:    binary.LittleEndian.Uint32(buf[8:12]),
		VectorChecksum: binary.LittleEndian.Uint32(buf[12:16]),
		HeaderChecksum: binary.LittleEndian.Uint32(buf[16:20]),
	}
}

// computeHeaderChecksum returns the CRC32 (this package's raw-register
// variant, see crc.go) over every header field preceding HeaderChecksum
// itself (spec.md §3.1, I2).
func (h header) computeHeaderChecksum() uint32 {
	buf := make([]byte, headerFieldsSize-4)
	binary.LittleEndian.PutUint32(buf[0:4], h.Magic)
	binary.LittleEndian.PutUint32(buf[4:8], h.ElementSize)
	binary.LittleEndian.PutUint32(buf[8:12], h.NumElements)
	binary.LittleEndian.PutUint32(buf[12:16], h.VectorChecksum)
	return crcChecksum(buf)
}

// finalize recomputes and sets HeaderChecksum from the other fields.
func (h *header) finalize() {
	h.HeaderChecksum = h.computeHeaderChecksum()
}
