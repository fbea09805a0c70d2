package fbvector

import (
	"sync"

	crc32lib "github.com/klauspost/crc32"
)

// crcTable is the IEEE-802.3-polynomial table shared by every checksum
// operation in this package. klauspost/crc32 is a drop-in, SIMD-accelerated
// replacement for hash/crc32's table type, already present in the example
// pack via hupe1980-vecgo's object-storage stack.
var crcTable = crc32lib.MakeTable(crc32lib.IEEE)

// crcAppend folds bytes into state using the raw, uncomplemented register
// form this file format requires (CRC(∅) = 0, no initial/final XOR with
// 0xFFFFFFFF). Neither hash/crc32 nor klauspost/crc32 exposes this register
// convention directly — both bake the standard zlib complement into every
// exported Update/Checksum call — so the table-driven loop is written by
// hand here, against the table those packages build.
func crcAppend(state uint32, data []byte) uint32 {
	crc := state
	for _, b := range data {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}
	return crc
}

// crcChecksum is crcAppend(0, data): the checksum of data in isolation.
func crcChecksum(data []byte) uint32 {
	return crcAppend(0, data)
}

// crcShiftZeros returns crcAppend(state, zeros(n)) without allocating an
// n-byte buffer, by repeatedly folding in pooled zero-filled chunks. This
// backs combine/erasePrefix's "shift across n zero bytes" step.
func crcShiftZeros(state uint32, n uint32) uint32 {
	crc := state
	for n > 0 {
		chunk := zeroChunkPool.Get().([]byte)
		take := uint32(len(chunk))
		if take > n {
			take = n
		}
		crc = crcAppend(crc, chunk[:take])
		zeroChunkPool.Put(chunk)
		n -= take
	}
	return crc
}

const zeroChunkSize = 4096

var zeroChunkPool = sync.Pool{
	New: func() any {
		return make([]byte, zeroChunkSize)
	},
}

// crcCombine returns CRC(A||B) given a = CRC(A), b = CRC(B), and
// lenRight = |B|. Spec.md §4.1: shift a across lenRight zero bytes so it
// aligns with where A's contribution sits within A||B, then XOR with b.
func crcCombine(a, b uint32, lenRight uint32) uint32 {
	return crcShiftZeros(a, lenRight) ^ b
}

// crcErasePrefix returns CRC(B) given whole = CRC(A||B), prefix = CRC(A),
// and lenSuffix = |B|. Spec.md §4.1 names the prefix's length in the
// function's description, but the shift it describes ("left-shifting
// state_prefix across |B| zero bytes") operates on the suffix's length —
// that is the value this implementation takes.
func crcErasePrefix(whole, prefix uint32, lenSuffix uint32) uint32 {
	return whole ^ crcShiftZeros(prefix, lenSuffix)
}

// crcSpliceReplacement returns the new CRC of a buffer of total length
// total after replacing the bytes at [byteEnd-len(oldChunk), byteEnd) with
// newChunk in place (same length), given the CRC of the buffer before the
// edit. This is the positional-diff identity SPEC_FULL.md §4.1.1 relies on:
// CRC(new) = CRC(old) XOR shift(CRC(oldChunk XOR newChunk), total-byteEnd).
func crcSpliceReplacement(oldWhole uint32, oldChunk, newChunk []byte, byteEnd, total uint32) uint32 {
	delta := make([]byte, len(oldChunk))
	for i := range delta {
		delta[i] = oldChunk[i] ^ newChunk[i]
	}
	deltaCRC := crcChecksum(delta)
	tailLen := total - byteEnd
	return oldWhole ^ crcShiftZeros(deltaCRC, tailLen)
}
