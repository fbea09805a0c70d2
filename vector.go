package fbvector

import (
	"unsafe"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"
)

// Vector is a fixed-element, file-backed, memory-mapped array of T. T must
// be a fixed-layout type with no pointers or slices, the same constraint
// the original FileBackedVector<T> template places on its element type —
// this package does not enforce that constraint at compile time beyond
// what unsafe.Sizeof already requires (a concrete, addressable size).
//
// A Vector is not safe for concurrent use; see SPEC_FULL.md §5.
type Vector[T any] struct {
	path   string
	opts   Options
	region *region
	hdr    header

	// checksum bookkeeping, see SPEC_FULL.md §4.1.1.
	checksummedLen uint32 // P: prefix length the running CRC agrees with
	runningCRC     uint32 // CRC of [0, checksummedLen)
	dirtyFrom      uint32 // overlap dirty range, widened to union
	dirtyTo        uint32
	hasDirty       bool

	// needsRecompute is set by Set and cleared by ComputeChecksum. TruncateTo
	// never touches it: a ComputeChecksum call with no intervening Set must
	// return the cached value unchanged (spec.md §9's truncate/checksum-lag
	// note, seed scenario S7's final truncate_to(0) step).
	needsRecompute bool
}

// elementSize returns unsafe.Sizeof of T's zero value.
func elementSize[T any]() uint32 {
	var zero T
	return uint32(unsafe.Sizeof(zero))
}

// capacityElements returns how many whole elements the current mapping has
// room for past the header. A mapping shorter than the header itself — left
// behind by a remap that unmapped the old region but failed before mapping
// the new one — has room for zero, not a huge wrapped value: the subtraction
// below must never underflow, since that would make Set skip grow() and
// index straight into a too-short (possibly nil) mapping.
func (v *Vector[T]) capacityElements() uint32 {
	length := v.region.length()
	if length < headerSize {
		return 0
	}
	bodyLen := uint32(length) - headerSize
	return bodyLen / v.hdr.ElementSize
}

// fileLengthForElements returns the whole-chunk-rounded physical file
// length needed to hold numElements elements (spec.md §4.3.3, §4.3.10). A
// freshly created vector holding zero elements needs no chunk at all — its
// file is exactly headerSize bytes (seed scenario S5: "initial file size
// equals header size"); growth into the first chunk happens lazily, on the
// first Set, not at creation.
func fileLengthForElements(numElements, elementSize uint32) int64 {
	if numElements == 0 {
		return int64(headerSize)
	}
	chunks := (numElements + growElements - 1) / growElements
	return int64(headerSize) + int64(chunks)*int64(growElements)*int64(elementSize)
}

// capacityBytes returns the element-region capacity in bytes: the portion
// of the file past the header, growing in whole chunk-units. Seed scenario
// S5 states growth-driven file sizes in terms of this quantity (e.g.
// "grow_elements*4" after one Set, with no header term), mirroring the
// original FileBackedVector's separate disk-usage accessor rather than a
// raw os.Stat of the backing file.
func (v *Vector[T]) capacityBytes() int64 {
	return int64(v.region.length()) - int64(headerSize)
}

// OpenOrCreate implements spec.md §4.3.1: create-with-fresh-header if path
// does not exist, else map and validate magic/element-size/checksums.
func OpenOrCreate[T any](path string, opts Options) (*Vector[T], error) {
	if !opts.Strategy.valid() {
		return nil, invalidArgf("OpenOrCreate", "invalid strategy %v", opts.Strategy)
	}
	elemSize := elementSize[T]()
	if elemSize == 0 {
		return nil, invalidArgf("OpenOrCreate", "element type has zero size")
	}

	exists, err := fileExists(path)
	if err != nil {
		return nil, internalf("OpenOrCreate", err, "stat path")
	}

	if !exists {
		return createVector[T](path, opts, elemSize)
	}
	return openExistingVector[T](path, opts, elemSize)
}

func createVector[T any](path string, opts Options, elemSize uint32) (*Vector[T], error) {
	if opts.Strategy == StrategyReadOnly {
		return nil, invalidArgf("OpenOrCreate", "cannot create %s under a read-only strategy", path)
	}
	initialLength := fileLengthForElements(0, elemSize)
	reg, err := openRegion(path, opts.Strategy, initialLength, true)
	if err != nil {
		return nil, err
	}

	hdr := header{Magic: magic, ElementSize: elemSize, NumElements: 0, VectorChecksum: 0}
	hdr.finalize()
	copy(reg.base()[:headerSize], hdr.encode())

	opts.logger().Info("fbvector: created",
		zap.String("path", path),
		zap.String("size", humanize.Bytes(uint64(initialLength))),
	)

	return &Vector[T]{
		path:           path,
		opts:           opts,
		region:         reg,
		hdr:            hdr,
		checksummedLen: 0,
		runningCRC:     0,
	}, nil
}

func openExistingVector[T any](path string, opts Options, elemSize uint32) (*Vector[T], error) {
	info, err := statSize(path)
	if err != nil {
		return nil, internalf("OpenOrCreate", err, "stat existing file")
	}
	reg, err := openRegion(path, opts.Strategy, info, false)
	if err != nil {
		return nil, err
	}

	hdr := decodeHeader(reg.base()[:headerSize])

	if hdr.HeaderChecksum != hdr.computeHeaderChecksum() {
		reg.close()
		opts.Metrics.corruption()
		opts.logger().Warn("fbvector: header checksum mismatch", zap.String("path", path))
		return nil, internalf("OpenOrCreate", errCorrupt, "header corrupt")
	}
	if hdr.Magic != magic {
		reg.close()
		opts.Metrics.corruption()
		opts.logger().Warn("fbvector: wrong magic", zap.String("path", path))
		return nil, internalf("OpenOrCreate", errCorrupt, "wrong magic")
	}
	if hdr.ElementSize != elemSize {
		reg.close()
		opts.logger().Warn("fbvector: element size mismatch",
			zap.String("path", path), zap.Uint32("want", elemSize), zap.Uint32("have", hdr.ElementSize))
		return nil, internalf("OpenOrCreate", errElementSize, "element size mismatch")
	}

	bodyLen := hdr.NumElements * hdr.ElementSize
	body := reg.base()[headerSize : headerSize+bodyLen]
	if crcChecksum(body) != hdr.VectorChecksum {
		reg.close()
		opts.Metrics.corruption()
		opts.logger().Warn("fbvector: body checksum mismatch", zap.String("path", path))
		return nil, internalf("OpenOrCreate", errCorrupt, "body corrupt")
	}

	return &Vector[T]{
		path:           path,
		opts:           opts,
		region:         reg,
		hdr:            hdr,
		checksummedLen: bodyLen,
		runningCRC:     hdr.VectorChecksum,
	}, nil
}

// Get returns the element at index i. The returned value is copied out of
// the mapping; it is not invalidated by later growth (spec.md §4.3.2 notes
// the *reference* form is invalidated by remap — this package returns by
// value instead, sidestepping that hazard entirely).
func (v *Vector[T]) Get(i int) (T, error) {
	var zero T
	if i < 0 || uint32(i) >= v.hdr.NumElements {
		return zero, outOfRangef("Vector.Get", "index %d out of range [0, %d)", i, v.hdr.NumElements)
	}
	off := headerSize + i*int(v.hdr.ElementSize)
	if off+int(v.hdr.ElementSize) > v.region.length() {
		return zero, internalf("Vector.Get", errMappingUnavailable, "read element")
	}
	return v.elementAt(uint32(i)), nil
}

func (v *Vector[T]) elementAt(i uint32) T {
	off := headerSize + int(i)*int(v.hdr.ElementSize)
	return *(*T)(unsafe.Pointer(&v.region.base()[off]))
}

// Set implements spec.md §4.3.3: bounds-check, grow-if-needed, write, then
// update num_elements and the dirty tracker / incremental checksum state.
func (v *Vector[T]) Set(i int, value T) error {
	if v.opts.Strategy == StrategyReadOnly {
		return invalidArgf("Vector.Set", "cannot write under a read-only strategy")
	}
	if i < 0 || uint32(i) >= maxNumElements {
		return outOfRangef("Vector.Set", "index %d out of range [0, %d)", i, maxNumElements)
	}
	idx := uint32(i)

	if idx >= v.capacityElements() {
		if err := v.grow(idx); err != nil {
			return err
		}
	}

	elemSize := v.hdr.ElementSize
	byteStart := idx * elemSize
	byteEnd := byteStart + elemSize
	off := headerSize + int(byteStart)

	if off+int(elemSize) > v.region.length() {
		return internalf("Vector.Set", errMappingUnavailable, "write element")
	}

	newBytes := unsafe.Slice((*byte)(unsafe.Pointer(&value)), elemSize)
	v.applyDirtyEdit(byteStart, byteEnd, newBytes)

	*(*T)(unsafe.Pointer(&v.region.base()[off])) = value

	if idx+1 > v.hdr.NumElements {
		v.hdr.NumElements = idx + 1
	}
	v.needsRecompute = true
	v.syncHeader()
	return nil
}

// applyDirtyEdit folds an overlap edit into runningCRC immediately, reading
// the pre-edit bytes from the mapping before they're overwritten, per
// SPEC_FULL.md §4.1.1. The append portion (bytes past the last checksummed
// prefix) needs no bookkeeping here: ComputeChecksum re-derives it from
// v.hdr.NumElements at call time, not from a running watermark. Must be
// called with v.region.base() still reflecting the *old* contents at
// [byteStart, byteEnd).
func (v *Vector[T]) applyDirtyEdit(byteStart, byteEnd uint32, newChunk []byte) {
	p := v.checksummedLen

	overlapEnd := byteEnd
	if overlapEnd > p {
		overlapEnd = p
	}
	if byteStart < overlapEnd {
		off := headerSize + int(byteStart)
		oldChunk := make([]byte, overlapEnd-byteStart)
		copy(oldChunk, v.region.base()[off:off+len(oldChunk)])
		v.runningCRC = crcSpliceReplacement(v.runningCRC, oldChunk, newChunk[:len(oldChunk)], overlapEnd, p)
		v.widenDirty(byteStart, overlapEnd)
	}
}

func (v *Vector[T]) widenDirty(from, to uint32) {
	if !v.hasDirty {
		v.dirtyFrom, v.dirtyTo, v.hasDirty = from, to, true
		return
	}
	if from < v.dirtyFrom {
		v.dirtyFrom = from
	}
	if to > v.dirtyTo {
		v.dirtyTo = to
	}
}

// grow extends the backing file/mapping so index idx is addressable.
func (v *Vector[T]) grow(idx uint32) error {
	if idx >= maxNumElements {
		return outOfRangef("Vector.Set", "index %d exceeds max_num_elements %d", idx, maxNumElements)
	}
	newLength := fileLengthForElements(idx+1, v.hdr.ElementSize)
	if err := v.region.remap(newLength); err != nil {
		return err
	}
	v.opts.Metrics.growth()
	v.opts.logger().Info("fbvector: grew",
		zap.String("path", v.path),
		zap.String("size", humanize.Bytes(uint64(newLength))),
	)
	return nil
}

// Array returns a slice viewing the element region. It is invalidated by
// the next Set that triggers growth; callers must re-derive it afterward.
// Returns nil if the mapping is currently shorter than num_elements would
// need — the transient state a failed grow leaves the region in — rather
// than indexing past the end of a too-short mapping.
func (v *Vector[T]) Array() []T {
	n := v.hdr.NumElements
	if n == 0 || uint32(v.region.length()) < headerSize+n*v.hdr.ElementSize {
		return nil
	}
	base := unsafe.Pointer(&v.region.base()[headerSize])
	return unsafe.Slice((*T)(base), n)
}

// NumElements returns the current logical length.
func (v *Vector[T]) NumElements() int { return int(v.hdr.NumElements) }

// TruncateTo implements spec.md §4.3.6: only num_elements changes, which is
// immediately synced into the mapped header (mirroring Set, see syncHeader's
// doc comment) so the new length survives a Close with no PersistToDisk.
// needsRecompute is deliberately left untouched here — a ComputeChecksum
// call with no intervening Set must return the cached value unchanged
// (spec.md §9 "Open question", verified by seed scenario S7's final
// truncate_to(0) step and property P7). The next ComputeChecksum that *is*
// triggered by a later Set will bound its rescan to the post-truncate
// NumElements, not to any stale high-water mark.
func (v *Vector[T]) TruncateTo(newLen int) error {
	if v.opts.Strategy == StrategyReadOnly {
		return invalidArgf("Vector.TruncateTo", "cannot truncate under a read-only strategy")
	}
	if newLen < 0 || uint32(newLen) > v.hdr.NumElements {
		return outOfRangef("Vector.TruncateTo", "new length %d out of range [0, %d]", newLen, v.hdr.NumElements)
	}
	v.hdr.NumElements = uint32(newLen)
	v.syncHeader()
	return nil
}
