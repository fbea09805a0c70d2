package fbvector

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newByteVector(t *testing.T) (*Vector[byte], string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vector.fbv")
	v, err := OpenOrCreate[byte](path, DefaultOptions())
	require.NoError(t, err)
	t.Cleanup(func() { v.Close() })
	return v, path
}

func writeString(t *testing.T, v *Vector[byte], start int, s string) {
	t.Helper()
	for i, b := range []byte(s) {
		require.NoError(t, v.Set(start+i, b))
	}
}

func readString(t *testing.T, v *Vector[byte], start, n int) string {
	t.Helper()
	buf := make([]byte, n)
	for i := range buf {
		b, err := v.Get(start + i)
		require.NoError(t, err)
		buf[i] = b
	}
	return string(buf)
}

// S1. Create empty.
func TestS1CreateEmpty(t *testing.T) {
	v, _ := newByteVector(t)
	require.Equal(t, 0, v.NumElements())
	crc, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, uint32(0), crc)
}

// S2. Small insert.
func TestS2SmallInsert(t *testing.T) {
	v, path := newByteVector(t)
	writeString(t, v, 0, "abcde")

	require.Equal(t, 5, v.NumElements())
	crc, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, uint32(1134899064), crc)

	require.NoError(t, v.PersistToDisk())
	require.NoError(t, v.Close())

	reopened, err := OpenOrCreate[byte](path, DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, "abcde", readString(t, reopened, 0, 5))
}

// S3. Corruption detection.
func TestS3CorruptionDetection(t *testing.T) {
	v, path := newByteVector(t)
	writeString(t, v, 0, "abcde")
	_, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.NoError(t, v.PersistToDisk())
	require.NoError(t, v.Close())

	corruptVectorChecksum(t, path, 123)

	_, err = OpenOrCreate[byte](path, DefaultOptions())
	require.Error(t, err)
	require.True(t, Is(err, KindInternal))

	corruptVectorChecksum(t, path, 1134899064)

	reopened, err := OpenOrCreate[byte](path, DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, "abcde", readString(t, reopened, 0, 5))
}

func corruptVectorChecksum(t *testing.T, path string, value uint32) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	require.NoError(t, err)
	defer f.Close()

	buf := make([]byte, headerSize)
	_, err = f.ReadAt(buf, 0)
	require.NoError(t, err)
	hdr := decodeHeader(buf)
	hdr.VectorChecksum = value
	hdr.finalize()
	_, err = f.WriteAt(hdr.encode(), 0)
	require.NoError(t, err)
}

// S4. Growth and bounds.
func TestS4GrowthAndBounds(t *testing.T) {
	v, path := newByteVector(t)
	start := maxNumElements - 13
	writeString(t, v, start, "abcde")

	crc, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, uint32(1134899064), crc)

	require.NoError(t, v.PersistToDisk())
	require.NoError(t, v.Close())

	reopened, err := OpenOrCreate[byte](path, DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, "abcde", readString(t, reopened, start, 5))

	require.Error(t, reopened.Set(maxNumElements+11, 'a'))
	require.True(t, Is(reopened.Set(maxNumElements+11, 'a'), KindOutOfRange))
	require.True(t, Is(reopened.Set(-1, 'a'), KindOutOfRange))
}

// S5. Chunked growth (tracked via element-region capacity; see
// capacityBytes's doc comment for why this, not a raw os.Stat of
// the backing file, is the quantity the seed scenario pins).
func TestS5ChunkedGrowth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vector.fbv")
	v, err := OpenOrCreate[int32](path, DefaultOptions())
	require.NoError(t, err)
	defer v.Close()

	require.EqualValues(t, 0, v.capacityBytes())

	require.NoError(t, v.Set(0, 1))
	require.EqualValues(t, growElements*4, v.capacityBytes())

	require.NoError(t, v.Set(growElements+2, 7))
	require.EqualValues(t, 2*growElements*4, v.capacityBytes())
}

// S6. Incremental overlap: fill, checksum, then repeatedly overwrite
// overlapping and non-overlapping windows, checking agreement against a
// fresh full scan at every call.
func TestS6IncrementalOverlap(t *testing.T) {
	v, _ := newByteVector(t)
	for i := 0; i < 1000; i++ {
		require.NoError(t, v.Set(i, 'a'))
	}
	crc, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, uint32(2620640643), crc)

	for _, stride := range []int{1, 3} {
		for i := 0; i+3 <= 1000; i += stride {
			require.NoError(t, v.Set(i, 'b'))
			require.NoError(t, v.Set(i+1, 'b'))
			require.NoError(t, v.Set(i+2, 'b'))
			if i%37 == 0 {
				got, err := v.ComputeChecksum()
				require.NoError(t, err)
				require.Equal(t, crcChecksum(arrayBytes(v)), got)
			}
		}
	}
}

func arrayBytes(v *Vector[byte]) []byte {
	return v.Array()
}

// S7. Truncate and checksum-lag.
func TestS7TruncateChecksumLag(t *testing.T) {
	v, _ := newByteVector(t)
	writeString(t, v, 0, "AZ")
	crc, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, uint32(1658635950), crc)

	require.NoError(t, v.Set(1, 'J'))
	require.NoError(t, v.TruncateTo(1))

	crc, err = v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, uint32(31158534), crc)

	require.NoError(t, v.TruncateTo(0))
	crc2, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, crc, crc2)

	require.True(t, Is(v.TruncateTo(100), KindOutOfRange))
	require.True(t, Is(v.TruncateTo(-1), KindOutOfRange))
}

// P1. Round-trip across drop and reopen.
func TestP1RoundTrip(t *testing.T) {
	v, path := newByteVector(t)
	want := []byte("the quick brown fox")
	for i, b := range want {
		require.NoError(t, v.Set(i, b))
	}
	_, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.NoError(t, v.PersistToDisk())
	require.NoError(t, v.Close())

	reopened, err := OpenOrCreate[byte](path, DefaultOptions())
	require.NoError(t, err)
	defer reopened.Close()
	require.Equal(t, string(want), readString(t, reopened, 0, len(want)))
}

// P2 & P8. Checksum agreement after arbitrary interleavings of Set and
// ComputeChecksum equals a single full scan of the final element region.
func TestP2AndP8ChecksumAgreement(t *testing.T) {
	v, _ := newByteVector(t)
	r := rand.New(rand.NewSource(42))
	for step := 0; step < 500; step++ {
		idx := r.Intn(300)
		require.NoError(t, v.Set(idx, byte('a'+r.Intn(26))))
		if r.Intn(5) == 0 {
			got, err := v.ComputeChecksum()
			require.NoError(t, err)
			require.Equal(t, crcChecksum(v.Array()), got)
		}
	}
	finalCRC, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, crcChecksum(v.Array()), finalCRC)
}

// P3. Checksum determinism across different mutation orders reaching the
// same logical state.
func TestP3ChecksumDeterminism(t *testing.T) {
	va, _ := newByteVector(t)
	vb, _ := newByteVector(t)

	for i, b := range []byte("hello") {
		require.NoError(t, va.Set(i, b))
	}
	order := []int{4, 2, 0, 3, 1}
	data := []byte("hello")
	for _, i := range order {
		require.NoError(t, vb.Set(i, data[i]))
	}

	crcA, err := va.ComputeChecksum()
	require.NoError(t, err)
	crcB, err := vb.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, crcA, crcB)
}

// P5. Bounds totality: Get/Set/TruncateTo never panic, always return
// out-of-range for illegal arguments.
func TestP5BoundsTotality(t *testing.T) {
	v, _ := newByteVector(t)
	require.NotPanics(t, func() {
		_, err := v.Get(0)
		require.True(t, Is(err, KindOutOfRange))
	})
	require.NotPanics(t, func() {
		_, err := v.Get(-5)
		require.True(t, Is(err, KindOutOfRange))
	})
	require.NotPanics(t, func() {
		require.True(t, Is(v.Set(-1, 'x'), KindOutOfRange))
	})
	require.NotPanics(t, func() {
		require.True(t, Is(v.Set(maxNumElements, 'x'), KindOutOfRange))
	})
	require.NotPanics(t, func() {
		require.True(t, Is(v.TruncateTo(-1), KindOutOfRange))
	})
}

// P6. Growth monotonicity: capacity after any Set is >= capacity before,
// and always a whole multiple of grow_elements*element_size.
func TestP6GrowthMonotonicity(t *testing.T) {
	v, _ := newByteVector(t)
	prev := v.capacityBytes()
	for i := 0; i < growElements*2+7; i += 997 {
		require.NoError(t, v.Set(i, 'z'))
		cur := v.capacityBytes()
		require.GreaterOrEqual(t, cur, prev)
		require.EqualValues(t, 0, cur%growElements)
		prev = cur
	}
}

// P7. Truncate does not touch checksum, for any n, absent an intervening
// ComputeChecksum call.
func TestP7TruncateDoesNotTouchChecksum(t *testing.T) {
	v, _ := newByteVector(t)
	writeString(t, v, 0, "truncateme")
	before, err := v.ComputeChecksum()
	require.NoError(t, err)

	require.NoError(t, v.TruncateTo(3))
	afterTruncate, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.Equal(t, before, afterTruncate)
}

// P4. Reopen rejects tampering: flipping a byte in the element region
// causes the next open to fail internal.
func TestP4ReopenRejectsBodyTampering(t *testing.T) {
	v, path := newByteVector(t)
	writeString(t, v, 0, "abcde")
	_, err := v.ComputeChecksum()
	require.NoError(t, err)
	require.NoError(t, v.PersistToDisk())
	require.NoError(t, v.Close())

	f, err := os.OpenFile(path, os.O_RDWR, 0o666)
	require.NoError(t, err)
	_, err = f.WriteAt([]byte{'X'}, headerSize)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = OpenOrCreate[byte](path, DefaultOptions())
	require.Error(t, err)
	require.True(t, Is(err, KindInternal))
}
