// Package fbvector provides a persistent, file-backed, fixed-element vector:
// a random-access array whose contents live in a file mapped into memory,
// with a self-describing header and a CRC32 checksum over the element
// region that is maintained incrementally across localized edits.
//
// The package is organised into several files, in the teacher's style:
//
//	options.go   – strategies & tunables
//	errors.go    – typed error kinds
//	crc.go       – pure CRC32 engine (append / combine / erase-prefix)
//	header.go    – on-disk header encode/decode/validate
//	region.go    – memory-mapped file region
//	vector.go    – Vector[T]: open/create, get/set/truncate/array
//	checksum.go  – dirty tracker & ComputeChecksum
//	lifecycle.go – PersistToDisk, Close, Delete
//	metrics.go   – optional Prometheus counters
//	fsutil.go    – small filesystem helpers (exists, size)
//
// Multi-writer concurrency, cross-process coordination, variable-size
// records, automatic compaction, and encryption are explicitly out of
// scope: a Vector is not internally synchronized, and callers must
// serialize their own mutations.
package fbvector
