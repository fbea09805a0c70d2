package fbvector

import (
	"os"

	"golang.org/x/sys/unix"
)

// region owns one open file and the mmap covering its entire current
// length, adapted from the teacher's shard (file/mmap/size fields) and the
// mmap-opening code in its constructor — narrowed from "one of several
// shards" to "the one region a Vector owns" per spec.md's single-file data
// model (§3.1).
type region struct {
	file     *os.File
	data     []byte
	strategy Strategy
}

func mmapProt(strategy Strategy) int {
	if strategy == StrategyReadOnly {
		return unix.PROT_READ
	}
	return unix.PROT_READ | unix.PROT_WRITE
}

// openRegion opens (or creates, if create is true) path, truncates
// it to length if it is shorter, and maps the whole file.
func openRegion(path string, strategy Strategy, length int64, create bool) (*region, error) {
	flags := os.O_RDWR
	if strategy == StrategyReadOnly {
		flags = os.O_RDONLY
	}
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o666)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFoundf("region.open", err)
		}
		return nil, internalf("region.open", err, "open backing file")
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, internalf("region.open", err, "stat backing file")
	}
	if info.Size() < length {
		if err := f.Truncate(length); err != nil {
			f.Close()
			return nil, internalf("region.open", err, "grow backing file")
		}
	} else {
		length = info.Size()
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(length), mmapProt(strategy), unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, internalf("region.open", err, "mmap backing file")
	}

	return &region{file: f, data: data, strategy: strategy}, nil
}

// base returns the current mapped bytes. Invalidated by the next remap.
func (r *region) base() []byte { return r.data }

// length returns the current mapped length in bytes.
func (r *region) length() int { return len(r.data) }

// remap unmaps, extends the file to newLength, and maps again. mremap is
// Linux-only in golang.org/x/sys/unix; unmap-truncate-mmap is portable
// across the wider Unix family this package targets.
func (r *region) remap(newLength int64) error {
	if err := unix.Munmap(r.data); err != nil {
		return internalf("region.remap", err, "unmap before grow")
	}
	r.data = nil
	if err := r.file.Truncate(newLength); err != nil {
		return internalf("region.remap", err, "truncate backing file")
	}
	data, err := unix.Mmap(int(r.file.Fd()), 0, int(newLength), mmapProt(r.strategy), unix.MAP_SHARED)
	if err != nil {
		return internalf("region.remap", err, "remap backing file")
	}
	r.data = data
	return nil
}

// flush is a durability barrier over [offset, offset+length).
func (r *region) flush(offset, length int) error {
	if r.strategy == StrategyReadOnly {
		return invalidArgf("region.flush", "cannot flush a read-only region")
	}
	end := offset + length
	if end > len(r.data) {
		end = len(r.data)
	}
	if offset >= end {
		return nil
	}
	if err := unix.Msync(r.data[offset:end], unix.MS_SYNC); err != nil {
		return internalf("region.flush", err, "msync")
	}
	return nil
}

// unmap releases the mapping; the region must not be used afterward.
func (r *region) unmap() error {
	if r.data == nil {
		return nil
	}
	err := unix.Munmap(r.data)
	r.data = nil
	if err != nil {
		return internalf("region.unmap", err, "munmap")
	}
	return nil
}

// close unmaps and closes the backing file descriptor.
func (r *region) close() error {
	unmapErr := r.unmap()
	closeErr := r.file.Close()
	if unmapErr != nil {
		return unmapErr
	}
	if closeErr != nil {
		return internalf("region.close", closeErr, "close backing file")
	}
	return nil
}
