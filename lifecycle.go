package fbvector

import "os"

// PersistToDisk implements spec.md §4.3.8: flush the mapping (header and
// element region) to stable storage. Establishes the happens-before edge
// spec.md §5 promises between these writes and any later successful open
// of the same path.
//
// Set and TruncateTo already keep v.hdr synced into the mapping as they
// mutate NumElements (see syncHeader's doc comment in checksum.go), so this
// call is normally a no-op write; it is repeated here anyway so a direct
// call to PersistToDisk never depends on that having happened.
//
// PersistToDisk does not recompute the checksum. Persisting after a Set or
// TruncateTo with no ComputeChecksum in between writes the stale
// vector_checksum, and the next OpenOrCreate of path fails with
// KindInternal ("body corrupt") whenever the persisted element region no
// longer matches it.
func (v *Vector[T]) PersistToDisk() error {
	if v.opts.Strategy == StrategyReadOnly {
		return invalidArgf("Vector.PersistToDisk", "cannot persist a read-only vector")
	}
	v.syncHeader()
	return v.region.flush(0, v.region.length())
}

// Close implements the "drop the handle" half of spec.md §3.4: flushes (for
// a manual-sync strategy, matching the teacher's Flush-before-Close
// ordering in flush_close.go) and releases the mapping, but never removes
// the file. Use Delete for that.
func (v *Vector[T]) Close() error {
	if v.opts.Strategy == StrategyReadWriteManualSync {
		if err := v.region.flush(0, v.region.length()); err != nil {
			return err
		}
	}
	return v.region.close()
}

// Delete implements spec.md §4.3.9: remove the file, succeeding even if it
// is already absent. It does not invalidate any live handle for path;
// ordering Close before Delete is the caller's responsibility.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return internalf("Delete", err, "remove backing file")
	}
	return nil
}
