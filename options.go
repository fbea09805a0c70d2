package fbvector

import "go.uber.org/zap"

// Strategy selects the memory-mapping access mode a Vector opens its
// backing file under (spec.md §4.2), named after
// icing::MemoryMappedFile::Strategy in original_source/.
type Strategy int

const (
	// StrategyReadOnly maps PROT_READ only; Set/TruncateTo/PersistToDisk
	// fail with KindInvalidArgument.
	StrategyReadOnly Strategy = iota
	// StrategyReadWriteManualSync maps PROT_READ|PROT_WRITE; durability
	// requires an explicit PersistToDisk call, or Close, which flushes under
	// this strategy.
	StrategyReadWriteManualSync
	// StrategyReadWriteAutoSync maps PROT_READ|PROT_WRITE and additionally
	// lets the OS write pages back opportunistically; PersistToDisk still
	// issues an explicit msync as a durability barrier before returning.
	StrategyReadWriteAutoSync
)

func (s Strategy) String() string {
	switch s {
	case StrategyReadOnly:
		return "read-only"
	case StrategyReadWriteManualSync:
		return "read-write-manual-sync"
	case StrategyReadWriteAutoSync:
		return "read-write-auto-sync"
	default:
		return "unknown"
	}
}

func (s Strategy) valid() bool {
	return s == StrategyReadOnly || s == StrategyReadWriteManualSync || s == StrategyReadWriteAutoSync
}

// Growth/coverage tunables (spec.md §6.3).
const (
	// growElements is the whole-chunk unit file growth proceeds in.
	growElements = 1 << 14
	// maxNumElements is the hard cap on logical length (I5).
	maxNumElements = 1 << 20
	// defaultPartialCRCLimitDiv is the default cheap/expensive threshold
	// ratio from spec.md §4.3.7: an overlap edit smaller than
	// min(P,N)/partialCRCLimitDiv qualifies for the cheap recompute path.
	defaultPartialCRCLimitDiv = 10
)

// Options configures OpenOrCreate, in the teacher's CacheOptions/
// DefaultOptions shape, generalized from per-record cache knobs to the
// vector's strategy, checksum threshold, metrics and logging hooks.
type Options struct {
	// Strategy selects the mmap access mode. Zero value is StrategyReadOnly;
	// most callers want StrategyReadWriteManualSync or
	// StrategyReadWriteAutoSync explicitly.
	Strategy Strategy

	// PartialCRCLimitDiv overrides the cheap/expensive checksum threshold
	// ratio. Zero means defaultPartialCRCLimitDiv. Purely a performance
	// tunable; does not affect correctness (spec.md §6.3).
	PartialCRCLimitDiv uint32

	// Logger receives structured warnings on corruption detection and
	// informational growth events. Nil means no logging.
	Logger *zap.Logger

	// Metrics, when non-nil, receives growth/checksum/corruption counters.
	// See metrics.go.
	Metrics *Metrics
}

func (o Options) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o Options) partialCRCLimitDiv() uint32 {
	if o.PartialCRCLimitDiv == 0 {
		return defaultPartialCRCLimitDiv
	}
	return o.PartialCRCLimitDiv
}

// DefaultOptions returns read-write-manual-sync with no logging/metrics.
func DefaultOptions() Options {
	return Options{Strategy: StrategyReadWriteManualSync}
}
