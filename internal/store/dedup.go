package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// clipIndex is a Bloom filter over fingerprints whose clip was written to the
// durable tier. A negative answer is definite and skips the filesystem.
type clipIndex struct {
	bloom             *bloom.BloomFilter
	mutex             sync.RWMutex
	capacity          uint
	falsePositiveRate float64
}

func newClipIndex(capacity int, falsePositiveRate float64) *clipIndex {
	if capacity <= 0 {
		capacity = 1
	}
	return &clipIndex{
		bloom:             bloom.NewWithEstimates(uint(capacity), falsePositiveRate),
		capacity:          uint(capacity),
		falsePositiveRate: falsePositiveRate,
	}
}

// MayHave reports whether fp might have a durable clip.
func (ci *clipIndex) MayHave(fp string) bool {
	ci.mutex.RLock()
	defer ci.mutex.RUnlock()
	return ci.bloom.TestString(fp)
}

func (ci *clipIndex) Add(fp string) {
	ci.mutex.Lock()
	defer ci.mutex.Unlock()
	ci.bloom.AddString(fp)
}

// Load replaces the index content with fps. Empty strings are skipped.
func (ci *clipIndex) Load(fps []string) {
	ci.mutex.Lock()
	defer ci.mutex.Unlock()

	ci.bloom = bloom.NewWithEstimates(ci.capacity, ci.falsePositiveRate)
	for _, fp := range fps {
		if fp != "" {
			ci.bloom.AddString(fp)
		}
	}
}

// Reset empties the index. Removal from a Bloom filter is not possible, so
// Delete leaves stale positives behind until the next Reset.
func (ci *clipIndex) Reset() {
	ci.Load(nil)
}
