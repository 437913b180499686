package hash

import (
	"fmt"

	"github.com/jobala/tembo/storage/disk"
)

// directoryPage maps the low GlobalDepth bits of a hash to a bucket page.
// Buckets with a local depth below the global depth are shared by several
// directory slots.
type directoryPage struct {
	MaxDepth      uint32
	GlobalDepth   uint32
	LocalDepths   []uint8
	BucketPageIds []int64
}

func newDirectoryPage(maxDepth uint32) *directoryPage {
	size := 1 << maxDepth
	ids := make([]int64, size)
	for i := range ids {
		ids[i] = disk.INVALID_PAGE_ID
	}

	return &directoryPage{
		MaxDepth:      maxDepth,
		LocalDepths:   make([]uint8, size),
		BucketPageIds: ids,
	}
}

func (d *directoryPage) hashToBucketIndex(hash uint32) uint32 {
	return hash & d.globalDepthMask()
}

func (d *directoryPage) globalDepthMask() uint32 {
	return (1 << d.GlobalDepth) - 1
}

func (d *directoryPage) localDepthMask(idx uint32) uint32 {
	return (1 << d.LocalDepths[idx]) - 1
}

func (d *directoryPage) bucketPageId(idx uint32) int64 {
	return d.BucketPageIds[idx]
}

func (d *directoryPage) setBucketPageId(idx uint32, pageId int64) {
	d.BucketPageIds[idx] = pageId
}

// getSplitImageIndex returns the slot that splits off from idx when its
// bucket's local depth grows to the current global depth.
func (d *directoryPage) getSplitImageIndex(idx uint32) uint32 {
	return idx ^ (1 << (d.GlobalDepth - 1))
}

// incrGlobalDepth doubles the directory. Every new slot starts out sharing
// the bucket of the slot it mirrors.
func (d *directoryPage) incrGlobalDepth() {
	if d.GlobalDepth >= d.MaxDepth {
		return
	}

	half := uint32(1) << d.GlobalDepth
	for i := uint32(0); i < half; i++ {
		d.BucketPageIds[half+i] = d.BucketPageIds[i]
		d.LocalDepths[half+i] = d.LocalDepths[i]
	}

	d.GlobalDepth += 1
}

func (d *directoryPage) decrGlobalDepth() {
	if d.GlobalDepth > 0 {
		d.GlobalDepth -= 1
	}
}

func (d *directoryPage) canShrink() bool {
	if d.GlobalDepth == 0 {
		return false
	}

	for i := uint32(0); i < d.size(); i++ {
		if uint32(d.LocalDepths[i]) == d.GlobalDepth {
			return false
		}
	}

	return true
}

func (d *directoryPage) size() uint32 {
	return 1 << d.GlobalDepth
}

func (d *directoryPage) maxSize() uint32 {
	return 1 << d.MaxDepth
}

func (d *directoryPage) localDepth(idx uint32) uint32 {
	return uint32(d.LocalDepths[idx])
}

func (d *directoryPage) setLocalDepth(idx uint32, depth uint8) {
	d.LocalDepths[idx] = depth
}

func (d *directoryPage) incrLocalDepth(idx uint32) {
	if uint32(d.LocalDepths[idx]) < d.GlobalDepth {
		d.LocalDepths[idx] += 1
	}
}

func (d *directoryPage) decrLocalDepth(idx uint32) {
	if d.LocalDepths[idx] > 0 {
		d.LocalDepths[idx] -= 1
	}
}

// verifyIntegrity checks the structural invariants of the directory: local
// depths never exceed the global depth, every slot sharing a bucket agrees
// on its local depth, and each bucket is referenced by exactly
// 2^(globalDepth-localDepth) slots.
func (d *directoryPage) verifyIntegrity() error {
	pageIdCount := map[int64]uint32{}
	pageIdDepth := map[int64]uint8{}

	for i := uint32(0); i < d.size(); i++ {
		pageId := d.BucketPageIds[i]
		depth := d.LocalDepths[i]

		if uint32(depth) > d.GlobalDepth {
			return fmt.Errorf("local depth %d at slot %d exceeds global depth %d", depth, i, d.GlobalDepth)
		}

		if seen, ok := pageIdDepth[pageId]; ok && seen != depth {
			return fmt.Errorf("page %d has inconsistent local depths %d and %d", pageId, seen, depth)
		}

		pageIdDepth[pageId] = depth
		pageIdCount[pageId] += 1
	}

	for pageId, count := range pageIdCount {
		want := uint32(1) << (d.GlobalDepth - uint32(pageIdDepth[pageId]))
		if count != want {
			return fmt.Errorf("page %d is referenced by %d slots, want %d", pageId, count, want)
		}
	}

	return nil
}
