package hash

import (
	"slices"

	"github.com/jobala/tembo/buffer"
	"github.com/jobala/tembo/storage/disk"
	"go.uber.org/zap"
)

// DiskExtendibleHashTable is a disk-backed hash index with a three-level
// page layout: a header page routes the top bits of a hash to a directory
// page, the directory routes the low bits to a bucket page, and buckets hold
// the key/value pairs. Directories double and halve as buckets split and
// merge. Keys are unique.
type DiskExtendibleHashTable[K any, V any] struct {
	name              string
	bpm               *buffer.BufferpoolManager
	cmp               Comparator[K]
	hashFn            HashFn[K]
	headerMaxDepth    uint32
	directoryMaxDepth uint32
	bucketMaxSize     uint32
	headerPageId      int64
	logger            *zap.Logger
}

func NewDiskExtendibleHashTable[K any, V any](
	name string,
	bpm *buffer.BufferpoolManager,
	cmp Comparator[K],
	hashFn HashFn[K],
	headerMaxDepth, directoryMaxDepth, bucketMaxSize uint32,
	logger *zap.Logger,
) (*DiskExtendibleHashTable[K, V], error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	guard, err := bpm.NewPageGuarded()
	if err != nil {
		return nil, err
	}

	headerGuard := guard.UpgradeWrite()
	defer headerGuard.Drop()

	if err := buffer.SetPage(headerGuard, newHeaderPage(headerMaxDepth)); err != nil {
		return nil, err
	}

	return &DiskExtendibleHashTable[K, V]{
		name:              name,
		bpm:               bpm,
		cmp:               cmp,
		hashFn:            hashFn,
		headerMaxDepth:    headerMaxDepth,
		directoryMaxDepth: directoryMaxDepth,
		bucketMaxSize:     bucketMaxSize,
		headerPageId:      headerGuard.PageId(),
		logger:            logger,
	}, nil
}

// GetValue looks key up and returns its value in a slice, empty when the key
// is absent. Each page guard is dropped as soon as the next level is known.
func (ht *DiskExtendibleHashTable[K, V]) GetValue(key K) ([]V, error) {
	hash := ht.hashFn(key)

	headerGuard, err := ht.bpm.FetchPageRead(ht.headerPageId)
	if err != nil {
		return nil, err
	}

	header, err := buffer.As[headerPage](headerGuard)
	if err != nil {
		headerGuard.Drop()
		return nil, err
	}

	directoryPageId := header.directoryPageId(header.hashToDirectoryIndex(hash))
	headerGuard.Drop()

	if directoryPageId == disk.INVALID_PAGE_ID {
		return nil, nil
	}

	dirGuard, err := ht.bpm.FetchPageRead(directoryPageId)
	if err != nil {
		return nil, err
	}

	directory, err := buffer.As[directoryPage](dirGuard)
	if err != nil {
		dirGuard.Drop()
		return nil, err
	}

	bucketPageId := directory.bucketPageId(directory.hashToBucketIndex(hash))
	dirGuard.Drop()

	if bucketPageId == disk.INVALID_PAGE_ID {
		return nil, nil
	}

	bucketGuard, err := ht.bpm.FetchPageRead(bucketPageId)
	if err != nil {
		return nil, err
	}
	defer bucketGuard.Drop()

	bucket, err := buffer.As[bucketPage[K, V]](bucketGuard)
	if err != nil {
		return nil, err
	}

	if value, found := bucket.lookup(key, ht.cmp); found {
		return []V{value}, nil
	}

	return nil, nil
}

// Insert adds a key/value pair, returning false if the key already exists or
// the table cannot grow any further.
func (ht *DiskExtendibleHashTable[K, V]) Insert(key K, value V) (bool, error) {
	existing, err := ht.GetValue(key)
	if err != nil {
		return false, err
	}

	if len(existing) > 0 {
		return false, nil
	}

	return ht.insert(key, value)
}

func (ht *DiskExtendibleHashTable[K, V]) insert(key K, value V) (bool, error) {
	hash := ht.hashFn(key)

	headerGuard, err := ht.bpm.FetchPageWrite(ht.headerPageId)
	if err != nil {
		return false, err
	}

	header, err := buffer.As[headerPage](headerGuard)
	if err != nil {
		headerGuard.Drop()
		return false, err
	}

	dirIdx := header.hashToDirectoryIndex(hash)
	directoryPageId := header.directoryPageId(dirIdx)

	if directoryPageId == disk.INVALID_PAGE_ID {
		return ht.insertToNewDirectory(headerGuard, &header, dirIdx, hash, key, value)
	}
	headerGuard.Drop()

	dirGuard, err := ht.bpm.FetchPageWrite(directoryPageId)
	if err != nil {
		return false, err
	}

	directory, err := buffer.As[directoryPage](dirGuard)
	if err != nil {
		dirGuard.Drop()
		return false, err
	}

	bucketIdx := directory.hashToBucketIndex(hash)
	bucketPageId := directory.bucketPageId(bucketIdx)

	if bucketPageId == disk.INVALID_PAGE_ID {
		if err := ht.insertToNewBucket(&directory, bucketIdx, key, value); err != nil {
			dirGuard.Drop()
			return false, err
		}

		err := buffer.SetPage(dirGuard, &directory)
		dirGuard.Drop()
		return err == nil, err
	}

	bucketGuard, err := ht.bpm.FetchPageWrite(bucketPageId)
	if err != nil {
		dirGuard.Drop()
		return false, err
	}

	bucket, err := buffer.As[bucketPage[K, V]](bucketGuard)
	if err != nil {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false, err
	}

	if bucket.insert(key, value, ht.cmp) {
		err := buffer.SetPage(bucketGuard, &bucket)
		bucketGuard.Drop()
		dirGuard.Drop()
		return err == nil, err
	}

	// bucket is full, grow the directory if the bucket is at global depth
	if directory.localDepth(bucketIdx) == directory.GlobalDepth {
		if directory.GlobalDepth >= directory.MaxDepth {
			bucketGuard.Drop()
			dirGuard.Drop()
			return false, nil
		}

		directory.incrGlobalDepth()
	}

	if err := ht.splitBucket(&directory, &bucket, bucketGuard, bucketPageId); err != nil {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false, err
	}

	if err := buffer.SetPage(dirGuard, &directory); err != nil {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false, err
	}

	bucketGuard.Drop()
	dirGuard.Drop()

	// the split may not have made room on key's side, retry from the top
	return ht.insert(key, value)
}

func (ht *DiskExtendibleHashTable[K, V]) insertToNewDirectory(
	headerGuard *buffer.WritePageGuard,
	header *headerPage,
	dirIdx uint32,
	hash uint32,
	key K,
	value V,
) (bool, error) {
	guard, err := ht.bpm.NewPageGuarded()
	if err != nil {
		headerGuard.Drop()
		return false, err
	}

	dirGuard := guard.UpgradeWrite()
	dirPageId := dirGuard.PageId()
	directory := newDirectoryPage(ht.directoryMaxDepth)

	header.setDirectoryPageId(dirIdx, dirPageId)
	if err := buffer.SetPage(headerGuard, header); err != nil {
		headerGuard.Drop()
		dirGuard.Drop()
		return false, err
	}
	headerGuard.Drop()

	if err := ht.insertToNewBucket(directory, directory.hashToBucketIndex(hash), key, value); err != nil {
		dirGuard.Drop()
		return false, err
	}

	err = buffer.SetPage(dirGuard, directory)
	dirGuard.Drop()

	ht.logger.Debug("created directory",
		zap.String("table", ht.name),
		zap.Int64("directoryPageId", dirPageId))

	return err == nil, err
}

func (ht *DiskExtendibleHashTable[K, V]) insertToNewBucket(directory *directoryPage, bucketIdx uint32, key K, value V) error {
	guard, err := ht.bpm.NewPageGuarded()
	if err != nil {
		return err
	}

	bucketGuard := guard.UpgradeWrite()
	defer bucketGuard.Drop()

	bucket := newBucketPage[K, V](ht.bucketMaxSize)
	bucket.insert(key, value, ht.cmp)

	if err := buffer.SetPage(bucketGuard, bucket); err != nil {
		return err
	}

	directory.setBucketPageId(bucketIdx, bucketGuard.PageId())
	directory.setLocalDepth(bucketIdx, 0)

	return nil
}

// splitBucket allocates a split image for a full bucket, repoints every
// directory slot on the high side of the new depth bit at it and
// redistributes the bucket's entries by rehashing.
func (ht *DiskExtendibleHashTable[K, V]) splitBucket(
	directory *directoryPage,
	bucket *bucketPage[K, V],
	bucketGuard *buffer.WritePageGuard,
	bucketPageId int64,
) error {
	guard, err := ht.bpm.NewPageGuarded()
	if err != nil {
		return err
	}

	splitGuard := guard.UpgradeWrite()
	defer splitGuard.Drop()

	splitPageId := splitGuard.PageId()
	splitBucket := newBucketPage[K, V](ht.bucketMaxSize)

	var newDepth uint32
	for i := uint32(0); i < directory.size(); i++ {
		if directory.bucketPageId(i) == bucketPageId {
			newDepth = directory.localDepth(i) + 1
			break
		}
	}

	highBit := uint32(1) << (newDepth - 1)
	for i := uint32(0); i < directory.size(); i++ {
		if directory.bucketPageId(i) != bucketPageId {
			continue
		}

		if i&highBit != 0 {
			directory.setBucketPageId(i, splitPageId)
		}
		directory.setLocalDepth(i, uint8(newDepth))
	}

	keys := slices.Clone(bucket.Keys)
	values := slices.Clone(bucket.Values)
	bucket.clear()

	for i := range keys {
		idx := directory.hashToBucketIndex(ht.hashFn(keys[i]))
		if directory.bucketPageId(idx) == splitPageId {
			splitBucket.insert(keys[i], values[i], ht.cmp)
		} else {
			bucket.insert(keys[i], values[i], ht.cmp)
		}
	}

	if err := buffer.SetPage(bucketGuard, bucket); err != nil {
		return err
	}

	if err := buffer.SetPage(splitGuard, splitBucket); err != nil {
		return err
	}

	ht.logger.Debug("split bucket",
		zap.String("table", ht.name),
		zap.Int64("bucketPageId", bucketPageId),
		zap.Int64("splitPageId", splitPageId),
		zap.Uint32("localDepth", newDepth))

	return nil
}

// Remove deletes key from the table, returning false if it was absent.
// Emptied buckets are merged with their split image while local depths
// allow, and the directory shrinks once no bucket is at global depth.
func (ht *DiskExtendibleHashTable[K, V]) Remove(key K) (bool, error) {
	hash := ht.hashFn(key)

	headerGuard, err := ht.bpm.FetchPageRead(ht.headerPageId)
	if err != nil {
		return false, err
	}

	header, err := buffer.As[headerPage](headerGuard)
	if err != nil {
		headerGuard.Drop()
		return false, err
	}

	directoryPageId := header.directoryPageId(header.hashToDirectoryIndex(hash))
	headerGuard.Drop()

	if directoryPageId == disk.INVALID_PAGE_ID {
		return false, nil
	}

	dirGuard, err := ht.bpm.FetchPageWrite(directoryPageId)
	if err != nil {
		return false, err
	}

	directory, err := buffer.As[directoryPage](dirGuard)
	if err != nil {
		dirGuard.Drop()
		return false, err
	}

	bucketIdx := directory.hashToBucketIndex(hash)
	bucketPageId := directory.bucketPageId(bucketIdx)

	if bucketPageId == disk.INVALID_PAGE_ID {
		dirGuard.Drop()
		return false, nil
	}

	bucketGuard, err := ht.bpm.FetchPageWrite(bucketPageId)
	if err != nil {
		dirGuard.Drop()
		return false, err
	}

	bucket, err := buffer.As[bucketPage[K, V]](bucketGuard)
	if err != nil {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false, err
	}

	if !bucket.remove(key, ht.cmp) {
		bucketGuard.Drop()
		dirGuard.Drop()
		return false, nil
	}

	err = buffer.SetPage(bucketGuard, &bucket)
	// drop before merging so the bucket is unpinned if it gets deleted
	bucketGuard.Drop()
	if err != nil {
		dirGuard.Drop()
		return false, err
	}

	if err := ht.mergeBuckets(&directory, bucketIdx); err != nil {
		dirGuard.Drop()
		return false, err
	}

	for directory.canShrink() {
		directory.decrGlobalDepth()
	}

	err = buffer.SetPage(dirGuard, &directory)
	dirGuard.Drop()

	return err == nil, err
}

func (ht *DiskExtendibleHashTable[K, V]) mergeBuckets(directory *directoryPage, bucketIdx uint32) error {
	currIdx := bucketIdx

	for {
		depth := directory.localDepth(currIdx)
		if depth == 0 {
			break
		}

		buddyIdx := currIdx ^ (1 << (depth - 1))
		if directory.localDepth(buddyIdx) != depth {
			break
		}

		currPageId := directory.bucketPageId(currIdx)
		buddyPageId := directory.bucketPageId(buddyIdx)

		currEmpty, err := ht.bucketIsEmpty(currPageId)
		if err != nil {
			return err
		}

		buddyEmpty, err := ht.bucketIsEmpty(buddyPageId)
		if err != nil {
			return err
		}

		if !currEmpty && !buddyEmpty {
			break
		}

		survivorPageId, deadPageId := currPageId, buddyPageId
		if currEmpty {
			survivorPageId, deadPageId = buddyPageId, currPageId
		}

		newDepth := uint8(depth - 1)
		for i := uint32(0); i < directory.size(); i++ {
			pageId := directory.bucketPageId(i)
			if pageId == currPageId || pageId == buddyPageId {
				directory.setBucketPageId(i, survivorPageId)
				directory.setLocalDepth(i, newDepth)
			}
		}

		ht.bpm.DeletePage(deadPageId)
		ht.logger.Debug("merged buckets",
			zap.String("table", ht.name),
			zap.Int64("survivorPageId", survivorPageId),
			zap.Int64("deadPageId", deadPageId),
			zap.Uint32("localDepth", uint32(newDepth)))

		currIdx &= (1 << newDepth) - 1
	}

	return nil
}

func (ht *DiskExtendibleHashTable[K, V]) bucketIsEmpty(pageId int64) (bool, error) {
	guard, err := ht.bpm.FetchPageRead(pageId)
	if err != nil {
		return false, err
	}
	defer guard.Drop()

	bucket, err := buffer.As[bucketPage[K, V]](guard)
	if err != nil {
		return false, err
	}

	return bucket.isEmpty(), nil
}

// VerifyIntegrity walks every directory reachable from the header and checks
// its structural invariants.
func (ht *DiskExtendibleHashTable[K, V]) VerifyIntegrity() error {
	headerGuard, err := ht.bpm.FetchPageRead(ht.headerPageId)
	if err != nil {
		return err
	}

	header, err := buffer.As[headerPage](headerGuard)
	if err != nil {
		headerGuard.Drop()
		return err
	}

	directoryPageIds := slices.Clone(header.DirectoryPageIds)
	headerGuard.Drop()

	for _, pageId := range directoryPageIds {
		if pageId == disk.INVALID_PAGE_ID {
			continue
		}

		dirGuard, err := ht.bpm.FetchPageRead(pageId)
		if err != nil {
			return err
		}

		directory, err := buffer.As[directoryPage](dirGuard)
		if err != nil {
			dirGuard.Drop()
			return err
		}

		err = directory.verifyIntegrity()
		dirGuard.Drop()
		if err != nil {
			return err
		}
	}

	return nil
}

// HeaderPageId exposes the root page id so a table can be reopened.
func (ht *DiskExtendibleHashTable[K, V]) HeaderPageId() int64 {
	return ht.headerPageId
}
