package hash

const (
	DEFAULT_HEADER_MAX_DEPTH    = 6
	DEFAULT_DIRECTORY_MAX_DEPTH = 6
	DEFAULT_BUCKET_MAX_SIZE     = 32
)

// bucketPage stores the table's key/value pairs. Ordering inside a bucket is
// not meaningful.
type bucketPage[K any, V any] struct {
	Size    uint32
	MaxSize uint32
	Keys    []K
	Values  []V
}

func newBucketPage[K any, V any](maxSize uint32) *bucketPage[K, V] {
	return &bucketPage[K, V]{
		MaxSize: maxSize,
		Keys:    []K{},
		Values:  []V{},
	}
}

func (b *bucketPage[K, V]) lookup(key K, cmp Comparator[K]) (V, bool) {
	for i, k := range b.Keys {
		if cmp(k, key) == 0 {
			return b.Values[i], true
		}
	}

	var zero V
	return zero, false
}

func (b *bucketPage[K, V]) insert(key K, value V, cmp Comparator[K]) bool {
	if b.isFull() {
		return false
	}

	if _, found := b.lookup(key, cmp); found {
		return false
	}

	b.Keys = append(b.Keys, key)
	b.Values = append(b.Values, value)
	b.Size += 1

	return true
}

func (b *bucketPage[K, V]) remove(key K, cmp Comparator[K]) bool {
	for i, k := range b.Keys {
		if cmp(k, key) == 0 {
			b.removeAt(uint32(i))
			return true
		}
	}

	return false
}

// removeAt moves the last entry into idx, no ordering to preserve.
func (b *bucketPage[K, V]) removeAt(idx uint32) {
	last := len(b.Keys) - 1

	b.Keys[idx] = b.Keys[last]
	b.Values[idx] = b.Values[last]
	b.Keys = b.Keys[:last]
	b.Values = b.Values[:last]
	b.Size -= 1
}

func (b *bucketPage[K, V]) keyAt(idx uint32) K {
	return b.Keys[idx]
}

func (b *bucketPage[K, V]) valueAt(idx uint32) V {
	return b.Values[idx]
}

func (b *bucketPage[K, V]) entryAt(idx uint32) (K, V) {
	return b.Keys[idx], b.Values[idx]
}

func (b *bucketPage[K, V]) isFull() bool {
	return b.Size >= b.MaxSize
}

func (b *bucketPage[K, V]) isEmpty() bool {
	return b.Size == 0
}

func (b *bucketPage[K, V]) clear() {
	b.Keys = []K{}
	b.Values = []V{}
	b.Size = 0
}
