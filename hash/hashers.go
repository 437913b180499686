package hash

import (
	"cmp"
	"fmt"

	"github.com/cespare/xxhash"
	"github.com/spaolacci/murmur3"
	"github.com/vmihailenco/msgpack"
)

// HashFn maps a key to the 32-bit hash the table indexes with.
type HashFn[K any] func(key K) uint32

// Comparator returns a negative value, zero or a positive value when a is
// less than, equal to or greater than b.
type Comparator[K any] func(a, b K) int

func MurmurHasher[K any](key K) uint32 {
	return murmur3.Sum32(keyBytes(key))
}

func XxHasher[K any](key K) uint32 {
	return uint32(xxhash.Sum64(keyBytes(key)))
}

func keyBytes[K any](key K) []byte {
	data, err := msgpack.Marshal(key)
	if err != nil {
		panic(fmt.Sprintf("unhashable key %v: %v", key, err))
	}

	return data
}

func IntComparator(a, b int) int {
	return cmp.Compare(a, b)
}

func StringComparator(a, b string) int {
	return cmp.Compare(a, b)
}
