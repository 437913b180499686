package util

import (
	"fmt"

	"github.com/jobala/tembo/storage/disk"
	"github.com/vmihailenco/msgpack"
)

// ToByteSlice marshals obj into a PAGE_SIZE buffer, the on-disk layout of a
// page.
func ToByteSlice[T any](obj T) ([]byte, error) {
	res := make([]byte, disk.PAGE_SIZE)

	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}

	if len(data) > disk.PAGE_SIZE {
		return nil, fmt.Errorf("serialized page is %d bytes, exceeds page size %d", len(data), disk.PAGE_SIZE)
	}
	copy(res, data)

	return res, nil
}

func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, err
	}

	return res, nil
}
