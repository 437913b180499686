package buffer

import (
	"sync"
	"sync/atomic"

	"github.com/jobala/tembo/storage/disk"
)

func (f *Frame) PageId() int64 {
	return f.pageId
}

func (f *Frame) PinCount() int32 {
	return f.pins.Load()
}

func (f *Frame) IsDirty() bool {
	return f.dirty
}

func (f *Frame) pin() {
	f.pins.Add(1)
}

func (f *Frame) unpin() int32 {
	return f.pins.Add(-1)
}

func (f *Frame) reset() {
	f.dirty = false
	f.pins.Store(0)
	f.pageId = disk.INVALID_PAGE_ID
	f.Data = make([]byte, disk.PAGE_SIZE)
}

type Frame struct {
	mu     sync.RWMutex
	id     int
	Data   []byte
	pins   atomic.Int32
	dirty  bool
	pageId int64
}
