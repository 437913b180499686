package buffer

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jobala/tembo/storage/disk"
	"github.com/jobala/tembo/util"
	"go.uber.org/zap"
)

func NewBufferpoolManager(size int, replacer *lrukReplacer, diskScheduler *disk.DiskScheduler, logger *zap.Logger) *BufferpoolManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	frames := make([]*Frame, size)
	freeFrames := make([]int, size)

	for i := 0; i < size; i++ {
		f := &Frame{
			id:     i,
			Data:   make([]byte, disk.PAGE_SIZE),
			pageId: disk.INVALID_PAGE_ID,
		}

		frames[i] = f
		freeFrames[i] = i
	}

	return &BufferpoolManager{
		mu:            sync.Mutex{},
		frames:        frames,
		pageTable:     make(map[int64]int),
		replacer:      replacer,
		diskScheduler: diskScheduler,
		freeFrames:    freeFrames,
		logger:        logger,
	}
}

// NewPage allocates a fresh page id, binds it to a frame and returns the
// frame pinned. The caller must UnpinPage once it is done with it.
func (b *BufferpoolManager) NewPage() (*Frame, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	frame, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}

	pageId := b.nextPageId.Add(1)
	b.bind(frame, pageId)

	return frame, nil
}

// FetchPage returns the frame holding pageId, reading it from disk if it is
// not already resident. The frame comes back pinned.
func (b *BufferpoolManager) FetchPage(pageId int64) (*Frame, error) {
	if pageId == disk.INVALID_PAGE_ID {
		return nil, fmt.Errorf("fetching an invalid page id")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if id, ok := b.pageTable[pageId]; ok {
		frame := b.frames[id]

		frame.pin()
		b.replacer.recordAccess(frame.id)
		b.replacer.setEvictable(frame.id, false)

		return frame, nil
	}

	frame, err := b.acquireFrame()
	if err != nil {
		return nil, err
	}
	b.bind(frame, pageId)

	readReq := disk.NewRequest(pageId, nil, false)
	resp := <-b.diskScheduler.Schedule(readReq)
	if !resp.Success {
		return nil, fmt.Errorf("error reading page %d from disk", pageId)
	}
	copy(frame.Data, resp.Data)

	return frame, nil
}

// UnpinPage drops one pin on pageId, recording whether the caller modified
// the page. Returns false if the page is not resident or was not pinned.
func (b *BufferpoolManager) UnpinPage(pageId int64, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	frame := b.frames[id]
	if frame.pins.Load() <= 0 {
		return false
	}

	frame.dirty = frame.dirty || isDirty
	if frame.unpin() == 0 {
		b.replacer.setEvictable(frame.id, true)
	}

	return true
}

// FlushPage writes pageId out to disk regardless of its dirty state and
// clears the dirty flag. Returns false if the page is not resident.
func (b *BufferpoolManager) FlushPage(pageId int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	frame := b.frames[id]
	writeReq := disk.NewRequest(frame.pageId, frame.Data, true)
	<-b.diskScheduler.Schedule(writeReq)
	frame.dirty = false

	return true
}

func (b *BufferpoolManager) FlushAllPages() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, frame := range b.frames {
		if frame.pageId == disk.INVALID_PAGE_ID {
			continue
		}

		writeReq := disk.NewRequest(frame.pageId, frame.Data, true)
		<-b.diskScheduler.Schedule(writeReq)
		frame.dirty = false
	}
}

// DeletePage evicts pageId from the pool and tells the disk layer its slot
// can be reused. Returns false if the page is still pinned.
func (b *BufferpoolManager) DeletePage(pageId int64) bool {
	if pageId == disk.INVALID_PAGE_ID {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	id, ok := b.pageTable[pageId]
	if ok {
		frame := b.frames[id]
		if frame.pins.Load() > 0 {
			return false
		}

		delete(b.pageTable, pageId)
		b.replacer.remove(frame.id)
		frame.reset()
		b.freeFrames = append(b.freeFrames, frame.id)
	}

	b.logger.Debug("deleting page", zap.Int64("pageId", pageId))
	<-b.diskScheduler.Schedule(disk.NewDeallocateRequest(pageId))

	return true
}

func (b *BufferpoolManager) FetchPageBasic(pageId int64) (*BasicPageGuard, error) {
	frame, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	return newBasicPageGuard(frame, b), nil
}

func (b *BufferpoolManager) FetchPageRead(pageId int64) (*ReadPageGuard, error) {
	frame, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	frame.mu.RLock()
	return &ReadPageGuard{guard: BasicPageGuard{frame: frame, bpm: b}}, nil
}

func (b *BufferpoolManager) FetchPageWrite(pageId int64) (*WritePageGuard, error) {
	frame, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	frame.mu.Lock()
	return &WritePageGuard{guard: BasicPageGuard{frame: frame, bpm: b}}, nil
}

func (b *BufferpoolManager) NewPageGuarded() (*BasicPageGuard, error) {
	frame, err := b.NewPage()
	if err != nil {
		return nil, err
	}

	return newBasicPageGuard(frame, b), nil
}

// acquireFrame hands out a free frame, evicting a resident page if the free
// list is empty. Dirty victims are written back before their frame is
// rebound. Callers must hold b.mu.
func (b *BufferpoolManager) acquireFrame() (*Frame, error) {
	if len(b.freeFrames) > 0 {
		id := b.freeFrames[0]
		b.freeFrames = b.freeFrames[1:]

		return b.frames[id], nil
	}

	id, ok := b.replacer.evict()
	if !ok {
		return nil, util.NewBufferpoolExhaustedError()
	}

	frame := b.frames[id]
	if frame.dirty {
		writeReq := disk.NewRequest(frame.pageId, frame.Data, true)
		<-b.diskScheduler.Schedule(writeReq)
	}

	b.logger.Debug("evicting page",
		zap.Int64("pageId", frame.pageId),
		zap.Int("frameId", frame.id))

	delete(b.pageTable, frame.pageId)
	return frame, nil
}

// bind points frame at pageId and pins it. Callers must hold b.mu.
func (b *BufferpoolManager) bind(frame *Frame, pageId int64) {
	frame.reset()
	frame.pageId = pageId
	frame.pin()

	b.pageTable[pageId] = frame.id
	b.replacer.recordAccess(frame.id)
	b.replacer.setEvictable(frame.id, false)
}

type BufferpoolManager struct {
	mu            sync.Mutex
	frames        []*Frame
	pageTable     map[int64]int
	nextPageId    atomic.Int64
	diskScheduler *disk.DiskScheduler
	replacer      *lrukReplacer
	freeFrames    []int
	logger        *zap.Logger
}
