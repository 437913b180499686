package buffer

import (
	"github.com/jobala/tembo/util"
)

func newBasicPageGuard(frame *Frame, bpm *BufferpoolManager) *BasicPageGuard {
	return &BasicPageGuard{
		frame: frame,
		bpm:   bpm,
	}
}

// BasicPageGuard holds a pin on a page without latching it. Dropping the
// guard unpins the page, flagging it dirty if the guard handed out mutable
// access.
type BasicPageGuard struct {
	frame *Frame
	bpm   *BufferpoolManager
	dirty bool
}

func (pg *BasicPageGuard) PageId() int64 {
	return pg.frame.pageId
}

func (pg *BasicPageGuard) GetData() []byte {
	return pg.frame.Data
}

func (pg *BasicPageGuard) GetDataMut() *[]byte {
	pg.dirty = true
	return &pg.frame.Data
}

func (pg *BasicPageGuard) Drop() {
	if pg == nil || pg.frame == nil {
		return
	}

	pg.bpm.UnpinPage(pg.frame.pageId, pg.dirty)
	pg.frame = nil
}

// UpgradeWrite takes the page's write latch and transfers the guard's pin to
// the returned WritePageGuard. The basic guard is unusable afterwards.
func (pg *BasicPageGuard) UpgradeWrite() *WritePageGuard {
	frame := pg.frame
	pg.frame = nil

	frame.mu.Lock()
	return &WritePageGuard{guard: BasicPageGuard{frame: frame, bpm: pg.bpm, dirty: pg.dirty}}
}

type ReadPageGuard struct {
	guard BasicPageGuard
}

func (pg *ReadPageGuard) PageId() int64 {
	return pg.guard.frame.pageId
}

func (pg *ReadPageGuard) GetData() []byte {
	return pg.guard.frame.Data
}

func (pg *ReadPageGuard) Drop() {
	if pg == nil || pg.guard.frame == nil {
		return
	}

	pg.guard.frame.mu.RUnlock()
	pg.guard.Drop()
}

type WritePageGuard struct {
	guard BasicPageGuard
}

func (pg *WritePageGuard) PageId() int64 {
	return pg.guard.frame.pageId
}

func (pg *WritePageGuard) GetData() []byte {
	return pg.guard.frame.Data
}

func (pg *WritePageGuard) GetDataMut() *[]byte {
	return pg.guard.GetDataMut()
}

func (pg *WritePageGuard) Drop() {
	if pg == nil || pg.guard.frame == nil {
		return
	}

	pg.guard.frame.mu.Unlock()
	pg.guard.Drop()
}

type pageReader interface {
	GetData() []byte
}

// As decodes the guarded page into T.
func As[T any](pg pageReader) (T, error) {
	return util.ToStruct[T](pg.GetData())
}

// SetPage serializes page into the guarded frame, marking it dirty.
func SetPage[T any](pg *WritePageGuard, page T) error {
	data, err := util.ToByteSlice(page)
	if err != nil {
		return err
	}

	copy(*pg.GetDataMut(), data)
	return nil
}
