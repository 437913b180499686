package disk

import (
	"sync"
)

func NewScheduler(diskManager *diskManager) *DiskScheduler {
	ds := &DiskScheduler{
		reqCh:       make(chan DiskReq, 100),
		pageQueue:   make(map[int]chan DiskReq),
		pageQueueMu: sync.Mutex{},
		diskManager: diskManager,
	}

	go ds.handleDiskReq()
	return ds
}

func NewRequest(pageId int64, data []byte, isWrite bool) DiskReq {
	respCh := make(chan DiskResp)
	return DiskReq{
		PageId: int(pageId),
		Data:   data,
		Write:  isWrite,
		RespCh: respCh,
	}
}

// NewDeallocateRequest tells the disk layer a page will no longer be read,
// so its slot can be reused for future allocations.
func NewDeallocateRequest(pageId int64) DiskReq {
	respCh := make(chan DiskResp)
	return DiskReq{
		PageId:     int(pageId),
		Deallocate: true,
		RespCh:     respCh,
	}
}

func (ds *DiskScheduler) Schedule(req DiskReq) <-chan DiskResp {
	ds.reqCh <- req
	return req.RespCh
}

func (ds *DiskScheduler) handleDiskReq() {
	for req := range ds.reqCh {
		// the enqueue happens under the mutex so a worker draining its queue
		// cannot tear it down between the lookup and the send
		ds.pageQueueMu.Lock()
		queue, ok := ds.pageQueue[req.PageId]
		if !ok {
			queue = make(chan DiskReq, 10)
			ds.pageQueue[req.PageId] = queue
		}
		queue <- req
		ds.pageQueueMu.Unlock()

		// !ok means we created a new page queue, therefore we should start a
		// new worker to handle the queue's page requests
		if !ok {
			go ds.pageWorker(req.PageId, queue)
		}
	}
}

func (ds *DiskScheduler) pageWorker(pageId int, reqQueue chan DiskReq) {
	for {
		select {
		case req := <-reqQueue:
			switch {
			case req.Deallocate:
				ds.diskManager.deletePage(req.PageId)
				req.RespCh <- DiskResp{Success: true}
			case req.Write:
				if err := ds.diskManager.writePage(req.PageId, req.Data); err != nil {
					req.RespCh <- DiskResp{Success: false}
				} else {
					req.RespCh <- DiskResp{Success: true}
				}
			default:
				if data, err := ds.diskManager.readPage(req.PageId); err != nil {
					req.RespCh <- DiskResp{Success: false}
				} else {
					req.RespCh <- DiskResp{Success: true, Data: data}
				}
			}

		default:
			// done handling requests for this page unless one arrived while
			// we were deciding to quit
			ds.pageQueueMu.Lock()
			if len(reqQueue) > 0 {
				ds.pageQueueMu.Unlock()
				continue
			}
			delete(ds.pageQueue, pageId)
			ds.pageQueueMu.Unlock()
			return
		}

	}

}

type DiskScheduler struct {
	reqCh       chan DiskReq
	diskManager *diskManager

	pageQueue   map[int]chan DiskReq
	pageQueueMu sync.Mutex
}

type DiskReq struct {
	PageId     int
	Data       []byte
	Write      bool
	Deallocate bool
	RespCh     chan DiskResp
}

type DiskResp struct {
	Success bool
	Data    []byte
}
