package hash

import "github.com/jobala/tembo/storage/disk"

// headerPage is the table's root page. The top MaxDepth bits of a key's hash
// select the directory responsible for it.
type headerPage struct {
	MaxDepth         uint32
	DirectoryPageIds []int64
}

func newHeaderPage(maxDepth uint32) *headerPage {
	ids := make([]int64, 1<<maxDepth)
	for i := range ids {
		ids[i] = disk.INVALID_PAGE_ID
	}

	return &headerPage{
		MaxDepth:         maxDepth,
		DirectoryPageIds: ids,
	}
}

func (h *headerPage) hashToDirectoryIndex(hash uint32) uint32 {
	if h.MaxDepth == 0 {
		return 0
	}

	return hash >> (32 - h.MaxDepth)
}

func (h *headerPage) directoryPageId(idx uint32) int64 {
	return h.DirectoryPageIds[idx]
}

func (h *headerPage) setDirectoryPageId(idx uint32, pageId int64) {
	h.DirectoryPageIds[idx] = pageId
}

func (h *headerPage) maxSize() uint32 {
	return 1 << h.MaxDepth
}
