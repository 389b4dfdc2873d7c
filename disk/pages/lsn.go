package pages

import "ridgedb/common"

// LSN is a log sequence number. It is monotonically increasing and unique
// per log record; ZeroLSN marks a page that has never been touched by a
// logged operation.
type LSN int64

const ZeroLSN LSN = 0

// PageID identifies a physical page within a file. A page number of
// InvalidPageNumber (-1) denotes an absent page, grounded on the
// file-handle/page-number PageId pair of spec section 3.
type PageID struct {
	FileHandle int32
	PageNum    int64
}

var InvalidPageID = PageID{FileHandle: -1, PageNum: common.InvalidPageNumber}

func (p PageID) IsValid() bool {
	return p.PageNum >= 0
}
