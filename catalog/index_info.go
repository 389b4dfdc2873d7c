package catalog

import "ridgedb/disk/pages"

// IndexInfo is the metadata attached to a B+-tree index: the table it
// indexes, the ordered column list forming its key, whether the key
// (excluding the tiebreaker) must be unique, and where its root page
// lives.
type IndexInfo struct {
	Name          string
	TableName     string
	Columns       []Column
	KeyByteLength int // column segment length (null flags + values), excludes the 4-byte tiebreaker
	TiebreakerOff int // offset of the trailing tiebreaker within a full key
	KeyLength     int // KeyByteLength + 4
	columnOffsets []int
	Unique        bool
	FileHandle    int32
	RootPageID    pages.PageID
}

func NewIndexInfo(name, tableName string, columns []Column, unique bool, fileHandle int32, root pages.PageID) *IndexInfo {
	offsets := make([]int, len(columns))
	off := 0
	for i, c := range columns {
		offsets[i] = off
		if c.Nullable {
			off++ // leading null flag byte, mirrors the heap record layout
		}
		off += c.ByteLength
	}
	return &IndexInfo{
		Name:          name,
		TableName:     tableName,
		Columns:       columns,
		KeyByteLength: off,
		TiebreakerOff: off,
		KeyLength:     off + tiebreakerLength,
		columnOffsets: offsets,
		Unique:        unique,
		FileHandle:    fileHandle,
		RootPageID:    root,
	}
}
