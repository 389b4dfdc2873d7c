// Package wal implements the log manager and ARIES-style log record
// encoding, grounded on
// thetarby-helindb/disk/wal/{log_manager.go,log_record.go}: a fixed-size
// buffer, a monotonically increasing LSN counter, and a typed log record
// with a common header and a per-type tail.
package wal

import (
	"encoding/binary"
	"fmt"

	"ridgedb/disk/pages"
)

type RecordType uint32

const (
	TypeBegin RecordType = iota + 1
	TypeCommit
	TypeAbort
	TypeInsert
	TypeDelete
	TypeUpdate
	TypeNewPage
)

func (t RecordType) String() string {
	switch t {
	case TypeBegin:
		return "BEGIN"
	case TypeCommit:
		return "COMMIT"
	case TypeAbort:
		return "ABORT"
	case TypeInsert:
		return "INSERT"
	case TypeDelete:
		return "DELETE"
	case TypeUpdate:
		return "UPDATE"
	case TypeNewPage:
		return "NEWPAGE"
	default:
		return "UNKNOWN"
	}
}

// Rid is the record identifier: a page number plus a slot number.
type Rid struct {
	PageNum int32
	Slot    int32
}

// Record is the common header of every log record plus whichever tail
// fields its Type uses. Unused tail fields are left zero-valued.
type Record struct {
	Type         RecordType
	LSN          pages.LSN
	TxnID        int32
	PrevLSN      pages.LSN

	// INSERT / DELETE
	Value []byte
	Rid   Rid

	// UPDATE
	OldValue []byte
	NewValue []byte

	// INSERT / DELETE / UPDATE / NEWPAGE
	TableName string

	// NEWPAGE
	PageNumber int32
}

func NewBeginRecord(txnID int32) *Record {
	return &Record{Type: TypeBegin, TxnID: txnID}
}

func NewCommitRecord(txnID int32, prevLSN pages.LSN) *Record {
	return &Record{Type: TypeCommit, TxnID: txnID, PrevLSN: prevLSN}
}

func NewAbortRecord(txnID int32, prevLSN pages.LSN) *Record {
	return &Record{Type: TypeAbort, TxnID: txnID, PrevLSN: prevLSN}
}

func NewInsertRecord(txnID int32, prevLSN pages.LSN, table string, rid Rid, value []byte) *Record {
	return &Record{Type: TypeInsert, TxnID: txnID, PrevLSN: prevLSN, TableName: table, Rid: rid, Value: value}
}

func NewDeleteRecord(txnID int32, prevLSN pages.LSN, table string, rid Rid, deletedValue []byte) *Record {
	return &Record{Type: TypeDelete, TxnID: txnID, PrevLSN: prevLSN, TableName: table, Rid: rid, Value: deletedValue}
}

func NewUpdateRecord(txnID int32, prevLSN pages.LSN, table string, rid Rid, oldValue, newValue []byte) *Record {
	return &Record{Type: TypeUpdate, TxnID: txnID, PrevLSN: prevLSN, TableName: table, Rid: rid, OldValue: oldValue, NewValue: newValue}
}

func NewNewPageRecord(txnID int32, prevLSN pages.LSN, table string, pageNumber int32) *Record {
	return &Record{Type: TypeNewPage, TxnID: txnID, PrevLSN: prevLSN, TableName: table, PageNumber: pageNumber}
}

// commonHeaderSize is log_type + lsn + log_total_length + txn_id + prev_lsn,
// each a 4-byte field.
const commonHeaderSize = 4 + 4 + 4 + 4 + 4

// Encode serializes r into its wire layout.
func (r *Record) Encode() []byte {
	tail := r.encodeTail()
	total := commonHeaderSize + len(tail)

	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:], uint32(r.Type))
	binary.BigEndian.PutUint32(buf[4:], uint32(r.LSN))
	binary.BigEndian.PutUint32(buf[8:], uint32(total))
	binary.BigEndian.PutUint32(buf[12:], uint32(r.TxnID))
	binary.BigEndian.PutUint32(buf[16:], uint32(r.PrevLSN))
	copy(buf[commonHeaderSize:], tail)
	return buf
}

func (r *Record) encodeTail() []byte {
	switch r.Type {
	case TypeBegin, TypeCommit, TypeAbort:
		return nil
	case TypeInsert, TypeDelete:
		return encodeValueRidTable(r.Value, r.Rid, r.TableName)
	case TypeUpdate:
		return encodeUpdateTail(r.OldValue, r.NewValue, r.Rid, r.TableName)
	case TypeNewPage:
		return encodeNewPageTail(r.TableName, r.PageNumber)
	default:
		panic(fmt.Sprintf("wal: unknown record type %d", r.Type))
	}
}

func encodeValueRidTable(value []byte, rid Rid, table string) []byte {
	buf := make([]byte, 0, 4+len(value)+4+4+8+len(table))
	buf = appendU32(buf, uint32(len(value)))
	buf = append(buf, value...)
	buf = appendI32(buf, rid.PageNum)
	buf = appendI32(buf, rid.Slot)
	buf = appendU64(buf, uint64(len(table)))
	buf = append(buf, table...)
	return buf
}

func encodeUpdateTail(oldValue, newValue []byte, rid Rid, table string) []byte {
	buf := make([]byte, 0, 4+len(oldValue)+4+len(newValue)+4+4+8+len(table))
	buf = appendU32(buf, uint32(len(oldValue)))
	buf = append(buf, oldValue...)
	buf = appendU32(buf, uint32(len(newValue)))
	buf = append(buf, newValue...)
	buf = appendI32(buf, rid.PageNum)
	buf = appendI32(buf, rid.Slot)
	buf = appendU64(buf, uint64(len(table)))
	buf = append(buf, table...)
	return buf
}

func encodeNewPageTail(table string, pageNumber int32) []byte {
	buf := make([]byte, 0, 8+len(table)+4)
	buf = appendU64(buf, uint64(len(table)))
	buf = append(buf, table...)
	buf = appendI32(buf, pageNumber)
	return buf
}

func appendU32(dst []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(dst, tmp[:]...)
}

func appendI32(dst []byte, v int32) []byte {
	return appendU32(dst, uint32(v))
}

func appendU64(dst []byte, v uint64) []byte {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	return append(dst, tmp[:]...)
}

// Decode parses a single record starting at buf[0]; it returns the record
// and the number of bytes consumed (log_total_length).
func Decode(buf []byte) (*Record, int, error) {
	if len(buf) < commonHeaderSize {
		return nil, 0, fmt.Errorf("wal: truncated record header")
	}

	r := &Record{
		Type:    RecordType(binary.BigEndian.Uint32(buf[0:])),
		LSN:     pages.LSN(binary.BigEndian.Uint32(buf[4:])),
		TxnID:   int32(binary.BigEndian.Uint32(buf[12:])),
		PrevLSN: pages.LSN(binary.BigEndian.Uint32(buf[16:])),
	}
	total := int(binary.BigEndian.Uint32(buf[8:]))
	if total < commonHeaderSize || total > len(buf) {
		return nil, 0, fmt.Errorf("wal: invalid or truncated record length %d", total)
	}

	tail := buf[commonHeaderSize:total]
	if err := r.decodeTail(tail); err != nil {
		return nil, 0, err
	}
	return r, total, nil
}

func (r *Record) decodeTail(tail []byte) error {
	switch r.Type {
	case TypeBegin, TypeCommit, TypeAbort:
		return nil
	case TypeInsert, TypeDelete:
		value, rid, table, err := decodeValueRidTable(tail)
		if err != nil {
			return err
		}
		r.Value, r.Rid, r.TableName = value, rid, table
		return nil
	case TypeUpdate:
		old, new_, rid, table, err := decodeUpdateTail(tail)
		if err != nil {
			return err
		}
		r.OldValue, r.NewValue, r.Rid, r.TableName = old, new_, rid, table
		return nil
	case TypeNewPage:
		table, pn, err := decodeNewPageTail(tail)
		if err != nil {
			return err
		}
		r.TableName, r.PageNumber = table, pn
		return nil
	default:
		return fmt.Errorf("wal: unknown record type %d", r.Type)
	}
}

func decodeValueRidTable(tail []byte) (value []byte, rid Rid, table string, err error) {
	if len(tail) < 4 {
		return nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	vlen := binary.BigEndian.Uint32(tail)
	tail = tail[4:]
	if uint32(len(tail)) < vlen+8 {
		return nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	value = append([]byte(nil), tail[:vlen]...)
	tail = tail[vlen:]
	rid.PageNum = int32(binary.BigEndian.Uint32(tail))
	rid.Slot = int32(binary.BigEndian.Uint32(tail[4:]))
	tail = tail[8:]
	if len(tail) < 8 {
		return nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	tlen := binary.BigEndian.Uint64(tail)
	tail = tail[8:]
	if uint64(len(tail)) < tlen {
		return nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	table = string(tail[:tlen])
	return value, rid, table, nil
}

func decodeUpdateTail(tail []byte) (oldValue, newValue []byte, rid Rid, table string, err error) {
	if len(tail) < 4 {
		return nil, nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	oldLen := binary.BigEndian.Uint32(tail)
	tail = tail[4:]
	if uint32(len(tail)) < oldLen {
		return nil, nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	oldValue = append([]byte(nil), tail[:oldLen]...)
	tail = tail[oldLen:]

	if len(tail) < 4 {
		return nil, nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	newLen := binary.BigEndian.Uint32(tail)
	tail = tail[4:]
	if uint32(len(tail)) < newLen+8 {
		return nil, nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	newValue = append([]byte(nil), tail[:newLen]...)
	tail = tail[newLen:]

	rid.PageNum = int32(binary.BigEndian.Uint32(tail))
	rid.Slot = int32(binary.BigEndian.Uint32(tail[4:]))
	tail = tail[8:]

	if len(tail) < 8 {
		return nil, nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	tlen := binary.BigEndian.Uint64(tail)
	tail = tail[8:]
	if uint64(len(tail)) < tlen {
		return nil, nil, Rid{}, "", fmt.Errorf("wal: truncated tail")
	}
	table = string(tail[:tlen])
	return oldValue, newValue, rid, table, nil
}

func decodeNewPageTail(tail []byte) (table string, pageNumber int32, err error) {
	if len(tail) < 8 {
		return "", 0, fmt.Errorf("wal: truncated tail")
	}
	tlen := binary.BigEndian.Uint64(tail)
	tail = tail[8:]
	if uint64(len(tail)) < tlen+4 {
		return "", 0, fmt.Errorf("wal: truncated tail")
	}
	table = string(tail[:tlen])
	tail = tail[tlen:]
	pageNumber = int32(binary.BigEndian.Uint32(tail))
	return table, pageNumber, nil
}
