package db_types

import "encoding/binary"

// Int32Type stores a signed 4-byte integer, compared as a signed value.
type Int32Type struct{}

func (Int32Type) Compare(a, b *Value) int {
	x, y := a.AsInt32(), b.AsInt32()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func (Int32Type) Serialize(dest []byte, v *Value) {
	binary.BigEndian.PutUint32(dest, uint32(v.AsInt32()))
}

func (Int32Type) Deserialize(src []byte) *Value {
	return NewInt32(int32(binary.BigEndian.Uint32(src)))
}

func (Int32Type) Length() int { return 4 }

func (Int32Type) TypeId() TypeID { return TypeID{Kind: KindInt32} }

// Int64Type stores a signed 8-byte integer.
type Int64Type struct{}

func (Int64Type) Compare(a, b *Value) int {
	x, y := a.AsInt64(), b.AsInt64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func (Int64Type) Serialize(dest []byte, v *Value) {
	binary.BigEndian.PutUint64(dest, uint64(v.AsInt64()))
}

func (Int64Type) Deserialize(src []byte) *Value {
	return NewInt64(int64(binary.BigEndian.Uint64(src)))
}

func (Int64Type) Length() int { return 8 }

func (Int64Type) TypeId() TypeID { return TypeID{Kind: KindInt64} }
