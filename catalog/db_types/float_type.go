package db_types

import (
	"encoding/binary"
	"math"
)

// Float64Type stores an IEEE-754 double. NaN ordering is left to Go's
// native float comparison behavior (NaN compares false to everything,
// which Compare surfaces as neither less nor greater — callers should not
// rely on NaN ordering).
type Float64Type struct{}

func (Float64Type) Compare(a, b *Value) int {
	x, y := a.AsFloat64(), b.AsFloat64()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func (Float64Type) Serialize(dest []byte, v *Value) {
	binary.BigEndian.PutUint64(dest, math.Float64bits(v.AsFloat64()))
}

func (Float64Type) Deserialize(src []byte) *Value {
	return NewFloat64(math.Float64frombits(binary.BigEndian.Uint64(src)))
}

func (Float64Type) Length() int { return 8 }

func (Float64Type) TypeId() TypeID { return TypeID{Kind: KindFloat64} }
