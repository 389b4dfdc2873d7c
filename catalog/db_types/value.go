package db_types

// Value is a typed runtime value: a column's type together with its Go
// representation, grounded on thetarby-helindb/catalog/db_types.Value.
type Value struct {
	typeID TypeID
	val    interface{}
}

func NewInt32(v int32) *Value       { return &Value{typeID: TypeID{Kind: KindInt32}, val: v} }
func NewInt64(v int64) *Value       { return &Value{typeID: TypeID{Kind: KindInt64}, val: v} }
func NewFloat64(v float64) *Value   { return &Value{typeID: TypeID{Kind: KindFloat64}, val: v} }
func NewDateTime(v DateTime) *Value { return &Value{typeID: TypeID{Kind: KindDateTime}, val: v} }

// NewFixedString wraps s as a FIXED-STRING(size) value; the caller is
// responsible for having already padded s to size bytes (column
// serialization pads on Serialize too, so callers may also pass an
// unpadded shorter string).
func NewFixedString(s string, size uint32) *Value {
	return &Value{typeID: TypeID{Kind: KindFixedString, Size: size}, val: s}
}

func (v *Value) TypeId() TypeID { return v.typeID }

func (v *Value) AsInt32() int32         { return v.val.(int32) }
func (v *Value) AsInt64() int64         { return v.val.(int64) }
func (v *Value) AsFloat64() float64     { return v.val.(float64) }
func (v *Value) AsString() string       { return v.val.(string) }
func (v *Value) AsDateTime() DateTime   { return v.val.(DateTime) }
func (v *Value) Raw() interface{}       { return v.val }

// Compare returns -1, 0 or 1 comparing v against other, which must share
// v's TypeID.Kind.
func (v *Value) Compare(other *Value) int {
	return GetType(v.typeID).Compare(v, other)
}

func (v *Value) Less(other *Value) bool { return v.Compare(other) < 0 }

func (v *Value) Serialize(dest []byte) { GetType(v.typeID).Serialize(dest, v) }

func (v *Value) Size() int { return GetType(v.typeID).Length() }

func Deserialize(id TypeID, src []byte) *Value { return GetType(id).Deserialize(src) }
