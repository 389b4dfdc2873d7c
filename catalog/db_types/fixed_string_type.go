package db_types

import "bytes"

// FixedStringType stores a CHAR(n) value: comparison and equality are
// bytewise over the full fixed length, padding bytes included.
type FixedStringType struct {
	Size uint32
}

func (f FixedStringType) Compare(a, b *Value) int {
	return bytes.Compare(padded(a.AsString(), f.Size), padded(b.AsString(), f.Size))
}

func (f FixedStringType) Serialize(dest []byte, v *Value) {
	copy(dest, padded(v.AsString(), f.Size))
}

func (f FixedStringType) Deserialize(src []byte) *Value {
	return NewFixedString(string(src[:f.Size]), f.Size)
}

func (f FixedStringType) Length() int { return int(f.Size) }

func (f FixedStringType) TypeId() TypeID { return TypeID{Kind: KindFixedString, Size: f.Size} }

// padded right-pads s with ASCII spaces to size bytes, truncating if s is
// already longer, mirroring §8 E1's "space-padded to 8" fixture.
func padded(s string, size uint32) []byte {
	buf := make([]byte, size)
	n := copy(buf, s)
	for i := n; i < int(size); i++ {
		buf[i] = ' '
	}
	return buf
}
