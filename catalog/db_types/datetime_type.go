package db_types

import "fmt"

// DateTime is a 7-byte calendar value (year u16, month/day/hour/min/sec
// u8) plus a validity flag distinguishing a real value from an
// unset/invalid one.
type DateTime struct {
	Year                          uint16
	Month, Day, Hour, Min, Sec    uint8
	Valid                         bool
}

func (d DateTime) String() string {
	if !d.Valid {
		return "invalid"
	}
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.Year, d.Month, d.Day, d.Hour, d.Min, d.Sec)
}

// DateTimeType compares two DateTime values lexicographically over their
// calendar fields; an invalid value sorts before every valid one.
type DateTimeType struct{}

const dateTimeWireLen = 8 // 7 calendar bytes + 1 validity byte

func (DateTimeType) Compare(a, b *Value) int {
	x, y := a.AsDateTime(), b.AsDateTime()
	if x.Valid != y.Valid {
		if !x.Valid {
			return -1
		}
		return 1
	}
	xs, ys := x.String(), y.String()
	switch {
	case xs < ys:
		return -1
	case xs > ys:
		return 1
	default:
		return 0
	}
}

func (DateTimeType) Serialize(dest []byte, v *Value) {
	d := v.AsDateTime()
	dest[0] = byte(d.Year >> 8)
	dest[1] = byte(d.Year)
	dest[2] = d.Month
	dest[3] = d.Day
	dest[4] = d.Hour
	dest[5] = d.Min
	dest[6] = d.Sec
	if d.Valid {
		dest[7] = 1
	} else {
		dest[7] = 0
	}
}

func (DateTimeType) Deserialize(src []byte) *Value {
	d := DateTime{
		Year:  uint16(src[0])<<8 | uint16(src[1]),
		Month: src[2],
		Day:   src[3],
		Hour:  src[4],
		Min:   src[5],
		Sec:   src[6],
		Valid: src[7] != 0,
	}
	return NewDateTime(d)
}

func (DateTimeType) Length() int { return dateTimeWireLen }

func (DateTimeType) TypeId() TypeID { return TypeID{Kind: KindDateTime} }
