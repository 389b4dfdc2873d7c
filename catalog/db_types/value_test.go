package db_types

import (
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
)

func TestValue_SerializeDeserialize_RoundTrips(t *testing.T) {
	faker := gofakeit.New(0)

	cases := []*Value{
		NewInt32(faker.Int32()),
		NewInt64(faker.Int64()),
		NewFloat64(faker.Float64()),
		NewFixedString("hello", 8),
		NewDateTime(DateTime{Year: 2024, Month: 3, Day: 14, Hour: 9, Min: 30, Sec: 1, Valid: true}),
	}

	for _, v := range cases {
		buf := make([]byte, v.Size())
		v.Serialize(buf)
		got := Deserialize(v.TypeId(), buf)
		assert.Equal(t, 0, v.Compare(got), "%s: round trip changed value", v.TypeId().Kind)
	}
}

func TestInt32Type_Compare_IsSigned(t *testing.T) {
	neg := NewInt32(-5)
	pos := NewInt32(5)
	assert.Equal(t, -1, neg.Compare(pos))
	assert.Equal(t, 1, pos.Compare(neg))
	assert.Equal(t, 0, pos.Compare(NewInt32(5)))
}

func TestFixedStringType_Serialize_PadsToSize(t *testing.T) {
	v := NewFixedString("go", 8)
	buf := make([]byte, 8)
	v.Serialize(buf)
	got := Deserialize(v.TypeId(), buf)
	assert.Equal(t, "go", trimSpacePadding(got.AsString()))
}

func trimSpacePadding(s string) string {
	for i := len(s); i > 0; i-- {
		if s[i-1] != ' ' {
			return s[:i]
		}
	}
	return ""
}

func TestFloat64Type_Compare_Orders(t *testing.T) {
	assert.Equal(t, -1, NewFloat64(1.5).Compare(NewFloat64(2.5)))
	assert.Equal(t, 1, NewFloat64(2.5).Compare(NewFloat64(1.5)))
}
