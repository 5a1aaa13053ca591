package number

import (
	"math"
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"12", "12"},
		{"-3.5", "-3.5"},
		{".5", "0.5"},
		{"1e-3", "0.001"},
		{"+2", "2"},
		{"1e3", "1000"},
		{"0.10", "0.10"},
	}
	for _, tt := range tests {
		d, err := Parse(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.out, Format(d), tt.in)
	}
	for _, bad := range []string{"", "abc", "1.2.3", "NaN", "inf", "--1"} {
		_, err := Parse(bad)
		assert.ErrorIs(t, err, ErrMalformed, bad)
	}
}

func TestExactArithmetic(t *testing.T) {
	a, b := MustParse("0.1"), MustParse("0.2")
	assert.Equal(t, "0.3", Format(Add(a, b)))
	assert.Equal(t, "-0.1", Format(Sub(a, b)))
	assert.Equal(t, "0.02", Format(Mul(a, b)))
	big := MustParse("123456789012345678901234567890")
	assert.Equal(t, "123456789012345678901234567891", Format(Add(big, One)))
	assert.Equal(t, "0", Format(Neg(Zero)))
	assert.Equal(t, "-7", Format(Neg(FromInt(7))))
}

func TestMod(t *testing.T) {
	assert.Equal(t, "1", Format(Mod(FromInt(7), FromInt(3))))
	assert.Equal(t, "-1", Format(Mod(FromInt(-7), FromInt(3))))
	assert.Equal(t, "0.2", Format(Mod(MustParse("1.7"), MustParse("0.5"))))
	assert.Equal(t, "1", Format(Mod(MustParse("1e10"), FromInt(3))))
	assert.True(t, IsNaN(Mod(FromInt(7), Zero)))
	assert.True(t, IsNaN(Mod(NaN(), One)))
	assert.True(t, IsNaN(Mod(MustParse("1e99999"), FromInt(7))))
	assert.True(t, IsNaN(Mod(apd.New(1, 999999999), FromInt(7))))
	assert.True(t, IsNaN(Mod(FromInt(7), apd.New(1, -999999999))))
	assert.Equal(t, "1", Format(Mod(MustParse("1e9000"), FromInt(7))))
}

func TestDiv(t *testing.T) {
	assert.Equal(t, "5", Format(Div(FromInt(10), FromInt(2))))
	third := Div(One, FromInt(3))
	assert.InDelta(t, 1.0/3, Float(third), 1e-15)
	assert.Equal(t, "Inf", Format(Div(One, Zero)))
	assert.Equal(t, "-Inf", Format(Div(FromInt(-1), Zero)))
	assert.True(t, IsNaN(Div(Zero, Zero)))
}

func TestCompareAndTruth(t *testing.T) {
	c, ok := Compare(FromInt(1), MustParse("1.00"))
	assert.True(t, ok)
	assert.Equal(t, 0, c)
	c, ok = Compare(FromInt(1), FromInt(2))
	assert.True(t, ok)
	assert.Equal(t, -1, c)
	_, ok = Compare(NaN(), One)
	assert.False(t, ok)
	assert.False(t, Truthy(MustParse("0.000")))
	assert.True(t, Truthy(NaN()))
	assert.True(t, Truthy(MustParse("-0.5")))
	assert.Same(t, One, Bool(true))
}

func TestConversions(t *testing.T) {
	n, err := Int(MustParse("5.0"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	_, err = Int(MustParse("5.5"))
	assert.ErrorIs(t, err, ErrNotInteger)
	_, err = Int(NaN())
	assert.ErrorIs(t, err, ErrNotInteger)
	_, err = Count(FromInt(-1))
	assert.ErrorIs(t, err, ErrNotInteger)
	assert.True(t, math.IsNaN(Float(NaN())))
	assert.True(t, math.IsInf(Float(FromFloat(math.Inf(-1))), -1))
	assert.Equal(t, "0.25", Format(FromFloat(0.25)))
}
