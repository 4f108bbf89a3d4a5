package component

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"Sine", Sine},
		{"sine", Sine},
		{"lower_saturator", LowerSaturator},
		{"Upper-Saturator", UpperSaturator},
		{"AND", And},
		{"differentiator", Differentiator},
	}

	for _, tt := range tests {
		got, err := ParseType(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseType("wobbler")
	assert.Error(t, err)
}

func TestType_String(t *testing.T) {
	assert.Equal(t, "Amplifier", Amplifier.String())
	assert.Equal(t, "Or", Or.String())
	assert.Equal(t, "Type(99)", Type(99).String())
	assert.False(t, Type(-1).Valid())
}

func TestTypes_RoundTripNames(t *testing.T) {
	types := Types()
	require.Len(t, types, 18)
	for _, typ := range types {
		parsed, err := ParseType(typ.String())
		require.NoError(t, err)
		assert.Equal(t, typ, parsed)
	}
}

func TestType_Slots(t *testing.T) {
	assert.Equal(t, []string{"frequency", "duty"}, Square.Slots())
	assert.Empty(t, Noise.Slots())
	assert.Nil(t, Type(42).Slots())

	for _, typ := range Types() {
		assert.Less(t, len(typ.Slots()), InputCount, typ.String())
	}
}

func TestType_TextMarshaling(t *testing.T) {
	text, err := Integrator.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "Integrator", string(text))

	var typ Type
	require.NoError(t, typ.UnmarshalText([]byte("triangle")))
	assert.Equal(t, Triangle, typ)

	_, err = Type(77).MarshalText()
	assert.Error(t, err)
}
