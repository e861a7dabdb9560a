package metadata

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScalarConstructorsNormalize(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	v := DatetimeValue(time.Date(2024, 3, 1, 14, 30, 0, 123456789, loc))
	assert.Equal(t, time.UTC, v.Time().Location())
	assert.Equal(t, 123456000, v.Time().Nanosecond(), "truncated to microseconds")

	d := DateValue(time.Date(2024, 3, 1, 23, 59, 0, 0, loc))
	assert.Equal(t, "2024-03-01", d.Canonical())
	assert.Equal(t, 0, d.Time().Hour())
}

func TestArrayValueRejectsMixedElements(t *testing.T) {
	_, err := ArrayValue(BasicTypeString, []Value{StringValue("a"), IntValue(1)})
	assert.ErrorIs(t, err, ErrInvalidValue)

	_, err = ArrayValue(BasicTypeBoolean, []Value{BoolValue(true)})
	assert.ErrorIs(t, err, ErrInvalidValue, "boolean arrays are not supported")

	arr, err := ArrayValue(BasicTypeInteger, []Value{IntValue(1), IntValue(2)})
	require.NoError(t, err)
	nested, err := arr.Single()
	require.NoError(t, err)
	assert.Equal(t, arr, nested, "Single on an array is the identity")
}

func TestEqualAndCompare(t *testing.T) {
	a := DecimalValue(decimal.RequireFromString("1.50"))
	b := DecimalValue(decimal.RequireFromString("1.5"))
	assert.True(t, a.Equal(b), "decimals compare numerically")
	assert.NotEqual(t, a.Canonical(), b.Canonical(), "scale is preserved")

	cmp, err := a.Compare(DecimalValue(decimal.RequireFromString("2")))
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	_, err = StringValue("a").Compare(StringValue("b"))
	assert.ErrorIs(t, err, ErrInvalidValue, "strings have no ordering")

	_, err = IntValue(1).Compare(FloatValue(1))
	assert.ErrorIs(t, err, ErrInvalidValue, "mixed types do not compare")
}

func TestContains(t *testing.T) {
	arr, err := ArrayValue(BasicTypeString, []Value{StringValue("red"), StringValue("green")})
	require.NoError(t, err)
	assert.True(t, arr.Contains(StringValue("green")))
	assert.False(t, arr.Contains(StringValue("blue")))
	assert.False(t, arr.Contains(IntValue(1)), "element type must match")
	assert.False(t, StringValue("red").Contains(StringValue("red")), "scalars contain nothing")
}

func TestCanonicalParseScalarRoundTrip(t *testing.T) {
	now := time.Date(2024, 6, 15, 9, 30, 45, 123456000, time.UTC)
	values := []Value{
		BoolValue(true),
		IntValue(-42),
		FloatValue(2.5),
		StringValue("hello world"),
		DecimalValue(decimal.RequireFromString("99.990")),
		DateValue(now),
		DatetimeValue(now),
	}
	for _, v := range values {
		parsed, err := ParseScalar(v.BasicType(), v.Canonical())
		require.NoError(t, err, "parse %s %q", v.BasicType(), v.Canonical())
		assert.True(t, v.Equal(parsed), "round trip %s %q", v.BasicType(), v.Canonical())
		assert.Equal(t, v.Canonical(), parsed.Canonical())
	}

	_, err := ParseScalar(BasicTypeInteger, "not a number")
	assert.ErrorIs(t, err, ErrInvalidValue)
}

func TestValueJSONRoundTrip(t *testing.T) {
	arr, err := ArrayValue(BasicTypeDecimal, []Value{
		DecimalValue(decimal.RequireFromString("0.10")),
		DecimalValue(decimal.RequireFromString("1.25")),
	})
	require.NoError(t, err)
	values := []Value{
		BoolValue(false),
		IntValue(7),
		StringValue("x"),
		DatetimeValue(time.Now()),
		arr,
	}
	for _, v := range values {
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var got Value
		require.NoError(t, json.Unmarshal(data, &got))
		assert.True(t, v.Equal(got), "json round trip of %s", v.Canonical())
	}

	var invalid Value
	err = json.Unmarshal([]byte(`{"type":{"basic":"ARRAY"},"value":[]}`), &invalid)
	assert.Error(t, err, "array type without element type")
}
