package sunspec

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueString(t *testing.T) {
	assert.Equal(t, "N/A", Value{}.String())
	assert.Equal(t, "-5", IntValue(-5).String())
	assert.Equal(t, "150", FloatValue(150).String())
	assert.Equal(t, "49.99", FloatValue(49.99).String())
	assert.Equal(t, "SE10K", StringValue("SE10K").String())
}

func TestValueJSON(t *testing.T) {
	out, err := json.Marshal(map[string]Value{
		"a": IntValue(7),
		"b": FloatValue(1.5),
		"c": StringValue("x"),
		"d": {},
		"e": FloatValue(math.NaN()),
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":7,"b":1.5,"c":"x","d":null,"e":null}`, string(out))
}

func TestParseValue(t *testing.T) {
	for _, v := range []Value{IntValue(-42), UintValue(math.MaxUint64), FloatValue(2.301), StringValue("SolarEdge"), {}} {
		kind, err := ParseKind(v.Kind().String())
		require.NoError(t, err)
		text := v.String()
		if v.IsAbsent() {
			text = ""
		}
		got, err := ParseValue(kind, text)
		require.NoError(t, err)
		assert.True(t, v.Equal(got), "%v", v)
	}

	_, err := ParseValue(Int, "abc")
	assert.Error(t, err)
	_, err = ParseKind("bool")
	assert.Error(t, err)
}

func TestValueInt64(t *testing.T) {
	n, ok := UintValue(4).Int64()
	assert.True(t, ok)
	assert.Equal(t, int64(4), n)

	_, ok = UintValue(math.MaxUint64).Int64()
	assert.False(t, ok)
	_, ok = FloatValue(4).Int64()
	assert.False(t, ok)
}
