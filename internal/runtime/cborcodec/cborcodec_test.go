package cborcodec

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTripUsesStringKeyedMaps(t *testing.T) {
	in := map[string]any{"a": uint64(1), "b": []any{"x", true}}
	b, err := Marshal(in)
	require.NoError(t, err)
	assert.True(t, Valid(b))

	var out any
	require.NoError(t, Unmarshal(b, &out))
	m, ok := out.(map[string]any)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, uint64(1), m["a"])
	assert.Equal(t, []any{"x", true}, m["b"])
}

func TestDeterministicKeyOrder(t *testing.T) {
	a, err := Marshal(map[string]int{"b": 1, "a": 2})
	require.NoError(t, err)
	b, err := Marshal(map[string]int{"a": 2, "b": 1})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTimeKeepsNanoseconds(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 123456789, time.UTC)
	b, err := Marshal(at)
	require.NoError(t, err)

	var out time.Time
	require.NoError(t, Unmarshal(b, &out))
	assert.True(t, at.Equal(out))
}

func TestBigIntegersDecodeAsPointers(t *testing.T) {
	n, ok := new(big.Int).SetString("123456789012345678901234567890", 10)
	require.True(t, ok)
	b, err := Marshal(n)
	require.NoError(t, err)

	var out any
	require.NoError(t, Unmarshal(b, &out))
	got, ok := out.(*big.Int)
	require.True(t, ok, "got %T", out)
	assert.Equal(t, 0, n.Cmp(got))
}

func TestValidRejectsTruncated(t *testing.T) {
	b, err := Marshal("hello")
	require.NoError(t, err)
	assert.False(t, Valid(b[:len(b)-1]))
}

func TestDiagnose(t *testing.T) {
	b, err := Marshal([]int{1, 2})
	require.NoError(t, err)
	s, err := Diagnose(b)
	require.NoError(t, err)
	assert.Equal(t, "[1, 2]", s)
}
