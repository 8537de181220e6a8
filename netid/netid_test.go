package netid

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestFromSeedDeterministic(t *testing.T) {
	a := FromSeed([]byte("genesis payload"))
	b := FromSeed([]byte("genesis payload"))
	c := FromSeed([]byte("other payload"))

	require.True(t, a.Equal(b))
	require.False(t, a.Equal(c))
	require.NotEmpty(t, a.String())
}

func TestStringRoundTrip(t *testing.T) {
	a := FromSeed([]byte("genesis payload"))

	parsed, err := FromString(a.String())
	require.NoError(t, err)
	require.True(t, a.Equal(parsed))
}

func TestFromStringRejectsGarbage(t *testing.T) {
	_, err := FromString("not base32!")
	require.Error(t, err)

	_, err = FromString("MZXW6===") // valid base32, wrong length
	require.ErrorIs(t, err, ErrInvalidLength)
}

func TestCBORRoundTrip(t *testing.T) {
	a, err := Random()
	require.NoError(t, err)

	raw, err := cbor.Marshal(a)
	require.NoError(t, err)

	b := &ID{}
	require.NoError(t, cbor.Unmarshal(raw, b))
	require.True(t, a.Equal(b))
	require.Equal(t, a.String(), b.String())
}

func TestIsZero(t *testing.T) {
	var id ID
	require.True(t, id.IsZero())
	require.False(t, FromSeed([]byte("x")).IsZero())
}
