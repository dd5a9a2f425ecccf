package secure

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "6368616e676520746869732070617373776f726420746f206120736563726574"

func TestNewBoxRejectsBadKeys(t *testing.T) {
	for _, key := range []string{"", "abc", "zz" + testKey[2:], testKey[:32]} {
		_, err := NewBox(key)
		assert.ErrorIs(t, err, ErrBadKey, "key %q", key)
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal("MG Road, Bengaluru 560001")
	require.NoError(t, err)
	require.NotEmpty(t, sealed)

	got, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "MG Road, Bengaluru 560001", got)

	// Nonces are random, so sealing twice differs.
	again, err := box.Seal("MG Road, Bengaluru 560001")
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)
}

func TestSealEmptyIsNil(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal("")
	require.NoError(t, err)
	assert.Nil(t, sealed)

	got, err := box.Open(nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestOpenRejectsTampering(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	sealed, err := box.Seal("Jayanagar 4th Block")
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0x01
	_, err = box.Open(sealed)
	assert.ErrorIs(t, err, ErrOpenFailed)

	_, err = box.Open([]byte("short"))
	assert.ErrorIs(t, err, ErrOpenFailed)

	// A different key cannot open the box.
	other, err := NewBox(strings.Repeat("ab", 32))
	require.NoError(t, err)
	sealed2, err := box.Seal("Jayanagar 4th Block")
	require.NoError(t, err)
	_, err = other.Open(sealed2)
	assert.ErrorIs(t, err, ErrOpenFailed)
}
