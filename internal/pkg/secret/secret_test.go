package secret

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBox(t *testing.T) {
	box := New("passphrase")

	t.Run("round trip", func(t *testing.T) {
		sealed, err := box.Seal("sk-abcdefghijklmnopqrstuvwxyz")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(sealed, prefix))
		assert.NotContains(t, sealed, "sk-abc")

		plain, err := box.Open(sealed)
		require.NoError(t, err)
		assert.Equal(t, "sk-abcdefghijklmnopqrstuvwxyz", plain)
	})

	t.Run("random nonce", func(t *testing.T) {
		a, _ := box.Seal("same")
		b, _ := box.Seal("same")
		assert.NotEqual(t, a, b)
	})

	t.Run("wrong key", func(t *testing.T) {
		sealed, _ := box.Seal("value")
		_, err := New("other").Open(sealed)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("garbage input", func(t *testing.T) {
		for _, in := range []string{"", "plain", prefix + "!!!", prefix + "AAAA"} {
			_, err := box.Open(in)
			assert.ErrorIs(t, err, ErrDecrypt, in)
		}
	})
}
