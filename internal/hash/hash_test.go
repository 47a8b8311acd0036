package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	h1, err := HashPassword("secret1")
	require.NoError(t, err)
	h2, err := HashPassword("secret1")
	require.NoError(t, err)

	require.NotEqual(t, h1, h2, "salted hashes of the same password must differ")
	require.True(t, CheckPassword(h1, "secret1"))
	require.True(t, CheckPassword(h2, "secret1"))
	require.False(t, CheckPassword(h1, "wrong"))
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	require.False(t, CheckPassword("not-a-bcrypt-hash", "secret1"))
	require.False(t, CheckPassword("", "secret1"))
}
