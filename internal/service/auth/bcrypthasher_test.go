package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_BcryptHasher(t *testing.T) {
	t.Parallel()

	hasher := BcryptHasher{}

	t.Run("hash and compare", func(t *testing.T) {
		hash, err := hasher.Hash("p@ss1234")
		require.NoError(t, err)
		require.NotEqual(t, "p@ss1234", hash, "hash must not be the plaintext")

		require.NoError(t, hasher.Compare(hash, "p@ss1234"))
		require.Error(t, hasher.Compare(hash, "wrong"))
	})

	t.Run("long password is fine", func(t *testing.T) {
		// Plain bcrypt truncates at 72 bytes, the sha256 pre-hash lifts that
		long := strings.Repeat("a", 100)

		hash, err := hasher.Hash(long)
		require.NoError(t, err)

		require.NoError(t, hasher.Compare(hash, long))
		require.Error(t, hasher.Compare(hash, long+"b"))
	})

	t.Run("same password different hashes", func(t *testing.T) {
		hash1, err := hasher.Hash("p@ss1234")
		require.NoError(t, err)
		hash2, err := hasher.Hash("p@ss1234")
		require.NoError(t, err)

		require.NotEqual(t, hash1, hash2, "bcrypt salt should differ")
	})
}
