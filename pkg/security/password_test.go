package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aguasol/aguasol-backend/pkg/config"
)

var cheap = config.PasswordConfig{
	ArgonMemoryKB:    1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerify(t *testing.T) {
	hash, err := HashPassword("agua2026", cheap)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"), hash)

	ok, err := VerifyPassword("agua2026", hash)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = VerifyPassword("agua2027", hash)
	require.NoError(t, err)
	require.False(t, ok)

	again, err := HashPassword("agua2026", cheap)
	require.NoError(t, err)
	require.NotEqual(t, hash, again, "salts must differ")
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", cheap)
	require.ErrorIs(t, err, errEmptyPassword)
}

func TestVerifyPasswordMalformed(t *testing.T) {
	for _, bad := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=0,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$!!$a2V5",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA",
	} {
		_, err := VerifyPassword("x", bad)
		assert.ErrorIs(t, err, ErrInvalidHash, bad)
	}
}

func TestNeedsRehash(t *testing.T) {
	hash, err := HashPassword("agua2026", cheap)
	require.NoError(t, err)
	require.False(t, NeedsRehash(hash, cheap))

	stronger := cheap
	stronger.ArgonTime = 2
	require.True(t, NeedsRehash(hash, stronger))

	longer := cheap
	longer.ArgonKeyLen = 64
	require.True(t, NeedsRehash(hash, longer))

	require.True(t, NeedsRehash("garbage", cheap))
}

func TestParamsAreClamped(t *testing.T) {
	p := paramsFor(config.PasswordConfig{ArgonMemoryKB: 1, ArgonTime: 99, ArgonParallelism: 0, ArgonSaltLen: 500, ArgonKeyLen: 4})
	assert.Equal(t, uint32(8), p.memory)
	assert.Equal(t, uint32(10), p.passes)
	assert.Equal(t, uint8(1), p.threads)
	assert.Equal(t, 64, p.saltLen)
	assert.Equal(t, uint32(16), p.keyLen)
}

func TestValidatePasswordStrength(t *testing.T) {
	cases := map[string]bool{
		"agua2026":    true,
		"bidón20L!":   true,
		"short1":      false,
		"onlyletters": false,
		"1234567890":  false,
	}
	for input, ok := range cases {
		err := ValidatePasswordStrength(input)
		if ok {
			assert.NoError(t, err, input)
		} else {
			assert.Error(t, err, input)
		}
	}
}

func TestGenerateTempPassword(t *testing.T) {
	for range 20 {
		pw, err := GenerateTempPassword(10)
		require.NoError(t, err)
		require.Len(t, pw, 10)
		require.True(t, hasLetterAndDigit(pw))
		require.NotContainsf(t, pw, "0", "ambiguous characters are excluded")
	}

	_, err := GenerateTempPassword(1)
	require.Error(t, err)
}
