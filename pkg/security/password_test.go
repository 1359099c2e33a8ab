package security_test

import (
	"strings"
	"testing"

	"github.com/angelmondragon/giftops-backend/pkg/config"
	"github.com/angelmondragon/giftops-backend/pkg/security"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    8192,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password1", fastParams)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"))

	ok, err := security.VerifyPassword("very-secure-password1", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	_, err := security.HashPassword("", fastParams)
	assert.Error(t, err)
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$!!$aGFzaA",
	} {
		_, err := security.VerifyPassword("pw", encoded)
		assert.ErrorIs(t, err, security.ErrInvalidHash, encoded)
	}
}

func TestCheckPasswordPolicy(t *testing.T) {
	assert.NoError(t, security.CheckPasswordPolicy("abcdefg1"))
	assert.ErrorIs(t, security.CheckPasswordPolicy("short1"), security.ErrWeakPassword)
	assert.ErrorIs(t, security.CheckPasswordPolicy("onlyletters"), security.ErrWeakPassword)
	assert.ErrorIs(t, security.CheckPasswordPolicy("12345678"), security.ErrWeakPassword)
}

func TestGenerateTempPassword(t *testing.T) {
	pw, err := security.GenerateTempPassword(12)
	require.NoError(t, err)
	assert.Len(t, pw, 12)
	assert.NoError(t, security.CheckPasswordPolicy(pw))
	assert.NotContainsf(t, pw, "0", "ambiguous characters are excluded")

	_, err = security.GenerateTempPassword(4)
	assert.Error(t, err)
}
