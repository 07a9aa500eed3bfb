package security_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/coursevault-backend/pkg/config"
	"github.com/angelmondragon/coursevault-backend/pkg/security"
)

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", testPasswordConfig())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

	ok, err := security.VerifyPassword("very-secure-password", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = security.VerifyPassword("bogus-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashPasswordRejectsShortInput(t *testing.T) {
	_, err := security.HashPassword("short", testPasswordConfig())
	assert.ErrorIs(t, err, security.ErrPasswordTooShort)

	_, err = security.HashPassword("", testPasswordConfig())
	assert.Error(t, err)
}

func TestVerifyPasswordBadHash(t *testing.T) {
	_, err := security.VerifyPassword("irrelevant", "not-a-hash")
	assert.ErrorIs(t, err, security.ErrInvalidHash)
}

func TestVerifyPasswordRejectsTamperedParams(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", testPasswordConfig())
	require.NoError(t, err)

	for name, mutate := range map[string]func(string) string{
		"version":    func(h string) string { return strings.Replace(h, "v=19", "v=16", 1) },
		"zero-time":  func(h string) string { return strings.Replace(h, "t=1", "t=0", 1) },
		"algorithm":  func(h string) string { return strings.Replace(h, "argon2id", "argon2i", 1) },
		"bad-base64": func(h string) string { return h + "!" },
	} {
		t.Run(name, func(t *testing.T) {
			_, err := security.VerifyPassword("very-secure-password", mutate(hash))
			assert.ErrorIs(t, err, security.ErrInvalidHash)
		})
	}
}

func TestHashPasswordClampsWeakConfig(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", config.PasswordConfig{})
	require.NoError(t, err)
	assert.Contains(t, hash, "$m=8,t=1,p=1$")
}
