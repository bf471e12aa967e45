package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testParams = Argon2Params{
	Time:    1,
	Memory:  8 * 1024,
	Threads: 1,
	KeyLen:  32,
	SaltLen: 16,
}

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(testParams)
	require.NoError(t, err)
	return h
}

func TestPasswordHasher_HashAndVerify(t *testing.T) {
	h := newTestHasher(t)

	tests := []struct {
		name     string
		password string
		attempt  string
		want     bool
	}{
		{name: "matching password", password: "s3cret-pass", attempt: "s3cret-pass", want: true},
		{name: "wrong password", password: "s3cret-pass", attempt: "s3cret-pasS", want: false},
		{name: "empty attempt", password: "s3cret-pass", attempt: "", want: false},
		{name: "unicode", password: "pässwörd✓", attempt: "pässwörd✓", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$"))

			ok, err := h.Verify(tt.attempt, hash)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestPasswordHasher_SaltsDiffer(t *testing.T) {
	h := newTestHasher(t)
	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPasswordHasher_LegacyBcrypt(t *testing.T) {
	h := newTestHasher(t)
	legacy, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	ok, err := h.Verify("legacy-pass", string(legacy))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.Verify("nope", string(legacy))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, h.NeedsRehash(string(legacy)))
}

func TestPasswordHasher_MalformedHash(t *testing.T) {
	h := newTestHasher(t)

	for _, hash := range []string{
		"",
		"plaintext",
		"$argon2id$v=19$m=1,t=1,p=1$onlysalt",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$aGFzaA",
	} {
		ok, err := h.Verify("whatever", hash)
		assert.Error(t, err, hash)
		assert.False(t, ok)
	}
}

func TestPasswordHasher_NeedsRehash(t *testing.T) {
	h := newTestHasher(t)
	current, err := h.Hash("pw")
	require.NoError(t, err)
	assert.False(t, h.NeedsRehash(current))

	stronger, err := NewPasswordHasher(Argon2Params{Time: 2, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)
	assert.True(t, stronger.NeedsRehash(current))

	ok, err := stronger.Verify("pw", current)
	require.NoError(t, err)
	assert.True(t, ok)
}
