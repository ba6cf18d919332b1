package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func TestEncryptPasswordRoundTrip(t *testing.T) {
	key := generateTestKey(t)
	raw := EncodePublicKey(&key.PublicKey)

	for _, password := range []string{"topolinoJosh!", "", "pässwörd with ünïcode"} {
		t.Run(password, func(t *testing.T) {
			enc, err := EncryptPassword(password, raw)
			require.NoError(t, err)

			ciphertext, err := base64.StdEncoding.DecodeString(enc)
			require.NoError(t, err)
			assert.Len(t, ciphertext, key.Size())

			plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
			require.NoError(t, err)
			assert.Equal(t, []byte(password), plaintext)
		})
	}
}

func TestEncryptPasswordIsRandomized(t *testing.T) {
	key := generateTestKey(t)
	raw := EncodePublicKey(&key.PublicKey)

	first, err := EncryptPassword("same", raw)
	require.NoError(t, err)
	second, err := EncryptPassword("same", raw)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	for _, enc := range []string{first, second} {
		plaintext, err := DecryptPassword(enc, key)
		require.NoError(t, err)
		assert.Equal(t, "same", plaintext)
	}
}

func TestWrapPublicKey(t *testing.T) {
	key := generateTestKey(t)
	raw := EncodePublicKey(&key.PublicKey)
	assert.NotContains(t, raw, "BEGIN")

	wrapped := string(WrapPublicKey(raw))
	assert.True(t, strings.HasPrefix(wrapped, "-----BEGIN RSA PUBLIC KEY-----\n"))
	assert.True(t, strings.HasSuffix(wrapped, "\n-----END RSA PUBLIC KEY-----"))

	parsed, err := ParsePublicKey(raw)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, parsed.N)
	assert.Equal(t, key.PublicKey.E, parsed.E)

	t.Run("singleLine", func(t *testing.T) {
		oneLine := strings.ReplaceAll(raw, "\n", "")
		parsed, err := ParsePublicKey(oneLine)
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, parsed.N)
	})
	t.Run("alreadyWrapped", func(t *testing.T) {
		assert.Equal(t, wrapped, string(WrapPublicKey(wrapped)))
		parsed, err := ParsePublicKey(wrapped)
		require.NoError(t, err)
		assert.Equal(t, key.PublicKey.N, parsed.N)
	})
}

func TestParsePublicKeyPKIXFallback(t *testing.T) {
	key := generateTestKey(t)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	raw := base64.StdEncoding.EncodeToString(der)

	parsed, err := ParsePublicKey(raw)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, parsed.N)
}

func TestParsePublicKeyInvalid(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecDER, err := x509.MarshalPKIXPublicKey(&ecKey.PublicKey)
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "notBase64", raw: "this is not a key!"},
		{name: "garbage", raw: base64.StdEncoding.EncodeToString([]byte("garbage bytes"))},
		{name: "ecKey", raw: base64.StdEncoding.EncodeToString(ecDER)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePublicKey(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidKey)
			_, err = EncryptPassword("secret", tt.raw)
			assert.ErrorIs(t, err, ErrInvalidKey)
		})
	}
}

func TestEncryptPasswordTooLong(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	raw := EncodePublicKey(&key.PublicKey)

	_, err = EncryptPassword(strings.Repeat("x", key.Size()), raw)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidKey)
}

func TestEncodePublicKeyMatchesPEMBody(t *testing.T) {
	key := generateTestKey(t)
	raw := EncodePublicKey(&key.PublicKey)
	block, _ := pem.Decode(WrapPublicKey(raw))
	require.NotNil(t, block)
	assert.Equal(t, "RSA PUBLIC KEY", block.Type)
	assert.Equal(t, x509.MarshalPKCS1PublicKey(&key.PublicKey), block.Bytes)
}
