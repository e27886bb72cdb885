package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key, err := LoadOrGenerateKey(filepath.Join(t.TempDir(), "config.key"))
	require.NoError(t, err)
	c, err := NewCrypter(key)
	require.NoError(t, err)

	encoded, err := c.Encrypt("s3cret-p@ss")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(encoded))
	assert.NotContains(t, encoded, "s3cret")

	plain, err := c.Decrypt(encoded)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-p@ss", plain)

	// 相同明文每次加密产生不同密文 (随机 nonce)
	again, err := c.Encrypt("s3cret-p@ss")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again)
}

func TestDecryptRejectsTampledCiphertext(t *testing.T) {
	key, err := LoadOrGenerateKey(filepath.Join(t.TempDir(), "config.key"))
	require.NoError(t, err)
	c, err := NewCrypter(key)
	require.NoError(t, err)

	encoded, err := c.Encrypt("value")
	require.NoError(t, err)
	tampered := encoded[:len(encoded)-2] + "zz"
	_, err = c.Decrypt(tampered)
	assert.Error(t, err)
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	dir := t.TempDir()
	key1, err := LoadOrGenerateKey(filepath.Join(dir, "k1"))
	require.NoError(t, err)
	key2, err := LoadOrGenerateKey(filepath.Join(dir, "k2"))
	require.NoError(t, err)

	c1, _ := NewCrypter(key1)
	c2, _ := NewCrypter(key2)
	encoded, err := c1.Encrypt("value")
	require.NoError(t, err)
	_, err = c2.Decrypt(encoded)
	assert.Error(t, err)
}

func TestLoadOrGenerateKeyIsStable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.key")
	first, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	require.Len(t, first, KeySize)

	// 密钥文件只读权限
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrGenerateKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
