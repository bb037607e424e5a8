package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/zpass/hashing"
	"xdao.co/zpass/zkcrypto"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ZPASS_CONFIG", filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load("")
	require.Error(t, err, "an explicit missing file is a read error")

	t.Setenv("ZPASS_CONFIG", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, zkcrypto.Testnet, cfg.NetworkID())
	assert.Equal(t, hashing.Poseidon2, cfg.Algorithm())
	assert.Equal(t, "127.0.0.1:7443", cfg.Listen)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"stderr"}, cfg.Log.Outputs)
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zpass.yaml")
	yaml := "network: mainnet\nhash_algorithm: keccak256\nlisten: 0.0.0.0:9000\nlog:\n  level: debug\n  format: json\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, zkcrypto.Mainnet, cfg.NetworkID())
	assert.Equal(t, hashing.Keccak256, cfg.Algorithm())
	assert.Equal(t, "0.0.0.0:9000", cfg.Listen)
	assert.Equal(t, "json", cfg.Log.Format)

	t.Setenv("ZPASS_HASH_ALGORITHM", "bhp1024")
	t.Setenv("ZPASS_LOG_LEVEL", "warn")
	t.Setenv("ZPASS_TIMEOUT", "3s")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, hashing.BHP1024, cfg.Algorithm())
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"network":   "network: devnet\n",
		"algorithm": "hash_algorithm: md5\n",
		"level":     "log:\n  level: loud\n",
		"timeout":   "timeout: 0s\n",
		"syntax":    "network: [\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := Load(path)
		assert.Error(t, err, name)
	}
}
