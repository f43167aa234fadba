package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, int64(1), cfg.ChainID)
	assert.Equal(t, "https://api.0x.org/swap/v1", cfg.ZeroExAPIURL)
	assert.Equal(t, "https://api.etherscan.io/api", cfg.EtherscanAPIURL)
	assert.Equal(t, 5, cfg.ExplorerRateLimit)
	assert.Equal(t, 10*time.Second, cfg.PriceInterval)
	assert.Equal(t, 300*time.Millisecond, cfg.PriceDebounce)
	assert.Equal(t, 60*time.Second, cfg.GasInterval)
	assert.Equal(t, 10*time.Minute, cfg.ApprovalTimeout)
	assert.Equal(t, uint64(10000), cfg.ActivityBlockWindow)
	assert.Equal(t, []string{"WETH", "USDC", "DAI"}, cfg.TrackedTokens)
	assert.Equal(t, filepath.Join(home, ".intent-swap", "default.keystore"), cfg.KeystorePath)
	assert.Equal(t, "https://etherscan.io/tx/0xabc", cfg.TxURL("0xabc"))

	assert.Error(t, cfg.RequireChain())
	assert.Error(t, cfg.RequireWallet())
}

func TestLoadFileAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := filepath.Join(t.TempDir(), "swap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
chain_id: 11155111
rpc_url: https://rpc.sepolia.example
keystore_path: ~/keys/test.keystore
price_interval: 5s
tracked_tokens:
  - weth
  - usdc
`), 0600))

	t.Setenv("INTENT_SWAP_KEYSTORE_PASSPHRASE", "secret")
	t.Setenv("INTENT_SWAP_ZEROEX_API_KEY", "key")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(11155111), cfg.ChainID)
	assert.Equal(t, "https://rpc.sepolia.example", cfg.RPCURL)
	assert.Equal(t, "secret", cfg.KeystorePassphrase)
	assert.Equal(t, "key", cfg.ZeroExAPIKey)
	assert.Equal(t, 5*time.Second, cfg.PriceInterval)
	assert.Equal(t, []string{"WETH", "USDC"}, cfg.TrackedTokens)
	assert.Equal(t, filepath.Join(home, "keys", "test.keystore"), cfg.KeystorePath)
	assert.NoError(t, cfg.RequireChain())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"WETH", "USDC", "DAI"}, splitList([]string{"weth, usdc", "dai"}))
	assert.Nil(t, splitList(nil))
}
