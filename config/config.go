package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	configName = ".intent-swap"
	envPrefix  = "INTENT_SWAP"
	dataDir    = ".intent-swap"
)

// Config holds the application configuration
type Config struct {
	ChainID int64
	RPCURL  string

	ZeroExAPIURL string
	ZeroExAPIKey string

	EtherscanAPIURL   string
	EtherscanAPIKey   string
	ExplorerRateLimit int
	ExplorerTxURL     string

	WitURL   string
	WitToken string

	KeystorePath       string
	KeystorePassphrase string
	JournalPath        string

	PriceInterval    time.Duration
	PriceDebounce    time.Duration
	ActivityInterval time.Duration
	GasInterval      time.Duration
	BalanceInterval  time.Duration

	ActivityBlockWindow uint64
	ApprovalTimeout     time.Duration
	TrackedTokens       []string
	HTTPTimeout         time.Duration
}

// Load reads configuration from environment variables and an optional config
// file. An empty path searches $HOME and the working directory for
// .intent-swap.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME")
		v.AddConfigPath(".")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	setDefaults(v, home)

	// Read from environment variables
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		ChainID:             v.GetInt64("chain_id"),
		RPCURL:              v.GetString("rpc_url"),
		ZeroExAPIURL:        v.GetString("zeroex_api_url"),
		ZeroExAPIKey:        v.GetString("zeroex_api_key"),
		EtherscanAPIURL:     v.GetString("etherscan_api_url"),
		EtherscanAPIKey:     v.GetString("etherscan_api_key"),
		ExplorerRateLimit:   v.GetInt("explorer_rate_limit"),
		ExplorerTxURL:       v.GetString("explorer_tx_url"),
		WitURL:              v.GetString("wit_url"),
		WitToken:            v.GetString("wit_token"),
		KeystorePath:        expandHome(v.GetString("keystore_path"), home),
		KeystorePassphrase:  v.GetString("keystore_passphrase"),
		JournalPath:         expandHome(v.GetString("journal_path"), home),
		PriceInterval:       v.GetDuration("price_interval"),
		PriceDebounce:       v.GetDuration("price_debounce"),
		ActivityInterval:    v.GetDuration("activity_interval"),
		GasInterval:         v.GetDuration("gas_interval"),
		BalanceInterval:     v.GetDuration("balance_interval"),
		ActivityBlockWindow: v.GetUint64("activity_block_window"),
		ApprovalTimeout:     v.GetDuration("approval_timeout"),
		TrackedTokens:       splitList(v.GetStringSlice("tracked_tokens")),
		HTTPTimeout:         v.GetDuration("http_timeout"),
	}

	if cfg.ChainID <= 0 {
		return nil, fmt.Errorf("invalid chain_id %d", cfg.ChainID)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, home string) {
	v.SetDefault("chain_id", 1)
	v.SetDefault("zeroex_api_url", "https://api.0x.org/swap/v1")
	v.SetDefault("etherscan_api_url", "https://api.etherscan.io/api")
	v.SetDefault("explorer_rate_limit", 5)
	v.SetDefault("explorer_tx_url", "https://etherscan.io/tx/")
	v.SetDefault("wit_url", "https://api.wit.ai/message")
	v.SetDefault("keystore_path", filepath.Join(home, dataDir, "default.keystore"))
	v.SetDefault("journal_path", filepath.Join(home, dataDir, "executions.json"))
	v.SetDefault("price_interval", 10*time.Second)
	v.SetDefault("price_debounce", 300*time.Millisecond)
	v.SetDefault("activity_interval", 10*time.Second)
	v.SetDefault("gas_interval", 60*time.Second)
	v.SetDefault("balance_interval", 60*time.Second)
	v.SetDefault("activity_block_window", 10000)
	v.SetDefault("approval_timeout", 10*time.Minute)
	v.SetDefault("tracked_tokens", []string{"WETH", "USDC", "DAI"})
	v.SetDefault("http_timeout", 15*time.Second)
}

// RequireChain checks the settings needed to talk to the node
func (c *Config) RequireChain() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC URL not found. Please set %s_RPC_URL environment variable or add rpc_url to your %s.yaml config file", envPrefix, configName)
	}
	return c.RequireWallet()
}

// RequireWallet checks the settings needed to open the keystore
func (c *Config) RequireWallet() error {
	if c.KeystorePassphrase == "" {
		return fmt.Errorf("keystore passphrase not found. Please set %s_KEYSTORE_PASSPHRASE environment variable or add keystore_passphrase to your %s.yaml config file", envPrefix, configName)
	}
	return nil
}

// TxURL links a transaction on the block explorer
func (c *Config) TxURL(hash string) string {
	return c.ExplorerTxURL + hash
}

func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}

// splitList accepts both YAML lists and comma separated env values
func splitList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, strings.ToUpper(part))
			}
		}
	}
	return out
}
