// Package config loads zpass settings from YAML and ZPASS_ environment
// variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"xdao.co/zpass/hashing"
	"xdao.co/zpass/zkcrypto"
)

// EnvPrefix is prepended to every environment override, e.g. ZPASS_LOG_LEVEL.
const EnvPrefix = "ZPASS"

type Config struct {
	// Network is the default parameter set: testnet or mainnet.
	Network string `mapstructure:"network"`

	// HashAlgorithm is the default credential hash.
	HashAlgorithm string `mapstructure:"hash_algorithm"`

	// Listen is the signer daemon's gRPC address.
	Listen string `mapstructure:"listen"`

	// Timeout bounds each client RPC.
	Timeout time.Duration `mapstructure:"timeout"`

	// ReceiptsDir, when set, archives a receipt for every signature.
	ReceiptsDir string `mapstructure:"receipts_dir"`

	// KeysDir overrides the local key store location.
	KeysDir string `mapstructure:"keys_dir"`

	Log LogConfig `mapstructure:"log"`
}

// LogConfig defines logger settings.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format: console or json
	Format string `mapstructure:"format"`
	// Outputs: stdout, stderr, or file paths
	Outputs     []string       `mapstructure:"outputs"`
	Rotation    RotationConfig `mapstructure:"rotation"`
	Development bool           `mapstructure:"development"`
}

// RotationConfig controls rotation of file outputs.
type RotationConfig struct {
	Enable     bool   `mapstructure:"enable"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

func Default() *Config {
	return &Config{
		Network:       zkcrypto.Testnet.String(),
		HashAlgorithm: hashing.Poseidon2.String(),
		Listen:        "127.0.0.1:7443",
		Timeout:       10 * time.Second,
		Log: LogConfig{
			Level:   "info",
			Format:  "console",
			Outputs: []string{"stderr"},
			Rotation: RotationConfig{
				Filename:   "logs/zpass.log",
				MaxSizeMB:  50,
				MaxBackups: 3,
				MaxAgeDays: 28,
				Compress:   true,
			},
		},
	}
}

// Load reads the file at path, or ZPASS_CONFIG, or zpass.yaml from the
// usual locations. A missing file is not an error; defaults and
// environment overrides still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("network", cfg.Network)
	v.SetDefault("hash_algorithm", cfg.HashAlgorithm)
	v.SetDefault("listen", cfg.Listen)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("receipts_dir", cfg.ReceiptsDir)
	v.SetDefault("keys_dir", cfg.KeysDir)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("log.outputs", cfg.Log.Outputs)
	v.SetDefault("log.development", cfg.Log.Development)
	v.SetDefault("log.rotation.enable", cfg.Log.Rotation.Enable)
	v.SetDefault("log.rotation.filename", cfg.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", cfg.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", cfg.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", cfg.Log.Rotation.MaxAgeDays)
	v.SetDefault("log.rotation.compress", cfg.Log.Rotation.Compress)

	if path == "" {
		path = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("zpass")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".zpass"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Log.Level)) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log.level: %q", c.Log.Level)
	}
	if _, err := zkcrypto.ParseNetwork(c.Network); err != nil {
		return fmt.Errorf("invalid network: %w", err)
	}
	if _, err := hashing.ParseAlgorithm(c.HashAlgorithm); err != nil {
		return fmt.Errorf("invalid hash_algorithm: %w", err)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("invalid timeout: %s", c.Timeout)
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if len(c.Log.Outputs) == 0 {
		c.Log.Outputs = []string{"stderr"}
	}
	return nil
}

// NetworkID returns the validated network.
func (c *Config) NetworkID() zkcrypto.Network {
	n, _ := zkcrypto.ParseNetwork(c.Network)
	return n
}

// Algorithm returns the validated hash algorithm.
func (c *Config) Algorithm() hashing.Algorithm {
	a, _ := hashing.ParseAlgorithm(c.HashAlgorithm)
	return a
}
