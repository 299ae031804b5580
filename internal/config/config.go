// Package config defines all configuration for the arbitrage engine.
// Config is loaded from a YAML file (default: configs/config.yaml) with
// sensitive fields overridable via ARBITD_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the top-level configuration. Maps directly to the YAML
// file structure.
type Config struct {
	DryRun            bool                    `mapstructure:"dry_run"`
	OrderMaxAmount    string                  `mapstructure:"order_max_amount"`
	MinProfit         string                  `mapstructure:"min_profit"`
	MaxDepth          int                     `mapstructure:"max_depth"`
	EnabledCurrencies []string                `mapstructure:"enabled_currencies"`
	BaseCurrency      string                  `mapstructure:"base_currency"`
	Admission         AdmissionConfig         `mapstructure:"admission"`
	Exchanges         map[string]ExchangeConfig `mapstructure:"exchanges"`
	Deposits          []DepositRouteConfig    `mapstructure:"deposits"`
	Journal           JournalConfig           `mapstructure:"journal"`
	Logging           LoggingConfig           `mapstructure:"logging"`
	Metrics           MetricsConfig           `mapstructure:"metrics"`
}

// AdmissionConfig controls how many arbitrage sequences may be
// in-flight at once and how closely spaced they may start.
//
//   - AllowSequentialWithinExchange: whether a chain of length > 1 is
//     acceptable within a single exchange.
//   - MultipleSequences: allow more than one in-flight sequence.
//   - MaximumSequences: cap on concurrent sequences, 0 = unlimited.
//   - TimeBetweenSequences: minimum interval between sequence starts.
type AdmissionConfig struct {
	AllowSequentialWithinExchange bool          `mapstructure:"allow_sequential_within_exchange"`
	MultipleSequences             bool          `mapstructure:"multiple_sequences"`
	MaximumSequences              int           `mapstructure:"maximum_sequences"`
	TimeBetweenSequences          time.Duration `mapstructure:"time_between_sequences"`
}

// ExchangeConfig holds one venue's connection details and credentials.
// APIKey/Secret/Passphrase are expected to be supplied via environment
// overrides rather than committed to the YAML file.
type ExchangeConfig struct {
	Enabled      bool            `mapstructure:"enabled"`
	RESTBaseURL  string          `mapstructure:"rest_base_url"`
	WSMarketURL  string          `mapstructure:"ws_market_url"`
	WSAccountURL string          `mapstructure:"ws_account_url"`
	APIKey       string          `mapstructure:"api_key"`
	Secret       string          `mapstructure:"secret"`
	Passphrase   string          `mapstructure:"passphrase"`
	Markets      []MarketConfig  `mapstructure:"markets"`
	RateLimits   RateLimitConfig `mapstructure:"rate_limits"`
}

// MarketConfig declares one tradeable pair on an exchange: its symbol,
// the two currency codes it connects, its fee schedule, and its rule
// set (sizing constraints the scanner's generated Orders must satisfy).
type MarketConfig struct {
	Symbol    string          `mapstructure:"symbol"`
	Base      string          `mapstructure:"base"`
	Quote     string          `mapstructure:"quote"`
	MakerFee  string          `mapstructure:"maker_fee"`
	TakerFee  string          `mapstructure:"taker_fee"`
	SizeRule  *SizeRuleConfig  `mapstructure:"size_rule"`
	ValueRule *ValueRuleConfig `mapstructure:"value_rule"`
}

// SizeRuleConfig clamps and rounds an order's quantity.
type SizeRuleConfig struct {
	Minimum string `mapstructure:"minimum"`
	Maximum string `mapstructure:"maximum"`
	Step    string `mapstructure:"step"`
}

// ValueRuleConfig grows an order's quantity to meet a minimum notional.
type ValueRuleConfig struct {
	MinValue string `mapstructure:"min_value"`
}

// RateLimitConfig sets the token-bucket burst/refill pair for each of
// an exchange's request categories.
type RateLimitConfig struct {
	OrderBurst  float64 `mapstructure:"order_burst"`
	OrderRate   float64 `mapstructure:"order_rate"`
	CancelBurst float64 `mapstructure:"cancel_burst"`
	CancelRate  float64 `mapstructure:"cancel_rate"`
	BookBurst   float64 `mapstructure:"book_burst"`
	BookRate    float64 `mapstructure:"book_rate"`
}

// DepositRouteConfig declares a synthetic 1:1 transfer edge between two
// exchanges for one currency code.
type DepositRouteConfig struct {
	Currency     string `mapstructure:"currency"`
	FromExchange string `mapstructure:"from_exchange"`
	ToExchange   string `mapstructure:"to_exchange"`
}

// JournalConfig selects where the audit log of transfers and admitted
// sequences is written.
type JournalConfig struct {
	DataDir string `mapstructure:"data_dir"`
}

// LoggingConfig selects the slog handler and minimum level.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig controls the optional Prometheus /metrics and /healthz
// HTTP endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// Load reads config from a YAML file with env var overrides.
// Sensitive per-exchange fields use ARBITD_EXCHANGE_<NAME>_API_KEY
// style overrides applied after unmarshal, since viper's automatic env
// binding does not reach into map values.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("ARBITD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyExchangeEnvOverrides(&cfg)

	if os.Getenv("ARBITD_DRY_RUN") == "true" || os.Getenv("ARBITD_DRY_RUN") == "1" {
		cfg.DryRun = true
	}

	return &cfg, nil
}

// applyExchangeEnvOverrides lets operators inject credentials for a
// named exchange without committing them to the YAML file, e.g.
// ARBITD_EXCHANGE_BINANCE_API_KEY.
func applyExchangeEnvOverrides(cfg *Config) {
	for name, ex := range cfg.Exchanges {
		prefix := "ARBITD_EXCHANGE_" + strings.ToUpper(name) + "_"
		if v := os.Getenv(prefix + "API_KEY"); v != "" {
			ex.APIKey = v
		}
		if v := os.Getenv(prefix + "SECRET"); v != "" {
			ex.Secret = v
		}
		if v := os.Getenv(prefix + "PASSPHRASE"); v != "" {
			ex.Passphrase = v
		}
		cfg.Exchanges[name] = ex
	}
}

// Validate checks all required fields and value ranges, returning a
// plain error (prefixed "config:") that aborts process startup per the
// engine's error handling policy.
func (c *Config) Validate() error {
	if c.OrderMaxAmount == "" {
		return fmt.Errorf("config: order_max_amount is required")
	}
	if c.MinProfit == "" {
		return fmt.Errorf("config: min_profit is required")
	}
	if c.MaxDepth < 2 {
		return fmt.Errorf("config: max_depth must be >= 2")
	}
	if c.BaseCurrency == "" {
		return fmt.Errorf("config: base_currency is required")
	}
	if len(c.EnabledCurrencies) == 0 {
		return fmt.Errorf("config: enabled_currencies must list at least one currency")
	}
	if len(c.Exchanges) == 0 {
		return fmt.Errorf("config: at least one exchange must be configured")
	}
	if c.Admission.MaximumSequences < 0 {
		return fmt.Errorf("config: admission.maximum_sequences must be >= 0")
	}
	for name, ex := range c.Exchanges {
		if !ex.Enabled {
			continue
		}
		if ex.RESTBaseURL == "" {
			return fmt.Errorf("config: exchanges.%s.rest_base_url is required when enabled", name)
		}
	}
	for i, d := range c.Deposits {
		if d.Currency == "" || d.FromExchange == "" || d.ToExchange == "" {
			return fmt.Errorf("config: deposits[%d] must set currency, from_exchange, and to_exchange", i)
		}
	}
	return nil
}
