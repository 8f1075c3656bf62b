package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for sentitrade. The execution core
// only ever sees the resolved struct; all file and environment handling
// happens here.
type Config struct {
	Broker     Broker           `yaml:"broker"`
	Alpaca     Alpaca           `yaml:"alpaca"`
	Trading    TradingConfig    `yaml:"trading"`
	Sentiment  SentimentConfig  `yaml:"sentiment"`
	MarketData MarketDataConfig `yaml:"market_data"`
	Storage    Storage          `yaml:"storage"`
	Server     Server           `yaml:"server"`
	Logging    Logging          `yaml:"logging"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
}

// Broker selects the venue variant used for the whole process.
type Broker struct {
	Name            string        `yaml:"name"` // "paper" or "alpaca"
	CallTimeout     time.Duration `yaml:"call_timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
}

// Alpaca holds credentials and endpoints for the Alpaca broker API.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
	DataURL   string `yaml:"data_url"`
	Feed      string `yaml:"feed"`
}

// TradingConfig defines sizing, protection and execution parameters.
type TradingConfig struct {
	MaxCapitalPerTrade float64       `yaml:"max_capital_per_trade"`
	UseStopLoss        *bool         `yaml:"use_stop_loss"`
	StopLossPct        float64       `yaml:"stop_loss_pct"`
	DefaultPrice       float64       `yaml:"default_price"`
	MaxConcurrency     int           `yaml:"max_concurrency"`
	Strategy           string        `yaml:"strategy"`
	BuyThreshold       float64       `yaml:"buy_threshold"`
	RetryAttempts      int           `yaml:"retry_attempts"`
	RetryDelay         time.Duration `yaml:"retry_delay"`
}

// StopLossEnabled reports whether BUY fills get a protective stop order.
// Stop-loss protection is on unless explicitly disabled.
func (t TradingConfig) StopLossEnabled() bool {
	return t.UseStopLoss == nil || *t.UseStopLoss
}

// SentimentConfig selects the sentiment provider.
type SentimentConfig struct {
	Model        string `yaml:"model"` // "lexicon" or "openai"
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
	OpenAIURL    string `yaml:"openai_url"`
}

// MarketDataConfig selects where snapshots come from.
type MarketDataConfig struct {
	Source  string `yaml:"source"` // "alpaca", "parquet" or "none"
	DataDir string `yaml:"data_dir"`
}

// Storage holds paths for local state.
type Storage struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	GRPCAddr string `yaml:"grpc_addr"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// SimulatorConfig seeds the paper broker.
type SimulatorConfig struct {
	Quotes map[string]float64 `yaml:"quotes"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, loads a .env
// file from the working directory if present, applies environment variable
// overrides and defaults, and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse is Load for an in-memory document.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	// A missing .env is normal; real environment variables still apply.
	_ = godotenv.Load()

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BROKER"); v != "" {
		cfg.Broker.Name = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("MAX_CAPITAL_PER_TRADE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.MaxCapitalPerTrade = f
		}
	}
	if v := os.Getenv("USE_STOP_LOSS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Trading.UseStopLoss = &b
		}
	}
	if v := os.Getenv("STOP_LOSS_PCT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Trading.StopLossPct = f
		}
	}

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Sentiment.OpenAIAPIKey = v
	}

	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.MarketData.DataDir = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars win over the names above; the SDK reads these too.
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Broker.Name == "" {
		cfg.Broker.Name = "paper"
	}
	cfg.Broker.Name = strings.ToLower(cfg.Broker.Name)
	if cfg.Broker.CallTimeout == 0 {
		cfg.Broker.CallTimeout = 10 * time.Second
	}
	if cfg.Broker.RateLimitPerMin == 0 {
		cfg.Broker.RateLimitPerMin = 200
	}
	if cfg.Alpaca.BaseURL == "" {
		cfg.Alpaca.BaseURL = "https://paper-api.alpaca.markets"
	}
	if cfg.Alpaca.Feed == "" {
		cfg.Alpaca.Feed = "iex"
	}

	if cfg.Trading.MaxCapitalPerTrade == 0 {
		cfg.Trading.MaxCapitalPerTrade = 1000
	}
	if cfg.Trading.UseStopLoss == nil {
		enabled := true
		cfg.Trading.UseStopLoss = &enabled
	}
	if cfg.Trading.StopLossPct == 0 {
		cfg.Trading.StopLossPct = 0.05
	}
	if cfg.Trading.DefaultPrice == 0 {
		cfg.Trading.DefaultPrice = 100
	}
	if cfg.Trading.MaxConcurrency == 0 {
		cfg.Trading.MaxConcurrency = 8
	}
	if cfg.Trading.Strategy == "" {
		cfg.Trading.Strategy = "rule_based"
	}
	if cfg.Trading.BuyThreshold == 0 {
		cfg.Trading.BuyThreshold = 0.3
	}
	if cfg.Trading.RetryAttempts == 0 {
		cfg.Trading.RetryAttempts = 3
	}
	if cfg.Trading.RetryDelay == 0 {
		cfg.Trading.RetryDelay = time.Second
	}

	if cfg.Sentiment.Model == "" {
		cfg.Sentiment.Model = "lexicon"
	}
	if cfg.MarketData.Source == "" {
		cfg.MarketData.Source = "none"
	}
	if cfg.Server.GRPCAddr == "" {
		cfg.Server.GRPCAddr = "localhost:50061"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}

// Validate reports every configuration problem at once. A Config that fails
// validation must not be used to build a broker.
func (c *Config) Validate() error {
	var errs []error

	switch c.Broker.Name {
	case "paper", "simulator":
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			errs = append(errs, errors.New("alpaca broker requires api_key and api_secret"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported broker %q", c.Broker.Name))
	}

	if c.Trading.MaxCapitalPerTrade <= 0 {
		errs = append(errs, fmt.Errorf("max_capital_per_trade must be > 0, got %v", c.Trading.MaxCapitalPerTrade))
	}
	if c.Trading.StopLossPct <= 0 || c.Trading.StopLossPct >= 1 {
		errs = append(errs, fmt.Errorf("stop_loss_pct must be in (0,1), got %v", c.Trading.StopLossPct))
	}
	if c.Trading.DefaultPrice <= 0 {
		errs = append(errs, fmt.Errorf("default_price must be > 0, got %v", c.Trading.DefaultPrice))
	}
	if c.Trading.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("max_concurrency must be >= 1, got %d", c.Trading.MaxConcurrency))
	}

	switch c.Sentiment.Model {
	case "lexicon":
	case "openai":
		if c.Sentiment.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("openai sentiment model requires openai_api_key"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported sentiment model %q", c.Sentiment.Model))
	}

	switch c.MarketData.Source {
	case "none":
	case "alpaca":
		if c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "" {
			errs = append(errs, errors.New("alpaca market data requires api_key and api_secret"))
		}
	case "parquet":
		if c.MarketData.DataDir == "" {
			errs = append(errs, errors.New("parquet market data requires data_dir"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported market data source %q", c.MarketData.Source))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
