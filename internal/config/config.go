package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"jlp-hedge-bot/internal/asset"

	"gopkg.in/yaml.v3"
)

const (
	DefaultJLPMint = "27G8MtK7VtTcCHkpASjSDdkWWYfoqT6ggEuKidVJidD4"
	DefaultJLPSlug = "jupiter-perpetuals-liquidity-provider-token"
)

type Config struct {
	Log       LoggingConfig   `yaml:"log"`
	OKX       OKXConfig       `yaml:"okx"`
	Jupiter   JupiterConfig   `yaml:"jupiter"`
	Hedge     HedgeConfig     `yaml:"hedge"`
	Risk      RiskConfig      `yaml:"risk"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	State     StateConfig     `yaml:"state"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Timescale TimescaleConfig `yaml:"timescale"`
	Run       RunConfig       `yaml:"run"`
	Backtest  BacktestConfig  `yaml:"backtest"`

	// Flat keys of the legacy config.json layout.
	LegacyTargetWeights map[string]float64 `yaml:"target_weights"`
	LegacyOKXFlag       string             `yaml:"okx_flag"`
	LegacyWallet        string             `yaml:"metamask_address"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

type OKXConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	Simulated  *bool         `yaml:"simulated"`
	TradeMode  string        `yaml:"td_mode"`
	InstType   string        `yaml:"inst_type"`
	APIKey     string        `yaml:"api_key"`
	Secret     string        `yaml:"secret"`
	Passphrase string        `yaml:"passphrase"`
}

func (c OKXConfig) SimulatedValue() bool {
	if c.Simulated == nil {
		return true
	}
	return *c.Simulated
}

type JupiterConfig struct {
	BaseURL       string        `yaml:"base_url"`
	Timeout       time.Duration `yaml:"timeout"`
	TokenMint     string        `yaml:"token_mint"`
	GasSymbol     string        `yaml:"gas_symbol"`
	WalletAddress string        `yaml:"wallet_address"`
}

type HedgeConfig struct {
	Short         *bool                       `yaml:"short"`
	TargetWeights map[string]float64          `yaml:"target_weights"`
	Instruments   map[string]InstrumentConfig `yaml:"instruments"`
}

func (c HedgeConfig) ShortValue() bool {
	if c.Short == nil {
		return true
	}
	return *c.Short
}

type InstrumentConfig struct {
	InstID        string  `yaml:"inst_id"`
	ContractValue float64 `yaml:"contract_value"`
	LotSize       float64 `yaml:"lot_size"`
}

type RiskConfig struct {
	MinMarginRatio float64 `yaml:"min_margin_ratio"`
}

type TelegramConfig struct {
	Enabled *bool         `yaml:"enabled"`
	BaseURL string        `yaml:"base_url"`
	Token   string        `yaml:"token"`
	ChatID  string        `yaml:"chat_id"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c TelegramConfig) EnabledValue() bool {
	if c.Enabled == nil {
		return c.Token != "" && c.ChatID != ""
	}
	return *c.Enabled
}

type StateConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type TimescaleConfig struct {
	Enabled         bool          `yaml:"enabled"`
	DSN             string        `yaml:"dsn"`
	Schema          string        `yaml:"schema"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RunConfig struct {
	Timeout time.Duration `yaml:"timeout"`
	DryRun  bool          `yaml:"dry_run"`
}

type BacktestConfig struct {
	StartDate         string                     `yaml:"start_date"`
	EndDate           string                     `yaml:"end_date"`
	InitialInvestment float64                    `yaml:"initial_investment"`
	Components        map[string]ComponentConfig `yaml:"components"`
	JLPSlug           string                     `yaml:"jlp_slug"`
	BinanceBaseURL    string                     `yaml:"binance_base_url"`
	CachePath         string                     `yaml:"cache_path"`
	CMC               CMCConfig                  `yaml:"cmc"`
}

type ComponentConfig struct {
	Symbol string  `yaml:"symbol"`
	Weight float64 `yaml:"weight"`
}

type CMCConfig struct {
	Sandbox *bool         `yaml:"sandbox"`
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

func (c CMCConfig) SandboxValue() bool {
	if c.Sandbox == nil {
		return true
	}
	return *c.Sandbox
}

// Load reads the rebalancer configuration and fails on anything a run needs.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	return cfg, validate(cfg)
}

// LoadBacktest reads the backtest configuration. An empty path yields defaults.
func LoadBacktest(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := read(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		prepare(cfg)
	}
	return cfg, validateBacktest(cfg)
}

func read(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		if data, err = jsonToYAML(data); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	prepare(&cfg)
	return &cfg, nil
}

// jsonToYAML re-encodes a JSON document so tab-indented files decode through
// the same yaml tags.
func jsonToYAML(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

func prepare(cfg *Config) {
	applyLegacy(cfg)
	applyEnv(cfg)
	applyDefaults(cfg)
}

func applyLegacy(cfg *Config) {
	if len(cfg.Hedge.TargetWeights) == 0 && len(cfg.LegacyTargetWeights) > 0 {
		cfg.Hedge.TargetWeights = cfg.LegacyTargetWeights
	}
	if cfg.OKX.Simulated == nil {
		switch strings.TrimSpace(cfg.LegacyOKXFlag) {
		case "0":
			live := false
			cfg.OKX.Simulated = &live
		case "1":
			demo := true
			cfg.OKX.Simulated = &demo
		}
	}
	if cfg.Jupiter.WalletAddress == "" {
		cfg.Jupiter.WalletAddress = strings.TrimSpace(cfg.LegacyWallet)
	}
}

func applyEnv(cfg *Config) {
	cfg.OKX.APIKey = envOrDefault("OKX_APIKEY", cfg.OKX.APIKey)
	cfg.OKX.Secret = envOrDefault("OKX_SECRET", cfg.OKX.Secret)
	cfg.OKX.Passphrase = envOrDefault("OKX_PASSPHRASE", cfg.OKX.Passphrase)
	cfg.Telegram.Token = envOrDefault("TELEGRAM_BOT_TOKEN", cfg.Telegram.Token)
	cfg.Telegram.ChatID = envOrDefault("TELEGRAM_CHAT_ID", cfg.Telegram.ChatID)
	cfg.Backtest.CMC.APIKey = envOrDefault("CMC_API_KEY", cfg.Backtest.CMC.APIKey)
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.OKX.BaseURL == "" {
		cfg.OKX.BaseURL = "https://www.okx.com"
	}
	if cfg.OKX.Timeout == 0 {
		cfg.OKX.Timeout = 10 * time.Second
	}
	if cfg.OKX.TradeMode == "" {
		cfg.OKX.TradeMode = "cross"
	}
	if cfg.OKX.InstType == "" {
		cfg.OKX.InstType = "SWAP"
	}
	if cfg.Jupiter.BaseURL == "" {
		cfg.Jupiter.BaseURL = "https://lite-api.jup.ag"
	}
	if cfg.Jupiter.Timeout == 0 {
		cfg.Jupiter.Timeout = 10 * time.Second
	}
	if cfg.Jupiter.TokenMint == "" {
		cfg.Jupiter.TokenMint = DefaultJLPMint
	}
	if cfg.Jupiter.GasSymbol == "" {
		cfg.Jupiter.GasSymbol = "SOL"
	}
	if cfg.Hedge.Instruments == nil {
		cfg.Hedge.Instruments = make(map[string]InstrumentConfig)
	}
	for symbol, def := range defaultInstruments() {
		inst, ok := cfg.Hedge.Instruments[symbol]
		if !ok {
			cfg.Hedge.Instruments[symbol] = def
			continue
		}
		if inst.InstID == "" {
			inst.InstID = def.InstID
		}
		if inst.ContractValue == 0 {
			inst.ContractValue = def.ContractValue
		}
		if inst.LotSize == 0 {
			inst.LotSize = def.LotSize
		}
		cfg.Hedge.Instruments[symbol] = inst
	}
	if cfg.Risk.MinMarginRatio == 0 {
		cfg.Risk.MinMarginRatio = 2.0
	}
	if cfg.Telegram.BaseURL == "" {
		cfg.Telegram.BaseURL = "https://api.telegram.org"
	}
	if cfg.Telegram.Timeout == 0 {
		cfg.Telegram.Timeout = 10 * time.Second
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "jlp_hedge_bot"
	}
	if cfg.Timescale.Schema == "" {
		cfg.Timescale.Schema = "public"
	}
	if cfg.Run.Timeout == 0 {
		cfg.Run.Timeout = 2 * time.Minute
	}
	applyBacktestDefaults(&cfg.Backtest)
}

func defaultInstruments() map[string]InstrumentConfig {
	return map[string]InstrumentConfig{
		"BTC": {InstID: "BTC-USDT-SWAP", ContractValue: 0.01, LotSize: 0.0001},
		"ETH": {InstID: "ETH-USDT-SWAP", ContractValue: 0.1, LotSize: 0.001},
		"SOL": {InstID: "SOL-USDT-SWAP", ContractValue: 1, LotSize: 0.01},
	}
}

func applyBacktestDefaults(cfg *BacktestConfig) {
	if cfg.StartDate == "" {
		cfg.StartDate = "2024-07-01"
	}
	if cfg.InitialInvestment == 0 {
		cfg.InitialInvestment = 1000
	}
	if len(cfg.Components) == 0 {
		cfg.Components = map[string]ComponentConfig{
			"SOL":  {Symbol: "SOLUSDT", Weight: 0.47},
			"ETH":  {Symbol: "ETHUSDT", Weight: 0.08},
			"WBTC": {Symbol: "BTCUSDT", Weight: 0.13},
			"USDC": {Symbol: "TUSDUSDT", Weight: 0.32},
		}
	}
	if cfg.JLPSlug == "" {
		cfg.JLPSlug = DefaultJLPSlug
	}
	if cfg.BinanceBaseURL == "" {
		cfg.BinanceBaseURL = "https://api.binance.com"
	}
	if cfg.CMC.BaseURL == "" {
		if cfg.CMC.SandboxValue() {
			cfg.CMC.BaseURL = "https://sandbox-api.coinmarketcap.com"
		} else {
			cfg.CMC.BaseURL = "https://pro-api.coinmarketcap.com"
		}
	}
	if cfg.CMC.Timeout == 0 {
		cfg.CMC.Timeout = 15 * time.Second
	}
}

func validate(cfg *Config) error {
	if cfg.OKX.APIKey == "" || cfg.OKX.Secret == "" || cfg.OKX.Passphrase == "" {
		return errors.New("okx api key, secret and passphrase are required (OKX_APIKEY, OKX_SECRET, OKX_PASSPHRASE)")
	}
	if cfg.Jupiter.WalletAddress == "" {
		return errors.New("jupiter.wallet_address is required")
	}
	if cfg.OKX.Timeout < 0 || cfg.Jupiter.Timeout < 0 || cfg.Telegram.Timeout < 0 || cfg.Run.Timeout < 0 {
		return errors.New("timeouts must be >= 0")
	}
	hedges := 0
	for symbol, weight := range cfg.Hedge.TargetWeights {
		a, err := asset.Parse(symbol)
		if err != nil {
			return fmt.Errorf("hedge.target_weights: %w", err)
		}
		if a == asset.Anchor {
			continue
		}
		if weight < 0 {
			return fmt.Errorf("hedge.target_weights.%s must be >= 0", symbol)
		}
		inst, ok := cfg.Hedge.Instruments[a.String()]
		if !ok || inst.InstID == "" {
			return fmt.Errorf("hedge.instruments.%s is required", a)
		}
		if inst.ContractValue <= 0 {
			return fmt.Errorf("hedge.instruments.%s.contract_value must be > 0", a)
		}
		if inst.LotSize <= 0 {
			return fmt.Errorf("hedge.instruments.%s.lot_size must be > 0", a)
		}
		hedges++
	}
	if hedges == 0 {
		return errors.New("hedge.target_weights must name at least one hedge asset")
	}
	for symbol := range cfg.Hedge.Instruments {
		if _, err := asset.Parse(symbol); err != nil {
			return fmt.Errorf("hedge.instruments: %w", err)
		}
	}
	if cfg.Risk.MinMarginRatio < 0 {
		return errors.New("risk.min_margin_ratio must be >= 0")
	}
	if cfg.Telegram.EnabledValue() && (cfg.Telegram.Token == "" || cfg.Telegram.ChatID == "") {
		return errors.New("telegram token and chat_id are required when telegram is enabled")
	}
	if cfg.Timescale.Enabled && strings.TrimSpace(cfg.Timescale.DSN) == "" {
		return errors.New("timescale.dsn is required when timescale is enabled")
	}
	return nil
}

func validateBacktest(cfg *Config) error {
	bt := cfg.Backtest
	if _, err := time.Parse(time.DateOnly, bt.StartDate); err != nil {
		return fmt.Errorf("backtest.start_date: %w", err)
	}
	if bt.EndDate != "" {
		if _, err := time.Parse(time.DateOnly, bt.EndDate); err != nil {
			return fmt.Errorf("backtest.end_date: %w", err)
		}
	}
	if bt.InitialInvestment <= 0 {
		return errors.New("backtest.initial_investment must be > 0")
	}
	for name, comp := range bt.Components {
		if comp.Symbol == "" {
			return fmt.Errorf("backtest.components.%s.symbol is required", name)
		}
		if comp.Weight < 0 {
			return fmt.Errorf("backtest.components.%s.weight must be >= 0", name)
		}
	}
	if bt.CMC.APIKey == "" {
		return errors.New("coinmarketcap api key is required (CMC_API_KEY)")
	}
	return nil
}
