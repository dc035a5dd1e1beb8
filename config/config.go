// Package config loads and validates the engine configuration from a
// YAML file. Secrets (bot tokens, gateway credentials) are never stored
// in the file; the config names the environment variable that holds
// them.
package config

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"fxpilot/market"
	"fxpilot/risk"
	"fxpilot/strategies"
)

// DefaultKey selects the fallback entry in the per-strategy cooldown
// and threshold maps.
const DefaultKey = "default"

// Config represents the complete engine configuration.
type Config struct {
	// Instruments maps an instrument name to the strategies evaluated
	// against it each signal cycle.
	Instruments map[string][]string `yaml:"instruments"`

	// CooldownMinutes maps a strategy name to its cooldown interval.
	// The "default" entry applies to strategies not listed.
	CooldownMinutes map[string]int `yaml:"cooldown_minutes"`

	// ConfidenceThresholds maps a strategy name to its minimum
	// confidence score. The "default" entry applies to strategies not
	// listed.
	ConfidenceThresholds map[string]int `yaml:"confidence_thresholds"`

	// HighConfStrategies lists the strategies granted the stronger
	// confidence flag.
	HighConfStrategies []string `yaml:"high_conf_strategies,omitempty"`

	Risk     RiskConfig     `yaml:"risk"`
	Manage   ManageConfig   `yaml:"manage"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Telegram TelegramConfig `yaml:"telegram"`
	Bridge   BridgeConfig   `yaml:"bridge"`
}

// RiskConfig contains the risk engine limits.
type RiskConfig struct {
	RiskPercent float64 `yaml:"risk_percent"`
	MinRR       float64 `yaml:"min_rrr"`
	MinStopPips float64 `yaml:"min_stop_pips"`
	MaxStopPips float64 `yaml:"max_stop_pips"`
	MaxSize     float64 `yaml:"max_size"`
	MinBalance  float64 `yaml:"min_balance"`
}

// ManageConfig contains the position lifecycle parameters.
type ManageConfig struct {
	MaxDurationMinutes   int     `yaml:"max_duration_minutes"`
	TrailTriggerPips     float64 `yaml:"trail_trigger_pips"`
	TrailDistancePips    float64 `yaml:"trail_distance_pips"`
	BreakevenTriggerPips float64 `yaml:"breakeven_trigger_pips"`
}

// ScheduleConfig contains the cycle intervals as duration strings,
// e.g. "60s" or "1m".
type ScheduleConfig struct {
	SignalInterval string `yaml:"signal_interval"`
	ManageInterval string `yaml:"manage_interval"`
}

// LedgerConfig contains the decision ledger sinks. Empty paths disable
// the corresponding sink.
type LedgerConfig struct {
	DBPath  string `yaml:"db_path,omitempty"`
	CSVPath string `yaml:"csv_path,omitempty"`
}

// TelegramConfig contains the trade alert channel. TokenEnv names the
// environment variable holding the bot token.
type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	TokenEnv string `yaml:"token_env"`
	ChatID   string `yaml:"chat_id"`
}

// BridgeConfig contains the live gateway client settings. TokenEnv
// names the environment variable holding the API token.
type BridgeConfig struct {
	BaseURL     string  `yaml:"base_url"`
	TokenEnv    string  `yaml:"token_env"`
	RatePerSec  float64 `yaml:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs"`
}

// Load reads, parses and validates a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and resolves every mapped strategy
// name against the registry, so a typo fails at startup instead of
// silently never firing.
func (c *Config) Validate() error {
	if len(c.Instruments) == 0 {
		return fmt.Errorf("instruments map is required")
	}
	for name, names := range c.Instruments {
		if _, ok := market.Instruments[name]; !ok {
			return fmt.Errorf("unknown instrument: %s", name)
		}
		if len(names) == 0 {
			return fmt.Errorf("instrument %s has no strategies", name)
		}
		if _, err := strategies.Resolve(names); err != nil {
			return fmt.Errorf("instrument %s: %w", name, err)
		}
	}
	if _, ok := c.CooldownMinutes[DefaultKey]; !ok {
		return fmt.Errorf("cooldown_minutes.default is required")
	}
	if _, ok := c.ConfidenceThresholds[DefaultKey]; !ok {
		return fmt.Errorf("confidence_thresholds.default is required")
	}
	for k, v := range c.CooldownMinutes {
		if v < 0 {
			return fmt.Errorf("cooldown_minutes.%s must not be negative", k)
		}
	}
	if c.Risk.RiskPercent <= 0 || c.Risk.RiskPercent > 100 {
		return fmt.Errorf("risk.risk_percent must be between 0 and 100")
	}
	if c.Risk.MinStopPips <= 0 || c.Risk.MaxStopPips <= c.Risk.MinStopPips {
		return fmt.Errorf("risk stop pip bounds must satisfy 0 < min < max")
	}
	if c.Risk.MinRR <= 0 {
		return fmt.Errorf("risk.min_rrr must be positive")
	}
	if c.Risk.MaxSize <= 0 {
		return fmt.Errorf("risk.max_size must be positive")
	}
	if c.Manage.MaxDurationMinutes <= 0 {
		return fmt.Errorf("manage.max_duration_minutes must be positive")
	}
	if c.Manage.TrailTriggerPips <= 0 || c.Manage.TrailDistancePips <= 0 {
		return fmt.Errorf("manage trailing pips must be positive")
	}
	if c.Manage.BreakevenTriggerPips <= 0 {
		return fmt.Errorf("manage.breakeven_trigger_pips must be positive")
	}
	if _, err := c.Schedule.Signal(); err != nil {
		return fmt.Errorf("schedule.signal_interval: %w", err)
	}
	if _, err := c.Schedule.Manage(); err != nil {
		return fmt.Errorf("schedule.manage_interval: %w", err)
	}
	if c.Telegram.Enabled && (c.Telegram.TokenEnv == "" || c.Telegram.ChatID == "") {
		return fmt.Errorf("telegram token_env and chat_id required when enabled")
	}
	return nil
}

// Signal parses the signal cycle interval.
func (s ScheduleConfig) Signal() (time.Duration, error) {
	return time.ParseDuration(s.SignalInterval)
}

// Manage parses the manage cycle interval.
func (s ScheduleConfig) Manage() (time.Duration, error) {
	return time.ParseDuration(s.ManageInterval)
}

// CooldownFor returns the cooldown interval for a strategy, falling
// back to the default entry.
func (c *Config) CooldownFor(strategy string) time.Duration {
	if m, ok := c.CooldownMinutes[strategy]; ok {
		return time.Duration(m) * time.Minute
	}
	return time.Duration(c.CooldownMinutes[DefaultKey]) * time.Minute
}

// ThresholdFor returns the confidence threshold for a strategy,
// falling back to the default entry.
func (c *Config) ThresholdFor(strategy string) int {
	if t, ok := c.ConfidenceThresholds[strategy]; ok {
		return t
	}
	return c.ConfidenceThresholds[DefaultKey]
}

// Limits converts the risk block into the risk engine's limit set.
func (c *Config) Limits() risk.Limits {
	return risk.Limits{
		RiskPercent: c.Risk.RiskPercent,
		MinRR:       c.Risk.MinRR,
		MinStopPips: c.Risk.MinStopPips,
		MaxStopPips: c.Risk.MaxStopPips,
		MaxSize:     c.Risk.MaxSize,
		MinBalance:  c.Risk.MinBalance,
	}
}

// InstrumentNames returns the configured instruments in sorted order.
func (c *Config) InstrumentNames() []string {
	names := make([]string, 0, len(c.Instruments))
	for n := range c.Instruments {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// StrategyNames returns the de-duplicated set of strategy names across
// all instruments.
func (c *Config) StrategyNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, list := range c.Instruments {
		for _, n := range list {
			if !seen[n] {
				seen[n] = true
				names = append(names, n)
			}
		}
	}
	return names
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Instruments: map[string][]string{
			"XAU_USD": {"noop"},
		},
		CooldownMinutes: map[string]int{
			DefaultKey: 60,
		},
		ConfidenceThresholds: map[string]int{
			DefaultKey: 3,
		},
		Risk: RiskConfig{
			RiskPercent: 1.0,
			MinRR:       1.5,
			MinStopPips: 10,
			MaxStopPips: 300,
			MaxSize:     50,
			MinBalance:  5,
		},
		Manage: ManageConfig{
			MaxDurationMinutes:   240,
			TrailTriggerPips:     20,
			TrailDistancePips:    15,
			BreakevenTriggerPips: 25,
		},
		Schedule: ScheduleConfig{
			SignalInterval: "60s",
			ManageInterval: "20s",
		},
		Ledger: LedgerConfig{
			DBPath: "./fxpilot.db",
		},
		Telegram: TelegramConfig{
			TokenEnv: "TELEGRAM_BOT_TOKEN",
		},
		Bridge: BridgeConfig{
			BaseURL:     "http://127.0.0.1:8077",
			TokenEnv:    "BRIDGE_API_TOKEN",
			RatePerSec:  10,
			TimeoutSecs: 10,
		},
	}
}

// SaveToFile writes the configuration as YAML, for tests and tooling
// that need to materialize a config file.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
