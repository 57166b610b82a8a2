package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"alphafinder/internal/market"
	"alphafinder/internal/screener"
)

// EnvPrefix namespaces environment overrides, e.g. ALPHAFINDER_SCREEN_MAX_CONCURRENCY.
const EnvPrefix = "ALPHAFINDER"

// CriteriaConfig holds one market's screening thresholds. Unset keys stay nil.
type CriteriaConfig struct {
	PEMax            *float64 `mapstructure:"pe_max"`
	ROEMin           *float64 `mapstructure:"roe_min"`
	DividendYieldMin *float64 `mapstructure:"dividend_yield_min"`
	RevenueGrowthMin *float64 `mapstructure:"revenue_growth_min"`
}

// MarketConfig groups per-market settings.
type MarketConfig struct {
	Screener CriteriaConfig `mapstructure:"screener"`
}

type ScreenConfig struct {
	MaxConcurrency int           `mapstructure:"max_concurrency"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	FilterPolicy   string        `mapstructure:"filter_policy"`
}

type HTTPConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	RetryCount int           `mapstructure:"retry_count"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type YahooConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	CookieURL     string  `mapstructure:"cookie_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type FinMindConfig struct {
	BaseURL       string  `mapstructure:"base_url"`
	Token         string  `mapstructure:"token"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

type WikipediaConfig struct {
	SP500URL      string  `mapstructure:"sp500_url"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
}

// TWSEConfig locates the TW registry. An empty ISINURL skips the live pages
// and serves RegistryPaths, or the bundled sample when that is empty too.
type TWSEConfig struct {
	ISINURL       string   `mapstructure:"isin_url"`
	RatePerSecond float64  `mapstructure:"rate_per_second"`
	RegistryPaths []string `mapstructure:"registry_paths"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

// Config holds all configuration for alphafinder.
type Config struct {
	USStock   MarketConfig    `mapstructure:"us_stock"`
	TWStock   MarketConfig    `mapstructure:"tw_stock"`
	Screen    ScreenConfig    `mapstructure:"screen"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Yahoo     YahooConfig     `mapstructure:"yahoo"`
	FinMind   FinMindConfig   `mapstructure:"finmind"`
	Wikipedia WikipediaConfig `mapstructure:"wikipedia"`
	TWSE      TWSEConfig      `mapstructure:"twse"`
	Log       LogConfig       `mapstructure:"log"`
}

// Criteria returns the configured thresholds for m.
func (c *Config) Criteria(m market.Market) screener.Criteria {
	var cc CriteriaConfig
	switch m {
	case market.US:
		cc = c.USStock.Screener
	case market.TW:
		cc = c.TWStock.Screener
	}
	return screener.Criteria{
		PEMax:            cc.PEMax,
		ROEMin:           cc.ROEMin,
		DividendYieldMin: cc.DividendYieldMin,
		RevenueGrowthMin: cc.RevenueGrowthMin,
	}
}

// Policy returns the parsed filter policy. Load has already validated it.
func (c *Config) Policy() screener.Policy {
	p, _ := screener.ParsePolicy(c.Screen.FilterPolicy)
	return p
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("screen.max_concurrency", screener.DefaultMaxConcurrency)
	v.SetDefault("screen.fetch_timeout", time.Duration(0))
	v.SetDefault("screen.filter_policy", string(screener.PolicyStrict))

	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.retry_count", 0)
	v.SetDefault("http.user_agent", "Mozilla/5.0 (AlphaFinder)")

	v.SetDefault("yahoo.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("yahoo.cookie_url", "https://fc.yahoo.com")
	v.SetDefault("yahoo.rate_per_second", 5.0)

	v.SetDefault("finmind.base_url", "https://api.finmindtrade.com/api/v4")
	v.SetDefault("finmind.token", "")
	v.SetDefault("finmind.rate_per_second", 5.0)

	v.SetDefault("wikipedia.sp500_url", "https://en.wikipedia.org/wiki/List_of_S%26P_500_companies")
	v.SetDefault("wikipedia.rate_per_second", 1.0)

	v.SetDefault("twse.isin_url", "https://isin.twse.com.tw/isin/C_public.jsp")
	v.SetDefault("twse.rate_per_second", 1.0)
	v.SetDefault("twse.registry_paths", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 10)
	v.SetDefault("log.max_age_days", 7)
}

// Load reads configuration from an optional .env file, an optional YAML
// config file and the environment. Environment variables take precedence
// over config file values.
//
// When path is empty, config.yaml is looked up in ., ./config and
// $HOME/.alphafinder; a missing file is not an error.
//
// Besides the prefixed overrides, FINMIND_API_TOKEN sets finmind.token.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("finmind.token", EnvPrefix+"_FINMIND_TOKEN", "FINMIND_API_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("$HOME/.alphafinder")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Screen.MaxConcurrency < 1 {
		problems = append(problems, fmt.Sprintf("screen.max_concurrency must be >= 1 (got %d)", c.Screen.MaxConcurrency))
	}
	if c.Screen.FetchTimeout < 0 {
		problems = append(problems, "screen.fetch_timeout must not be negative")
	}
	if _, err := screener.ParsePolicy(c.Screen.FilterPolicy); err != nil {
		problems = append(problems, "screen.filter_policy: "+err.Error())
	}
	if c.HTTP.Timeout < 0 {
		problems = append(problems, "http.timeout must not be negative")
	}
	if c.HTTP.RetryCount < 0 {
		problems = append(problems, "http.retry_count must not be negative")
	}
	if c.Yahoo.RatePerSecond < 0 {
		problems = append(problems, "yahoo.rate_per_second must not be negative")
	}
	if c.FinMind.RatePerSecond < 0 {
		problems = append(problems, "finmind.rate_per_second must not be negative")
	}
	if c.Wikipedia.RatePerSecond < 0 {
		problems = append(problems, "wikipedia.rate_per_second must not be negative")
	}
	if c.TWSE.RatePerSecond < 0 {
		problems = append(problems, "twse.rate_per_second must not be negative")
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		problems = append(problems, fmt.Sprintf("log.format must be console or json (got %q)", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
