package config

import (
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Fraud     FraudConfig
	Revenue   RevenueConfig
	Workers   WorkerConfig
}

type AppConfig struct {
	Port string
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Host string
	Port string
}

type AuthConfig struct {
	APIKeys map[string]string // API key -> name/description
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

// FraudConfig параметры скоринга подозрительного трафика
type FraudConfig struct {
	// FlagThreshold клики со score строго выше порога помечаются как фрод
	FlagThreshold int
	// BotSignatures подстроки user-agent, характерные для ботов (lower-case)
	BotSignatures []string
	// DatacenterPrefixes префиксы IP-адресов хостинг-провайдеров
	DatacenterPrefixes []string
}

// RevenueConfig параметры расчёта выручки. Все ставки в микроединицах валюты.
type RevenueConfig struct {
	UniqueVisitorRate    int64
	AdImpressionRate     int64
	AdClickRate          int64
	SessionRatePerSecond int64
	SessionBonusCap      int64
	// CountryMultipliers множители по коду страны в процентах (US -> 150 = x1.5)
	CountryMultipliers map[string]int
	// DefaultMultiplier для стран вне таблицы и неопределённой геолокации
	DefaultMultiplier int
}

// WorkerConfig настройки worker pool асинхронной записи кликов
type WorkerConfig struct {
	Count      int
	BufferSize int
}

func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	cfg.App.Port = viper.GetString("APP_PORT")
	cfg.DB.Host = viper.GetString("DB_HOST")
	cfg.DB.Port = viper.GetString("DB_PORT")
	cfg.DB.User = viper.GetString("DB_USER")
	cfg.DB.Password = viper.GetString("DB_PASSWORD")
	cfg.DB.Name = viper.GetString("DB_NAME")
	cfg.Redis.Host = viper.GetString("REDIS_HOST")
	cfg.Redis.Port = viper.GetString("REDIS_PORT")

	// Auth config - parse API keys from comma-separated string
	// Format: key1:name1,key2:name2
	apiKeysRaw := viper.GetString("API_KEYS")
	cfg.Auth.APIKeys = parseAPIKeys(apiKeysRaw)

	// Rate limit config
	cfg.RateLimit.RequestsPerSecond = viper.GetFloat64("RATE_LIMIT_RPS")
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	cfg.RateLimit.BurstSize = viper.GetInt("RATE_LIMIT_BURST")
	if cfg.RateLimit.BurstSize == 0 {
		cfg.RateLimit.BurstSize = 20
	}

	cfg.Fraud = loadFraudConfig()
	cfg.Revenue = loadRevenueConfig()

	cfg.Workers.Count = viper.GetInt("CLICK_WORKERS")
	if cfg.Workers.Count == 0 {
		cfg.Workers.Count = 3
	}
	cfg.Workers.BufferSize = viper.GetInt("CLICK_BUFFER")
	if cfg.Workers.BufferSize == 0 {
		cfg.Workers.BufferSize = 1000
	}

	return &cfg, nil
}

// DefaultFraudConfig параметры скоринга по умолчанию
var DefaultFraudConfig = FraudConfig{
	FlagThreshold: 70,
	BotSignatures: []string{"bot", "crawler", "spider", "headless"},
	DatacenterPrefixes: []string{
		"34.", "35.", "52.", "54.", "3.", "18.", // AWS / GCP
		"104.196.", "146.148.", // GCP
		"167.99.", "134.209.", // DigitalOcean
	},
}

// DefaultRevenueConfig ставки по умолчанию: базовая ставка 0.005,
// показ рекламы 0.001, клик по рекламе 0.01, секунда сессии 0.0001
// с потолком 0.02 (защита от искусственно длинных сессий)
var DefaultRevenueConfig = RevenueConfig{
	UniqueVisitorRate:    5_000,
	AdImpressionRate:     1_000,
	AdClickRate:          10_000,
	SessionRatePerSecond: 100,
	SessionBonusCap:      20_000,
	CountryMultipliers: map[string]int{
		"US": 150,
		"CA": 140,
		"GB": 130,
		"DE": 120,
		"AU": 120,
		"FR": 110,
		"JP": 110,
		"IN": 60,
	},
	DefaultMultiplier: 50,
}

func loadFraudConfig() FraudConfig {
	cfg := DefaultFraudConfig

	if v := viper.GetInt("FRAUD_FLAG_THRESHOLD"); v > 0 {
		cfg.FlagThreshold = v
	}
	if raw := viper.GetString("FRAUD_DATACENTER_PREFIXES"); raw != "" {
		cfg.DatacenterPrefixes = splitList(raw)
	}
	if raw := viper.GetString("FRAUD_BOT_SIGNATURES"); raw != "" {
		cfg.BotSignatures = splitList(raw)
	}

	return cfg
}

func loadRevenueConfig() RevenueConfig {
	cfg := DefaultRevenueConfig

	if v := viper.GetInt64("REVENUE_UNIQUE_VISITOR_RATE"); v > 0 {
		cfg.UniqueVisitorRate = v
	}
	if v := viper.GetInt64("REVENUE_AD_IMPRESSION_RATE"); v > 0 {
		cfg.AdImpressionRate = v
	}
	if v := viper.GetInt64("REVENUE_AD_CLICK_RATE"); v > 0 {
		cfg.AdClickRate = v
	}
	if v := viper.GetInt64("REVENUE_SESSION_RATE_PER_SECOND"); v > 0 {
		cfg.SessionRatePerSecond = v
	}
	if v := viper.GetInt64("REVENUE_SESSION_BONUS_CAP"); v > 0 {
		cfg.SessionBonusCap = v
	}
	if v := viper.GetInt("REVENUE_DEFAULT_MULTIPLIER"); v > 0 {
		cfg.DefaultMultiplier = v
	}

	// Format: US:150,GB:130
	if raw := viper.GetString("REVENUE_COUNTRY_MULTIPLIERS"); raw != "" {
		cfg.CountryMultipliers = parseMultipliers(raw)
	}

	return cfg
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

// parseMultipliers parses comma-separated multipliers in format "US:150,GB:130"
func parseMultipliers(raw string) map[string]int {
	out := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		pct, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err == nil && pct > 0 {
			out[strings.ToUpper(strings.TrimSpace(parts[0]))] = pct
		}
	}
	return out
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if v := strings.TrimSpace(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}
