package config

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Xano       XanoConfig       `yaml:"xano" mapstructure:"xano"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Discovery  DiscoveryConfig  `yaml:"discovery" mapstructure:"discovery"`
	Research   ResearchConfig   `yaml:"research" mapstructure:"research"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Scheduler  SchedulerConfig  `yaml:"scheduler" mapstructure:"scheduler"`
	Archive    ArchiveConfig    `yaml:"archive" mapstructure:"archive"`
	Notion     NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// XanoConfig configures the existing-offer API.
type XanoConfig struct {
	URL          string `yaml:"url" mapstructure:"url"`
	TimeoutSecs  int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	CacheTTLSecs int    `yaml:"cache_ttl_secs" mapstructure:"cache_ttl_secs"`
	Retries      int    `yaml:"retries" mapstructure:"retries"`
}

// CacheConfig selects the snapshot cache backend.
type CacheConfig struct {
	Driver        string `yaml:"driver" mapstructure:"driver"`
	RedisAddr     string `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string `yaml:"redis_password" mapstructure:"redis_password"`
	RedisDB       int    `yaml:"redis_db" mapstructure:"redis_db"`
}

// DiscoveryConfig selects and configures the casino/offer discovery source.
type DiscoveryConfig struct {
	Provider      string  `yaml:"provider" mapstructure:"provider"`
	FixturePath   string  `yaml:"fixture_path" mapstructure:"fixture_path"`
	Model         string  `yaml:"model" mapstructure:"model"`
	MaxTokens     int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature   float64 `yaml:"temperature" mapstructure:"temperature"`
	AnthropicKey  string  `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	OpenAIKey     string  `yaml:"openai_key" mapstructure:"openai_key"`
	OpenAIBaseURL string  `yaml:"openai_base_url" mapstructure:"openai_base_url"`

	PerplexityKey     string `yaml:"perplexity_key" mapstructure:"perplexity_key"`
	PerplexityBaseURL string `yaml:"perplexity_base_url" mapstructure:"perplexity_base_url"`

	// ReadWebsites adds each casino's live website text to offer prompts.
	ReadWebsites bool   `yaml:"read_websites" mapstructure:"read_websites"`
	JinaKey      string `yaml:"jina_key" mapstructure:"jina_key"`
}

// ResearchConfig tunes research runs.
type ResearchConfig struct {
	BatchSize              int     `yaml:"batch_size" mapstructure:"batch_size"`
	CallsPerSecond         float64 `yaml:"calls_per_second" mapstructure:"calls_per_second"`
	IncludeCasinoDiscovery bool    `yaml:"include_casino_discovery" mapstructure:"include_casino_discovery"`
	IncludeOfferResearch   bool    `yaml:"include_offer_research" mapstructure:"include_offer_research"`
}

// StoreConfig configures the history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// SchedulerConfig configures the periodic research job.
type SchedulerConfig struct {
	Enabled        bool   `yaml:"enabled" mapstructure:"enabled"`
	CronExpression string `yaml:"cron_expression" mapstructure:"cron_expression"`
}

// ArchiveConfig configures the S3 archive of research results.
type ArchiveConfig struct {
	Bucket         string `yaml:"bucket" mapstructure:"bucket"`
	Region         string `yaml:"region" mapstructure:"region"`
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey      string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey      string `yaml:"secret_key" mapstructure:"secret_key"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style"`
	Prefix         string `yaml:"prefix" mapstructure:"prefix"`
}

// NotionConfig holds Notion API credentials and the offers database ID.
type NotionConfig struct {
	Token    string `yaml:"token" mapstructure:"token"`
	OffersDB string `yaml:"offers_db" mapstructure:"offers_db"`
}

// MonitoringConfig configures webhook alerts on research runs. A zero
// threshold disables that alert.
type MonitoringConfig struct {
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	MinBetterOffers   int    `yaml:"min_better_offers" mapstructure:"min_better_offers"`
	MinMissingCasinos int    `yaml:"min_missing_casinos" mapstructure:"min_missing_casinos"`
	TimeoutSecs       int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Load reads configuration from .env, file and environment.
func Load() (*Config, error) {
	// .env is optional; real environment variables take precedence.
	_ = godotenv.Load()

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CASINO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("xano.url", "")
	v.SetDefault("xano.timeout_secs", 30)
	v.SetDefault("xano.cache_ttl_secs", 300)
	v.SetDefault("xano.retries", 3)
	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("discovery.provider", "fixture")
	v.SetDefault("discovery.fixture_path", "")
	v.SetDefault("discovery.model", "")
	v.SetDefault("discovery.max_tokens", 4000)
	v.SetDefault("discovery.temperature", 0.1)
	v.SetDefault("discovery.anthropic_key", "")
	v.SetDefault("discovery.openai_key", "")
	v.SetDefault("discovery.openai_base_url", "")
	v.SetDefault("discovery.perplexity_key", "")
	v.SetDefault("discovery.perplexity_base_url", "")
	v.SetDefault("discovery.read_websites", false)
	v.SetDefault("discovery.jina_key", "")
	v.SetDefault("research.batch_size", 3)
	v.SetDefault("research.calls_per_second", 1.0)
	v.SetDefault("research.include_casino_discovery", true)
	v.SetDefault("research.include_offer_research", true)
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "casino-research.db")
	v.SetDefault("scheduler.enabled", false)
	v.SetDefault("scheduler.cron_expression", "0 9 * * 1")
	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.force_path_style", false)
	v.SetDefault("archive.prefix", "research")
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.offers_db", "")
	v.SetDefault("monitoring.webhook_url", "")
	v.SetDefault("monitoring.min_better_offers", 1)
	v.SetDefault("monitoring.min_missing_casinos", 0)
	v.SetDefault("monitoring.timeout_secs", 10)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the fields required by a command mode: "research",
// "serve" or "notion".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "research":
		errs = append(errs, c.researchErrors()...)
	case "serve":
		errs = append(errs, c.researchErrors()...)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be > 0 and <= 65535")
		}
		if c.Scheduler.Enabled {
			if _, err := cron.ParseStandard(c.Scheduler.CronExpression); err != nil {
				errs = append(errs, "scheduler.cron_expression is invalid: "+err.Error())
			}
		}
	case "notion":
		if c.Notion.Token == "" {
			errs = append(errs, "notion.token is required")
		}
		if c.Notion.OffersDB == "" {
			errs = append(errs, "notion.offers_db is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.New("config: " + strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) researchErrors() []string {
	var errs []string
	if c.Xano.URL == "" {
		errs = append(errs, "xano.url is required")
	}
	if c.Research.BatchSize < 1 || c.Research.BatchSize > 20 {
		errs = append(errs, "research.batch_size must be between 1 and 20")
	}
	if c.Research.CallsPerSecond <= 0 {
		errs = append(errs, "research.calls_per_second must be > 0")
	}
	switch c.Discovery.Provider {
	case "fixture":
	case "anthropic":
		if c.Discovery.AnthropicKey == "" {
			errs = append(errs, "discovery.anthropic_key is required")
		}
	case "openai":
		if c.Discovery.OpenAIKey == "" {
			errs = append(errs, "discovery.openai_key is required")
		}
	case "perplexity":
		if c.Discovery.PerplexityKey == "" {
			errs = append(errs, "discovery.perplexity_key is required")
		}
	default:
		errs = append(errs, "discovery.provider must be fixture, anthropic, openai or perplexity")
	}
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		errs = append(errs, "store.driver must be sqlite or postgres")
	}
	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, "cache.redis_addr is required")
		}
	default:
		errs = append(errs, "cache.driver must be memory or redis")
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
