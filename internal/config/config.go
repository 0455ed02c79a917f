package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Admin     AdminConfig
	Report    ReportConfig
	Source    SourceConfig
	Delivery  DeliveryConfig
	Discord   DiscordConfig
	OneBot    OneBotConfig
	Poster    PosterConfig
	Scheduler SchedulerConfig
	Metrics   MetricsConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	APIKey       string
}

type DatabaseConfig struct {
	Enabled      bool
	Host         string
	Port         int
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig enables the remote image cache when URL is set.
type RedisConfig struct {
	URL           string
	ImageCacheTTL time.Duration
}

type JWTConfig struct {
	Secret          string
	ExpirationHours int
}

// AdminConfig is the single operator account allowed to log in to the API.
type AdminConfig struct {
	Email        string
	Password     string
	PasswordHash string
}

type ReportConfig struct {
	Targets       []string
	Brands        []string
	ScheduleTime  string
	Owner         string
	CommandName   string
	RenderWorkers int
	// RunTimeout bounds a whole run when positive. Zero leaves a run bounded
	// only by its per-fetch timeouts.
	RunTimeout time.Duration
}

type SourceConfig struct {
	Kind      string
	Timeout   time.Duration
	UserAgent string
	FeedURLs  []string
	APIURL    string
	APIMethod string
	APIBody   string
	APIToken  string
}

type DeliveryConfig struct {
	Kind            string
	AddressTemplate string
}

type DiscordConfig struct {
	Username    string
	RateLimitMs int
}

type OneBotConfig struct {
	BaseURL     string
	AccessToken string
	RateLimitMs int
	Timeout     time.Duration
}

type PosterConfig struct {
	OutputDir    string
	AssetsDir    string
	FilePrefix   string
	ImageTimeout time.Duration
	FontPaths    []string
}

type SchedulerConfig struct {
	Timezone     string
	MisfireGrace time.Duration
}

type MetricsConfig struct {
	Enabled bool
}

// Load reads the configuration from the environment, then applies the YAML
// file named by CONFIG_FILE if one is set.
func Load() *Config {
	cfg := loadEnv()
	if path := getEnv("CONFIG_FILE", ""); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			log.Printf("Warning: ignoring config file %s: %v", path, err)
		}
	}
	return cfg
}

// LoadWithFile is Load with an explicit YAML file. Unlike Load it fails when
// the file cannot be read.
func LoadWithFile(path string) (*Config, error) {
	cfg := loadEnv()
	if path == "" {
		return cfg, nil
	}
	if err := cfg.ApplyFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvAsSeconds("SERVER_READ_TIMEOUT", 30),
			WriteTimeout: getEnvAsSeconds("SERVER_WRITE_TIMEOUT", 60),
			APIKey:       getEnv("API_KEY", ""),
		},
		Database: DatabaseConfig{
			Enabled:      getEnvAsBool("DB_ENABLED", false),
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", "postgres"),
			Database:     getEnv("DB_NAME", "dealposter"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 2),
		},
		Redis: RedisConfig{
			URL:           getEnv("REDIS_URL", ""),
			ImageCacheTTL: time.Duration(getEnvAsInt("REDIS_IMAGE_CACHE_TTL_HOURS", 24)) * time.Hour,
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "change-me-in-production-please"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 72),
		},
		Admin: AdminConfig{
			Email:        getEnv("ADMIN_EMAIL", "admin@localhost"),
			Password:     getEnv("ADMIN_PASSWORD", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Report: ReportConfig{
			Targets:       getEnvAsList("REPORT_TARGET_GROUPS", nil),
			Brands:        getEnvAsList("REPORT_TARGET_BRANDS", nil),
			ScheduleTime:  getEnv("REPORT_SCHEDULE_TIME", "08:00"),
			Owner:         getEnv("REPORT_OWNER", "default"),
			CommandName:   getEnv("REPORT_COMMAND_NAME", "快餐早报"),
			RenderWorkers: getEnvAsPositiveInt("REPORT_RENDER_WORKERS", 2),
			RunTimeout:    getEnvAsSeconds("REPORT_RUN_TIMEOUT", 0),
		},
		Source: SourceConfig{
			Kind:      getEnv("DATA_SOURCE", "mock"),
			Timeout:   getEnvAsSeconds("SOURCE_TIMEOUT", 15),
			UserAgent: getEnv("SOURCE_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
			FeedURLs:  getEnvAsList("SOURCE_FEED_URLS", nil),
			APIURL:    getEnv("SOURCE_API_URL", ""),
			APIMethod: getEnv("SOURCE_API_METHOD", "GET"),
			APIBody:   getEnv("SOURCE_API_BODY", ""),
			APIToken:  getEnv("SOURCE_API_TOKEN", ""),
		},
		Delivery: DeliveryConfig{
			Kind:            getEnv("DELIVERY_KIND", "log"),
			AddressTemplate: getEnv("DELIVERY_ADDRESS_TEMPLATE", ""),
		},
		Discord: DiscordConfig{
			Username:    getEnv("DISCORD_USERNAME", "快餐早报"),
			RateLimitMs: getEnvAsInt("DISCORD_RATE_LIMIT_MS", 1000),
		},
		OneBot: OneBotConfig{
			BaseURL:     getEnv("ONEBOT_URL", "http://127.0.0.1:5700"),
			AccessToken: getEnv("ONEBOT_ACCESS_TOKEN", ""),
			RateLimitMs: getEnvAsInt("ONEBOT_RATE_LIMIT_MS", 500),
			Timeout:     getEnvAsSeconds("ONEBOT_TIMEOUT", 30),
		},
		Poster: PosterConfig{
			OutputDir:    getEnv("POSTER_OUTPUT_DIR", "data/fastfood_deals"),
			AssetsDir:    getEnv("POSTER_ASSETS_DIR", "data/fastfood_deals/backgrounds"),
			FilePrefix:   getEnv("POSTER_FILE_PREFIX", "fastfood_deals"),
			ImageTimeout: getEnvAsSeconds("POSTER_IMAGE_TIMEOUT", 5),
			FontPaths:    getEnvAsList("POSTER_FONT_PATHS", nil),
		},
		Scheduler: SchedulerConfig{
			Timezone:     getEnv("SCHEDULER_TIMEZONE", "Asia/Shanghai"),
			MisfireGrace: getEnvAsSeconds("SCHEDULER_MISFIRE_GRACE", 300),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
		},
	}
}

// fileConfig is the subset of options that can be set from a YAML file.
type fileConfig struct {
	Report struct {
		TargetGroups []string `yaml:"target_groups"`
		TargetBrands []string `yaml:"target_brands"`
		ScheduleTime string   `yaml:"schedule_time"`
		Owner        string   `yaml:"owner"`
	} `yaml:"report"`

	Source struct {
		Kind      string   `yaml:"kind"`
		FeedURLs  []string `yaml:"feed_urls"`
		APIURL    string   `yaml:"api_url"`
		APIMethod string   `yaml:"api_method"`
		APIBody   string   `yaml:"api_body"`
	} `yaml:"source"`

	Delivery struct {
		Kind            string `yaml:"kind"`
		AddressTemplate string `yaml:"address_template"`
	} `yaml:"delivery"`

	Poster struct {
		OutputDir string   `yaml:"output_dir"`
		AssetsDir string   `yaml:"assets_dir"`
		FontPaths []string `yaml:"font_paths"`
	} `yaml:"poster"`

	Scheduler struct {
		Timezone string `yaml:"timezone"`
	} `yaml:"scheduler"`
}

// ApplyFile overlays the non-empty values of a YAML file onto c.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	overlayList(&c.Report.Targets, fc.Report.TargetGroups)
	overlayList(&c.Report.Brands, fc.Report.TargetBrands)
	overlay(&c.Report.ScheduleTime, fc.Report.ScheduleTime)
	overlay(&c.Report.Owner, fc.Report.Owner)

	overlay(&c.Source.Kind, fc.Source.Kind)
	overlayList(&c.Source.FeedURLs, fc.Source.FeedURLs)
	overlay(&c.Source.APIURL, fc.Source.APIURL)
	overlay(&c.Source.APIMethod, fc.Source.APIMethod)
	overlay(&c.Source.APIBody, fc.Source.APIBody)

	overlay(&c.Delivery.Kind, fc.Delivery.Kind)
	overlay(&c.Delivery.AddressTemplate, fc.Delivery.AddressTemplate)

	overlay(&c.Poster.OutputDir, fc.Poster.OutputDir)
	overlay(&c.Poster.AssetsDir, fc.Poster.AssetsDir)
	overlayList(&c.Poster.FontPaths, fc.Poster.FontPaths)

	overlay(&c.Scheduler.Timezone, fc.Scheduler.Timezone)
	return nil
}

func overlay(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func overlayList(dst *[]string, values []string) {
	if cleaned := cleanList(values); len(cleaned) > 0 {
		*dst = cleaned
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.Atoi(strings.TrimSpace(value))
		if err == nil {
			return intValue
		}
		log.Printf("Warning: invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

// getEnvAsPositiveInt is getEnvAsInt for values that must be at least one.
func getEnvAsPositiveInt(key string, defaultValue int) int {
	v := getEnvAsInt(key, defaultValue)
	if v < 1 {
		log.Printf("Warning: %s must be positive, using default %d", key, defaultValue)
		return defaultValue
	}
	return v
}

func getEnvAsSeconds(key string, defaultSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, defaultSeconds)) * time.Second
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(strings.TrimSpace(value))
		if err == nil {
			return boolValue
		}
		log.Printf("Warning: invalid boolean for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blank entries.
func getEnvAsList(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		return cleanList(strings.Split(value, ","))
	}
	return defaultValue
}

func cleanList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
