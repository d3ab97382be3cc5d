package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	HTTP      HTTPConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Maps      MapsConfig
	Search    SearchConfig
	JWT       JWTConfig
	Telephony TelephonyConfig
	Storage   StorageConfig
	Sweeper   SweeperConfig
	Log       LogConfig
}

type AppConfig struct {
	Name string
	Env  string
	Port string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	CORSAllowOrigins []string
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	ConnectTimeout  time.Duration
}

// RedisConfig is optional; an empty Addr keeps realtime events in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MapsConfig struct {
	APIKey            string
	BaseURL           string
	Timeout           time.Duration
	DetailConcurrency int
}

// MaxSearchResults caps how many candidates a search returns.
const MaxSearchResults = 4

type SearchConfig struct {
	DefaultRadius int
	MaxRadius     int
	MaxResults    int
}

type JWTConfig struct {
	Secret   string
	TokenTTL time.Duration
	Issuer   string
}

type TelephonyConfig struct {
	AccountSID     string
	AuthToken      string
	FromNumber     string
	BaseURL        string
	Timeout        time.Duration
	CallsPerMinute int
}

// StorageConfig configures the S3-compatible archive bucket. Archiving is
// disabled when Bucket is empty.
type StorageConfig struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

type SweeperConfig struct {
	Enabled  bool
	Interval time.Duration
	MaxAge   time.Duration
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// Load reads configuration with the following priority (highest first):
//  1. Environment variables with BITVOTE_ prefix (e.g. BITVOTE_DATABASE_URL)
//  2. config.toml in the working directory
//  3. Built-in defaults
//
// A .env file is loaded into the environment first unless BITVOTE_APP_ENV is
// production.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadSweeper reads the same sources as Load but only requires what the
// standalone sweeper uses: the database and, when set, storage.
func LoadSweeper() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("missing required config: database.url")
	}
	return cfg, nil
}

func read() (*Config, error) {
	if os.Getenv("BITVOTE_APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix("BITVOTE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := fromViper(v)
	applyDefaults(cfg)
	return cfg, nil
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("database.url"),
			MaxConns:        v.GetInt32("database.max_conns"),
			MinConns:        v.GetInt32("database.min_conns"),
			MaxConnLifetime: v.GetDuration("database.max_conn_lifetime"),
			ConnectTimeout:  v.GetDuration("database.connect_timeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Maps: MapsConfig{
			APIKey:            v.GetString("maps.api_key"),
			BaseURL:           v.GetString("maps.base_url"),
			Timeout:           v.GetDuration("maps.timeout"),
			DetailConcurrency: v.GetInt("maps.detail_concurrency"),
		},
		Search: SearchConfig{
			DefaultRadius: v.GetInt("search.default_radius"),
			MaxRadius:     v.GetInt("search.max_radius"),
			MaxResults:    v.GetInt("search.max_results"),
		},
		JWT: JWTConfig{
			Secret:   v.GetString("jwt.secret"),
			TokenTTL: v.GetDuration("jwt.token_ttl"),
			Issuer:   v.GetString("jwt.issuer"),
		},
		Telephony: TelephonyConfig{
			AccountSID:     v.GetString("telephony.account_sid"),
			AuthToken:      v.GetString("telephony.auth_token"),
			FromNumber:     v.GetString("telephony.from_number"),
			BaseURL:        v.GetString("telephony.base_url"),
			Timeout:        v.GetDuration("telephony.timeout"),
			CallsPerMinute: v.GetInt("telephony.calls_per_minute"),
		},
		Storage: StorageConfig{
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Sweeper: SweeperConfig{
			Enabled:  v.GetBool("sweeper.enabled"),
			Interval: v.GetDuration("sweeper.interval"),
			MaxAge:   v.GetDuration("sweeper.max_age"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "bitvote"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.HTTP.ReadTimeout <= 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout <= 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout <= 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if len(cfg.HTTP.CORSAllowOrigins) == 0 {
		cfg.HTTP.CORSAllowOrigins = []string{"*"}
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Database.MinConns == 0 {
		cfg.Database.MinConns = 2
	}
	if cfg.Database.MaxConnLifetime <= 0 {
		cfg.Database.MaxConnLifetime = time.Hour
	}
	if cfg.Database.ConnectTimeout <= 0 {
		cfg.Database.ConnectTimeout = 5 * time.Second
	}
	if cfg.Maps.BaseURL == "" {
		cfg.Maps.BaseURL = "https://maps.googleapis.com/maps/api"
	}
	if cfg.Maps.Timeout <= 0 {
		cfg.Maps.Timeout = 10 * time.Second
	}
	if cfg.Maps.DetailConcurrency == 0 {
		cfg.Maps.DetailConcurrency = 8
	}
	if cfg.Search.DefaultRadius == 0 {
		cfg.Search.DefaultRadius = 5000
	}
	if cfg.Search.MaxRadius == 0 {
		cfg.Search.MaxRadius = 50000
	}
	if cfg.Search.MaxResults == 0 {
		cfg.Search.MaxResults = 4
	}
	if cfg.JWT.TokenTTL <= 0 {
		cfg.JWT.TokenTTL = 24 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "bitvote"
	}
	if cfg.Telephony.BaseURL == "" {
		cfg.Telephony.BaseURL = "https://api.twilio.com/2010-04-01"
	}
	if cfg.Telephony.Timeout <= 0 {
		cfg.Telephony.Timeout = 15 * time.Second
	}
	if cfg.Telephony.CallsPerMinute == 0 {
		cfg.Telephony.CallsPerMinute = 3
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}
	if cfg.Sweeper.Interval <= 0 {
		cfg.Sweeper.Interval = time.Hour
	}
	if cfg.Sweeper.MaxAge <= 0 {
		cfg.Sweeper.MaxAge = 24 * time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		if cfg.IsProduction() {
			cfg.Log.Format = "json"
		} else {
			cfg.Log.Format = "console"
		}
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

func (c *Config) validate() error {
	var missing []string
	if c.Database.URL == "" {
		missing = append(missing, "database.url")
	}
	if c.JWT.Secret == "" {
		missing = append(missing, "jwt.secret")
	}
	if c.Maps.APIKey == "" && c.App.Env != "test" {
		missing = append(missing, "maps.api_key")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}

	if c.Search.MaxResults < 1 || c.Search.MaxResults > MaxSearchResults {
		return fmt.Errorf("search.max_results must be between 1 and %d", MaxSearchResults)
	}
	if c.Maps.DetailConcurrency < 1 {
		return errors.New("maps.detail_concurrency must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// TelephonyEnabled reports whether reservation calls can be placed.
func (c *Config) TelephonyEnabled() bool {
	return c.Telephony.AccountSID != "" && c.Telephony.AuthToken != "" && c.Telephony.FromNumber != ""
}
