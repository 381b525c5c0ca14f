package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/technosupport/vms-analytics/internal/data"
	"github.com/technosupport/vms-analytics/internal/ratelimit"
	"github.com/technosupport/vms-analytics/internal/storage"
	"github.com/technosupport/vms-analytics/internal/tampering"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config/default.yaml"

type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Log           LogConfig          `yaml:"log"`
	DB            DBConfig           `yaml:"db"`
	Redis         RedisConfig        `yaml:"redis"`
	NATS          NATSConfig         `yaml:"nats"`
	Engine        EngineConfig       `yaml:"engine"`
	Storage       StorageConfig      `yaml:"storage"`
	Tampering     TamperingConfig    `yaml:"tampering"`
	Capabilities  CapabilitiesConfig `yaml:"capabilities"`
	Audit         AuditConfig        `yaml:"audit"`
	RateLimit     RateLimitConfig    `yaml:"rate_limit"`
	Limits        LimitsConfig       `yaml:"limits"`
	Results       ResultsConfig      `yaml:"results"`
	JWTSigningKey string             `yaml:"-"`
	PublicBaseURL string             `yaml:"public_base_url"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	MaxUploadMB     int64         `yaml:"max_upload_mb"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
	MaxConns int    `yaml:"max_conns"`
}

// DSN is the lib/pq connection URL.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type NATSConfig struct {
	// An empty URL disables event fan-out.
	URL        string `yaml:"url"`
	Subject    string `yaml:"subject"`
	MaxRetries int    `yaml:"max_retries"`
}

type EngineConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	// Backend is "file" or "sftp".
	Backend string             `yaml:"backend"`
	Root    string             `yaml:"root"`
	SFTP    storage.SFTPConfig `yaml:"sftp"`
}

type TamperingConfig struct {
	DefaultWindows data.WindowConfig `yaml:"default_windows"`
	DayStart       string            `yaml:"day_start"`
	DayEnd         string            `yaml:"day_end"`
	UseSunPosition bool              `yaml:"use_sun_position"`
}

type CapabilitiesConfig struct {
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

type AuditConfig struct {
	SpoolDir       string        `yaml:"spool_dir"`
	SpoolMaxMB     int64         `yaml:"spool_max_mb"`
	ReplayInterval time.Duration `yaml:"replay_interval"`
}

type RateLimitConfig struct {
	Enabled bool                  `yaml:"enabled"`
	Salt    string                `yaml:"salt"`
	IP      ratelimit.LimitConfig `yaml:"ip"`
	Company ratelimit.LimitConfig `yaml:"company"`
	Analyze ratelimit.LimitConfig `yaml:"analyze"`
}

type LimitsConfig struct {
	MaxCameras int `yaml:"max_cameras"`
}

type ResultsConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Defaults is the configuration used for anything the file leaves unset.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadMB:     110,
		},
		Log: LogConfig{Level: "info", Format: "json"},
		DB: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "vms",
			Name:     "vms",
			SSLMode:  "disable",
			MaxConns: 20,
		},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		NATS:   NATSConfig{Subject: "vms.tampering", MaxRetries: 3},
		Engine: EngineConfig{URL: "http://localhost:9000", Timeout: 30 * time.Second},
		Storage: StorageConfig{
			Backend: "file",
			Root:    "data/references",
			SFTP:    storage.SFTPConfig{Port: 22, Timeout: 10 * time.Second},
		},
		Tampering: TamperingConfig{
			DefaultWindows: data.WindowConfig{
				FirstCheckFrom:  "08:00",
				FirstCheckTo:    "20:00",
				SecondCheckFrom: "20:00",
				SecondCheckTo:   "08:00",
			},
			DayStart: "06:00",
			DayEnd:   "18:00",
		},
		Capabilities: CapabilitiesConfig{CacheSize: 1024, CacheTTL: time.Minute},
		Audit: AuditConfig{
			SpoolDir:       "data/audit_spool",
			SpoolMaxMB:     1024,
			ReplayInterval: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			IP:      ratelimit.LimitConfig{Rate: 600, Window: time.Minute},
			Company: ratelimit.LimitConfig{Rate: 1200, Window: time.Minute},
			Analyze: ratelimit.LimitConfig{Rate: 120, Window: time.Minute},
		},
		Limits:        LimitsConfig{MaxCameras: 500},
		Results:       ResultsConfig{TTL: 7 * 24 * time.Hour},
		PublicBaseURL: "http://localhost:8080",
	}
}

// ResolvePath returns custom, then $VMS_CONFIG, then DefaultPath.
func ResolvePath(custom string) string {
	if custom != "" {
		return custom
	}
	if p := os.Getenv("VMS_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path over the defaults, then applies .env and
// environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	raw, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.DB.Host, "DB_HOST")
	setInt(&cfg.DB.Port, "DB_PORT")
	setString(&cfg.DB.User, "DB_USER")
	setString(&cfg.DB.Password, "DB_PASSWORD")
	setString(&cfg.DB.Name, "DB_NAME")
	setString(&cfg.DB.SSLMode, "DB_SSLMODE")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.NATS.URL, "NATS_URL")
	setString(&cfg.JWTSigningKey, "JWT_SIGNING_KEY")
	setString(&cfg.Engine.URL, "ENGINE_URL")
	setInt(&cfg.Server.Port, "PORT")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.PublicBaseURL, "PUBLIC_BASE_URL")
	setString(&cfg.Storage.SFTP.Password, "SFTP_PASSWORD")
	setString(&cfg.RateLimit.Salt, "RATE_LIMIT_SALT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	if err := tampering.ValidateWindows(c.Tampering.DefaultWindows); err != nil {
		return fmt.Errorf("tampering.default_windows: %w", err)
	}
	if _, err := tampering.ParseClock(c.Tampering.DayStart); err != nil {
		return fmt.Errorf("tampering.day_start: %w", err)
	}
	if _, err := tampering.ParseClock(c.Tampering.DayEnd); err != nil {
		return fmt.Errorf("tampering.day_end: %w", err)
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.Root == "" {
			return errors.New("storage.root is required for the file backend")
		}
	case "sftp":
		if c.Storage.SFTP.Host == "" {
			return errors.New("storage.sftp.host is required for the sftp backend")
		}
		if c.Storage.SFTP.KnownHosts == "" && !c.Storage.SFTP.InsecureIgnoreHostKey {
			return errors.New("storage.sftp.known_hosts is required unless insecure_ignore_host_key is set")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Limits.MaxCameras < 0 {
		return errors.New("limits.max_cameras must not be negative")
	}
	return nil
}
