package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/docker/go-units"
	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/sir_venger/resumable_lite/internal/storage"
)

type GCConfig struct {
	TTL      time.Duration `yaml:"ttl" json:"ttl" envconfig:"TTL" validate:"gte=0"`
	Interval time.Duration `yaml:"interval" json:"interval" envconfig:"INTERVAL" validate:"gte=0"`
}

type S3Config struct {
	Bucket       string `yaml:"bucket" json:"bucket" envconfig:"BUCKET"`
	Prefix       string `yaml:"prefix" json:"prefix" envconfig:"PREFIX"`
	Region       string `yaml:"region" json:"region" envconfig:"REGION"`
	Endpoint     string `yaml:"endpoint" json:"endpoint" envconfig:"ENDPOINT" validate:"omitempty,url"`
	UsePathStyle bool   `yaml:"use_path_style" json:"use_path_style" envconfig:"USE_PATH_STYLE"`
}

type Config struct {
	ListenAddr   string        `yaml:"listen_addr" json:"listen_addr" envconfig:"LISTEN_ADDR" validate:"required"`
	Backend      string        `yaml:"backend" json:"backend" envconfig:"BACKEND" validate:"oneof=fs s3 memory"`
	DataDir      string        `yaml:"data_dir" json:"data_dir" envconfig:"DATA_DIR" validate:"required_if=Backend fs"`
	MetaDSN      string        `yaml:"meta_dsn" json:"meta_dsn" envconfig:"META_DSN" validate:"required"`
	MaxChunkSize string        `yaml:"max_chunk_size" json:"max_chunk_size" envconfig:"MAX_CHUNK_SIZE" validate:"required"`
	LeaseTTL     time.Duration `yaml:"lease_ttl" json:"lease_ttl" envconfig:"LEASE_TTL" validate:"gt=0"`
	LogLevel     string        `yaml:"log_level" json:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=debug info warn error"`
	GC           GCConfig      `yaml:"gc" json:"gc" envconfig:"GC"`
	S3           S3Config      `yaml:"s3" json:"s3" envconfig:"S3"`

	maxChunkBytes int64
}

// Default возвращает конфигурацию, с которой сервер поднимается без файла.
func Default() Config {
	return Config{
		ListenAddr:   ":8080",
		Backend:      storage.BackendFS,
		DataDir:      "./data",
		MetaDSN:      "badger://./meta",
		MaxChunkSize: "16MiB",
		LeaseTTL:     5 * time.Minute,
		LogLevel:     "info",
		GC: GCConfig{
			TTL:      24 * time.Hour,
			Interval: 30 * time.Minute,
		},
	}
}

// Load читает YAML-конфигурацию, применяет ENV-переопределения и возвращает актуальную структуру.
// Отсутствующий файл не ошибка: остаются значения по умолчанию.
func Load() (*Config, error) {
	return LoadFile(getenv("CONFIG_PATH", "./config.yaml"))
}

func LoadFile(path string) (*Config, error) {
	c := Default()

	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, err
	}

	// ENV override
	if err := envconfig.Process("", &c); err != nil {
		return nil, fmt.Errorf("env override: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	n, err := units.RAMInBytes(c.MaxChunkSize)
	if err != nil {
		return fmt.Errorf("invalid config: max_chunk_size: %w", err)
	}
	if n <= 0 {
		return fmt.Errorf("invalid config: max_chunk_size must be > 0")
	}
	c.maxChunkBytes = n

	if c.Backend == storage.BackendS3 {
		if err := c.StorageConfig().S3.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	return nil
}

// MaxChunkBytes — max_chunk_size в байтах.
func (c *Config) MaxChunkBytes() int64 { return c.maxChunkBytes }

func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend: c.Backend,
		DataDir: c.DataDir,
		S3: storage.S3Config{
			Bucket:       c.S3.Bucket,
			Prefix:       c.S3.Prefix,
			Region:       c.S3.Region,
			Endpoint:     c.S3.Endpoint,
			UsePathStyle: c.S3.UsePathStyle,
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}

	return def
}
