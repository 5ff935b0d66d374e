// Package config loads lottery configuration from an optional YAML file, an
// optional .env file and the environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Record store drivers.
const (
	StoreSQLite    = "sqlite"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
	StoreMemory    = "memory"
)

// Identity store drivers. IdentityStore reuses the record store's database.
const (
	IdentityStore    = "store"
	IdentityRedis    = "redis"
	IdentityFirebase = "firebase"
	IdentityNone     = "none"
)

// Artifact media.
const (
	MediumDir   = "dir"
	MediumMinio = "minio"
)

type Config struct {
	Campaign  string         `yaml:"campaign" env:"LOTTERY_CAMPAIGN"`
	Timeout   time.Duration  `yaml:"timeout" env:"LOTTERY_TIMEOUT"`
	Store     StoreConfig    `yaml:"store"`
	Identity  IdentityConfig `yaml:"identity"`
	Artifacts ArtifactConfig `yaml:"artifacts"`
	Server    ServerConfig   `yaml:"server"`
}

type StoreConfig struct {
	Driver      string `yaml:"driver" env:"LOTTERY_STORE_DRIVER"`
	Path        string `yaml:"path" env:"LOTTERY_SQLITE_PATH"`
	DatabaseURL string `yaml:"database_url" env:"LOTTERY_DATABASE_URL"`
	ProjectID   string `yaml:"project_id" env:"LOTTERY_GCP_PROJECT"`
	Collection  string `yaml:"collection" env:"LOTTERY_FIRESTORE_COLLECTION"`
	// CredentialsFile is a service account key; empty uses application
	// default credentials.
	CredentialsFile string `yaml:"credentials_file" env:"LOTTERY_GCP_CREDENTIALS_FILE"`
}

type IdentityConfig struct {
	Driver   string `yaml:"driver" env:"LOTTERY_IDENTITY_DRIVER"`
	RedisURL string `yaml:"redis_url" env:"LOTTERY_REDIS_URL"`
}

type ArtifactConfig struct {
	Medium string      `yaml:"medium" env:"LOTTERY_ARTIFACT_MEDIUM"`
	Dir    string      `yaml:"dir" env:"LOTTERY_ARTIFACT_DIR"`
	Format string      `yaml:"format" env:"LOTTERY_ARTIFACT_FORMAT"`
	Minio  MinioConfig `yaml:"minio"`
}

type MinioConfig struct {
	Endpoint  string `yaml:"endpoint" env:"LOTTERY_MINIO_ENDPOINT"`
	AccessKey string `yaml:"access_key" env:"LOTTERY_MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"secret_key" env:"LOTTERY_MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env:"LOTTERY_MINIO_BUCKET"`
	Prefix    string `yaml:"prefix" env:"LOTTERY_MINIO_PREFIX"`
	UseSSL    bool   `yaml:"use_ssl" env:"LOTTERY_MINIO_USE_SSL"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" env:"LOTTERY_SERVER_ADDR"`
}

// Default returns the configuration used when nothing is supplied.
func Default() Config {
	return Config{
		Timeout:   10 * time.Minute,
		Store:     StoreConfig{Driver: StoreSQLite, Path: filepath.Join("data", "lottery.db")},
		Identity:  IdentityConfig{Driver: IdentityStore},
		Artifacts: ArtifactConfig{Medium: MediumDir, Dir: "out", Format: "json"},
		Server:    ServerConfig{Addr: ":8080"},
	}
}

// Load builds the configuration. path names an optional YAML file; dotenv
// names an optional .env file whose variables are exported before the
// environment is read. Missing files are skipped when their name is empty
// or, for dotenv, when the file does not exist.
func Load(path, dotenv string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if dotenv != "" {
		if err := godotenv.Load(dotenv); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", dotenv, err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the driver selections and their required settings.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreSQLite:
		if c.Store.Path == "" {
			return errors.New("store.path is required for the sqlite store")
		}
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("store.database_url is required for the postgres store")
		}
	case StoreFirestore:
		if c.Store.ProjectID == "" {
			return errors.New("store.project_id is required for the firestore store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	switch c.Identity.Driver {
	case IdentityStore:
		if c.Store.Driver == StoreFirestore {
			return errors.New("the firestore store has no identity table; use identity.driver firebase")
		}
	case IdentityRedis:
		if c.Identity.RedisURL == "" {
			return errors.New("identity.redis_url is required for the redis identity store")
		}
	case IdentityFirebase:
		if c.Store.ProjectID == "" {
			return errors.New("store.project_id is required for the firebase identity store")
		}
	case IdentityNone:
	default:
		return fmt.Errorf("unknown identity driver %q", c.Identity.Driver)
	}

	switch c.Artifacts.Medium {
	case MediumDir:
		if c.Artifacts.Dir == "" {
			return errors.New("artifacts.dir is required")
		}
	case MediumMinio:
		if c.Artifacts.Minio.Endpoint == "" || c.Artifacts.Minio.Bucket == "" {
			return errors.New("artifacts.minio endpoint and bucket are required")
		}
	default:
		return fmt.Errorf("unknown artifact medium %q", c.Artifacts.Medium)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
