package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "PANTRY"

// Load reads configs/config.yaml (or the file at path when given), merges
// config.<environment>.yaml on top when present, then applies PANTRY_*
// environment overrides. A .env file in the working directory or project
// root is loaded first.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath("../../configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		overlay := filepath.Join(filepath.Dir(used), fmt.Sprintf("config.%s.yaml", v.GetString("app.environment")))
		if _, err := os.Stat(overlay); err == nil {
			v.SetConfigFile(overlay)
			if err := v.MergeInConfig(); err != nil {
				return nil, fmt.Errorf("merge %s: %w", overlay, err)
			}
		}
	}

	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	paths := []string{".env", "../.env", "../../.env"}
	if root := findProjectRoot(); root != "" {
		paths = append(paths, filepath.Join(root, ".env"))
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			if err := godotenv.Load(p); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// expandEnvVars replaces ${VAR} placeholders in string values with the
// environment variable's value.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !strings.Contains(val, "${") {
			continue
		}
		v.Set(key, os.ExpandEnv(val))
	}
}

// setDefaults registers every key so that PANTRY_* variables override keys
// the config file leaves out.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "smart-pantry")
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.read_timeout", 10*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("grpc.enabled", true)
	v.SetDefault("grpc.addr", ":50051")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "pantry.db")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.snapshot_ttl", 5*time.Minute)
	v.SetDefault("redis.idempotency_ttl", 24*time.Hour)

	v.SetDefault("workers.count", 4)
	v.SetDefault("workers.queue_size", 1000)

	v.SetDefault("interpreter.shelf_life_days", 7)
	v.SetDefault("interpreter.default_item_name", "Pantry item")
	v.SetDefault("interpreter.snapshot_limit", 500)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func validateConfig(cfg *Config) error {
	switch cfg.Database.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres, mysql or sqlite, got %q", cfg.Database.Driver)
	}
	if cfg.Database.Driver != "sqlite" && cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return fmt.Errorf("database.host is required for %s", cfg.Database.Driver)
	}
	if cfg.Database.GetDSN() == "" {
		return fmt.Errorf("database.name is required")
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis.address is required")
	}

	if cfg.Workers.Count <= 0 {
		return fmt.Errorf("workers.count must be positive")
	}
	if cfg.Workers.QueueSize <= 0 {
		return fmt.Errorf("workers.queue_size must be positive")
	}

	if cfg.Interpreter.ShelfLifeDays <= 0 {
		return fmt.Errorf("interpreter.shelf_life_days must be positive")
	}
	return nil
}
