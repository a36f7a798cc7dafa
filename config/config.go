package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xboikom1/Quiz-builder/models"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrMissingDatabaseURL = errors.New("DATABASE_URL is required")

// Config holds application configuration loaded from the environment and an
// optional .env file.
type Config struct {
	Env         string `mapstructure:"app_env"`
	Port        int    `mapstructure:"port"`
	BindAddress string `mapstructure:"bind_address"`
	CORSOrigins string `mapstructure:"cors_allowed_origins"` // comma separated
	DB          DB     `mapstructure:",squash"`
	Redis       Redis  `mapstructure:",squash"`
}

type DB struct {
	URL             string        `mapstructure:"database_url"`
	Driver          string        `mapstructure:"db_driver"`
	MaxConnections  int           `mapstructure:"db_max_connections"`
	MaxConnLifetime time.Duration `mapstructure:"db_max_conn_lifetime"`
}

type Redis struct {
	Addr    string `mapstructure:"redis_addr"`
	Channel string `mapstructure:"redis_channel"`
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}

func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(c.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration once at process start.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	v.SetDefault("app_env", "development")
	v.SetDefault("port", 3000)
	v.SetDefault("bind_address", "")
	v.SetDefault("cors_allowed_origins", "*")
	v.SetDefault("database_url", "")
	v.SetDefault("db_driver", DriverPostgres)
	v.SetDefault("db_max_connections", 10)
	v.SetDefault("db_max_conn_lifetime", "30m")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_channel", "quizzes:events")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid PORT %d", cfg.Port)
	}

	cfg.DB.Driver = strings.ToLower(cfg.DB.Driver)
	switch cfg.DB.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DB.Driver)
	}
	if cfg.DB.URL == "" {
		return nil, ErrMissingDatabaseURL
	}

	return &cfg, nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DB.Driver {
	case DriverSQLite:
		db, err = gorm.Open(sqlite.Open(cfg.DB.URL), gormConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// SQLite allows a single writer
		sqlDB.SetMaxOpenConns(1)

	default:
		connConfig, err := pgx.ParseConfig(cfg.DB.URL)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		sqlDB := stdlib.OpenDB(*connConfig)
		sqlDB.SetMaxOpenConns(cfg.DB.MaxConnections)
		sqlDB.SetConnMaxLifetime(cfg.DB.MaxConnLifetime)

		db, err = gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig)
		if err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
	}

	return db, nil
}

// Migrate creates or updates the quiz tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Quiz{}, &models.Question{}, &models.Option{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// InitRedis connects to Redis when REDIS_ADDR is set. A nil client means
// quiz events stay within this process.
func InitRedis(ctx context.Context, cfg *Config) (*redis.Client, error) {
	if cfg.Redis.Addr == "" {
		return nil, nil
	}

	opts := &redis.Options{Addr: cfg.Redis.Addr}
	if strings.HasPrefix(cfg.Redis.Addr, "redis://") || strings.HasPrefix(cfg.Redis.Addr, "rediss://") {
		parsed, err := redis.ParseURL(cfg.Redis.Addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}
