package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/db"
	"codearena/internal/common/mq"
	"codearena/internal/judge"
	"codearena/internal/match/controller"
	"codearena/internal/match/problemsource"
	"codearena/internal/match/service"
	"codearena/pkg/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8088"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// ResultsConfig controls publication of final match results.
type ResultsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
}

// AppConfig holds arena-server configuration.
type AppConfig struct {
	Server     ServerConfig              `yaml:"server"`
	Logger     logger.Config             `yaml:"logger"`
	Database   db.MySQLConfig            `yaml:"database"`
	Redis      cache.RedisConfig         `yaml:"redis"`
	Kafka      mq.KafkaConfig            `yaml:"kafka"`
	Results    ResultsConfig             `yaml:"results"`
	Judge      judge.Config              `yaml:"judge"`
	Match      service.Config            `yaml:"match"`
	Auth       controller.IdentityConfig `yaml:"auth"`
	ProblemGen problemsource.Config      `yaml:"problemGen"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Database.DSN == "" {
		return nil, errors.New("database.dsn is required")
	}
	defaults := db.DefaultMySQLConfig()
	if cfg.Database.MaxOpenConnections == 0 {
		cfg.Database.MaxOpenConnections = defaults.MaxOpenConnections
	}
	if cfg.Database.MaxIdleConnections == 0 {
		cfg.Database.MaxIdleConnections = defaults.MaxIdleConnections
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}

	if cfg.Redis.Addr == "" {
		return nil, errors.New("redis.addr is required")
	}
	redisDefaults := cache.DefaultRedisConfig()
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = redisDefaults.DialTimeout
	}
	if cfg.Redis.ReadTimeout == 0 {
		cfg.Redis.ReadTimeout = redisDefaults.ReadTimeout
	}
	if cfg.Redis.WriteTimeout == 0 {
		cfg.Redis.WriteTimeout = redisDefaults.WriteTimeout
	}
	if cfg.Redis.PoolSize == 0 {
		cfg.Redis.PoolSize = redisDefaults.PoolSize
	}

	if cfg.Results.Enabled && len(cfg.Kafka.Brokers) == 0 {
		return nil, errors.New("kafka.brokers are required when results.enabled is set")
	}
	if cfg.Results.Topic == "" {
		cfg.Results.Topic = service.DefaultResultTopic
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwtSecret is required")
	}

	return &cfg, nil
}
