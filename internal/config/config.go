package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`

	Auth struct {
		APIKey      string `yaml:"apiKey"`
		Environment string `yaml:"environment"` // development | production
	} `yaml:"auth"`

	Storage struct {
		Endpoint     string `yaml:"endpoint"`
		AccessKey    string `yaml:"accessKey"`
		SecretKey    string `yaml:"secretKey"`
		Bucket       string `yaml:"bucket"`
		Region       string `yaml:"region"`
		UseSSL       bool   `yaml:"useSSL"`
		Provider     string `yaml:"provider"` // s3 | r2 | minio
		PublicDomain string `yaml:"publicDomain"`
	} `yaml:"storage"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres | memory
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`
	} `yaml:"database"`

	Analyzer struct {
		Workers     int    `yaml:"workers"`
		OpenAIKey   string `yaml:"openaiKey"`
		OpenAIModel string `yaml:"openaiModel"`
	} `yaml:"analyzer"`
}

// Load baca file config.yaml, lalu apply env overrides
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return &cfg, nil
}

// applyEnv lets deployment environments override secrets and basics without
// touching the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Server.Port = p
		}
	}
	if v := os.Getenv("API_KEY"); v != "" {
		c.Auth.APIKey = v
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.Auth.Environment = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
	if v := os.Getenv("AWS_S3_BUCKET"); v != "" {
		c.Storage.Bucket = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Storage.Region = v
	}
	if v := os.Getenv("STORAGE_DOMAIN"); v != "" {
		c.Storage.PublicDomain = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.Analyzer.OpenAIKey = v
	}
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	sslMode := c.Database.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		sslMode,
	)
}
