package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type HTTPConfig struct {
	Port string `yaml:"port"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

type RabbitMQConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Exchange string `yaml:"exchange"`
}

type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	TokenTTLHours int    `yaml:"token_ttl_hours"`
}

type DispatchConfig struct {
	// RequireActiveShift gates order start/complete on the driver
	// holding an ACTIVE shift. Off by default: shifts and orders are
	// tracked independently unless the fleet opts in.
	RequireActiveShift bool `yaml:"require_active_shift"`
}

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	RabbitMQ RabbitMQConfig `yaml:"rabbitmq"`
	Auth     AuthConfig     `yaml:"auth"`
	Dispatch DispatchConfig `yaml:"dispatch"`
}

var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// Load reads a YAML config file, expanding ${VAR} and ${VAR:-default}
// references against the process environment before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Auth.TokenTTLHours <= 0 {
		cfg.Auth.TokenTTLHours = 12
	}
	if cfg.RabbitMQ.Exchange == "" {
		cfg.RabbitMQ.Exchange = "dispatch_topic"
	}

	return cfg, nil
}

func expandEnv(data string) string {
	return envRef.ReplaceAllStringFunc(data, func(ref string) string {
		m := envRef.FindStringSubmatch(ref)
		name, def := m[1], m[3]
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		return def
	})
}

// DSN builds the postgres connection string used by pgxpool.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		c.User, c.Password, c.Host, c.Port, c.Database)
}

// URL builds the AMQP connection string.
func (c RabbitMQConfig) URL() string {
	host := c.Host
	if !strings.Contains(host, ":") && c.Port != "" {
		host = host + ":" + c.Port
	}
	return fmt.Sprintf("amqp://%s:%s@%s/", c.User, c.Password, host)
}
