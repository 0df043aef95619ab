package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string        `yaml:"addr"`
	JWTSecret     string        `yaml:"jwt_secret"`
	APITimeout    time.Duration `yaml:"timeout"`
	DatabasePath  string        `yaml:"database_path"`
	TokenDuration time.Duration `yaml:"token_duration"`
	Workers       int           `yaml:"workers"`
	Gateway       GatewayConfig `yaml:"gateway"`
}

// GatewayConfig tunes the payment gateway HTTP client.
type GatewayConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

func LoadConfig(path string) (*Config, error) {
	apiTimeout := 15 * time.Second
	tokenDuration := 24 * time.Hour

	cfg := &Config{
		Addr:          getEnv("CLIENTDESK_ADDR", ":8080"),
		JWTSecret:     getEnv("CLIENTDESK_JWT_SECRET", "supersecretkey"),
		APITimeout:    apiTimeout,
		DatabasePath:  getEnv("CLIENTDESK_DATABASE_PATH", "clientdesk.db"),
		TokenDuration: tokenDuration,
		Workers:       2,
		Gateway: GatewayConfig{
			BaseURL:                 getEnv("CLIENTDESK_GATEWAY_URL", "https://api.sandbox.paypal.com"),
			Timeout:                 10 * time.Second,
			Retries:                 2,
			Backoff:                 500 * time.Millisecond,
			CircuitFailureThreshold: 5,
			CircuitReset:            30 * time.Second,
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// Validate checks the loaded configuration and fills gateway defaults.
// The default JWT secret is rejected outside development.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr is required")
	}
	if c.DatabasePath == "" {
		return fmt.Errorf("database_path is required")
	}
	if c.JWTSecret == "" || c.JWTSecret == "supersecretkey" {
		if os.Getenv("CLIENTDESK_ENV") != "development" {
			return fmt.Errorf("jwt_secret is insecure; set a real secret outside development")
		}
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if c.Gateway.Timeout <= 0 {
		c.Gateway.Timeout = 10 * time.Second
	}
	if c.Gateway.Retries <= 0 {
		c.Gateway.Retries = 2
	}
	if c.Gateway.Backoff <= 0 {
		c.Gateway.Backoff = 500 * time.Millisecond
	}
	if c.Gateway.CircuitFailureThreshold <= 0 {
		c.Gateway.CircuitFailureThreshold = 5
	}
	if c.Gateway.CircuitReset <= 0 {
		c.Gateway.CircuitReset = 30 * time.Second
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
