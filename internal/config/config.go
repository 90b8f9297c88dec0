package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr          string          `yaml:"addr"`
	JWTSecret     string          `yaml:"jwt_secret"`
	APITimeout    time.Duration   `yaml:"timeout"`
	DatabasePath  string          `yaml:"database_path"`
	TokenDuration time.Duration   `yaml:"token_duration"`
	Store         StoreConfig     `yaml:"store"`
	Cache         CacheConfig     `yaml:"cache"`
	Reconcile     ReconcileConfig `yaml:"reconcile"`
	Engine        EngineConfig    `yaml:"engine"`
	Ollama        OllamaConfig    `yaml:"ollama"`
}

// StoreConfig points at the hosted record store.
type StoreConfig struct {
	BaseURL   string        `yaml:"base_url"`
	AuthToken string        `yaml:"auth_token"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheConfig holds the per-collection freshness windows.
type CacheConfig struct {
	RegistrationsWindow time.Duration `yaml:"registrations_window"`
	ClientsWindow       time.Duration `yaml:"clients_window"`
	DashboardWindow     time.Duration `yaml:"dashboard_window"`
}

// ReconcileConfig controls the employee reverse-index repair sweep.
type ReconcileConfig struct {
	Interval time.Duration `yaml:"interval"`
	Workers  int           `yaml:"workers"`
}

// EngineConfig configures the profile summarizer.
type EngineConfig struct {
	Model         string        `yaml:"model"`
	Timeout       time.Duration `yaml:"timeout"`
	MinConfidence float64       `yaml:"min_confidence"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:          getEnv("BACKOFFICE_ADDR", ":8080"),
		JWTSecret:     getEnv("BACKOFFICE_JWT_SECRET", "supersecretkey"),
		APITimeout:    15 * time.Second,
		DatabasePath:  getEnv("BACKOFFICE_DATABASE_PATH", "backoffice.db"),
		TokenDuration: 1 * time.Hour,
		Store: StoreConfig{
			BaseURL: getEnv("BACKOFFICE_STORE_URL", "http://localhost:9000"),
			Timeout: 15 * time.Second,
		},
		Cache: CacheConfig{
			RegistrationsWindow: 2 * time.Minute,
			ClientsWindow:       24 * time.Hour,
			DashboardWindow:     2 * time.Minute,
		},
		Reconcile: ReconcileConfig{
			Interval: 15 * time.Minute,
			Workers:  2,
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

// Validate checks the loaded configuration and fills Ollama defaults.
// The default JWT secret is only tolerated in development.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr must not be empty")
	}
	if c.JWTSecret == "supersecretkey" && os.Getenv("BACKOFFICE_ENV") != "development" {
		return fmt.Errorf("insecure default jwt_secret outside development")
	}
	if c.Store.BaseURL == "" {
		return fmt.Errorf("store.base_url must not be empty")
	}
	if c.Engine.Model == "" {
		return fmt.Errorf("engine.model must not be empty")
	}
	if c.Cache.RegistrationsWindow <= 0 {
		c.Cache.RegistrationsWindow = 2 * time.Minute
	}
	if c.Cache.ClientsWindow <= 0 {
		c.Cache.ClientsWindow = 24 * time.Hour
	}
	if c.Cache.DashboardWindow <= 0 {
		c.Cache.DashboardWindow = 2 * time.Minute
	}
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = getEnv("OLLAMA_HOST", "http://localhost:11434")
	}
	if c.Ollama.Timeout <= 0 {
		c.Ollama.Timeout = 60 * time.Second
	}
	if c.Ollama.Retries == 0 {
		c.Ollama.Retries = 2
	}
	if c.Ollama.Backoff <= 0 {
		c.Ollama.Backoff = time.Second
	}
	if c.Ollama.CircuitFailureThreshold <= 0 {
		c.Ollama.CircuitFailureThreshold = 5
	}
	if c.Ollama.CircuitReset <= 0 {
		c.Ollama.CircuitReset = 30 * time.Second
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
