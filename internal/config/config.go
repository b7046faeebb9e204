// Package config loads the doc-tools configuration from YAML with environment
// variable overrides.
//
// A missing configuration file is not an error: every section has a usable
// default so the MCP server can start with nothing but environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up when none is given.
const DefaultPath = "doc-tools.yaml"

// DashScopeBaseURL is the OpenAI-compatible endpoint of Alibaba's model studio.
const DashScopeBaseURL = "https://dashscope.aliyuncs.com/compatible-mode/v1"

// Default model names per provider, applied when llm.model is unset.
const (
	DefaultOpenAIModel = "qwen-plus"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// Config is the full application configuration.
type Config struct {
	LogLevel string         `yaml:"log_level"`
	Rectify  RectifyConfig  `yaml:"rectify"`
	OCR      OCRConfig      `yaml:"ocr"`
	LLM      LLMConfig      `yaml:"llm"`
	Database DatabaseConfig `yaml:"database"`
	Sheet    SheetConfig    `yaml:"sheet"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

// RectifyConfig controls slide-photo rectification.
type RectifyConfig struct {
	Width          int      `yaml:"width"`
	Height         int      `yaml:"height"`
	AgreementRatio float64  `yaml:"agreement_ratio"` // merge threshold as a fraction of image width
	BlockSize      int      `yaml:"block_size"`
	C              float64  `yaml:"c"`
	Suffixes       []string `yaml:"suffixes"`
	Workers        int      `yaml:"workers"`
}

// OCRConfig controls Tesseract OCR.
type OCRConfig struct {
	Language     string `yaml:"language"`
	DPI          int    `yaml:"dpi"`
	TessdataPath string `yaml:"tessdata_path"`
	LinePrefix   string `yaml:"line_prefix"`
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider string        `yaml:"provider"` // "openai" or "gemini"
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

// DatabaseConfig holds the database/sql driver name and DSN.
type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "pgx" or "sqlite"
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

// SheetConfig controls spreadsheet defaults.
type SheetConfig struct {
	Encoding string `yaml:"encoding"` // CSV encoding: "gbk" or "utf-8"
	Sheet    string `yaml:"sheet"`
}

// MonitorConfig controls the process I/O watchdog.
type MonitorConfig struct {
	Interval       time.Duration `yaml:"interval"`
	ThresholdBytes uint64        `yaml:"threshold_bytes"`
	MQTT           MQTTConfig    `yaml:"mqtt"`
}

// MQTTConfig is the optional alert broker. An empty Broker disables MQTT.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Prefix   string `yaml:"prefix"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Rectify: RectifyConfig{
			Width:          800,
			Height:         600,
			AgreementRatio: 1.0 / 20.0,
			BlockSize:      11,
			C:              2,
			Suffixes:       []string{".jpg", ".jpeg", ".png"},
		},
		OCR: OCRConfig{
			Language:   "chi_sim",
			DPI:        200,
			LinePrefix: "Hello",
		},
		LLM: LLMConfig{
			Provider: "openai",
			Timeout:  2 * time.Minute,
		},
		Database: DatabaseConfig{
			Driver: "pgx",
			Schema: "public",
		},
		Sheet: SheetConfig{
			Encoding: "gbk",
			Sheet:    "Sheet1",
		},
		Monitor: MonitorConfig{
			Interval:       time.Second,
			ThresholdBytes: 40 * 1024,
			MQTT: MQTTConfig{
				ClientID: "doc-tools",
				Prefix:   "doc-tools",
			},
		},
	}
}

// Load reads the YAML file at path on top of Default, then applies environment
// overrides and validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config YAML: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	cfg.LLM.applyProviderDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides file values with non-empty environment variables.
func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}

	set(&c.LogLevel, "DOC_TOOLS_LOG_LEVEL")
	set(&c.LLM.BaseURL, "DOC_TOOLS_LLM_BASE_URL")
	set(&c.LLM.Model, "DOC_TOOLS_LLM_MODEL")
	set(&c.LLM.Provider, "DOC_TOOLS_LLM_PROVIDER")
	if c.LLM.Provider == "gemini" {
		set(&c.LLM.APIKey, "GEMINI_API_KEY")
	} else {
		set(&c.LLM.APIKey, "DASHSCOPE_API_KEY")
	}
	set(&c.Database.Driver, "DOC_TOOLS_DB_DRIVER")
	set(&c.Database.DSN, "DOC_TOOLS_DB_DSN")
	set(&c.OCR.TessdataPath, "TESSDATA_PREFIX")
	set(&c.Monitor.MQTT.Broker, "MQTT_BROKER")
	set(&c.Monitor.MQTT.ClientID, "MQTT_CLIENT_ID")
	set(&c.Monitor.MQTT.Username, "MQTT_USERNAME")
	set(&c.Monitor.MQTT.Password, "MQTT_PASSWORD")
}

// applyProviderDefaults fills an unset model and base URL with the
// selected provider's own defaults. Gemini has no base URL.
func (l *LLMConfig) applyProviderDefaults() {
	switch l.Provider {
	case "gemini":
		if l.Model == "" {
			l.Model = DefaultGeminiModel
		}
	default:
		if l.Model == "" {
			l.Model = DefaultOpenAIModel
		}
		if l.BaseURL == "" {
			l.BaseURL = DashScopeBaseURL
		}
	}
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	if c.Rectify.Width <= 0 || c.Rectify.Height <= 0 {
		return fmt.Errorf("rectify output size must be positive, got %dx%d", c.Rectify.Width, c.Rectify.Height)
	}
	if c.Rectify.AgreementRatio <= 0 || c.Rectify.AgreementRatio >= 1 {
		return fmt.Errorf("rectify.agreement_ratio must be in (0,1), got %g", c.Rectify.AgreementRatio)
	}
	if c.Rectify.BlockSize < 3 || c.Rectify.BlockSize%2 == 0 {
		return fmt.Errorf("rectify.block_size must be odd and >= 3, got %d", c.Rectify.BlockSize)
	}
	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("llm.provider must be openai or gemini, got %q", c.LLM.Provider)
	}
	switch c.Database.Driver {
	case "pgx", "sqlite":
	default:
		return fmt.Errorf("database.driver must be pgx or sqlite, got %q", c.Database.Driver)
	}
	switch strings.ToLower(c.Sheet.Encoding) {
	case "gbk", "gb18030", "utf-8", "utf8":
	default:
		return fmt.Errorf("sheet.encoding must be gbk, gb18030 or utf-8, got %q", c.Sheet.Encoding)
	}
	if c.Monitor.Interval <= 0 {
		return fmt.Errorf("monitor.interval must be positive")
	}
	return nil
}

// Save writes the configuration as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
