// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger       LoggerConfig       `mapstructure:"logger" yaml:"logger"`
	Display      DisplayConfig      `mapstructure:"display" yaml:"display"`
	Grounding    GroundingConfig    `mapstructure:"grounding" yaml:"grounding"`
	Planner      PlannerConfig      `mapstructure:"planner" yaml:"planner"`
	Executor     ExecutorConfig     `mapstructure:"executor" yaml:"executor"`
	Orchestrator OrchestratorConfig `mapstructure:"orchestrator" yaml:"orchestrator"`
	Metrics      MetricsConfig      `mapstructure:"metrics" yaml:"metrics"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color names for different log levels.
type ColorConfig struct {
	Debug string `mapstructure:"debug" yaml:"debug"`
	Info  string `mapstructure:"info" yaml:"info"`
	Warn  string `mapstructure:"warn" yaml:"warn"`
	Error string `mapstructure:"error" yaml:"error"`
	Fatal string `mapstructure:"fatal" yaml:"fatal"`
}

// DisplayBackend selects where screenshots come from and where clicks go.
type DisplayBackend string

const (
	// DisplayDesktop drives the real desktop pointer.
	DisplayDesktop DisplayBackend = "desktop"
	// DisplayBrowser treats a Chrome page viewport as the screen.
	DisplayBrowser DisplayBackend = "browser"
)

// DisplayConfig configures the screen capture and pointer injection backend.
type DisplayConfig struct {
	Backend DisplayBackend `mapstructure:"backend" yaml:"backend"`
	Browser BrowserConfig  `mapstructure:"browser" yaml:"browser"`
}

// BrowserConfig holds settings for the Chrome-backed virtual screen.
type BrowserConfig struct {
	StartURL string   `mapstructure:"start_url" yaml:"start_url"`
	Headless bool     `mapstructure:"headless" yaml:"headless"`
	Width    int      `mapstructure:"width" yaml:"width"`
	Height   int      `mapstructure:"height" yaml:"height"`
	Args     []string `mapstructure:"args" yaml:"args"`
}

// GroundingBackend selects how the vision-language model is reached.
type GroundingBackend string

const (
	// GroundingHTTP talks to a JSON inference server hosting the grounding model.
	GroundingHTTP GroundingBackend = "http"
	// GroundingOllama uses an Ollama server with a vision model.
	GroundingOllama GroundingBackend = "ollama"
)

// GroundingConfig configures the vision-language grounding model.
type GroundingConfig struct {
	Backend      GroundingBackend `mapstructure:"backend" yaml:"backend"`
	Endpoint     string           `mapstructure:"endpoint" yaml:"endpoint"`
	Model        string           `mapstructure:"model" yaml:"model"`
	APIKey       string           `mapstructure:"api_key" yaml:"api_key"`
	MaxNewTokens int              `mapstructure:"max_new_tokens" yaml:"max_new_tokens"`
	// APITimeout bounds a single HTTP attempt. Zero leaves inference unbounded.
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	// MaxRetryElapsed bounds retries of transient inference failures. Zero
	// disables retries so each failure surfaces after a single attempt.
	MaxRetryElapsed time.Duration `mapstructure:"max_retry_elapsed" yaml:"max_retry_elapsed"`
}

// LLMProvider defines the supported chat providers for planning.
type LLMProvider string

const (
	ProviderGemini    LLMProvider = "gemini"
	ProviderOpenAI    LLMProvider = "openai"
	ProviderAnthropic LLMProvider = "anthropic"
	ProviderOllama    LLMProvider = "ollama"
)

// PlannerConfig configures the chat model that decomposes goals into steps.
type PlannerConfig struct {
	Provider          LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model             string        `mapstructure:"model" yaml:"model"`
	APIKey            string        `mapstructure:"api_key" yaml:"api_key"`
	Endpoint          string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout        time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	MaxTokens         int           `mapstructure:"max_tokens" yaml:"max_tokens"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// ExecutorConfig tunes how a resolved click is performed.
type ExecutorConfig struct {
	// MoveDuration is how long the pointer glides to its target. Must be positive.
	MoveDuration time.Duration `mapstructure:"move_duration" yaml:"move_duration"`
	// MoveSteps is the number of intermediate pointer positions per glide.
	MoveSteps int `mapstructure:"move_steps" yaml:"move_steps"`
	// ClickPause separates arrival from the click.
	ClickPause time.Duration `mapstructure:"click_pause" yaml:"click_pause"`
	// DryRun logs targets without touching the pointer.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

// OrchestratorConfig holds the pacing of the goal loop.
type OrchestratorConfig struct {
	CaptureDelay       time.Duration `mapstructure:"capture_delay" yaml:"capture_delay"`
	PostGroundingDwell time.Duration `mapstructure:"post_grounding_dwell" yaml:"post_grounding_dwell"`
	PreExecutionSettle time.Duration `mapstructure:"pre_execution_settle" yaml:"pre_execution_settle"`
	// Direct skips planning; the goal text is grounded as a single instruction.
	Direct bool `mapstructure:"direct" yaml:"direct"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "localcu")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Display --
	v.SetDefault("display.backend", string(DisplayDesktop))
	v.SetDefault("display.browser.start_url", "about:blank")
	v.SetDefault("display.browser.headless", false)
	v.SetDefault("display.browser.width", 1280)
	v.SetDefault("display.browser.height", 800)

	// -- Grounding --
	v.SetDefault("grounding.backend", string(GroundingHTTP))
	v.SetDefault("grounding.endpoint", "http://127.0.0.1:8080/generate")
	v.SetDefault("grounding.model", "Samsung/TinyClick")
	v.SetDefault("grounding.max_new_tokens", 64)
	v.SetDefault("grounding.api_timeout", "0s")
	v.SetDefault("grounding.max_retry_elapsed", "30s")

	// -- Planner --
	v.SetDefault("planner.provider", string(ProviderGemini))
	v.SetDefault("planner.model", "gemini-2.5-flash")
	v.SetDefault("planner.api_timeout", "60s")
	v.SetDefault("planner.max_tokens", 1024)
	v.SetDefault("planner.requests_per_minute", 0)

	// -- Executor --
	v.SetDefault("executor.move_duration", "250ms")
	v.SetDefault("executor.move_steps", 25)
	v.SetDefault("executor.click_pause", "100ms")
	v.SetDefault("executor.dry_run", false)

	// -- Orchestrator --
	v.SetDefault("orchestrator.capture_delay", "3s")
	v.SetDefault("orchestrator.post_grounding_dwell", "1s")
	v.SetDefault("orchestrator.pre_execution_settle", "1s")
	v.SetDefault("orchestrator.direct", false)

	// -- Metrics --
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", "127.0.0.1:9464")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	cfg, err := Load(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Load unmarshals v without validating, for commands that only need part of
// the configuration.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	// Secrets are usually provided through the environment only.
	_ = v.BindEnv("planner.api_key", "LOCALCU_PLANNER_API_KEY")
	_ = v.BindEnv("grounding.api_key", "LOCALCU_GROUNDING_API_KEY")

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if err := c.Display.Validate(); err != nil {
		return fmt.Errorf("display configuration invalid: %w", err)
	}
	if err := c.Grounding.Validate(); err != nil {
		return fmt.Errorf("grounding configuration invalid: %w", err)
	}
	if !c.Orchestrator.Direct {
		if err := c.Planner.Validate(); err != nil {
			return fmt.Errorf("planner configuration invalid: %w", err)
		}
	}
	if err := c.Executor.Validate(); err != nil {
		return fmt.Errorf("executor configuration invalid: %w", err)
	}
	if err := c.Orchestrator.Validate(); err != nil {
		return fmt.Errorf("orchestrator configuration invalid: %w", err)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return fmt.Errorf("metrics.listen_addr is required when metrics are enabled")
	}
	return nil
}

// Validate checks the display settings.
func (d *DisplayConfig) Validate() error {
	switch d.Backend {
	case DisplayDesktop:
		return nil
	case DisplayBrowser:
		if d.Browser.Width <= 0 || d.Browser.Height <= 0 {
			return fmt.Errorf("browser width and height must be positive")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q (supported: %s, %s)", d.Backend, DisplayDesktop, DisplayBrowser)
	}
}

// Validate checks the grounding settings.
func (g *GroundingConfig) Validate() error {
	switch g.Backend {
	case GroundingHTTP, GroundingOllama:
	default:
		return fmt.Errorf("unknown backend %q (supported: %s, %s)", g.Backend, GroundingHTTP, GroundingOllama)
	}
	if g.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}
	if g.Backend == GroundingOllama && g.Model == "" {
		return fmt.Errorf("model is required for the ollama backend")
	}
	if g.APITimeout < 0 || g.MaxRetryElapsed < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	return nil
}

// Validate checks the planner settings.
func (p *PlannerConfig) Validate() error {
	switch p.Provider {
	case ProviderGemini, ProviderOpenAI, ProviderAnthropic:
		if p.APIKey == "" {
			return fmt.Errorf("api_key is required for provider %q (set LOCALCU_PLANNER_API_KEY)", p.Provider)
		}
	case ProviderOllama:
		if p.Endpoint == "" {
			return fmt.Errorf("endpoint is required for provider %q", p.Provider)
		}
	default:
		return fmt.Errorf("unknown provider %q", p.Provider)
	}
	if p.Model == "" {
		return fmt.Errorf("model is required")
	}
	if p.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute must not be negative")
	}
	return nil
}

// Validate checks the executor settings.
func (e *ExecutorConfig) Validate() error {
	if e.MoveDuration <= 0 {
		return fmt.Errorf("move_duration must be a positive duration")
	}
	if e.MoveSteps < 2 {
		return fmt.Errorf("move_steps must be at least 2")
	}
	if e.ClickPause < 0 {
		return fmt.Errorf("click_pause must not be negative")
	}
	return nil
}

// Validate checks the orchestrator pacing.
func (o *OrchestratorConfig) Validate() error {
	if o.CaptureDelay < 0 || o.PostGroundingDwell < 0 || o.PreExecutionSettle < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	return nil
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.Planner.APIKey != "" {
		c.Planner.APIKey = "<redacted>"
	}
	if c.Grounding.APIKey != "" {
		c.Grounding.APIKey = "<redacted>"
	}
	return c
}
