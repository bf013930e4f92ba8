package internal

import (
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ansuz/internal/knowledge"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// DefaultTopic is the topic notes fall back to when the caller names an
// unknown one.
const DefaultTopic = knowledge.DefaultTopicName

// Config represents the application configuration.
type Config struct {
	App       ApplicationConfig `yaml:"app"`
	Knowledge KnowledgeConfig   `yaml:"knowledge"`
	Models    ModelsConfig      `yaml:"models"`
	Scraper   ScraperConfig     `yaml:"scraper"`
	Metrics   MetricsConfig     `yaml:"metrics"`
	Auth      AuthConfig        `yaml:"auth"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.App.Validate(); err != nil {
		return err
	}
	if err := c.Knowledge.Validate(); err != nil {
		return err
	}
	if err := c.Models.Validate(); err != nil {
		return err
	}
	if err := c.Scraper.Validate(); err != nil {
		return err
	}
	if err := c.Metrics.Validate(); err != nil {
		return err
	}
	return c.Auth.Validate()
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// TopicConfig describes one configured notes topic: where its files live,
// what it is for, and the frontmatter defaults applied to new notes.
type TopicConfig struct {
	Directory   string                        `yaml:"directory"`
	Description string                        `yaml:"description"`
	Defaults    knowledge.FrontmatterDefaults `yaml:"frontmatter_defaults"`
}

// Validate validates the topic configuration.
func (c *TopicConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Directory, validation.Required),
	)
}

// KnowledgeConfig holds the knowledge store layout and review thresholds.
//
// All paths are relative to Root. Writes whose confidence or relevance
// scores fall below the configured thresholds are deferred for human review
// instead of being persisted.
type KnowledgeConfig struct {
	Root                string                 `yaml:"root"`
	InstructionsFile    string                 `yaml:"instructions_file"`
	URLIndexFile        string                 `yaml:"url_index_file"`
	ConfidenceThreshold float64                `yaml:"confidence_threshold"`
	RelevanceThreshold  float64                `yaml:"relevance_threshold"`
	Topics              map[string]TopicConfig `yaml:"topics"`
}

// Validate validates the knowledge configuration.
func (c *KnowledgeConfig) Validate() error {
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Root, validation.Required),
		validation.Field(&c.InstructionsFile, validation.Required),
		validation.Field(&c.URLIndexFile, validation.Required),
		validation.Field(&c.ConfidenceThreshold, validation.Min(0.0), validation.Max(1.0)),
		validation.Field(&c.RelevanceThreshold, validation.Min(0.0), validation.Max(1.0)),
	); err != nil {
		return err
	}
	if len(c.Topics) == 0 {
		return fmt.Errorf("knowledge: at least one topic must be configured")
	}
	if _, ok := c.Topics[DefaultTopic]; !ok {
		return fmt.Errorf("knowledge: topic %q must be configured (unknown topics fall back to it)", DefaultTopic)
	}
	for name, topic := range c.Topics {
		if err := topic.Validate(); err != nil {
			return fmt.Errorf("knowledge: topic %q: %w", name, err)
		}
	}
	return nil
}

// Thresholds returns the review gate thresholds.
func (c *KnowledgeConfig) Thresholds() knowledge.Thresholds {
	return knowledge.Thresholds{
		Confidence: c.ConfidenceThreshold,
		Relevance:  c.RelevanceThreshold,
	}
}

// Topics as the knowledge layer consumes them.
func (c *KnowledgeConfig) TopicSet() map[string]knowledge.Topic {
	out := make(map[string]knowledge.Topic, len(c.Topics))
	for name, t := range c.Topics {
		out[name] = knowledge.Topic{
			Name:        name,
			Directory:   t.Directory,
			Description: t.Description,
			Defaults:    t.Defaults,
		}
	}
	return out
}

// OllamaConfig holds the locally-hosted model endpoint.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// Validate validates the Ollama configuration.
func (c *OllamaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Host, validation.Required),
		validation.Field(&c.Model, validation.Required),
	)
}

// ModelsConfig holds language model configuration.
type ModelsConfig struct {
	Ollama OllamaConfig `yaml:"ollama"`
}

// Validate validates the models configuration.
func (c *ModelsConfig) Validate() error {
	return c.Ollama.Validate()
}

// ScraperConfig holds web content fetching configuration.
type ScraperConfig struct {
	TimeoutSeconds   int    `yaml:"timeout"`
	UserAgent        string `yaml:"user_agent"`
	MaxContentLength int    `yaml:"max_content_length"`
}

// Validate validates the scraper configuration.
func (c *ScraperConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.TimeoutSeconds, validation.Required, validation.Min(1)),
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.MaxContentLength, validation.Required, validation.Min(1)),
	)
}

// MetricsConfig holds the operation metrics database path.
type MetricsConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the metrics configuration.
func (c *MetricsConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration for the dashboard API.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, suitable for local dev.
//   - "token": Bearer token authentication; Token must be non-empty.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	// Normalise empty mode to "disabled" for backward compatibility.
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		Knowledge: KnowledgeConfig{
			Root:                "./knowledge",
			InstructionsFile:    "instructions.md",
			URLIndexFile:        "url_index.yaml",
			ConfidenceThreshold: 0.7,
			RelevanceThreshold:  0.6,
			Topics: map[string]TopicConfig{
				DefaultTopic: {
					Directory:   "notes",
					Description: "General organizational notes",
					Defaults: knowledge.FrontmatterDefaults{
						Category: "general",
						Priority: "medium",
					},
				},
			},
		},
		Models: ModelsConfig{
			Ollama: OllamaConfig{
				Host:  "http://localhost:11434",
				Model: "qwen2.5:1.5b",
			},
		},
		Scraper: ScraperConfig{
			TimeoutSeconds:   30,
			UserAgent:        "ansuz/0.1",
			MaxContentLength: 50000,
		},
		Metrics: MetricsConfig{
			Path: "./ansuz-metrics.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
	}
}
