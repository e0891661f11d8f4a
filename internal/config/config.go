package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting the service reads from the environment.
// It is resolved once at process start and immutable afterwards.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	AI     AIConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig(ai)
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Auth: auth, AI: ai}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Accept ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AuthConfig holds the session gate settings: the shared secret, the attempt
// budget, the inactivity timeout, and the model option list exposed to
// clients.
type AuthConfig struct {
	Secret       string
	MaxAttempts  int
	Timeout      time.Duration
	ModelOptions []string
	DefaultModel string
}

func loadAuthConfig(ai AIConfig) (AuthConfig, error) {
	secret := strings.TrimSpace(os.Getenv("CHAT_SECRET"))
	if secret == "" {
		return AuthConfig{}, fmt.Errorf("CHAT_SECRET is required")
	}

	maxAttempts := 3
	if override, err := parseOptionalIntEnv("CHAT_MAX_ATTEMPTS"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AuthConfig{}, fmt.Errorf("CHAT_MAX_ATTEMPTS must be at least 1, got %d", *override)
		}
		maxAttempts = *override
	}

	timeoutSeconds := 3600
	if override, err := parseOptionalIntEnv("CHAT_TIMEOUT_SECONDS"); err != nil {
		return AuthConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return AuthConfig{}, fmt.Errorf("CHAT_TIMEOUT_SECONDS must not be negative, got %d", *override)
		}
		timeoutSeconds = *override
	}

	options := splitModels(os.Getenv("CHAT_MODELS"))
	if len(options) == 0 && ai.Model != "" {
		options = []string{ai.Model}
	}
	if len(options) == 0 {
		return AuthConfig{}, fmt.Errorf("CHAT_MODELS is required (or set Model for a single-option list)")
	}

	defaultModel := strings.TrimSpace(os.Getenv("CHAT_DEFAULT_MODEL"))
	if defaultModel == "" {
		defaultModel = options[0]
	} else if !contains(options, defaultModel) {
		return AuthConfig{}, fmt.Errorf("CHAT_DEFAULT_MODEL %q is not in CHAT_MODELS", defaultModel)
	}

	return AuthConfig{
		Secret:       secret,
		MaxAttempts:  maxAttempts,
		Timeout:      time.Duration(timeoutSeconds) * time.Second,
		ModelOptions: options,
		DefaultModel: defaultModel,
	}, nil
}

// AIConfig holds the Ark model backend settings.
type AIConfig struct {
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	SystemPrompt string
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
}

// Enabled reports whether the required credentials were provided.
func (c AIConfig) Enabled() bool {
	return c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != "")
}

// NewChatModel builds an Ark model instance for the given model identifier.
func (c AIConfig) NewChatModel(ctx context.Context, modelID string) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("Ark credentials missing: set ARK_API_KEY or the AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       modelID,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        strings.TrimSpace(os.Getenv("Model")),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		SystemPrompt: getEnvOrDefault("CHAT_SYSTEM_PROMPT", "You are a helpful assistant."),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
	}, nil
}

func splitModels(raw string) []string {
	parts := strings.Split(raw, ",")
	models := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			models = append(models, trimmed)
		}
	}
	return models
}

func contains(items []string, target string) bool {
	for _, item := range items {
		if item == target {
			return true
		}
	}
	return false
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
