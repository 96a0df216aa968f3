package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every tunable of the chatbot backend.
type Config struct {
	Server   ServerConfig
	AI       AIConfig
	Speech   SpeechConfig
	Language LanguageConfig
	Session  SessionConfig
	Index    IndexConfig
	Report   ReportConfig
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

	index, err := loadIndexConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	language, err := loadLanguageConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		AI:       ai,
		Speech:   speech,
		Language: language,
		Session:  loadSessionConfig(),
		Index:    index,
		Report:   loadReportConfig(),
	}, nil
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
		// Allow ":8080" or "127.0.0.1:8080" verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat model used for generation and for the
// scope/follow-up/intent classifiers.
type AIConfig struct {
	APIKey         string
	AccessKey      string
	SecretKey      string
	Model          string
	BaseURL        string
	Region         string
	Temperature    *float64
	TopP           *float64
	MaxTokens      *int
	TimeoutSeconds int
}

// Enabled reports whether the required credentials are present.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel builds an Ark-backed chat model from the configuration.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + ARK_MODEL or an AK/SK pair")
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
		Model:       c.Model,
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

	timeout, err := parseIntEnv("AI_TIMEOUT_SECONDS", 60)
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:         strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:      strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:      strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:          strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:        getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:         getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature:    temperature,
		TopP:           topP,
		MaxTokens:      maxTokens,
		TimeoutSeconds: timeout,
	}, nil
}

// SpeechConfig points at the speech-to-text endpoint.
type SpeechConfig struct {
	URL            string
	TimeoutSeconds int
	Enabled        bool
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseIntEnv("STT_TIMEOUT_SECONDS", 30)
	if err != nil {
		return SpeechConfig{}, err
	}

	url := strings.TrimSpace(os.Getenv("STT_URL"))
	return SpeechConfig{
		URL:            url,
		TimeoutSeconds: timeout,
		Enabled:        url != "",
	}, nil
}

// LanguageConfig points at the translation endpoint. Detection runs locally
// and needs no configuration.
type LanguageConfig struct {
	TranslateURL   string
	TimeoutSeconds int
}

func loadLanguageConfig() (LanguageConfig, error) {
	timeout, err := parseIntEnv("TRANSLATE_TIMEOUT_SECONDS", 30)
	if err != nil {
		return LanguageConfig{}, err
	}

	return LanguageConfig{
		TranslateURL:   strings.TrimSpace(os.Getenv("TRANSLATE_URL")),
		TimeoutSeconds: timeout,
	}, nil
}

// SessionConfig describes the session log store.
type SessionConfig struct {
	DBPath string
}

func loadSessionConfig() SessionConfig {
	return SessionConfig{
		DBPath: getEnvOrDefault("CHAT_DB_PATH", "data/chatbot.db"),
	}
}

// IndexConfig describes the vector index and its embedding backend.
type IndexConfig struct {
	DBPath       string
	SeedDir      string
	Watch        bool
	TopK         int
	EmbedAPIKey  string
	EmbedModel   string
	EmbedBaseURL string
}

func loadIndexConfig() (IndexConfig, error) {
	topK, err := parseIntEnv("INDEX_TOP_K", 3)
	if err != nil {
		return IndexConfig{}, err
	}

	watch, err := parseBoolEnv("INDEX_WATCH_SEEDS", true)
	if err != nil {
		return IndexConfig{}, err
	}

	return IndexConfig{
		DBPath:       getEnvOrDefault("INDEX_DB_PATH", "data/index.db"),
		SeedDir:      strings.TrimSpace(os.Getenv("INDEX_SEED_DIR")),
		Watch:        watch,
		TopK:         topK,
		EmbedAPIKey:  strings.TrimSpace(os.Getenv("EMBED_API_KEY")),
		EmbedModel:   getEnvOrDefault("EMBED_MODEL", "text-embedding-3-small"),
		EmbedBaseURL: strings.TrimSpace(os.Getenv("EMBED_BASE_URL")),
	}, nil
}

// ReportConfig describes where report sub-dialogue state lives. An empty
// RedisAddr selects the in-process store.
type ReportConfig struct {
	RedisAddr     string
	RedisPassword string
}

func loadReportConfig() ReportConfig {
	return ReportConfig{
		RedisAddr:     strings.TrimSpace(os.Getenv("REPORT_REDIS_ADDR")),
		RedisPassword: os.Getenv("REPORT_REDIS_PASSWORD"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
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
