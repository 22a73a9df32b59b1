package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the quiz feedback service.
type Config struct {
	AppName string
	AppEnv  string
	AppPort string

	WorkbookPath string
	RedisURL     string

	OpenAIAPIKey    string
	CompletionModel string
	MaxTokens       int
	RequestTimeout  time.Duration

	PineconeAPIKey string
	PineconeIndex  string
	EmbeddingModel string
	ScoreThreshold float64
	RetrievalTopK  int

	PastPerformanceLimit int
	AnswerCacheTTL       time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration from environment variables and an optional .env
// file. Missing provider credentials fail the load before any request is
// attempted.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("QF")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "QuizFeedback API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("workbook.path", "data/feedback_generator.xlsx")
	v.SetDefault("completion.model", "gpt-4o")
	v.SetDefault("completion.max_tokens", 4000)
	v.SetDefault("request.timeout", "60s")
	v.SetDefault("embedding.model", "text-embedding-ada-002")
	v.SetDefault("retrieval.score_threshold", 0.5)
	v.SetDefault("retrieval.top_k", 3)
	v.SetDefault("past_performance.limit", 3)
	v.SetDefault("answer_cache.ttl", "10m")

	timeout, err := time.ParseDuration(v.GetString("request.timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid request timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("answer_cache.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid answer cache ttl: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		WorkbookPath:         v.GetString("workbook.path"),
		RedisURL:             v.GetString("redis.url"),
		OpenAIAPIKey:         v.GetString("openai_api_key"),
		CompletionModel:      v.GetString("completion.model"),
		MaxTokens:            v.GetInt("completion.max_tokens"),
		RequestTimeout:       timeout,
		PineconeAPIKey:       v.GetString("pinecone_api_key"),
		PineconeIndex:        v.GetString("pinecone_index"),
		EmbeddingModel:       v.GetString("embedding.model"),
		ScoreThreshold:       v.GetFloat64("retrieval.score_threshold"),
		RetrievalTopK:        v.GetInt("retrieval.top_k"),
		PastPerformanceLimit: v.GetInt("past_performance.limit"),
		AnswerCacheTTL:       cacheTTL,
	}

	if cfg.OpenAIAPIKey == "" {
		return Config{}, fmt.Errorf("openai api key must be provided")
	}

	if cfg.PineconeAPIKey == "" || cfg.PineconeIndex == "" {
		return Config{}, fmt.Errorf("pinecone api key and index must be provided")
	}

	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4000
	}

	if cfg.PastPerformanceLimit <= 0 {
		cfg.PastPerformanceLimit = 3
	}

	return cfg, nil
}
