// Package llm wraps the Gemini API for text generation and embeddings.
package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/passbi/passbi_planner/internal/knowledge"
	"google.golang.org/genai"
)

// DefaultBaseURL is the public Gemini endpoint
const DefaultBaseURL = "https://generativelanguage.googleapis.com/"

// ErrEmptyResponse is returned when the model produced no text
var ErrEmptyResponse = errors.New("model returned no content")

// ErrNotConfigured is returned by Unconfigured for every prompt
var ErrNotConfigured = errors.New("generative model not configured: set GOOGLE_API_KEY")

// Unconfigured stands in for the model when no API key is set
type Unconfigured struct{}

// Generate always fails
func (Unconfigured) Generate(ctx context.Context, prompt string) (string, error) {
	return "", ErrNotConfigured
}

// Config holds Gemini client configuration
type Config struct {
	BaseURL         string        `validate:"required,url"`
	APIVersion      string        `validate:"required"`
	APIKey          string        `validate:"required"`
	Model           string        `validate:"required"`
	EmbeddingModel  string        `validate:"required"`
	EmbeddingDim    int           `validate:"gt=0,lte=2000"`
	Temperature     float64       `validate:"gte=0,lte=2"`
	MaxOutputTokens int           `validate:"gt=0"`
	Timeout         time.Duration `validate:"gt=0"`
}

// LoadConfigFromEnv loads Gemini configuration from environment variables
func LoadConfigFromEnv() *Config {
	temperature, err := strconv.ParseFloat(getEnv("GEMINI_TEMPERATURE", "0.2"), 64)
	if err != nil {
		temperature = 0.2
	}
	maxTokens, err := strconv.Atoi(getEnv("GEMINI_MAX_OUTPUT_TOKENS", "1024"))
	if err != nil {
		maxTokens = 1024
	}
	embeddingDim, err := strconv.Atoi(getEnv("GEMINI_EMBEDDING_DIM", "768"))
	if err != nil {
		embeddingDim = 768
	}
	timeout, err := time.ParseDuration(getEnv("MODEL_TIMEOUT", "60s"))
	if err != nil {
		timeout = 60 * time.Second
	}

	return &Config{
		BaseURL:         getEnv("GEMINI_BASE_URL", DefaultBaseURL),
		APIVersion:      getEnv("GEMINI_API_VERSION", "v1beta"),
		APIKey:          os.Getenv("GOOGLE_API_KEY"),
		Model:           getEnv("GEMINI_MODEL", "gemini-1.5-pro"),
		EmbeddingModel:  getEnv("GEMINI_EMBEDDING_MODEL", "models/embedding-001"),
		EmbeddingDim:    embeddingDim,
		Temperature:     temperature,
		MaxOutputTokens: maxTokens,
		Timeout:         timeout,
	}
}

// Gemini generates text and embeddings
type Gemini struct {
	cfg    Config
	client *genai.Client
}

// NewGemini creates a Gemini client
func NewGemini(ctx context.Context, cfg *Config) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &Gemini{cfg: *cfg, client: client}, nil
}

// Generate sends prompt as a single user turn and returns the model's text
func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.cfg.Temperature)),
		MaxOutputTokens: int32(g.cfg.MaxOutputTokens),
	})
	if err != nil {
		return "", fmt.Errorf("failed to call Gemini: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Embed returns the embedding vector for text
func (g *Gemini) Embed(ctx context.Context, text string) ([]float64, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.cfg.EmbeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to embed with Gemini: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, ErrEmptyResponse
	}

	values := resp.Embeddings[0].Values
	vec := make([]float64, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Space identifies the embedding model's vector space
func (g *Gemini) Space() knowledge.Space {
	return knowledge.Space{Name: modelPath(g.cfg.EmbeddingModel), Dim: g.cfg.EmbeddingDim}
}

// modelPath normalizes "gemini-1.5-pro" and "models/gemini-1.5-pro" alike
func modelPath(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
