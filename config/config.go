package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the service needs. Critical keys are
// validated at load time; everything else falls back to a sensible default.
type Config struct {
	APIKey       string // shared key expected in the x-api-key header
	GeminiAPIKey string

	GeminiModel string
	EmbedModel  string
	OllamaURL   string

	TopK        int
	Temperature float64
	MaxTokens   int

	CollectionName string
	KnowledgePath  string // optional directory of source texts to index
	Port           string
}

// Load reads the .env file (if present) and the process environment.
// Missing critical variables are fatal, matching the fail-fast startup of the
// rest of main.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}

	cfg := &Config{
		APIKey:         os.Getenv("MY_API_KEY"),
		GeminiAPIKey:   os.Getenv("GEMINI_API_KEY"),
		GeminiModel:    getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		EmbedModel:     getEnv("EMBED_MODEL", "nomic-embed-text:v1.5"),
		OllamaURL:      getEnv("OLLAMA_URL", "http://localhost:11434"),
		TopK:           getEnvInt("TOP_K", 5),
		Temperature:    getEnvFloat("TEMPERATURE", 0.2),
		MaxTokens:      getEnvInt("MAX_TOKENS", 800),
		CollectionName: getEnv("CHROMA_COLLECTION", "knowledge_base"),
		KnowledgePath:  os.Getenv("KNOWLEDGE_PATH"),
		Port:           getEnv("PORT", "8080"),
	}

	if cfg.APIKey == "" {
		log.Fatal("FATAL: MY_API_KEY environment variable is not set!")
	}
	if cfg.GeminiAPIKey == "" {
		log.Fatal("FATAL: GEMINI_API_KEY environment variable is not set!")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: invalid value for %s (%q), using default %d", key, v, fallback)
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("WARN: invalid value for %s (%q), using default %g", key, v, fallback)
		return fallback
	}
	return f
}
