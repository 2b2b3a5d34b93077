package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clinrag/clinrag/internal/chunker"
)

type Config struct {
	Port string

	// Qdrant connection
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string

	// Auth
	APIKey string

	// OpenAI
	OpenAIAPIKey   string
	EmbeddingModel string
	EmbeddingDim   int
	ChatModel      string

	// External NER model service, optional. Empty disables the
	// model-based extractor and the NER chunking mode falls back to
	// rule-based entities.
	NERServiceURL string

	// Chunking
	ChunkMode   string
	ProfilePath string

	// Worker pool
	WorkerCount        int
	MaxQueueSize       int
	MaxConcurrentEmbed int
	MaxConcurrentStore int

	// Upload limits
	MaxUploadBytes int64

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackPdftotext bool
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		QdrantURL:        envOr("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey:     os.Getenv("QDRANT_API_KEY"),
		QdrantCollection: envOr("QDRANT_COLLECTION", "clinrag_chunks"),

		APIKey: os.Getenv("CLINRAG_API_KEY"),

		OpenAIAPIKey:   os.Getenv("OPENAI_API_KEY"),
		EmbeddingModel: envOr("EMBEDDING_MODEL", "text-embedding-ada-002"),
		EmbeddingDim:   envInt("EMBEDDING_DIM", 1536),
		ChatModel:      envOr("CHAT_MODEL", "gpt-4.1"),

		NERServiceURL: os.Getenv("NER_SERVICE_URL"),

		ChunkMode:   envOr("CHUNK_MODE", "healthcare"),
		ProfilePath: os.Getenv("CHUNK_PROFILE_FILE"),

		WorkerCount:        envInt("WORKER_COUNT", 4),
		MaxQueueSize:       envInt("MAX_QUEUE_SIZE", 100),
		MaxConcurrentEmbed: envInt("MAX_CONCURRENT_EMBED", 5),
		MaxConcurrentStore: envInt("MAX_CONCURRENT_STORE", 10),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackPdftotext: envBool("PDF_FALLBACK_PDFTOTEXT", true),
	}

	if cfg.EmbeddingDim <= 0 {
		cfg.EmbeddingDim = 1536
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.MaxConcurrentEmbed <= 0 {
		cfg.MaxConcurrentEmbed = 5
	}
	if cfg.MaxConcurrentStore <= 0 {
		cfg.MaxConcurrentStore = 10
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("CLINRAG_API_KEY is required")
	}
	if c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	switch chunker.Mode(c.ChunkMode) {
	case chunker.ModeGeneric, chunker.ModeHealthcare, chunker.ModeNER:
	default:
		return fmt.Errorf("CHUNK_MODE must be one of generic, healthcare, ner (got %q)", c.ChunkMode)
	}
	return nil
}

// profileFile is the optional YAML override for chunking sizes, one
// block per mode.
type profileFile struct {
	Generic    chunker.Profile `yaml:"generic"`
	Healthcare chunker.Profile `yaml:"healthcare"`
}

// ChunkProfile resolves the size profile for the configured mode,
// applying overrides from ProfilePath when set. Zero fields in the
// file keep their mode defaults.
func (c Config) ChunkProfile() (chunker.Profile, error) {
	base := chunker.HealthcareProfile()
	if chunker.Mode(c.ChunkMode) == chunker.ModeGeneric {
		base = chunker.GenericProfile()
	}
	if c.ProfilePath == "" {
		return base, nil
	}

	data, err := os.ReadFile(c.ProfilePath)
	if err != nil {
		return base, fmt.Errorf("read chunk profile: %w", err)
	}
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return base, fmt.Errorf("parse chunk profile: %w", err)
	}

	override := file.Healthcare
	if chunker.Mode(c.ChunkMode) == chunker.ModeGeneric {
		override = file.Generic
	}
	return mergeProfile(override, base), nil
}

func mergeProfile(p, base chunker.Profile) chunker.Profile {
	if p.ChunkSize <= 0 {
		p.ChunkSize = base.ChunkSize
	}
	if p.Overlap <= 0 {
		p.Overlap = base.Overlap
	}
	if p.MinChunk <= 0 {
		p.MinChunk = base.MinChunk
	}
	if p.HeadingMinWords <= 0 {
		p.HeadingMinWords = base.HeadingMinWords
	}
	if p.TableBudget <= 0 {
		p.TableBudget = base.TableBudget
	}
	return p
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
