package config

import (
	"os"
	"strconv"
	"strings"
)

// App holds the tunables of the ingestion pipeline and chat orchestrator.
// Everything is env-driven with defaults matching the original deployment.
type App struct {
	UploadDir         string
	AllowedExtensions []string
	MaxUploadBytes    int64

	ChunkTokens    int
	TopK           int
	Threshold      float32
	EmbedDimension int

	CacheCapacity int
	CacheBackend  string // "memory" | "redis"

	Workers   int
	QueueSize int

	VectorBackend string // "qdrant" | "pgvector"
	LLMBackend    string // "ollama" | "vertex"
	StorageKind   string // "local" | "gcs"
}

func LoadApp() App {
	a := App{
		UploadDir:         envStr("UPLOAD_DIR", "data/uploads"),
		AllowedExtensions: strings.Split(envStr("ALLOWED_EXTENSIONS", "pdf,doc,docx,ppt,pptx,xls,xlsx,txt,md"), ","),
		MaxUploadBytes:    envInt64("MAX_UPLOAD_BYTES", 50<<20),
		ChunkTokens:       envInt("CHUNK_TOKENS", 800),
		TopK:              envInt("RETRIEVAL_TOP_K", 5),
		Threshold:         float32(envFloat("RETRIEVAL_THRESHOLD", 0.5)),
		EmbedDimension:    envInt("EMBED_DIMENSION", 768),
		CacheCapacity:     envInt("RETRIEVAL_CACHE_CAPACITY", 1000),
		CacheBackend:      envStr("RETRIEVAL_CACHE_BACKEND", "memory"),
		Workers:           envInt("INGEST_WORKERS", 4),
		QueueSize:         envInt("INGEST_QUEUE_SIZE", 128),
		VectorBackend:     envStr("VECTOR_BACKEND", "qdrant"),
		LLMBackend:        envStr("LLM_BACKEND", "ollama"),
		StorageKind:       envStr("STORAGE_KIND", "local"),
	}
	for i := range a.AllowedExtensions {
		a.AllowedExtensions[i] = strings.TrimSpace(strings.ToLower(a.AllowedExtensions[i]))
	}
	return a
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
