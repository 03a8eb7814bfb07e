package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定
	Database DatabaseConfig

	// OpenAI設定（Embeddings + トランスクリプト補正用）
	OpenAI OpenAIConfig

	// 動画取得（yt-dlp）設定
	Fetcher FetcherConfig

	// 取り込みパイプライン設定
	Ingest IngestConfig

	// チャンク分割設定
	Chunking ChunkingConfig

	// 検索設定
	Search SearchConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	EmbeddingModel     string
	EmbeddingDimension int
	EnhanceModel       string // トランスクリプト補正・要約生成に使用するモデル名
}

// FetcherConfig は動画メタデータ・字幕取得の設定
type FetcherConfig struct {
	YtdlpPath         string
	RequestsPerMinute int
	MaxAttempts       int
	BaseBackoff       time.Duration
	Languages         []string // 字幕言語の優先順（例: ja, en）
}

// DateFilterMode は日付フィルタの動作モード
type DateFilterMode string

const (
	DateFilterAll    DateFilterMode = "all"
	DateFilterRecent DateFilterMode = "recent"
	DateFilterSince  DateFilterMode = "since"
)

// RefreshPolicy はフィンガープリント変化時の再処理範囲を表します
type RefreshPolicy string

const (
	// RefreshReindexOnly はインデックスのみ再構築します
	RefreshReindexOnly RefreshPolicy = "reindex"
	// RefreshReenhance は補正とインデックスの両方をやり直します
	RefreshReenhance RefreshPolicy = "reenhance"
)

// IngestConfig は取り込みパイプラインの設定
type IngestConfig struct {
	DateFilterMode DateFilterMode
	RecentMonths   int
	SinceDate      string // YYYY-MM-DD（mode=sinceのときのみ使用）
	WorkerCount    int
	RefreshPolicy  RefreshPolicy
}

// ChunkingConfig はトランスクリプトのチャンク分割設定
type ChunkingConfig struct {
	Size    int
	Overlap int
}

// SearchConfig は検索のデフォルト設定
type SearchConfig struct {
	SimilarityThreshold float64
	DefaultLimit        int
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "tubeseek"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "tubeseek"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			EnhanceModel:       getEnv("OPENAI_ENHANCE_MODEL", "gpt-4o-mini"),
		},
		Fetcher: FetcherConfig{
			YtdlpPath:         getEnv("YTDLP_PATH", "yt-dlp"),
			RequestsPerMinute: getEnvAsInt("FETCHER_REQUESTS_PER_MINUTE", 30),
			MaxAttempts:       getEnvAsInt("FETCHER_MAX_ATTEMPTS", 3),
			BaseBackoff:       getEnvAsDuration("FETCHER_BASE_BACKOFF", 2*time.Second),
			Languages:         []string{getEnv("TRANSCRIPT_LANGUAGE", "ja"), "en"},
		},
		Ingest: IngestConfig{
			DateFilterMode: DateFilterMode(getEnv("DATE_FILTER_MODE", string(DateFilterRecent))),
			RecentMonths:   getEnvAsInt("DATE_FILTER_MONTHS", 6),
			SinceDate:      getEnv("DATE_FILTER_SINCE", ""),
			WorkerCount:    getEnvAsInt("INGEST_WORKER_COUNT", 4),
			RefreshPolicy:  RefreshPolicy(getEnv("REFRESH_POLICY", string(RefreshReindexOnly))),
		},
		Chunking: ChunkingConfig{
			Size:    getEnvAsInt("CHUNK_SIZE", 1000),
			Overlap: getEnvAsInt("CHUNK_OVERLAP", 200),
		},
		Search: SearchConfig{
			SimilarityThreshold: getEnvAsFloat("SIMILARITY_THRESHOLD", 0.3),
			DefaultLimit:        getEnvAsInt("SEARCH_DEFAULT_LIMIT", 10),
		},
	}

	return cfg, nil
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数をDurationとして取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
