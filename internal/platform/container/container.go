package container

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pkoukk/tiktoken-go"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/ingest"
	"github.com/jinford/tubeseek/internal/core/retry"
	coresearch "github.com/jinford/tubeseek/internal/core/search"
	"github.com/jinford/tubeseek/internal/core/vectorstore"
	"github.com/jinford/tubeseek/internal/infra/openai"
	"github.com/jinford/tubeseek/internal/infra/postgres"
	"github.com/jinford/tubeseek/internal/infra/youtube"
	"github.com/jinford/tubeseek/internal/platform/config"
	"github.com/jinford/tubeseek/internal/platform/database"
)

// ServiceContainer はアプリケーション全体の依存関係を保持する。
type ServiceContainer struct {
	IngestService *ingest.Service
	SearchService *coresearch.Orchestrator
	Registry      *catalog.Registry
	VectorManager *vectorstore.Manager

	logger   *slog.Logger
	database *database.DB
}

type containerOptions struct {
	logger       *slog.Logger
	fetcher      ingest.Fetcher
	enhancer     ingest.Enhancer
	embedder     embedderClient
	summarizer   coresearch.Summarizer
	tokenCounter vectorstore.TokenCounter
}

// embedderClient は取り込みと検索の双方で使う埋め込みクライアント。
type embedderClient interface {
	ingest.Embedder
	coresearch.Embedder
}

// ContainerOption は ServiceContainer 構築時のオプション
type ContainerOption func(*containerOptions)

// WithContainerLogger はロガーを差し替える
func WithContainerLogger(logger *slog.Logger) ContainerOption {
	return func(opts *containerOptions) {
		opts.logger = logger
	}
}

// WithContainerFetcher は動画メタデータ・字幕の取得元を差し替える
func WithContainerFetcher(fetcher ingest.Fetcher) ContainerOption {
	return func(opts *containerOptions) {
		opts.fetcher = fetcher
	}
}

// WithContainerEnhancer はトランスクリプト補正クライアントを差し替える
func WithContainerEnhancer(enhancer ingest.Enhancer) ContainerOption {
	return func(opts *containerOptions) {
		opts.enhancer = enhancer
	}
}

// WithContainerEmbedder はカスタム Embedder を注入する
func WithContainerEmbedder(embedder embedderClient) ContainerOption {
	return func(opts *containerOptions) {
		opts.embedder = embedder
	}
}

// WithContainerSummarizer は検索結果の要点生成クライアントを差し替える
func WithContainerSummarizer(summarizer coresearch.Summarizer) ContainerOption {
	return func(opts *containerOptions) {
		opts.summarizer = summarizer
	}
}

// WithContainerTokenCounter は TokenCounter を差し替える
func WithContainerTokenCounter(counter vectorstore.TokenCounter) ContainerOption {
	return func(opts *containerOptions) {
		opts.tokenCounter = counter
	}
}

// NewContainer は設定からコンテナを生成する。
func NewContainer(ctx context.Context, cfg *config.Config, opts ...ContainerOption) (*ServiceContainer, error) {
	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("データベース初期化に失敗しました: %w", err)
	}

	if err := postgres.EnsureSchema(ctx, db.Pool, cfg.OpenAI.EmbeddingDimension); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗しました: %w", err)
	}

	container, err := NewContainerWithDB(cfg, db, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return container, nil
}

// NewContainerWithDB は既存の DB を受け取りコンテナを生成する。
func NewContainerWithDB(cfg *config.Config, db *database.DB, opts ...ContainerOption) (*ServiceContainer, error) {
	options := containerOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	// Repository (PostgreSQL)
	catalogRepo := postgres.NewCatalogRepository(db.Pool)
	vectorRepo := postgres.NewVectorRepository(db.Pool)

	// Fetcher (yt-dlp)
	fetcher := options.fetcher
	if fetcher == nil {
		fetcher = youtube.NewClient(
			youtube.WithYtdlpPath(cfg.Fetcher.YtdlpPath),
			youtube.WithLanguages(cfg.Fetcher.Languages),
			youtube.WithRequestsPerMinute(cfg.Fetcher.RequestsPerMinute),
			youtube.WithClientLogger(options.logger),
		)
	}

	// Embedder / Enhancer (OpenAI)
	embedder := options.embedder
	if embedder == nil {
		openaiEmbedder, err := openai.NewEmbedder(
			cfg.OpenAI.APIKey,
			openai.WithEmbeddingModel(cfg.OpenAI.EmbeddingModel),
			openai.WithEmbeddingDimension(cfg.OpenAI.EmbeddingDimension),
		)
		if err != nil {
			return nil, fmt.Errorf("Embedder 初期化に失敗しました: %w", err)
		}
		embedder = openaiEmbedder
	}

	enhancer := options.enhancer
	summarizer := options.summarizer
	if enhancer == nil || summarizer == nil {
		openaiEnhancer, err := openai.NewEnhancer(
			cfg.OpenAI.APIKey,
			openai.WithEnhanceModel(cfg.OpenAI.EnhanceModel),
		)
		if err != nil {
			return nil, fmt.Errorf("Enhancer 初期化に失敗しました: %w", err)
		}
		if enhancer == nil {
			enhancer = openaiEnhancer
		}
		if summarizer == nil {
			summarizer = openaiEnhancer
		}
	}

	// TokenCounter (tiktoken)
	tokenCounter := options.tokenCounter
	if tokenCounter == nil {
		var err error
		tokenCounter, err = newTokenCounter()
		if err != nil {
			return nil, fmt.Errorf("TokenCounter 初期化に失敗しました: %w", err)
		}
	}

	// カタログ（チャンネル管理と動画処理台帳）
	policy := refreshPolicy(cfg.Ingest.RefreshPolicy)
	registry := catalog.NewRegistry(catalogRepo, options.logger)
	ledger := catalog.NewLedger(catalogRepo, policy, options.logger)

	// ベクトルストア（チャンネル別パーティション）
	manager := vectorstore.NewManager(vectorRepo, catalogRepo, vectorstore.WithManagerLogger(options.logger))
	chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{
		Size:    cfg.Chunking.Size,
		Overlap: cfg.Chunking.Overlap,
	}, tokenCounter)

	// 取り込みパイプライン
	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Fetcher.MaxAttempts,
		BaseDelay:   cfg.Fetcher.BaseBackoff,
	}
	planner := ingest.NewPlanner(registry, ledger, fetcher, dateFilter(cfg.Ingest), policy, options.logger)
	executor := ingest.NewExecutor(ledger, cfg.Ingest.WorkerCount, options.logger,
		ingest.NewDownloadRunner(fetcher, ledger, catalogRepo, retryPolicy, options.logger),
		ingest.NewEnhanceRunner(enhancer, ledger, catalogRepo, retryPolicy, options.logger),
		ingest.NewIndexRunner(embedder, manager, chunker, ledger, registry, catalogRepo, retryPolicy, options.logger),
	)
	ingestService := ingest.NewService(planner, executor, options.logger)

	// 検索
	searchService := coresearch.NewOrchestrator(embedder, manager, catalogRepo,
		coresearch.WithSummarizer(summarizer),
		coresearch.WithThreshold(cfg.Search.SimilarityThreshold),
		coresearch.WithLogger(options.logger),
	)

	return &ServiceContainer{
		IngestService: ingestService,
		SearchService: searchService,
		Registry:      registry,
		VectorManager: manager,
		logger:        options.logger,
		database:      db,
	}, nil
}

// Close は内部リソースを解放する。
func (c *ServiceContainer) Close() {
	if c != nil && c.database != nil {
		c.database.Close()
	}
}

// Logger はロガーを返す。
func (c *ServiceContainer) Logger() *slog.Logger {
	if c == nil || c.logger == nil {
		return slog.Default()
	}
	return c.logger
}

// Database はデータベースを返す。
func (c *ServiceContainer) Database() *database.DB {
	if c == nil {
		return nil
	}
	return c.database
}

// refreshPolicy は設定値を台帳のポリシーへ変換する。不明値は既定にする。
func refreshPolicy(p config.RefreshPolicy) catalog.RefreshPolicy {
	if p == config.RefreshReenhance {
		return catalog.RefreshReenhance
	}
	return catalog.RefreshReindexOnly
}

// dateFilter は設定から公開日フィルタを組み立てる。
// since の日付が不正な場合は直近フィルタへ落とす。
func dateFilter(cfg config.IngestConfig) ingest.DateFilter {
	switch cfg.DateFilterMode {
	case config.DateFilterAll:
		return ingest.FilterAllVideos()
	case config.DateFilterSince:
		if since, err := time.Parse("2006-01-02", cfg.SinceDate); err == nil {
			return ingest.FilterSinceDate(since)
		}
		return ingest.FilterRecentMonths(cfg.RecentMonths)
	default:
		return ingest.FilterRecentMonths(cfg.RecentMonths)
	}
}

// tokenCounter は tiktoken を利用した TokenCounter 実装。
type tokenCounter struct {
	encoding *tiktoken.Tiktoken
}

func newTokenCounter() (*tokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &tokenCounter{encoding: enc}, nil
}

func (t *tokenCounter) Count(text string) int {
	if t.encoding == nil {
		return 0
	}
	return len(t.encoding.Encode(text, nil, nil))
}
