package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// DefaultLimit は件数指定がない場合の検索結果数です
const DefaultLimit = 5

// Orchestrator はトピック検索を最初から最後まで実行します。
// クエリのベクトル化、スコープ付きパーティション検索、カタログ情報での
// 結果の肉付け、要点生成までを担います。
type Orchestrator struct {
	embedder   Embedder
	querier    Querier
	repo       catalog.Repository
	summarizer Summarizer
	threshold  float64
	logger     *slog.Logger
}

type OrchestratorOption func(*Orchestrator)

// WithSummarizer は要点生成器を設定します
func WithSummarizer(summarizer Summarizer) OrchestratorOption {
	return func(o *Orchestrator) {
		o.summarizer = summarizer
	}
}

// WithThreshold は類似度の下限を設定します
func WithThreshold(threshold float64) OrchestratorOption {
	return func(o *Orchestrator) {
		o.threshold = threshold
	}
}

// WithLogger はロガーを差し替えます
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// NewOrchestrator は新しいOrchestratorを作成します
func NewOrchestrator(embedder Embedder, querier Querier, repo catalog.Repository, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		embedder: embedder,
		querier:  querier,
		repo:     repo,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Search はクエリに関連する動画区間を検索します。
// 単一チャンネルスコープでパーティションが未構築の場合、
// vectorstore.NoPartitionError がそのまま呼び出し側へ返ります。
func (o *Orchestrator) Search(ctx context.Context, query string, scope vectorstore.Scope, limit int) ([]*Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query is empty")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	vectors, err := o.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("unexpected embedding count: %d", len(vectors))
	}

	hits, err := o.querier.Query(ctx, scope, vectors[0], limit, o.threshold)
	if err != nil {
		return nil, err
	}

	results, err := o.enrich(ctx, query, hits)
	if err != nil {
		return nil, err
	}

	// 同点はより新しい動画を優先する
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		pi, pj := results[i].PublishedAt, results[j].PublishedAt
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})

	o.logger.Info("検索が完了しました",
		slog.String("scope", scopeLabel(scope)),
		slog.Int("hits", len(results)),
	)
	return results, nil
}

// enrich はヒットをカタログ情報と要点で肉付けします
func (o *Orchestrator) enrich(ctx context.Context, query string, hits []*vectorstore.Hit) ([]*Result, error) {
	videoCache := make(map[string]*catalog.Video)
	channelCache := make(map[string]*catalog.Channel)

	results := make([]*Result, 0, len(hits))
	for _, hit := range hits {
		result := &Result{
			VideoID:      hit.VideoID,
			ChannelID:    hit.ChannelID,
			StartSeconds: hit.StartSeconds,
			EndSeconds:   hit.EndSeconds,
			Snippet:      hit.Content,
			Score:        hit.Score,
			Relevance:    relevance(hit.Score),
		}

		video, ok := videoCache[hit.VideoID]
		if !ok {
			videoOpt, err := o.repo.GetVideo(ctx, hit.VideoID)
			if err != nil {
				return nil, fmt.Errorf("failed to get video: %w", err)
			}
			video, _ = videoOpt.Get()
			videoCache[hit.VideoID] = video
		}
		if video != nil {
			result.VideoTitle = video.Title
			result.VideoURL = video.URL
			result.TimestampURL = TimestampURL(video.URL, hit.StartSeconds)
			result.PublishedAt = video.PublishedAt
		}

		channel, ok := channelCache[hit.ChannelID]
		if !ok {
			channelOpt, err := o.repo.GetChannel(ctx, hit.ChannelID)
			if err != nil {
				return nil, fmt.Errorf("failed to get channel: %w", err)
			}
			channel, _ = channelOpt.Get()
			channelCache[hit.ChannelID] = channel
		}
		if channel != nil {
			result.ChannelName = channel.Name
		}

		result.Summary = o.summarize(ctx, query, hit.Content)
		results = append(results, result)
	}
	return results, nil
}

// summarize は要点を生成します。生成器の失敗時は抽出型に切り替えます。
func (o *Orchestrator) summarize(ctx context.Context, query, content string) string {
	if o.summarizer != nil {
		summary, err := o.summarizer.Summarize(ctx, query, content)
		if err == nil && strings.TrimSpace(summary) != "" {
			return strings.TrimSpace(summary)
		}
		if err != nil {
			o.logger.Warn("要点生成に失敗したため抽出型にフォールバックします",
				slog.String("error", err.Error()),
			)
		}
	}
	return ExtractSummary(content)
}

// relevance は類似度を 0〜100 の関連度に変換します
func relevance(score float64) int {
	scaled := int(score * 100)
	if scaled < 0 {
		return 0
	}
	if scaled > 100 {
		return 100
	}
	return scaled
}

// TimestampURL は動画URLに再生位置（秒）を付与します
func TimestampURL(videoURL string, startSeconds float64) string {
	if videoURL == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(videoURL, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%st=%ds", videoURL, sep, int(startSeconds))
}

func scopeLabel(scope vectorstore.Scope) string {
	if scope.IsAll() {
		return "all"
	}
	return scope.ChannelID
}
