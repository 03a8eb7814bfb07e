package search_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/catalog/catalogtest"
	"github.com/jinford/tubeseek/internal/core/search"
	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (e *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = e.vector
	}
	return vectors, nil
}

type stubQuerier struct {
	hits      []*vectorstore.Hit
	err       error
	lastScope vectorstore.Scope
	lastLimit int
}

func (q *stubQuerier) Query(_ context.Context, scope vectorstore.Scope, _ []float32, limit int, _ float64) ([]*vectorstore.Hit, error) {
	q.lastScope = scope
	q.lastLimit = limit
	if q.err != nil {
		return nil, q.err
	}
	return q.hits, nil
}

type stubSummarizer struct {
	summary string
	err     error
}

func (s *stubSummarizer) Summarize(_ context.Context, _, _ string) (string, error) {
	return s.summary, s.err
}

func seedCatalog(t *testing.T, repo *catalogtest.Repository) {
	t.Helper()
	ctx := context.Background()

	_, err := repo.UpsertChannel(ctx, &catalog.Channel{
		ID:      "UCabc",
		URL:     "https://www.youtube.com/channel/UCabc",
		Name:    "サンプルチャンネル",
		Enabled: true,
	})
	require.NoError(t, err)

	oldDate := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newDate := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	for _, video := range []*catalog.Video{
		{ID: "vid00000001", ChannelID: "UCabc", URL: "https://www.youtube.com/watch?v=vid00000001", Title: "古い動画", PublishedAt: &oldDate},
		{ID: "vid00000002", ChannelID: "UCabc", URL: "https://www.youtube.com/watch?v=vid00000002", Title: "新しい動画", PublishedAt: &newDate},
	} {
		_, err := repo.CreateVideoIfNotExists(ctx, video)
		require.NoError(t, err)
	}
}

func TestOrchestrator_Search(t *testing.T) {
	ctx := context.Background()

	t.Run("ヒットはカタログ情報とタイムスタンプURLで肉付けされる", func(t *testing.T) {
		repo := catalogtest.NewRepository()
		seedCatalog(t, repo)
		querier := &stubQuerier{hits: []*vectorstore.Hit{
			{ChannelID: "UCabc", VideoID: "vid00000001", StartSeconds: 93, EndSeconds: 120, Content: "Goの並行処理について。チャネルの使い方。", Score: 0.87},
		}}
		orchestrator := search.NewOrchestrator(&stubEmbedder{vector: []float32{1, 0}}, querier, repo)

		results, err := orchestrator.Search(ctx, "並行処理", vectorstore.ScopeAll(), 5)
		require.NoError(t, err)
		require.Len(t, results, 1)

		result := results[0]
		assert.Equal(t, "古い動画", result.VideoTitle)
		assert.Equal(t, "サンプルチャンネル", result.ChannelName)
		assert.Equal(t, "https://www.youtube.com/watch?v=vid00000001&t=93s", result.TimestampURL)
		assert.Equal(t, 87, result.Relevance)
		assert.NotEmpty(t, result.Summary)
	})

	t.Run("同点は新しい動画が先に並ぶ", func(t *testing.T) {
		repo := catalogtest.NewRepository()
		seedCatalog(t, repo)
		querier := &stubQuerier{hits: []*vectorstore.Hit{
			{ChannelID: "UCabc", VideoID: "vid00000001", Content: "a", Score: 0.8},
			{ChannelID: "UCabc", VideoID: "vid00000002", Content: "b", Score: 0.8},
		}}
		orchestrator := search.NewOrchestrator(&stubEmbedder{vector: []float32{1, 0}}, querier, repo)

		results, err := orchestrator.Search(ctx, "query", vectorstore.ScopeAll(), 5)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "vid00000002", results[0].VideoID)
	})

	t.Run("空クエリはエラー", func(t *testing.T) {
		orchestrator := search.NewOrchestrator(&stubEmbedder{}, &stubQuerier{}, catalogtest.NewRepository())

		_, err := orchestrator.Search(ctx, "   ", vectorstore.ScopeAll(), 5)
		assert.Error(t, err)
	})

	t.Run("件数未指定は既定値になる", func(t *testing.T) {
		querier := &stubQuerier{}
		orchestrator := search.NewOrchestrator(&stubEmbedder{vector: []float32{1}}, querier, catalogtest.NewRepository())

		_, err := orchestrator.Search(ctx, "query", vectorstore.ScopeAll(), 0)
		require.NoError(t, err)
		assert.Equal(t, search.DefaultLimit, querier.lastLimit)
	})

	t.Run("未構築パーティションのエラーはそのまま伝播する", func(t *testing.T) {
		querier := &stubQuerier{err: &vectorstore.NoPartitionError{ChannelID: "UCmissing"}}
		orchestrator := search.NewOrchestrator(&stubEmbedder{vector: []float32{1}}, querier, catalogtest.NewRepository())

		_, err := orchestrator.Search(ctx, "query", vectorstore.ScopeChannel("UCmissing"), 5)

		var noPartition *vectorstore.NoPartitionError
		require.ErrorAs(t, err, &noPartition)
	})

	t.Run("要点は生成器を優先し失敗時は抽出型になる", func(t *testing.T) {
		repo := catalogtest.NewRepository()
		seedCatalog(t, repo)
		hits := []*vectorstore.Hit{
			{ChannelID: "UCabc", VideoID: "vid00000001", Content: "一文目。二文目。三文目。", Score: 0.9},
		}

		orchestrator := search.NewOrchestrator(&stubEmbedder{vector: []float32{1}}, &stubQuerier{hits: hits}, repo,
			search.WithSummarizer(&stubSummarizer{summary: "生成された要点"}))
		results, err := orchestrator.Search(ctx, "query", vectorstore.ScopeAll(), 5)
		require.NoError(t, err)
		assert.Equal(t, "生成された要点", results[0].Summary)

		orchestrator = search.NewOrchestrator(&stubEmbedder{vector: []float32{1}}, &stubQuerier{hits: hits}, repo,
			search.WithSummarizer(&stubSummarizer{err: errors.New("model down")}))
		results, err = orchestrator.Search(ctx, "query", vectorstore.ScopeAll(), 5)
		require.NoError(t, err)
		assert.Equal(t, "一文目。 二文目。", results[0].Summary)
	})
}

func TestTimestampURL(t *testing.T) {
	tests := []struct {
		name         string
		url          string
		startSeconds float64
		want         string
	}{
		{
			name:         "クエリ付きURLには&で連結する",
			url:          "https://www.youtube.com/watch?v=abc",
			startSeconds: 61.8,
			want:         "https://www.youtube.com/watch?v=abc&t=61s",
		},
		{
			name:         "クエリなしURLには?で連結する",
			url:          "https://youtu.be/abc",
			startSeconds: 0,
			want:         "https://youtu.be/abc?t=0s",
		},
		{
			name: "空URLは空のまま",
			url:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, search.TimestampURL(tt.url, tt.startSeconds))
		})
	}
}

func TestExtractSummary(t *testing.T) {
	t.Run("先頭2文を抽出する", func(t *testing.T) {
		got := search.ExtractSummary("First sentence. Second sentence. Third sentence.")
		assert.Equal(t, "First sentence. Second sentence.", got)
	})

	t.Run("空文字列は空のまま", func(t *testing.T) {
		assert.Equal(t, "", search.ExtractSummary("   "))
	})
}
