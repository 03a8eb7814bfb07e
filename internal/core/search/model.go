package search

import (
	"context"
	"time"

	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// Result は検索結果1件を表します
type Result struct {
	VideoID     string `json:"videoID"`
	VideoTitle  string `json:"videoTitle"`
	VideoURL    string `json:"videoURL"`
	ChannelID   string `json:"channelID"`
	ChannelName string `json:"channelName"`
	// TimestampURL は該当区間から再生を始めるURLです
	TimestampURL string  `json:"timestampURL"`
	StartSeconds float64 `json:"startSeconds"`
	EndSeconds   float64 `json:"endSeconds"`
	// Snippet はヒットしたチャンクの本文です
	Snippet string `json:"snippet"`
	// Summary は区間の要点です
	Summary string `json:"summary"`
	// Relevance は 0〜100 の関連度です
	Relevance int `json:"relevance"`
	// Score は元の類似度 [0,1] です
	Score       float64    `json:"score"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
}

// Embedder は検索クエリのベクトル化インターフェース
// テスト時のモック用に消費者側で定義
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Querier はベクトルパーティション検索のインターフェース
type Querier interface {
	Query(ctx context.Context, scope vectorstore.Scope, vector []float32, limit int, threshold float64) ([]*vectorstore.Hit, error)
}

// Summarizer はヒット区間の要点生成インターフェース。
// 未設定の場合は抽出型のフォールバックが使われます。
type Summarizer interface {
	Summarize(ctx context.Context, query, content string) (string, error)
}
