package ingest

import (
	"context"
	"time"

	"github.com/jinford/tubeseek/internal/core/catalog"
)

// ChannelMeta はチャンネルの基本メタデータです
type ChannelMeta struct {
	ID   string
	Name string
	URL  string
}

// VideoMeta は動画の基本メタデータです。
// 動画URLの取り込みでは所属チャンネルの情報も同時に解決されます。
type VideoMeta struct {
	ID          string
	ChannelID   string
	ChannelName string
	ChannelURL  string
	Title       string
	URL         string
	PublishedAt *time.Time
}

// Fetcher はYouTube側のメタデータと字幕の取得インターフェース
// テスト時のモック用に消費者側で定義
type Fetcher interface {
	// LookupChannel はチャンネルURLからメタデータを取得します。
	// ハンドルやカスタムURLの解決はフェッチャー側に委ねるため、URLをそのまま渡します。
	LookupChannel(ctx context.Context, channelURL string) (*ChannelMeta, error)
	// ListChannelVideos はフィルタを通過するチャンネル配下の動画を列挙します
	ListChannelVideos(ctx context.Context, channelURL string, filter DateFilter) ([]*VideoMeta, error)
	// LookupVideo は動画のメタデータ（所属チャンネル込み）を取得します
	LookupVideo(ctx context.Context, videoID string) (*VideoMeta, error)
	// FetchTranscript はタイムコード付き字幕を取得します。
	// 利用可能な字幕がない場合は ErrTranscriptUnavailable を返します。
	FetchTranscript(ctx context.Context, videoID string) (*catalog.Transcript, error)
}

// Enhancer は生字幕の補正インターフェース。
// 補正後のセグメント列と使用モデル名を返します。
type Enhancer interface {
	Enhance(ctx context.Context, videoTitle string, segments []catalog.Segment) ([]catalog.Segment, string, error)
}

// Embedder はテキストのベクトル化インターフェース
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Model() string
}
