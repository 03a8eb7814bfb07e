package vectorstore

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Partition はチャンネル1つ分の独立したベクトルインデックスへのハンドルです。
// 他チャンネルのパーティションと暗黙にマージされることはありません。
type Partition struct {
	ChannelID    string    `json:"channelID"`
	ChunkSize    int       `json:"chunkSize"`
	ChunkOverlap int       `json:"chunkOverlap"`
	ChunkCount   int       `json:"chunkCount"`
	BuiltAt      time.Time `json:"builtAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ChunkConfig はチャンク分割の設定です
type ChunkConfig struct {
	// Size はチャンクの目標文字数
	Size int
	// Overlap は隣接チャンク間で重複させる文字数
	Overlap int
}

// DefaultChunkConfig はデフォルトのチャンク設定を返します
func DefaultChunkConfig() ChunkConfig {
	return ChunkConfig{Size: 1000, Overlap: 200}
}

// Chunk はトランスクリプトから切り出した検索単位を表します。
// 元動画への参照とタイムスタンプ範囲を保持し、再生位置へ逆引きできます。
type Chunk struct {
	ID           uuid.UUID `json:"id"`
	ChannelID    string    `json:"channelID"`
	VideoID      string    `json:"videoID"`
	Ordinal      int       `json:"ordinal"`
	StartSeconds float64   `json:"startSeconds"`
	EndSeconds   float64   `json:"endSeconds"`
	Content      string    `json:"content"`
	TokenCount   int       `json:"tokenCount"`
}

// Hit はパーティション検索の候補結果を表します
type Hit struct {
	ChunkID      uuid.UUID `json:"chunkID"`
	ChannelID    string    `json:"channelID"`
	VideoID      string    `json:"videoID"`
	StartSeconds float64   `json:"startSeconds"`
	EndSeconds   float64   `json:"endSeconds"`
	Content      string    `json:"content"`
	// Score は [0,1] の類似度
	Score float64 `json:"score"`
}

// Scope は検索範囲を表します。ChannelIDが空なら有効チャンネル全体です。
type Scope struct {
	ChannelID string
}

// ScopeAll は全有効チャンネルを対象とするスコープを返します
func ScopeAll() Scope {
	return Scope{}
}

// ScopeChannel は単一チャンネルを対象とするスコープを返します
func ScopeChannel(channelID string) Scope {
	return Scope{ChannelID: channelID}
}

// IsAll は全チャンネルスコープかどうかを返します
func (s Scope) IsAll() bool {
	return s.ChannelID == ""
}

// NoPartitionError は構築済みパーティションのないチャンネルへのスコープ指定を表します
type NoPartitionError struct {
	ChannelID string
}

func (e *NoPartitionError) Error() string {
	return fmt.Sprintf("no vector partition built for channel %s", e.ChannelID)
}
