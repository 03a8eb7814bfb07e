package vectorstore

import (
	"context"

	"github.com/samber/mo"
)

// Repository はベクトルパーティションの永続化インターフェース
// テスト時のモック用に消費者側で定義
type Repository interface {
	GetPartition(ctx context.Context, channelID string) (mo.Option[*Partition], error)
	ListPartitions(ctx context.Context) ([]*Partition, error)
	CreatePartition(ctx context.Context, channelID string, cfg ChunkConfig) (*Partition, error)
	UpdatePartitionCount(ctx context.Context, channelID string, delta int) error
	DropPartition(ctx context.Context, channelID string) error

	// InsertChunks はチャンクとそのベクトルを追記します
	InsertChunks(ctx context.Context, chunks []*Chunk, vectors [][]float32, model string) error
	// DeleteChunksByVideo は動画1件分のチャンクを削除し、削除件数を返します
	DeleteChunksByVideo(ctx context.Context, channelID, videoID string) (int, error)
	// SearchPartition は単一パーティション内の類似度降順の候補を返します
	SearchPartition(ctx context.Context, channelID string, vector []float32, limit int) ([]*Hit, error)
}

// ChannelLister は全チャンネルスコープのファンアウト対象を列挙します
type ChannelLister interface {
	ListEnabledChannelIDs(ctx context.Context) ([]string, error)
}
