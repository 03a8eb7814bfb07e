package vectorstoretest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/samber/mo"

	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// Repository はテスト用のインメモリ vectorstore.Repository 実装です。
// 検索は保存済みベクトルとのコサイン類似度で行います。
type Repository struct {
	mu         sync.Mutex
	partitions map[string]*vectorstore.Partition
	chunks     []*storedChunk
}

type storedChunk struct {
	chunk  *vectorstore.Chunk
	vector []float32
	model  string
}

var _ vectorstore.Repository = (*Repository)(nil)

// NewRepository は空のインメモリリポジトリを作成します
func NewRepository() *Repository {
	return &Repository{
		partitions: make(map[string]*vectorstore.Partition),
	}
}

func (r *Repository) GetPartition(_ context.Context, channelID string) (mo.Option[*vectorstore.Partition], error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.partitions[channelID]
	if !ok {
		return mo.None[*vectorstore.Partition](), nil
	}
	copied := *p
	return mo.Some(&copied), nil
}

func (r *Repository) ListPartitions(_ context.Context) ([]*vectorstore.Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var partitions []*vectorstore.Partition
	for _, p := range r.partitions {
		copied := *p
		partitions = append(partitions, &copied)
	}
	sort.Slice(partitions, func(i, j int) bool {
		return partitions[i].ChannelID < partitions[j].ChannelID
	})
	return partitions, nil
}

func (r *Repository) CreatePartition(_ context.Context, channelID string, cfg vectorstore.ChunkConfig) (*vectorstore.Partition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	p := &vectorstore.Partition{
		ChannelID:    channelID,
		ChunkSize:    cfg.Size,
		ChunkOverlap: cfg.Overlap,
		BuiltAt:      now,
		UpdatedAt:    now,
	}
	r.partitions[channelID] = p
	copied := *p
	return &copied, nil
}

func (r *Repository) UpdatePartitionCount(_ context.Context, channelID string, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.partitions[channelID]; ok {
		p.ChunkCount += delta
		p.UpdatedAt = time.Now()
	}
	return nil
}

func (r *Repository) DropPartition(_ context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.partitions, channelID)
	kept := r.chunks[:0]
	for _, sc := range r.chunks {
		if sc.chunk.ChannelID != channelID {
			kept = append(kept, sc)
		}
	}
	r.chunks = kept
	return nil
}

func (r *Repository) InsertChunks(_ context.Context, chunks []*vectorstore.Chunk, vectors [][]float32, model string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, chunk := range chunks {
		copied := *chunk
		r.chunks = append(r.chunks, &storedChunk{
			chunk:  &copied,
			vector: append([]float32(nil), vectors[i]...),
			model:  model,
		})
	}
	return nil
}

func (r *Repository) DeleteChunksByVideo(_ context.Context, channelID, videoID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	kept := r.chunks[:0]
	for _, sc := range r.chunks {
		if sc.chunk.ChannelID == channelID && sc.chunk.VideoID == videoID {
			removed++
			continue
		}
		kept = append(kept, sc)
	}
	r.chunks = kept
	return removed, nil
}

func (r *Repository) SearchPartition(_ context.Context, channelID string, vector []float32, limit int) ([]*vectorstore.Hit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var hits []*vectorstore.Hit
	for _, sc := range r.chunks {
		if sc.chunk.ChannelID != channelID {
			continue
		}
		hits = append(hits, &vectorstore.Hit{
			ChunkID:      sc.chunk.ID,
			ChannelID:    sc.chunk.ChannelID,
			VideoID:      sc.chunk.VideoID,
			StartSeconds: sc.chunk.StartSeconds,
			EndSeconds:   sc.chunk.EndSeconds,
			Content:      sc.chunk.Content,
			Score:        cosineSimilarity(vector, sc.vector),
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// ChunkCount は保存済みチャンク数を返します
func (r *Repository) ChunkCount(channelID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, sc := range r.chunks {
		if sc.chunk.ChannelID == channelID {
			count++
		}
	}
	return count
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// ChannelLister はテスト用の固定チャンネル一覧です
type ChannelLister struct {
	ChannelIDs []string
}

var _ vectorstore.ChannelLister = (*ChannelLister)(nil)

func (l *ChannelLister) ListEnabledChannelIDs(_ context.Context) ([]string, error) {
	return append([]string(nil), l.ChannelIDs...), nil
}
