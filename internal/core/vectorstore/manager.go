package vectorstore

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Manager はチャンネルごとに分離されたベクトルパーティション群を管理します。
// 書き込みはパーティション単位で直列化され、検索は複数パーティションへ
// 並列にファンアウトします。
type Manager struct {
	repo     Repository
	channels ChannelLister
	logger   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

type ManagerOption func(*Manager)

// WithManagerLogger はロガーを差し替えます
func WithManagerLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager は新しいManagerを作成します
func NewManager(repo Repository, channels ChannelLister, opts ...ManagerOption) *Manager {
	m := &Manager{
		repo:     repo,
		channels: channels,
		logger:   slog.Default(),
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// partitionLock はチャンネル単位の書き込みロックを返します
func (m *Manager) partitionLock(channelID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.locks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		m.locks[channelID] = lock
	}
	return lock
}

// EnsurePartition はチャンネルのパーティションを取得し、なければ作成します。
// 既存パーティションのチャンク設定は変更しません。
func (m *Manager) EnsurePartition(ctx context.Context, channelID string, cfg ChunkConfig) (*Partition, error) {
	lock := m.partitionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.repo.GetPartition(ctx, channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to get partition: %w", err)
	}
	if p, ok := existing.Get(); ok {
		return p, nil
	}

	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	partition, err := m.repo.CreatePartition(ctx, channelID, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create partition: %w", err)
	}

	m.logger.Info("ベクトルパーティションを作成しました",
		slog.String("channel_id", channelID),
		slog.Int("chunk_size", cfg.Size),
		slog.Int("chunk_overlap", cfg.Overlap),
	)
	return partition, nil
}

// AddDocuments はチャンクとその埋め込みをパーティションへ追記します。
// 追記のみで、既存チャンクの置換は行いません。
func (m *Manager) AddDocuments(ctx context.Context, channelID string, chunks []*Chunk, vectors [][]float32, model string) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	lock := m.partitionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.repo.GetPartition(ctx, channelID)
	if err != nil {
		return fmt.Errorf("failed to get partition: %w", err)
	}
	if existing.IsAbsent() {
		return &NoPartitionError{ChannelID: channelID}
	}

	if err := m.repo.InsertChunks(ctx, chunks, vectors, model); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	if err := m.repo.UpdatePartitionCount(ctx, channelID, len(chunks)); err != nil {
		return fmt.Errorf("failed to update partition count: %w", err)
	}
	return nil
}

// RemoveVideo は動画1件分のチャンクをパーティションから取り除きます。
// 再インデックス時に古いチャンクが残らないよう、追記の前に呼び出します。
func (m *Manager) RemoveVideo(ctx context.Context, channelID, videoID string) (int, error) {
	lock := m.partitionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	removed, err := m.repo.DeleteChunksByVideo(ctx, channelID, videoID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chunks: %w", err)
	}
	if removed > 0 {
		if err := m.repo.UpdatePartitionCount(ctx, channelID, -removed); err != nil {
			return 0, fmt.Errorf("failed to update partition count: %w", err)
		}
	}
	return removed, nil
}

// DropPartition はチャンネルのパーティションを全チャンクごと破棄します
func (m *Manager) DropPartition(ctx context.Context, channelID string) error {
	lock := m.partitionLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	if err := m.repo.DropPartition(ctx, channelID); err != nil {
		return fmt.Errorf("failed to drop partition: %w", err)
	}
	m.logger.Info("ベクトルパーティションを破棄しました", slog.String("channel_id", channelID))
	return nil
}

// Query はスコープに応じたパーティション検索を実行します。
// 単一チャンネルスコープでパーティションが未構築の場合は NoPartitionError を返します。
// 全チャンネルスコープでは有効チャンネルのパーティションへ並列にファンアウトし、
// しきい値未満のヒットを落としたうえでスコア降順にマージします。
func (m *Manager) Query(ctx context.Context, scope Scope, vector []float32, limit int, threshold float64) ([]*Hit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %d", limit)
	}

	targets, err := m.resolveTargets(ctx, scope)
	if err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, nil
	}

	type result struct {
		hits []*Hit
		err  error
	}

	results := make([]result, len(targets))
	var wg sync.WaitGroup
	for i, channelID := range targets {
		wg.Add(1)
		go func(i int, channelID string) {
			defer wg.Done()
			hits, err := m.repo.SearchPartition(ctx, channelID, vector, limit)
			if err != nil {
				results[i] = result{err: fmt.Errorf("failed to search partition %s: %w", channelID, err)}
				return
			}
			results[i] = result{hits: hits}
		}(i, channelID)
	}
	wg.Wait()

	var merged []*Hit
	for _, r := range results {
		if r.err != nil {
			return nil, r.err
		}
		for _, hit := range r.hits {
			if hit.Score < threshold {
				continue
			}
			merged = append(merged, hit)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

// resolveTargets は検索対象となるチャンネルID群を決定します
func (m *Manager) resolveTargets(ctx context.Context, scope Scope) ([]string, error) {
	if !scope.IsAll() {
		existing, err := m.repo.GetPartition(ctx, scope.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("failed to get partition: %w", err)
		}
		if existing.IsAbsent() {
			return nil, &NoPartitionError{ChannelID: scope.ChannelID}
		}
		return []string{scope.ChannelID}, nil
	}

	enabled, err := m.channels.ListEnabledChannelIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled channels: %w", err)
	}
	partitions, err := m.repo.ListPartitions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list partitions: %w", err)
	}

	built := make(map[string]struct{}, len(partitions))
	for _, p := range partitions {
		built[p.ChannelID] = struct{}{}
	}

	var targets []string
	for _, channelID := range enabled {
		if _, ok := built[channelID]; ok {
			targets = append(targets, channelID)
		}
	}
	return targets, nil
}
