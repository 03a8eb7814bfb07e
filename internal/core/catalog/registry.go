package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/mo"
)

// Registry はチャンネルレコードのライフサイクルを管理します。
// ChannelRecordを作成・変更するのはこのサービスだけです。
type Registry struct {
	repo   Repository
	logger *slog.Logger
}

// NewRegistry は新しいRegistryを作成します
func NewRegistry(repo Repository, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{repo: repo, logger: logger}
}

// Upsert はチャンネルを登録または更新します。
// チャンネルIDをキーとして冪等であり、再登録は表示メタデータのみ更新し、
// カウンタは決してリセットしません。
func (r *Registry) Upsert(ctx context.Context, id, url, name string) (*Channel, error) {
	if id == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	if name == "" {
		name = id
	}

	channel, err := r.repo.UpsertChannel(ctx, &Channel{
		ID:      id,
		URL:     url,
		Name:    name,
		Enabled: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert channel: %w", err)
	}

	return channel, nil
}

// AutoRegister は未知のチャンネルIDを参照する動画から、
// ベストエフォートのメタデータでチャンネルを合成します。
func (r *Registry) AutoRegister(ctx context.Context, id, url, name string) (*Channel, error) {
	existing, err := r.repo.GetChannel(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up channel: %w", err)
	}
	if channel, ok := existing.Get(); ok {
		return channel, nil
	}

	r.logger.Info("未知のチャンネルを自動登録します", "channelID", id, "name", name)
	return r.Upsert(ctx, id, url, name)
}

// Get はIDでチャンネルを取得します
func (r *Registry) Get(ctx context.Context, id string) (mo.Option[*Channel], error) {
	return r.repo.GetChannel(ctx, id)
}

// List はチャンネル一覧を返します
func (r *Registry) List(ctx context.Context, enabledOnly bool) ([]*Channel, error) {
	return r.repo.ListChannels(ctx, enabledOnly)
}

// SetEnabled はチャンネルの有効/無効を切り替えます。
// 無効化されたチャンネルは検索対象と新規取り込みから外れますが、
// 台帳エントリやベクトルパーティションは削除されません。
func (r *Registry) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if err := r.repo.SetChannelEnabled(ctx, id, enabled); err != nil {
		return fmt.Errorf("failed to set channel enabled: %w", err)
	}
	r.logger.Info("チャンネルの有効状態を変更しました", "channelID", id, "enabled", enabled)
	return nil
}

// Remove はチャンネルレコードを明示的に削除します。
// purgeData が真の場合は台帳エントリと成果物も削除します。
// ベクトルパーティションの破棄は Vector Store Manager の責務です。
func (r *Registry) Remove(ctx context.Context, id string, purgeData bool) error {
	if purgeData {
		if err := r.repo.DeleteArtifactsByChannel(ctx, id); err != nil {
			return fmt.Errorf("failed to delete channel artifacts: %w", err)
		}
		if err := r.repo.DeleteVideosByChannel(ctx, id); err != nil {
			return fmt.Errorf("failed to delete channel videos: %w", err)
		}
	}
	if err := r.repo.DeleteChannel(ctx, id); err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	r.logger.Info("チャンネルを削除しました", "channelID", id, "purgeData", purgeData)
	return nil
}

// RefreshCounters はチャンネルの集計カウンタを台帳から再計算します
func (r *Registry) RefreshCounters(ctx context.Context, id string) error {
	counts, err := r.repo.CountVideoPhases(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to count video phases: %w", err)
	}
	if err := r.repo.UpdateChannelCounters(ctx, id, counts.Known, counts.Indexed); err != nil {
		return fmt.Errorf("failed to update channel counters: %w", err)
	}
	return nil
}

// Status はステータス表示用のチャンネル別スナップショットを返します
func (r *Registry) Status(ctx context.Context) ([]*ChannelStatus, error) {
	channels, err := r.repo.ListChannels(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	statuses := make([]*ChannelStatus, 0, len(channels))
	for _, channel := range channels {
		counts, err := r.repo.CountVideoPhases(ctx, channel.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to count video phases for %s: %w", channel.ID, err)
		}
		statuses = append(statuses, &ChannelStatus{Channel: *channel, Counts: counts})
	}

	return statuses, nil
}

// Stats はレジストリ全体の集計を返します
func (r *Registry) Stats(ctx context.Context) (*Stats, error) {
	channels, err := r.repo.ListChannels(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}

	stats := &Stats{TotalChannels: len(channels)}
	var lastUpdated time.Time
	for _, channel := range channels {
		if channel.Enabled {
			stats.EnabledChannels++
		}
		stats.TotalVideos += channel.VideosKnown
		if channel.UpdatedAt.After(lastUpdated) {
			lastUpdated = channel.UpdatedAt
		}
	}
	stats.DisabledChannels = stats.TotalChannels - stats.EnabledChannels
	if !lastUpdated.IsZero() {
		stats.LastUpdated = &lastUpdated
	}

	return stats, nil
}
