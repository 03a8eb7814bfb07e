package catalog_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/catalog/catalogtest"
)

func TestUpsertIsIdempotentAndPreservesCounters(t *testing.T) {
	ctx := context.Background()
	repo := catalogtest.NewRepository()
	registry := catalog.NewRegistry(repo, nil)

	first, err := registry.Upsert(ctx, "UCabc", "https://www.youtube.com/channel/UCabc", "Some Channel")
	require.NoError(t, err)
	assert.True(t, first.Enabled)

	// カウンタを進めてから再登録する
	require.NoError(t, repo.UpdateChannelCounters(ctx, "UCabc", 12, 7))

	second, err := registry.Upsert(ctx, "UCabc", "https://www.youtube.com/channel/UCabc", "Renamed Channel")
	require.NoError(t, err)
	assert.Equal(t, "Renamed Channel", second.Name)
	assert.Equal(t, 12, second.VideosKnown)
	assert.Equal(t, 7, second.VideosIndexed)

	channels, err := registry.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestAutoRegisterCreatesExactlyOneEnabledChannel(t *testing.T) {
	ctx := context.Background()
	repo := catalogtest.NewRepository()
	registry := catalog.NewRegistry(repo, nil)

	created, err := registry.AutoRegister(ctx, "UCauto", "https://www.youtube.com/channel/UCauto", "Uploader Name")
	require.NoError(t, err)
	assert.True(t, created.Enabled)
	assert.Equal(t, "Uploader Name", created.Name)

	// 再処理が重複レコードを作らないこと
	again, err := registry.AutoRegister(ctx, "UCauto", "https://www.youtube.com/channel/UCauto", "Different Name")
	require.NoError(t, err)
	assert.Equal(t, "Uploader Name", again.Name)

	channels, err := registry.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, channels, 1)
}

func TestSetEnabledExcludesFromEnabledList(t *testing.T) {
	ctx := context.Background()
	repo := catalogtest.NewRepository()
	registry := catalog.NewRegistry(repo, nil)

	_, err := registry.Upsert(ctx, "UCa", "", "A")
	require.NoError(t, err)
	_, err = registry.Upsert(ctx, "UCb", "", "B")
	require.NoError(t, err)

	require.NoError(t, registry.SetEnabled(ctx, "UCb", false))

	enabled, err := registry.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, "UCa", enabled[0].ID)

	// 無効化はレコード自体を消さない
	all, err := registry.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestRemoveWithPurgeDeletesLedgerEntries(t *testing.T) {
	ctx := context.Background()
	repo := catalogtest.NewRepository()
	registry := catalog.NewRegistry(repo, nil)
	ledger := catalog.NewLedger(repo, catalog.RefreshReindexOnly, nil)

	_, err := registry.Upsert(ctx, "UCa", "", "A")
	require.NoError(t, err)
	_, err = ledger.RecordDiscovered(ctx, &catalog.Video{ID: "vid1", ChannelID: "UCa"})
	require.NoError(t, err)

	require.NoError(t, registry.Remove(ctx, "UCa", true))

	channels, err := registry.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, channels)

	videos, err := repo.ListVideosByChannel(ctx, "UCa")
	require.NoError(t, err)
	assert.Empty(t, videos)
}

func TestStatusReportsPhaseCounts(t *testing.T) {
	ctx := context.Background()
	repo := catalogtest.NewRepository()
	registry := catalog.NewRegistry(repo, nil)
	ledger := catalog.NewLedger(repo, catalog.RefreshReindexOnly, nil)

	_, err := registry.Upsert(ctx, "UCa", "", "A")
	require.NoError(t, err)

	for _, id := range []string{"vid1", "vid2"} {
		_, err := ledger.RecordDiscovered(ctx, &catalog.Video{ID: id, ChannelID: "UCa"})
		require.NoError(t, err)
	}
	require.NoError(t, ledger.MarkPhase(ctx, "vid1", catalog.PhaseDownload, catalog.StatusDone, "fp", ""))
	require.NoError(t, ledger.MarkPhase(ctx, "vid1", catalog.PhaseEnhance, catalog.StatusDone, "fp", ""))
	require.NoError(t, ledger.MarkPhase(ctx, "vid2", catalog.PhaseDownload, catalog.StatusDone, "fp", ""))

	statuses, err := registry.Status(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.Equal(t, 2, statuses[0].Counts.Known)
	assert.Equal(t, 2, statuses[0].Counts.Downloaded)
	assert.Equal(t, 1, statuses[0].Counts.Enhanced)
	assert.Equal(t, 0, statuses[0].Counts.Indexed)
}

func TestStatsAggregates(t *testing.T) {
	ctx := context.Background()
	repo := catalogtest.NewRepository()
	registry := catalog.NewRegistry(repo, nil)

	_, err := registry.Upsert(ctx, "UCa", "", "A")
	require.NoError(t, err)
	_, err = registry.Upsert(ctx, "UCb", "", "B")
	require.NoError(t, err)
	require.NoError(t, registry.SetEnabled(ctx, "UCb", false))
	require.NoError(t, repo.UpdateChannelCounters(ctx, "UCa", 5, 3))

	stats, err := registry.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalChannels)
	assert.Equal(t, 1, stats.EnabledChannels)
	assert.Equal(t, 1, stats.DisabledChannels)
	assert.Equal(t, 5, stats.TotalVideos)
	assert.NotNil(t, stats.LastUpdated)
}
