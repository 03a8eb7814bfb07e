package ingest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jinford/tubeseek/internal/core/ingest"
)

func TestDateFilter_Allows(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	ptr := func(t time.Time) *time.Time { return &t }

	tests := []struct {
		name        string
		filter      ingest.DateFilter
		publishedAt *time.Time
		want        bool
	}{
		{
			name:        "全件フィルタは古い動画も通す",
			filter:      ingest.FilterAllVideos(),
			publishedAt: ptr(time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)),
			want:        true,
		},
		{
			name:        "直近6ヶ月フィルタは範囲内の動画を通す",
			filter:      ingest.FilterRecentMonths(6),
			publishedAt: ptr(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)),
			want:        true,
		},
		{
			name:        "直近6ヶ月フィルタは範囲外の動画を落とす",
			filter:      ingest.FilterRecentMonths(6),
			publishedAt: ptr(time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)),
			want:        false,
		},
		{
			name:        "月数0は既定の6ヶ月になる",
			filter:      ingest.FilterRecentMonths(0),
			publishedAt: ptr(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
			want:        true,
		},
		{
			name:        "指定日フィルタは境界日を含む",
			filter:      ingest.FilterSinceDate(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)),
			publishedAt: ptr(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)),
			want:        true,
		},
		{
			name:        "指定日フィルタは前日を落とす",
			filter:      ingest.FilterSinceDate(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)),
			publishedAt: ptr(time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)),
			want:        false,
		},
		{
			name:        "公開日不明の動画は除外しない",
			filter:      ingest.FilterRecentMonths(6),
			publishedAt: nil,
			want:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Allows(tt.publishedAt, now))
		})
	}
}

func TestDateFilter_Cutoff(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("全件フィルタに下限はない", func(t *testing.T) {
		_, ok := ingest.FilterAllVideos().Cutoff(now)
		assert.False(t, ok)
	})

	t.Run("直近フィルタの下限は月数分さかのぼる", func(t *testing.T) {
		cutoff, ok := ingest.FilterRecentMonths(3).Cutoff(now)
		assert.True(t, ok)
		assert.Equal(t, time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), cutoff)
	})
}
