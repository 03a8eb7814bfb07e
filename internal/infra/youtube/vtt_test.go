package youtube

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/tubeseek/internal/core/ingest"
)

func TestParseVTT(t *testing.T) {
	t.Run("キューをタイムコード付きセグメントへ変換する", func(t *testing.T) {
		vtt := `WEBVTT
Kind: captions
Language: ja

00:00:01.000 --> 00:00:04.500
こんにちは

00:01:02.500 --> 00:01:05.000
今日はGoの話をします
`
		segments, err := ParseVTT(strings.NewReader(vtt))
		require.NoError(t, err)
		require.Len(t, segments, 2)

		assert.Equal(t, 1.0, segments[0].StartSeconds)
		assert.Equal(t, 4.5, segments[0].EndSeconds)
		assert.Equal(t, "こんにちは", segments[0].Text)
		assert.Equal(t, 62.5, segments[1].StartSeconds)
		assert.Equal(t, "今日はGoの話をします", segments[1].Text)
	})

	t.Run("自動生成字幕の巻き上げ重複を除去する", func(t *testing.T) {
		vtt := `WEBVTT

00:00:00.000 --> 00:00:02.000
hello world

00:00:02.000 --> 00:00:04.000
hello world

00:00:04.000 --> 00:00:06.000
next line
`
		segments, err := ParseVTT(strings.NewReader(vtt))
		require.NoError(t, err)
		require.Len(t, segments, 2)
		assert.Equal(t, "hello world", segments[0].Text)
		assert.Equal(t, "next line", segments[1].Text)
	})

	t.Run("インラインタグと実体参照を取り除く", func(t *testing.T) {
		vtt := `WEBVTT

00:00:00.000 --> 00:00:02.000
<00:00:00.500><c>tagged</c> text &amp; more
`
		segments, err := ParseVTT(strings.NewReader(vtt))
		require.NoError(t, err)
		require.Len(t, segments, 1)
		assert.Equal(t, "tagged text & more", segments[0].Text)
	})

	t.Run("本文のないキューは捨てる", func(t *testing.T) {
		vtt := `WEBVTT

00:00:00.000 --> 00:00:02.000

00:00:02.000 --> 00:00:04.000
actual text
`
		segments, err := ParseVTT(strings.NewReader(vtt))
		require.NoError(t, err)
		require.Len(t, segments, 1)
	})
}

func TestTimestampToSeconds(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{input: "00:00:01.000", want: 1.0},
		{input: "01:02:03.500", want: 3723.5},
		{input: "02:03.500", want: 123.5},
		{input: "not-a-timestamp", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := timestampToSeconds(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDateFilterArgs(t *testing.T) {
	now := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("全件フィルタは引数なし", func(t *testing.T) {
		assert.Nil(t, dateFilterArgs(ingest.FilterAllVideos(), now))
	})

	t.Run("直近フィルタは下限日から引数を組み立てる", func(t *testing.T) {
		args := dateFilterArgs(ingest.FilterRecentMonths(6), now)
		assert.Equal(t, []string{"--dateafter", "20260201", "--break-on-reject", "--lazy-playlist"}, args)
	})
}

func TestChannelVideosURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"channel id", "https://www.youtube.com/channel/UCabc123xyz", "https://www.youtube.com/channel/UCabc123xyz/videos"},
		{"handle", "https://www.youtube.com/@somecreator", "https://www.youtube.com/@somecreator/videos"},
		{"custom name", "https://www.youtube.com/c/SomeChannel", "https://www.youtube.com/c/SomeChannel/videos"},
		{"legacy user", "https://www.youtube.com/user/olduser", "https://www.youtube.com/user/olduser/videos"},
		{"trailing slash", "https://www.youtube.com/@somecreator/", "https://www.youtube.com/@somecreator/videos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, channelVideosURL(tt.url))
		})
	}
}

func TestClassifyCommandError(t *testing.T) {
	tests := []struct {
		name   string
		stderr string
		want   error
	}{
		{
			name:   "字幕なしは恒久的な失敗",
			stderr: "ERROR: No subtitles for requested languages",
			want:   ingest.ErrTranscriptUnavailable,
		},
		{
			name:   "429は一過性の失敗",
			stderr: "ERROR: HTTP Error 429: Too Many Requests",
			want:   ingest.ErrRateLimited,
		},
		{
			name:   "接続失敗は一過性の失敗",
			stderr: "ERROR: Unable to download webpage: connection reset",
			want:   ingest.ErrNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyCommandError(assert.AnError, tt.stderr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
