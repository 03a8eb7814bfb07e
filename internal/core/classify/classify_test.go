package classify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyChannelForms(t *testing.T) {
	tests := []struct {
		name string
		url  string
		id   string
	}{
		{"channel id", "https://www.youtube.com/channel/UCabc123xyz", "UCabc123xyz"},
		{"handle", "https://www.youtube.com/@somecreator", "somecreator"},
		{"custom name", "https://www.youtube.com/c/SomeChannel", "SomeChannel"},
		{"legacy user", "https://www.youtube.com/user/olduser", "olduser"},
		{"no scheme", "youtube.com/channel/UCabc123xyz", "UCabc123xyz"},
		{"mobile host", "https://m.youtube.com/@somecreator", "somecreator"},
		{"trailing path", "https://www.youtube.com/channel/UCabc123xyz/videos", "UCabc123xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Classify(tt.url)
			require.NoError(t, err)
			assert.Equal(t, KindChannel, ref.Kind)
			assert.Equal(t, tt.id, ref.ID)
		})
	}
}

func TestClassifyVideoForms(t *testing.T) {
	tests := []struct {
		name string
		url  string
		id   string
	}{
		{"watch", "https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"watch with extra params", "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PL1", "dQw4w9WgXcQ"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"short link with query", "https://youtu.be/dQw4w9WgXcQ?t=42", "dQw4w9WgXcQ"},
		{"shorts", "https://www.youtube.com/shorts/abc123", "abc123"},
		{"embed", "https://www.youtube.com/embed/abc123", "abc123"},
		{"legacy v", "https://www.youtube.com/v/abc123", "abc123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Classify(tt.url)
			require.NoError(t, err)
			assert.Equal(t, KindVideo, ref.Kind)
			assert.Equal(t, tt.id, ref.ID)
		})
	}
}

func TestClassifyRejectsUnrecognized(t *testing.T) {
	tests := []string{
		"",
		"https://example.com/watch?v=abc",
		"https://vimeo.com/12345",
		"not a url at all",
		"https://www.youtube.com/",
	}

	for _, raw := range tests {
		_, err := Classify(raw)
		assert.ErrorIs(t, err, ErrUnrecognizedURL, "url: %q", raw)
	}
}

func TestClassifyRejectsMalformed(t *testing.T) {
	tests := []string{
		"https://www.youtube.com/watch",
		"https://www.youtube.com/watch?list=PL1",
		"https://www.youtube.com/channel/",
		"https://www.youtube.com/shorts/",
		"https://youtu.be/",
	}

	for _, raw := range tests {
		_, err := Classify(raw)
		assert.ErrorIs(t, err, ErrMalformedURL, "url: %q", raw)
	}
}

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"channel id", "youtube.com/channel/UCabc123xyz", "https://www.youtube.com/channel/UCabc123xyz"},
		{"handle", "youtube.com/@somecreator", "https://www.youtube.com/@somecreator"},
		{"custom name keeps form", "https://www.youtube.com/c/SomeChannel", "https://www.youtube.com/c/SomeChannel"},
		{"legacy user keeps form", "https://www.youtube.com/user/olduser/videos", "https://www.youtube.com/user/olduser"},
		{"short link", "https://youtu.be/dQw4w9WgXcQ", "https://www.youtube.com/watch?v=dQw4w9WgXcQ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Classify(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ref.CanonicalURL())
		})
	}
}

func TestCanonicalURLFallbackFromFields(t *testing.T) {
	// ストレージから復元した参照は分類時URLを持たない
	channel := Reference{Kind: KindChannel, ID: "UCabc123xyz"}
	assert.Equal(t, "https://www.youtube.com/channel/UCabc123xyz", channel.CanonicalURL())

	handle := Reference{Kind: KindChannel, ID: "somecreator"}
	assert.Equal(t, "https://www.youtube.com/@somecreator", handle.CanonicalURL())

	video := Reference{Kind: KindVideo, ID: "dQw4w9WgXcQ"}
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", video.CanonicalURL())
}

func TestClassifyBatchFixesModeFromFirstURL(t *testing.T) {
	batch, err := ClassifyBatch([]string{
		"https://www.youtube.com/channel/UCabc123xyz",
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://www.youtube.com/@another",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeChannel, batch.Mode)
	require.Len(t, batch.References, 2)
	assert.Equal(t, "UCabc123xyz", batch.References[0].ID)
	assert.Equal(t, "another", batch.References[1].ID)

	// 動画URLはモード不一致として警告付きで除外される
	require.Len(t, batch.Warnings, 1)
	var mixed *MixedModeError
	require.True(t, errors.As(batch.Warnings[0].Err, &mixed))
	assert.Equal(t, ModeChannel, mixed.Expected)
	assert.Equal(t, ModeVideo, mixed.Actual)
}

func TestClassifyBatchVideoMode(t *testing.T) {
	batch, err := ClassifyBatch([]string{
		"https://youtu.be/video1",
		"https://www.youtube.com/channel/UCabc123xyz",
		"https://youtu.be/video2",
	})
	require.NoError(t, err)

	assert.Equal(t, ModeVideo, batch.Mode)
	assert.Len(t, batch.References, 2)
	assert.Len(t, batch.Warnings, 1)
}

func TestClassifyBatchSkipsUnclassifiableAndKeepsGoing(t *testing.T) {
	batch, err := ClassifyBatch([]string{
		"https://example.com/nope",
		"https://youtu.be/video1",
	})
	require.NoError(t, err)

	// 分類不能なURLはモードを確定させない
	assert.Equal(t, ModeVideo, batch.Mode)
	assert.Len(t, batch.References, 1)
	require.Len(t, batch.Warnings, 1)
	assert.ErrorIs(t, batch.Warnings[0].Err, ErrUnrecognizedURL)
}

func TestClassifyBatchAllRejected(t *testing.T) {
	batch, err := ClassifyBatch([]string{"https://example.com/a", "garbage"})
	require.Error(t, err)
	assert.Len(t, batch.Warnings, 2)
}
