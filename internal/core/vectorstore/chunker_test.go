package vectorstore_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

type fixedCounter struct{}

func (fixedCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func makeSegments(texts []string) []catalog.Segment {
	segments := make([]catalog.Segment, len(texts))
	for i, text := range texts {
		segments[i] = catalog.Segment{
			StartSeconds: float64(i * 10),
			EndSeconds:   float64(i*10 + 10),
			Text:         text,
		}
	}
	return segments
}

func TestChunker_Split(t *testing.T) {
	t.Run("短いトランスクリプトは1チャンクにまとまる", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{Size: 100, Overlap: 20}, nil)
		segments := makeSegments([]string{"hello world", "second segment"})

		chunks := chunker.Split("ch1", "vid1", segments)

		require.Len(t, chunks, 1)
		assert.Equal(t, "hello world second segment", chunks[0].Content)
		assert.Equal(t, 0.0, chunks[0].StartSeconds)
		assert.Equal(t, 20.0, chunks[0].EndSeconds)
		assert.Equal(t, 0, chunks[0].Ordinal)
		assert.Equal(t, "ch1", chunks[0].ChannelID)
		assert.Equal(t, "vid1", chunks[0].VideoID)
	})

	t.Run("長いトランスクリプトは目標サイズごとに分割される", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{Size: 30, Overlap: 0}, nil)
		segments := makeSegments([]string{
			"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc",
			"dddddddddd", "eeeeeeeeee", "ffffffffff",
		})

		chunks := chunker.Split("ch1", "vid1", segments)

		require.Len(t, chunks, 2)
		assert.Equal(t, 0, chunks[0].Ordinal)
		assert.Equal(t, 1, chunks[1].Ordinal)
		// 各チャンクは自分に含まれるセグメントのタイムスタンプ範囲を保持する
		assert.Equal(t, 0.0, chunks[0].StartSeconds)
		assert.Equal(t, 30.0, chunks[0].EndSeconds)
		assert.Equal(t, 30.0, chunks[1].StartSeconds)
		assert.Equal(t, 60.0, chunks[1].EndSeconds)
	})

	t.Run("重複設定は前チャンク末尾のセグメントを次チャンクへ引き継ぐ", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{Size: 30, Overlap: 12}, nil)
		segments := makeSegments([]string{
			"aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc",
			"dddddddddd", "eeeeeeeeee",
		})

		chunks := chunker.Split("ch1", "vid1", segments)

		require.GreaterOrEqual(t, len(chunks), 2)
		// 第1チャンク末尾のセグメントが第2チャンク先頭に現れる
		assert.True(t, strings.HasSuffix(chunks[0].Content, "cccccccccc"))
		assert.True(t, strings.HasPrefix(chunks[1].Content, "cccccccccc"))
		// 引き継いだセグメントの開始時刻がチャンクの開始時刻になる
		assert.Equal(t, 20.0, chunks[1].StartSeconds)
	})

	t.Run("空白のみのセグメントは無視される", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.DefaultChunkConfig(), nil)
		segments := []catalog.Segment{
			{StartSeconds: 0, EndSeconds: 5, Text: "   "},
			{StartSeconds: 5, EndSeconds: 10, Text: "real text"},
			{StartSeconds: 10, EndSeconds: 15, Text: ""},
		}

		chunks := chunker.Split("ch1", "vid1", segments)

		require.Len(t, chunks, 1)
		assert.Equal(t, "real text", chunks[0].Content)
		assert.Equal(t, 5.0, chunks[0].StartSeconds)
	})

	t.Run("セグメントが空ならチャンクは生成されない", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.DefaultChunkConfig(), nil)

		chunks := chunker.Split("ch1", "vid1", nil)

		assert.Empty(t, chunks)
	})

	t.Run("カウンタ指定時はトークン数が記録される", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{Size: 100, Overlap: 0}, fixedCounter{})
		segments := makeSegments([]string{"one two three"})

		chunks := chunker.Split("ch1", "vid1", segments)

		require.Len(t, chunks, 1)
		assert.Equal(t, 3, chunks[0].TokenCount)
	})
}

func TestNewChunker_ClampsInvalidConfig(t *testing.T) {
	t.Run("サイズ0はデフォルト設定になる", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{}, nil)
		assert.Equal(t, vectorstore.DefaultChunkConfig(), chunker.Config())
	})

	t.Run("重複がサイズ以上なら半分に丸められる", func(t *testing.T) {
		chunker := vectorstore.NewChunker(vectorstore.ChunkConfig{Size: 100, Overlap: 150}, nil)
		assert.Equal(t, 50, chunker.Config().Overlap)
	})
}
