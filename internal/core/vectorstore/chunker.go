package vectorstore

import (
	"strings"

	"github.com/google/uuid"

	"github.com/jinford/tubeseek/internal/core/catalog"
)

// TokenCounter はテキストのトークン数を数えます
type TokenCounter interface {
	Count(text string) int
}

// Chunker はタイムコード付きセグメント列を重複付きウィンドウに分割します。
// 各チャンクは元セグメントのタイムスタンプ範囲を保持します。
type Chunker struct {
	cfg     ChunkConfig
	counter TokenCounter
}

// NewChunker は新しいChunkerを作成します。counterはnil可です。
func NewChunker(cfg ChunkConfig, counter TokenCounter) *Chunker {
	if cfg.Size <= 0 {
		cfg = DefaultChunkConfig()
	}
	if cfg.Overlap >= cfg.Size {
		cfg.Overlap = cfg.Size / 2
	}
	return &Chunker{cfg: cfg, counter: counter}
}

// Config はチャンク設定を返します
func (c *Chunker) Config() ChunkConfig {
	return c.cfg
}

// Split は1動画分のセグメント列をチャンクに分割します
func (c *Chunker) Split(channelID, videoID string, segments []catalog.Segment) []*Chunk {
	var chunks []*Chunk

	var (
		builder      strings.Builder
		window       []catalog.Segment
		startSeconds float64
		endSeconds   float64
		// freshCount は直近のフラッシュ以降に追加した（重複引き継ぎでない）セグメント数
		freshCount int
	)

	flush := func() {
		content := strings.TrimSpace(builder.String())
		if content == "" {
			return
		}
		chunk := &Chunk{
			ID:           uuid.New(),
			ChannelID:    channelID,
			VideoID:      videoID,
			Ordinal:      len(chunks),
			StartSeconds: startSeconds,
			EndSeconds:   endSeconds,
			Content:      content,
		}
		if c.counter != nil {
			chunk.TokenCount = c.counter.Count(content)
		}
		chunks = append(chunks, chunk)
	}

	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		if len(window) == 0 {
			startSeconds = seg.StartSeconds
		}
		if builder.Len() > 0 {
			builder.WriteByte(' ')
		}
		builder.WriteString(text)
		window = append(window, seg)
		endSeconds = seg.EndSeconds
		freshCount++

		if builder.Len() < c.cfg.Size {
			continue
		}

		flush()

		// 次のチャンクの先頭に、重複分として末尾セグメントを引き継ぐ
		overlap := c.overlapSegments(window)
		builder.Reset()
		window = window[:0]
		freshCount = 0
		for _, os := range overlap {
			if len(window) == 0 {
				startSeconds = os.StartSeconds
			}
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(strings.TrimSpace(os.Text))
			window = append(window, os)
			endSeconds = os.EndSeconds
		}
	}

	// 重複引き継ぎ分だけが残った場合は前チャンクに含まれているため捨てる
	if freshCount > 0 {
		flush()
	}

	return chunks
}

// overlapSegments はウィンドウ末尾から重複文字数以内のセグメントを返します
func (c *Chunker) overlapSegments(window []catalog.Segment) []catalog.Segment {
	if c.cfg.Overlap <= 0 || len(window) == 0 {
		return nil
	}

	total := 0
	start := len(window)
	for i := len(window) - 1; i >= 0; i-- {
		total += len(strings.TrimSpace(window[i].Text))
		if total > c.cfg.Overlap {
			break
		}
		start = i
	}
	if start == len(window) {
		return nil
	}
	return append([]catalog.Segment(nil), window[start:]...)
}
