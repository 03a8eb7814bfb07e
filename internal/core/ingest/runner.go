package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/retry"
	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// Runner は1フェーズの実行器です。
// 実行結果（成功・失敗）の台帳への記録まで含めて責任を持ちます。
type Runner interface {
	Phase() catalog.Phase
	Run(ctx context.Context, item WorkItem) error
}

// markFailed は失敗を台帳に記録します。記録自体の失敗はログに留めます。
func markFailed(ctx context.Context, ledger *catalog.Ledger, logger *slog.Logger, item WorkItem, cause error) {
	if err := ledger.MarkPhase(ctx, item.VideoID, item.Phase, catalog.StatusFailed, "", cause.Error()); err != nil {
		logger.Error("失敗の台帳記録に失敗しました",
			slog.String("video_id", item.VideoID),
			slog.String("phase", string(item.Phase)),
			slog.String("error", err.Error()),
		)
	}
}

// === download ===

// DownloadRunner は字幕を取得して保存します
type DownloadRunner struct {
	fetcher Fetcher
	ledger  *catalog.Ledger
	repo    catalog.Repository
	retry   retry.Policy
	logger  *slog.Logger
}

var _ Runner = (*DownloadRunner)(nil)

// NewDownloadRunner は新しいDownloadRunnerを作成します
func NewDownloadRunner(fetcher Fetcher, ledger *catalog.Ledger, repo catalog.Repository, policy retry.Policy, logger *slog.Logger) *DownloadRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &DownloadRunner{fetcher: fetcher, ledger: ledger, repo: repo, retry: policy, logger: logger}
}

func (r *DownloadRunner) Phase() catalog.Phase {
	return catalog.PhaseDownload
}

func (r *DownloadRunner) Run(ctx context.Context, item WorkItem) error {
	var transcript *catalog.Transcript
	err := r.retry.Do(ctx, IsTransient, func() error {
		t, err := r.fetcher.FetchTranscript(ctx, item.VideoID)
		if err != nil {
			return err
		}
		if len(t.Segments) == 0 {
			return fmt.Errorf("%w: empty transcript for video %s", ErrTranscriptUnavailable, item.VideoID)
		}
		transcript = t
		return nil
	})
	if err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return fmt.Errorf("failed to fetch transcript for video %s: %w", item.VideoID, err)
	}

	transcript.VideoID = item.VideoID
	transcript.Fingerprint = catalog.Fingerprint(transcript.Segments)
	if transcript.FetchedAt.IsZero() {
		transcript.FetchedAt = time.Now()
	}

	if err := r.repo.SaveTranscript(ctx, transcript); err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	if err := r.ledger.MarkPhase(ctx, item.VideoID, catalog.PhaseDownload, catalog.StatusDone, transcript.Fingerprint, ""); err != nil {
		return err
	}

	r.logger.Info("字幕を取得しました",
		slog.String("video_id", item.VideoID),
		slog.Int("segments", len(transcript.Segments)),
	)
	return nil
}

// === enhance ===

// EnhanceRunner は生字幕をモデルで補正して保存します
type EnhanceRunner struct {
	enhancer Enhancer
	ledger   *catalog.Ledger
	repo     catalog.Repository
	retry    retry.Policy
	logger   *slog.Logger
}

var _ Runner = (*EnhanceRunner)(nil)

// NewEnhanceRunner は新しいEnhanceRunnerを作成します
func NewEnhanceRunner(enhancer Enhancer, ledger *catalog.Ledger, repo catalog.Repository, policy retry.Policy, logger *slog.Logger) *EnhanceRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &EnhanceRunner{enhancer: enhancer, ledger: ledger, repo: repo, retry: policy, logger: logger}
}

func (r *EnhanceRunner) Phase() catalog.Phase {
	return catalog.PhaseEnhance
}

func (r *EnhanceRunner) Run(ctx context.Context, item WorkItem) error {
	transcriptOpt, err := r.repo.GetTranscript(ctx, item.VideoID)
	if err != nil {
		return fmt.Errorf("failed to get transcript: %w", err)
	}
	transcript, ok := transcriptOpt.Get()
	if !ok {
		err := fmt.Errorf("transcript not found for video %s", item.VideoID)
		markFailed(ctx, r.ledger, r.logger, item, err)
		return err
	}

	title := ""
	if videoOpt, err := r.repo.GetVideo(ctx, item.VideoID); err == nil {
		if video, ok := videoOpt.Get(); ok {
			title = video.Title
		}
	}

	var (
		enhanced []catalog.Segment
		model    string
	)
	err = r.retry.Do(ctx, IsTransient, func() error {
		segments, usedModel, err := r.enhancer.Enhance(ctx, title, transcript.Segments)
		if err != nil {
			return err
		}
		if err := validateEnhanced(transcript.Segments, segments); err != nil {
			return err
		}
		enhanced = segments
		model = usedModel
		return nil
	})
	if err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return fmt.Errorf("failed to enhance transcript for video %s: %w", item.VideoID, err)
	}

	// セグメント数が保たれている場合、タイムスタンプは元字幕のものを正とする
	if len(enhanced) == len(transcript.Segments) {
		for i := range enhanced {
			enhanced[i].StartSeconds = transcript.Segments[i].StartSeconds
			enhanced[i].EndSeconds = transcript.Segments[i].EndSeconds
		}
	}

	if err := r.repo.SaveEnhancedTranscript(ctx, &catalog.EnhancedTranscript{
		VideoID:     item.VideoID,
		Segments:    enhanced,
		Model:       model,
		Fingerprint: transcript.Fingerprint,
		EnhancedAt:  time.Now(),
	}); err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return fmt.Errorf("failed to save enhanced transcript: %w", err)
	}
	return r.ledger.MarkPhase(ctx, item.VideoID, catalog.PhaseEnhance, catalog.StatusDone, transcript.Fingerprint, "")
}

// validateEnhanced は補正結果が元字幕の構造を保っているか検証します。
// セグメント数の1割を超える増減は利用不能として棄却します。
func validateEnhanced(original, enhanced []catalog.Segment) error {
	if len(enhanced) == 0 {
		return fmt.Errorf("%w: empty enhancement result", ErrModelResponse)
	}
	diff := len(enhanced) - len(original)
	if diff < 0 {
		diff = -diff
	}
	tolerance := len(original) / 10
	if diff > tolerance {
		return fmt.Errorf("%w: segment count changed from %d to %d", ErrModelResponse, len(original), len(enhanced))
	}
	return nil
}

// === index ===

// IndexRunner は字幕をチャンク化・ベクトル化してパーティションへ投入します
type IndexRunner struct {
	embedder Embedder
	manager  *vectorstore.Manager
	chunker  *vectorstore.Chunker
	ledger   *catalog.Ledger
	registry *catalog.Registry
	repo     catalog.Repository
	retry    retry.Policy
	logger   *slog.Logger
}

var _ Runner = (*IndexRunner)(nil)

// NewIndexRunner は新しいIndexRunnerを作成します
func NewIndexRunner(embedder Embedder, manager *vectorstore.Manager, chunker *vectorstore.Chunker, ledger *catalog.Ledger, registry *catalog.Registry, repo catalog.Repository, policy retry.Policy, logger *slog.Logger) *IndexRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &IndexRunner{
		embedder: embedder,
		manager:  manager,
		chunker:  chunker,
		ledger:   ledger,
		registry: registry,
		repo:     repo,
		retry:    policy,
		logger:   logger,
	}
}

func (r *IndexRunner) Phase() catalog.Phase {
	return catalog.PhaseIndex
}

func (r *IndexRunner) Run(ctx context.Context, item WorkItem) error {
	segments, fingerprint, err := r.sourceSegments(ctx, item.VideoID)
	if err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return err
	}

	if _, err := r.manager.EnsurePartition(ctx, item.ChannelID, r.chunker.Config()); err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return err
	}

	// 再インデックス時に古いチャンクが残らないよう、投入前に同一動画分を除去する
	if _, err := r.manager.RemoveVideo(ctx, item.ChannelID, item.VideoID); err != nil {
		markFailed(ctx, r.ledger, r.logger, item, err)
		return err
	}

	chunks := r.chunker.Split(item.ChannelID, item.VideoID, segments)
	if len(chunks) > 0 {
		texts := make([]string, len(chunks))
		for i, chunk := range chunks {
			texts[i] = chunk.Content
		}

		var vectors [][]float32
		err = r.retry.Do(ctx, IsTransient, func() error {
			v, err := r.embedder.Embed(ctx, texts)
			if err != nil {
				return err
			}
			vectors = v
			return nil
		})
		if err != nil {
			markFailed(ctx, r.ledger, r.logger, item, err)
			return fmt.Errorf("failed to embed chunks for video %s: %w", item.VideoID, err)
		}

		if err := r.manager.AddDocuments(ctx, item.ChannelID, chunks, vectors, r.embedder.Model()); err != nil {
			markFailed(ctx, r.ledger, r.logger, item, err)
			return err
		}
	}

	if err := r.ledger.MarkPhase(ctx, item.VideoID, catalog.PhaseIndex, catalog.StatusDone, fingerprint, ""); err != nil {
		return err
	}

	if err := r.registry.RefreshCounters(ctx, item.ChannelID); err != nil {
		r.logger.Error("チャンネルカウンタの更新に失敗しました",
			slog.String("channel_id", item.ChannelID),
			slog.String("error", err.Error()),
		)
	}

	r.logger.Info("動画をインデックスしました",
		slog.String("video_id", item.VideoID),
		slog.Int("chunks", len(chunks)),
	)
	return nil
}

// sourceSegments はインデックス対象のセグメント列と生字幕のフィンガープリントを返します。
// 補正フェーズは先行して完了しているはずなので、補正成果物がない場合は不整合としてエラーにします。
// 補正済み字幕が生字幕と同じ内容世代のときだけそれを使い、
// 古い場合（再補正しないポリシーで内容が変わった場合）は生字幕に切り替えます。
func (r *IndexRunner) sourceSegments(ctx context.Context, videoID string) ([]catalog.Segment, string, error) {
	transcriptOpt, err := r.repo.GetTranscript(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get transcript: %w", err)
	}
	transcript, ok := transcriptOpt.Get()
	if !ok {
		return nil, "", fmt.Errorf("no transcript available for video %s", videoID)
	}

	enhancedOpt, err := r.repo.GetEnhancedTranscript(ctx, videoID)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get enhanced transcript: %w", err)
	}
	enhanced, ok := enhancedOpt.Get()
	if !ok {
		return nil, "", fmt.Errorf("no enhanced transcript for video %s", videoID)
	}

	if enhanced.Fingerprint != transcript.Fingerprint {
		r.logger.Info("補正済み字幕が古いため生字幕をインデックスします",
			slog.String("video_id", videoID),
		)
		return transcript.Segments, transcript.Fingerprint, nil
	}
	return enhanced.Segments, transcript.Fingerprint, nil
}
