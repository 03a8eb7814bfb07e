package catalog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
)

// RefreshPolicy はフィンガープリント変化時の再処理範囲を表します
type RefreshPolicy string

const (
	// RefreshReindexOnly はインデックスのみ再構築します
	RefreshReindexOnly RefreshPolicy = "reindex"
	// RefreshReenhance は補正とインデックスの両方をやり直します
	RefreshReenhance RefreshPolicy = "reenhance"
)

// Ledger は動画のフェーズ別処理状態を管理する台帳です。
// VideoItemを作成・変更するのはこのサービスだけです。
type Ledger struct {
	repo   Repository
	policy RefreshPolicy
	logger *slog.Logger
}

// NewLedger は新しいLedgerを作成します
func NewLedger(repo Repository, policy RefreshPolicy, logger *slog.Logger) *Ledger {
	if policy == "" {
		policy = RefreshReindexOnly
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Ledger{repo: repo, policy: policy, logger: logger}
}

// RecordDiscovered は発見した動画を台帳に記録します。既知の動画には何もしません。
func (l *Ledger) RecordDiscovered(ctx context.Context, video *Video) (*Video, error) {
	if video.ID == "" {
		return nil, fmt.Errorf("video id is required")
	}
	if video.ChannelID == "" {
		return nil, fmt.Errorf("video %s has no owning channel", video.ID)
	}

	recorded, err := l.repo.CreateVideoIfNotExists(ctx, video)
	if err != nil {
		return nil, fmt.Errorf("failed to record video: %w", err)
	}
	return recorded, nil
}

// GetStatus は動画のフェーズ別状態を返します
func (l *Ledger) GetStatus(ctx context.Context, videoID string) (PhaseMap, error) {
	states, err := l.repo.GetPhaseStates(ctx, videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to get phase states: %w", err)
	}
	return states, nil
}

// MarkPhase はフェーズの実行結果を記録します。
// FAILEDは以後の再試行を妨げず、最終試行時刻と理由の記録のみを行います。
func (l *Ledger) MarkPhase(ctx context.Context, videoID string, phase Phase, status PhaseStatus, fingerprint string, failureReason string) error {
	now := time.Now()
	state := PhaseState{
		Status:      status,
		LastAttempt: &now,
	}

	switch status {
	case StatusDone:
		state.Fingerprint = fingerprint
	case StatusFailed:
		if failureReason != "" {
			state.FailureReason = &failureReason
		}
	default:
		return fmt.Errorf("invalid phase outcome: %s", status)
	}

	if err := l.repo.UpsertPhaseState(ctx, videoID, phase, state); err != nil {
		return fmt.Errorf("failed to mark phase: %w", err)
	}

	// downloadの成功は動画の内容フィンガープリントを確定させる
	if phase == PhaseDownload && status == StatusDone && fingerprint != "" {
		if err := l.repo.SetVideoFingerprint(ctx, videoID, fingerprint); err != nil {
			return fmt.Errorf("failed to set video fingerprint: %w", err)
		}
	}

	l.logger.Debug("フェーズ結果を記録しました",
		"videoID", videoID,
		"phase", phase,
		"status", status,
	)
	return nil
}

// NeedsPhase は増分処理の判定規則を適用します。
// フェーズが必要なのは、(a) DONEでない、(b) DONEだが内容フィンガープリントが
// 前回成功時から変化した（ポリシーに従う）、(c) 強制再処理が指定された、のいずれかです。
func (l *Ledger) NeedsPhase(ctx context.Context, videoID string, phase Phase, force bool) (bool, error) {
	videoOpt, err := l.repo.GetVideo(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("failed to get video: %w", err)
	}
	video, ok := videoOpt.Get()
	if !ok {
		return false, fmt.Errorf("video not found: %s", videoID)
	}

	states, err := l.repo.GetPhaseStates(ctx, videoID)
	if err != nil {
		return false, fmt.Errorf("failed to get phase states: %w", err)
	}

	return NeedsPhase(video, states, phase, force, l.policy), nil
}

// NeedsPhase は増分処理規則の純粋判定です。
// 重複インデックス回避はこの判定だけに依存します。
func NeedsPhase(video *Video, states PhaseMap, phase Phase, force bool, policy RefreshPolicy) bool {
	if force {
		return true
	}

	state := states.Get(phase)
	if state.Status != StatusDone {
		return true
	}

	// 成功済みでも、消費した内容が現在のフィンガープリントと異なれば出力は陳腐化している
	if video.Fingerprint != "" && state.Fingerprint != video.Fingerprint {
		switch phase {
		case PhaseDownload:
			// downloadの成功がフィンガープリントを定義するため、ここでの不一致は再取得を意味する
			return true
		case PhaseEnhance:
			return policy == RefreshReenhance
		case PhaseIndex:
			return true
		}
	}

	return false
}

// UpstreamReady はフェーズの依存条件（上流フェーズのDONE）を判定します
func UpstreamReady(states PhaseMap, phase Phase) bool {
	upstream, ok := phase.Upstream()
	if !ok {
		return true
	}
	return states.Get(upstream).Status == StatusDone
}

// Fingerprint はトランスクリプト内容からフィンガープリントを導出します
func Fingerprint(segments []Segment) string {
	h := sha256.New()
	for _, seg := range segments {
		fmt.Fprintf(h, "%.2f|%.2f|%s\n", seg.StartSeconds, seg.EndSeconds, seg.Text)
	}
	return hex.EncodeToString(h.Sum(nil))
}
