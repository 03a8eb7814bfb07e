package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/classify"
)

// PlanReason は作業項目が計画された理由を表します
type PlanReason string

const (
	// ReasonNotStarted はフェーズが未実行であることを表します
	ReasonNotStarted PlanReason = "not_started"
	// ReasonRetryFailed は前回失敗したフェーズの再試行を表します
	ReasonRetryFailed PlanReason = "retry_failed"
	// ReasonStale は内容フィンガープリントの変化による再処理を表します
	ReasonStale PlanReason = "stale"
	// ReasonForced は強制再処理を表します
	ReasonForced PlanReason = "forced"
	// ReasonUpstreamRefresh は同一バッチ内で上流フェーズが再実行されるため、
	// 実行直前の再判定を条件に投機的に計画されたことを表します
	ReasonUpstreamRefresh PlanReason = "upstream_refresh"
)

// WorkItem は1動画×1フェーズの作業単位です
type WorkItem struct {
	VideoID   string
	ChannelID string
	Phase     catalog.Phase
	Reason    PlanReason
	// Recheck が真の項目は、実行直前に増分判定をやり直し、
	// 不要と判定されればスキップされます。
	Recheck bool
}

// Plan は1回の取り込みバッチの実行計画です
type Plan struct {
	Mode       classify.RunMode
	Warnings   []classify.URLWarning
	Items      []WorkItem
	VideoIDs   []string
	Candidates int
	Skipped    int
}

// Planner は入力URL群から増分判定済みの実行計画を作成します。
// 計画はフェーズの依存順を保ち、処理済みの作業を重複して含めません。
type Planner struct {
	registry *catalog.Registry
	ledger   *catalog.Ledger
	fetcher  Fetcher
	filter   DateFilter
	policy   catalog.RefreshPolicy
	logger   *slog.Logger
}

// NewPlanner は新しいPlannerを作成します
func NewPlanner(registry *catalog.Registry, ledger *catalog.Ledger, fetcher Fetcher, filter DateFilter, policy catalog.RefreshPolicy, logger *slog.Logger) *Planner {
	if policy == "" {
		policy = catalog.RefreshReindexOnly
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		registry: registry,
		ledger:   ledger,
		fetcher:  fetcher,
		filter:   filter,
		policy:   policy,
		logger:   logger,
	}
}

// EnabledChannelURLs は登録済みで有効なチャンネルのURL一覧を返します。
// 登録時のURL形式（ハンドルやカスタムURLを含む）をそのまま使います。
func (p *Planner) EnabledChannelURLs(ctx context.Context) ([]string, error) {
	channels, err := p.registry.List(ctx, true)
	if err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(channels))
	for _, ch := range channels {
		url := ch.URL
		if url == "" {
			url = "https://www.youtube.com/channel/" + ch.ID
		}
		urls = append(urls, url)
	}
	return urls, nil
}

// Plan はURL群を分類し、対象動画を発見・台帳記録したうえで実行計画を作成します。
// 個々のURLやチャンネルの失敗は警告として報告し、バッチ全体は中断しません。
func (p *Planner) Plan(ctx context.Context, urls []string, force bool) (*Plan, error) {
	batch, err := classify.ClassifyBatch(urls)
	if err != nil {
		return nil, err
	}

	plan := &Plan{
		Mode:     batch.Mode,
		Warnings: batch.Warnings,
	}

	videos, err := p.discover(ctx, batch, plan)
	if err != nil {
		return nil, err
	}
	plan.Candidates = len(videos)

	for _, video := range videos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.planVideo(ctx, video, force, plan); err != nil {
			return nil, err
		}
	}

	p.logger.Info("取り込み計画を作成しました",
		slog.String("mode", string(plan.Mode)),
		slog.Int("candidates", plan.Candidates),
		slog.Int("items", len(plan.Items)),
		slog.Int("skipped", plan.Skipped),
		slog.Int("warnings", len(plan.Warnings)),
	)
	return plan, nil
}

// discover は参照ごとに対象動画を解決し、台帳へ記録します
func (p *Planner) discover(ctx context.Context, batch *classify.Batch, plan *Plan) ([]*catalog.Video, error) {
	var videos []*catalog.Video
	seen := make(map[string]struct{})

	record := func(meta *VideoMeta) error {
		if _, ok := seen[meta.ID]; ok {
			return nil
		}
		seen[meta.ID] = struct{}{}

		video, err := p.ledger.RecordDiscovered(ctx, &catalog.Video{
			ID:          meta.ID,
			ChannelID:   meta.ChannelID,
			URL:         meta.URL,
			Title:       meta.Title,
			PublishedAt: meta.PublishedAt,
		})
		if err != nil {
			return err
		}
		videos = append(videos, video)
		plan.VideoIDs = append(plan.VideoIDs, video.ID)
		return nil
	}

	for _, ref := range batch.References {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch ref.Kind {
		case classify.KindChannel:
			if err := p.discoverChannel(ctx, ref, plan, record); err != nil {
				return nil, err
			}
		case classify.KindVideo:
			if err := p.discoverVideo(ctx, ref, plan, record); err != nil {
				return nil, err
			}
		}
	}
	return videos, nil
}

func (p *Planner) discoverChannel(ctx context.Context, ref classify.Reference, plan *Plan, record func(*VideoMeta) error) error {
	meta, err := p.fetcher.LookupChannel(ctx, ref.CanonicalURL())
	if err != nil {
		plan.Warnings = append(plan.Warnings, classify.URLWarning{
			URL: ref.Raw,
			Err: fmt.Errorf("failed to look up channel: %w", err),
		})
		return nil
	}

	channel, err := p.registry.AutoRegister(ctx, meta.ID, meta.URL, meta.Name)
	if err != nil {
		return err
	}
	if !channel.Enabled {
		p.logger.Warn("無効化されたチャンネルをスキップします", slog.String("channel_id", channel.ID))
		return nil
	}

	listURL := meta.URL
	if listURL == "" {
		listURL = ref.CanonicalURL()
	}
	metas, err := p.fetcher.ListChannelVideos(ctx, listURL, p.filter)
	if err != nil {
		plan.Warnings = append(plan.Warnings, classify.URLWarning{
			URL: ref.Raw,
			Err: fmt.Errorf("failed to list channel videos: %w", err),
		})
		return nil
	}
	for _, vm := range metas {
		if vm.ChannelID == "" {
			vm.ChannelID = meta.ID
		}
		if err := record(vm); err != nil {
			return err
		}
	}
	return nil
}

func (p *Planner) discoverVideo(ctx context.Context, ref classify.Reference, plan *Plan, record func(*VideoMeta) error) error {
	meta, err := p.fetcher.LookupVideo(ctx, ref.ID)
	if err != nil {
		plan.Warnings = append(plan.Warnings, classify.URLWarning{
			URL: ref.Raw,
			Err: fmt.Errorf("failed to look up video: %w", err),
		})
		return nil
	}

	channel, err := p.registry.AutoRegister(ctx, meta.ChannelID, meta.ChannelURL, meta.ChannelName)
	if err != nil {
		return err
	}
	if !channel.Enabled {
		p.logger.Warn("無効化されたチャンネルの動画をスキップします",
			slog.String("channel_id", channel.ID),
			slog.String("video_id", meta.ID),
		)
		return nil
	}

	// 動画URLの明示指定は公開日フィルタの対象外
	return record(meta)
}

// planVideo は1動画分の作業項目を依存順に積み上げます
func (p *Planner) planVideo(ctx context.Context, video *catalog.Video, force bool, plan *Plan) error {
	states, err := p.ledger.GetStatus(ctx, video.ID)
	if err != nil {
		return err
	}

	earlierPlanned := false
	for _, phase := range catalog.Phases {
		state := states.Get(phase)
		item := WorkItem{
			VideoID:   video.ID,
			ChannelID: video.ChannelID,
			Phase:     phase,
		}

		if catalog.NeedsPhase(video, states, phase, force, p.policy) {
			item.Reason = planReason(state, force)
			plan.Items = append(plan.Items, item)
			earlierPlanned = true
			continue
		}

		// 上流が同一バッチで再実行されるなら、出力が陳腐化する可能性がある。
		// 補正フェーズの投機計画は再補正ポリシーの場合のみ。
		speculative := earlierPlanned &&
			(phase != catalog.PhaseEnhance || p.policy == catalog.RefreshReenhance)
		if speculative {
			item.Reason = ReasonUpstreamRefresh
			item.Recheck = true
			plan.Items = append(plan.Items, item)
			continue
		}

		plan.Skipped++
	}
	return nil
}

func planReason(state catalog.PhaseState, force bool) PlanReason {
	if force {
		return ReasonForced
	}
	switch state.Status {
	case catalog.StatusNotStarted:
		return ReasonNotStarted
	case catalog.StatusFailed:
		return ReasonRetryFailed
	}
	return ReasonStale
}
