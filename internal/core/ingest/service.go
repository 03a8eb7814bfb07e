package ingest

import (
	"context"
	"log/slog"
)

// Service はURL群の取り込みを最初から最後まで実行します
type Service struct {
	planner  *Planner
	executor *Executor
	logger   *slog.Logger
}

// NewService は新しいServiceを作成します
func NewService(planner *Planner, executor *Executor, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{planner: planner, executor: executor, logger: logger}
}

// Ingest はURL群を分類・発見・計画し、計画された作業を実行します
func (s *Service) Ingest(ctx context.Context, urls []string, force bool) (*Report, error) {
	plan, err := s.planner.Plan(ctx, urls, force)
	if err != nil {
		return nil, err
	}

	report, err := s.executor.Execute(ctx, plan)
	if report != nil {
		s.logger.Info("取り込みバッチが完了しました",
			slog.String("mode", string(report.Mode)),
			slog.Int("planned", report.Planned),
			slog.Int("succeeded", report.Succeeded),
			slog.Int("failed", report.Failed),
			slog.Int("skipped", report.Skipped),
		)
	}
	return report, err
}

// IngestAll は登録済みの有効チャンネルすべてを対象に取り込みを実行します
func (s *Service) IngestAll(ctx context.Context, force bool) (*Report, error) {
	urls, err := s.planner.EnabledChannelURLs(ctx)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		s.logger.Info("有効なチャンネルが登録されていません")
		return &Report{}, nil
	}
	return s.Ingest(ctx, urls, force)
}

// DryRun は作業を実行せずに計画のみを返します
func (s *Service) DryRun(ctx context.Context, urls []string, force bool) (*Plan, error) {
	return s.planner.Plan(ctx, urls, force)
}

// DryRunAll は登録済みの有効チャンネルすべてを対象に計画のみを返します
func (s *Service) DryRunAll(ctx context.Context, force bool) (*Plan, error) {
	urls, err := s.planner.EnabledChannelURLs(ctx)
	if err != nil {
		return nil, err
	}
	if len(urls) == 0 {
		return &Plan{}, nil
	}
	return s.planner.Plan(ctx, urls, force)
}
