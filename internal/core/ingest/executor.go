package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jinford/tubeseek/internal/core/catalog"
	"github.com/jinford/tubeseek/internal/core/classify"
)

// ItemStatus は作業項目の実行結果を表します
type ItemStatus string

const (
	ItemSucceeded ItemStatus = "succeeded"
	ItemFailed    ItemStatus = "failed"
	ItemSkipped   ItemStatus = "skipped"
)

// ItemResult は1作業項目の実行結果です
type ItemResult struct {
	Item   WorkItem
	Status ItemStatus
	Err    error
}

// Report は1回の取り込みバッチの実行報告です
type Report struct {
	Mode      classify.RunMode
	Warnings  []classify.URLWarning
	Planned   int
	Succeeded int
	Failed    int
	Skipped   int
	Results   []ItemResult
}

// Executor は実行計画をフェーズの依存順に処理します。
// フェーズ間は厳密に直列、フェーズ内は有界のワーカープールで並行実行します。
// 1項目の失敗はバッチ全体を中断せず、同一動画の下流フェーズのみをスキップさせます。
type Executor struct {
	runners map[catalog.Phase]Runner
	ledger  *catalog.Ledger
	workers int
	logger  *slog.Logger
}

// NewExecutor は新しいExecutorを作成します
func NewExecutor(ledger *catalog.Ledger, workers int, logger *slog.Logger, runners ...Runner) *Executor {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	byPhase := make(map[catalog.Phase]Runner, len(runners))
	for _, runner := range runners {
		byPhase[runner.Phase()] = runner
	}
	return &Executor{
		runners: byPhase,
		ledger:  ledger,
		workers: workers,
		logger:  logger,
	}
}

// Execute は計画を実行し、項目ごとの結果を集約した報告を返します。
// コンテキストの取り消し時は、処理済み分の報告とともに取り消しエラーを返します。
func (e *Executor) Execute(ctx context.Context, plan *Plan) (*Report, error) {
	report := &Report{
		Mode:     plan.Mode,
		Warnings: plan.Warnings,
		Planned:  len(plan.Items),
	}

	byPhase := make(map[catalog.Phase][]WorkItem)
	for _, item := range plan.Items {
		byPhase[item.Phase] = append(byPhase[item.Phase], item)
	}

	// 同一バッチで上流フェーズが失敗した動画。下流フェーズはスキップする。
	blocked := make(map[string]struct{})

	for _, phase := range catalog.Phases {
		items := byPhase[phase]
		if len(items) == 0 {
			continue
		}
		runner, ok := e.runners[phase]
		if !ok {
			return report, fmt.Errorf("no runner registered for phase %s", phase)
		}

		results := e.runPhase(ctx, runner, items, blocked)
		for _, res := range results {
			report.Results = append(report.Results, res)
			switch res.Status {
			case ItemSucceeded:
				report.Succeeded++
			case ItemFailed:
				report.Failed++
				blocked[res.Item.VideoID] = struct{}{}
			case ItemSkipped:
				report.Skipped++
			}
		}

		if err := ctx.Err(); err != nil {
			return report, err
		}
	}
	return report, nil
}

// runPhase は1フェーズ分の項目をワーカープールで処理します
func (e *Executor) runPhase(ctx context.Context, runner Runner, items []WorkItem, blocked map[string]struct{}) []ItemResult {
	jobs := make(chan WorkItem)
	var (
		mu      sync.Mutex
		results []ItemResult
		wg      sync.WaitGroup
	)

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				res := e.runItem(ctx, runner, item, blocked)
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}()
	}

	for _, item := range items {
		select {
		case jobs <- item:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()
	return results
}

func (e *Executor) runItem(ctx context.Context, runner Runner, item WorkItem, blocked map[string]struct{}) ItemResult {
	if err := ctx.Err(); err != nil {
		return ItemResult{Item: item, Status: ItemSkipped, Err: err}
	}

	if _, ok := blocked[item.VideoID]; ok {
		e.logger.Warn("上流フェーズの失敗により項目をスキップします",
			slog.String("video_id", item.VideoID),
			slog.String("phase", string(item.Phase)),
		)
		return ItemResult{Item: item, Status: ItemSkipped}
	}

	// 投機的に計画された項目は、上流の実行結果を見て判定をやり直す
	if item.Recheck {
		needed, err := e.ledger.NeedsPhase(ctx, item.VideoID, item.Phase, false)
		if err != nil {
			return ItemResult{Item: item, Status: ItemFailed, Err: err}
		}
		if !needed {
			return ItemResult{Item: item, Status: ItemSkipped}
		}
	}

	if err := runner.Run(ctx, item); err != nil {
		e.logger.Error("作業項目が失敗しました",
			slog.String("video_id", item.VideoID),
			slog.String("phase", string(item.Phase)),
			slog.String("error", err.Error()),
		)
		return ItemResult{Item: item, Status: ItemFailed, Err: err}
	}
	return ItemResult{Item: item, Status: ItemSucceeded}
}
