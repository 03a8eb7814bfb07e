package commands

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"

	"github.com/jinford/tubeseek/internal/core/classify"
	"github.com/jinford/tubeseek/internal/core/ingest"
)

// IngestAction はURL群またはすべての登録チャンネルを取り込むコマンドのアクション
func IngestAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	force := cmd.Bool("force")
	allChannels := cmd.Bool("all-channels")
	urls := cmd.Args().Slice()

	if allChannels && len(urls) > 0 {
		return fmt.Errorf("--all-channels とURL引数は同時に指定できません")
	}
	if !allChannels && len(urls) == 0 {
		return fmt.Errorf("取り込むURLを指定するか --all-channels を使用してください")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	var report *ingest.Report
	if allChannels {
		report, err = appCtx.Container.IngestService.IngestAll(ctx, force)
	} else {
		report, err = appCtx.Container.IngestService.Ingest(ctx, urls, force)
	}
	if report != nil {
		renderReport(report)
	}
	if err != nil {
		var mixed *classify.MixedModeError
		if errors.As(err, &mixed) {
			return fmt.Errorf("チャンネルURLと動画URLは同一バッチで混在できません: %w", err)
		}
		return fmt.Errorf("取り込みに失敗: %w", err)
	}

	return nil
}

// PlanAction は作業を実行せずに取り込み計画を表示するコマンドのアクション
func PlanAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	force := cmd.Bool("force")
	allChannels := cmd.Bool("all-channels")
	urls := cmd.Args().Slice()

	if allChannels && len(urls) > 0 {
		return fmt.Errorf("--all-channels とURL引数は同時に指定できません")
	}
	if !allChannels && len(urls) == 0 {
		return fmt.Errorf("計画するURLを指定するか --all-channels を使用してください")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	var plan *ingest.Plan
	if allChannels {
		plan, err = appCtx.Container.IngestService.DryRunAll(ctx, force)
	} else {
		plan, err = appCtx.Container.IngestService.DryRun(ctx, urls, force)
	}
	if err != nil {
		return fmt.Errorf("計画の作成に失敗: %w", err)
	}

	renderWarnings(plan.Warnings)

	if len(plan.Items) == 0 {
		fmt.Println("実行すべき作業はありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Video ID", "Channel ID", "Phase", "Reason")
	for _, item := range plan.Items {
		table.Append(item.VideoID, item.ChannelID, string(item.Phase), string(item.Reason))
	}
	table.Render()

	fmt.Printf("\n対象動画: %d件  計画済み作業: %d件  スキップ: %d件\n",
		plan.Candidates, len(plan.Items), plan.Skipped)

	return nil
}

// renderReport は取り込みバッチの実行報告を表示します
func renderReport(report *ingest.Report) {
	renderWarnings(report.Warnings)

	for _, result := range report.Results {
		if result.Status != ingest.ItemFailed || result.Err == nil {
			continue
		}
		fmt.Printf("失敗: %s [%s] %v\n", result.Item.VideoID, result.Item.Phase, result.Err)
	}

	fmt.Printf("\n=== 取り込み結果 ===\n")
	fmt.Printf("計画済み: %d件\n", report.Planned)
	fmt.Printf("成功:     %d件\n", report.Succeeded)
	fmt.Printf("失敗:     %d件\n", report.Failed)
	fmt.Printf("スキップ: %d件\n", report.Skipped)
}

// renderWarnings は除外されたURLの警告を表示します
func renderWarnings(warnings []classify.URLWarning) {
	for _, w := range warnings {
		fmt.Printf("警告: %s: %v\n", w.URL, w.Err)
	}
}
