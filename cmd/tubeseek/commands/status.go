package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// StatusAction はチャンネル別の処理状況と全体集計を表示するコマンドのアクション
func StatusAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	statuses, err := appCtx.Container.Registry.Status(ctx)
	if err != nil {
		return fmt.Errorf("ステータスの取得に失敗: %w", err)
	}

	stats, err := appCtx.Container.Registry.Stats(ctx)
	if err != nil {
		return fmt.Errorf("集計の取得に失敗: %w", err)
	}

	if len(statuses) == 0 {
		fmt.Println("登録済みのチャンネルはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Channel", "Enabled", "Known", "Downloaded", "Enhanced", "Indexed")
	for _, status := range statuses {
		table.Append(
			truncateString(status.Channel.Name, 40),
			fmt.Sprintf("%t", status.Channel.Enabled),
			fmt.Sprintf("%d", status.Counts.Known),
			fmt.Sprintf("%d", status.Counts.Downloaded),
			fmt.Sprintf("%d", status.Counts.Enhanced),
			fmt.Sprintf("%d", status.Counts.Indexed),
		)
	}
	table.Render()

	fmt.Printf("\n=== 全体集計 ===\n")
	fmt.Printf("チャンネル数: %d (有効: %d / 無効: %d)\n",
		stats.TotalChannels, stats.EnabledChannels, stats.DisabledChannels)
	fmt.Printf("動画数:       %d\n", stats.TotalVideos)
	if stats.LastUpdated != nil {
		fmt.Printf("最終更新:     %s\n", stats.LastUpdated.Format(time.RFC3339))
	}

	return nil
}
