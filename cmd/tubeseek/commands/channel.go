package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v3"
)

// ChannelListAction は登録済みチャンネル一覧を表示するコマンドのアクション
func ChannelListAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	enabledOnly := cmd.Bool("enabled-only")

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	channels, err := appCtx.Container.Registry.List(ctx, enabledOnly)
	if err != nil {
		return fmt.Errorf("チャンネル一覧の取得に失敗: %w", err)
	}

	if len(channels) == 0 {
		fmt.Println("登録済みのチャンネルはありません")
		return nil
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Channel ID", "Name", "Enabled", "Known", "Indexed", "Updated At")
	for _, channel := range channels {
		table.Append(
			channel.ID,
			truncateString(channel.Name, 40),
			fmt.Sprintf("%t", channel.Enabled),
			fmt.Sprintf("%d", channel.VideosKnown),
			fmt.Sprintf("%d", channel.VideosIndexed),
			channel.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()

	return nil
}

// ChannelEnableAction はチャンネルを検索・取り込み対象に戻すコマンドのアクション
func ChannelEnableAction(ctx context.Context, cmd *cli.Command) error {
	return setChannelEnabled(ctx, cmd, true)
}

// ChannelDisableAction はチャンネルを検索・取り込み対象から外すコマンドのアクション
func ChannelDisableAction(ctx context.Context, cmd *cli.Command) error {
	return setChannelEnabled(ctx, cmd, false)
}

func setChannelEnabled(ctx context.Context, cmd *cli.Command, enabled bool) error {
	envFile := cmd.String("env")
	channelID := cmd.String("id")

	if channelID == "" {
		return fmt.Errorf("--id は必須です")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	existing, err := appCtx.Container.Registry.Get(ctx, channelID)
	if err != nil {
		return fmt.Errorf("チャンネルの取得に失敗: %w", err)
	}
	if existing.IsAbsent() {
		return fmt.Errorf("チャンネル %s は登録されていません", channelID)
	}

	if err := appCtx.Container.Registry.SetEnabled(ctx, channelID, enabled); err != nil {
		return fmt.Errorf("チャンネルの状態変更に失敗: %w", err)
	}

	if enabled {
		fmt.Printf("✓ チャンネル %s を有効化しました\n", channelID)
	} else {
		fmt.Printf("✓ チャンネル %s を無効化しました\n", channelID)
	}

	return nil
}

// ChannelRemoveAction はチャンネルを登録から削除するコマンドのアクション
func ChannelRemoveAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	channelID := cmd.String("id")
	purge := cmd.Bool("purge")

	if channelID == "" {
		return fmt.Errorf("--id は必須です")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	existing, err := appCtx.Container.Registry.Get(ctx, channelID)
	if err != nil {
		return fmt.Errorf("チャンネルの取得に失敗: %w", err)
	}
	if existing.IsAbsent() {
		return fmt.Errorf("チャンネル %s は登録されていません", channelID)
	}

	// パーティションの破棄はレコード削除より先に行う
	if purge {
		if err := appCtx.Container.VectorManager.DropPartition(ctx, channelID); err != nil {
			return fmt.Errorf("ベクトルパーティションの破棄に失敗: %w", err)
		}
	}

	if err := appCtx.Container.Registry.Remove(ctx, channelID, purge); err != nil {
		return fmt.Errorf("チャンネルの削除に失敗: %w", err)
	}

	if purge {
		fmt.Printf("✓ チャンネル %s を削除し、台帳とインデックスを破棄しました\n", channelID)
	} else {
		fmt.Printf("✓ チャンネル %s を削除しました\n", channelID)
	}

	return nil
}
