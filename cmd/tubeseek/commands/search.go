package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/jinford/tubeseek/internal/core/vectorstore"
)

// SearchAction はトピックを全文検索するコマンドのアクション
func SearchAction(ctx context.Context, cmd *cli.Command) error {
	envFile := cmd.String("env")
	channelID := cmd.String("channel")
	limit := cmd.Int("limit")
	asJSON := cmd.Bool("json")

	query := strings.TrimSpace(strings.Join(cmd.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("検索クエリを指定してください")
	}

	// 共通コンテキストの初期化
	appCtx, err := NewAppContext(ctx, envFile)
	if err != nil {
		return err
	}
	defer appCtx.Close()

	scope := vectorstore.ScopeAll()
	if channelID != "" {
		scope = vectorstore.ScopeChannel(channelID)
	}

	results, err := appCtx.Container.SearchService.Search(ctx, query, scope, limit)
	if err != nil {
		var noPartition *vectorstore.NoPartitionError
		if errors.As(err, &noPartition) {
			return fmt.Errorf("チャンネル %s にはインデックスがありません。先に取り込みを実行してください", channelID)
		}
		return fmt.Errorf("検索に失敗: %w", err)
	}

	if asJSON {
		data, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			return fmt.Errorf("JSONシリアライズに失敗: %w", err)
		}
		fmt.Fprintln(os.Stdout, string(data))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("該当する動画区間は見つかりませんでした")
		return nil
	}

	for i, result := range results {
		fmt.Printf("\n--- %d. %s (関連度 %d) ---\n", i+1, result.VideoTitle, result.Relevance)
		fmt.Printf("チャンネル: %s\n", result.ChannelName)
		fmt.Printf("再生位置:   %s\n", result.TimestampURL)
		if result.PublishedAt != nil {
			fmt.Printf("公開日:     %s\n", result.PublishedAt.Format("2006-01-02"))
		}
		if result.Summary != "" {
			fmt.Printf("要点:       %s\n", result.Summary)
		}
		fmt.Printf("本文:       %s\n", truncateString(result.Snippet, 200))
	}
	fmt.Println()

	return nil
}
