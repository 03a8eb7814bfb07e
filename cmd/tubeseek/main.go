package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jinford/tubeseek/cmd/tubeseek/commands"
	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 構造化ログの設定
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	app := &cli.Command{
		Name:  "tubeseek",
		Usage: "YouTubeチャンネルの字幕を取り込み、トピックで横断検索するツール",
		Commands: []*cli.Command{
			{
				Name:      "ingest",
				Usage:     "チャンネルまたは動画のURLを取り込み",
				ArgsUsage: "[URL ...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "処理済みの動画も強制的に再処理",
					},
					&cli.BoolFlag{
						Name:  "all-channels",
						Usage: "登録済みの有効チャンネルすべてを取り込み",
					},
				},
				Action: commands.IngestAction,
			},
			{
				Name:      "plan",
				Usage:     "取り込み計画を表示（実行はしない）",
				ArgsUsage: "[URL ...]",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "強制再処理を前提に計画",
					},
					&cli.BoolFlag{
						Name:  "all-channels",
						Usage: "登録済みの有効チャンネルすべてを対象に計画",
					},
				},
				Action: commands.PlanAction,
			},
			{
				Name:      "search",
				Usage:     "取り込み済みの動画をトピックで検索",
				ArgsUsage: "QUERY",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
					&cli.StringFlag{
						Name:  "channel",
						Usage: "検索対象をチャンネルIDで絞り込み",
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "検索結果の最大件数",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "JSON形式で出力",
					},
				},
				Action: commands.SearchAction,
			},
			{
				Name:  "channel",
				Usage: "チャンネル管理コマンド",
				Commands: []*cli.Command{
					{
						Name:  "list",
						Usage: "登録済みチャンネル一覧を表示",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.BoolFlag{
								Name:  "enabled-only",
								Usage: "有効なチャンネルのみ表示",
							},
						},
						Action: commands.ChannelListAction,
					},
					{
						Name:  "enable",
						Usage: "チャンネルを検索・取り込み対象に戻す",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "チャンネルID",
								Required: true,
							},
						},
						Action: commands.ChannelEnableAction,
					},
					{
						Name:  "disable",
						Usage: "チャンネルを検索・取り込み対象から外す",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "チャンネルID",
								Required: true,
							},
						},
						Action: commands.ChannelDisableAction,
					},
					{
						Name:  "remove",
						Usage: "チャンネルを登録から削除",
						Flags: []cli.Flag{
							&cli.StringFlag{
								Name:  "env",
								Usage: "環境変数ファイルパス",
								Value: ".env",
							},
							&cli.StringFlag{
								Name:     "id",
								Usage:    "チャンネルID",
								Required: true,
							},
							&cli.BoolFlag{
								Name:  "purge",
								Usage: "台帳エントリとベクトルインデックスも破棄",
							},
						},
						Action: commands.ChannelRemoveAction,
					},
				},
			},
			{
				Name:  "status",
				Usage: "チャンネル別の処理状況と全体集計を表示",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "env",
						Usage: "環境変数ファイルパス",
						Value: ".env",
					},
				},
				Action: commands.StatusAction,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
