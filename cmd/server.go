// Package main は tiger サーバーコマンドの実装です
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tiger/internal/app"
	"tiger/internal/config"
)

func main() {
	// コマンドラインオプション
	var (
		configPath = flag.String("config", "", "設定ファイル (.yaml / .yml / .toml)")
		host       = flag.String("host", "", "サーバーのホスト (デフォルト: 0.0.0.0)")
		port       = flag.Int("port", -1, "サーバーのポート (デフォルト: 8080)")
		root       = flag.String("root", "", "配信するルートフォルダ (デフォルト: www)")
		workers    = flag.Int("workers", 0, "ワーカー数 (デフォルト: 10)")
		logLevel   = flag.String("log-level", "", "ログレベル info / warning / severe")
		strict     = flag.Bool("strict-not-found", false, "ファイルが見つからないときに404のステータスラインを返す")
		symlinks   = flag.Bool("reject-symlink-escape", false, "ルート外を指すシンボリックリンクを403にする")
		admin      = flag.Bool("admin", false, "管理用サーバーを有効にする")
		help       = flag.Bool("help", false, "ヘルプを表示")
	)

	flag.Parse()

	// ヘルプ表示
	if *help {
		fmt.Println("tiger - 静的ファイルサーバー")
		fmt.Println()
		fmt.Println("使用方法:")
		fmt.Println("  server [オプション]")
		fmt.Println()
		fmt.Println("オプション:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	// 設定を読み込む
	cfg, err := config.LoadUnvalidated(*configPath)
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// コマンドラインオプションで設定を上書き
	if *host != "" {
		cfg.Server.Host = *host
	}
	if *port >= 0 {
		cfg.Server.Port = *port
	}
	if *root != "" {
		cfg.Server.RootFolder = *root
	}
	if *workers != 0 {
		cfg.Server.Workers = *workers
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *strict {
		cfg.Server.StrictNotFound = true
	}
	if *symlinks {
		cfg.Server.RejectSymlinkEscape = true
	}
	if *admin {
		cfg.Admin.Enabled = true
	}

	// 上書き後の設定を検証する
	if err := cfg.Validate(); err != nil {
		log.Fatalf("設定が不正です: %v", err)
	}

	// SIGINT / SIGTERM で停止する
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// サーバーを起動
	log.Printf("tiger サーバーを起動します: %s", cfg.ServerAddress())
	if err := app.Run(ctx, cfg, os.Stderr); err != nil {
		stop()
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
