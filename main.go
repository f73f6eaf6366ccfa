package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"tiger/internal/app"
	"tiger/internal/config"
)

func main() {
	// 設定を読み込む（TIGER_CONFIG で設定ファイルを指定できる）
	cfg, err := config.Load(os.Getenv("TIGER_CONFIG"))
	if err != nil {
		log.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// SIGINT / SIGTERM で停止する
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// サーバーを起動
	if err := app.Run(ctx, cfg, os.Stderr); err != nil {
		stop()
		log.Fatalf("サーバーの起動に失敗しました: %v", err)
	}
}
