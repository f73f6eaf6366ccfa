// Package app は設定からサーバー一式を組み立てて起動します。
//
// 責務:
//   - ロガー、エラーページ、メトリクス、キャッシュの生成
//   - 静的ファイルサーバーと管理用サーバーの起動と停止
//   - 稼働時間の定期的なログ出力
package app

import (
	"context"
	"fmt"
	"io"
	"net"

	"golang.org/x/sync/errgroup"

	"tiger/internal/admin"
	"tiger/internal/config"
	"tiger/internal/errorpage"
	"tiger/internal/filecache"
	"tiger/internal/logging"
	"tiger/internal/metrics"
	"tiger/internal/resolver"
	"tiger/internal/server"
)

// App は起動済みのコンポーネントをまとめたもの
type App struct {
	cfg     *config.Config
	logger  logging.Logger
	metrics *metrics.Metrics
	cache   *filecache.Cache
	server  *server.Server
	admin   *admin.Server
}

// New は設定からコンポーネントを組み立て、ポートをバインドする。
// バインドに失敗した場合は何も受け付けずにエラーを返す。
func New(ctx context.Context, cfg *config.Config, out io.Writer) (*App, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}
	logging.Banner(out, cfg.Version, level)
	logger := logging.New(out, level)

	root, err := resolver.Canonicalize(cfg.Server.RootFolder)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.New(),
	}

	opts := []server.HandlerOption{
		server.WithMetrics(a.metrics),
		server.WithStrictNotFound(cfg.Server.StrictNotFound),
		server.WithSymlinkCheck(cfg.Server.RejectSymlinkEscape),
		server.WithReadTimeout(cfg.Server.ReadTimeout.Std()),
	}
	if cfg.Cache.Enabled {
		cache, err := filecache.New(root, cfg.Cache.MaxEntries, cfg.Cache.MaxFileSize, logger.With("component", "cache"))
		if err != nil {
			return nil, err
		}
		a.cache = cache
		opts = append(opts, server.WithFileLoader(cache))
	}

	pages := errorpage.New(cfg.Version, cfg.Server.PageHost, cfg.Server.Port)
	handler := server.NewHandler(root, pages, logger, opts...)

	a.server, err = server.New(cfg.ServerAddress(), cfg.Server.Workers, handler, logger, a.metrics)
	if err != nil {
		a.close()
		return nil, err
	}
	if err := a.server.Listen(ctx); err != nil {
		a.close()
		return nil, err
	}

	if cfg.Admin.Enabled {
		// nil の *filecache.Cache をインターフェースに入れない
		var cacheSource admin.CacheSource
		if a.cache != nil {
			cacheSource = a.cache
		}
		info := admin.Info{Version: cfg.Version, RootFolder: root}
		a.admin = admin.New(cfg.AdminAddress(), info, a.server, cacheSource, a.metrics, logger.With("component", "admin"))
	}

	logger.Info("ルートフォルダを公開します", "root", root, "strict_not_found", cfg.Server.StrictNotFound, "cache", cfg.Cache.Enabled)
	return a, nil
}

// Run は ctx が終了するまでサーバーを動かす。
// いずれかのコンポーネントが失敗した場合は残りも停止してそのエラーを返す。
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.server.Serve(gctx)
	})

	if a.admin != nil {
		g.Go(func() error {
			return a.admin.Start(gctx)
		})
	}

	g.Go(func() error {
		return logging.ReportUptime(gctx, a.logger, a.cfg.Log.RuntimeInterval.Std())
	})

	if err := g.Wait(); err != nil {
		a.logger.Severe("サーバーが異常終了しました", "error", err)
		return err
	}
	return nil
}

// Addr は静的ファイルサーバーのアドレスを返す
func (a *App) Addr() net.Addr {
	return a.server.Addr()
}

// AdminAddr は管理用サーバーのアドレスを返す。無効な場合や起動前は nil。
func (a *App) AdminAddr() net.Addr {
	if a.admin == nil {
		return nil
	}
	return a.admin.Addr()
}

// Run は設定からサーバーを組み立て、ctx が終了するまで動かす
func Run(ctx context.Context, cfg *config.Config, out io.Writer) error {
	a, err := New(ctx, cfg, out)
	if err != nil {
		return fmt.Errorf("サーバーの起動に失敗: %w", err)
	}
	return a.Run(ctx)
}

func (a *App) close() {
	if a.cache == nil {
		return
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warning("ファイル監視の停止に失敗しました", "error", err)
	}
}
