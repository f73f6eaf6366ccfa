package admin

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"tiger/internal/filecache"
	"tiger/internal/logging"
	"tiger/internal/metrics"
	"tiger/internal/server"
)

// shutdownTimeout はグレースフルシャットダウンの待ち時間
const shutdownTimeout = 5 * time.Second

// StatusSource は静的ファイルサーバーの状態を提供する
type StatusSource interface {
	Snapshot() server.Snapshot
}

// CacheSource はファイルキャッシュの状態を提供する
type CacheSource interface {
	Stats() filecache.Stats
}

// Info は /api/status に載せる固定の情報
type Info struct {
	Version    string
	RootFolder string
}

// Server は管理用HTTPサーバー
type Server struct {
	addr   string
	info   Info
	source StatusSource
	cache  CacheSource
	logger logging.Logger

	router     *gin.Engine
	httpServer *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New は新しい管理用サーバーを作成する。m と cache は nil でもよい。
func New(addr string, info Info, source StatusSource, cache CacheSource, m *metrics.Metrics, logger logging.Logger) *Server {
	router := gin.New()
	s := &Server{
		addr:   addr,
		info:   info,
		source: source,
		cache:  cache,
		logger: logger,
		router: router,
		httpServer: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	router.Use(gin.Recovery(), s.accessLog())
	s.setupRoutes(m)

	return s
}

// setupRoutes はHTTPルートを設定する
func (s *Server) setupRoutes(m *metrics.Metrics) {
	// ヘルスチェックエンドポイント
	s.router.GET("/health", s.handleHealth)

	// APIエンドポイント
	s.router.GET("/api/status", s.handleStatus)

	if m != nil {
		s.router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// 管理画面
	s.router.GET("/", s.handleRoot)
}

// accessLog はリクエストをログに出力するミドルウェア
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("管理APIへのリクエスト",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

// Handler はルーティング済みの http.Handler を返す
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr はリッスン中のアドレスを返す。起動前は nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start はサーバーを起動し、ctx が終了したらグレースフルにシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("管理用サーバーの起動に失敗: %w", err)
	}
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		s.logger.Info("管理用サーバーを起動しています", "address", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			shutdownCh <- fmt.Errorf("管理用サーバーが異常終了しました: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-shutdownCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	s.logger.Info("管理用サーバーをシャットダウンしています")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("管理用サーバーのシャットダウンに失敗: %w", err)
	}

	s.logger.Info("管理用サーバーが正常にシャットダウンされました")
	return nil
}
