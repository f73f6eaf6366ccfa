package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"tiger/internal/logging"
	"tiger/internal/metrics"
	"tiger/internal/workerpool"
)

// ErrBind はリスニングソケットを開けなかったときに返される
var ErrBind = errors.New("ポートのバインドに失敗")

// accept 失敗時の待機時間
const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// Snapshot はサーバーの状態
type Snapshot struct {
	Address      string           `json:"address"`
	StartedAt    time.Time        `json:"started_at"`
	Uptime       string           `json:"uptime"`
	Accepted     uint64           `json:"accepted"`
	AcceptErrors uint64           `json:"accept_errors"`
	Pool         workerpool.Stats `json:"pool"`
}

// Server は接続を受け付けてワーカープールに投入する
type Server struct {
	addr    string
	handler *Handler
	pool    *workerpool.Pool
	logger  logging.Logger
	metrics *metrics.Metrics

	mu        sync.Mutex
	listener  net.Listener
	startedAt time.Time

	accepted     atomic.Uint64
	acceptErrors atomic.Uint64
}

// New は新しいServerを作成し、workers 個のワーカーを起動する
func New(addr string, workers int, handler *Handler, logger logging.Logger, m *metrics.Metrics) (*Server, error) {
	pool, err := workerpool.New(workers, workerpool.WithPanicHandler(func(recovered any) {
		logger.Severe("接続の処理中にパニックが発生しました", "panic", recovered)
	}))
	if err != nil {
		return nil, fmt.Errorf("ワーカープールの作成に失敗: %w", err)
	}
	m.RegisterPool(pool)

	return &Server{
		addr:    addr,
		handler: handler,
		pool:    pool,
		logger:  logger,
		metrics: m,
	}, nil
}

// Listen はリスニングソケットを開く。失敗した場合はワーカープールも停止する。
func (s *Server) Listen(ctx context.Context) error {
	lc := net.ListenConfig{Control: controlSocket}
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		s.pool.ShutdownNow()
		return fmt.Errorf("%w (%s): %v", ErrBind, s.addr, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.startedAt = time.Now()
	s.mu.Unlock()

	s.logger.Info("接続の受け付けを開始します", "address", ln.Addr().String(), "workers", s.pool.Size())
	return nil
}

// Serve は ctx が終了するまで接続を受け付ける。
// 終了時はリスナーを閉じ、ワーカープールを即時停止する。
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	ln := s.listener
	s.mu.Unlock()
	if ln == nil {
		return errors.New("リスナーが開かれていません")
	}

	// ブロック中の Accept を解除するためにリスナーを閉じる
	stop := context.AfterFunc(ctx, func() {
		_ = ln.Close()
	})
	defer stop()

	err := s.acceptLoop(ctx, ln)

	_ = ln.Close()
	dropped := s.pool.ShutdownNow()
	s.logger.Info("サーバーを停止しました", "dropped", dropped)

	return err
}

// Run はバインドしてから ctx が終了するまで接続を受け付ける
func (s *Server) Run(ctx context.Context) error {
	if err := s.Listen(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// acceptLoop は接続を受け付けてタスクとして投入する
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var delay time.Duration

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("リスナーが閉じられました: %w", err)
			}

			s.acceptErrors.Add(1)
			s.metrics.AcceptError()

			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay = min(delay*2, maxAcceptDelay)
			}
			s.logger.Warning("接続の受け付けに失敗しました", "error", err, "retry_in", delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		delay = 0

		s.accepted.Add(1)
		s.metrics.ConnectionAccepted()

		task := newConnTask(conn, s.handler)
		if err := s.pool.Submit(task); err != nil {
			// 停止処理と競合した場合のみ起こる
			s.metrics.SubmitError()
			s.logger.Warning("接続をキューに追加できません", "conn", task.id.String(), "error", err)
			_ = conn.Close()
		}
	}
}

// Wait は実行中の接続処理がすべて終わるのを待つ
func (s *Server) Wait() {
	s.pool.Wait()
}

// Addr はリッスン中のアドレスを返す。Listen 前は nil。
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Snapshot は現在の状態を返す
func (s *Server) Snapshot() Snapshot {
	s.mu.Lock()
	startedAt := s.startedAt
	address := s.addr
	if s.listener != nil {
		address = s.listener.Addr().String()
	}
	s.mu.Unlock()

	var uptime time.Duration
	if !startedAt.IsZero() {
		uptime = time.Since(startedAt).Truncate(time.Second)
	}

	return Snapshot{
		Address:      address,
		StartedAt:    startedAt,
		Uptime:       uptime.String(),
		Accepted:     s.accepted.Load(),
		AcceptErrors: s.acceptErrors.Load(),
		Pool:         s.pool.Stats(),
	}
}
