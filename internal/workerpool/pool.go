// Package workerpool は固定数のワーカーで共有キューのタスクを実行します。
//
// 責務:
//   - 起動時に指定数のワーカーを生成し、停止まで使い続ける
//   - 上限のないFIFOキューでタスクを受け付ける（バックプレッシャーなし）
//   - ShutdownNow による即時停止
//
// 仕様:
//   - Submit は容量を理由にブロックも拒否もしない。過負荷時はキューが伸び続ける
//   - 実行中のタスクは中断されず、最後まで実行される
//   - 停止時にキューに残ったタスクは実行されずに破棄される
//   - 同じタスクが複数のワーカーで実行されることはない
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrInvalidSize はワーカー数が1未満のときに返される
	ErrInvalidSize = errors.New("ワーカー数は1以上である必要があります")

	// ErrClosed は停止済みのプールにタスクを投入したときに返される
	ErrClosed = errors.New("ワーカープールは停止しています")

	// ErrNilTask は nil のタスクを投入したときに返される
	ErrNilTask = errors.New("タスクが nil です")
)

// Task はワーカーが一度だけ実行する作業単位
type Task interface {
	Run()
}

// TaskFunc は関数を Task として扱うためのアダプタ
type TaskFunc func()

// Run は f() を呼び出す
func (f TaskFunc) Run() {
	f()
}

// Stats はプールの状態
type Stats struct {
	Size      int    `json:"size"`      // ワーカー数
	Queued    int64  `json:"queued"`    // 実行待ちのタスク数
	Busy      int64  `json:"busy"`      // 実行中のワーカー数
	Completed uint64 `json:"completed"` // 実行を終えたタスク数
	Dropped   int64  `json:"dropped"`   // 停止時に破棄されたタスク数
	Closed    bool   `json:"closed"`    // 停止済みかどうか
}

// Option はプールの設定を変更する
type Option func(*Pool)

// WithPanicHandler はタスク内で発生したパニックの通知先を設定する。
// 未設定の場合、パニックは回復されたうえで破棄される。
func WithPanicHandler(fn func(recovered any)) Option {
	return func(p *Pool) {
		p.onPanic = fn
	}
}

// Pool は固定数のワーカーと上限のないキューを持つワーカープール
type Pool struct {
	size int

	// 投入口とワーカーへの受け渡し口。キュー本体は dispatch が保持する
	in  chan Task
	out chan Task

	ctx    context.Context
	cancel context.CancelFunc

	wg         sync.WaitGroup // ワーカー
	dispatched chan struct{}  // dispatch の終了

	queued    atomic.Int64
	busy      atomic.Int64
	completed atomic.Uint64
	dropped   atomic.Int64

	onPanic func(recovered any)
}

// New は n 個のワーカーを起動したプールを作成する
func New(n int, opts ...Option) (*Pool, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		size:       n,
		in:         make(chan Task),
		out:        make(chan Task),
		ctx:        ctx,
		cancel:     cancel,
		dispatched: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.dispatch()

	p.wg.Add(n)
	for i := 0; i < n; i++ {
		go p.worker()
	}

	return p, nil
}

// Submit はタスクをキューの末尾に追加する。
// キューに上限はないため、停止済みでない限り失敗しない。
func (p *Pool) Submit(t Task) error {
	if t == nil {
		return ErrNilTask
	}
	if p.ctx.Err() != nil {
		return ErrClosed
	}

	select {
	case p.in <- t:
		return nil
	case <-p.ctx.Done():
		return ErrClosed
	}
}

// ShutdownNow は全ワーカーに停止を通知する。
// 実行中のタスクは最後まで実行され、待機中のワーカーはすぐに終了する。
// キューに残っていたタスクは破棄され、その数を返す。
// 戻り値は Stats().Dropped と常に一致する。
// 実行中のタスクの完了は待たない（必要なら Wait を使う）。
func (p *Pool) ShutdownNow() int {
	p.cancel()
	<-p.dispatched
	return int(p.dropped.Load())
}

// Wait は全ワーカーの終了を待つ
func (p *Pool) Wait() {
	p.wg.Wait()
}

// Size はワーカー数を返す
func (p *Pool) Size() int {
	return p.size
}

// Stats は現在の状態を返す
func (p *Pool) Stats() Stats {
	return Stats{
		Size:      p.size,
		Queued:    p.queued.Load(),
		Busy:      p.busy.Load(),
		Completed: p.completed.Load(),
		Dropped:   p.dropped.Load(),
		Closed:    p.ctx.Err() != nil,
	}
}

// dispatch はキューを保持し、空いたワーカーへ先頭から順に渡す
func (p *Pool) dispatch() {
	defer close(p.dispatched)

	var queue []Task
	for {
		if p.ctx.Err() != nil {
			p.dropQueue(queue)
			return
		}

		// キューが空の間は nil チャンネルとなり送信側は選ばれない
		var out chan Task
		var next Task
		if len(queue) > 0 {
			out = p.out
			next = queue[0]
		}

		select {
		case t := <-p.in:
			queue = append(queue, t)
			p.queued.Add(1)

		case out <- next:
			queue[0] = nil
			queue = queue[1:]
			p.queued.Add(-1)

		case <-p.ctx.Done():
			p.dropQueue(queue)
			return
		}
	}
}

// dropQueue は実行されなかったタスクを破棄済みとして数える
func (p *Pool) dropQueue(queue []Task) {
	p.dropped.Add(int64(len(queue)))
	p.queued.Add(-int64(len(queue)))
}

// worker はキューからタスクを一つずつ取り出して実行する
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return

		case t := <-p.out:
			// 受け渡しが済んだタスクは停止と同時でも実行する。
			// 破棄の判定は dispatch だけが行う
			p.run(t)
		}
	}
}

// run はタスクを同期的に実行する
func (p *Pool) run(t Task) {
	p.busy.Add(1)
	defer func() {
		if r := recover(); r != nil && p.onPanic != nil {
			p.onPanic(r)
		}
		p.busy.Add(-1)
		p.completed.Add(1)
	}()

	t.Run()
}
