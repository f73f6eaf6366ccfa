package workerpool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// waitFor は条件が満たされるまで待機する
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("条件が満たされないままタイムアウトしました")
}

// TestNewInvalidSize はワーカー数の検証をテストする
func TestNewInvalidSize(t *testing.T) {
	for _, n := range []int{0, -1} {
		p, err := New(n)
		if !errors.Is(err, ErrInvalidSize) {
			t.Errorf("n=%d: ErrInvalidSize が期待されましたが %v でした", n, err)
		}
		if p != nil {
			t.Errorf("n=%d: プールは nil であるべきです", n)
		}
	}
}

// TestSubmitRunsEveryTaskOnce はすべてのタスクが一度ずつ実行されることをテストする
func TestSubmitRunsEveryTaskOnce(t *testing.T) {
	const workers = 3
	const tasks = 200

	p, err := New(workers)
	if err != nil {
		t.Fatalf("プールの作成に失敗しました: %v", err)
	}
	defer p.ShutdownNow()

	var counts [tasks]atomic.Int32
	var wg sync.WaitGroup
	wg.Add(tasks)

	// 複数のゴルーチンから同時に投入する
	var submitters sync.WaitGroup
	for s := 0; s < 4; s++ {
		submitters.Add(1)
		go func(s int) {
			defer submitters.Done()
			for i := s; i < tasks; i += 4 {
				i := i
				if err := p.Submit(TaskFunc(func() {
					counts[i].Add(1)
					wg.Done()
				})); err != nil {
					t.Errorf("投入に失敗しました: %v", err)
				}
			}
		}(s)
	}
	submitters.Wait()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("全タスクの完了がタイムアウトしました")
	}

	for i := range counts {
		if n := counts[i].Load(); n != 1 {
			t.Errorf("タスク %d の実行回数が %d 回です", i, n)
		}
	}

	waitFor(t, func() bool { return p.Stats().Completed == tasks })
}

// TestBoundedConcurrency は同時実行数がワーカー数を超えないことをテストする
func TestBoundedConcurrency(t *testing.T) {
	const workers = 2

	p, err := New(workers)
	if err != nil {
		t.Fatalf("プールの作成に失敗しました: %v", err)
	}
	defer p.ShutdownNow()

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		_ = p.Submit(TaskFunc(func() {
			defer wg.Done()
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
		}))
	}
	wg.Wait()

	if got := peak.Load(); got > workers {
		t.Errorf("同時実行数がワーカー数を超えました: %d > %d", got, workers)
	}
}

// TestShutdownNow は停止時の挙動をテストする
func TestShutdownNow(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("プールの作成に失敗しました: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var finished, extra atomic.Int32

	// 唯一のワーカーを実行中の状態にする
	if err := p.Submit(TaskFunc(func() {
		close(started)
		<-release
		finished.Add(1)
	})); err != nil {
		t.Fatalf("投入に失敗しました: %v", err)
	}
	<-started

	for i := 0; i < 5; i++ {
		if err := p.Submit(TaskFunc(func() { extra.Add(1) })); err != nil {
			t.Fatalf("投入に失敗しました: %v", err)
		}
	}
	waitFor(t, func() bool { return p.Stats().Queued == 5 })

	dropped := p.ShutdownNow()
	if dropped != 5 {
		t.Errorf("破棄されたタスク数が一致しません: got %d, want 5", dropped)
	}

	// 実行中のタスクは中断されない
	close(release)
	p.Wait()

	if finished.Load() != 1 {
		t.Error("実行中のタスクが完了していません")
	}
	if extra.Load() != 0 {
		t.Errorf("破棄されたはずのタスクが %d 件実行されました", extra.Load())
	}

	if err := p.Submit(TaskFunc(func() {})); !errors.Is(err, ErrClosed) {
		t.Errorf("停止後の投入では ErrClosed が期待されましたが %v でした", err)
	}

	stats := p.Stats()
	if !stats.Closed || stats.Queued != 0 {
		t.Errorf("停止後の状態が不正です: %+v", stats)
	}

	// 二重の停止でもパニックしない
	p.ShutdownNow()
}

// TestShutdownNowCountIsExact は停止と受け渡しが競合しても破棄数が正確なことをテストする
func TestShutdownNowCountIsExact(t *testing.T) {
	testCases := []struct {
		name    string
		workers int
		tasks   int
	}{
		{name: "ワーカー1", workers: 1, tasks: 500},
		{name: "ワーカー4", workers: 4, tasks: 2000},
		{name: "ワーカー16", workers: 16, tasks: 5000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := New(tc.workers)
			if err != nil {
				t.Fatalf("プールの作成に失敗しました: %v", err)
			}

			var ran atomic.Int64
			for i := 0; i < tc.tasks; i++ {
				if err := p.Submit(TaskFunc(func() {
					time.Sleep(10 * time.Microsecond)
					ran.Add(1)
				})); err != nil {
					t.Fatalf("投入に失敗しました: %v", err)
				}
			}

			dropped := p.ShutdownNow()
			p.Wait()

			if got := p.Stats().Dropped; got != int64(dropped) {
				t.Errorf("戻り値と停止後の破棄数が一致しません: 戻り値 %d, Stats %d", dropped, got)
			}
			if total := ran.Load() + int64(dropped); total != int64(tc.tasks) {
				t.Errorf("実行数と破棄数の合計が投入数と一致しません: 実行 %d + 破棄 %d != %d", ran.Load(), dropped, tc.tasks)
			}
		})
	}
}

// TestShutdownWithDeepQueue は大量の待機タスクがあっても停止できることをテストする
func TestShutdownWithDeepQueue(t *testing.T) {
	p, err := New(2)
	if err != nil {
		t.Fatalf("プールの作成に失敗しました: %v", err)
	}

	block := make(chan struct{})
	for i := 0; i < 10000; i++ {
		_ = p.Submit(TaskFunc(func() { <-block }))
	}

	p.ShutdownNow()
	close(block)

	done := make(chan struct{})
	go func() {
		p.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("ワーカーの終了がタイムアウトしました")
	}
}

// TestSubmitNil は nil タスクの投入をテストする
func TestSubmitNil(t *testing.T) {
	p, err := New(1)
	if err != nil {
		t.Fatalf("プールの作成に失敗しました: %v", err)
	}
	defer p.ShutdownNow()

	if err := p.Submit(nil); !errors.Is(err, ErrNilTask) {
		t.Errorf("ErrNilTask が期待されましたが %v でした", err)
	}
}

// TestPanicRecovery はタスクのパニックでワーカーが失われないことをテストする
func TestPanicRecovery(t *testing.T) {
	recovered := make(chan any, 1)
	p, err := New(1, WithPanicHandler(func(r any) { recovered <- r }))
	if err != nil {
		t.Fatalf("プールの作成に失敗しました: %v", err)
	}
	defer p.ShutdownNow()

	_ = p.Submit(TaskFunc(func() { panic("boom") }))

	select {
	case r := <-recovered:
		if r != "boom" {
			t.Errorf("回復した値が一致しません: %v", r)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("パニックが通知されませんでした")
	}

	ran := make(chan struct{})
	_ = p.Submit(TaskFunc(func() { close(ran) }))
	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("パニック後にタスクが実行されませんでした")
	}
}
