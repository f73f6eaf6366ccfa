package filecache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tiger/internal/logging"
)

func newCache(t *testing.T, maxFileSize int64) (*Cache, string) {
	t.Helper()

	root, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("一時ディレクトリの解決に失敗しました: %v", err)
	}

	c, err := New(root, 16, maxFileSize, logging.Discard())
	if err != nil {
		t.Fatalf("キャッシュの作成に失敗しました: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	return c, root
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("ファイルの作成に失敗しました: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("条件が満たされないままタイムアウトしました")
}

func TestLoadHitAndMiss(t *testing.T) {
	c, root := newCache(t, 1<<20)
	path := filepath.Join(root, "index.html")
	writeFile(t, path, "A")

	for i := 0; i < 3; i++ {
		data, err := c.Load(path)
		if err != nil {
			t.Fatalf("読み込みに失敗しました: %v", err)
		}
		if string(data) != "A" {
			t.Errorf("内容が一致しません: %q", data)
		}
	}

	stats := c.Stats()
	if stats.Misses != 1 || stats.Hits != 2 || stats.Entries != 1 {
		t.Errorf("キャッシュの状態が一致しません: %+v", stats)
	}
}

func TestLoadSeesModification(t *testing.T) {
	c, root := newCache(t, 1<<20)
	path := filepath.Join(root, "page.html")
	writeFile(t, path, "old")

	if _, err := c.Load(path); err != nil {
		t.Fatalf("読み込みに失敗しました: %v", err)
	}

	writeFile(t, path, "brand new content")

	data, err := c.Load(path)
	if err != nil {
		t.Fatalf("読み込みに失敗しました: %v", err)
	}
	if string(data) != "brand new content" {
		t.Errorf("更新後の内容が返されていません: %q", data)
	}
}

func TestRemoveEvictsEntry(t *testing.T) {
	c, root := newCache(t, 1<<20)
	path := filepath.Join(root, "gone.html")
	writeFile(t, path, "bye")

	if _, err := c.Load(path); err != nil {
		t.Fatalf("読み込みに失敗しました: %v", err)
	}
	if c.Stats().Entries != 1 {
		t.Fatalf("エントリが追加されていません: %+v", c.Stats())
	}

	if err := os.Remove(path); err != nil {
		t.Fatalf("ファイルの削除に失敗しました: %v", err)
	}
	waitFor(t, func() bool { return c.Stats().Entries == 0 })

	if _, err := c.Load(path); !os.IsNotExist(err) {
		t.Errorf("存在しないファイルのエラーが期待されましたが %v でした", err)
	}
}

func TestNewDirectoryIsWatched(t *testing.T) {
	c, root := newCache(t, 1<<20)
	dir := filepath.Join(root, "sub")
	if err := os.Mkdir(dir, 0o755); err != nil {
		t.Fatalf("ディレクトリの作成に失敗しました: %v", err)
	}

	// 監視に追加されるのを待ってからファイルを作る
	time.Sleep(100 * time.Millisecond)
	path := filepath.Join(dir, "x.html")
	writeFile(t, path, "x")

	if _, err := c.Load(path); err != nil {
		t.Fatalf("読み込みに失敗しました: %v", err)
	}
	if err := os.Remove(path); err != nil {
		t.Fatalf("ファイルの削除に失敗しました: %v", err)
	}
	waitFor(t, func() bool { return c.Stats().Entries == 0 })
}

func TestBypass(t *testing.T) {
	c, root := newCache(t, 4)

	big := filepath.Join(root, "big.html")
	writeFile(t, big, "larger than four bytes")
	data, err := c.Load(big)
	if err != nil {
		t.Fatalf("読み込みに失敗しました: %v", err)
	}
	if string(data) != "larger than four bytes" {
		t.Errorf("内容が一致しません: %q", data)
	}

	if _, err := c.Load(root); err == nil {
		t.Error("ディレクトリの読み込みはエラーが期待されました")
	}

	if c.Stats().Entries != 0 {
		t.Errorf("キャッシュされないはずです: %+v", c.Stats())
	}
}
