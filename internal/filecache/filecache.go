// Package filecache はルートフォルダ内のファイル内容をメモリにキャッシュします。
//
// 責務:
//   - 最近読まれたファイル内容をLRUで保持する
//   - ルートフォルダ配下の変更を fsnotify で監視し、該当エントリを破棄する
//
// 仕様:
//   - エントリは読み込み時の os.Stat と大きさ・更新時刻が一致する場合のみ使う。
//     そのため監視イベントの遅延があっても古い内容は返さない
//   - MaxFileSize を超えるファイルとディレクトリはキャッシュせず、そのまま読み込む
//   - エラーは os.ReadFile と同じものを返す
package filecache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"

	"tiger/internal/logging"
)

// entry はキャッシュされたファイル内容
type entry struct {
	data    []byte
	size    int64
	modTime time.Time
}

// Stats はキャッシュの状態
type Stats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

// Cache はファイル内容のLRUキャッシュ
type Cache struct {
	root        string
	maxFileSize int64
	entries     *lru.Cache[string, entry]
	watcher     *fsnotify.Watcher
	logger      logging.Logger

	hits   atomic.Uint64
	misses atomic.Uint64

	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New は root 配下を監視するキャッシュを作成する
func New(root string, maxEntries int, maxFileSize int64, logger logging.Logger) (*Cache, error) {
	entries, err := lru.New[string, entry](maxEntries)
	if err != nil {
		return nil, fmt.Errorf("キャッシュの作成に失敗: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("ファイル監視の開始に失敗: %w", err)
	}

	c := &Cache{
		root:        root,
		maxFileSize: maxFileSize,
		entries:     entries,
		watcher:     watcher,
		logger:      logger,
	}

	if err := c.watchTree(root); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	c.wg.Add(1)
	go c.watch()

	return c, nil
}

// Load は path の内容を返す。キャッシュが有効ならファイルを読み直さない。
func (c *Cache) Load(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() || info.Size() > c.maxFileSize {
		return os.ReadFile(path)
	}

	if e, ok := c.entries.Get(path); ok && e.size == info.Size() && e.modTime.Equal(info.ModTime()) {
		c.hits.Add(1)
		return e.data, nil
	}
	c.misses.Add(1)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// 読み込み中に書き換えられた場合はキャッシュしない
	if int64(len(data)) == info.Size() {
		c.entries.Add(path, entry{data: data, size: info.Size(), modTime: info.ModTime()})
	}

	return data, nil
}

// Stats は現在の状態を返す
func (c *Cache) Stats() Stats {
	return Stats{
		Entries: c.entries.Len(),
		Hits:    c.hits.Load(),
		Misses:  c.misses.Load(),
	}
}

// Close は監視を停止する
func (c *Cache) Close() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.watcher.Close()
		c.wg.Wait()
		c.entries.Purge()
	})
	return err
}

// watchTree は dir 以下の全ディレクトリを監視対象に追加する
func (c *Cache) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := c.watcher.Add(path); err != nil {
			return fmt.Errorf("ディレクトリの監視に失敗 (%s): %w", path, err)
		}
		return nil
	})
}

// watch は監視イベントを処理する
func (c *Cache) watch() {
	defer c.wg.Done()

	for {
		select {
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.handleEvent(event)

		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.logger.Warning("ファイル監視でエラーが発生しました", "error", err)
		}
	}
}

// handleEvent は変更のあったパスのエントリを破棄する
func (c *Cache) handleEvent(event fsnotify.Event) {
	c.entries.Remove(event.Name)

	switch {
	case event.Has(fsnotify.Create):
		// 新しいディレクトリも監視対象に加える
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := c.watchTree(event.Name); err != nil {
				c.logger.Warning("追加されたディレクトリを監視できません", "path", event.Name, "error", err)
			}
		}

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// ディレクトリごと消えた場合は配下のエントリもまとめて破棄する
		prefix := event.Name + string(filepath.Separator)
		for _, key := range c.entries.Keys() {
			if strings.HasPrefix(key, prefix) {
				c.entries.Remove(key)
			}
		}
	}
}
