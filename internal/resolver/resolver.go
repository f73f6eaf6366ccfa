// Package resolver はリクエストターゲットをルートフォルダ内の絶対パスへ解決します。
//
// ターゲットはルートフォルダのURIを基準とした相対URI参照として解釈され、
// 解決結果がルートフォルダの子孫でなければ拒否されます。
// 比較はパスのセグメント単位で行うため、ルートと同じ文字で始まる
// 兄弟ディレクトリ（例: /srv/www と /srv/www-private）は通過しません。
package resolver

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// IndexFile はディレクトリへのリクエストで返すファイル名
const IndexFile = "index.html"

var (
	// ErrEscape は解決したパスがルートフォルダ外を指すときに返される
	ErrEscape = errors.New("ルートフォルダ外のパスです")

	// ErrInvalidTarget はターゲットをファイルパスとして解釈できないときに返される
	ErrInvalidTarget = errors.New("解釈できないリクエストターゲットです")
)

// Canonicalize はルートフォルダを絶対パスに変換し、シンボリックリンクを解決する。
// 起動時に一度だけ呼び出し、以降は Resolve にその結果を渡す。
func Canonicalize(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("絶対パスへの変換に失敗: %w", err)
	}

	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("ルートフォルダの解決に失敗: %w", err)
	}

	info, err := os.Stat(canonical)
	if err != nil {
		return "", fmt.Errorf("ルートフォルダの確認に失敗: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("ルートフォルダがディレクトリではありません: %s", canonical)
	}

	return canonical, nil
}

// Resolve は rawTarget を root 配下の絶対パスへ解決する。
// root は Canonicalize 済みであること。
//
// ディレクトリを指す場合は index.html に書き換える。
// ファイルの存在確認は行わない（読み込み時に検出する）。
func Resolve(root, rawTarget string) (string, error) {
	// 先頭の "/" はルートフォルダ自身を指す
	rel := strings.TrimPrefix(rawTarget, "/")
	if hasTrailingSeparator(rawTarget) {
		rel += IndexFile
	}

	ref, err := url.Parse(rel)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}

	resolved := baseURL(root).ResolveReference(ref)
	if !isPlainFileURL(resolved) {
		return "", fmt.Errorf("%w: %s", ErrInvalidTarget, rawTarget)
	}

	path := filepath.Clean(filepath.FromSlash(resolved.Path))
	if !Contains(root, path) {
		return "", fmt.Errorf("%w: %s", ErrEscape, rawTarget)
	}

	// 包含確認済みのディレクトリに追記するだけなので再確認は不要
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, IndexFile)
	}

	return path, nil
}

// Contains は path が root 自身またはその子孫かどうかを返す
func Contains(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	if filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ContainsReal は path のシンボリックリンクを解決したうえで root の子孫かどうかを返す。
// Contains は字句上の比較だけなので、ルート内からルート外を指すリンクを通してしまう。
// path が存在しない場合は、存在する最も深い祖先までを解決して比較する。
func ContainsReal(root, path string) bool {
	if !Contains(root, path) {
		return false
	}
	real, err := evalExisting(path)
	if err != nil {
		return false
	}
	return Contains(root, real)
}

// evalExisting は存在する祖先までシンボリックリンクを解決し、残りの要素をつなげる
func evalExisting(path string) (string, error) {
	real, err := filepath.EvalSymlinks(path)
	if err == nil {
		return real, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	parent := filepath.Dir(path)
	if parent == path {
		return "", err
	}
	realParent, err := evalExisting(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(realParent, filepath.Base(path)), nil
}

// baseURL はルートフォルダをディレクトリとしての file URL に変換する
func baseURL(root string) *url.URL {
	p := filepath.ToSlash(root)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return &url.URL{Scheme: "file", Path: p}
}

// isPlainFileURL はホストやクエリを持たないローカルファイルのURLかどうかを返す
func isPlainFileURL(u *url.URL) bool {
	return u.Scheme == "file" &&
		u.Host == "" &&
		u.User == nil &&
		u.Opaque == "" &&
		u.RawQuery == "" &&
		!u.ForceQuery &&
		u.Fragment == ""
}

func hasTrailingSeparator(target string) bool {
	return strings.HasSuffix(target, "/") || strings.HasSuffix(target, string(filepath.Separator))
}
