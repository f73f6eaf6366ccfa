package server

import (
	"bufio"
	"errors"
	"io"
	"net"
	"os"
	"strconv"
	"time"
	"unicode/utf8"

	"tiger/internal/logging"
	"tiger/internal/metrics"
	"tiger/internal/protocol"
	"tiger/internal/resolver"
)

// errInvalidEncoding はファイル内容がUTF-8として読めないときのエラー
var errInvalidEncoding = errors.New("ファイルがUTF-8ではありません")

// レスポンス本文の種類（メトリクスのラベル）
const (
	pageFile      = "file"
	pageNotFound  = "not_found"
	pageForbidden = "forbidden"
)

// FileLoader はファイル内容を読み込む
type FileLoader interface {
	Load(path string) ([]byte, error)
}

// LoaderFunc は関数を FileLoader として扱うためのアダプタ
type LoaderFunc func(path string) ([]byte, error)

// Load は f(path) を呼び出す
func (f LoaderFunc) Load(path string) ([]byte, error) {
	return f(path)
}

// PageGenerator はエラーページの本文を生成する
type PageGenerator interface {
	Status(status protocol.Status) string
	StatusPath(status protocol.Status, path string) string
}

// HandlerOption はハンドラーの設定を変更する
type HandlerOption func(*Handler)

// WithFileLoader はファイルの読み込み方法を設定する
func WithFileLoader(files FileLoader) HandlerOption {
	return func(h *Handler) {
		h.files = files
	}
}

// WithMetrics はメトリクスの記録先を設定する
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithStrictNotFound はファイルが読めないときに 404 のステータスラインを返すようにする
func WithStrictNotFound(strict bool) HandlerOption {
	return func(h *Handler) {
		h.strictNotFound = strict
	}
}

// WithSymlinkCheck はシンボリックリンクを解決した後のパスもルート配下か確認する
func WithSymlinkCheck(enabled bool) HandlerOption {
	return func(h *Handler) {
		h.symlinkCheck = enabled
	}
}

// WithReadTimeout はリクエストラインの読み込みタイムアウトを設定する。0 は無制限。
func WithReadTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		h.readTimeout = d
	}
}

// Handler は1つの接続を処理する。
// 状態は構築後に変更されないため、複数のワーカーから同時に使ってよい。
type Handler struct {
	root   string
	pages  PageGenerator
	logger logging.Logger
	files  FileLoader

	metrics        *metrics.Metrics
	strictNotFound bool
	symlinkCheck   bool
	readTimeout    time.Duration
}

// NewHandler は新しいHandlerを作成する。root は resolver.Canonicalize 済みであること。
func NewHandler(root string, pages PageGenerator, logger logging.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		root:   root,
		pages:  pages,
		logger: logger,
		files:  LoaderFunc(os.ReadFile),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Serve は接続を処理して閉じる
func (h *Handler) Serve(conn net.Conn) {
	h.handle("-", conn, time.Now())
}

// handle はリクエストラインを1行読み、応答を書き込んで接続を閉じる
func (h *Handler) handle(id string, conn net.Conn, accepted time.Time) {
	defer h.close(id, conn)

	if h.readTimeout > 0 {
		if err := conn.SetReadDeadline(time.Now().Add(h.readTimeout)); err != nil {
			h.logger.Warning("読み込み期限を設定できません", "conn", id, "error", err)
		}
	}

	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		// 1バイトも届かずに切断された場合は応答しない
		if errors.Is(err, io.EOF) {
			h.logger.Info("リクエストを受信する前に切断されました", "conn", id)
		} else {
			h.logger.Warning("リクエストラインを読み込めません", "conn", id, "error", err)
		}
		h.metrics.Aborted("read", time.Since(accepted))
		return
	}

	resp, page, target := h.respond(line)

	writer := bufio.NewWriter(conn)
	_, err = resp.WriteTo(writer)
	if err == nil {
		err = writer.Flush()
	}
	if err != nil {
		h.logger.Warning("レスポンスを書き込めません", "conn", id, "error", err)
		h.metrics.Aborted("write", time.Since(accepted))
		return
	}

	code := strconv.Itoa(resp.Status.Code())
	h.metrics.Response(code, page, time.Since(accepted))
	h.logger.Info("応答しました", "conn", id, "target", target, "status", code, "page", page)
}

// respond はリクエストラインに対するレスポンスを決める
func (h *Handler) respond(line string) (protocol.Response, string, string) {
	target, err := protocol.ParseRequestLine(line)
	if err != nil {
		h.logger.Warning("不正なリクエストラインです", "line", line, "error", err)
		return h.forbidden(), pageForbidden, ""
	}

	path, err := resolver.Resolve(h.root, target)
	if err != nil {
		h.logger.Warning("パスを解決できません", "target", target, "error", err)
		return h.forbidden(), pageForbidden, target
	}
	if h.symlinkCheck && !resolver.ContainsReal(h.root, path) {
		h.logger.Warning("ルート外を指すシンボリックリンクです", "target", target, "path", path)
		return h.forbidden(), pageForbidden, target
	}

	data, err := h.files.Load(path)
	if err == nil && !utf8.Valid(data) {
		err = errInvalidEncoding
	}
	if err != nil {
		h.logger.Info("ファイルを読み込めません", "target", target, "path", path, "error", err)
		status := protocol.StatusOK
		if h.strictNotFound {
			status = protocol.StatusNotFound
		}
		return protocol.NewResponse(status, h.pages.StatusPath(protocol.StatusNotFound, target)), pageNotFound, target
	}

	return protocol.NewResponse(protocol.StatusOK, string(data)), pageFile, target
}

func (h *Handler) forbidden() protocol.Response {
	return protocol.NewResponse(protocol.StatusForbidden, h.pages.Status(protocol.StatusForbidden))
}

// close は書き込み側と読み込み側をそれぞれ閉じてから接続を解放する
func (h *Handler) close(id string, conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		if err := cw.CloseWrite(); err != nil {
			h.logger.Warning("書き込み側を閉じられません", "conn", id, "error", err)
		}
	}
	if cr, ok := conn.(interface{ CloseRead() error }); ok {
		if err := cr.CloseRead(); err != nil {
			h.logger.Warning("読み込み側を閉じられません", "conn", id, "error", err)
		}
	}
	if err := conn.Close(); err != nil {
		h.logger.Warning("接続を閉じられません", "conn", id, "error", err)
	}
}
