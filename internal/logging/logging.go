// Package logging はレベル付きのログ出力を提供します。
//
// 責務:
//   - INFO / WARNING / SEVERE の3段階でログを出力する
//   - 起動時のバナー表示
//   - 稼働時間の定期出力
//
// 仕様:
//   - 標準ライブラリの log/slog を使用（TextHandler で標準エラー出力へ）
//   - 出力は呼び出し側をブロックせず、失敗も呼び出し側に返さない
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"
)

// Level はログの出力レベル
type Level = slog.Level

// 出力レベル
const (
	LevelInfo    = slog.LevelInfo
	LevelWarning = slog.LevelWarn
	LevelSevere  = slog.LevelError
)

// Logger はサーバー内部で使うログ出力のインターフェース。
// args は slog と同じくキーと値の組で渡す。
type Logger interface {
	Info(msg string, args ...any)
	Warning(msg string, args ...any)
	Severe(msg string, args ...any)
}

// SlogLogger は slog.Logger を使った Logger の実装
type SlogLogger struct {
	l *slog.Logger
}

// New は w に出力する Logger を作成する。level 未満のログは捨てられる。
func New(w io.Writer, level Level) *SlogLogger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: replaceLevel,
	})
	return &SlogLogger{l: slog.New(h)}
}

// Discard は何も出力しない Logger を返す
func Discard() *SlogLogger {
	return New(io.Discard, LevelSevere+1)
}

// With は属性を追加した Logger を返す
func (s *SlogLogger) With(args ...any) *SlogLogger {
	return &SlogLogger{l: s.l.With(args...)}
}

// Info は通常の動作を記録する
func (s *SlogLogger) Info(msg string, args ...any) {
	s.l.Info(msg, args...)
}

// Warning は接続単位の失敗など、サーバーの動作は継続できる問題を記録する
func (s *SlogLogger) Warning(msg string, args ...any) {
	s.l.Warn(msg, args...)
}

// Severe はサーバー全体に影響する問題を記録する
func (s *SlogLogger) Severe(msg string, args ...any) {
	s.l.Error(msg, args...)
}

// ParseLevel はレベル名を解析する。
// "info" / "warning" / "severe" のほか、旧設定の "0" / "1" / "2" も受け付ける。
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info", "0":
		return LevelInfo, nil
	case "warning", "warn", "1":
		return LevelWarning, nil
	case "severe", "error", "2":
		return LevelSevere, nil
	default:
		return 0, fmt.Errorf("不明なログレベル: %s", name)
	}
}

// LevelName はレベルの表示名を返す
func LevelName(level Level) string {
	switch {
	case level >= LevelSevere:
		return "SEVERE"
	case level >= LevelWarning:
		return "WARNING"
	default:
		return "INFO"
	}
}

// replaceLevel はレベル表記を INFO / WARNING / SEVERE にそろえる
func replaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

// Banner は起動時のバナーを書き込む
func Banner(w io.Writer, version string, level Level) {
	fmt.Fprintf(w, "TIGER WEBSERVER %s\n", version)
	fmt.Fprintf(w, "Logging all above %s.\n\n", LevelName(level))
}

// ReportUptime は開始時と、ctx が終わるまで interval ごとに稼働時間を記録する。
// interval が0以下の場合は何もせずに ctx の終了を待つ。
func ReportUptime(ctx context.Context, logger Logger, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	start := time.Now()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// 起動直後にも1回出力する
	logger.Info("稼働中", "uptime_ms", int64(0))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logger.Info("稼働中", "uptime_ms", time.Since(start).Milliseconds())
		}
	}
}
