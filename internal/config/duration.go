package config

import (
	"fmt"
	"time"
)

// Duration は "10s" や "5m" のような文字列で指定できる time.Duration
type Duration time.Duration

// Std は time.Duration に変換する
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String は time.Duration と同じ表記を返す
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText は YAML / TOML の文字列から値を読み込む
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("時間の形式が不正です: %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText は文字列表現を返す
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
