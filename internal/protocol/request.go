package protocol

import (
	"errors"
	"strings"
)

// ErrMalformed はリクエストラインからターゲットを取り出せないときに返される
var ErrMalformed = errors.New("不正なリクエストライン")

// ParseRequestLine は "METHOD SP TARGET SP VERSION" からターゲットだけを取り出す。
// メソッドとバージョンは検証しない。
func ParseRequestLine(line string) (string, error) {
	line = strings.TrimRight(line, "\r\n")

	first := strings.IndexByte(line, ' ')
	if first < 0 {
		return "", ErrMalformed
	}

	rest := line[first+1:]
	second := strings.IndexByte(rest, ' ')
	if second < 0 {
		return "", ErrMalformed
	}

	target := rest[:second]
	if target == "" {
		return "", ErrMalformed
	}

	return target, nil
}
