package protocol

import (
	"errors"
	"testing"
)

// TestParseRequestLine はリクエストラインの解析をテストする
func TestParseRequestLine(t *testing.T) {
	testCases := []struct {
		name       string
		line       string
		wantTarget string
		expectErr  bool
	}{
		{"通常のGET", "GET /index.html HTTP/1.1", "/index.html", false},
		{"CRLF付き", "GET / HTTP/1.1\r\n", "/", false},
		{"LFのみ", "GET /a/b HTTP/1.0\n", "/a/b", false},
		{"バージョンは検証しない", "GET /x garbage", "/x", false},
		{"メソッドは検証しない", "DELETE /x HTTP/1.1", "/x", false},
		{"スペース3つ以上", "GET /x HTTP/1.1 extra", "/x", false},
		{"エンコード済みターゲット", "GET /%2e%2e/etc HTTP/1.1", "/%2e%2e/etc", false},
		{"空行", "", "", true},
		{"スペースなし", "GET", "", true},
		{"スペース1つ", "GET /index.html", "", true},
		{"ターゲットが空", "GET  HTTP/1.1", "", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			target, err := ParseRequestLine(tc.line)
			if tc.expectErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("ErrMalformed が期待されましたが %v でした", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("予期しないエラーが発生しました: %v", err)
			}
			if target != tc.wantTarget {
				t.Errorf("ターゲットが一致しません: got %q, want %q", target, tc.wantTarget)
			}
		})
	}
}
