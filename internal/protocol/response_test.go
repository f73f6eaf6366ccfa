package protocol

import (
	"bytes"
	"errors"
	"testing"
)

// TestFormat はレスポンスのワイヤ形式をテストする
func TestFormat(t *testing.T) {
	testCases := []struct {
		name     string
		response Response
		expected string
	}{
		{
			name:     "OK",
			response: NewResponse(StatusOK, "A"),
			expected: "HTTP/1.1 200 OK\r\n\r\nA",
		},
		{
			name:     "ボディなし",
			response: NewResponse(StatusForbidden, ""),
			expected: "HTTP/1.1 403 FORBIDDEN\r\n\r\n",
		},
		{
			name:     "NOT_FOUND",
			response: NewResponse(StatusNotFound, "<html></html>"),
			expected: "HTTP/1.1 404 NOT_FOUND\r\n\r\n<html></html>",
		},
		{
			name:     "Location付き",
			response: Response{Status: StatusOK, Body: "moved", Location: "http://example.com/"},
			expected: "HTTP/1.1 200 OK\r\nLocation: http://example.com/\r\n\r\nmoved",
		},
		{
			name:     "ボディはそのまま",
			response: NewResponse(StatusOK, "line1\r\nline2\n"),
			expected: "HTTP/1.1 200 OK\r\n\r\nline1\r\nline2\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := string(Format(tc.response))
			if got != tc.expected {
				t.Errorf("整形結果が一致しません: got %q, want %q", got, tc.expected)
			}
		})
	}
}

// TestNewRedirect はリダイレクトレスポンスの作成をテストする
func TestNewRedirect(t *testing.T) {
	if _, err := NewRedirect(StatusOK, "", "  "); !errors.Is(err, ErrBlankLocation) {
		t.Errorf("空のLocationでエラーが期待されましたが %v でした", err)
	}

	r, err := NewRedirect(StatusOK, "", "/next")
	if err != nil {
		t.Fatalf("予期しないエラーが発生しました: %v", err)
	}
	if r.Location != "/next" {
		t.Errorf("Locationが一致しません: got %q", r.Location)
	}
}

// TestResponseWriteTo は書き込みバイト数をテストする
func TestResponseWriteTo(t *testing.T) {
	var buf bytes.Buffer
	r := NewResponse(StatusOK, "hello")

	n, err := r.WriteTo(&buf)
	if err != nil {
		t.Fatalf("書き込みに失敗しました: %v", err)
	}
	if int(n) != buf.Len() {
		t.Errorf("書き込みバイト数が一致しません: got %d, want %d", n, buf.Len())
	}
	if buf.String() != "HTTP/1.1 200 OK\r\n\r\nhello" {
		t.Errorf("書き込み内容が一致しません: %q", buf.String())
	}
}

// TestStatusString は理由句をテストする
func TestStatusString(t *testing.T) {
	testCases := []struct {
		status Status
		code   int
		reason string
	}{
		{StatusOK, 200, "OK"},
		{StatusNotFound, 404, "NOT_FOUND"},
		{StatusForbidden, 403, "FORBIDDEN"},
	}

	for _, tc := range testCases {
		if tc.status.Code() != tc.code {
			t.Errorf("コードが一致しません: got %d, want %d", tc.status.Code(), tc.code)
		}
		if tc.status.String() != tc.reason {
			t.Errorf("理由句が一致しません: got %s, want %s", tc.status.String(), tc.reason)
		}
		if !tc.status.Valid() {
			t.Errorf("%d は既知のステータスのはずです", tc.code)
		}
	}

	if Status(500).Valid() {
		t.Error("500 は未知のステータスのはずです")
	}
}
