package protocol

import (
	"errors"
	"io"
	"strconv"
	"strings"
)

// ErrBlankLocation はリダイレクト先が空のときに返される
var ErrBlankLocation = errors.New("リダイレクト先が空です")

// Response は1接続につき1回だけ書き込まれるレスポンス
type Response struct {
	Status   Status
	Body     string
	Location string // 空でなければ Location ヘッダーを出力する
}

// NewResponse はヘッダーなしのレスポンスを作成する
func NewResponse(status Status, body string) Response {
	return Response{Status: status, Body: body}
}

// NewRedirect は Location ヘッダー付きのレスポンスを作成する
func NewRedirect(status Status, body, location string) (Response, error) {
	if strings.TrimSpace(location) == "" {
		return Response{}, ErrBlankLocation
	}
	return Response{Status: status, Body: body, Location: location}, nil
}

// Format はレスポンスをワイヤ形式に整形する
//
//	HTTP/1.1 <code> <reason>\r\n
//	[Location: <url>\r\n]
//	\r\n
//	<body>
func Format(r Response) []byte {
	buf := make([]byte, 0, 32+len(r.Location)+len(r.Body))
	buf = append(buf, "HTTP/1.1 "...)
	buf = strconv.AppendInt(buf, int64(r.Status.Code()), 10)
	buf = append(buf, ' ')
	buf = append(buf, r.Status.String()...)
	buf = append(buf, "\r\n"...)
	if r.Location != "" {
		buf = append(buf, "Location: "...)
		buf = append(buf, r.Location...)
		buf = append(buf, "\r\n"...)
	}
	buf = append(buf, "\r\n"...)
	buf = append(buf, r.Body...)
	return buf
}

// WriteTo はレスポンスを w に書き込む
func (r Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(Format(r))
	return int64(n), err
}
