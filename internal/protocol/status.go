package protocol

import "strconv"

// Status はレスポンスのステータスを表す
type Status int

const (
	StatusOK        Status = 200 // 正常
	StatusForbidden Status = 403 // アクセス拒否（不正なリクエストやルート外のパス）
	StatusNotFound  Status = 404 // ファイルが見つからない
)

// Code はHTTPステータスコードを返す
func (s Status) Code() int {
	return int(s)
}

// String はステータスラインに書く理由句を返す
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusForbidden:
		return "FORBIDDEN"
	case StatusNotFound:
		return "NOT_FOUND"
	default:
		return "STATUS_" + strconv.Itoa(int(s))
	}
}

// Valid は既知のステータスかどうかを返す
func (s Status) Valid() bool {
	switch s {
	case StatusOK, StatusForbidden, StatusNotFound:
		return true
	}
	return false
}
