// Package protocol は、静的ファイル応答で使うHTTPのごく一部を扱います。
//
// 責務:
//   - リクエストラインからリクエストターゲットを取り出す
//   - ステータス表（OK / NOT_FOUND / FORBIDDEN）の管理
//   - レスポンスをワイヤ形式のバイト列に整形する
//
// 仕様:
//   - ヘッダー、ボディ、keep-alive は扱わない
//   - 理由句は一般的なものではなく識別子そのもの（例: "NOT_FOUND"）
//   - Content-Length / Content-Type は付与しない
package protocol
