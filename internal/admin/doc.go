// Package admin は運用向けの管理用HTTPサーバーを提供します。
//
// 静的ファイルサーバー本体とは別のポートで動き、状態の確認に使います。
//
// 責務:
//   - ヘルスチェック（/health）
//   - サーバーとワーカープールの状態（/api/status）
//   - Prometheus メトリクス（/metrics）
//   - 状態を表示する簡単なページ（/）
//
// 仕様:
//   - ルーティングには gin を使用
//   - グレースフルシャットダウンに対応（5秒のタイムアウト）
package admin
