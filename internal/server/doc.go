// Package server は静的ファイルを返すTCPサーバーを管理します。
//
// このパッケージは、接続の受け付け、ワーカープールへの投入、
// 1接続ごとのリクエスト処理を担当します。
//
// 責務:
//   - ポートのバインドと accept ループ
//   - 受け付けた接続をタスクとしてワーカープールに投入する
//   - リクエストラインの読み込み、パスの解決、ファイルの送信
//   - 接続のクローズとログ出力
//
// 仕様:
//   - 1接続につき1リクエストのみ処理し、応答後に閉じる
//   - 不正なリクエストラインとルート外のパスには 403 を返す
//   - 読み込めないファイルには 404 ページを返す（ステータスラインは設定で選択）
//   - accept の失敗はログに出して続行する
//   - 停止時はリスナーを閉じ、キューに残った接続は処理しない
package server
