package ingest

import "errors"

// フェーズ実行で観測される失敗の分類。
// 一過性の失敗のみが再試行の対象になります。
var (
	// ErrTranscriptUnavailable は動画に利用可能な字幕がないことを表します（恒久的）
	ErrTranscriptUnavailable = errors.New("transcript unavailable")
	// ErrRateLimited は上流サービスのレート制限を表します（一過性）
	ErrRateLimited = errors.New("rate limited")
	// ErrNetwork はネットワーク到達性の失敗を表します（一過性）
	ErrNetwork = errors.New("network error")
	// ErrQuotaExceeded はAPIクォータの枯渇を表します（恒久的）
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrModelResponse はモデル出力が利用不能な形式であることを表します（恒久的）
	ErrModelResponse = errors.New("unusable model response")
)

// IsTransient は再試行で解消しうる失敗かどうかを判定します
func IsTransient(err error) bool {
	return errors.Is(err, ErrRateLimited) || errors.Is(err, ErrNetwork)
}
