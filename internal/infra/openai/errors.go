package openai

import (
	"errors"
	"fmt"

	"github.com/openai/openai-go/v3"

	"github.com/jinford/tubeseek/internal/core/ingest"
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

// classifyAPIError はAPIエラーを取り込みの失敗分類へ写像します。
// 再試行の判断は呼び出し側の共通ポリシーに委ねます。
func classifyAPIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429:
			return fmt.Errorf("%w: %v", ingest.ErrRateLimited, err)
		case apiErr.StatusCode == 402 || apiErr.Code == "insufficient_quota":
			return fmt.Errorf("%w: %v", ingest.ErrQuotaExceeded, err)
		case apiErr.StatusCode >= 500:
			return fmt.Errorf("%w: %v", ingest.ErrNetwork, err)
		}
		return err
	}
	// API層より手前の失敗は到達性の問題として扱う
	return fmt.Errorf("%w: %v", ingest.ErrNetwork, err)
}
