// Package retry は外部コラボレータ呼び出しに共通の有界リトライポリシーを提供します。
// ダウンロードやAPI呼び出しごとに散在していたリトライ処理をここに集約します。
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts はデフォルトの最大試行回数（初回を含む）
	DefaultMaxAttempts = 3
	// DefaultBaseDelay はExponential Backoffの基底時間
	DefaultBaseDelay = 2 * time.Second
	// DefaultMaxDelay はExponential Backoffの最大待機時間
	DefaultMaxDelay = 32 * time.Second
)

// ErrAttemptsExhausted は最大試行回数を使い切った場合のエラー
var ErrAttemptsExhausted = errors.New("retry attempts exhausted")

// Policy は有界リトライポリシーを表します
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultPolicy はデフォルトのポリシーを返します
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
	}
}

// Do はopを実行し、isTransientが真を返すエラーに限りバックオフ付きで再試行します。
// 恒久的なエラーは即座に返します。
func (p Policy) Do(ctx context.Context, isTransient func(error) bool, op func() error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	baseDelay := p.BaseDelay
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	maxDelay := p.MaxDelay
	if maxDelay <= 0 {
		maxDelay = DefaultMaxDelay
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = baseDelay
	exp.MaxInterval = maxDelay
	exp.MaxElapsedTime = 0

	var lastErr error
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if isTransient != nil && !isTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(maxAttempts-1)), ctx)
	if err := backoff.Retry(wrapped, policy); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if lastErr != nil && (isTransient == nil || isTransient(lastErr)) {
			return fmt.Errorf("%w after %d attempts: %w", ErrAttemptsExhausted, maxAttempts, lastErr)
		}
		return err
	}
	return nil
}
