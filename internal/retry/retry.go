// Package retry は回数制限付きのリトライ処理を提供する。
// 待機時間は試行回数に比例して伸びる（n回目の失敗後は n×Step 待機）。
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Policy はリトライの回数と待機間隔を表す。
type Policy struct {
	// Attempts は初回を含む最大試行回数。1以下の場合はリトライしない。
	Attempts int
	// Step は線形バックオフの単位時間。
	Step time.Duration
	// OnRetry はリトライ前に呼ばれる。attemptは失敗した試行の番号（1始まり）。
	OnRetry func(attempt int, err error, wait time.Duration)
}

// Do はopの成功、Permanentエラー、試行回数の上限、ctxのキャンセルのいずれかまでopを繰り返す。
// 上限到達時は最後のエラーを返す。
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}

	failed := 0
	opts := []backoff.RetryOption{
		backoff.WithBackOff(&linearBackOff{step: p.Step}),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, wait time.Duration) {
			failed++
			if p.OnRetry != nil {
				p.OnRetry(failed, err, wait)
			}
		}),
	}

	return backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, opts...)
}

// Permanent はリトライせずに即座に返すべきエラーであることを示す。
func Permanent(err error) error {
	return backoff.Permanent(err)
}

// linearBackOff はn回目の呼び出しで n×step を返すbackoff.BackOff実装。
type linearBackOff struct {
	step time.Duration
	n    int
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return time.Duration(b.n) * b.step
}

func (b *linearBackOff) Reset() {
	b.n = 0
}
