package client

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// RetryPolicy 固定間隔重試，三個外部 client 共用
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
	// Retryable 判斷這次結果是否值得重試；statusCode 為 0 表示連線層錯誤
	Retryable func(statusCode int, err error) bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Attempts:  3,
		Delay:     500 * time.Millisecond,
		Retryable: RetryOnTransientFailure,
	}
}

// RetryOnTransientFailure 連線錯誤、429 與 5xx 才重試
func RetryOnTransientFailure(statusCode int, err error) bool {
	if statusCode == 0 {
		if err == nil {
			return false
		}
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	return statusCode == http.StatusTooManyRequests || statusCode >= http.StatusInternalServerError
}

// Do 執行 fn 直到成功、不可重試或用完次數
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) (int, error)) (int, error) {
	attempts := p.Attempts
	if attempts < 1 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = RetryOnTransientFailure
	}

	var (
		status int
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		status, err = fn(ctx)
		if err == nil {
			return status, nil
		}
		if attempt == attempts || !retryable(status, err) {
			return status, err
		}

		timer := time.NewTimer(p.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return status, errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return status, err
}
