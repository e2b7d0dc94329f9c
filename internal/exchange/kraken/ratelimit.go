package kraken

import (
	"context"
	"sync"
	"time"
)

// RateLimiter는 연속된 두 요청 사이의 최소 간격을 강제합니다.
// 공개/개인 API 요청이 하나의 리미터를 공유합니다.
type RateLimiter struct {
	mu          sync.Mutex
	minInterval time.Duration
	lastRequest time.Time
}

// NewRateLimiter는 새로운 레이트 리미터를 생성합니다
func NewRateLimiter(minInterval time.Duration) *RateLimiter {
	return &RateLimiter{
		minInterval: minInterval,
	}
}

// Wait는 직전 요청 이후 최소 간격이 지날 때까지 대기합니다
func (r *RateLimiter) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		wait := r.minInterval - time.Since(r.lastRequest)
		if wait <= 0 {
			r.lastRequest = time.Now()
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}
