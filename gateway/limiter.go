package gateway

import (
	"sync"
	"time"
)

// RateLimiter gates outbound REST requests.
type RateLimiter interface {
	Wait()
}

// TokenBucket 简单令牌桶：rate 每秒补充，burst 为上限。
type TokenBucket struct {
	mu     sync.Mutex
	rate   float64
	burst  float64
	tokens float64
	last   time.Time
}

func NewTokenBucket(rate float64, burst int) *TokenBucket {
	if rate <= 0 {
		rate = 1
	}
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		rate:   rate,
		burst:  float64(burst),
		tokens: float64(burst),
		last:   time.Now(),
	}
}

// Wait blocks until a token is available, then consumes it.
func (b *TokenBucket) Wait() {
	for {
		b.mu.Lock()
		now := time.Now()
		b.tokens += now.Sub(b.last).Seconds() * b.rate
		if b.tokens > b.burst {
			b.tokens = b.burst
		}
		b.last = now
		if b.tokens >= 1 {
			b.tokens--
			b.mu.Unlock()
			return
		}
		shortfall := time.Duration((1 - b.tokens) / b.rate * float64(time.Second))
		b.mu.Unlock()
		time.Sleep(shortfall + time.Millisecond)
	}
}
