package gateway

import (
	"testing"
	"time"
)

func TestTokenBucketBurst(t *testing.T) {
	b := NewTokenBucket(100, 2)

	start := time.Now()
	b.Wait()
	b.Wait()
	if elapsed := time.Since(start); elapsed > 5*time.Millisecond {
		t.Errorf("burst waits should be immediate, took %v", elapsed)
	}
}

func TestTokenBucketThrottles(t *testing.T) {
	b := NewTokenBucket(50, 1) // 补充一个令牌需要 20ms

	b.Wait()
	start := time.Now()
	b.Wait()
	if elapsed := time.Since(start); elapsed < 10*time.Millisecond {
		t.Errorf("second wait should block for a refill, took %v", elapsed)
	}
}

func TestTokenBucketDefaults(t *testing.T) {
	b := NewTokenBucket(0, 0)
	// 非法参数回落到最小可用配置，首个令牌立即可用
	done := make(chan struct{})
	go func() {
		b.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait with default config should return promptly")
	}
}
