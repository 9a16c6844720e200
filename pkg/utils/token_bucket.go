package utils

import (
	"sync"
	"time"
)

// TokenBucket 进程内令牌桶限流器
// 懒惰补充：每次取令牌时按流逝时间折算新增令牌，无后台协程
type TokenBucket struct {
	mu       sync.Mutex
	capacity int64 // 桶容量（突发上限）
	rate     int64 // 每秒补充令牌数
	tokens   float64
	lastFill time.Time
}

func NewTokenBucket(capacity, rate int64) *TokenBucket {
	if capacity <= 0 {
		capacity = 1
	}
	if rate <= 0 {
		rate = 1
	}
	return &TokenBucket{
		capacity: capacity,
		rate:     rate,
		tokens:   float64(capacity),
		lastFill: time.Now(),
	}
}

func (tb *TokenBucket) refillLocked(now time.Time) {
	elapsed := now.Sub(tb.lastFill).Seconds()
	if elapsed <= 0 {
		return
	}
	tb.tokens += elapsed * float64(tb.rate)
	if tb.tokens > float64(tb.capacity) {
		tb.tokens = float64(tb.capacity)
	}
	tb.lastFill = now
}

// TryTakeN 非阻塞取 n 个令牌
func (tb *TokenBucket) TryTakeN(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refillLocked(time.Now())
	if tb.tokens >= float64(n) {
		tb.tokens -= float64(n)
		return true
	}
	return false
}

// WaitN 最多等待 timeout 取 n 个令牌，超时返回 false
func (tb *TokenBucket) WaitN(n int64, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		if tb.TryTakeN(n) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(5 * time.Millisecond)
	}
}
