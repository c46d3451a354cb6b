package security

import (
	"context"
	"sync"
	"time"
)

// RateLimiter 按 key 限制窗口内的请求次数
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) bool
}

type fixedWindowRecord struct {
	WindowStart time.Time
	Count       int
}

// FixedWindowLimiter 固定窗口限流器
type FixedWindowLimiter struct {
	mu      sync.Mutex
	records map[string]fixedWindowRecord
	now     func() time.Time
}

func NewFixedWindowLimiter() *FixedWindowLimiter {
	return &FixedWindowLimiter{
		records: make(map[string]fixedWindowRecord),
		now:     time.Now,
	}
}

func (l *FixedWindowLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) bool {
	if limit <= 0 {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	record, exists := l.records[key]
	if !exists || now.Sub(record.WindowStart) >= window {
		l.records[key] = fixedWindowRecord{WindowStart: now, Count: 1}
		l.cleanupExpired(now, window)
		return true
	}

	if record.Count >= limit {
		return false
	}

	record.Count++
	l.records[key] = record
	return true
}

func (l *FixedWindowLimiter) cleanupExpired(now time.Time, window time.Duration) {
	for key, record := range l.records {
		if now.Sub(record.WindowStart) >= window*2 {
			delete(l.records, key)
		}
	}
}
