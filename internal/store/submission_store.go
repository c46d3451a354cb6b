package store

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"
)

const (
	// DefaultKey 提交记录所在的存储键
	DefaultKey = "bc_recent_submissions"
	// DefaultWindow 重复判定窗口
	DefaultWindow = 24 * time.Hour
	// DefaultMaxRecords 持久化记录上限
	DefaultMaxRecords = 100
)

// Record 一条提交签名记录，T 为写入时的毫秒时间戳
type Record struct {
	Signature string `json:"s"`
	Timestamp int64  `json:"t"`
}

// SubmissionStore 带时间窗口与容量上限的签名记录。
// 底层 KV 由所有实例共享且无锁，并发写入时后写覆盖先写。
type SubmissionStore struct {
	kv         KV
	key        string
	window     time.Duration
	maxRecords int
	now        func() time.Time
}

type Option func(*SubmissionStore)

func WithKey(key string) Option {
	return func(s *SubmissionStore) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

func WithWindow(window time.Duration) Option {
	return func(s *SubmissionStore) {
		if window > 0 {
			s.window = window
		}
	}
}

func WithMaxRecords(max int) Option {
	return func(s *SubmissionStore) {
		if max > 0 {
			s.maxRecords = max
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *SubmissionStore) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSubmissionStore(kv KV, opts ...Option) *SubmissionStore {
	s := &SubmissionStore{
		kv:         kv,
		key:        DefaultKey,
		window:     DefaultWindow,
		maxRecords: DefaultMaxRecords,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load 读取持久化记录；缺失、损坏或存储不可用时返回空列表
func (s *SubmissionStore) Load(ctx context.Context) []Record {
	if s.kv == nil {
		return []Record{}
	}
	raw, exists, err := s.kv.Get(ctx, s.key)
	if err != nil || !exists || strings.TrimSpace(raw) == "" {
		return []Record{}
	}

	var records []Record
	if err := json.Unmarshal([]byte(raw), &records); err != nil || records == nil {
		return []Record{}
	}
	return records
}

// Save 覆盖写入；失败只记录日志，去重退化为不拦截
func (s *SubmissionStore) Save(ctx context.Context, records []Record) {
	if s.kv == nil {
		return
	}
	if records == nil {
		records = []Record{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		log.Printf("编码提交记录失败: %v", err)
		return
	}
	if err := s.kv.Set(ctx, s.key, string(data)); err != nil {
		log.Printf("写入提交记录失败: %v", err)
	}
}

// Purge 丢弃年龄不小于窗口的记录，年龄恰好等于窗口视为过期
func Purge(records []Record, now time.Time, window time.Duration) []Record {
	nowMillis := now.UnixMilli()
	windowMillis := window.Milliseconds()

	kept := make([]Record, 0, len(records))
	for _, record := range records {
		if nowMillis-record.Timestamp < windowMillis {
			kept = append(kept, record)
		}
	}
	return kept
}

// Remember 追加一条签名记录，仅保留最近 maxRecords 条
func (s *SubmissionStore) Remember(ctx context.Context, signature string) {
	now := s.now()
	records := Purge(s.Load(ctx), now, s.window)
	records = append(records, Record{Signature: signature, Timestamp: now.UnixMilli()})
	if len(records) > s.maxRecords {
		records = records[len(records)-s.maxRecords:]
	}
	s.Save(ctx, records)
}

// IsDuplicate 判断窗口内是否已有相同签名，同时把清理后的列表写回
func (s *SubmissionStore) IsDuplicate(ctx context.Context, signature string) bool {
	records := s.Recent(ctx)
	for _, record := range records {
		if record.Signature == signature {
			return true
		}
	}
	return false
}

// Recent 返回窗口内的记录并写回清理结果
func (s *SubmissionStore) Recent(ctx context.Context) []Record {
	records := Purge(s.Load(ctx), s.now(), s.window)
	s.Save(ctx, records)
	return records
}

// Clear 清空全部记录
func (s *SubmissionStore) Clear(ctx context.Context) {
	s.Save(ctx, []Record{})
}

func (s *SubmissionStore) Window() time.Duration {
	return s.window
}
