package store

import (
	"context"
	"errors"
	"sync"
)

var ErrStorageUnavailable = errors.New("存储不可用")

// KV 持久化键值存储，所有实例共享同一份数据，不保证强一致
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV 进程内键值存储，仅当前进程共享
type MemoryKV struct {
	mu      sync.Mutex
	records map[string]string
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{records: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	value, exists := m.records[key]
	return value, exists, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = value
	return nil
}
