package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileKV 以 JSON 文件持久化键值，同一数据目录下的所有进程共享。
// 每次读写都重新读取文件，以便看到其他进程的写入；跨进程无锁，后写覆盖先写。
type FileKV struct {
	mu   sync.Mutex
	file string
}

type kvFile struct {
	Records map[string]string `json:"records"`
}

func NewFileKV(dataDir string) (*FileKV, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	return &FileKV{file: filepath.Join(dataDir, "storage.json")}, nil
}

// Path 返回数据文件路径
func (s *FileKV) Path() string {
	return s.file
}

func (s *FileKV) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return "", false, err
	}
	value, exists := records[key]
	return value, exists, nil
}

func (s *FileKV) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		// 文件损坏时以空数据重建
		records = make(map[string]string)
	}
	records[key] = value
	return s.save(records)
}

func (s *FileKV) load() (map[string]string, error) {
	data, err := os.ReadFile(s.file)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("读取存储文件失败: %w", err)
	}

	var payload kvFile
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("解析存储文件失败: %w", err)
	}

	if payload.Records == nil {
		payload.Records = make(map[string]string)
	}
	return payload.Records, nil
}

func (s *FileKV) save(records map[string]string) error {
	data, err := json.MarshalIndent(kvFile{Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("编码存储文件失败: %w", err)
	}

	// 每次写入使用独立临时文件，并发写入时整文件后写覆盖先写
	tmp, err := os.CreateTemp(filepath.Dir(s.file), "storage-*.tmp")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("写入存储文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("写入存储文件失败: %w", err)
	}
	if err := os.Rename(tmpName, s.file); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("替换存储文件失败: %w", err)
	}
	return nil
}
