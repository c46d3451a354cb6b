package signature

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// AlgorithmSHA256 摘要算法名
const AlgorithmSHA256 = "SHA-256"

var ErrUnsupportedAlgorithm = errors.New("不支持的摘要算法")

// Digester 摘要原语，运行环境中可能不存在
type Digester interface {
	Digest(algorithm string, data []byte) ([]byte, error)
}

// SHA256Digester 基于 crypto/sha256 的摘要实现
type SHA256Digester struct{}

func (SHA256Digester) Digest(algorithm string, data []byte) ([]byte, error) {
	if algorithm != AlgorithmSHA256 {
		return nil, ErrUnsupportedAlgorithm
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

// DigestCapability 摘要能力探测结果
type DigestCapability int

const (
	Unavailable DigestCapability = iota
	Available
)

func (c DigestCapability) String() string {
	if c == Available {
		return "available"
	}
	return "unavailable"
}

// DetectCapability 探测一次摘要原语是否可用
func DetectCapability(digester Digester) DigestCapability {
	if digester == nil {
		return Unavailable
	}
	if _, err := digester.Digest(AlgorithmSHA256, nil); err != nil {
		return Unavailable
	}
	return Available
}

// Hasher 把规范化字符串转换为可落盘的签名。
// 摘要不可用时退化为明文签名，去重行为不变，只是不再脱敏。
type Hasher struct {
	digester   Digester
	capability DigestCapability
}

func NewHasher(digester Digester) *Hasher {
	return &Hasher{
		digester:   digester,
		capability: DetectCapability(digester),
	}
}

func (h *Hasher) Capability() DigestCapability {
	if h == nil {
		return Unavailable
	}
	return h.capability
}

// Hash 返回小写十六进制 SHA-256，失败时返回原文，从不报错
func (h *Hasher) Hash(canonical string) string {
	if h.Capability() != Available {
		return canonical
	}
	digest, err := h.digester.Digest(AlgorithmSHA256, []byte(canonical))
	if err != nil || len(digest) == 0 {
		return canonical
	}
	return hex.EncodeToString(digest)
}

// Sign 计算表单签名
func (h *Hasher) Sign(form FormState) string {
	return h.Hash(Canonical(form))
}
