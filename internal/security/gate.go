package security

import "context"

// Decision 重复判定结果
type Decision int

const (
	Fresh Decision = iota
	Duplicate
)

func (d Decision) String() string {
	if d == Duplicate {
		return "duplicate"
	}
	return "fresh"
}

// SubmissionHistory 提交签名历史
type SubmissionHistory interface {
	IsDuplicate(ctx context.Context, signature string) bool
	Remember(ctx context.Context, signature string)
}

// DuplicateGate 两阶段去重：先 CheckAndDecide，上游确认成功后再 ConfirmSuccess。
// 失败的提交绝不能写入历史，否则用户重试会被误判为重复。
type DuplicateGate struct {
	history SubmissionHistory
}

func NewDuplicateGate(history SubmissionHistory) *DuplicateGate {
	return &DuplicateGate{history: history}
}

// CheckAndDecide 判定是否重复，不写入签名；底层存储可能顺带写回清理后的记录
func (g *DuplicateGate) CheckAndDecide(ctx context.Context, signature string) Decision {
	if g == nil || g.history == nil {
		return Fresh
	}
	if g.history.IsDuplicate(ctx, signature) {
		return Duplicate
	}
	return Fresh
}

// ConfirmSuccess 上游确认成功后记录签名
func (g *DuplicateGate) ConfirmSuccess(ctx context.Context, signature string) {
	if g == nil || g.history == nil {
		return
	}
	g.history.Remember(ctx, signature)
}
