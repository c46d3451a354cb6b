package security

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingHistory struct {
	seen       map[string]bool
	remembered []string
}

func (h *recordingHistory) IsDuplicate(_ context.Context, signature string) bool {
	return h.seen[signature]
}

func (h *recordingHistory) Remember(_ context.Context, signature string) {
	h.remembered = append(h.remembered, signature)
	h.seen[signature] = true
}

func TestCheckAndDecideDoesNotRemember(t *testing.T) {
	history := &recordingHistory{seen: map[string]bool{}}
	gate := NewDuplicateGate(history)

	assert.Equal(t, Fresh, gate.CheckAndDecide(context.Background(), "sig"))
	assert.Equal(t, Fresh, gate.CheckAndDecide(context.Background(), "sig"))
	assert.Empty(t, history.remembered)
}

func TestConfirmSuccessMakesDuplicate(t *testing.T) {
	history := &recordingHistory{seen: map[string]bool{}}
	gate := NewDuplicateGate(history)

	gate.ConfirmSuccess(context.Background(), "sig")

	assert.Equal(t, Duplicate, gate.CheckAndDecide(context.Background(), "sig"))
	assert.Equal(t, Fresh, gate.CheckAndDecide(context.Background(), "other"))
	assert.Equal(t, []string{"sig"}, history.remembered)
}

func TestNilGateIsFresh(t *testing.T) {
	var gate *DuplicateGate
	assert.Equal(t, Fresh, gate.CheckAndDecide(context.Background(), "sig"))
	assert.NotPanics(t, func() { gate.ConfirmSuccess(context.Background(), "sig") })
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "fresh", Fresh.String())
}

func TestFixedWindowLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewFixedWindowLimiter()
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow(ctx, "submit:1.2.3.4", 2, time.Minute))
	assert.True(t, limiter.Allow(ctx, "submit:1.2.3.4", 2, time.Minute))
	assert.False(t, limiter.Allow(ctx, "submit:1.2.3.4", 2, time.Minute))
	assert.True(t, limiter.Allow(ctx, "submit:5.6.7.8", 2, time.Minute))

	now = now.Add(time.Minute)
	assert.True(t, limiter.Allow(ctx, "submit:1.2.3.4", 2, time.Minute))
}

func TestLimiterRejectsNonPositiveLimit(t *testing.T) {
	assert.False(t, NewFixedWindowLimiter().Allow(context.Background(), "k", 0, time.Minute))
}

func TestRedisLimiterWithoutClientUsesMemory(t *testing.T) {
	limiter := NewRedisFixedWindowLimiter(nil, "test")

	assert.True(t, limiter.Allow(context.Background(), "k", 1, time.Minute))
	assert.False(t, limiter.Allow(context.Background(), "k", 1, time.Minute))
}
