package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePoster records Post and Edit calls.
type fakePoster struct {
	mu      sync.Mutex
	ops     []string
	postErr error
	editErr error
}

func (p *fakePoster) Post(_ context.Context, text string) (string, string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.postErr != nil {
		return "", "", p.postErr
	}
	p.ops = append(p.ops, "post:"+text)
	return "chan-1", "msg-1", nil
}

func (p *fakePoster) Edit(_ context.Context, channelID, messageID, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.editErr != nil {
		return p.editErr
	}
	p.ops = append(p.ops, fmt.Sprintf("edit:%s/%s:%s", channelID, messageID, text))
	return nil
}

func (p *fakePoster) Ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.ops...)
}

func TestReconciler_FinalTextWins(t *testing.T) {
	p := &fakePoster{}
	rec := NewStreamReconciler(context.Background(), 0, p, testLogger())

	rec.OnDelta("He")
	rec.OnDelta("llo")
	require.Eventually(t, rec.Posted, time.Second, 5*time.Millisecond)
	channelID, messageID, err := rec.Finalize("Hello!")
	require.NoError(t, err)

	assert.Equal(t, "chan-1", channelID)
	assert.Equal(t, "msg-1", messageID)
	ops := p.Ops()
	require.GreaterOrEqual(t, len(ops), 2)
	assert.Contains(t, ops[0], "post:")
	assert.Equal(t, "edit:chan-1/msg-1:Hello!", ops[len(ops)-1])
}

func TestReconciler_ThrottledEditsCollapse(t *testing.T) {
	p := &fakePoster{}
	rec := NewStreamReconciler(context.Background(), time.Hour, p, testLogger())

	rec.OnDelta("a")
	require.Eventually(t, rec.Posted, time.Second, 5*time.Millisecond)

	rec.OnDelta("b")
	rec.OnDelta("c")
	_, _, err := rec.Finalize("abc!")
	require.NoError(t, err)

	assert.Equal(t, []string{"post:a", "edit:chan-1/msg-1:abc!"}, p.Ops())
}

func TestReconciler_IgnoresDeltasAfterFinalize(t *testing.T) {
	p := &fakePoster{}
	rec := NewStreamReconciler(context.Background(), 0, p, testLogger())

	_, _, err := rec.Finalize("done")
	require.NoError(t, err)
	rec.OnDelta("late")

	_, _, err = rec.Finalize("ignored")
	require.NoError(t, err)
	assert.Equal(t, []string{"post:done"}, p.Ops())
}

func TestReconciler_HidesUnclosedDirective(t *testing.T) {
	p := &fakePoster{}
	rec := NewStreamReconciler(context.Background(), 0, p, testLogger())

	rec.OnDelta("Hi %%wa")
	require.Eventually(t, rec.Posted, time.Second, 5*time.Millisecond)
	_, _, err := rec.Finalize("Hi")
	require.NoError(t, err)

	assert.Equal(t, []string{"post:Hi"}, p.Ops())
}

func TestReconciler_AbortsOnPostError(t *testing.T) {
	p := &fakePoster{postErr: errors.New("missing permissions")}
	rec := NewStreamReconciler(context.Background(), 0, p, testLogger())

	rec.OnDelta("text")
	_, _, err := rec.Finalize("text and more")
	assert.EqualError(t, err, "missing permissions")
	assert.Empty(t, p.Ops())
}

func TestReconciler_AbortSkipsLaterEdits(t *testing.T) {
	p := &fakePoster{}
	rec := NewStreamReconciler(context.Background(), 0, p, testLogger())

	rec.OnDelta("one")
	require.Eventually(t, rec.Posted, time.Second, 5*time.Millisecond)

	p.mu.Lock()
	p.editErr = errors.New("unknown message")
	p.mu.Unlock()

	rec.OnDelta(" two")
	_, _, err := rec.Finalize("one two three")
	assert.Error(t, err)
	assert.Equal(t, []string{"post:one"}, p.Ops())
}

func TestReconciler_EmptyFinalizeSendsNothing(t *testing.T) {
	p := &fakePoster{}
	rec := NewStreamReconciler(context.Background(), 0, p, testLogger())

	channelID, messageID, err := rec.Finalize("   ")
	require.NoError(t, err)
	assert.Empty(t, channelID)
	assert.Empty(t, messageID)
	assert.False(t, rec.Posted())
	assert.Empty(t, p.Ops())
}

func TestReconciler_CancelledContextStillFinalizes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := &fakePoster{}
	rec := NewStreamReconciler(ctx, time.Hour, p, testLogger())
	cancel()

	rec.OnDelta("x")
	_, _, err := rec.Finalize("final")
	require.NoError(t, err)
	assert.Equal(t, []string{"post:final"}, p.Ops())
}

func TestReconciler_ExitsWhenContextEndsWithoutFinalize(t *testing.T) {
	old := finalGrace
	finalGrace = 10 * time.Millisecond
	t.Cleanup(func() { finalGrace = old })

	ctx, cancel := context.WithCancel(context.Background())
	p := &fakePoster{}
	rec := NewStreamReconciler(ctx, 0, p, testLogger())
	rec.OnDelta("partial")
	require.Eventually(t, rec.Posted, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-rec.done:
	case <-time.After(time.Second):
		t.Fatal("reconciler still running after its context ended")
	}
	assert.Equal(t, []string{"post:partial"}, p.Ops())
}
