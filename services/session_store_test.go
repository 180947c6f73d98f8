package services

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetContextRendersContextAndTurns(t *testing.T) {
	store := NewMemorySessionStore()

	require.NoError(t, store.SaveContext("s1", "Born 1990, Delhi"))
	require.NoError(t, store.AppendTurn("s1", "Will my career improve?", "Saturn suggests delays until March."))

	ctx, err := store.GetContext("s1")
	require.NoError(t, err)

	assert.Equal(t,
		"User-provided context:\nBorn 1990, Delhi\n\n"+
			"User: Will my career improve?\nAI: Saturn suggests delays until March.",
		ctx)
}

func TestGetContextSkipsEmptyAIMessage(t *testing.T) {
	store := NewMemorySessionStore()

	require.NoError(t, store.AppendTurn("s1", "hello", ""))

	ctx, err := store.GetContext("s1")
	require.NoError(t, err)
	assert.Equal(t, "User: hello", ctx)
}

func TestGetContextKeepsOnlyLastSixTurns(t *testing.T) {
	store := NewMemorySessionStore()

	for i := 1; i <= 10; i++ {
		require.NoError(t, store.AppendTurn("s1", fmt.Sprintf("question %d", i), fmt.Sprintf("answer %d", i)))
	}

	ctx, err := store.GetContext("s1")
	require.NoError(t, err)

	assert.NotContains(t, ctx, "question 4")
	for i := 5; i <= 10; i++ {
		assert.Contains(t, ctx, fmt.Sprintf("question %d", i))
	}

	// chronological order preserved
	assert.Less(t, strings.Index(ctx, "question 5"), strings.Index(ctx, "question 10"))
}

func TestGetContextUnknownSession(t *testing.T) {
	store := NewMemorySessionStore()

	ctx, err := store.GetContext("nope")
	require.NoError(t, err)
	assert.Empty(t, ctx)

	ctx, err = store.GetContext("")
	require.NoError(t, err)
	assert.Empty(t, ctx)
}

func TestClearRemovesAllState(t *testing.T) {
	store := NewMemorySessionStore()

	require.NoError(t, store.SaveContext("s1", "some context"))
	require.NoError(t, store.AppendTurn("s1", "hi", "hello"))
	require.NoError(t, store.AdvanceStage("s1", StageRemedy))

	require.NoError(t, store.Clear("s1"))

	ctx, err := store.GetContext("s1")
	require.NoError(t, err)
	assert.Empty(t, ctx)

	stage, err := store.Stage("s1")
	require.NoError(t, err)
	assert.Equal(t, StageGreeting, stage)
}

func TestEmptySessionIDIsNoOp(t *testing.T) {
	store := NewMemorySessionStore()

	require.NoError(t, store.SaveContext("", "ignored"))
	require.NoError(t, store.AppendTurn("", "ignored", "ignored"))
	require.NoError(t, store.Clear(""))
}

func TestStageNeverMovesBackwards(t *testing.T) {
	store := NewMemorySessionStore()

	require.NoError(t, store.AdvanceStage("s1", StageRemedy))
	require.NoError(t, store.AdvanceStage("s1", StageAnalysis))

	stage, err := store.Stage("s1")
	require.NoError(t, err)
	assert.Equal(t, StageRemedy, stage)
}

func TestConcurrentAppendsNeverDropTurns(t *testing.T) {
	store := NewMemorySessionStore()

	const goroutines = 20
	const perGoroutine = 50

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				_ = store.AppendTurn("stress", fmt.Sprintf("msg %d-%d", g, i), "ok")
			}
		}(g)
	}
	wg.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.sessions["stress"].history, goroutines*perGoroutine)
}
