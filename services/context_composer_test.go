package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposeNoSession(t *testing.T) {
	composer := NewContextComposer(NewMemorySessionStore())

	assert.Equal(t, "my context", composer.Compose("my context", "", false))
	assert.Empty(t, composer.Compose("", "", false))
}

func TestComposeSessionWithoutTurnsIsNotReturning(t *testing.T) {
	store := NewMemorySessionStore()
	require.NoError(t, store.SaveContext("s1", "born in Delhi"))
	composer := NewContextComposer(store)

	merged := composer.Compose("", "s1", false)

	assert.Contains(t, merged, "User-provided context:\nborn in Delhi")
	assert.NotContains(t, merged, ReturningMarker)
}

func TestComposeReturningConversation(t *testing.T) {
	store := NewMemorySessionStore()
	require.NoError(t, store.AppendTurn("s1", "will it delay my marriage?", "Saturn indicates a delay."))
	composer := NewContextComposer(store)

	merged := composer.Compose("", "s1", false)

	assert.True(t, strings.HasPrefix(merged, ReturningMarker+"\n"))
	assert.Contains(t, merged, "User: will it delay my marriage?")
	assert.Contains(t, merged, "AI: Saturn indicates a delay.")
}

func TestComposeExplicitContextComesFirst(t *testing.T) {
	store := NewMemorySessionStore()
	require.NoError(t, store.AppendTurn("s1", "hi", "hello"))
	composer := NewContextComposer(store)

	merged := composer.Compose("explicit details", "s1", true)

	// marker, then explicit context, then session context
	assert.True(t, strings.HasPrefix(merged, ReturningMarker+"\n"+"explicit details\n\n"))
	assert.Contains(t, merged, "User: hi")
}

func TestComposeExplicitContextSkipsSessionUnlessHistoryRequested(t *testing.T) {
	store := NewMemorySessionStore()
	require.NoError(t, store.AppendTurn("s1", "hi", "hello"))
	composer := NewContextComposer(store)

	merged := composer.Compose("explicit details", "s1", false)

	assert.Equal(t, "explicit details", merged)
}

func TestContextBlockWrapping(t *testing.T) {
	assert.Empty(t, ContextBlock(""))
	assert.Equal(t, "Additional Context:\nsome text", ContextBlock("some text"))
}

func TestIsReturningConversation(t *testing.T) {
	assert.False(t, IsReturningConversation("User-provided context:\nborn in Delhi"))
	assert.False(t, IsReturningConversation("User: hi"))
	assert.True(t, IsReturningConversation("User: hi\nAI: hello"))
}
