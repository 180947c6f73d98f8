package services

import (
	"log"
	"strings"
)

// ReturningMarker is a control token consumed by the prompt. When a session
// already contains at least one full exchange, it is prepended to the merged
// context so the model skips repeat greetings and name usage.
const ReturningMarker = "[RETURNING CONVERSATION - DO NOT GREET AGAIN]"

// ContextComposer merges caller-supplied context with session-derived history
// into the single context text used both for context-side retrieval and, once
// wrapped, for the prompt's context block.
type ContextComposer struct {
	store SessionStore
}

func NewContextComposer(store SessionStore) *ContextComposer {
	return &ContextComposer{store: store}
}

// Compose returns the merged context text. Session context is consulted when
// a session id is present and either no explicit context was supplied or the
// caller asked for history. Explicit context always comes first; the
// returning marker is prepended only when the session has real chat history
// (a saved context string alone does not count).
func (c *ContextComposer) Compose(explicitContext, sessionID string, useHistory bool) string {
	merged := explicitContext

	if sessionID != "" && (explicitContext == "" || useHistory) {
		sessionCtx, err := c.store.GetContext(sessionID)
		if err != nil {
			log.Printf("SERVICE: could not load session context for %q: %v", sessionID, err)
			sessionCtx = ""
		}
		if sessionCtx != "" {
			returning := IsReturningConversation(sessionCtx)
			if merged != "" {
				merged = merged + "\n\n" + sessionCtx
			} else {
				merged = sessionCtx
			}
			if returning {
				merged = ReturningMarker + "\n" + merged
			}
		}
	}

	return merged
}

// IsReturningConversation reports whether a composed session context contains
// at least one prior exchange, i.e. both a user line and an AI line.
func IsReturningConversation(sessionCtx string) bool {
	return strings.Contains(sessionCtx, "User:") && strings.Contains(sessionCtx, "AI:")
}

// ContextBlock wraps the merged context for the prompt, or returns an empty
// string when there is nothing to wrap.
func ContextBlock(merged string) string {
	if merged == "" {
		return ""
	}
	return "Additional Context:\n" + merged
}
