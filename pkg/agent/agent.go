package agent

import (
	"context"
)

// Turn is the outcome of one conversational exchange with the reasoning
// capability: either a plain reply, or a structured intent the orchestrator
// must execute (Reply may still carry interim text in that case).
type Turn struct {
	Reply  string
	Intent *Intent
}

// Provider is the contract for the external conversational reasoning
// capability. It performs no business logic: it only translates between the
// backend's wire format and the Turn/Intent schema. Implementations must be
// safe for concurrent use.
type Provider interface {
	// EnsureAssistant verifies the configured assistant identity exists,
	// creating it when missing. Idempotent; called once at startup.
	EnsureAssistant(ctx context.Context) (string, error)

	// CreateThread allocates a new conversation context and returns its
	// opaque handle.
	CreateThread(ctx context.Context) (string, error)

	// Converse appends the user utterance to the thread and runs the
	// assistant over the full remote history. This is the one slow,
	// cancellable call in the pipeline; honor ctx deadlines.
	Converse(ctx context.Context, threadHandle, utterance string) (*Turn, error)
}
