package loop

import (
	"context"
	"encoding/json"

	"goa.design/skillsruntime/prompt"
)

// ToolRequest is a tool call the model asked the loop to dispatch, built up
// from one or more DeltaToolCall fragments for the same CallID.
type ToolRequest struct {
	CallID    string
	Tool      string
	Arguments json.RawMessage
}

// DeltaKind identifies the kind of incremental event a ChatBackend emits
// while streaming one turn.
type DeltaKind int

const (
	// DeltaText carries a fragment of assistant text.
	DeltaText DeltaKind = iota
	// DeltaToolCall carries a fragment of a tool call's argument JSON.
	DeltaToolCall
	// DeltaDone closes out the turn, successfully or not.
	DeltaDone
)

// Delta is one incremental event read off a ChatBackend's stream. Tool-call
// argument fragments arrive keyed by CallID and accumulate until the
// stream's final DeltaDone; Tool is read from the first delta of a CallID,
// and later fragments for that CallID may leave it empty.
type Delta struct {
	Kind DeltaKind

	// Text is set when Kind == DeltaText.
	Text string

	// CallID, Tool, and Fragment are set when Kind == DeltaToolCall.
	CallID   string
	Tool     string
	Fragment string

	// ContextLengthExceeded and Err are set when Kind == DeltaDone.
	ContextLengthExceeded bool
	Err                   error
}

// ChatBackend is the external LLM collaborator. Concrete adapters live
// under features/model/*. ChatStream opens a streaming turn and returns a
// channel of incremental deltas that is closed once the turn finishes; the
// last value delivered before the channel closes is always a DeltaDone.
type ChatBackend interface {
	ChatStream(ctx context.Context, compiled prompt.Compiled, toolResults []prompt.Message) (<-chan Delta, error)
}
