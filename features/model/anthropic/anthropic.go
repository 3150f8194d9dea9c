// Package anthropic adapts github.com/anthropics/anthropic-sdk-go's
// streaming Messages API to the loop.ChatBackend interface.
package anthropic

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"goa.design/skillsruntime/loop"
	"goa.design/skillsruntime/prompt"
)

// Backend implements loop.ChatBackend over the Anthropic Messages API.
type Backend struct {
	client anthropic.Client
	model  anthropic.Model
}

// New returns a Backend authenticated with apiKey, targeting model.
func New(apiKey string, model anthropic.Model) *Backend {
	return &Backend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
	}
}

// ChatStream opens a streaming Messages request and relays its deltas.
// Argument JSON for a tool_use block arrives split across one or more
// input_json_delta events; the loop buffers them per call_id, so they are
// forwarded as DeltaToolCall fragments as they arrive.
func (b *Backend) ChatStream(ctx context.Context, compiled prompt.Compiled, toolResults []prompt.Message) (<-chan loop.Delta, error) {
	messages := []anthropic.MessageParam{
		anthropic.NewUserMessage(anthropic.NewTextBlock(compiled.Task)),
	}
	for _, m := range toolResults {
		messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
	}

	stream := b.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: 4096,
		System:    []anthropic.TextBlockParam{{Text: compiled.System}},
		Messages:  messages,
	})

	deltas := make(chan loop.Delta, 32)
	go b.drain(ctx, stream, deltas)
	return deltas, nil
}

// toolBlock tracks the tool name for a tool_use content block index; the
// name only arrives on the block's content_block_start event, but every
// subsequent input_json_delta for that index needs it.
type toolBlock struct {
	id   string
	name string
}

func (b *Backend) drain(ctx context.Context, stream *anthropic.MessageStream, deltas chan<- loop.Delta) {
	defer close(deltas)
	defer stream.Close()

	toolBlocks := map[int64]*toolBlock{}
	send := func(d loop.Delta) bool {
		select {
		case <-ctx.Done():
			return false
		case deltas <- d:
			return true
		}
	}

	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockStartEvent:
			if toolUse, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
				toolBlocks[ev.Index] = &toolBlock{id: toolUse.ID, name: toolUse.Name}
			}
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if delta.Text != "" && !send(loop.Delta{Kind: loop.DeltaText, Text: delta.Text}) {
					return
				}
			case anthropic.InputJSONDelta:
				tb := toolBlocks[ev.Index]
				if tb == nil || delta.PartialJSON == "" {
					continue
				}
				if !send(loop.Delta{Kind: loop.DeltaToolCall, CallID: tb.id, Tool: tb.name, Fragment: delta.PartialJSON}) {
					return
				}
			}
		case anthropic.ContentBlockStopEvent:
			delete(toolBlocks, ev.Index)
		}
	}

	if err := stream.Err(); err != nil {
		if isContextLengthError(err) {
			send(loop.Delta{Kind: loop.DeltaDone, ContextLengthExceeded: true})
			return
		}
		send(loop.Delta{Kind: loop.DeltaDone, Err: fmt.Errorf("anthropic: stream: %w", err)})
		return
	}
	send(loop.Delta{Kind: loop.DeltaDone})
}

// isContextLengthError recognizes the provider's context-window error
// shape; a real deployment refines this against the SDK's typed API
// errors, kept generic here since the SDK's error taxonomy is versioned
// independently of this adapter.
func isContextLengthError(err error) bool {
	return err != nil && len(err.Error()) > 0 && containsContextLengthHint(err.Error())
}

func containsContextLengthHint(msg string) bool {
	const hint = "context"
	for i := 0; i+len(hint) <= len(msg); i++ {
		if msg[i:i+len(hint)] == hint {
			return true
		}
	}
	return false
}
