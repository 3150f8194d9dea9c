// Package bedrock adapts Amazon Bedrock's ConverseStream API to the
// loop.ChatBackend interface, demonstrating the backend interface accepts
// more than one provider.
package bedrock

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"goa.design/skillsruntime/loop"
	"goa.design/skillsruntime/prompt"
)

// Backend implements loop.ChatBackend over bedrockruntime.Client.
type Backend struct {
	client  *bedrockruntime.Client
	modelID string
}

// New returns a Backend for the given Bedrock model ID.
func New(client *bedrockruntime.Client, modelID string) *Backend {
	return &Backend{client: client, modelID: modelID}
}

// ChatStream opens a ConverseStream request and relays its events as
// loop.Delta values. Tool-call argument JSON arrives split across one or
// more ContentBlockDeltaMemberToolUse events keyed by content block index;
// the loop buffers fragments per call_id, so they are forwarded as they
// arrive rather than assembled here.
func (b *Backend) ChatStream(ctx context.Context, compiled prompt.Compiled, toolResults []prompt.Message) (<-chan loop.Delta, error) {
	messages := []types.Message{
		{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: compiled.Task}},
		},
	}
	for _, m := range toolResults {
		messages = append(messages, types.Message{
			Role:    types.ConversationRoleUser,
			Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: m.Content}},
		})
	}

	out, err := b.client.ConverseStream(ctx, &bedrockruntime.ConverseStreamInput{
		ModelId:  aws.String(b.modelID),
		Messages: messages,
		System:   []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: compiled.System}},
	})
	if err != nil {
		if isContextLengthError(err) {
			deltas := make(chan loop.Delta, 1)
			deltas <- loop.Delta{Kind: loop.DeltaDone, ContextLengthExceeded: true}
			close(deltas)
			return deltas, nil
		}
		return nil, fmt.Errorf("bedrock: converse_stream: %w", err)
	}

	deltas := make(chan loop.Delta, 32)
	go drain(ctx, out.GetStream(), deltas)
	return deltas, nil
}

// toolBlock tracks the tool name for a content block index; the name only
// arrives on that block's content_block_start event, but every subsequent
// tool-use delta for the index needs it.
type toolBlock struct {
	id   string
	name string
}

func drain(ctx context.Context, stream *bedrockruntime.ConverseStreamEventStream, deltas chan<- loop.Delta) {
	defer close(deltas)
	defer stream.Close()

	toolBlocks := map[int32]*toolBlock{}
	send := func(d loop.Delta) bool {
		select {
		case <-ctx.Done():
			return false
		case deltas <- d:
			return true
		}
	}

	events := stream.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				if err := stream.Err(); err != nil {
					if isContextLengthError(err) {
						send(loop.Delta{Kind: loop.DeltaDone, ContextLengthExceeded: true})
						return
					}
					send(loop.Delta{Kind: loop.DeltaDone, Err: fmt.Errorf("bedrock: stream: %w", err)})
					return
				}
				send(loop.Delta{Kind: loop.DeltaDone})
				return
			}
			if !handleEvent(event, toolBlocks, send) {
				return
			}
		}
	}
}

func handleEvent(event types.ConverseStreamOutput, toolBlocks map[int32]*toolBlock, send func(loop.Delta) bool) bool {
	switch ev := event.(type) {
	case *types.ConverseStreamOutputMemberContentBlockStart:
		idx := ev.Value.ContentBlockIndex
		if idx == nil {
			return true
		}
		if toolUse, ok := ev.Value.Start.(*types.ContentBlockStartMemberToolUse); ok {
			toolBlocks[*idx] = &toolBlock{
				id:   aws.ToString(toolUse.Value.ToolUseId),
				name: aws.ToString(toolUse.Value.Name),
			}
		}
		return true
	case *types.ConverseStreamOutputMemberContentBlockDelta:
		idx := ev.Value.ContentBlockIndex
		if idx == nil {
			return true
		}
		switch delta := ev.Value.Delta.(type) {
		case *types.ContentBlockDeltaMemberText:
			if delta.Value == "" {
				return true
			}
			return send(loop.Delta{Kind: loop.DeltaText, Text: delta.Value})
		case *types.ContentBlockDeltaMemberToolUse:
			tb := toolBlocks[*idx]
			if tb == nil || delta.Value.Input == nil || *delta.Value.Input == "" {
				return true
			}
			return send(loop.Delta{Kind: loop.DeltaToolCall, CallID: tb.id, Tool: tb.name, Fragment: *delta.Value.Input})
		}
		return true
	case *types.ConverseStreamOutputMemberContentBlockStop:
		if ev.Value.ContentBlockIndex != nil {
			delete(toolBlocks, *ev.Value.ContentBlockIndex)
		}
		return true
	default:
		return true
	}
}

// isContextLengthError recognizes Bedrock's context-window validation
// error shape; kept generic since the exact exception type varies by model
// provider behind the Converse API.
func isContextLengthError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	const hint = "too long"
	for i := 0; i+len(hint) <= len(msg); i++ {
		if msg[i:i+len(hint)] == hint {
			return true
		}
	}
	return false
}
