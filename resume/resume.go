// Package resume rebuilds a starting point for a new run from a prior
// run's WAL, either by summarizing its terminal outcome or by replaying
// its tool results (assistant text is not rebuilt), and forks a WAL prefix
// onto a new run ID.
package resume

import (
	"context"
	"encoding/json"
	"fmt"

	"goa.design/skillsruntime/hooks"
	"goa.design/skillsruntime/prompt"
	"goa.design/skillsruntime/safety"
	"goa.design/skillsruntime/wal"
)

// Strategy selects how Resume reconstructs history from a prior run.
type Strategy string

const (
	StrategySummary Strategy = "summary"
	StrategyReplay  Strategy = "replay"
)

// Seed is what a new run starts from after a resume.
type Seed struct {
	History         []prompt.Message
	SessionApproved map[string]bool // approval keys restored as APPROVED_FOR_SESSION
}

// Resume reconstructs a Seed for priorRunID from store using strategy.
func Resume(ctx context.Context, strategy Strategy, priorRunID string, store wal.Store) (Seed, error) {
	records, err := store.ReadPrefix(ctx, priorRunID, -1)
	if err != nil {
		return Seed{}, fmt.Errorf("resume: read prior run: %w", err)
	}

	switch strategy {
	case StrategySummary:
		return summarize(records)
	case StrategyReplay:
		return replay(records)
	default:
		return Seed{}, fmt.Errorf("resume: unknown strategy %q", strategy)
	}
}

func summarize(records []wal.Record) (Seed, error) {
	var summary string
	for _, rec := range records {
		if rec.Envelope.Type != hooks.EventRunCompleted && rec.Envelope.Type != hooks.EventRunFailed {
			continue
		}
		var payload map[string]any
		if err := json.Unmarshal(rec.Envelope.Payload, &payload); err == nil {
			if msg, ok := payload["message"].(string); ok {
				summary = msg
			} else if b, err := json.Marshal(payload); err == nil {
				summary = string(b)
			}
		}
	}
	text := "[Resume Summary] " + summary
	return Seed{History: []prompt.Message{{Role: "user", Content: text}}}, nil
}

func replay(records []wal.Record) (Seed, error) {
	var history []prompt.Message
	approved := make(map[string]bool)

	for _, rec := range records {
		evt, err := hooks.Decode(rec.Envelope)
		if err != nil {
			continue
		}
		switch e := evt.(type) {
		case *hooks.ToolCallFinishedEvent:
			history = append(history, prompt.Message{Role: "tool", Content: string(e.Result), Turn: e.TurnID()})
		case *hooks.ApprovalDecidedEvent:
			if e.Decision == string(safety.DecisionApprovedForSession) {
				approved[e.ApprovalKey] = true
			}
		}
	}
	return Seed{History: history, SessionApproved: approved}, nil
}

// Fork copies the WAL prefix of runID up to forkSeq onto newRunID.
func Fork(ctx context.Context, store wal.Store, runID string, forkSeq int64, newRunID string) error {
	return store.Fork(ctx, runID, forkSeq, newRunID)
}
