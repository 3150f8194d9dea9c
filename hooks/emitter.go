package hooks

import (
	"context"
	"fmt"

	"goa.design/skillsruntime/wal"
)

// Emitter is the single path every component uses to record an event: it
// durably appends to the WAL, then fans the event out to the Bus. WAL
// append failure is fatal (returned to the caller); bus fan-out is
// fail-open and never returns an error from Emit.
type Emitter struct {
	Store wal.Store
	Bus   Bus
}

// NewEmitter wires a wal.Store and Bus together.
func NewEmitter(store wal.Store, bus Bus) *Emitter {
	return &Emitter{Store: store, Bus: bus}
}

// Emit durably appends evt for runID, then publishes it on the Bus.
func (e *Emitter) Emit(ctx context.Context, runID string, evt Event) error {
	env, err := Encode(evt)
	if err != nil {
		return fmt.Errorf("hooks: encode event: %w", err)
	}
	if _, err := e.Store.Append(ctx, runID, env); err != nil {
		return fmt.Errorf("hooks: append event: %w", err)
	}
	return e.Bus.Publish(ctx, evt)
}
