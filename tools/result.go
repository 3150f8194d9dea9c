package tools

import (
	"encoding/json"

	"goa.design/skillsruntime/runerror"
)

// Call is a single tool invocation requested by the model.
type Call struct {
	ID        string
	Tool      Ident
	Arguments json.RawMessage
}

// Result is the normalized outcome of a dispatched Call.
type Result struct {
	CallID    string
	Status    Status
	Data      map[string]any
	Output    json.RawMessage
	ErrorKind runerror.Kind
	Error     string

	// Terminal marks a result that must end the run instead of feeding a
	// tool message back into the next turn. TerminalKind is the run-level
	// error_kind to close the run with, which can differ from the
	// tool-call-level ErrorKind shown on tool_call_finished (an ASK tool
	// with no approval provider configured surfaces as "permission" on
	// the tool call but fails the run with "config_error").
	Terminal     bool
	TerminalKind runerror.Kind
}
