// Package tools implements the tool registry and dispatcher: the catalogue
// of callable tools, JSON-Schema argument validation, and the pipeline that
// turns a requested call into a normalized Result.
package tools

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Ident is a tool's unique name, e.g. "shell_exec".
type Ident string

// ServerDataAudience controls who may see a piece of server-attached data.
type ServerDataAudience string

const (
	AudienceTimeline ServerDataAudience = "timeline"
	AudienceInternal ServerDataAudience = "internal"
	AudienceEvidence ServerDataAudience = "evidence"
)

// TypeSpec describes a JSON payload or result shape: its compiled schema
// plus an example for documentation and prompt injection.
type TypeSpec struct {
	Name        string
	Schema      *jsonschema.Schema
	ExampleJSON json.RawMessage
}

// Validate checks data against the compiled schema. A nil Schema validates
// everything (used for tools with no structured payload).
func (t TypeSpec) Validate(data json.RawMessage) error {
	if t.Schema == nil {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return t.Schema.Validate(v)
}

// ConfirmationSpec describes the human-facing confirmation prompt a tool
// requires before execution under the ASK policy mode.
type ConfirmationSpec struct {
	Title                string
	PromptTemplate       string
	DeniedResultTemplate string
}

// SafetyDescriptor is the static safety metadata attached to a tool at
// registration time; it drives the safety gate's policy decision and the
// dispatcher's sandbox requirement.
type SafetyDescriptor struct {
	// Class names the sanitization recipe to use (e.g. "shell_exec",
	// "file_write"). Empty means no sanitization is required.
	Class string
	// Sandbox is one of "none", "restricted". A tool with Sandbox ==
	// "restricted" is denied, never silently run unsandboxed, if no
	// sandbox adapter is configured.
	Sandbox string
	// DefaultMode is the policy mode used absent a more specific rule:
	// "allow", "ask", or "deny".
	DefaultMode string
}

// Spec describes a registered tool: its schema, description, and safety
// metadata.
type Spec struct {
	Name        Ident
	Description string
	Tags        []string
	Payload     TypeSpec
	Result      TypeSpec
	Safety      SafetyDescriptor
}
