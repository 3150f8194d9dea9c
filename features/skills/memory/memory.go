// Package memory is an in-process skills.Source fixture for tests and
// local development.
package memory

import (
	"context"

	"goa.design/skillsruntime/skills"
)

type entry struct {
	meta skills.Metadata
	body string
}

// Source holds a fixed in-memory catalogue of skills.
type Source struct {
	entries []entry
}

// New returns an empty in-memory Source.
func New() *Source { return &Source{} }

// Add registers a skill with its metadata and body.
func (s *Source) Add(namespace, name, description, body string) {
	s.entries = append(s.entries, entry{
		meta: skills.Metadata{Namespace: namespace, Name: name, Description: description, BodyBytes: len(body)},
		body: body,
	})
}

func (s *Source) Scan(context.Context) ([]skills.Metadata, error) {
	out := make([]skills.Metadata, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.meta
	}
	return out, nil
}

func (s *Source) LoadBody(_ context.Context, namespace, name string) (string, error) {
	for _, e := range s.entries {
		if e.meta.Namespace == namespace && e.meta.Name == name {
			return e.body, nil
		}
	}
	return "", nil
}
