// Package skills implements the skills manager: scanning namespaced skill
// metadata, lazily loading bodies, and parsing the mention-token grammar
// used to reference a skill from a prompt. It applies no byte cap to
// bodies; prompt.Manager.InjectionMaxBytes bounds what is injected.
package skills

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Metadata is a skill's scan-time description, never its body.
type Metadata struct {
	Namespace   string
	Name        string
	Description string
	BodyBytes   int
}

// Skill is a fully resolved skill: its metadata plus a lazily loaded body.
type Skill struct {
	Metadata
	Body string
}

// RefreshPolicy controls how often Manager re-scans a Source.
type RefreshPolicy struct {
	Always bool
	TTL    time.Duration // zero with Always=false means manual only
}

// Source is the external collaborator a Manager scans and loads bodies
// from: a filesystem tree, a Redis/Postgres-backed store, or an in-memory
// fixture for tests.
type Source interface {
	Scan(ctx context.Context) ([]Metadata, error)
	LoadBody(ctx context.Context, namespace, name string) (string, error)
}

var (
	ErrSkillSpaceNotConfigured = errors.New("skills: namespace not configured")
	ErrSkillUnknown            = errors.New("skills: unknown skill")
)

// Manager caches Source metadata behind a refresh policy and resolves
// (namespace, name) pairs to bodies on demand.
type Manager struct {
	mu       sync.RWMutex
	sources  map[string]Source
	policies map[string]RefreshPolicy
	cache    map[string][]Metadata
	lastScan map[string]time.Time
	now      func() time.Time
}

// NewManager returns an empty Manager. now defaults to time.Now when nil,
// overridable in tests for deterministic TTL expiry.
func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{
		sources:  make(map[string]Source),
		policies: make(map[string]RefreshPolicy),
		cache:    make(map[string][]Metadata),
		lastScan: make(map[string]time.Time),
		now:      now,
	}
}

// Configure binds a namespace to a Source and its refresh policy.
func (m *Manager) Configure(namespace string, src Source, policy RefreshPolicy) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[namespace] = src
	m.policies[namespace] = policy
}

// Scan returns the metadata for namespace, refreshing from the Source when
// the refresh policy requires it.
func (m *Manager) Scan(ctx context.Context, namespace string) ([]Metadata, error) {
	m.mu.RLock()
	src, ok := m.sources[namespace]
	policy := m.policies[namespace]
	cached := m.cache[namespace]
	last := m.lastScan[namespace]
	m.mu.RUnlock()

	if !ok {
		return nil, ErrSkillSpaceNotConfigured
	}

	needsRefresh := cached == nil || policy.Always || (policy.TTL > 0 && m.now().Sub(last) >= policy.TTL)
	if !needsRefresh {
		return cached, nil
	}

	fresh, err := src.Scan(ctx)
	if err != nil {
		if cached != nil {
			return cached, nil
		}
		return nil, err
	}

	m.mu.Lock()
	m.cache[namespace] = fresh
	m.lastScan[namespace] = m.now()
	m.mu.Unlock()
	return fresh, nil
}

// Resolve finds the skill (namespace, name) and loads its body. The scan
// cache is consulted first so Resolve never loads a body for a skill that
// does not exist.
func (m *Manager) Resolve(ctx context.Context, namespace, name string) (Skill, error) {
	metas, err := m.Scan(ctx, namespace)
	if err != nil {
		return Skill{}, err
	}
	var found *Metadata
	for i := range metas {
		if metas[i].Name == name {
			found = &metas[i]
			break
		}
	}
	if found == nil {
		return Skill{}, ErrSkillUnknown
	}

	m.mu.RLock()
	src := m.sources[namespace]
	m.mu.RUnlock()

	body, err := src.LoadBody(ctx, namespace, name)
	if err != nil {
		return Skill{}, err
	}
	return Skill{Metadata: *found, Body: body}, nil
}
