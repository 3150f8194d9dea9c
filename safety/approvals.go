package safety

import (
	"context"
	"errors"
	"sync"
)

// Decision is the outcome of an approval request.
type Decision string

const (
	DecisionApproved           Decision = "APPROVED"
	DecisionApprovedForSession Decision = "APPROVED_FOR_SESSION"
	DecisionDenied             Decision = "DENIED"
	DecisionAbort              Decision = "ABORT"
)

// Request is what an ApprovalProvider is asked to decide on.
type Request struct {
	Tool      string
	Sanitized []byte // canonicalized, sanitized request bytes
}

// ApprovalProvider is the external collaborator that turns a Request into
// a Decision: an interactive CLI prompt, a rule engine, or a scripted
// responder in tests.
type ApprovalProvider interface {
	Decide(ctx context.Context, req Request) (Decision, error)
}

// ErrLoopGuard is returned when the same approval key is denied repeatedly
// within a run, so the loop does not spin forever re-asking.
var ErrLoopGuard = errors.New("safety: repeated denial for the same request, aborting to avoid a retry loop")

const loopGuardThreshold = 3

// CacheEntry is a cached approval outcome for a key.
type CacheEntry struct {
	Decision Decision
	Denials  int
}

// Approvals wraps an ApprovalProvider with an in-run cache (so
// APPROVED_FOR_SESSION short-circuits future prompts for the same key) and
// a loop guard (repeated denials for the same key become a terminal
// error instead of an infinite ask loop).
type Approvals struct {
	mu       sync.Mutex
	provider ApprovalProvider
	cache    map[string]*CacheEntry
}

// NewApprovals wraps provider.
func NewApprovals(provider ApprovalProvider) *Approvals {
	return &Approvals{provider: provider, cache: make(map[string]*CacheEntry)}
}

// Resolve returns the decision for key, consulting the cache first and the
// provider otherwise. A cached APPROVED_FOR_SESSION is reused without
// calling the provider again; a plain APPROVED is asked again next time
// (APPROVED means "once"). The returned reason is "cached" when the cache
// hit short-circuited the provider, or "provider" when it was consulted.
// onMiss, if non-nil, is invoked synchronously right before the provider is
// consulted, so a caller can emit an approval-requested notice exactly when
// one is about to be asked, never on a cache hit.
func (a *Approvals) Resolve(ctx context.Context, key string, req Request, onMiss func()) (decision Decision, reason string, err error) {
	a.mu.Lock()
	if entry, ok := a.cache[key]; ok && entry.Decision == DecisionApprovedForSession {
		a.mu.Unlock()
		return DecisionApprovedForSession, "cached", nil
	}
	a.mu.Unlock()

	if onMiss != nil {
		onMiss()
	}

	decision, err = a.provider.Decide(ctx, req)
	if err != nil {
		return "", "provider", err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	entry, ok := a.cache[key]
	if !ok {
		entry = &CacheEntry{}
		a.cache[key] = entry
	}
	entry.Decision = decision
	if decision == DecisionDenied {
		entry.Denials++
		if entry.Denials >= loopGuardThreshold {
			return decision, "provider", ErrLoopGuard
		}
	} else {
		entry.Denials = 0
	}
	return decision, "provider", nil
}
