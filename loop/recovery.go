package loop

import "goa.design/skillsruntime/prompt"

// RecoveryMode selects how the loop reacts to a context_length_exceeded
// signal from the chat backend.
type RecoveryMode string

const (
	RecoveryFailFast      RecoveryMode = "fail_fast"
	RecoveryCompactFirst  RecoveryMode = "compact_first"
	RecoveryAskFirst      RecoveryMode = "ask_first"
)

// AskFirstFallback selects what happens when RecoveryAskFirst has no
// HumanIOProvider configured to ask.
type AskFirstFallback string

const (
	FallbackCompact AskFirstFallback = "compact"
	FallbackFail    AskFirstFallback = "fail"
)

// RecoveryConfig is the loop controller's context-recovery policy.
type RecoveryConfig struct {
	Mode                      RecoveryMode
	MaxCompactionsPerRun      int
	CompactionHistoryMaxChars int
	CompactionKeepLastMessages int
	AskFirstFallback          AskFirstFallback
}

// Notice records a single compaction event for the run's terminal metadata.
type Notice struct {
	Kind         string `json:"kind"`
	KeptMessages int    `json:"kept_messages"`
	DroppedChars int    `json:"dropped_chars"`
}

// Recovery tracks compaction state across a single run.
type Recovery struct {
	Config    RecoveryConfig
	Used      int
	Notices   []Notice
}

// NewRecovery returns a Recovery tracker for cfg.
func NewRecovery(cfg RecoveryConfig) *Recovery {
	return &Recovery{Config: cfg}
}

// ErrRecoveryExhausted is returned once MaxCompactionsPerRun is reached and
// another context_length_exceeded signal arrives.
type ErrRecoveryExhausted struct{}

func (ErrRecoveryExhausted) Error() string { return "loop: context recovery exhausted for this run" }

// Compact applies CompactionKeepLastMessages/CompactionHistoryMaxChars to
// history, recording a Notice, and returns the compacted history.
func (r *Recovery) Compact(history []prompt.Message) ([]prompt.Message, error) {
	if r.Config.MaxCompactionsPerRun > 0 && r.Used >= r.Config.MaxCompactionsPerRun {
		return nil, ErrRecoveryExhausted{}
	}

	before := totalChars(history)
	w := prompt.Window{
		MaxMessages: r.Config.CompactionKeepLastMessages,
		MaxChars:    r.Config.CompactionHistoryMaxChars,
	}
	compacted := w.Trim(history)
	after := totalChars(compacted)

	r.Used++
	r.Notices = append(r.Notices, Notice{
		Kind:         "context_compacted",
		KeptMessages: len(compacted),
		DroppedChars: before - after,
	})
	return compacted, nil
}

func totalChars(history []prompt.Message) int {
	total := 0
	for _, m := range history {
		total += len(m.Content)
	}
	return total
}
