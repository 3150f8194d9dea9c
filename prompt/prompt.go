// Package prompt implements the prompt manager: fixed-order assembly of
// system, developer policy, skills, injected bodies, trimmed history, and
// the current task, all under a byte budget.
package prompt

// Message is a single role-tagged turn in the conversation history.
type Message struct {
	Role    string // "user", "assistant", "tool"
	Content string
	Turn    string // turn ID this message belongs to, for Window's "keep current turn" rule
}

// InjectedBody is a skill body queued for injection, in first-appearance
// order.
type InjectedBody struct {
	Namespace string
	Name      string
	Body      string
}

// Compiled is the final assembled prompt.
type Compiled struct {
	System    string
	Developer string
	Skills    string
	Injected  []InjectedBody
	History   []Message
	Task      string
}

// Manager assembles prompts in the fixed order required by every run.
type Manager struct {
	System            string
	DeveloperPolicy    string
	InjectionMaxBytes int
	Window            Window
}

// Compile assembles a Compiled prompt. skillsEnumeration is the rendered
// "available skills" block; bodies are candidate injections in
// first-appearance order (Compile de-duplicates by (Namespace, Name),
// first occurrence wins, and truncates the injected set — never the task
// — once InjectionMaxBytes is exceeded).
func (m *Manager) Compile(task string, history []Message, skillsEnumeration string, bodies []InjectedBody) Compiled {
	seen := make(map[string]bool, len(bodies))
	var deduped []InjectedBody
	for _, b := range bodies {
		key := b.Namespace + "/" + b.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		deduped = append(deduped, b)
	}

	var injected []InjectedBody
	budget := m.InjectionMaxBytes
	for _, b := range deduped {
		if budget <= 0 {
			break
		}
		if len(b.Body) > budget {
			b.Body = b.Body[:budget]
		}
		injected = append(injected, b)
		budget -= len(b.Body)
	}

	return Compiled{
		System:    m.System,
		Developer: m.DeveloperPolicy,
		Skills:    skillsEnumeration,
		Injected:  injected,
		History:   m.Window.Trim(history),
		Task:      task,
	}
}

// Bytes returns the total serialized size of a Compiled prompt, the
// quantity a prompt_compiled event reports.
func (c Compiled) Bytes() int {
	total := len(c.System) + len(c.Developer) + len(c.Skills) + len(c.Task)
	for _, b := range c.Injected {
		total += len(b.Body)
	}
	for _, m := range c.History {
		total += len(m.Content)
	}
	return total
}

// HistoryBytes returns the serialized size of just the trimmed history.
func (c Compiled) HistoryBytes() int {
	total := 0
	for _, m := range c.History {
		total += len(m.Content)
	}
	return total
}
