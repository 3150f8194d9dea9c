package skills

import "regexp"

// Mention is a parsed `$[ns1:...:ns7].skill_name` reference.
type Mention struct {
	Namespace []string
	Skill     string
}

// slugPattern matches one namespace/skill segment: lowercase letters,
// digits, and hyphens, 2 to 64 characters.
const slugPattern = `[a-z0-9-]{2,64}`

var mentionRegexp = regexp.MustCompile(
	`\$\[(` + slugPattern + `(?::` + slugPattern + `){0,6})\]\.(` + slugPattern + `)`,
)

// FindMentions extracts every well-formed mention token in text, in order
// of first appearance, tolerating surrounding prose.
func FindMentions(text string) []Mention {
	matches := mentionRegexp.FindAllStringSubmatch(text, -1)
	out := make([]Mention, 0, len(matches))
	for _, m := range matches {
		out = append(out, Mention{Namespace: splitSegments(m[1]), Skill: m[2]})
	}
	return out
}

// ValidMention reports whether token is, in its entirety, a well-formed
// mention (no surrounding text tolerated), unlike FindMentions.
func ValidMention(token string) bool {
	anchored := regexp.MustCompile(`^` + mentionRegexp.String() + `$`)
	return anchored.MatchString(token)
}

func splitSegments(joined string) []string {
	var segs []string
	start := 0
	for i := 0; i < len(joined); i++ {
		if joined[i] == ':' {
			segs = append(segs, joined[start:i])
			start = i + 1
		}
	}
	segs = append(segs, joined[start:])
	return segs
}

// NamespaceKey joins namespace segments into the cache/lookup key used by
// Manager. Order matters: ["a","b"] and ["b","a"] are distinct namespaces.
func NamespaceKey(segments []string) string {
	key := ""
	for i, s := range segments {
		if i > 0 {
			key += ":"
		}
		key += s
	}
	return key
}
