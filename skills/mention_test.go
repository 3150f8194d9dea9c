package skills_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"goa.design/skillsruntime/skills"
)

func TestFindMentionsExtractsFromProse(t *testing.T) {
	text := "please run $[acme:tools].deploy-app and also $[acme].review"
	mentions := skills.FindMentions(text)
	assert.Len(t, mentions, 2)
	assert.Equal(t, []string{"acme", "tools"}, mentions[0].Namespace)
	assert.Equal(t, "deploy-app", mentions[0].Skill)
	assert.Equal(t, []string{"acme"}, mentions[1].Namespace)
	assert.Equal(t, "review", mentions[1].Skill)
}

func TestValidMentionRejectsTooManySegments(t *testing.T) {
	eight := "$[aa:bb:cc:dd:ee:ff:gg:hh].skill"
	assert.False(t, skills.ValidMention(eight), "more than 7 namespace segments must be rejected")
}

func TestValidMentionRejectsUppercase(t *testing.T) {
	assert.False(t, skills.ValidMention("$[Acme].Deploy"))
}

func TestValidMentionAcceptsMinimalForm(t *testing.T) {
	assert.True(t, skills.ValidMention("$[ab].cd"))
}

func TestNamespaceOrderIsSignificant(t *testing.T) {
	assert.NotEqual(t, skills.NamespaceKey([]string{"a", "b"}), skills.NamespaceKey([]string{"b", "a"}))
}
