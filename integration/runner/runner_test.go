package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

func writeCase(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTestSuiteWithExpansion(t *testing.T) {
	dir := t.TempDir()
	writeCase(t, dir, "one.yaml", `
name: one
master: towne
npc: 3
steps:
  - say: job
    expect:
      prompt: user_interest
`)
	writeCase(t, dir, "two.yaml", `
name: two
master: keep
npc: 1
`)
	seq := writeCase(t, dir, "seq.yaml", `
name: both
cases: [one.yaml, two.yaml]
`)

	jobs, err := LoadTestSuiteWithExpansion(seq, dir)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "one", jobs[0].Name)
	assert.Equal(t, 3, jobs[0].Suite.NPC)
	require.Len(t, jobs[0].Suite.Steps, 1)
	assert.Equal(t, "user_interest", *jobs[0].Suite.Steps[0].Expectations.Prompt)
	assert.Equal(t, "keep", jobs[1].Suite.Master)
}

func TestLoadTestSuite_Errors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		body string
	}{
		{"unknown field", "name: x\nmaster: towne\nwho: me\n"},
		{"no master", "name: x\nnpc: 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTestSuite(writeCase(t, dir, "bad.yaml", tt.body))
			assert.Error(t, err)
		})
	}

	_, err := LoadTestSuiteWithExpansion(writeCase(t, dir, "seq.yaml", "name: s\ncases: [missing.yaml]\n"), dir)
	assert.ErrorContains(t, err, "missing.yaml")
}

func TestCheckExpectations(t *testing.T) {
	r := NewRunner("http://localhost")
	cur := &run{pending: []conversation.Event{
		{Command: talk.PlainString, Text: "I keep the "},
		{Command: talk.PlainString, Text: "inn."},
		{Command: talk.Gold, Data: 5},
		{Command: talk.PromptUserInterest},
	}}
	prompt := "user_interest"
	ended := false

	err := r.checkExpectations(Expectations{
		OutputContains:    []string{"keep the inn"},
		OutputNotContains: []string{"tavern"},
		OutputRegex:       `^I keep`,
		Commands:          []string{"Gold"},
		Prompt:            &prompt,
		Ended:             &ended,
	}, cur, nil)
	assert.NoError(t, err)

	wrong := "npc_question"
	assert.Error(t, r.checkExpectations(Expectations{Prompt: &wrong}, cur, nil))
	assert.Error(t, r.checkExpectations(Expectations{Commands: []string{"JoinParty"}}, cur, nil))
	assert.Error(t, r.checkExpectations(Expectations{OutputContains: []string{"castle"}}, cur, nil))
	assert.Equal(t, "I keep the inn.", renderText(cur.pending))
}
