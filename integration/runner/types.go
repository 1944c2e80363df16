package runner

import (
	"time"

	"github.com/google/uuid"
)

// Special say values that trigger non-conversation actions
const (
	// LeavePrompt walks away from the NPC by cancelling the session.
	LeavePrompt = "LEAVE"
	// TalkToPrompt starts a new session with the NPC named in the step,
	// keeping the same game.
	TalkToPrompt = "TALK_TO"
)

// TestSuite defines a complete integration test conversation.
// Can either be a regular test with Steps, or a suite that references other Cases
type TestSuite struct {
	Name       string     `yaml:"name"`
	AvatarName string     `yaml:"avatar_name,omitempty"`
	Master     string     `yaml:"master,omitempty"` // Used for regular tests
	NPC        int        `yaml:"npc,omitempty"`    // Used for regular tests
	Steps      []TestStep `yaml:"steps,omitempty"`  // Used for regular tests
	Cases      []string   `yaml:"cases,omitempty"`  // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep is one answer typed at a prompt and what should follow it.
// An empty Say checks the output already waiting, such as the greeting.
type TestStep struct {
	Name         string       `yaml:"name,omitempty"`
	Say          string       `yaml:"say"`
	Master       string       `yaml:"master,omitempty"` // for TALK_TO
	NPC          *int         `yaml:"npc,omitempty"`    // for TALK_TO
	Expectations Expectations `yaml:"expect"`
}

// Expectations defines what to check after a step executes
type Expectations struct {
	// Output analysis, over the text printed since the previous prompt
	OutputContains    []string `yaml:"output_contains,omitempty"`
	OutputNotContains []string `yaml:"output_not_contains,omitempty"`
	OutputRegex       string   `yaml:"output_regex,omitempty"`
	Commands          []string `yaml:"commands,omitempty"` // command names that must appear, e.g. JoinParty

	// Prompt the conversation stopped at: user_interest, npc_question or ask_name
	Prompt *string `yaml:"prompt,omitempty"`
	Ended  *bool   `yaml:"ended,omitempty"`

	// Game state after the step
	Gold      *int     `yaml:"gold,omitempty"`
	Karma     *int     `yaml:"karma,omitempty"`
	PartySize *int     `yaml:"party_size,omitempty"`
	Party     []string `yaml:"party,omitempty"` // member names, order independent
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName   string
	StepName   string
	Success    bool
	Error      error
	Duration   time.Duration
	OutputText string
	IsAction   bool // LEAVE and TALK_TO steps
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	GameID   uuid.UUID // ID of the game used for this test
}
