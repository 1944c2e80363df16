package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v2"

	"github.com/jwebster45206/talk-engine/pkg/conversation"
	"github.com/jwebster45206/talk-engine/pkg/state"
	"github.com/jwebster45206/talk-engine/pkg/talk"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

var promptNames = map[talk.Command]string{
	talk.PromptUserInterest: "user_interest",
	talk.PromptNPCQuestion:  "npc_question",
	talk.AskName:            "ask_name",
}

// Runner replays conversations against a running talk-engine API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 30 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a YAML file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := yaml.UnmarshalStrict(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse YAML in %s: %w", filename, err)
	}
	if !suite.IsSequence() && suite.Master == "" {
		return TestSuite{}, fmt.Errorf("test %s names no master file", filename)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// run tracks the live session of one suite.
type run struct {
	gameID    uuid.UUID
	sessionID uuid.UUID
	pending   []conversation.Event // output not yet checked by a step
	ended     bool
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
	}

	game, err := CreateGame(ctx, r.Client, r.BaseURL, suite.AvatarName)
	if err != nil {
		result.Error = fmt.Errorf("failed to create game: %w", err)
		result.Duration = time.Since(start)
		return result, result.Error
	}
	result.GameID = game.ID()

	cur := &run{gameID: game.ID()}
	if err := r.talkTo(ctx, cur, suite.Master, suite.NPC); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result, result.Error
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.executeStep(ctx, cur, step)
		stepResult.TestName = suite.Name
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}
		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	if !cur.ended {
		// Free the game lock for the next suite.
		_ = EndSession(ctx, r.Client, r.BaseURL, cur.sessionID)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

func (r *Runner) talkTo(ctx context.Context, cur *run, master string, npc int) error {
	deadline := time.Now().Add(r.Timeout)
	var (
		s   *SessionResponse
		err error
	)
	for {
		s, err = StartSession(ctx, r.Client, r.BaseURL, cur.gameID, master, npc)
		var se *StatusError
		// The previous session may still be releasing the game.
		if errors.As(err, &se) && se.Status == http.StatusConflict && time.Now().Before(deadline) {
			time.Sleep(PollInterval)
			continue
		}
		break
	}
	if err != nil {
		return fmt.Errorf("failed to start session with %s npc %d: %w", master, npc, err)
	}
	cur.sessionID = s.ID
	cur.ended = false
	cur.pending = nil
	return r.collect(ctx, cur)
}

func (r *Runner) collect(ctx context.Context, cur *run) error {
	events, ended, err := PollUntilPrompt(ctx, r.Client, r.BaseURL, cur.sessionID)
	cur.pending = append(cur.pending, events...)
	cur.ended = ended
	return err
}

// executeStep answers the prompt and checks what follows
func (r *Runner) executeStep(ctx context.Context, cur *run, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	switch step.Say {
	case LeavePrompt:
		result.IsAction = true
		if !cur.ended {
			if err := EndSession(ctx, r.Client, r.BaseURL, cur.sessionID); err != nil {
				return fail(fmt.Errorf("failed to leave: %w", err))
			}
		}
		cur.ended = true
		cur.pending = nil

	case TalkToPrompt:
		result.IsAction = true
		if step.Master == "" || step.NPC == nil {
			return fail(fmt.Errorf("%s needs master and npc", TalkToPrompt))
		}
		if !cur.ended {
			_ = EndSession(ctx, r.Client, r.BaseURL, cur.sessionID)
		}
		if err := r.talkTo(ctx, cur, step.Master, *step.NPC); err != nil {
			return fail(err)
		}

	case "":
		// Check the output already collected.

	default:
		if cur.ended {
			return fail(fmt.Errorf("conversation already ended, cannot say %q", step.Say))
		}
		cur.pending = nil
		if err := Respond(ctx, r.Client, r.BaseURL, cur.sessionID, step.Say); err != nil {
			return fail(fmt.Errorf("failed to respond: %w", err))
		}
		if err := r.collect(ctx, cur); err != nil {
			return fail(fmt.Errorf("failed to collect output: %w", err))
		}
	}

	result.OutputText = renderText(cur.pending)

	var game *state.GameState
	if step.Expectations.needsGame() {
		gs, err := r.waitForGame(ctx, cur)
		if err != nil {
			return fail(err)
		}
		game = gs
	}

	if err := r.checkExpectations(step.Expectations, cur, game); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// waitForGame reads the game state. Mid-conversation state is only saved
// when the session ends, so an ended session is given time to persist.
func (r *Runner) waitForGame(ctx context.Context, cur *run) (*state.GameState, error) {
	if !cur.ended {
		return GetGame(ctx, r.Client, r.BaseURL, cur.gameID)
	}
	deadline := time.Now().Add(r.Timeout)
	for {
		var s SessionResponse
		url := fmt.Sprintf("%s/v1/sessions/%s", r.BaseURL, cur.sessionID)
		if err := doJSON(ctx, r.Client, http.MethodGet, url, nil, http.StatusOK, &s); err == nil && !s.Active && s.EndedAt != nil {
			return GetGame(ctx, r.Client, r.BaseURL, cur.gameID)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("timeout waiting for session %s to save", cur.sessionID)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(PollInterval):
		}
	}
}

func (e Expectations) needsGame() bool {
	return e.Gold != nil || e.Karma != nil || e.PartySize != nil || len(e.Party) > 0
}

// renderText joins the literal text of the events.
func renderText(events []conversation.Event) string {
	var b strings.Builder
	for _, ev := range events {
		if ev.IsText() {
			b.WriteString(ev.Text)
		}
	}
	return b.String()
}

// checkExpectations validates the step expectations against the collected
// output and the game state
func (r *Runner) checkExpectations(exp Expectations, cur *run, game *state.GameState) error {
	text := renderText(cur.pending)
	lower := strings.ToLower(text)

	for _, want := range exp.OutputContains {
		if !strings.Contains(lower, strings.ToLower(want)) {
			return fmt.Errorf("expected output to contain '%s', got %q", want, text)
		}
	}
	for _, unwanted := range exp.OutputNotContains {
		if strings.Contains(lower, strings.ToLower(unwanted)) {
			return fmt.Errorf("expected output to NOT contain '%s', got %q", unwanted, text)
		}
	}
	if exp.OutputRegex != "" {
		matched, err := regexp.MatchString(exp.OutputRegex, text)
		if err != nil {
			return fmt.Errorf("invalid regex pattern: %w", err)
		}
		if !matched {
			return fmt.Errorf("output didn't match regex pattern: %s", exp.OutputRegex)
		}
	}

	for _, name := range exp.Commands {
		var want talk.Command
		if err := want.UnmarshalText([]byte(name)); err != nil {
			return err
		}
		found := false
		for _, ev := range cur.pending {
			if ev.Command == want {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("expected a %s event", name)
		}
	}

	if exp.Ended != nil && cur.ended != *exp.Ended {
		return fmt.Errorf("expected ended to be %t, got %t", *exp.Ended, cur.ended)
	}
	if exp.Prompt != nil {
		got := ""
		if n := len(cur.pending); n > 0 && cur.pending[n-1].IsPrompt() {
			got = promptNames[cur.pending[n-1].Command]
		}
		if got != *exp.Prompt {
			return fmt.Errorf("expected prompt %q, got %q", *exp.Prompt, got)
		}
	}

	if game == nil {
		return nil
	}
	if exp.Gold != nil && game.Gold() != *exp.Gold {
		return fmt.Errorf("expected gold to be %d, got %d", *exp.Gold, game.Gold())
	}
	if exp.Karma != nil && game.Karma() != *exp.Karma {
		return fmt.Errorf("expected karma to be %d, got %d", *exp.Karma, game.Karma())
	}
	if exp.PartySize != nil && game.PartySize() != *exp.PartySize {
		return fmt.Errorf("expected party_size to be %d, got %d", *exp.PartySize, game.PartySize())
	}
	if len(exp.Party) > 0 {
		actual := make(map[string]bool)
		var names []string
		for _, m := range game.Party() {
			actual[strings.ToLower(m.Spec.Name)] = true
			names = append(names, m.Spec.Name)
		}
		for _, want := range exp.Party {
			if !actual[strings.ToLower(want)] {
				return fmt.Errorf("expected party to contain '%s'. Actual party: %v", want, names)
			}
		}
	}

	return nil
}
