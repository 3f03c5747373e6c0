package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jwebster45206/combat-engine/internal/worker"
	"github.com/jwebster45206/combat-engine/pkg/queue"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running combat-engine API and worker
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
		Client:            &http.Client{Timeout: 10 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}
	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
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
		subJobs, err := LoadTestSuiteWithExpansion(filepath.Join(casesDir, caseFile), casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}
		jobs = append(jobs, subJobs...)
	}
	return jobs, nil
}

// RunSuite executes a complete test suite
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job:     TestJob{Name: suite.Name, Suite: suite},
		Results: make([]TestResult, 0, len(suite.Steps)),
		RunID:   uuid.NewString()[:8],
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.RunID, step)
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

	result.Duration = time.Since(start)
	return result, result.Error
}

func scoped(runID, name string) string {
	if name == "" {
		return ""
	}
	return name + "-" + runID
}

// scopeRequest rewrites logical combatant names for this run.
func scopeRequest(runID string, req queue.IntentRequest) *queue.IntentRequest {
	if req.FighterID == "" && req.Type == queue.RequestTypeSpawn {
		req.FighterID = req.Combatant
	}
	req.Combatant = scoped(runID, req.Combatant)
	req.To = scoped(runID, req.To)
	if req.Intent != nil {
		in := *req.Intent
		in.Target = scoped(runID, in.Target)
		req.Intent = &in
	}
	return &req
}

func (r *Runner) runStep(ctx context.Context, runID string, step TestStep) TestResult {
	start := time.Now()
	res := TestResult{StepName: step.Name}

	before, err := GetState(ctx, r.Client, r.BaseURL)
	if err != nil {
		res.Error = err
		return res
	}

	requests := make([]*queue.IntentRequest, 0, len(step.Requests)+1)
	for _, req := range step.Requests {
		requests = append(requests, scopeRequest(runID, req))
	}
	if a := step.AnswerLatest; a != nil {
		id := scoped(runID, a.Combatant)
		c, ok := findCombatant(before, id)
		if !ok || len(c.Proposals) == 0 {
			res.Error = fmt.Errorf("%s has no proposal to answer", a.Combatant)
			return res
		}
		requests = append(requests, &queue.IntentRequest{
			Type:       queue.RequestTypeAnswer,
			Combatant:  id,
			ProposalID: c.Proposals[len(c.Proposals)-1],
			Accept:     a.Accept,
		})
	}

	for _, req := range requests {
		if _, err := PostRequest(ctx, r.Client, r.BaseURL, req); err != nil {
			res.Error = err
			return res
		}
	}

	wait := step.WaitTicks
	if wait < 1 {
		wait = 1
	}
	after, err := WaitForTick(ctx, r.Client, r.BaseURL, before.Tick+uint64(wait)+1, r.Timeout)
	if err != nil {
		res.Error = err
		return res
	}
	res.Tick = after.Tick

	if err := checkExpectations(runID, step.Expectations, after); err != nil {
		res.Error = err
		return res
	}
	res.Success = true
	res.Duration = time.Since(start)
	return res
}

func findCombatant(snap *worker.Snapshot, id string) (worker.CombatantSnapshot, bool) {
	for _, c := range snap.Combatants {
		if c.ID == id {
			return c, true
		}
	}
	return worker.CombatantSnapshot{}, false
}

func checkExpectations(runID string, exp Expectations, snap *worker.Snapshot) error {
	var failures []string
	fail := func(format string, args ...any) { failures = append(failures, fmt.Sprintf(format, args...)) }

	for name, want := range exp.Combatants {
		c, ok := findCombatant(snap, scoped(runID, name))
		if want.Present != nil && ok != *want.Present {
			fail("%s present = %v, want %v", name, ok, *want.Present)
			continue
		}
		if !ok {
			if want.Present == nil {
				fail("%s not registered", name)
			}
			continue
		}
		if want.Mode != nil && c.Mode != *want.Mode {
			fail("%s mode = %s, want %s", name, c.Mode, *want.Mode)
		}
		if want.InSession != nil && (c.Session != "") != *want.InSession {
			fail("%s in session = %v, want %v", name, c.Session != "", *want.InSession)
		}
		if want.Target != nil && c.Target != scoped(runID, *want.Target) {
			fail("%s target = %q, want %q", name, c.Target, *want.Target)
		}
		if want.Conscious != nil && c.Conscious != *want.Conscious {
			fail("%s conscious = %v, want %v", name, c.Conscious, *want.Conscious)
		}
		if want.Proposals != nil && len(c.Proposals) != *want.Proposals {
			fail("%s has %d proposals, want %d", name, len(c.Proposals), *want.Proposals)
		}
		if want.MinStamina != nil && c.Stamina < *want.MinStamina {
			fail("%s stamina = %.1f, want >= %.1f", name, c.Stamina, *want.MinStamina)
		}
	}

	if len(exp.SharedSession) > 1 {
		var session string
		for _, name := range exp.SharedSession {
			c, ok := findCombatant(snap, scoped(runID, name))
			switch {
			case !ok || c.Session == "":
				fail("%s is not in a session", name)
			case session == "":
				session = c.Session
			case c.Session != session:
				fail("%s is in session %s, want %s", name, c.Session, session)
			}
		}
	}

	if len(failures) > 0 {
		return fmt.Errorf("expectations failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
