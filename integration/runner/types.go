package runner

import (
	"time"

	"github.com/jwebster45206/combat-engine/pkg/queue"
)

// TestSuite defines a complete integration test scenario.
// It either holds Steps or references other case files in Cases.
type TestSuite struct {
	Name  string     `json:"name"`
	Steps []TestStep `json:"steps,omitempty"`
	Cases []string   `json:"cases,omitempty"`
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// TestStep posts its requests, waits for the worker to pulse WaitTicks times,
// then checks the published engine state.
//
// Combatant names in requests and expectations are logical; the runner
// suffixes them per run so suites can be repeated against one engine.
type TestStep struct {
	Name         string                `json:"name,omitempty"`
	Requests     []queue.IntentRequest `json:"requests"`
	AnswerLatest *Answer               `json:"answer_latest,omitempty"`
	WaitTicks    int                   `json:"wait_ticks,omitempty"`
	Expectations Expectations          `json:"expect"`
}

// Answer accepts or rejects the newest proposal addressed to Combatant.
type Answer struct {
	Combatant string `json:"combatant"`
	Accept    bool   `json:"accept"`
}

// Expectations defines what to check after a test step executes
type Expectations struct {
	Combatants map[string]CombatantExpectation `json:"combatants,omitempty"`
	// SharedSession lists combatants that must be in the same session
	SharedSession []string `json:"shared_session,omitempty"`
}

type CombatantExpectation struct {
	Present    *bool    `json:"present,omitempty"`
	Mode       *string  `json:"mode,omitempty"`
	InSession  *bool    `json:"in_session,omitempty"`
	Target     *string  `json:"target,omitempty"`
	Conscious  *bool    `json:"conscious,omitempty"`
	Proposals  *int     `json:"proposals,omitempty"`
	MinStamina *float64 `json:"min_stamina,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	TestName string
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
	Tick     uint64
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
	RunID    string // suffix applied to combatant names for this run
}
