//go:build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/jwebster45206/combat-engine/integration/runner"
)

var caseFlag = flag.String("case", "", "Comma-separated test cases to run (from integration/cases/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")
var runsFlag = flag.Int("runs", 1, "Number of times to run each test suite")

func TestMain(m *testing.M) {
	fmt.Printf("Running Combat Engine Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL())
	os.Exit(m.Run())
}

func apiBaseURL() string {
	if u := os.Getenv("API_BASE_URL"); u != "" {
		return u
	}
	return "http://localhost:8080"
}

func newRunner(mode runner.ErrorHandlingMode) *runner.Runner {
	r := runner.NewRunner(apiBaseURL())
	r.Timeout = time.Duration(getIntEnv("TEST_TIMEOUT_SECONDS", 30)) * time.Second
	r.ErrorHandlingMode = mode
	r.Logger = func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}
	return r
}

func TestIntegrationSuites(t *testing.T) {
	if *caseFlag != "" {
		t.Skip("Skipping bulk run (-case given)")
	}
	files, err := discoverTestFiles("cases")
	if err != nil {
		t.Fatalf("Failed to discover test files: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("No test files found in cases directory")
	}
	runJobs(t, newRunner(runner.ErrorHandlingContinue), files, 1)
}

// TestSingleSuite runs the suites named by -case, -runs times.
func TestSingleSuite(t *testing.T) {
	if *caseFlag == "" {
		t.Skip("Skipping single suite test (use -case flag to run)")
	}
	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}
	if *runsFlag < 1 {
		t.Fatalf("Number of runs must be >= 1, got: %d", *runsFlag)
	}

	var files []string
	for _, name := range strings.Split(*caseFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			name += ".json"
		}
		files = append(files, filepath.Join("cases", name))
	}
	runJobs(t, newRunner(runner.ErrorHandlingMode(*errFlag)), files, *runsFlag)
}

func runJobs(t *testing.T, r *runner.Runner, files []string, runs int) {
	t.Helper()

	var jobs []runner.TestJob
	for _, file := range files {
		expanded, err := runner.LoadTestSuiteWithExpansion(file, "cases")
		if err != nil {
			t.Errorf("Failed to load test suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, expanded...)
	}
	if len(jobs) == 0 {
		t.Fatal("No valid test suites loaded")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var failures []failureDetail
	total, passes := 0, 0
	for run := 1; run <= runs; run++ {
		for i, job := range jobs {
			t.Logf("[%d/%d] Starting test suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))
			result, err := r.RunSuite(ctx, job.Suite)
			if err != nil && result.Error == nil {
				result.Error = err
			}
			total++

			if result.Error == nil {
				passes++
				t.Logf("[%d/%d] PASSED: %s in %v (run id %s)", i+1, len(jobs), job.Name, result.Duration, result.RunID)
				continue
			}
			t.Errorf("[%d/%d] FAILED: %s: %v", i+1, len(jobs), job.Name, result.Error)
			for _, step := range result.Results {
				if !step.Success && step.Error != nil {
					failures = append(failures, failureDetail{
						caseName: job.Name,
						stepName: step.StepName,
						error:    step.Error.Error(),
						run:      run,
					})
				}
			}
			if r.ErrorHandlingMode == runner.ErrorHandlingExit {
				t.Fatalf("Test suite(s) had errors")
			}
		}
	}

	if len(failures) > 0 {
		t.Log(buildFailureReport(failures, total, passes))
	}
}

// failureDetail tracks information about a specific step failure
type failureDetail struct {
	caseName string
	stepName string
	error    string
	run      int
}

// buildFailureReport groups step failures by case for the summary
func buildFailureReport(all []failureDetail, total, passes int) string {
	var sb strings.Builder
	sb.WriteString("\n========================================\n")
	sb.WriteString("Detailed Failure Report\n")
	sb.WriteString("========================================\n")
	if total > 0 {
		sb.WriteString(fmt.Sprintf("\nOverall: %d/%d passed (%.1f%%)\n", passes, total, float64(passes)/float64(total)*100))
	}

	byCase := make(map[string][]failureDetail)
	for _, f := range all {
		byCase[f.caseName] = append(byCase[f.caseName], f)
	}
	names := make([]string, 0, len(byCase))
	for name := range byCase {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		sb.WriteString(fmt.Sprintf("\n%s (%d step failure(s)):\n", name, len(byCase[name])))
		for _, f := range byCase[name] {
			sb.WriteString(fmt.Sprintf("  ✗ %s (run %d): %s\n", f.stepName, f.run, f.error))
		}
	}
	return sb.String()
}

func discoverTestFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func getIntEnv(name string, defaultValue int) int {
	val, err := strconv.Atoi(os.Getenv(name))
	if err != nil {
		return defaultValue
	}
	return val
}
