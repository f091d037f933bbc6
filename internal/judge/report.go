// Package judge executes untrusted candidate code against a problem's test
// cases inside an embedded Lua interpreter and produces a structured report.
// It holds no persistent state; every execution gets a fresh, whitelisted
// interpreter state.
package judge

import "context"

// TestCase is one input/expected-output pair to grade against.
type TestCase struct {
	Input    string
	Expected string
}

// EntryPoint names the solving method and its parameters. Method may be
// empty, in which case the first public method declared in the candidate
// source is used.
type EntryPoint struct {
	Method string
	Params []string
}

// CaseResult is the verdict for a single test case.
type CaseResult struct {
	Input    string `json:"input"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Passed   bool   `json:"passed"`
	Error    string `json:"error,omitempty"`
}

// Report aggregates the verdicts of one execution.
type Report struct {
	Total          int          `json:"total"`
	Passed         int          `json:"passed"`
	Cases          []CaseResult `json:"results"`
	ElapsedSeconds float64      `json:"execution_time"`
}

// AllPassed reports whether every case succeeded.
func (r Report) AllPassed() bool {
	return r.Total > 0 && r.Passed == r.Total
}

// Judge grades candidate code against test cases.
type Judge interface {
	Execute(ctx context.Context, code string, entry EntryPoint, cases []TestCase) Report
}
