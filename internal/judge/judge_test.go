package judge_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"codearena/internal/judge"
)

const twoSumSource = `
Solution = {}

function Solution.twoSum(nums, target)
    local seen = {}
    for i = 1, #nums do
        local want = target - nums[i]
        if seen[want] ~= nil then
            return {seen[want], i - 1}
        end
        seen[nums[i]] = i - 1
    end
    return {}
end
`

func newTestInterpreter() *judge.Interpreter {
	return judge.NewInterpreter(judge.Config{Timeout: 5 * time.Second})
}

func TestExecuteNamedInput(t *testing.T) {
	t.Parallel()
	report := newTestInterpreter().Execute(context.Background(), twoSumSource, judge.EntryPoint{}, []judge.TestCase{
		{Input: "nums = [2, 7, 11, 15], target = 9", Expected: "[0, 1]"},
		{Input: "target = 6, nums = [3, 2, 4]", Expected: "[1, 2]"},
	})
	if report.Passed != 2 {
		t.Fatalf("expected 2 passed, got %d (%+v)", report.Passed, report.Cases)
	}
	if report.Total != 2 {
		t.Fatalf("expected total 2, got %d", report.Total)
	}
	if !report.AllPassed() {
		t.Fatalf("expected all passed")
	}
	if report.Cases[0].Actual != "[0,1]" {
		t.Fatalf("expected actual [0,1], got %q", report.Cases[0].Actual)
	}
}

func TestExecutePositionalInput(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.sum(nums)
    local total = 0
    for _, v in ipairs(nums) do total = total + v end
    return total
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "[1, 2, 3]", Expected: "6"},
		{Input: "[]", Expected: "0"},
	})
	if report.Passed != 2 {
		t.Fatalf("expected 2 passed, got %d (%+v)", report.Passed, report.Cases)
	}
}

func TestExecuteColonMethod(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution:add(a, b)
    return a + b
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "a = 1, b = 2", Expected: "3"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected pass, got %+v", report.Cases)
	}
}

func TestExecuteRawStringFallback(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.reverse(s)
    return string.reverse(s)
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "hello", Expected: "olleh"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected raw-string input to pass, got %+v", report.Cases)
	}
}

func TestExecuteCaseIsolation(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.pick(x)
    if x == 1 then error("boom") end
    return x
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "1", Expected: "1"},
		{Input: "2", Expected: "2"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected 1 passed, got %d", report.Passed)
	}
	if report.Cases[0].Error == "" || !strings.Contains(report.Cases[0].Error, "Runtime Error") {
		t.Fatalf("expected runtime error on first case, got %+v", report.Cases[0])
	}
	if !report.Cases[1].Passed {
		t.Fatalf("expected second case to pass, got %+v", report.Cases[1])
	}
}

func TestExecuteSyntaxError(t *testing.T) {
	t.Parallel()
	report := newTestInterpreter().Execute(context.Background(), "function (", judge.EntryPoint{}, []judge.TestCase{
		{Input: "1", Expected: "1"},
		{Input: "2", Expected: "2"},
	})
	if report.Passed != 0 {
		t.Fatalf("expected 0 passed, got %d", report.Passed)
	}
	if report.Total != 2 {
		t.Fatalf("expected total to keep case count, got %d", report.Total)
	}
	if len(report.Cases) != 1 || !strings.Contains(report.Cases[0].Error, "Runtime Error") {
		t.Fatalf("expected single aggregate error entry, got %+v", report.Cases)
	}
}

func TestExecuteMissingSolution(t *testing.T) {
	t.Parallel()
	report := newTestInterpreter().Execute(context.Background(), "local x = 1", judge.EntryPoint{}, []judge.TestCase{
		{Input: "1", Expected: "1"},
	})
	if len(report.Cases) != 1 || !strings.Contains(report.Cases[0].Error, "Solution table not found") {
		t.Fatalf("expected missing-table error, got %+v", report.Cases)
	}
}

func TestExecuteSkipsPrivateMethods(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution._helper()
    return 0
end
function Solution.answer()
    return 42
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "", Expected: "42"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected underscore method to be skipped, got %+v", report.Cases)
	}
}

func TestExecuteExplicitEntryPoint(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.first()
    return 1
end
function Solution.second(n)
    return n * 2
end
`
	entry := judge.EntryPoint{Method: "second", Params: []string{"n"}}
	report := newTestInterpreter().Execute(context.Background(), source, entry, []judge.TestCase{
		{Input: "n = 21", Expected: "42"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected explicit entry point to win, got %+v", report.Cases)
	}
}

func TestExecuteTimeout(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.spin()
    while true do end
end
`
	interp := judge.NewInterpreter(judge.Config{Timeout: 100 * time.Millisecond})
	done := make(chan judge.Report, 1)
	go func() {
		done <- interp.Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
			{Input: "", Expected: "nil"},
		})
	}()
	select {
	case report := <-done:
		if report.Passed != 0 {
			t.Fatalf("expected 0 passed, got %d", report.Passed)
		}
		if report.Cases[0].Error == "" {
			t.Fatalf("expected timeout error, got %+v", report.Cases[0])
		}
	case <-time.After(5 * time.Second):
		t.Fatal("execution did not honor the timeout")
	}
}

func TestExecutePreludeHelpers(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.smallest(nums)
    local h = heap.new()
    for _, v in ipairs(nums) do h:push(v) end
    return h:pop()
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "[3, 1, 2]", Expected: "1"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected heap helper to be available, got %+v", report.Cases)
	}
}

func TestExecuteSandboxBlocksIO(t *testing.T) {
	t.Parallel()
	source := `
Solution = {}
function Solution.escape()
    return os ~= nil or io ~= nil or loadstring ~= nil
end
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "", Expected: "false"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected os/io/loadstring to be absent, got %+v", report.Cases)
	}
}

func TestExecuteTableAssignmentForm(t *testing.T) {
	t.Parallel()
	source := `
Solution = {
    double = function(n)
        return n * 2
    end
}
`
	report := newTestInterpreter().Execute(context.Background(), source, judge.EntryPoint{}, []judge.TestCase{
		{Input: "n = 4", Expected: "8"},
	})
	if report.Passed != 1 {
		t.Fatalf("expected table-literal method to resolve, got %+v", report.Cases)
	}
}
